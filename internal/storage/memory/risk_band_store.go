package memory

import (
	"context"
	"sync"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// RiskBandStore is an in-memory implementation of storage.RiskBandStore.
type RiskBandStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskBand // keyed by ticker|date
}

// NewRiskBandStore creates a new in-memory risk band store.
func NewRiskBandStore() *RiskBandStore {
	return &RiskBandStore{data: make(map[string]*domain.RiskBand)}
}

// InsertBulk adds risk bands. Fails entire batch on duplicate (ticker, date).
func (s *RiskBandStore) InsertBulk(_ context.Context, bands []*domain.RiskBand) error {
	if len(bands) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bands))
	for _, b := range bands {
		if b == nil || b.Ticker == "" {
			return storage.ErrInvalidInput
		}
		k := candleKey(b.Ticker, b.Date)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, b := range bands {
		copy := *b
		s.data[candleKey(b.Ticker, b.Date)] = &copy
	}
	return nil
}

// GetByTickerDate retrieves the band for a (ticker, date) pair.
// Returns ErrNotFound if no band exists for that day.
func (s *RiskBandStore) GetByTickerDate(_ context.Context, ticker string, date time.Time) (*domain.RiskBand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[candleKey(ticker, date)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *b
	return &copy, nil
}

var _ storage.RiskBandStore = (*RiskBandStore)(nil)
