package memory

import (
	"context"
	"sort"
	"sync"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Summary // keyed by strategy_id|ticker
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{data: make(map[string]*domain.Summary)}
}

// Insert adds a summary. Returns ErrDuplicateKey if the (strategy_id, ticker)
// summary exists.
func (s *SummaryStore) Insert(_ context.Context, sum *domain.Summary) error {
	if sum == nil || sum.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := sum.StrategyID + "|" + sum.Ticker
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *sum
	s.data[k] = &copy
	return nil
}

// GetByStrategy retrieves all summaries for a strategy run.
func (s *SummaryStore) GetByStrategy(_ context.Context, strategyID string) ([]*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Summary
	for _, sum := range s.data {
		if sum.StrategyID == strategyID {
			copy := *sum
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Ticker < result[j].Ticker })

	return result, nil
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
