package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu     sync.RWMutex
	daily  map[string]*domain.DailyCandle  // keyed by ticker|date
	weekly map[string]*domain.WeeklyCandle // keyed by ticker|week_end
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		daily:  make(map[string]*domain.DailyCandle),
		weekly: make(map[string]*domain.WeeklyCandle),
	}
}

func candleKey(ticker string, date time.Time) string {
	return ticker + "|" + date.Format("2006-01-02")
}

// InsertDailyBulk adds multiple daily candles. Fails entire batch on duplicate.
func (s *CandleStore) InsertDailyBulk(_ context.Context, candles []*domain.DailyCandle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(candles))
	for _, c := range candles {
		if c == nil || c.Ticker == "" {
			return storage.ErrInvalidInput
		}
		k := candleKey(c.Ticker, c.Date)
		if _, exists := s.daily[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, c := range candles {
		copy := *c
		s.daily[candleKey(c.Ticker, c.Date)] = &copy
	}
	return nil
}

// InsertWeeklyBulk adds multiple weekly candles. Fails entire batch on duplicate.
func (s *CandleStore) InsertWeeklyBulk(_ context.Context, candles []*domain.WeeklyCandle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(candles))
	for _, c := range candles {
		if c == nil || c.Ticker == "" {
			return storage.ErrInvalidInput
		}
		k := candleKey(c.Ticker, c.WeekEnd)
		if _, exists := s.weekly[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, c := range candles {
		copy := *c
		s.weekly[candleKey(c.Ticker, c.WeekEnd)] = &copy
	}
	return nil
}

// GetDailyByRange retrieves daily candles within [start, end], ordered by
// date ASC, ticker ASC.
func (s *CandleStore) GetDailyByRange(_ context.Context, tickers []string, start, end time.Time) ([]*domain.DailyCandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		wanted[t] = struct{}{}
	}

	var result []*domain.DailyCandle
	for _, c := range s.daily {
		if _, ok := wanted[c.Ticker]; !ok {
			continue
		}
		if c.Date.Before(start) || c.Date.After(end) {
			continue
		}
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// GetWeeklyByRange retrieves weekly candles within [start, end], ordered by
// week_end ASC, ticker ASC.
func (s *CandleStore) GetWeeklyByRange(_ context.Context, tickers []string, start, end time.Time) ([]*domain.WeeklyCandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		wanted[t] = struct{}{}
	}

	var result []*domain.WeeklyCandle
	for _, c := range s.weekly {
		if _, ok := wanted[c.Ticker]; !ok {
			continue
		}
		if c.WeekEnd.Before(start) || c.WeekEnd.After(end) {
			continue
		}
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].WeekEnd.Equal(result[j].WeekEnd) {
			return result[i].WeekEnd.Before(result[j].WeekEnd)
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
