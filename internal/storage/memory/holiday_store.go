package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"b3-swing-lab/internal/storage"
)

// HolidayStore is an in-memory implementation of storage.HolidayStore.
type HolidayStore struct {
	mu   sync.RWMutex
	data map[string]time.Time // keyed by date string
}

// NewHolidayStore creates a new in-memory holiday store.
func NewHolidayStore() *HolidayStore {
	return &HolidayStore{data: make(map[string]time.Time)}
}

// InsertBulk adds holiday dates. Duplicates fail the batch.
func (s *HolidayStore) InsertBulk(_ context.Context, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		k := d.Format("2006-01-02")
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, d := range dates {
		s.data[d.Format("2006-01-02")] = d
	}
	return nil
}

// GetByRange retrieves holidays within [start, end], ordered ASC.
func (s *HolidayStore) GetByRange(_ context.Context, start, end time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []time.Time
	for _, d := range s.data {
		if d.Before(start) || d.After(end) {
			continue
		}
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })

	return result, nil
}

var _ storage.HolidayStore = (*HolidayStore)(nil)
