package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// IndexStore is an in-memory implementation of storage.IndexStore.
type IndexStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IndexPoint // keyed by index|date
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{data: make(map[string]*domain.IndexPoint)}
}

func indexKey(index string, date time.Time) string {
	return index + "|" + date.Format("2006-01-02")
}

// InsertBulk adds index points. Fails entire batch on duplicate (index, date).
func (s *IndexStore) InsertBulk(_ context.Context, points []*domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Index == "" {
			return storage.ErrInvalidInput
		}
		k := indexKey(p.Index, p.Date)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		s.data[indexKey(p.Index, p.Date)] = &copy
	}
	return nil
}

// GetByRange retrieves points for one index within [start, end], ordered by
// date ASC.
func (s *IndexStore) GetByRange(_ context.Context, index string, start, end time.Time) ([]*domain.IndexPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.IndexPoint
	for _, p := range s.data {
		if p.Index != index {
			continue
		}
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	return result, nil
}

var _ storage.IndexStore = (*IndexStore)(nil)
