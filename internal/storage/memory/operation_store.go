package memory

import (
	"context"
	"sort"
	"sync"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// OperationStore is an in-memory implementation of storage.OperationStore.
type OperationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OperationRecord // keyed by operation_id
}

// NewOperationStore creates a new in-memory operation store.
func NewOperationStore() *OperationStore {
	return &OperationStore{data: make(map[string]*domain.OperationRecord)}
}

// Insert adds an operation with its legs. Returns ErrDuplicateKey if
// operation_id exists.
func (s *OperationStore) Insert(_ context.Context, rec *domain.OperationRecord) error {
	if rec == nil || rec.OperationID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.OperationID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[rec.OperationID] = copyOperation(rec)
	return nil
}

// InsertBulk adds multiple operations atomically. Fails entire batch on any
// duplicate.
func (s *OperationStore) InsertBulk(_ context.Context, recs []*domain.OperationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if rec == nil || rec.OperationID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[rec.OperationID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[rec.OperationID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[rec.OperationID] = struct{}{}
	}

	for _, rec := range recs {
		s.data[rec.OperationID] = copyOperation(rec)
	}
	return nil
}

// GetByID retrieves an operation by its ID. Returns ErrNotFound if not exists.
func (s *OperationStore) GetByID(_ context.Context, operationID string) (*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[operationID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyOperation(rec), nil
}

// GetByStrategy retrieves all operations recorded by a strategy run, ordered
// by start_date ASC, operation_id ASC.
func (s *OperationStore) GetByStrategy(_ context.Context, strategyID string) ([]*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OperationRecord
	for _, rec := range s.data {
		if rec.StrategyID == strategyID {
			result = append(result, copyOperation(rec))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].StartDate, result[j].StartDate
		switch {
		case di == nil && dj != nil:
			return true
		case di != nil && dj == nil:
			return false
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		}
		return result[i].OperationID < result[j].OperationID
	})

	return result, nil
}

// copyOperation deep-copies a record including its legs.
func copyOperation(rec *domain.OperationRecord) *domain.OperationRecord {
	copy := *rec
	if rec.StartDate != nil {
		d := *rec.StartDate
		copy.StartDate = &d
	}
	if rec.EndDate != nil {
		d := *rec.EndDate
		copy.EndDate = &d
	}
	copy.Legs = make([]*domain.OperationLeg, len(rec.Legs))
	for i, leg := range rec.Legs {
		l := *leg
		copy.Legs[i] = &l
	}
	return &copy
}

var _ storage.OperationStore = (*OperationStore)(nil)
