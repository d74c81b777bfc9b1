package postgres

import (
	"context"
	"fmt"
	"time"

	"b3-swing-lab/internal/storage"
)

// HolidayStore implements storage.HolidayStore using PostgreSQL.
type HolidayStore struct {
	pool *Pool
}

// NewHolidayStore creates a new HolidayStore.
func NewHolidayStore(pool *Pool) *HolidayStore {
	return &HolidayStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolidayStore = (*HolidayStore)(nil)

// InsertBulk adds holiday dates. Duplicates fail the batch.
func (s *HolidayStore) InsertBulk(ctx context.Context, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO holidays (holiday) VALUES ($1)`
	for _, d := range dates {
		if _, err := tx.Exec(ctx, query, d); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert holiday: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRange retrieves holidays within [start, end], ordered ASC.
func (s *HolidayStore) GetByRange(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	query := `
		SELECT holiday
		FROM holidays
		WHERE holiday >= $1 AND holiday <= $2
		ORDER BY holiday ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get holidays by range: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan holiday row: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holiday rows: %w", err)
	}

	return dates, nil
}
