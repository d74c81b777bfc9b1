package clickhouse

import (
	"context"
	"fmt"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// IndexStore implements storage.IndexStore using ClickHouse.
type IndexStore struct {
	conn *Conn
}

// NewIndexStore creates a new IndexStore.
func NewIndexStore(conn *Conn) *IndexStore {
	return &IndexStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndexStore = (*IndexStore)(nil)

// InsertBulk adds index points. Fails entire batch on duplicate (index, date).
func (s *IndexStore) InsertBulk(ctx context.Context, points []*domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		index string
		date  string
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Index, p.Date.Format("2006-01-02")}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Index, p.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO index_points (index_name, point_date, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Index, p.Date, p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRange retrieves points for one index within [start, end], ordered by
// date ASC.
func (s *IndexStore) GetByRange(ctx context.Context, index string, start, end time.Time) ([]*domain.IndexPoint, error) {
	query := `
		SELECT index_name, point_date, value
		FROM index_points
		WHERE index_name = ? AND point_date >= ? AND point_date <= ?
		ORDER BY point_date ASC
	`

	rows, err := s.conn.Query(ctx, query, index, start, end)
	if err != nil {
		return nil, fmt.Errorf("query index points: %w", err)
	}
	defer rows.Close()

	var points []*domain.IndexPoint
	for rows.Next() {
		var p domain.IndexPoint
		if err := rows.Scan(&p.Index, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan index point row: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index point rows: %w", err)
	}

	return points, nil
}

// exists checks if a point with the given key exists.
func (s *IndexStore) exists(ctx context.Context, index string, date time.Time) (bool, error) {
	query := `SELECT count(*) FROM index_points WHERE index_name = ? AND point_date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, index, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
