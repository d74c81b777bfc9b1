package postgres

import (
	"context"
	"fmt"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// RiskBandStore implements storage.RiskBandStore using PostgreSQL.
type RiskBandStore struct {
	pool *Pool
}

// NewRiskBandStore creates a new RiskBandStore.
func NewRiskBandStore(pool *Pool) *RiskBandStore {
	return &RiskBandStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RiskBandStore = (*RiskBandStore)(nil)

// InsertBulk adds risk bands. Fails entire batch on duplicate (ticker, date).
func (s *RiskBandStore) InsertBulk(ctx context.Context, bands []*domain.RiskBand) error {
	if len(bands) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO risk_bands (
			ticker, band_date, min_risk, max_risk,
			uptrend, downtrend, crisis
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, b := range bands {
		_, err := tx.Exec(ctx, query,
			b.Ticker, b.Date, b.MinRisk, b.MaxRisk,
			b.Uptrend, b.Downtrend, b.Crisis,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert risk band: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTickerDate retrieves the band for a (ticker, date) pair. Returns
// ErrNotFound if no band exists for that day.
func (s *RiskBandStore) GetByTickerDate(ctx context.Context, ticker string, date time.Time) (*domain.RiskBand, error) {
	query := `
		SELECT ticker, band_date, min_risk, max_risk, uptrend, downtrend, crisis
		FROM risk_bands
		WHERE ticker = $1 AND band_date = $2
	`

	var b domain.RiskBand
	err := s.pool.QueryRow(ctx, query, ticker, date).Scan(
		&b.Ticker, &b.Date, &b.MinRisk, &b.MaxRisk,
		&b.Uptrend, &b.Downtrend, &b.Crisis,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get risk band: %w", err)
	}

	return &b, nil
}
