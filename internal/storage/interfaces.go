package storage

import (
	"context"
	"time"

	"b3-swing-lab/internal/domain"
)

// CandleStore provides access to daily and weekly candle+feature storage.
type CandleStore interface {
	// InsertDailyBulk adds multiple daily candles. Fails entire batch on
	// duplicate (ticker, date).
	InsertDailyBulk(ctx context.Context, candles []*domain.DailyCandle) error

	// InsertWeeklyBulk adds multiple weekly candles. Fails entire batch on
	// duplicate (ticker, week_end).
	InsertWeeklyBulk(ctx context.Context, candles []*domain.WeeklyCandle) error

	// GetDailyByRange retrieves daily candles for the tickers within
	// [start, end] (inclusive), ordered by date ASC, ticker ASC.
	GetDailyByRange(ctx context.Context, tickers []string, start, end time.Time) ([]*domain.DailyCandle, error)

	// GetWeeklyByRange retrieves weekly candles whose week_end falls within
	// [start, end] (inclusive), ordered by week_end ASC, ticker ASC.
	GetWeeklyByRange(ctx context.Context, tickers []string, start, end time.Time) ([]*domain.WeeklyCandle, error)
}

// HolidayStore provides the exchange holiday calendar.
type HolidayStore interface {
	// InsertBulk adds holiday dates. Duplicates fail the batch.
	InsertBulk(ctx context.Context, dates []time.Time) error

	// GetByRange retrieves holidays within [start, end] (inclusive),
	// ordered ASC.
	GetByRange(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// IndexStore provides benchmark index series (IBOV, CDI).
type IndexStore interface {
	// InsertBulk adds index points. Fails entire batch on duplicate
	// (index, date).
	InsertBulk(ctx context.Context, points []*domain.IndexPoint) error

	// GetByRange retrieves points for one index within [start, end]
	// (inclusive), ordered by date ASC.
	GetByRange(ctx context.Context, index string, start, end time.Time) ([]*domain.IndexPoint, error)
}

// RiskBandStore provides the precomputed per-day risk/trend table used by
// the ML strategy variant.
type RiskBandStore interface {
	// InsertBulk adds risk bands. Fails entire batch on duplicate
	// (ticker, date).
	InsertBulk(ctx context.Context, bands []*domain.RiskBand) error

	// GetByTickerDate retrieves the band for a (ticker, date) pair.
	// Returns ErrNotFound if no band exists for that day.
	GetByTickerDate(ctx context.Context, ticker string, date time.Time) (*domain.RiskBand, error)
}

// OperationStore provides access to persisted operations and their legs.
type OperationStore interface {
	// Insert adds an operation with its legs. Returns ErrDuplicateKey if
	// operation_id exists.
	Insert(ctx context.Context, rec *domain.OperationRecord) error

	// InsertBulk adds multiple operations atomically. Fails entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, recs []*domain.OperationRecord) error

	// GetByID retrieves an operation by its ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error)

	// GetByStrategy retrieves all operations recorded by a strategy run,
	// ordered by start_date ASC, operation_id ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.OperationRecord, error)
}

// SummaryStore provides access to persisted strategy summaries.
type SummaryStore interface {
	// Insert adds a summary. Returns ErrDuplicateKey if the
	// (strategy_id, ticker) summary exists.
	Insert(ctx context.Context, s *domain.Summary) error

	// GetByStrategy retrieves all summaries for a strategy run.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.Summary, error)
}
