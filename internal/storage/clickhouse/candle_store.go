package clickhouse

import (
	"context"
	"fmt"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse. Candle
// history is append-only time series data, which is what the columnar
// engine is here for.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertDailyBulk adds multiple daily candles. Fails entire batch on
// duplicate (ticker, date).
func (s *CandleStore) InsertDailyBulk(ctx context.Context, candles []*domain.DailyCandle) error {
	if len(candles) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		ticker string
		date   string
	}
	seen := make(map[key]struct{})
	for _, c := range candles {
		k := key{c.Ticker, c.Date.Format("2006-01-02")}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, c := range candles {
		exists, err := s.dailyExists(ctx, c.Ticker, c.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_candles (
			ticker, trade_date, open, high, low, close, volume,
			ema17, ema72, trend, peak, target_buy_price, stop_loss
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.Ticker, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume,
			c.EMA17, c.EMA72, c.Trend.String(), c.Peak, c.TargetBuyPrice, c.StopLoss,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// InsertWeeklyBulk adds multiple weekly candles. Fails entire batch on
// duplicate (ticker, week_end).
func (s *CandleStore) InsertWeeklyBulk(ctx context.Context, candles []*domain.WeeklyCandle) error {
	if len(candles) == 0 {
		return nil
	}

	type key struct {
		ticker  string
		weekEnd string
	}
	seen := make(map[key]struct{})
	for _, c := range candles {
		k := key{c.Ticker, c.WeekEnd.Format("2006-01-02")}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, c := range candles {
		exists, err := s.weeklyExists(ctx, c.Ticker, c.WeekEnd)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO weekly_candles (
			ticker, week_end, open, high, low, close, volume, ema72
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.Ticker, c.WeekEnd, c.Open, c.High, c.Low, c.Close, c.Volume, c.EMA72,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetDailyByRange retrieves daily candles for the tickers within
// [start, end], ordered by date ASC, ticker ASC.
func (s *CandleStore) GetDailyByRange(ctx context.Context, tickers []string, start, end time.Time) ([]*domain.DailyCandle, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, volume,
		       ema17, ema72, trend, peak, target_buy_price, stop_loss
		FROM daily_candles
		WHERE has(?, ticker) AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC, ticker ASC
	`

	rows, err := s.conn.Query(ctx, query, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("query daily candles: %w", err)
	}
	defer rows.Close()

	return scanDailyCandles(rows)
}

// GetWeeklyByRange retrieves weekly candles whose week_end falls within
// [start, end], ordered by week_end ASC, ticker ASC.
func (s *CandleStore) GetWeeklyByRange(ctx context.Context, tickers []string, start, end time.Time) ([]*domain.WeeklyCandle, error) {
	query := `
		SELECT ticker, week_end, open, high, low, close, volume, ema72
		FROM weekly_candles
		WHERE has(?, ticker) AND week_end >= ? AND week_end <= ?
		ORDER BY week_end ASC, ticker ASC
	`

	rows, err := s.conn.Query(ctx, query, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("query weekly candles: %w", err)
	}
	defer rows.Close()

	return scanWeeklyCandles(rows)
}

// dailyExists checks if a daily candle with the given key exists.
func (s *CandleStore) dailyExists(ctx context.Context, ticker string, date time.Time) (bool, error) {
	query := `SELECT count(*) FROM daily_candles WHERE ticker = ? AND trade_date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// weeklyExists checks if a weekly candle with the given key exists.
func (s *CandleStore) weeklyExists(ctx context.Context, ticker string, weekEnd time.Time) (bool, error) {
	query := `SELECT count(*) FROM weekly_candles WHERE ticker = ? AND week_end = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker, weekEnd).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanDailyCandles scans multiple rows.
func scanDailyCandles(rows chRows) ([]*domain.DailyCandle, error) {
	var candles []*domain.DailyCandle

	for rows.Next() {
		var c domain.DailyCandle
		var trend string

		err := rows.Scan(
			&c.Ticker, &c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.EMA17, &c.EMA72, &trend, &c.Peak, &c.TargetBuyPrice, &c.StopLoss,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily candle row: %w", err)
		}

		c.Trend = domain.ParseTrendStatus(trend)
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily candle rows: %w", err)
	}

	return candles, nil
}

// scanWeeklyCandles scans multiple rows.
func scanWeeklyCandles(rows chRows) ([]*domain.WeeklyCandle, error) {
	var candles []*domain.WeeklyCandle

	for rows.Next() {
		var c domain.WeeklyCandle

		err := rows.Scan(
			&c.Ticker, &c.WeekEnd, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.EMA72,
		)
		if err != nil {
			return nil, fmt.Errorf("scan weekly candle row: %w", err)
		}

		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly candle rows: %w", err)
	}

	return candles, nil
}
