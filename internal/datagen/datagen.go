package datagen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"b3-swing-lab/internal/calendar"
	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// ErrExhausted signals the end of the day feed. It is an end-of-sequence
// condition, not a failure.
var ErrExhausted = errors.New("day feed exhausted")

// DefaultBatchDays is how many business days are fetched per store call.
const DefaultBatchDays = 30

// weeklyLagDays is the minimum age of a weekly candle relative to the
// current day. Keeps weekly feature lookups causal.
const weeklyLagDays = 7

// weeklyLookbackDays is how far behind a batch the weekly fetch reaches so
// every day in the batch has a completed week available.
const weeklyLookbackDays = 60

// DayFeed is one business day of joined rows for the whole ticker universe.
// Daily holds exactly the rows dated that day; Weekly holds, per ticker, the
// most recent weekly candle whose week ended at least a week earlier.
type DayFeed struct {
	Date   time.Time
	Daily  []*domain.DailyCandle
	Weekly []*domain.WeeklyCandle
}

// Generator is a forward-only, finite, non-restartable day feed over a date
// range and ticker set. Fetches are batched so the simulation loop never
// sees store latency per day.
type Generator struct {
	candles storage.CandleStore
	tickers []string

	days      []time.Time
	cursor    int
	batchDays int

	// buffer covers days[bufferStart:bufferEnd)
	bufferEnd int
	daily     map[string][]*domain.DailyCandle
	weekly    map[string][]*domain.WeeklyCandle // per ticker, week_end ASC
}

// New builds a generator for [start, end] over the given tickers. The
// business-day sequence excludes weekends and the holidays known to the
// holiday store. batchDays <= 0 selects DefaultBatchDays.
func New(ctx context.Context, candles storage.CandleStore, holidays storage.HolidayStore, tickers []string, start, end time.Time, batchDays int) (*Generator, error) {
	if batchDays <= 0 {
		batchDays = DefaultBatchDays
	}

	hols, err := holidays.GetByRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}

	cal := calendar.New(hols)

	return &Generator{
		candles:   candles,
		tickers:   tickers,
		days:      cal.Range(start, end),
		batchDays: batchDays,
	}, nil
}

// Next yields the next day's rows, or ErrExhausted after the final day.
func (g *Generator) Next(ctx context.Context) (*DayFeed, error) {
	if g.cursor >= len(g.days) {
		return nil, ErrExhausted
	}

	if g.cursor >= g.bufferEnd {
		if err := g.fetchBatch(ctx); err != nil {
			return nil, err
		}
	}

	day := g.days[g.cursor]
	g.cursor++

	feed := &DayFeed{
		Date:  day,
		Daily: g.daily[dayKey(day)],
	}

	cutoff := day.AddDate(0, 0, -weeklyLagDays)
	for _, ticker := range g.tickers {
		if w := latestWeeklyAtOrBefore(g.weekly[ticker], cutoff); w != nil {
			feed.Weekly = append(feed.Weekly, w)
		}
	}

	return feed, nil
}

// fetchBatch buffers the next batchDays business days of daily rows plus
// enough trailing weekly rows to serve the causal weekly lookup.
func (g *Generator) fetchBatch(ctx context.Context) error {
	end := g.cursor + g.batchDays
	if end > len(g.days) {
		end = len(g.days)
	}

	batchStart := g.days[g.cursor]
	batchEnd := g.days[end-1]

	dailyRows, err := g.candles.GetDailyByRange(ctx, g.tickers, batchStart, batchEnd)
	if err != nil {
		return fmt.Errorf("fetch daily batch: %w", err)
	}

	weeklyStart := batchStart.AddDate(0, 0, -weeklyLookbackDays)
	weeklyRows, err := g.candles.GetWeeklyByRange(ctx, g.tickers, weeklyStart, batchEnd)
	if err != nil {
		return fmt.Errorf("fetch weekly batch: %w", err)
	}

	g.daily = make(map[string][]*domain.DailyCandle)
	for _, c := range dailyRows {
		k := dayKey(c.Date)
		g.daily[k] = append(g.daily[k], c)
	}

	g.weekly = make(map[string][]*domain.WeeklyCandle)
	for _, c := range weeklyRows {
		g.weekly[c.Ticker] = append(g.weekly[c.Ticker], c)
	}

	g.bufferEnd = end
	return nil
}

// latestWeeklyAtOrBefore returns the last candle with WeekEnd <= cutoff.
// Rows arrive week_end ASC from the store.
func latestWeeklyAtOrBefore(rows []*domain.WeeklyCandle, cutoff time.Time) *domain.WeeklyCandle {
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].WeekEnd.After(cutoff) {
			return rows[i]
		}
	}
	return nil
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}
