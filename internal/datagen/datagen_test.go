package datagen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage/memory"
)

func seedStores(t *testing.T, ctx context.Context, tickers []string, start, end time.Time) (*memory.CandleStore, *memory.HolidayStore) {
	t.Helper()

	candles := memory.NewCandleStore()
	holidays := memory.NewHolidayStore()

	var daily []*domain.DailyCandle
	var weekly []*domain.WeeklyCandle

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, tck := range tickers {
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				daily = append(daily, &domain.DailyCandle{
					Ticker: tck, Date: d,
					Open: 100, High: 102, Low: 99, Close: 101,
				})
			}
			if d.Weekday() == time.Sunday {
				weekly = append(weekly, &domain.WeeklyCandle{
					Ticker: tck, WeekEnd: d, Close: 101, EMA72: 95,
				})
			}
		}
	}

	require.NoError(t, candles.InsertDailyBulk(ctx, daily))
	require.NoError(t, candles.InsertWeeklyBulk(ctx, weekly))

	return candles, holidays
}

func TestGenerator_DayByDay(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"PETR4", "VALE3"}

	// 2019-02-01 Friday through 2019-03-29 Friday.
	start := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 29, 0, 0, 0, 0, time.UTC)

	candles, holidays := seedStores(t, ctx, tickers, start.AddDate(0, 0, -70), end)

	gen, err := New(ctx, candles, holidays, tickers, start, end, 10)
	require.NoError(t, err)

	var count int
	var prev time.Time
	for {
		feed, err := gen.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)

		count++
		assert.Len(t, feed.Daily, len(tickers), "one daily row per ticker on %v", feed.Date)

		// Strictly forward.
		if !prev.IsZero() {
			assert.True(t, feed.Date.After(prev), "dates must advance")
		}
		prev = feed.Date

		// Weekends never yielded.
		wd := feed.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}

	// 8 full weeks + 1 day of weekdays between 2019-02-01 and 2019-03-29.
	assert.Equal(t, 41, count)
}

func TestGenerator_WeeklyIsCausal(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"PETR4"}

	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)

	candles, holidays := seedStores(t, ctx, tickers, start.AddDate(0, 0, -70), end)

	gen, err := New(ctx, candles, holidays, tickers, start, end, 30)
	require.NoError(t, err)

	for {
		feed, err := gen.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)

		require.NotEmpty(t, feed.Weekly, "a completed week must be available on %v", feed.Date)
		for _, w := range feed.Weekly {
			age := feed.Date.Sub(w.WeekEnd)
			assert.GreaterOrEqual(t, age, 7*24*time.Hour,
				"weekly row on %v ended %v: must be at least a week old", feed.Date, w.WeekEnd)
		}
	}
}

func TestGenerator_HolidaysSkipped(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"PETR4"}

	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 8, 0, 0, 0, 0, time.UTC)

	candles, holidays := seedStores(t, ctx, tickers, start.AddDate(0, 0, -70), end)

	// Carnival Monday and Tuesday.
	require.NoError(t, holidays.InsertBulk(ctx, []time.Time{
		time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 3, 5, 0, 0, 0, 0, time.UTC),
	}))

	gen, err := New(ctx, candles, holidays, tickers, start, end, 30)
	require.NoError(t, err)

	var dates []time.Time
	for {
		feed, err := gen.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)
		dates = append(dates, feed.Date)
	}

	require.Len(t, dates, 3)
	assert.Equal(t, time.Date(2019, 3, 6, 0, 0, 0, 0, time.UTC), dates[0])
}

func TestGenerator_ExhaustedStaysExhausted(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"PETR4"}

	start := time.Date(2019, 3, 6, 0, 0, 0, 0, time.UTC)
	candles, holidays := seedStores(t, ctx, tickers, start.AddDate(0, 0, -70), start)

	gen, err := New(ctx, candles, holidays, tickers, start, start, 30)
	require.NoError(t, err)

	_, err = gen.Next(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = gen.Next(ctx)
		assert.ErrorIs(t, err, ErrExhausted)
	}
}

func TestGenerator_BatchBoundariesInvisible(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"PETR4"}

	start := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 29, 0, 0, 0, 0, time.UTC)

	candles, holidays := seedStores(t, ctx, tickers, start.AddDate(0, 0, -70), end)

	collect := func(batchDays int) []time.Time {
		gen, err := New(ctx, candles, holidays, tickers, start, end, batchDays)
		require.NoError(t, err)
		var dates []time.Time
		for {
			feed, err := gen.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				break
			}
			require.NoError(t, err)
			dates = append(dates, feed.Date)
		}
		return dates
	}

	assert.Equal(t, collect(3), collect(30), "batch size must not change the yielded sequence")
}
