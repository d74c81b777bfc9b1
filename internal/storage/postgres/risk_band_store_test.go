package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

func TestRiskBandStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRiskBandStore(pool)

	date := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	bands := []*domain.RiskBand{
		{Ticker: "PETR4", Date: date, MinRisk: 0.02, MaxRisk: 0.08, Uptrend: true},
		{Ticker: "VALE3", Date: date, MinRisk: 0.03, MaxRisk: 0.09, Crisis: true},
	}
	require.NoError(t, store.InsertBulk(ctx, bands))

	got, err := store.GetByTickerDate(ctx, "PETR4", date)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", got.Ticker)
	assert.InDelta(t, 0.02, got.MinRisk, 0.0001)
	assert.InDelta(t, 0.08, got.MaxRisk, 0.0001)
	assert.True(t, got.Uptrend)
	assert.False(t, got.Crisis)

	got, err = store.GetByTickerDate(ctx, "VALE3", date)
	require.NoError(t, err)
	assert.True(t, got.Crisis)
}

func TestRiskBandStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRiskBandStore(pool)

	date := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := store.GetByTickerDate(context.Background(), "PETR4", date)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRiskBandStore_DuplicateBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRiskBandStore(pool)

	date := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []*domain.RiskBand{
		{Ticker: "PETR4", Date: date, MinRisk: 0.02, MaxRisk: 0.08},
	}))

	err := store.InsertBulk(ctx, []*domain.RiskBand{
		{Ticker: "PETR4", Date: date, MinRisk: 0.01, MaxRisk: 0.05},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestHolidayStore_InsertAndRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolidayStore(pool)

	carnival := time.Date(2019, 3, 5, 0, 0, 0, 0, time.UTC)
	tiradentes := time.Date(2019, 4, 21, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, []time.Time{tiradentes, carnival}))

	got, err := store.GetByRange(ctx,
		time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, carnival.Equal(got[0]))

	err = store.InsertBulk(ctx, []time.Time{carnival})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
