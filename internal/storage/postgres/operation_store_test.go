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

func createTestOperation(operationID, ticker, strategyID string) *domain.OperationRecord {
	start := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 6, 0, 0, 0, 0, time.UTC)

	return &domain.OperationRecord{
		OperationID:         operationID,
		Ticker:              ticker,
		StrategyID:          strategyID,
		State:               domain.OperationClose,
		StartDate:           ptr(start),
		EndDate:             ptr(end),
		TargetPurchasePrice: 100.00,
		TargetSalePrice:     110.00,
		StopLoss:            95.00,
		PartialSalePrice:    105.00,
		Profit:              -5000.00,
		Yield:               -0.05,
		Legs: []*domain.OperationLeg{
			{OperationID: operationID, Seq: 0, Side: domain.LegBuy, Price: 100.00, Volume: 1000, Date: start},
			{OperationID: operationID, Seq: 1, Side: domain.LegSell, Price: 95.00, Volume: 1000, Date: end, StopLoss: true},
		},
	}
}

func TestOperationStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOperationStore(pool)

	op := createTestOperation("op-001", "PETR4", "run-1")

	err := store.Insert(ctx, op)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "op-001")
	require.NoError(t, err)

	assert.Equal(t, op.OperationID, retrieved.OperationID)
	assert.Equal(t, op.Ticker, retrieved.Ticker)
	assert.Equal(t, op.StrategyID, retrieved.StrategyID)
	assert.Equal(t, op.State, retrieved.State)
	require.NotNil(t, retrieved.StartDate)
	assert.True(t, op.StartDate.Equal(*retrieved.StartDate))
	require.NotNil(t, retrieved.EndDate)
	assert.True(t, op.EndDate.Equal(*retrieved.EndDate))
	assert.InDelta(t, op.TargetPurchasePrice, retrieved.TargetPurchasePrice, 0.0001)
	assert.InDelta(t, op.StopLoss, retrieved.StopLoss, 0.0001)
	assert.InDelta(t, op.Profit, retrieved.Profit, 0.0001)
	assert.InDelta(t, op.Yield, retrieved.Yield, 0.0001)

	require.Len(t, retrieved.Legs, 2)
	assert.Equal(t, domain.LegBuy, retrieved.Legs[0].Side)
	assert.Equal(t, int64(1000), retrieved.Legs[0].Volume)
	assert.Equal(t, domain.LegSell, retrieved.Legs[1].Side)
	assert.True(t, retrieved.Legs[1].StopLoss)
	assert.False(t, retrieved.Legs[1].PartialSale)
}

func TestOperationStore_DuplicateInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOperationStore(pool)

	op := createTestOperation("op-dup", "PETR4", "run-1")
	require.NoError(t, store.Insert(ctx, op))

	err := store.Insert(ctx, createTestOperation("op-dup", "VALE3", "run-2"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOperationStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)

	_, err := store.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOperationStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOperationStore(pool)

	require.NoError(t, store.Insert(ctx, createTestOperation("op-existing", "PETR4", "run-1")))

	// One duplicate in the batch must fail the entire batch.
	batch := []*domain.OperationRecord{
		createTestOperation("op-new", "VALE3", "run-1"),
		createTestOperation("op-existing", "ITUB4", "run-1"),
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "op-new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOperationStore_GetByStrategy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOperationStore(pool)

	op1 := createTestOperation("op-a", "PETR4", "run-1")
	op2 := createTestOperation("op-b", "VALE3", "run-1")
	later := time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)
	op2.StartDate = ptr(later)
	op2.Legs[0].Date = later
	other := createTestOperation("op-c", "PETR4", "run-2")

	require.NoError(t, store.InsertBulk(ctx, []*domain.OperationRecord{op2, op1, other}))

	recs, err := store.GetByStrategy(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Ordered by start_date ASC.
	assert.Equal(t, "op-a", recs[0].OperationID)
	assert.Equal(t, "op-b", recs[1].OperationID)
	assert.Len(t, recs[0].Legs, 2)
}
