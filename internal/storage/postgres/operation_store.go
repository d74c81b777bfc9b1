package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// OperationStore implements storage.OperationStore using PostgreSQL.
// Operations and their legs live in two tables joined by operation_id.
type OperationStore struct {
	pool *Pool
}

// NewOperationStore creates a new OperationStore.
func NewOperationStore(pool *Pool) *OperationStore {
	return &OperationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OperationStore = (*OperationStore)(nil)

const insertOperationQuery = `
	INSERT INTO operations (
		operation_id, ticker, strategy_id, state,
		start_date, end_date,
		target_purchase_price, target_sale_price, stop_loss, partial_sale_price,
		profit, yield
	) VALUES (
		$1, $2, $3, $4,
		$5, $6,
		$7, $8, $9, $10,
		$11, $12
	)
`

const insertLegQuery = `
	INSERT INTO operation_legs (
		operation_id, seq, side, price, volume, executed_at,
		stop_loss, partial_sale, timeout
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9
	)
`

// Insert adds an operation with its legs. Returns ErrDuplicateKey if
// operation_id exists.
func (s *OperationStore) Insert(ctx context.Context, rec *domain.OperationRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertOperationTx(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertBulk adds multiple operations atomically. Fails entire batch on any
// duplicate.
func (s *OperationStore) InsertBulk(ctx context.Context, recs []*domain.OperationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		if err := insertOperationTx(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertOperationTx(ctx context.Context, tx pgx.Tx, rec *domain.OperationRecord) error {
	_, err := tx.Exec(ctx, insertOperationQuery,
		rec.OperationID, rec.Ticker, rec.StrategyID, rec.State,
		rec.StartDate, rec.EndDate,
		rec.TargetPurchasePrice, rec.TargetSalePrice, rec.StopLoss, rec.PartialSalePrice,
		rec.Profit, rec.Yield,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert operation: %w", err)
	}

	for _, leg := range rec.Legs {
		_, err := tx.Exec(ctx, insertLegQuery,
			leg.OperationID, leg.Seq, leg.Side, leg.Price, leg.Volume, leg.Date,
			leg.StopLoss, leg.PartialSale, leg.Timeout,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert operation leg: %w", err)
		}
	}
	return nil
}

const selectOperationColumns = `
	operation_id, ticker, strategy_id, state,
	start_date, end_date,
	target_purchase_price, target_sale_price, stop_loss, partial_sale_price,
	profit, yield
`

// GetByID retrieves an operation by its ID. Returns ErrNotFound if not exists.
func (s *OperationStore) GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error) {
	query := `SELECT ` + selectOperationColumns + ` FROM operations WHERE operation_id = $1`

	row := s.pool.QueryRow(ctx, query, operationID)
	rec, err := scanOperation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get operation by id: %w", err)
	}

	if err := s.attachLegs(ctx, []*domain.OperationRecord{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByStrategy retrieves all operations recorded by a strategy run, ordered
// by start_date ASC, operation_id ASC.
func (s *OperationStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.OperationRecord, error) {
	query := `
		SELECT ` + selectOperationColumns + `
		FROM operations
		WHERE strategy_id = $1
		ORDER BY start_date ASC, operation_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get operations by strategy: %w", err)
	}
	defer rows.Close()

	recs, err := scanOperations(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachLegs(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// attachLegs loads and attaches the legs of every given operation.
func (s *OperationStore) attachLegs(ctx context.Context, recs []*domain.OperationRecord) error {
	if len(recs) == 0 {
		return nil
	}

	byID := make(map[string]*domain.OperationRecord, len(recs))
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		byID[rec.OperationID] = rec
		ids = append(ids, rec.OperationID)
	}

	query := `
		SELECT operation_id, seq, side, price, volume, executed_at,
		       stop_loss, partial_sale, timeout
		FROM operation_legs
		WHERE operation_id = ANY($1)
		ORDER BY operation_id ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("get operation legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg domain.OperationLeg
		err := rows.Scan(
			&leg.OperationID, &leg.Seq, &leg.Side, &leg.Price, &leg.Volume, &leg.Date,
			&leg.StopLoss, &leg.PartialSale, &leg.Timeout,
		)
		if err != nil {
			return fmt.Errorf("scan operation leg row: %w", err)
		}
		if rec, ok := byID[leg.OperationID]; ok {
			rec.Legs = append(rec.Legs, &leg)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate operation leg rows: %w", err)
	}
	return nil
}

// scanOperation scans a single row into an OperationRecord.
func scanOperation(row pgx.Row) (*domain.OperationRecord, error) {
	var rec domain.OperationRecord

	err := row.Scan(
		&rec.OperationID, &rec.Ticker, &rec.StrategyID, &rec.State,
		&rec.StartDate, &rec.EndDate,
		&rec.TargetPurchasePrice, &rec.TargetSalePrice, &rec.StopLoss, &rec.PartialSalePrice,
		&rec.Profit, &rec.Yield,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// scanOperations scans multiple rows into a slice of OperationRecord.
func scanOperations(rows pgx.Rows) ([]*domain.OperationRecord, error) {
	var recs []*domain.OperationRecord

	for rows.Next() {
		var rec domain.OperationRecord

		err := rows.Scan(
			&rec.OperationID, &rec.Ticker, &rec.StrategyID, &rec.State,
			&rec.StartDate, &rec.EndDate,
			&rec.TargetPurchasePrice, &rec.TargetSalePrice, &rec.StopLoss, &rec.PartialSalePrice,
			&rec.Profit, &rec.Yield,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation row: %w", err)
		}

		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation rows: %w", err)
	}

	return recs, nil
}
