package postgres

import (
	"context"
	"fmt"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if the (strategy_id, ticker)
// summary exists.
func (s *SummaryStore) Insert(ctx context.Context, sum *domain.Summary) error {
	query := `
		INSERT INTO strategy_summaries (
			strategy_id, ticker, start_date, end_date,
			total_capital, profit,
			max_used_capital, avg_used_capital,
			volatility, annualized_volatility,
			sharpe_ratio, sortino_ratio,
			yield, annualized_yield,
			ibov_yield, annualized_ibov_yield,
			cdi_yield, annualized_cdi_yield,
			baseline_yield, annualized_baseline_yield,
			pearson_ibov, spearman_ibov,
			pearson_baseline, spearman_baseline,
			operation_count, successful_count
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8,
			$9, $10,
			$11, $12,
			$13, $14,
			$15, $16,
			$17, $18,
			$19, $20,
			$21, $22,
			$23, $24,
			$25, $26
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sum.StrategyID, sum.Ticker, sum.StartDate, sum.EndDate,
		sum.TotalCapital, sum.Profit,
		sum.MaxUsedCapital, sum.AvgUsedCapital,
		sum.Volatility, sum.AnnualizedVolatility,
		sum.SharpeRatio, sum.SortinoRatio,
		sum.Yield, sum.AnnualizedYield,
		sum.IBOVYield, sum.AnnualizedIBOVYield,
		sum.CDIYield, sum.AnnualizedCDIYield,
		sum.BaselineYield, sum.AnnualizedBaselineYield,
		sum.PearsonIBOV, sum.SpearmanIBOV,
		sum.PearsonBaseline, sum.SpearmanBaseline,
		sum.OperationCount, sum.SuccessfulCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// GetByStrategy retrieves all summaries for a strategy run.
func (s *SummaryStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.Summary, error) {
	query := `
		SELECT
			strategy_id, ticker, start_date, end_date,
			total_capital, profit,
			max_used_capital, avg_used_capital,
			volatility, annualized_volatility,
			sharpe_ratio, sortino_ratio,
			yield, annualized_yield,
			ibov_yield, annualized_ibov_yield,
			cdi_yield, annualized_cdi_yield,
			baseline_yield, annualized_baseline_yield,
			pearson_ibov, spearman_ibov,
			pearson_baseline, spearman_baseline,
			operation_count, successful_count
		FROM strategy_summaries
		WHERE strategy_id = $1
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get summaries by strategy: %w", err)
	}
	defer rows.Close()

	var sums []*domain.Summary
	for rows.Next() {
		var sum domain.Summary

		err := rows.Scan(
			&sum.StrategyID, &sum.Ticker, &sum.StartDate, &sum.EndDate,
			&sum.TotalCapital, &sum.Profit,
			&sum.MaxUsedCapital, &sum.AvgUsedCapital,
			&sum.Volatility, &sum.AnnualizedVolatility,
			&sum.SharpeRatio, &sum.SortinoRatio,
			&sum.Yield, &sum.AnnualizedYield,
			&sum.IBOVYield, &sum.AnnualizedIBOVYield,
			&sum.CDIYield, &sum.AnnualizedCDIYield,
			&sum.BaselineYield, &sum.AnnualizedBaselineYield,
			&sum.PearsonIBOV, &sum.SpearmanIBOV,
			&sum.PearsonBaseline, &sum.SpearmanBaseline,
			&sum.OperationCount, &sum.SuccessfulCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		sums = append(sums, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return sums, nil
}
