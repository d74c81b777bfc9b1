package reporting

import (
	"context"
	"fmt"
	"time"

	"b3-swing-lab/internal/storage"
)

// Generator produces reports from stored run results.
type Generator struct {
	operationStore storage.OperationStore
	summaryStore   storage.SummaryStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(opStore storage.OperationStore, sumStore storage.SummaryStore) *Generator {
	return &Generator{
		operationStore: opStore,
		summaryStore:   sumStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the report for one strategy run.
func (g *Generator) Generate(ctx context.Context, strategyID string) (*Report, error) {
	summaries, err := g.summaryStore.GetByStrategy(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	operations, err := g.operationStore.GetByStrategy(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load operations: %w", err)
	}

	return &Report{
		GeneratedAt: g.now(),
		StrategyID:  strategyID,
		Summaries:   summaries,
		Operations:  operations,
	}, nil
}
