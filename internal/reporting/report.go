package reporting

import (
	"time"

	"b3-swing-lab/internal/domain"
)

// Report is the renderable result of one strategy run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	StrategyID  string

	// Summaries, one per summary row ("ALL" plus any per-ticker rows).
	Summaries []*domain.Summary

	// Operations sorted by start_date ASC, operation_id ASC.
	Operations []*domain.OperationRecord
}
