package strategy

import (
	"context"
	"math"
	"time"

	"b3-swing-lab/internal/domain"
)

// moraesRules is the baseline trend-following rule set. Entry confirmation
// reads the previous business day's snapshot, so a signal is only acted on
// one day after it forms.
type moraesRules struct {
	cfg *Config
}

func newMoraesRules(cfg *Config) *moraesRules {
	return &moraesRules{cfg: cfg}
}

func (r *moraesRules) onParsed(ts *TickerState, bd *BusinessData) {}

func (r *moraesRules) checkEntry(ctx context.Context, day time.Time, ts *TickerState, bd *BusinessData, purchase, stop float64) (bool, float64, error) {
	prev := ts.LastBusinessData
	if prev == nil {
		return false, 0, nil
	}

	if bd.Trend != domain.TrendUptrend {
		return false, 0, nil
	}

	// Previous day's range must straddle the EMA17/EMA72 band, with a
	// tolerance loosening both edges.
	bandLow := math.Min(prev.EMA17, prev.EMA72)
	bandHigh := math.Max(prev.EMA17, prev.EMA72)
	tol := r.cfg.EMATolerance
	if prev.Low > bandLow*(1+tol) {
		return false, 0, nil
	}
	if prev.High < bandHigh*(1-tol) {
		return false, 0, nil
	}

	// Weekly trend confirmation.
	if prev.Close <= prev.EMA72Weekly {
		return false, 0, nil
	}

	// The order must be fillable today.
	if purchase < bd.Low || purchase > bd.High {
		return false, 0, nil
	}

	return true, 0, nil
}

func (r *moraesRules) effectiveRCC(base float64) float64 { return base }

func (r *moraesRules) sizingMultiplier(e *Engine, ts *TickerState) float64 { return 1 }

// priorityScore keeps open operations first (they must see exits before new
// capital is committed elsewhere) and favors tickers that never traded.
func (r *moraesRules) priorityScore(ts *TickerState) float64 {
	switch {
	case ts.OngoingOperation:
		return 2
	case ts.OperationCount == 0:
		return 1
	default:
		return 0
	}
}

func (r *moraesRules) onDayEnd(day time.Time, capitalInUse float64) {}

var _ ruleSet = (*moraesRules)(nil)
