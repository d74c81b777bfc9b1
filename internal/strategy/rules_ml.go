package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/model"
	"b3-swing-lab/internal/stats"
	"b3-swing-lab/internal/storage"
)

// openOperationPriority keeps tickers with open operations ahead of any
// entry candidate in the daily reordering.
const openOperationPriority = 10

// mlRules derives entries from a per-ticker classifier over rank-correlation
// features, gated by a daily risk band table, and sizes positions with a
// proportional controller on capital usage.
type mlRules struct {
	cfg    *Config
	bands  storage.RiskBandStore
	models map[string]*model.Schedule

	// usage is the rolling capital-in-use history feeding the controller.
	usage  []float64
	effRCC float64
}

func newMLRules(cfg *Config, bands storage.RiskBandStore, models map[string]*model.Schedule) *mlRules {
	return &mlRules{
		cfg:    cfg,
		bands:  bands,
		models: models,
		effRCC: cfg.RiskCapitalProduct,
	}
}

func (r *mlRules) onParsed(ts *TickerState, bd *BusinessData) {
	ts.ML.MidPrices = append(ts.ML.MidPrices, (bd.High+bd.Low)/2)
}

func (r *mlRules) checkEntry(ctx context.Context, day time.Time, ts *TickerState, bd *BusinessData, purchase, stop float64) (bool, float64, error) {
	band, err := r.bands.GetByTickerDate(ctx, ts.Ticker, day)
	if errors.Is(err, storage.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("risk band lookup for %s: %w", ts.Ticker, err)
	}

	if r.cfg.ML.CrisisHalt && band.Crisis {
		return false, 0, nil
	}
	if r.cfg.ML.DowntrendHalt && band.Downtrend {
		return false, 0, nil
	}

	// A band whose ceiling sits below the configured floor cannot produce
	// a valid stop for the day.
	if band.MaxRisk < r.cfg.MinRiskPerTrade {
		return false, 0, nil
	}

	risk := band.MaxRisk
	if risk > r.cfg.MaxRiskPerTrade {
		risk = r.cfg.MaxRiskPerTrade
	}

	features, ok := r.features(ts, risk)
	if !ok {
		return false, 0, nil
	}

	sched := r.models[ts.Ticker]
	if sched == nil {
		return false, 0, nil
	}
	clf := sched.ActiveAt(day)
	if clf == nil {
		return false, 0, nil
	}

	class, err := clf.Predict(features)
	if err != nil {
		return false, 0, fmt.Errorf("predict for %s: %w", ts.Ticker, err)
	}
	if class != 1 {
		return false, 0, nil
	}

	// The band risk replaces the margin-derived stop.
	return true, round2(purchase * (1 - risk)), nil
}

// features builds the classifier input vector: the day's risk, the smoothed
// mid-price derivative, and one Spearman rank correlation per lookback.
// Returns false until enough history has accumulated.
func (r *mlRules) features(ts *TickerState, risk float64) ([]float64, bool) {
	mids := ts.ML.MidPrices

	maxLookback := 0
	for _, lb := range r.cfg.ML.Lookbacks {
		if lb > maxLookback {
			maxLookback = lb
		}
	}
	if len(mids) < r.cfg.ML.SmoothingWindow+maxLookback+1 {
		return nil, false
	}

	smoothed := talib.Ema(mids, r.cfg.ML.SmoothingWindow)
	n := len(smoothed)
	if smoothed[n-2] == 0 {
		return nil, false
	}

	features := make([]float64, 0, 2+len(r.cfg.ML.Lookbacks))
	features = append(features, risk)
	features = append(features, (smoothed[n-1]-smoothed[n-2])/smoothed[n-2])

	for _, lb := range r.cfg.ML.Lookbacks {
		window := smoothed[n-lb:]
		idx := make([]float64, lb)
		for i := range idx {
			idx[i] = float64(i)
		}
		features = append(features, stats.Spearman(idx, window))
	}

	return features, true
}

func (r *mlRules) effectiveRCC(base float64) float64 { return r.effRCC }

// sizingMultiplier compensates sizing across the universe: tickers that
// trade less often than average get proportionally larger positions, and
// tickers that have accumulated profits get trimmed back toward the pack.
func (r *mlRules) sizingMultiplier(e *Engine, ts *TickerState) float64 {
	mult := 1.0

	if r.cfg.ML.FrequencyCompensation {
		total := 0
		for _, s := range e.states {
			total += s.OperationCount
		}
		avg := float64(total) / float64(len(e.states))
		mult *= (avg + 1) / (float64(ts.OperationCount) + 1)
	}

	if r.cfg.ML.ProfitCompensation && e.cfg.TotalCapital > 0 && ts.Profit > 0 {
		mult *= 1 / (1 + ts.Profit/e.cfg.TotalCapital)
	}

	return mult
}

func (r *mlRules) priorityScore(ts *TickerState) float64 {
	score := 0.0
	if ts.OngoingOperation {
		score += openOperationPriority
	}
	if r.cfg.ML.UptrendPriorityBonus && ts.LastBusinessData != nil && ts.LastBusinessData.Trend == domain.TrendUptrend {
		score++
	}
	return score
}

// onDayEnd runs the proportional controller: a usage shortfall against the
// target raises the effective risk capital product, an overshoot lowers it,
// clamped to the configured range.
func (r *mlRules) onDayEnd(day time.Time, capitalInUse float64) {
	r.usage = append(r.usage, capitalInUse)
	if len(r.usage) > r.cfg.ML.CapitalUsageWindow {
		r.usage = r.usage[len(r.usage)-r.cfg.ML.CapitalUsageWindow:]
	}

	var sum float64
	for _, u := range r.usage {
		sum += u
	}
	avg := sum / float64(len(r.usage))

	rcc := r.cfg.RiskCapitalProduct * (1 + r.cfg.ML.ControllerGain*(r.cfg.ML.TargetCapitalUsage-avg))
	if rcc < r.cfg.ML.MinRCC {
		rcc = r.cfg.ML.MinRCC
	}
	if rcc > r.cfg.ML.MaxRCC {
		rcc = r.cfg.ML.MaxRCC
	}
	r.effRCC = rcc
}

var _ ruleSet = (*mlRules)(nil)
