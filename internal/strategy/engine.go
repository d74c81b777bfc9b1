package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"b3-swing-lab/internal/datagen"
	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/model"
	"b3-swing-lab/internal/observability"
	"b3-swing-lab/internal/operation"
	"b3-swing-lab/internal/stats"
	"b3-swing-lab/internal/storage"
)

// Run errors.
var (
	// ErrInconsistentPeaks is a data integrity failure: a detected local
	// minimum at or above an adjacent local maximum. It aborts the run
	// rather than producing a nonsensical stop loss.
	ErrInconsistentPeaks = errors.New("inconsistent peak ordering: local minimum at or above adjacent local maximum")

	// ErrAlreadyProcessed is returned when ProcessOperations is called twice.
	ErrAlreadyProcessed = errors.New("strategy run already processed")

	// ErrNotProcessed is returned when statistics or persistence are
	// requested before the run completes.
	ErrNotProcessed = errors.New("strategy run not processed yet")
)

// Strategy is the capability surface of one strategy run: simulate, then
// derive statistics, then persist.
type Strategy interface {
	// ProcessOperations walks the business-day sequence forward, advancing
	// every ticker's operation lifecycle and the shared capital.
	ProcessOperations(ctx context.Context) error

	// CalculateStatistics replays the recorded operations against a fresh
	// price stream and derives the performance summary.
	CalculateStatistics(ctx context.Context) (*stats.Report, error)

	// Save persists the operation list and, when computed, the summary.
	Save(ctx context.Context) error
}

// Deps are the external collaborators of a strategy run.
type Deps struct {
	Candles    storage.CandleStore
	Holidays   storage.HolidayStore
	Indexes    storage.IndexStore
	RiskBands  storage.RiskBandStore
	Operations storage.OperationStore
	Summaries  storage.SummaryStore

	// Models maps ticker to its walk-forward classifier schedule
	// (ML variant only).
	Models map[string]*model.Schedule

	// BatchDays overrides the datagen fetch batch size. 0 selects the
	// default.
	BatchDays int
}

// ruleSet is the variant-specific part of the engine: entry acceptance,
// sizing adjustments and daily reprioritization.
type ruleSet interface {
	// onParsed observes every successfully parsed ticker-day.
	onParsed(ts *TickerState, bd *BusinessData)

	// checkEntry decides whether to open a position. It may override the
	// stop loss (return > 0) and must treat per-day data problems as a
	// rejection, not an error.
	checkEntry(ctx context.Context, day time.Time, ts *TickerState, bd *BusinessData, purchase, stop float64) (accept bool, stopOverride float64, err error)

	// effectiveRCC returns the risk capital product to size with.
	effectiveRCC(base float64) float64

	// sizingMultiplier scales the capital committed to this ticker.
	sizingMultiplier(e *Engine, ts *TickerState) float64

	// priorityScore orders tickers for the next day; higher goes first.
	priorityScore(ts *TickerState) float64

	// onDayEnd observes the day's capital-in-use fraction.
	onDayEnd(day time.Time, capitalInUse float64)
}

// Engine is the walk-forward simulation loop shared by all variants.
// Strictly single threaded: capital sizing for a ticker depends on capital
// already committed by tickers processed earlier the same day, so the
// in-order processing is part of the priority mechanism.
type Engine struct {
	cfg   Config
	deps  Deps
	rules ruleSet

	states     []*TickerState
	operations []*operation.Operation

	availableCapital float64

	processed bool
	report    *stats.Report
}

// newEngine wires an engine with its variant rule set.
func newEngine(cfg Config, deps Deps, rules ruleSet) *Engine {
	e := &Engine{
		cfg:              cfg,
		deps:             deps,
		rules:            rules,
		availableCapital: cfg.TotalCapital,
	}
	for _, tw := range cfg.Tickers {
		e.states = append(e.states, newTickerState(tw, cfg.Variant))
	}
	return e
}

// AvailableCapital returns the uncommitted capital.
func (e *Engine) AvailableCapital() float64 { return e.availableCapital }

// Operations returns the archived operations (closed plus trailing open).
func (e *Engine) Operations() []*operation.Operation { return e.operations }

// ProcessOperations implements Strategy.
func (e *Engine) ProcessOperations(ctx context.Context) error {
	if e.processed {
		return ErrAlreadyProcessed
	}

	start, end := e.cfg.span()
	gen, err := datagen.New(ctx, e.deps.Candles, e.deps.Holidays, e.cfg.tickerNames(), start, end, e.deps.BatchDays)
	if err != nil {
		return fmt.Errorf("build day feed: %w", err)
	}

	for {
		feed, err := gen.Next(ctx)
		if errors.Is(err, datagen.ErrExhausted) {
			break
		}
		if err != nil {
			return err
		}

		daily := indexDaily(feed.Daily)
		weekly := indexWeekly(feed.Weekly)

		for _, ts := range e.states {
			if err := e.processTicker(ctx, feed.Date, ts, daily, weekly); err != nil {
				return err
			}
		}

		inUse := e.capitalInUse()
		e.rules.onDayEnd(feed.Date, inUse)
		e.reorder()

		observability.RecordDayProcessed()
		observability.UpdateCapital(e.availableCapital, inUse)
	}

	// Trailing open operations carry over into the archive as OPEN.
	for _, ts := range e.states {
		if ts.Operation != nil {
			e.operations = append(e.operations, ts.Operation)
			ts.clearOperation()
		}
	}

	e.processed = true
	return nil
}

// processTicker advances one ticker through one day.
func (e *Engine) processTicker(ctx context.Context, day time.Time, ts *TickerState, daily map[string]*domain.DailyCandle, weekly map[string]*domain.WeeklyCandle) error {
	ts.DaysAfterSuccessfulOperation++
	ts.DaysAfterFailureOperation++

	bd := parseBusinessData(day, ts.Ticker, daily, weekly)
	if bd == nil {
		// Missing or ambiguous data: skip this ticker today only.
		if ts.OngoingOperation {
			ts.DaysOnOperation++
		}
		return nil
	}

	if err := checkPeakIntegrity(ts, bd); err != nil {
		return err
	}

	e.rules.onParsed(ts, bd)

	if ts.OngoingOperation {
		ts.DaysOnOperation++
		if err := e.checkExits(day, ts, bd); err != nil {
			return err
		}
	} else if err := e.tryEntry(ctx, day, ts, bd); err != nil {
		return err
	}

	ts.LastBusinessData = bd
	return nil
}

// parseBusinessData assembles one ticker's day record. Returns nil when any
// required field is missing or the day's rows are ambiguous.
func parseBusinessData(day time.Time, ticker string, daily map[string]*domain.DailyCandle, weekly map[string]*domain.WeeklyCandle) *BusinessData {
	c, ok := daily[ticker]
	if !ok || c == nil {
		return nil
	}
	w, ok := weekly[ticker]
	if !ok || w == nil {
		return nil
	}

	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return nil
	}
	if c.EMA17 <= 0 || c.EMA72 <= 0 || w.EMA72 <= 0 {
		return nil
	}

	return &BusinessData{
		Ticker:         ticker,
		Date:           day,
		Open:           c.Open,
		High:           c.High,
		Low:            c.Low,
		Close:          c.Close,
		EMA17:          c.EMA17,
		EMA72:          c.EMA72,
		EMA72Weekly:    w.EMA72,
		Trend:          c.Trend,
		Peak:           c.Peak,
		TargetBuyPrice: c.TargetBuyPrice,
		StopLoss:       c.StopLoss,
	}
}

// checkPeakIntegrity classifies each incoming peak as support or resistance
// and aborts when a minimum sits at or above an adjacent maximum.
func checkPeakIntegrity(ts *TickerState, bd *BusinessData) error {
	if bd.Peak == 0 {
		return nil
	}

	kind := peakMin
	if bd.Peak >= (bd.High+bd.Low)/2 {
		kind = peakMax
	}

	if ts.lastPeakKind != peakNone && ts.lastPeakKind != kind {
		min, max := bd.Peak, ts.lastPeak
		if kind == peakMax {
			min, max = ts.lastPeak, bd.Peak
		}
		if min >= max {
			return fmt.Errorf("%w: ticker %s on %s (min %.2f, max %.2f)",
				ErrInconsistentPeaks, ts.Ticker, bd.Date.Format("2006-01-02"), min, max)
		}
	}

	ts.lastPeak = bd.Peak
	ts.lastPeakKind = kind
	return nil
}

// tryEntry runs the entry pipeline for a ticker with no open operation.
// Every rejection is silent: no action for this ticker today.
func (e *Engine) tryEntry(ctx context.Context, day time.Time, ts *TickerState, bd *BusinessData) error {
	if !ts.inWindow(day) {
		return nil
	}
	if ts.DaysAfterSuccessfulOperation <= e.cfg.MinDaysAfterSuccessfulOperation {
		return nil
	}
	if ts.DaysAfterFailureOperation <= e.cfg.MinDaysAfterFailureOperation {
		return nil
	}
	if bd.TargetBuyPrice <= 0 || bd.StopLoss <= 0 {
		return nil
	}

	purchase := round2(bd.TargetBuyPrice * (1 + e.cfg.PurchaseMargin))
	stop := round2(bd.StopLoss * (1 - e.cfg.StopMargin))
	if purchase <= 0 {
		return nil
	}
	stop = clampRisk(purchase, stop, e.cfg.MinRiskPerTrade, e.cfg.MaxRiskPerTrade)

	accept, stopOverride, err := e.rules.checkEntry(ctx, day, ts, bd, purchase, stop)
	if err != nil {
		return err
	}
	if !accept {
		return nil
	}
	if stopOverride > 0 {
		stop = stopOverride
	}

	riskFrac := (purchase - stop) / purchase
	if riskFrac <= 0 {
		return nil
	}

	rcc := e.rules.effectiveRCC(e.cfg.RiskCapitalProduct)
	mult := ts.CapitalMultiplier * e.rules.sizingMultiplier(e, ts)

	capitalToCommit := rcc * e.availableCapital * mult / riskFrac
	volume := e.lotFloor(int64(capitalToCommit / purchase))

	// Full sizing beyond available capital: size down to what fits.
	if float64(volume)*purchase > e.availableCapital {
		volume = e.lotFloor(int64(e.availableCapital / purchase))
	}
	if volume < e.cfg.MinOrderVolume || volume <= 0 {
		return nil
	}

	riskDist := purchase - stop
	target := round2(purchase + riskDist*e.cfg.GainLossRatio)
	partial := round2(purchase + riskDist)

	op := operation.New(ts.Ticker, purchase, target, stop, partial)
	if !op.AddPurchase(purchase, volume, day) {
		return nil
	}

	cost := round2(purchase * float64(volume))
	e.availableCapital = round2(e.availableCapital - cost)

	ts.Operation = op
	ts.OngoingOperation = true
	ts.StaircaseStep = riskDist
	ts.DaysOnOperation = 0
	ts.OperationCount++
	ts.LoanedCapital += cost

	observability.RecordOperationOpened()
	return nil
}

// checkExits runs the fixed-order exit pipeline against today's price range.
// A threshold the open price gapped past realizes at the open price; a
// threshold inside [low, high] realizes at the threshold itself.
func (e *Engine) checkExits(day time.Time, ts *TickerState, bd *BusinessData) error {
	op := ts.Operation

	// 1. Stop loss.
	if op.State() == operation.Open {
		stop := op.StopLoss()
		vol := op.RemainingVolume()
		switch {
		case bd.Open < stop:
			if err := e.sell(op, bd.Open, vol, day, true, false, false); err != nil {
				return err
			}
		case stop >= bd.Low && stop <= bd.High:
			if err := e.sell(op, stop, vol, day, true, false, false); err != nil {
				return err
			}
		}
		if op.State() == operation.Closed {
			ts.DaysAfterFailureOperation = 0
		}
	}

	// 2. Partial sale, at most once per operation.
	if op.State() == operation.Open && e.cfg.PartialSale && !op.PartialSaleTaken() {
		price := op.PartialSalePrice()
		half := (op.TotalPurchaseVolume() + 1) / 2
		if rem := op.RemainingVolume(); half > rem {
			half = rem
		}
		switch {
		case bd.Open > price:
			if err := e.sell(op, bd.Open, half, day, false, true, false); err != nil {
				return err
			}
		case price >= bd.Low && price <= bd.High:
			if err := e.sell(op, price, half, day, false, true, false); err != nil {
				return err
			}
		}
	}

	// 3. Target sale.
	if op.State() == operation.Open {
		target := op.TargetSalePrice()
		vol := op.RemainingVolume()
		switch {
		case bd.Open > target:
			if err := e.sell(op, bd.Open, vol, day, false, false, false); err != nil {
				return err
			}
		case target >= bd.Low && target <= bd.High:
			if err := e.sell(op, target, vol, day, false, false, false); err != nil {
				return err
			}
		}
		if op.State() == operation.Closed {
			ts.DaysAfterSuccessfulOperation = 0
		}
	}

	// 4. Timeout at the close price.
	if op.State() == operation.Open && ts.DaysOnOperation > e.cfg.MaxDaysPerOperation {
		if err := e.sell(op, bd.Close, op.RemainingVolume(), day, false, false, true); err != nil {
			return err
		}
		if op.State() == operation.Closed {
			ts.DaysAfterFailureOperation = 0
		}
	}

	// 5. Staircase stop ratchet. Monotonic, never reverts.
	if op.State() == operation.Open && e.cfg.StopType == StopStaircase {
		base := op.Purchases()[0].Price
		step := ts.StaircaseStep
		switch {
		case ts.StaircaseMark < 2 && bd.Close > base+2*step:
			op.SetStopLoss(round2(base + step/2))
			ts.StaircaseMark = 2
		case ts.StaircaseMark < 1 && bd.Close > base+step:
			op.SetStopLoss(base)
			ts.StaircaseMark = 1
		}
	}

	if op.State() == operation.Closed {
		e.archive(ts)
	}
	return nil
}

// sell executes a sale leg and credits capital immediately.
func (e *Engine) sell(op *operation.Operation, price float64, volume int64, day time.Time, stopLoss, partial, timeout bool) error {
	ok, err := op.AddSale(price, volume, day, stopLoss, partial, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	e.availableCapital = round2(e.availableCapital + round2(price*float64(volume)))
	if partial {
		observability.RecordPartialSale()
	}
	return nil
}

// archive moves a closed operation into the run's operation list and resets
// the ticker cursor for re-entry.
func (e *Engine) archive(ts *TickerState) {
	op := ts.Operation
	ts.Profit = round2(ts.Profit + op.Profit())
	if op.Successful() {
		ts.SuccessCount++
	}
	observability.RecordOperationClosed(closeReason(op))
	e.operations = append(e.operations, op)
	ts.clearOperation()
}

// closeReason labels a closed operation by its final sale leg.
func closeReason(op *operation.Operation) string {
	sales := op.Sales()
	if len(sales) == 0 {
		return "unknown"
	}
	last := sales[len(sales)-1]
	switch {
	case last.StopLoss:
		return "stop_loss"
	case last.Timeout:
		return "timeout"
	default:
		return "target"
	}
}

// capitalInUse returns the fraction of total capital committed at cost basis.
func (e *Engine) capitalInUse() float64 {
	var committed float64
	for _, ts := range e.states {
		op := ts.Operation
		if op == nil || op.TotalPurchaseVolume() == 0 {
			continue
		}
		avgCost := op.TotalPurchaseCapital() / float64(op.TotalPurchaseVolume())
		committed += avgCost * float64(op.RemainingVolume())
	}
	if e.cfg.TotalCapital <= 0 {
		return 0
	}
	return committed / e.cfg.TotalCapital
}

// reorder re-sorts ticker states by priority for the next day's capital
// allocation. The sort is stable so equal-priority tickers keep their order.
func (e *Engine) reorder() {
	sort.SliceStable(e.states, func(i, j int) bool {
		return e.rules.priorityScore(e.states[i]) > e.rules.priorityScore(e.states[j])
	})
}

// CalculateStatistics implements Strategy.
func (e *Engine) CalculateStatistics(ctx context.Context) (*stats.Report, error) {
	if !e.processed {
		return nil, ErrNotProcessed
	}

	start, end := e.cfg.span()
	report, err := stats.Compute(ctx, e.deps.Candles, e.deps.Holidays, e.deps.Indexes, stats.Input{
		StrategyID:   e.cfg.StrategyID,
		TotalCapital: e.cfg.TotalCapital,
		Tickers:      e.cfg.tickerNames(),
		Start:        start,
		End:          end,
		Operations:   e.records(),
	})
	if err != nil {
		return nil, err
	}

	e.report = report
	return report, nil
}

// Save implements Strategy.
func (e *Engine) Save(ctx context.Context) error {
	if !e.processed {
		return ErrNotProcessed
	}

	if recs := e.records(); len(recs) > 0 {
		if err := e.deps.Operations.InsertBulk(ctx, recs); err != nil {
			return fmt.Errorf("persist operations: %w", err)
		}
	}

	if e.report != nil {
		if err := e.deps.Summaries.Insert(ctx, e.report.Summary); err != nil {
			return fmt.Errorf("persist summary: %w", err)
		}
	}

	return nil
}

// records converts archived operations to their persistence shape.
func (e *Engine) records() []*domain.OperationRecord {
	recs := make([]*domain.OperationRecord, 0, len(e.operations))
	for _, op := range e.operations {
		recs = append(recs, op.Record(e.cfg.StrategyID))
	}
	return recs
}

// lotFloor floors a volume to the configured lot granularity.
func (e *Engine) lotFloor(volume int64) int64 {
	lot := e.cfg.MinOrderVolume
	if lot <= 1 {
		return volume
	}
	return volume - volume%lot
}

// clampRisk moves the stop loss (never the purchase price) so the implied
// risk fraction lands in [minRisk, maxRisk].
func clampRisk(purchase, stop, minRisk, maxRisk float64) float64 {
	risk := (purchase - stop) / purchase
	if risk > maxRisk {
		return round2(purchase * (1 - maxRisk))
	}
	if risk < minRisk {
		return round2(purchase * (1 - minRisk))
	}
	return stop
}

// indexDaily maps ticker to its single daily row. Tickers with multiple
// rows for the day are dropped as ambiguous.
func indexDaily(rows []*domain.DailyCandle) map[string]*domain.DailyCandle {
	out := make(map[string]*domain.DailyCandle, len(rows))
	seen := make(map[string]int, len(rows))
	for _, c := range rows {
		seen[c.Ticker]++
		if seen[c.Ticker] == 1 {
			out[c.Ticker] = c
		} else {
			delete(out, c.Ticker)
		}
	}
	return out
}

// indexWeekly maps ticker to its causal weekly row.
func indexWeekly(rows []*domain.WeeklyCandle) map[string]*domain.WeeklyCandle {
	out := make(map[string]*domain.WeeklyCandle, len(rows))
	for _, c := range rows {
		out[c.Ticker] = c
	}
	return out
}

// round2 rounds a currency amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
