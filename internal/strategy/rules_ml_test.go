package strategy

import (
	"context"
	"testing"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/model"
	"b3-swing-lab/internal/operation"
	"b3-swing-lab/internal/storage/memory"
)

func alwaysAcceptSchedule(t *testing.T, featureCount int) *model.Schedule {
	t.Helper()
	clf := &model.LinearClassifier{Weights: make([]float64, featureCount), Bias: 10}
	sched, err := model.NewSchedule([]model.Window{{
		ValidUntil: day(2030, time.January, 1),
		Model:      clf,
	}})
	if err != nil {
		t.Fatal(err)
	}
	return sched
}

func mlConfig(ticker string, start, end time.Time) Config {
	cfg := baseConfig(ticker, start, end)
	cfg.Variant = VariantMLDerivation
	cfg.ML = MLConfig{
		Lookbacks:          []int{5},
		SmoothingWindow:    3,
		CrisisHalt:         true,
		DowntrendHalt:      true,
		ControllerGain:     1,
		TargetCapitalUsage: 0.5,
		CapitalUsageWindow: 10,
		MinRCC:             0.1,
		MaxRCC:             1.0,
	}
	return cfg
}

// mlFixtureRules builds an mlRules wired to a seeded band store and an
// always-accepting classifier, plus a ticker state with enough mid-price
// history for the feature vector (smoothing 3 + lookback 5 + 1 = 9 days).
func mlFixtureRules(t *testing.T, band *domain.RiskBand) (*mlRules, *TickerState) {
	t.Helper()

	bands := memory.NewRiskBandStore()
	if band != nil {
		if err := bands.InsertBulk(context.Background(), []*domain.RiskBand{band}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	rules := newMLRules(&cfg, bands, map[string]*model.Schedule{
		"TEST1": alwaysAcceptSchedule(t, 3),
	})

	ts := newTickerState(TickerWindow{Ticker: "TEST1"}, VariantMLDerivation)
	for i := 0; i < 10; i++ {
		ts.ML.MidPrices = append(ts.ML.MidPrices, 100+float64(i))
	}

	return rules, ts
}

func TestMLRules_AcceptOverridesStop(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.08, Uptrend: true,
	})

	accept, stop, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil {
		t.Fatalf("checkEntry failed: %v", err)
	}
	if !accept {
		t.Fatal("expected acceptance")
	}
	// The band risk replaces the margin stop: 100 * (1 - 0.08).
	if !almostEqual(stop, 92.00, 1e-9) {
		t.Errorf("stop override = %v, want 92.00", stop)
	}
}

func TestMLRules_BandCapped(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.50,
	})

	accept, stop, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil || !accept {
		t.Fatalf("checkEntry = %v/%v", accept, err)
	}
	// Band ceiling above the configured 0.10 maximum is capped there.
	if !almostEqual(stop, 90.00, 1e-9) {
		t.Errorf("stop override = %v, want 90.00", stop)
	}
}

func TestMLRules_MissingBandRejects(t *testing.T) {
	rules, ts := mlFixtureRules(t, nil)

	accept, _, err := rules.checkEntry(context.Background(), day(2019, time.March, 15), ts, nil, 100, 95)
	if err != nil {
		t.Fatalf("missing band must reject silently, got error %v", err)
	}
	if accept {
		t.Error("missing band must reject")
	}
}

func TestMLRules_CrisisHalt(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.08, Crisis: true,
	})

	accept, _, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil || accept {
		t.Errorf("crisis day must reject: accept=%v err=%v", accept, err)
	}
}

func TestMLRules_DowntrendHalt(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.08, Downtrend: true,
	})

	accept, _, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil || accept {
		t.Errorf("downtrend day must reject: accept=%v err=%v", accept, err)
	}
}

func TestMLRules_BandBelowRiskFloorRejects(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.001, MaxRisk: 0.005,
	})

	accept, _, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil || accept {
		t.Errorf("band ceiling below the configured floor must reject: accept=%v err=%v", accept, err)
	}
}

func TestMLRules_InsufficientHistoryRejects(t *testing.T) {
	d := day(2019, time.March, 15)
	rules, ts := mlFixtureRules(t, &domain.RiskBand{
		Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.08,
	})
	ts.ML.MidPrices = ts.ML.MidPrices[:5] // below smoothing + lookback + 1

	accept, _, err := rules.checkEntry(context.Background(), d, ts, nil, 100, 95)
	if err != nil || accept {
		t.Errorf("short history must reject: accept=%v err=%v", accept, err)
	}
}

func TestMLRules_Controller(t *testing.T) {
	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	cfg.RiskCapitalProduct = 0.5
	rules := newMLRules(&cfg, memory.NewRiskBandStore(), nil)

	if !almostEqual(rules.effectiveRCC(0.5), 0.5, 1e-9) {
		t.Fatalf("initial effective rcc = %v, want base 0.5", rules.effectiveRCC(0.5))
	}

	// Zero usage against a 0.5 target raises the product.
	rules.onDayEnd(day(2019, time.March, 4), 0)
	if !almostEqual(rules.effectiveRCC(0.5), 0.75, 1e-9) {
		t.Errorf("after zero usage: rcc = %v, want 0.75", rules.effectiveRCC(0.5))
	}

	// Full usage pulls the average back to target: no adjustment.
	rules.onDayEnd(day(2019, time.March, 5), 1.0)
	if !almostEqual(rules.effectiveRCC(0.5), 0.5, 1e-9) {
		t.Errorf("at target usage: rcc = %v, want 0.5", rules.effectiveRCC(0.5))
	}
}

func TestMLRules_ControllerClamps(t *testing.T) {
	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	cfg.RiskCapitalProduct = 0.5
	cfg.ML.ControllerGain = 10

	rules := newMLRules(&cfg, memory.NewRiskBandStore(), nil)

	// Persistent zero usage with a hot gain would triple the product;
	// the clamp holds it at MaxRCC.
	rules.onDayEnd(day(2019, time.March, 4), 0)
	if !almostEqual(rules.effectiveRCC(0.5), cfg.ML.MaxRCC, 1e-9) {
		t.Errorf("rcc = %v, want clamped to %v", rules.effectiveRCC(0.5), cfg.ML.MaxRCC)
	}

	// Persistent full usage drives it down to MinRCC.
	for i := 0; i < 20; i++ {
		rules.onDayEnd(day(2019, time.March, 5), 1.0)
	}
	if !almostEqual(rules.effectiveRCC(0.5), cfg.ML.MinRCC, 1e-9) {
		t.Errorf("rcc = %v, want clamped to %v", rules.effectiveRCC(0.5), cfg.ML.MinRCC)
	}
}

func TestMLRules_FrequencyCompensation(t *testing.T) {
	cfg := mlConfig("TEST1", day(2019, time.March, 4), day(2019, time.March, 29))
	cfg.ML.FrequencyCompensation = true
	rules := newMLRules(&cfg, memory.NewRiskBandStore(), nil)

	e := &Engine{cfg: cfg, states: []*TickerState{
		{Ticker: "A", OperationCount: 0},
		{Ticker: "B", OperationCount: 4},
	}}

	quiet := rules.sizingMultiplier(e, e.states[0])
	busy := rules.sizingMultiplier(e, e.states[1])
	if !(quiet > busy) {
		t.Errorf("quiet ticker multiplier (%v) must exceed busy ticker's (%v)", quiet, busy)
	}
}

func TestMLEngine_EndToEnd(t *testing.T) {
	candles := memory.NewCandleStore()
	specs := make([]candleSpec, 10)
	for i := range specs {
		specs[i] = setupDay()
	}
	dates := seedMarket(t, candles, "TEST1", specs)

	bands := memory.NewRiskBandStore()
	var seed []*domain.RiskBand
	for _, d := range dates {
		seed = append(seed, &domain.RiskBand{
			Ticker: "TEST1", Date: d, MinRisk: 0.02, MaxRisk: 0.08, Uptrend: true,
		})
	}
	if err := bands.InsertBulk(context.Background(), seed); err != nil {
		t.Fatal(err)
	}

	cfg := mlConfig("TEST1", dates[0], dates[len(dates)-1])
	s, err := FromConfig(cfg, Deps{
		Candles:    candles,
		Holidays:   memory.NewHolidayStore(),
		Indexes:    memory.NewIndexStore(),
		RiskBands:  bands,
		Operations: memory.NewOperationStore(),
		Summaries:  memory.NewSummaryStore(),
		Models:     map[string]*model.Schedule{"TEST1": alwaysAcceptSchedule(t, 3)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ProcessOperations(context.Background()); err != nil {
		t.Fatal(err)
	}

	e := s.(*Engine)
	ops := e.Operations()
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}

	// Feature history needs 9 parsed days, so the first entry lands on
	// day 9 with the band-derived 92.00 stop.
	if !ops[0].StartDate().Equal(dates[8]) {
		t.Errorf("start = %v, want %v", ops[0].StartDate(), dates[8])
	}
	if !almostEqual(ops[0].StopLoss(), 92.00, 1e-9) {
		t.Errorf("stop loss = %v, want band-derived 92.00", ops[0].StopLoss())
	}
	if ops[0].State() != operation.Open {
		t.Errorf("state = %v, want trailing Open", ops[0].State())
	}
}
