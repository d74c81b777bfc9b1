package strategy

import (
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/operation"
)

// cooldownReady makes a fresh ticker immediately eligible for entry.
const cooldownReady = 1 << 20

// BusinessData is one ticker's parsed data for one day: prices plus the
// feature columns the entry and exit rules read.
type BusinessData struct {
	Ticker string
	Date   time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	EMA17       float64
	EMA72       float64
	EMA72Weekly float64

	Trend domain.TrendStatus

	Peak float64

	// TargetBuyPrice/StopLoss are the upstream entry hints, 0 when
	// undefined. A day without hints can still drive exits.
	TargetBuyPrice float64
	StopLoss       float64
}

// peakKind classifies a peak as support (local minimum) or resistance
// (local maximum).
type peakKind int

const (
	peakNone peakKind = iota
	peakMin
	peakMax
)

// MLState is the ML variant's per-ticker scratch state.
type MLState struct {
	// MidPrices is the (high+low)/2 history, appended once per parsed day.
	MidPrices []float64
}

// TickerState is the simulation cursor for one ticker. It exclusively owns
// its current operation until close, at which point ownership transfers to
// the engine's operation list.
type TickerState struct {
	Ticker string
	Start  time.Time
	End    time.Time

	CapitalMultiplier float64

	Operation        *operation.Operation
	OngoingOperation bool

	// StaircaseMark is the current staircase stop escalation level (0-2).
	StaircaseMark int

	// StaircaseStep is the entry risk distance (purchase - stop), fixed at
	// purchase time and used to place the staircase marks.
	StaircaseStep float64

	DaysOnOperation int

	// Cooldown counters: incremented every day, reset to 0 on the
	// corresponding exit type.
	DaysAfterSuccessfulOperation int
	DaysAfterFailureOperation    int

	// LastBusinessData is the previous day's parsed snapshot, read by the
	// entry rules for one-day-lagged confirmation.
	LastBusinessData *BusinessData

	Profit         float64
	LoanedCapital  float64
	OperationCount int
	SuccessCount   int

	// Peak integrity tracking.
	lastPeak     float64
	lastPeakKind peakKind

	// ML holds variant-specific state; nil for the baseline variant.
	ML *MLState
}

// newTickerState creates a state for one ticker window.
func newTickerState(tw TickerWindow, variant Variant) *TickerState {
	mult := tw.CapitalMultiplier
	if mult == 0 {
		mult = 1
	}

	ts := &TickerState{
		Ticker:                       tw.Ticker,
		Start:                        tw.Start,
		End:                          tw.End,
		CapitalMultiplier:            mult,
		DaysAfterSuccessfulOperation: cooldownReady,
		DaysAfterFailureOperation:    cooldownReady,
	}
	if variant == VariantMLDerivation {
		ts.ML = &MLState{}
	}
	return ts
}

// inWindow reports whether the day is within the ticker's active window.
func (ts *TickerState) inWindow(day time.Time) bool {
	return !day.Before(ts.Start) && !day.After(ts.End)
}

// clearOperation resets the per-operation cursor after an operation is
// archived, making the ticker eligible for re-entry.
func (ts *TickerState) clearOperation() {
	ts.Operation = nil
	ts.OngoingOperation = false
	ts.StaircaseMark = 0
	ts.StaircaseStep = 0
	ts.DaysOnOperation = 0
}
