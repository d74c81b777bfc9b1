package strategy

import (
	"errors"
	"time"
)

// Construction errors. These are caller contract violations: an invalid
// configuration aborts the run instead of being skipped over.
var (
	ErrUnknownVariant               = errors.New("unknown strategy variant")
	ErrUnknownStopType              = errors.New("unknown stop type")
	ErrInvalidRiskCapitalProduct    = errors.New("risk capital product must be in (0, 1]")
	ErrInvalidRiskBounds            = errors.New("risk bounds must satisfy 0 < min <= max < 1")
	ErrInvalidGainLossRatio         = errors.New("gain/loss ratio must be positive")
	ErrInvalidTotalCapital          = errors.New("total capital must be positive")
	ErrNoTickers                    = errors.New("at least one ticker window is required")
	ErrMissingRiskBandStore         = errors.New("ML variant requires a risk band store")
	ErrMissingModels                = errors.New("ML variant requires a model schedule per ticker")
	ErrInvalidControllerTarget      = errors.New("controller target capital usage must be in (0, 1]")
	ErrInvalidCapitalUsageWindow    = errors.New("capital usage window must be positive")
	ErrInvalidSmoothingWindow       = errors.New("smoothing window must be at least 2")
	ErrNoLookbacks                  = errors.New("at least one correlation lookback is required")
)

// Variant selects the concrete rule set.
type Variant string

// Strategy variants.
const (
	VariantAndreMoraes  Variant = "ANDRE_MORAES"
	VariantMLDerivation Variant = "ML_DERIVATION"
)

// StopType selects the stop loss behavior.
type StopType string

// Stop types. The staircase stop ratchets upward in discrete marks as the
// price climbs, never downward.
const (
	StopNormal    StopType = "NORMAL"
	StopStaircase StopType = "STAIRCASE"
)

// TickerWindow is one ticker's active participation window.
type TickerWindow struct {
	Ticker string
	Start  time.Time
	End    time.Time

	// CapitalMultiplier scales position sizing for this ticker. 0 means 1.
	CapitalMultiplier float64
}

// MLConfig holds the knobs specific to the ML derivation variant.
type MLConfig struct {
	// Lookbacks are the windows, in days, for the Spearman rank
	// correlation features.
	Lookbacks []int

	// SmoothingWindow is the EMA period applied to the mid-price series
	// before feature extraction.
	SmoothingWindow int

	// CrisisHalt/DowntrendHalt gate entries on the risk table flags.
	CrisisHalt    bool
	DowntrendHalt bool

	// Proportional controller for the dynamic risk capital product.
	// effective_rcc = base_rcc * (1 + gain * (target - moving_avg(capital_in_use)))
	ControllerGain     float64
	TargetCapitalUsage float64
	CapitalUsageWindow int

	// MinRCC/MaxRCC clamp the controller output. The clamp is a deliberate
	// guard: an unclamped proportional term can drive the product negative
	// or arbitrarily large under a persistent usage error.
	MinRCC float64
	MaxRCC float64

	// Position sizing compensation toggles.
	FrequencyCompensation bool
	ProfitCompensation    bool

	// UptrendPriorityBonus adds the risk table's uptrend flag to the daily
	// ticker reordering score.
	UptrendPriorityBonus bool
}

// Config holds every parameter of a strategy run.
type Config struct {
	StrategyID string
	Variant    Variant

	TotalCapital float64

	// RiskCapitalProduct is the fraction of risk-normalized capital
	// committed per trade. Must be in (0, 1].
	RiskCapitalProduct float64

	// MinRiskPerTrade/MaxRiskPerTrade bound the implied risk fraction
	// (purchase - stop) / purchase after margin adjustment.
	MinRiskPerTrade float64
	MaxRiskPerTrade float64

	// PurchaseMargin lifts the target buy price; StopMargin lowers the
	// stop loss hint.
	PurchaseMargin float64
	StopMargin     float64

	// EMATolerance loosens the EMA band straddle test in the baseline
	// entry rule.
	EMATolerance float64

	// GainLossRatio is the target distance as a multiple of the risk
	// distance.
	GainLossRatio float64

	MaxDaysPerOperation int

	MinDaysAfterSuccessfulOperation int
	MinDaysAfterFailureOperation    int

	// MinOrderVolume is the lot size; volumes are floored to multiples.
	MinOrderVolume int64

	PartialSale bool
	StopType    StopType

	Tickers []TickerWindow

	ML MLConfig
}

// Validate checks construction parameters, returning the first violation.
func (c *Config) Validate() error {
	switch c.Variant {
	case VariantAndreMoraes, VariantMLDerivation:
	default:
		return ErrUnknownVariant
	}

	switch c.StopType {
	case StopNormal, StopStaircase:
	default:
		return ErrUnknownStopType
	}

	if c.TotalCapital <= 0 {
		return ErrInvalidTotalCapital
	}
	if c.RiskCapitalProduct <= 0 || c.RiskCapitalProduct > 1 {
		return ErrInvalidRiskCapitalProduct
	}
	if c.MinRiskPerTrade <= 0 || c.MaxRiskPerTrade >= 1 || c.MinRiskPerTrade > c.MaxRiskPerTrade {
		return ErrInvalidRiskBounds
	}
	if c.GainLossRatio <= 0 {
		return ErrInvalidGainLossRatio
	}
	if len(c.Tickers) == 0 {
		return ErrNoTickers
	}

	if c.Variant == VariantMLDerivation {
		if c.ML.TargetCapitalUsage <= 0 || c.ML.TargetCapitalUsage > 1 {
			return ErrInvalidControllerTarget
		}
		if c.ML.CapitalUsageWindow <= 0 {
			return ErrInvalidCapitalUsageWindow
		}
		if c.ML.SmoothingWindow < 2 {
			return ErrInvalidSmoothingWindow
		}
		if len(c.ML.Lookbacks) == 0 {
			return ErrNoLookbacks
		}
	}

	return nil
}

// span returns the earliest start and latest end across ticker windows.
func (c *Config) span() (time.Time, time.Time) {
	start, end := c.Tickers[0].Start, c.Tickers[0].End
	for _, tw := range c.Tickers[1:] {
		if tw.Start.Before(start) {
			start = tw.Start
		}
		if tw.End.After(end) {
			end = tw.End
		}
	}
	return start, end
}

// tickerNames returns the universe in configuration order.
func (c *Config) tickerNames() []string {
	names := make([]string, len(c.Tickers))
	for i, tw := range c.Tickers {
		names[i] = tw.Ticker
	}
	return names
}
