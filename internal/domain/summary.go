package domain

import "time"

// EquityPoint is one day of the replayed capital curve.
type EquityPoint struct {
	Date time.Time

	// Capital is cash plus mark-to-market value of held positions.
	Capital float64

	// CapitalInUse is the fraction of total capital committed to open
	// positions (at cost basis).
	CapitalInUse float64

	ActiveOperations int

	// Baseline is the equal-weight ticker index value.
	Baseline float64

	IBOV float64
	CDI  float64
}

// Summary holds the aggregate performance metrics of one strategy run.
// Field names follow the statistics produced by the statistics engine.
type Summary struct {
	StrategyID string
	Ticker     string // "ALL" for whole-universe summaries

	StartDate time.Time
	EndDate   time.Time

	TotalCapital float64
	Profit       float64

	MaxUsedCapital float64
	AvgUsedCapital float64

	Volatility           float64 // daily return stdev
	AnnualizedVolatility float64

	SharpeRatio  float64
	SortinoRatio float64

	Yield                   float64
	AnnualizedYield         float64
	IBOVYield               float64
	AnnualizedIBOVYield     float64
	CDIYield                float64
	AnnualizedCDIYield      float64
	BaselineYield           float64
	AnnualizedBaselineYield float64

	PearsonIBOV      float64
	SpearmanIBOV     float64
	PearsonBaseline  float64
	SpearmanBaseline float64

	OperationCount  int
	SuccessfulCount int
}
