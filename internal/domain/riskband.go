package domain

import "time"

// RiskBand is one row of the precomputed per-day risk/trend table used by
// the ML strategy variant. MinRisk/MaxRisk bound the stop distance as a
// fraction of the purchase price.
type RiskBand struct {
	Ticker string
	Date   time.Time

	MinRisk float64
	MaxRisk float64

	Uptrend   bool
	Downtrend bool
	Crisis    bool
}

// Valid reports whether the band can be used for entry sizing.
// A band with MaxRisk below MinRisk is unusable for that day.
func (b *RiskBand) Valid() bool {
	return b.MaxRisk >= b.MinRisk && b.MaxRisk > 0
}
