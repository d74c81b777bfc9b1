package domain

import "time"

// Index names for benchmark series.
const (
	IndexIBOV = "IBOV"
	IndexCDI  = "CDI"
)

// IndexPoint is one day of a benchmark index series (IBOV market index or
// CDI risk-free rate index).
type IndexPoint struct {
	Index string
	Date  time.Time
	Value float64
}
