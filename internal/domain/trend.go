package domain

// TrendStatus classifies the medium-term trend of a ticker on a given day.
type TrendStatus int

// Trend status values.
const (
	TrendUndefined TrendStatus = iota
	TrendUptrend
	TrendDowntrend
	TrendConsolidation
)

// String returns the storage representation of the trend status.
func (t TrendStatus) String() string {
	switch t {
	case TrendUptrend:
		return "UPTREND"
	case TrendDowntrend:
		return "DOWNTREND"
	case TrendConsolidation:
		return "CONSOLIDATION"
	default:
		return "UNDEFINED"
	}
}

// ParseTrendStatus maps a storage string to a TrendStatus.
// Unknown values map to TrendUndefined.
func ParseTrendStatus(s string) TrendStatus {
	switch s {
	case "UPTREND":
		return TrendUptrend
	case "DOWNTREND":
		return TrendDowntrend
	case "CONSOLIDATION":
		return TrendConsolidation
	default:
		return TrendUndefined
	}
}
