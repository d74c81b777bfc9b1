package domain

import "time"

// Operation states.
const (
	OperationNotStarted = "NOT_STARTED"
	OperationOpen       = "OPEN"
	OperationClose      = "CLOSE"
)

// Leg sides.
const (
	LegBuy  = "BUY"
	LegSell = "SELL"
)

// OperationLeg is one executed buy or sell inside an operation.
// The three flags apply to sell legs only and are mutually exclusive
// between StopLoss and PartialSale.
type OperationLeg struct {
	OperationID string
	Seq         int
	Side        string
	Price       float64
	Volume      int64
	Date        time.Time

	StopLoss    bool
	PartialSale bool
	Timeout     bool
}

// OperationRecord is the persistence shape of one buy-to-sell trade
// lifecycle. Profit and Yield are meaningful only when State is CLOSE.
type OperationRecord struct {
	OperationID string
	Ticker      string
	StrategyID  string
	State       string

	StartDate *time.Time
	EndDate   *time.Time

	TargetPurchasePrice float64
	TargetSalePrice     float64
	StopLoss            float64
	PartialSalePrice    float64

	Profit float64
	Yield  float64

	Legs []*OperationLeg
}
