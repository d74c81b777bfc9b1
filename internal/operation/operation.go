package operation

import (
	"errors"
	"math"
	"time"

	"b3-swing-lab/internal/domain"
	"b3-swing-lab/internal/idhash"
)

// ErrConflictingSaleFlags is returned when a sale is flagged as both a
// stop loss and a partial sale. This is a caller contract violation, not a
// recoverable data condition.
var ErrConflictingSaleFlags = errors.New("sale cannot be both stop loss and partial sale")

// State is the lifecycle state of an Operation.
type State int

// Lifecycle states. Transitions are monotonic:
// NotStarted -> Open (first purchase) -> Closed (final sale).
const (
	NotStarted State = iota
	Open
	Closed
)

// String returns the storage representation of the state.
func (s State) String() string {
	switch s {
	case Open:
		return domain.OperationOpen
	case Closed:
		return domain.OperationClose
	default:
		return domain.OperationNotStarted
	}
}

// Leg is one executed buy or sell.
type Leg struct {
	Price  float64
	Volume int64
	Date   time.Time

	StopLoss    bool
	PartialSale bool
	Timeout     bool
}

// Operation is one buy-to-sell trade lifecycle for a single ticker.
// It owns its purchase and sale legs and the derived accounting; it never
// performs I/O. Total sold volume never exceeds total bought volume, and no
// legs are accepted after the operation closes.
type Operation struct {
	ticker string
	state  State

	startDate time.Time
	endDate   time.Time

	targetPurchasePrice float64
	targetSalePrice     float64
	stopLoss            float64
	partialSalePrice    float64

	purchases []Leg
	sales     []Leg

	purchaseVolume int64
	saleVolume     int64

	profit float64
	yield  float64
}

// New creates an operation in the NotStarted state with its price levels.
func New(ticker string, targetPurchase, targetSale, stopLoss, partialSale float64) *Operation {
	return &Operation{
		ticker:              ticker,
		state:               NotStarted,
		targetPurchasePrice: targetPurchase,
		targetSalePrice:     targetSale,
		stopLoss:            stopLoss,
		partialSalePrice:    partialSale,
	}
}

// AddPurchase appends a purchase leg. The first purchase sets the start date
// and opens the operation. Purchases are rejected once the operation is
// closed or once any sale has executed (no re-entry into an open position).
func (o *Operation) AddPurchase(price float64, volume int64, date time.Time) bool {
	if o.state == Closed || volume <= 0 || price <= 0 {
		return false
	}
	if len(o.sales) > 0 {
		return false
	}

	if o.state == NotStarted {
		o.startDate = date
		o.state = Open
	}

	o.purchases = append(o.purchases, Leg{Price: price, Volume: volume, Date: date})
	o.purchaseVolume += volume
	return true
}

// AddSale appends a sale leg. Exactly one of stopLoss/partialSale may be
// set; both set is a contract violation and returns ErrConflictingSaleFlags.
// A sale is rejected (false, nil) when the operation is not open or when the
// requested volume exceeds the remaining bought-but-unsold volume. The sale
// that exhausts the remaining volume sets the end date, computes profit and
// yield, and closes the operation.
func (o *Operation) AddSale(price float64, volume int64, date time.Time, stopLoss, partialSale, timeout bool) (bool, error) {
	if stopLoss && partialSale {
		return false, ErrConflictingSaleFlags
	}
	if o.state != Open || volume <= 0 || price <= 0 {
		return false, nil
	}
	if o.saleVolume+volume > o.purchaseVolume {
		return false, nil
	}

	o.sales = append(o.sales, Leg{
		Price:       price,
		Volume:      volume,
		Date:        date,
		StopLoss:    stopLoss,
		PartialSale: partialSale,
		Timeout:     timeout,
	})
	o.saleVolume += volume

	if o.saleVolume == o.purchaseVolume {
		o.endDate = date
		o.profit = roundCents(o.TotalSaleCapital() - o.TotalPurchaseCapital())
		if invested := o.TotalPurchaseCapital(); invested > 0 {
			o.yield = o.profit / invested
		}
		o.state = Closed
	}

	return true, nil
}

// ID returns the deterministic operation identifier for a strategy run.
// Defined only once the operation has started.
func (o *Operation) ID(strategyID string) string {
	return idhash.ComputeOperationID(o.ticker, strategyID, o.startDate)
}

// Ticker returns the operation's ticker.
func (o *Operation) Ticker() string { return o.ticker }

// State returns the current lifecycle state.
func (o *Operation) State() State { return o.state }

// StartDate returns the date of the first purchase (zero if not started).
func (o *Operation) StartDate() time.Time { return o.startDate }

// EndDate returns the date of the closing sale (zero if not closed).
func (o *Operation) EndDate() time.Time { return o.endDate }

// TargetPurchasePrice returns the planned entry price.
func (o *Operation) TargetPurchasePrice() float64 { return o.targetPurchasePrice }

// TargetSalePrice returns the profit target price.
func (o *Operation) TargetSalePrice() float64 { return o.targetSalePrice }

// SetTargetSalePrice overrides the profit target price.
func (o *Operation) SetTargetSalePrice(p float64) { o.targetSalePrice = p }

// StopLoss returns the current stop loss price.
func (o *Operation) StopLoss() float64 { return o.stopLoss }

// SetStopLoss overrides the stop loss price (staircase ratchet).
func (o *Operation) SetStopLoss(p float64) { o.stopLoss = p }

// PartialSalePrice returns the 1:1 reward-to-risk partial exit price.
func (o *Operation) PartialSalePrice() float64 { return o.partialSalePrice }

// SetPartialSalePrice overrides the partial exit price.
func (o *Operation) SetPartialSalePrice(p float64) { o.partialSalePrice = p }

// Purchases returns the purchase legs in execution order.
func (o *Operation) Purchases() []Leg { return o.purchases }

// Sales returns the sale legs in execution order.
func (o *Operation) Sales() []Leg { return o.sales }

// TotalPurchaseVolume returns the total bought volume.
func (o *Operation) TotalPurchaseVolume() int64 { return o.purchaseVolume }

// TotalSaleVolume returns the total sold volume.
func (o *Operation) TotalSaleVolume() int64 { return o.saleVolume }

// RemainingVolume returns bought-but-unsold volume.
func (o *Operation) RemainingVolume() int64 { return o.purchaseVolume - o.saleVolume }

// TotalPurchaseCapital returns the capital spent on purchases.
func (o *Operation) TotalPurchaseCapital() float64 {
	var total float64
	for _, l := range o.purchases {
		total += l.Price * float64(l.Volume)
	}
	return total
}

// TotalSaleCapital returns the capital received from sales.
func (o *Operation) TotalSaleCapital() float64 {
	var total float64
	for _, l := range o.sales {
		total += l.Price * float64(l.Volume)
	}
	return total
}

// Profit returns realized profit in cents precision. Defined only at close.
func (o *Operation) Profit() float64 { return o.profit }

// Yield returns profit over purchase capital. Defined only at close.
func (o *Operation) Yield() float64 { return o.yield }

// Successful reports whether the operation closed with positive profit.
func (o *Operation) Successful() bool { return o.state == Closed && o.profit > 0 }

// PartialSaleTaken reports whether a partial sale leg has executed.
func (o *Operation) PartialSaleTaken() bool {
	for _, l := range o.sales {
		if l.PartialSale {
			return true
		}
	}
	return false
}

// Record converts the operation to its persistence shape.
func (o *Operation) Record(strategyID string) *domain.OperationRecord {
	rec := &domain.OperationRecord{
		OperationID:         o.ID(strategyID),
		Ticker:              o.ticker,
		StrategyID:          strategyID,
		State:               o.state.String(),
		TargetPurchasePrice: o.targetPurchasePrice,
		TargetSalePrice:     o.targetSalePrice,
		StopLoss:            o.stopLoss,
		PartialSalePrice:    o.partialSalePrice,
		Profit:              o.profit,
		Yield:               o.yield,
	}

	if o.state != NotStarted {
		start := o.startDate
		rec.StartDate = &start
	}
	if o.state == Closed {
		end := o.endDate
		rec.EndDate = &end
	}

	seq := 0
	for _, l := range o.purchases {
		rec.Legs = append(rec.Legs, &domain.OperationLeg{
			OperationID: rec.OperationID,
			Seq:         seq,
			Side:        domain.LegBuy,
			Price:       l.Price,
			Volume:      l.Volume,
			Date:        l.Date,
		})
		seq++
	}
	for _, l := range o.sales {
		rec.Legs = append(rec.Legs, &domain.OperationLeg{
			OperationID: rec.OperationID,
			Seq:         seq,
			Side:        domain.LegSell,
			Price:       l.Price,
			Volume:      l.Volume,
			Date:        l.Date,
			StopLoss:    l.StopLoss,
			PartialSale: l.PartialSale,
			Timeout:     l.Timeout,
		})
		seq++
	}

	return rec
}

// roundCents rounds a currency amount to 2 decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
