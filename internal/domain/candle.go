package domain

import "time"

// DailyCandle is one day of joined price and feature data for a ticker.
// Prices are in BRL. Feature columns come from the feature-generation
// pipeline; zero values mean "undefined" for Peak, TargetBuyPrice and
// StopLoss.
type DailyCandle struct {
	Ticker string
	Date   time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	EMA17 float64
	EMA72 float64

	Trend TrendStatus

	// Peak is a detected local extreme price level, 0 if none for this day.
	Peak float64

	// TargetBuyPrice and StopLoss are entry hints derived upstream from
	// peak structure. 0 means undefined.
	TargetBuyPrice float64
	StopLoss       float64
}

// WeeklyCandle is one ISO week of aggregated price data for a ticker.
// WeekEnd is the last calendar day of the week.
type WeeklyCandle struct {
	Ticker  string
	WeekEnd time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	EMA72 float64
}
