package model

import (
	"math"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Instrument is one row of the bulk quote snapshot.
// Numeric fields the source could not report hold NaN.
type Instrument struct {
	Symbol    string
	Name      string
	Price     float64
	MarketCap float64 // yuan
	PE        float64 // dynamic PE
	PB        float64
	ChangePct float64
}

// Valid reports whether price and market cap are usable numbers.
func (i Instrument) Valid() bool {
	return isFinite(i.Price) && isFinite(i.MarketCap)
}

// HistoricalSeries holds daily bars for one symbol, ascending by date.
type HistoricalSeries struct {
	Symbol string
	Bars   []OHLCV
}

// Closes returns the closing prices in bar order.
func (s HistoricalSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Len returns the number of bars.
func (s HistoricalSeries) Len() int { return len(s.Bars) }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
