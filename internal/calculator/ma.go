package calculator

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return stat.Mean(prices[len(prices)-period:], nil), nil
}

// CalculateMovingAverage returns the trailing simple moving average of closes over window bars.
func CalculateMovingAverage(bars []model.OHLCV, window int) (float64, error) {
	return CalculateSMA(extractCloses(bars), window)
}

// CalculateEMA returns the exponential moving average series for the given span.
// The series is seeded with the first price and smoothed with alpha = 2/(span+1).
func CalculateEMA(prices []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	if len(prices) == 0 {
		return nil, errors.New("no prices provided")
	}
	alpha := 2.0 / float64(span+1)
	ema := make([]float64, len(prices))
	ema[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		ema[i] = alpha*prices[i] + (1-alpha)*ema[i-1]
	}
	return ema, nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
