package calculator

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// MonthBucket is the high/low extreme of one calendar month.
type MonthBucket struct {
	Year  int
	Month time.Month
	High  float64
	Low   float64
}

// AggregateMonthly buckets daily bars by calendar month, keeping the max high and min low.
// Bars must be in ascending date order.
func AggregateMonthly(dailyBars []model.OHLCV) []MonthBucket {
	var months []MonthBucket
	for _, b := range dailyBars {
		y, m, _ := b.Time.Date()
		n := len(months)
		if n > 0 && months[n-1].Year == y && months[n-1].Month == m {
			if b.High > months[n-1].High {
				months[n-1].High = b.High
			}
			if b.Low < months[n-1].Low {
				months[n-1].Low = b.Low
			}
			continue
		}
		months = append(months, MonthBucket{Year: y, Month: m, High: b.High, Low: b.Low})
	}
	return months
}

// CalculateMonthlyRange returns the max monthly high and min monthly low over all buckets.
func CalculateMonthlyRange(months []MonthBucket) (high, low float64, err error) {
	if len(months) == 0 {
		return 0, 0, errors.New("no monthly buckets provided")
	}
	highs := make([]float64, len(months))
	lows := make([]float64, len(months))
	for i, m := range months {
		highs[i] = m.High
		lows[i] = m.Low
	}
	return floats.Max(highs), floats.Min(lows), nil
}

// CalculatePosition returns where the current price sits within [low, high] (0.0~1.0).
// Prices below the range clamp to 0. Prices above the range are returned unclamped so
// callers can reject them against a threshold.
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0, errors.New("degenerate range: high equals low")
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	return pos, nil
}
