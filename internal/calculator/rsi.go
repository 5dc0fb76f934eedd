package calculator

import "errors"

// CalculateRSI computes the Wilder-smoothed RSI of closes over the given period.
// Returns 50 when fewer than period+1 closes are available. The value is shown in
// the report only; nothing filters on it.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 50.0, nil
	}

	n := float64(period)
	var up, down float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		up += g
		down += l
	}
	up, down = up/n, down/n

	for i := period + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		up = (up*(n-1) + g) / n
		down = (down*(n-1) + l) / n
	}

	if down == 0 {
		return 100.0, nil
	}
	return 100.0 - 100.0/(1.0+up/down), nil
}

func gainLoss(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}
