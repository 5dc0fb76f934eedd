package calculator

import (
	"errors"
	"math"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// CalculateMACDHistogram returns the histogram series 2*(DIF-DEA), where DIF is
// EMA12-EMA26 of closes and DEA is EMA9 of DIF.
func CalculateMACDHistogram(closes []float64) ([]float64, error) {
	if len(closes) == 0 {
		return nil, errors.New("no closes provided")
	}
	fast, err := CalculateEMA(closes, macdFast)
	if err != nil {
		return nil, err
	}
	slow, err := CalculateEMA(closes, macdSlow)
	if err != nil {
		return nil, err
	}
	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea, err := CalculateEMA(dif, macdSignal)
	if err != nil {
		return nil, err
	}
	hist := make([]float64, len(closes))
	for i := range dif {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return hist, nil
}

// MomentumFlag inspects the last three histogram values in chronological order.
// It is true when negative momentum is contracting (all negative, |v3| < |v2|)
// or when the histogram has just crossed from negative to positive.
func MomentumFlag(v1, v2, v3 float64) bool {
	easing := v1 < 0 && v2 < 0 && v3 < 0 && math.Abs(v3) < math.Abs(v2)
	crossing := v2 < 0 && v3 > 0
	return easing || crossing
}

// DetectMomentum computes the histogram and applies MomentumFlag to its tail.
// Returns false when fewer than minBars closes are available.
func DetectMomentum(closes []float64, minBars int) bool {
	if len(closes) < minBars || len(closes) < 3 {
		return false
	}
	hist, err := CalculateMACDHistogram(closes)
	if err != nil {
		return false
	}
	n := len(hist)
	return MomentumFlag(hist[n-3], hist[n-2], hist[n-1])
}
