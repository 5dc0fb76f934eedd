package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/kyaniteli/daily-energy-strategy/internal/calculator"
	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

const rsiPeriod = 14

// Status labels.
const (
	LabelDormant  = "潜伏"
	LabelNearMA   = "贴近年线"
	LabelMomentum = "动能拐头"
)

// Scorer turns a candidate and its history into a ScoreOutcome.
type Scorer struct {
	cfg config.ScoreConfig
}

// NewScorer creates a Scorer with a copy of cfg.
func NewScorer(cfg config.ScoreConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score runs the hard filters and composite scoring for one symbol.
// It never panics; numeric faults become ReasonNumericError.
func (s *Scorer) Score(inst model.Instrument, series model.HistoricalSeries) (out model.ScoreOutcome) {
	out = model.ScoreOutcome{Symbol: inst.Symbol, Name: inst.Name}
	defer func() {
		if r := recover(); r != nil {
			out.Result = nil
			out.Reason = model.ReasonNumericError
			out.Err = fmt.Errorf("score %s: panic: %v", inst.Symbol, r)
		}
	}()

	exclude := func(reason model.ExclusionReason, err error) model.ScoreOutcome {
		out.Reason = reason
		out.Err = err
		return out
	}

	price := inst.Price
	if !finite(price) || price <= 0 {
		return exclude(model.ReasonNumericError, fmt.Errorf("invalid price %v", price))
	}

	// 1. minimum history
	if series.Len() < s.cfg.MinBars {
		return exclude(model.ReasonInsufficientHistory,
			fmt.Errorf("%d bars, need %d", series.Len(), s.cfg.MinBars))
	}

	// 2. monthly structure
	months := calculator.AggregateMonthly(series.Bars)
	if len(months) < s.cfg.MinMonths {
		return exclude(model.ReasonInsufficientMonths,
			fmt.Errorf("%d months, need %d", len(months), s.cfg.MinMonths))
	}

	// 3. historical range
	high, low, err := calculator.CalculateMonthlyRange(months)
	if err != nil {
		return exclude(model.ReasonInsufficientMonths, err)
	}
	if !finite(high) || !finite(low) {
		return exclude(model.ReasonNumericError, fmt.Errorf("non-finite range %v/%v", high, low))
	}
	if high == low {
		return exclude(model.ReasonDegenerateRange, fmt.Errorf("high equals low at %.2f", high))
	}

	// 4. position
	pos, err := calculator.CalculatePosition(price, high, low)
	if err != nil {
		return exclude(model.ReasonDegenerateRange, err)
	}
	if pos > s.cfg.PositionThreshold {
		return exclude(model.ReasonAbovePositionThreshold,
			fmt.Errorf("position %.3f above %.3f", pos, s.cfg.PositionThreshold))
	}

	// 5. moving average distance, rejected on the positive side only
	closes := series.Closes()
	if len(closes) < s.cfg.MAWindow {
		return exclude(model.ReasonMAUnavailable,
			fmt.Errorf("%d closes, need %d", len(closes), s.cfg.MAWindow))
	}
	ma, err := calculator.CalculateSMA(closes, s.cfg.MAWindow)
	if err != nil {
		return exclude(model.ReasonMAUnavailable, err)
	}
	if !finite(ma) || ma == 0 {
		return exclude(model.ReasonNumericError, fmt.Errorf("moving average %v", ma))
	}
	dist := (price - ma) / ma
	if dist > s.cfg.MaxMADeviation {
		return exclude(model.ReasonAboveMADeviation,
			fmt.Errorf("distance %.3f above %.3f", dist, s.cfg.MaxMADeviation))
	}

	// 6. momentum
	momentum := calculator.DetectMomentum(closes, s.cfg.MomentumMinBars)

	// 7. composite score
	score := (1 - pos/s.cfg.PositionThreshold) * s.cfg.PositionWeight
	score += (1 - math.Min(math.Abs(dist)/s.cfg.MADistanceCap, 1)) * s.cfg.MAWeight
	if momentum {
		score += s.cfg.MomentumBonus
	}
	if s.cfg.BoardBoost.Enabled && hasAnyPrefix(inst.Symbol, s.cfg.BoardBoost.Prefixes) {
		score += s.cfg.BoardBoost.Bonus
	}
	if !finite(score) || !finite(pos) || !finite(dist) {
		return exclude(model.ReasonNumericError, fmt.Errorf("non-finite score %v", score))
	}

	rsi, err := calculator.CalculateRSI(closes, rsiPeriod)
	if err != nil {
		rsi = 0
	}

	out.Result = &model.CandidateResult{
		Symbol:       inst.Symbol,
		Name:         inst.Name,
		Price:        price,
		MarketCap:    inst.MarketCap,
		Position:     pos,
		HistHigh:     high,
		HistLow:      low,
		MA:           ma,
		DistanceToMA: dist,
		Momentum:     momentum,
		RSI:          rsi,
		Score:        score,
		Status:       s.statusLabel(dist, momentum),
	}
	return out
}

// 8. status label
func (s *Scorer) statusLabel(dist float64, momentum bool) string {
	labels := []string{LabelDormant}
	if math.Abs(dist) <= s.cfg.NearMABand {
		labels = append(labels, LabelNearMA)
	}
	if momentum {
		labels = append(labels, LabelMomentum)
	}
	return strings.Join(labels, " · ")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
