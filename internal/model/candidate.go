package model

import "time"

// ExclusionReason explains why a screened symbol did not make it into the results.
type ExclusionReason string

const (
	ReasonNone                   ExclusionReason = ""
	ReasonHistoryUnavailable     ExclusionReason = "history_unavailable"
	ReasonInsufficientHistory    ExclusionReason = "insufficient_history"
	ReasonInsufficientMonths     ExclusionReason = "insufficient_months"
	ReasonDegenerateRange        ExclusionReason = "degenerate_range"
	ReasonAbovePositionThreshold ExclusionReason = "above_position_threshold"
	ReasonMAUnavailable          ExclusionReason = "ma_unavailable"
	ReasonAboveMADeviation       ExclusionReason = "above_ma_deviation"
	ReasonNumericError           ExclusionReason = "numeric_error"
)

// CandidateResult is a scored instrument that passed every hard filter.
type CandidateResult struct {
	Symbol       string
	Name         string
	Price        float64
	MarketCap    float64
	Position     float64 // 0.0 ~ 1.0 within the monthly high/low range
	HistHigh     float64
	HistLow      float64
	MA           float64
	DistanceToMA float64 // signed, fractional
	Momentum     bool
	RSI          float64 // informational only
	Score        float64
	Status       string
}

// PositionPercent returns Position on a 0~100 scale.
func (c CandidateResult) PositionPercent() float64 {
	return c.Position * 100
}

// MarketCapYi returns the market cap in units of 亿 (1e8 yuan).
func (c CandidateResult) MarketCapYi() float64 {
	return c.MarketCap / 1e8
}

// ScoreOutcome is the per-symbol result of the scoring pass.
// Exactly one of Result or Reason is set.
type ScoreOutcome struct {
	Symbol string
	Name   string
	Result *CandidateResult
	Reason ExclusionReason
	Err    error
}

// Accepted reports whether the symbol survived scoring.
func (o ScoreOutcome) Accepted() bool { return o.Result != nil }

// ScanReport summarizes a single screening run.
type ScanReport struct {
	RunID     string
	StartedAt time.Time
	Universe  int // rows in the bulk snapshot
	Screened  int // rows handed to the scorer after filtering and the scan limit
	Ranked    []CandidateResult
	Outcomes  []ScoreOutcome
}

// ExclusionCounts tallies outcomes by reason.
func (r *ScanReport) ExclusionCounts() map[ExclusionReason]int {
	counts := make(map[ExclusionReason]int)
	for _, o := range r.Outcomes {
		if !o.Accepted() {
			counts[o.Reason]++
		}
	}
	return counts
}
