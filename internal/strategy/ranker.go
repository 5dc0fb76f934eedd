package strategy

import (
	"sort"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// Rank sorts by composite score descending, keeping input order on ties, and truncates to topK.
func Rank(results []model.CandidateResult, topK int) []model.CandidateResult {
	out := append([]model.CandidateResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return truncate(out, topK)
}

// RankByPosition sorts by position ascending (closest to the floor first) and truncates to topK.
func RankByPosition(results []model.CandidateResult, topK int) []model.CandidateResult {
	out := append([]model.CandidateResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return truncate(out, topK)
}

func truncate(results []model.CandidateResult, topK int) []model.CandidateResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
