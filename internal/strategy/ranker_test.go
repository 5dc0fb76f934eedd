package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

func TestRank_StableDescendingAndTruncated(t *testing.T) {
	in := []model.CandidateResult{
		{Symbol: "A", Score: 40},
		{Symbol: "B", Score: 70},
		{Symbol: "C", Score: 40},
		{Symbol: "D", Score: 90},
		{Symbol: "E", Score: 40},
	}
	got := Rank(in, 4)

	var order []string
	for _, r := range got {
		order = append(order, r.Symbol)
	}
	assert.Equal(t, []string{"D", "B", "A", "C"}, order)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.Equal(t, "A", in[0].Symbol, "input must not be reordered")
}

func TestRank_TopKLargerThanInput(t *testing.T) {
	in := []model.CandidateResult{{Symbol: "A", Score: 1}, {Symbol: "B", Score: 2}}
	got := Rank(in, 10)
	assert.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Symbol)
	assert.Empty(t, Rank(nil, 10))
}

func TestRankByPosition(t *testing.T) {
	in := []model.CandidateResult{
		{Symbol: "A", Position: 0.12, Score: 90},
		{Symbol: "B", Position: 0.02, Score: 10},
		{Symbol: "C", Position: 0.05, Score: 50},
	}
	got := RankByPosition(in, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Symbol)
	assert.Equal(t, "C", got[1].Symbol)
}
