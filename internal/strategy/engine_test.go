package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaniteli/daily-energy-strategy/internal/collector"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

func newTestEngine(m *collector.MockFetcher, threshold float64) *Engine {
	score := defaultScoreConfig()
	if threshold > 0 {
		score.PositionThreshold = threshold
	}
	history := collector.NewHistoryProvider(m, collector.RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond},
		0, 4, collector.AdjustForward, logging.NewSilent())
	return NewEngine(history, defaultScreenConfig(), score, logging.NewSilent())
}

func TestEngine_ScanEndToEnd(t *testing.T) {
	rows := []model.Instrument{
		inst("000001", "地板股", 10.5, 20),
		inst("000002", "边缘股", 11.8, 25),
		inst("000003", "横盘股", 12, 30),
		inst("600519", "贵州茅台", 1500, 20000),
	}
	m := &collector.MockFetcher{
		Rows: rows,
		Bars: map[string][]model.OHLCV{
			"000001": floorSeries("000001", 20, 10, 10.5).Bars,
			"000002": floorSeries("000002", 20, 10, 11.8).Bars,
			"000003": flatSeries("000003", 12, 1460).Bars,
		},
	}

	report, err := newTestEngine(m, 0.15).Scan(context.Background(), rows)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Universe)
	assert.Equal(t, 3, report.Screened)
	require.Len(t, report.Ranked, 1)
	assert.Equal(t, "000001", report.Ranked[0].Symbol)
	assert.InDelta(t, 0.05, report.Ranked[0].Position, 1e-9)

	reasons := map[string]model.ExclusionReason{}
	for _, o := range report.Outcomes {
		reasons[o.Symbol] = o.Reason
	}
	assert.Equal(t, model.ReasonNone, reasons["000001"])
	assert.Equal(t, model.ReasonAbovePositionThreshold, reasons["000002"])
	assert.Equal(t, model.ReasonDegenerateRange, reasons["000003"])
	assert.Equal(t, 1, report.ExclusionCounts()[model.ReasonDegenerateRange])
	assert.Zero(t, m.Calls("600519"), "filtered rows must not trigger history lookups")
}

func TestEngine_HistoryFailureDoesNotAbort(t *testing.T) {
	rows := []model.Instrument{
		inst("000001", "A", 10.5, 20),
		inst("000002", "B", 10.5, 21),
	}
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{"000002": floorSeries("000002", 20, 10, 10.5).Bars},
		Errs: map[string]error{"000001": errors.New("remote closed")},
	}

	report, err := newTestEngine(m, 0).Scan(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, model.ReasonHistoryUnavailable, report.Outcomes[0].Reason)
	assert.ErrorIs(t, report.Outcomes[0].Err, collector.ErrHistoryUnavailable)
	assert.Equal(t, 2, m.Calls("000001"))
	require.Len(t, report.Ranked, 1)
	assert.Equal(t, "000002", report.Ranked[0].Symbol)
}

func TestEngine_CancelledContextAborts(t *testing.T) {
	rows := []model.Instrument{inst("000001", "A", 10.5, 20)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(&collector.MockFetcher{}, 0).Scan(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RankByPosition(t *testing.T) {
	rows := []model.Instrument{
		inst("000001", "A", 10.8, 20),
		inst("000002", "B", 10.2, 21),
	}
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"000001": floorSeries("000001", 20, 10, 10.8).Bars,
		// B sits closer to the floor but far below its MA, so it scores lower.
		"000002": floorSeries("000002", 20, 10, 20).Bars,
	}}

	byScore, err := newTestEngine(m, 0).Scan(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, byScore.Ranked, 2)
	assert.Equal(t, "000001", byScore.Ranked[0].Symbol)

	e := newTestEngine(m, 0)
	e.score.RankBy = "position"
	byPosition, err := e.Scan(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, byPosition.Ranked, 2)
	assert.Equal(t, "000002", byPosition.Ranked[0].Symbol)
}

func TestEngine_EmptySnapshot(t *testing.T) {
	report, err := newTestEngine(&collector.MockFetcher{}, 0).Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Ranked)
	assert.Zero(t, report.Screened)
}
