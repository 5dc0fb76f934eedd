package recorder

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

func sampleReport() *model.ScanReport {
	accepted := &model.CandidateResult{Symbol: "000001", Name: "A", Price: 10.5, MarketCap: 2e9,
		Position: 0.05, HistHigh: 20, HistLow: 10, MA: 10.5, Score: 73.3, Status: "潜伏"}
	return &model.ScanReport{
		RunID:     "run-1",
		StartedAt: time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC),
		Universe:  5000,
		Screened:  3,
		Ranked:    []model.CandidateResult{*accepted},
		Outcomes: []model.ScoreOutcome{
			{Symbol: "000001", Name: "A", Result: accepted},
			{Symbol: "000002", Name: "B", Reason: model.ReasonAbovePositionThreshold},
			{Symbol: "000003", Name: "C", Reason: model.ReasonDegenerateRange},
		},
	}
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), logging.NewSilent())
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.RecordRun(sampleReport()))

	assert.Equal(t, 1, count(t, rec.db, `SELECT COUNT(*) FROM scan_runs`))
	assert.Equal(t, 3, count(t, rec.db, `SELECT COUNT(*) FROM scan_candidates WHERE run_id = ?`, "run-1"))
	assert.Equal(t, 1, count(t, rec.db, `SELECT COUNT(*) FROM scan_candidates WHERE rank_no = 1`))
	assert.Equal(t, 1, count(t, rec.db, `SELECT COUNT(*) FROM scan_candidates WHERE reason = ?`,
		string(model.ReasonDegenerateRange)))

	var accepted int
	require.NoError(t, rec.db.QueryRow(`SELECT accepted FROM scan_runs WHERE run_id = ?`, "run-1").Scan(&accepted))
	assert.Equal(t, 1, accepted)

	// run ids are unique
	assert.Error(t, rec.RecordRun(sampleReport()))
}

func TestSQLiteRecorder_RecordWatchlistWithNaN(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), logging.NewSilent())
	require.NoError(t, err)
	defer rec.Close()

	results := []model.WatchlistResult{
		{Entry: model.WatchlistEntry{Symbol: "600900", Name: "长江电力", Strategy: model.StrategyBond},
			Price: 28, PE: 20, PB: 3, Yield: 3.39, Spread: 1.29, Status: "✅ 合理"},
		{Entry: model.WatchlistEntry{Symbol: "000858", Name: "五粮液", Strategy: model.StrategyGrid},
			Price: 120, PE: math.NaN(), PB: math.NaN(), Yield: 3.89, Spread: 1.79, Status: "🔥 小额建仓"},
	}
	require.NoError(t, rec.RecordWatchlist("run-1", results))

	assert.Equal(t, 2, count(t, rec.db, `SELECT COUNT(*) FROM watchlist_snapshots`))
	assert.Equal(t, 1, count(t, rec.db, `SELECT COUNT(*) FROM watchlist_snapshots WHERE pe IS NULL`))
}

func TestSQLiteRecorder_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	rec, err := NewSQLiteRecorder(path, logging.NewSilent())
	require.NoError(t, err)
	require.NoError(t, rec.RecordRun(sampleReport()))
	require.NoError(t, rec.Close())

	rec, err = NewSQLiteRecorder(path, logging.NewSilent())
	require.NoError(t, err)
	defer rec.Close()
	assert.Equal(t, 1, count(t, rec.db, `SELECT COUNT(*) FROM scan_runs`))
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordRun(sampleReport()))
	assert.NoError(t, rec.RecordWatchlist("x", nil))
	assert.NoError(t, rec.Close())
}
