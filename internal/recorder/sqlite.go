package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// SQLiteRecorder appends run results to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *logging.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *logging.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL UNIQUE,
			timestamp  INTEGER NOT NULL,
			universe   INTEGER,
			screened   INTEGER,
			accepted   INTEGER,
			ranked     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON scan_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_candidates (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			name           TEXT,
			rank_no        INTEGER,
			price          REAL,
			market_cap     REAL,
			position       REAL,
			hist_high      REAL,
			hist_low       REAL,
			ma             REAL,
			distance_to_ma REAL,
			momentum       INTEGER,
			rsi            REAL,
			score          REAL,
			status         TEXT,
			reason         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON scan_candidates(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_symbol ON scan_candidates(symbol)`,

		`CREATE TABLE IF NOT EXISTS watchlist_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			name      TEXT,
			strategy  TEXT,
			price     REAL,
			pe        REAL,
			pb        REAL,
			yield     REAL,
			spread    REAL,
			status    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_symbol_ts ON watchlist_snapshots(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run header plus one row per scored symbol, accepted or excluded.
func (r *SQLiteRecorder) RecordRun(report *model.ScanReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rank := make(map[string]int, len(report.Ranked))
	for i, c := range report.Ranked {
		rank[c.Symbol] = i + 1
	}
	accepted := 0
	for _, o := range report.Outcomes {
		if o.Accepted() {
			accepted++
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO scan_runs
		(run_id, timestamp, universe, screened, accepted, ranked)
		VALUES (?,?,?,?,?,?)`,
		report.RunID, report.StartedAt.Unix(), report.Universe, report.Screened,
		accepted, len(report.Ranked),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO scan_candidates
		(run_id, symbol, name, rank_no, price, market_cap, position, hist_high, hist_low,
		 ma, distance_to_ma, momentum, rsi, score, status, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range report.Outcomes {
		if o.Accepted() {
			c := o.Result
			var rk any
			if n, ok := rank[c.Symbol]; ok {
				rk = n
			}
			_, err = stmt.Exec(report.RunID, c.Symbol, c.Name, rk,
				nullFloat(c.Price), nullFloat(c.MarketCap), nullFloat(c.Position),
				nullFloat(c.HistHigh), nullFloat(c.HistLow), nullFloat(c.MA),
				nullFloat(c.DistanceToMA), c.Momentum, nullFloat(c.RSI), nullFloat(c.Score),
				c.Status, nil)
		} else {
			_, err = stmt.Exec(report.RunID, o.Symbol, o.Name, nil,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, string(o.Reason))
		}
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", o.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecordWatchlist stores one snapshot row per evaluated watchlist entry.
func (r *SQLiteRecorder) RecordWatchlist(runID string, results []model.WatchlistResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := r.now().Unix()
	for _, w := range results {
		if _, err := tx.Exec(`INSERT INTO watchlist_snapshots
			(run_id, timestamp, symbol, name, strategy, price, pe, pb, yield, spread, status)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			runID, now, w.Entry.Symbol, w.Entry.Name, string(w.Entry.Strategy),
			nullFloat(w.Price), nullFloat(w.PE), nullFloat(w.PB),
			nullFloat(w.Yield), nullFloat(w.Spread), w.Status,
		); err != nil {
			return fmt.Errorf("insert watchlist %s: %w", w.Entry.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

// nullFloat maps NaN and Inf to SQL NULL.
func nullFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
