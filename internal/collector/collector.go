package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

var (
	// ErrEmptySnapshot is returned when the snapshot source yields no rows.
	ErrEmptySnapshot = errors.New("snapshot returned no rows")
	// ErrHistoryUnavailable is returned when history retries are exhausted.
	ErrHistoryUnavailable = errors.New("history unavailable")
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Rows        []model.Instrument
	SnapshotErr error
	Bars        map[string][]model.OHLCV
	Errs        map[string]error // returned on every call for the symbol
	FailFirst   map[string]int   // transient failures before success

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSnapshot(_ context.Context) ([]model.Instrument, error) {
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	return m.Rows, nil
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, _, _ time.Time, _ Adjust) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	n := m.calls[symbol]
	m.mu.Unlock()

	if err := m.Errs[symbol]; err != nil {
		return nil, err
	}
	if n <= m.FailFirst[symbol] {
		return nil, fmt.Errorf("mock transient failure %d for %s", n, symbol)
	}
	return m.Bars[symbol], nil
}

// Calls returns how many history requests were made for symbol.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// BarsFromCloses builds one bar per calendar day starting at start.
func BarsFromCloses(start time.Time, closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches the bulk snapshot with bounded retries.
type Collector struct {
	Fetcher SnapshotFetcher
	Retry   RetryPolicy
	logger  *logging.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher SnapshotFetcher, retry RetryPolicy, logger *logging.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Retry: retry, logger: logger}
}

// Snapshot returns the full quote table. Zero rows is an error.
func (c *Collector) Snapshot(ctx context.Context) ([]model.Instrument, error) {
	var rows []model.Instrument
	attempt := 0
	op := func() error {
		attempt++
		var err error
		rows, err = c.Fetcher.FetchSnapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).
			Str("source", c.Fetcher.Name()).Msg("snapshot fetch failed")
	}
	if err := backoff.RetryNotify(op, c.Retry.backOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch snapshot from %s: %w", c.Fetcher.Name(), err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySnapshot
	}
	c.logger.Info().Int("rows", len(rows)).Str("source", c.Fetcher.Name()).Msg("snapshot loaded")
	return rows, nil
}
