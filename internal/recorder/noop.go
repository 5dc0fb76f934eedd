package recorder

import "github.com/kyaniteli/daily-energy-strategy/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.ScanReport) error                       { return nil }
func (n *NoopRecorder) RecordWatchlist(_ string, _ []model.WatchlistResult) error { return nil }
func (n *NoopRecorder) Close() error                                              { return nil }
