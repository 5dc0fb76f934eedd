package recorder

import "github.com/kyaniteli/daily-energy-strategy/internal/model"

// Recorder archives run results for later analysis. Nothing is read back by the pipeline.
type Recorder interface {
	RecordRun(report *model.ScanReport) error
	RecordWatchlist(runID string, results []model.WatchlistResult) error
	Close() error
}
