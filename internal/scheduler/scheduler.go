package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kyaniteli/daily-energy-strategy/internal/collector"
	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
	"github.com/kyaniteli/daily-energy-strategy/internal/notifier"
	"github.com/kyaniteli/daily-energy-strategy/internal/recorder"
	"github.com/kyaniteli/daily-energy-strategy/internal/strategy"
)

// Scheduler runs the daily report pipeline, once on demand or on a cron schedule.
type Scheduler struct {
	Cron         *cron.Cron
	Collector    *collector.Collector
	Engine       *strategy.Engine
	Watchlist    *config.Watchlist
	Dispatcher   *notifier.Dispatcher
	Recorder     recorder.Recorder
	Config       *config.Config
	MarkdownPath string
	Ctx          context.Context

	logger *logging.Logger
	now    func() time.Time
}

// RunResult is what one pipeline run produced.
type RunResult struct {
	Report     *model.ScanReport
	Watchlist  []model.WatchlistResult
	Message    *notifier.Message
	Deliveries []notifier.Result
}

// NewScheduler creates a new Scheduler. Jobs never overlap.
func NewScheduler(ctx context.Context, cfg *config.Config, col *collector.Collector, eng *strategy.Engine,
	wl *config.Watchlist, disp *notifier.Dispatcher, rec recorder.Recorder, logger *logging.Logger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Collector:  col,
		Engine:     eng,
		Watchlist:  wl,
		Dispatcher: disp,
		Recorder:   rec,
		Config:     cfg,
		Ctx:        ctx,
		logger:     logger,
		now:        time.Now,
	}
}

// Register adds the daily job for spec (six-field cron with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	s.logger.Info().Str("cron", spec).Msg("daily task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunDaily(s.Ctx); err != nil {
		s.logger.Error().Err(err).Msg("daily task failed")
	}
}

// RunDaily runs the full pipeline once. Only a snapshot failure or cancellation
// returns an error; delivery and archive failures are logged.
func (s *Scheduler) RunDaily(ctx context.Context) (*RunResult, error) {
	s.logger.Info().Msg("running daily task")
	cfg := s.Config

	rows, err := s.Collector.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("market snapshot: %w", err)
	}

	watch := strategy.EvaluateWatchlist(rows, s.Watchlist.Entries, cfg.Valuation)
	s.logger.Info().Int("entries", len(watch)).Msg("watchlist evaluated")

	report, err := s.Engine.Scan(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	var chart []byte
	if cfg.Notify.Chart && len(report.Ranked) > 0 {
		if chart, err = notifier.RenderScoreChart(report.Ranked); err != nil {
			s.logger.Warn().Err(err).Msg("score chart skipped")
			chart = nil
		}
	}

	now := s.now()
	data := notifier.ReportData{
		Date:         now,
		Quote:        notifier.PickQuote(s.Watchlist.Quotes, nil),
		Phase:        notifier.MarketPhaseFor(now),
		BondYield:    cfg.Valuation.BondYield,
		Watchlist:    watch,
		Scan:         report,
		Screen:       cfg.Screen,
		Threshold:    cfg.Score.PositionThreshold,
		HistoryYears: cfg.History.Years,
	}
	msg, err := notifier.BuildMessage(data, chart)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	if s.MarkdownPath != "" {
		if err := os.WriteFile(s.MarkdownPath, []byte(msg.Markdown), 0o644); err != nil {
			s.logger.Error().Err(err).Str("path", s.MarkdownPath).Msg("write markdown report")
		} else {
			s.logger.Info().Str("path", s.MarkdownPath).Msg("markdown report written")
		}
	}

	deliveries := s.Dispatcher.Dispatch(ctx, msg)

	if err := s.Recorder.RecordRun(report); err != nil {
		s.logger.Error().Err(err).Msg("record run")
	}
	if err := s.Recorder.RecordWatchlist(report.RunID, watch); err != nil {
		s.logger.Error().Err(err).Msg("record watchlist")
	}

	s.logger.Info().Str("run_id", report.RunID).Int("ranked", len(report.Ranked)).
		Int("delivered", notifier.Delivered(deliveries)).Msg("daily task done")
	return &RunResult{Report: report, Watchlist: watch, Message: msg, Deliveries: deliveries}, nil
}

// cronLogger adapts the zerolog logger to cron.Logger.
type cronLogger struct {
	l *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
