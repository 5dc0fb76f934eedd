package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kyaniteli/daily-energy-strategy/internal/collector"
	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/notifier"
	"github.com/kyaniteli/daily-energy-strategy/internal/recorder"
	"github.com/kyaniteli/daily-energy-strategy/internal/scheduler"
	"github.com/kyaniteli/daily-energy-strategy/internal/strategy"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "report",
		Usage:   "A-share daily strategy report: watchlist valuation plus floor-position scan",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
				Usage:   "path to the YAML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file with secrets; existing environment wins",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "also write the Markdown report to this file",
			},
		},
		Action: runOnce,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the pipeline once and exit (default)",
				Action: runOnce,
			},
			{
				Name:   "schedule",
				Usage:  "run the pipeline on the daily cron schedule until interrupted",
				Action: runSchedule,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		stop()
		os.Exit(1)
	}
}

type application struct {
	cfg    *config.Config
	logger *logging.Logger
	sched  *scheduler.Scheduler
	rec    recorder.Recorder
}

func (a *application) close() {
	if err := a.rec.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close recorder")
	}
}

func setup(cCtx *cli.Context) (*application, error) {
	if err := config.LoadDotEnv(cCtx.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cCtx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger := logging.New(cfg.Logging.Level)

	wl, err := config.LoadWatchlist(cfg.WatchlistFile)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}

	adjust, err := collector.ParseAdjust(cfg.History.Adjust)
	if err != nil {
		return nil, err
	}

	em := collector.NewEastmoneyFetcher(cfg.DataSource.SnapshotURL, cfg.DataSource.KlineURL,
		cfg.DataSource.PageSize, cfg.DataSource.Timeout.Duration, cfg.Proxy)
	var snapshot collector.SnapshotFetcher = em
	if cfg.DataSource.Provider == "csv" {
		snapshot = collector.NewCSVSnapshotFetcher(cfg.DataSource.SnapshotCSV)
	}
	logger.Info().Str("snapshot", snapshot.Name()).Str("history", em.Name()).Msg("data source")

	col := collector.NewCollector(snapshot,
		collector.RetryPolicy{MaxAttempts: cfg.DataSource.SnapshotRetry, Delay: cfg.History.RetryDelay.Duration}, logger)
	history := collector.NewHistoryProvider(em,
		collector.RetryPolicy{MaxAttempts: cfg.History.MaxAttempts, Delay: cfg.History.RetryDelay.Duration},
		cfg.History.RequestInterval.Duration, cfg.History.Years, adjust, logger)
	eng := strategy.NewEngine(history, cfg.Screen, cfg.Score, logger)

	disp := notifier.NewDispatcher(logger,
		notifier.NewPushPlusNotifier(cfg.Notify.PushPlus, cfg.Proxy, logger),
		notifier.NewMailNotifier(cfg.Notify.Mail, logger),
	)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	sched := scheduler.NewScheduler(cCtx.Context, cfg, col, eng, wl, disp, rec, logger)
	sched.MarkdownPath = cCtx.String("output")

	return &application{cfg: cfg, logger: logger, sched: sched, rec: rec}, nil
}

func runOnce(cCtx *cli.Context) error {
	app, err := setup(cCtx)
	if err != nil {
		return err
	}
	defer app.close()
	printBanner(app.cfg, "run", app.logger)

	if _, err := app.sched.RunDaily(cCtx.Context); err != nil {
		app.logger.Error().Err(err).Msg("run aborted, no report sent")
		return cli.Exit("", 1)
	}
	return nil
}

func runSchedule(cCtx *cli.Context) error {
	app, err := setup(cCtx)
	if err != nil {
		return err
	}
	defer app.close()
	printBanner(app.cfg, "schedule", app.logger)

	if err := app.sched.Register(app.cfg.Schedule.DailyCron); err != nil {
		return err
	}
	app.sched.Start()

	if app.cfg.Schedule.RunOnStart {
		app.logger.Info().Msg("run_on_start enabled, executing daily task now")
		go func() {
			if _, err := app.sched.RunDaily(cCtx.Context); err != nil {
				app.logger.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	app.logger.Info().Msg("scheduler is running. Press Ctrl+C to stop.")
	<-cCtx.Context.Done()

	app.logger.Info().Msg("shutdown signal received, stopping...")
	app.sched.Stop()
	return nil
}
