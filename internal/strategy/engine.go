package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// HistorySource returns the daily series for one symbol.
type HistorySource interface {
	Fetch(ctx context.Context, symbol string) (model.HistoricalSeries, error)
}

// Engine runs filter, history lookup, scoring and ranking over one snapshot.
type Engine struct {
	history HistorySource
	scorer  *Scorer
	screen  config.ScreenConfig
	score   config.ScoreConfig
	logger  *logging.Logger
	now     func() time.Time
}

// NewEngine creates an Engine. Config values are copied.
func NewEngine(history HistorySource, screen config.ScreenConfig, score config.ScoreConfig, logger *logging.Logger) *Engine {
	return &Engine{
		history: history,
		scorer:  NewScorer(score),
		screen:  screen,
		score:   score,
		logger:  logger,
		now:     time.Now,
	}
}

// Scan screens rows and scores each surviving candidate sequentially.
// Per-symbol failures are recorded as outcomes; only context cancellation aborts.
func (e *Engine) Scan(ctx context.Context, rows []model.Instrument) (*model.ScanReport, error) {
	report := &model.ScanReport{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
		Universe:  len(rows),
	}
	log := e.logger.With().Str("run_id", report.RunID).Logger()

	candidates := FilterCandidates(rows, e.screen)
	report.Screened = len(candidates)
	log.Info().Int("universe", len(rows)).Int("screened", len(candidates)).Msg("candidate filter done")

	var accepted []model.CandidateResult
	for i, inst := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var outcome model.ScoreOutcome
		series, err := e.history.Fetch(ctx, inst.Symbol)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			outcome = model.ScoreOutcome{
				Symbol: inst.Symbol,
				Name:   inst.Name,
				Reason: model.ReasonHistoryUnavailable,
				Err:    err,
			}
		} else {
			outcome = e.scorer.Score(inst, series)
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Accepted() {
			accepted = append(accepted, *outcome.Result)
			log.Debug().Str("symbol", inst.Symbol).Int("n", i+1).
				Float64("position", outcome.Result.Position).
				Float64("score", outcome.Result.Score).
				Msg("candidate accepted")
			continue
		}
		ev := log.Debug().Str("symbol", inst.Symbol).Int("n", i+1).Str("reason", string(outcome.Reason))
		if outcome.Err != nil {
			ev = ev.AnErr("cause", outcome.Err)
		}
		ev.Msg("candidate excluded")
	}

	if e.score.RankBy == "position" {
		report.Ranked = RankByPosition(accepted, e.score.TopK)
	} else {
		report.Ranked = Rank(accepted, e.score.TopK)
	}
	log.Info().Int("accepted", len(accepted)).Int("ranked", len(report.Ranked)).Msg("scan finished")
	return report, nil
}
