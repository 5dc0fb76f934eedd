package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// RetryPolicy is a bounded retry with a constant delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// HistoryProvider fetches a symbol's daily series with throttling and retries.
type HistoryProvider struct {
	fetcher HistoryFetcher
	policy  RetryPolicy
	limiter *rate.Limiter
	years   int
	adjust  Adjust
	now     func() time.Time
	logger  *logging.Logger
}

// NewHistoryProvider creates a provider. interval is the minimum gap between symbol lookups.
func NewHistoryProvider(fetcher HistoryFetcher, policy RetryPolicy, interval time.Duration, years int, adjust Adjust, logger *logging.Logger) *HistoryProvider {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if years <= 0 {
		years = 4
	}
	return &HistoryProvider{
		fetcher: fetcher,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		years:   years,
		adjust:  adjust,
		now:     time.Now,
		logger:  logger,
	}
}

// Fetch returns the series for symbol over the configured window.
// Exhausted retries yield ErrHistoryUnavailable wrapping the last cause.
func (p *HistoryProvider) Fetch(ctx context.Context, symbol string) (model.HistoricalSeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.HistoricalSeries{}, fmt.Errorf("throttle %s: %w", symbol, err)
	}

	end := p.now()
	start := end.AddDate(-p.years, 0, 0)

	var bars []model.OHLCV
	attempt := 0
	op := func() error {
		attempt++
		var err error
		bars, err = p.fetcher.FetchDailyBars(ctx, symbol, start, end, p.adjust)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		p.logger.Debug().Err(err).Str("symbol", symbol).Int("attempt", attempt).
			Dur("retry_in", next).Msg("history fetch failed")
	}
	if err := backoff.RetryNotify(op, p.policy.backOff(ctx), notify); err != nil {
		if ctx.Err() != nil {
			return model.HistoricalSeries{}, ctx.Err()
		}
		return model.HistoricalSeries{}, fmt.Errorf("%w: %s after %d attempts: %v", ErrHistoryUnavailable, symbol, attempt, err)
	}
	return model.HistoricalSeries{Symbol: symbol, Bars: bars}, nil
}
