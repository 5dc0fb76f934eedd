package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// Adjust is the price-adjustment mode for historical bars.
type Adjust string

const (
	AdjustNone     Adjust = "none"
	AdjustForward  Adjust = "qfq"
	AdjustBackward Adjust = "hfq"
)

// ParseAdjust maps a config value onto an Adjust mode.
func ParseAdjust(s string) (Adjust, error) {
	switch Adjust(s) {
	case AdjustNone, AdjustForward, AdjustBackward:
		return Adjust(s), nil
	}
	return "", fmt.Errorf("unknown adjust mode %q", s)
}

// SnapshotFetcher returns one row per listed instrument.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]model.Instrument, error)
	Name() string
}

// HistoryFetcher returns daily bars for a symbol within [start, end], ascending by date.
type HistoryFetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time, adjust Adjust) ([]model.OHLCV, error)
	Name() string
}
