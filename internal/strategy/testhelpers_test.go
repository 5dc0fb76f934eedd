package strategy

import (
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/collector"
	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

var seriesStart = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

// floorSeries builds four years of daily closes: a stretch at high, a stretch at low,
// then tail bars at tailClose, so the monthly range is [low, high] and MA250 equals tailClose.
func floorSeries(symbol string, high, low, tailClose float64) model.HistoricalSeries {
	const total = 1460
	closes := make([]float64, total)
	for i := range closes {
		switch {
		case i < 300:
			closes[i] = high
		case i < total-300:
			closes[i] = low
		default:
			closes[i] = tailClose
		}
	}
	return model.HistoricalSeries{Symbol: symbol, Bars: collector.BarsFromCloses(seriesStart, closes)}
}

func flatSeries(symbol string, price float64, n int) model.HistoricalSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return model.HistoricalSeries{Symbol: symbol, Bars: collector.BarsFromCloses(seriesStart, closes)}
}

func defaultScoreConfig() config.ScoreConfig {
	return config.Default().Score
}

func defaultScreenConfig() config.ScreenConfig {
	return config.Default().Screen
}

func inst(symbol, name string, price, capYi float64) model.Instrument {
	return model.Instrument{Symbol: symbol, Name: name, Price: price, MarketCap: capYi * 1e8, PE: 10, PB: 1}
}
