package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// Watchlist status labels.
const (
	StatusBondCheap = "💎 低估"
	StatusBondFair  = "✅ 合理"
	StatusBondDear  = "⚠️ 略贵"
	StatusBuyZone   = "✅ 击球区"
	StatusOverheat  = "⚠️ 过热"
	StatusHold      = "😐 持有"
	StatusBrokenPB  = "💎 破净"
	StatusGridHeavy = "🔥🔥🔥 重仓加仓"
	StatusGridAdd   = "🔥🔥 加仓"
	StatusGridStart = "🔥 小额建仓"
	StatusGridWait  = "⏳ 等待"
	StatusNoQuote   = "😐 无报价"
)

var hundred = decimal.NewFromInt(100)

// EvaluateWatchlist classifies each entry found in rows, preserving entry order.
// Entries absent from the snapshot are skipped.
func EvaluateWatchlist(rows []model.Instrument, entries []model.WatchlistEntry, cfg config.ValuationConfig) []model.WatchlistResult {
	bySymbol := make(map[string]model.Instrument, len(rows))
	for _, r := range rows {
		bySymbol[r.Symbol] = r
	}

	results := make([]model.WatchlistResult, 0, len(entries))
	for _, e := range entries {
		inst, ok := bySymbol[e.Symbol]
		if !ok {
			continue
		}
		results = append(results, evaluateEntry(inst, e, cfg))
	}
	return results
}

func evaluateEntry(inst model.Instrument, e model.WatchlistEntry, cfg config.ValuationConfig) model.WatchlistResult {
	res := model.WatchlistResult{
		Entry: e,
		Price: inst.Price,
		PE:    inst.PE,
		PB:    inst.PB,
	}
	if !finite(inst.Price) || inst.Price <= 0 {
		res.Status = StatusNoQuote
		return res
	}

	yield := decimal.NewFromFloat(e.DPS).
		Div(decimal.NewFromFloat(inst.Price)).
		Mul(hundred).
		Round(2)
	spread := yield.Sub(decimal.NewFromFloat(cfg.BondYield)).Round(2)
	res.Yield = yield.InexactFloat64()
	res.Spread = spread.InexactFloat64()

	switch e.Strategy {
	case model.StrategyBond:
		switch {
		case spread.GreaterThanOrEqual(decimal.NewFromFloat(cfg.BondSpreadCheap)):
			res.Status, res.Highlight = StatusBondCheap, true
		case spread.GreaterThanOrEqual(decimal.NewFromFloat(cfg.BondSpreadFair)):
			res.Status = StatusBondFair
		default:
			res.Status = StatusBondDear
		}
	case model.StrategyGrowth, model.StrategyValue, model.StrategyOffensive:
		pe := inst.PE
		switch {
		case finite(pe) && pe > 0 && pe < cfg.PECheap:
			res.Status, res.Highlight = StatusBuyZone, true
		case finite(pe) && pe > cfg.PEHot:
			res.Status = StatusOverheat
		default:
			res.Status = StatusHold
		}
	case model.StrategyPB:
		pb := inst.PB
		switch {
		case finite(pb) && pb > 0 && pb < cfg.PBBroken:
			res.Status, res.Highlight = StatusBrokenPB, true
		case finite(pb) && pb > 0 && pb < cfg.PBCheap:
			res.Status, res.Highlight = StatusBuyZone, true
		case finite(pb) && pb > cfg.PBHot:
			res.Status = StatusOverheat
		default:
			res.Status = StatusHold
		}
	case model.StrategyGrid:
		res.Status, res.Highlight = gridStatus(inst.Price, e.GridBands)
	default:
		res.Status = StatusHold
	}
	return res
}

// gridStatus maps price onto three descending bands b1 > b2 > b3.
func gridStatus(price float64, bands []float64) (string, bool) {
	if len(bands) != 3 {
		return StatusHold, false
	}
	switch {
	case price <= bands[2]:
		return StatusGridHeavy, true
	case price <= bands[1]:
		return StatusGridAdd, true
	case price <= bands[0]:
		return StatusGridStart, true
	default:
		return StatusGridWait, false
	}
}
