package strategy

import (
	"sort"
	"strings"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// FilterCandidates applies the hard screens to the bulk snapshot and returns at most
// cfg.ScanLimit rows, smallest market cap first.
func FilterCandidates(rows []model.Instrument, cfg config.ScreenConfig) []model.Instrument {
	var out []model.Instrument
	for _, r := range rows {
		if hasAnySubstring(r.Name, cfg.NameBlacklist) {
			continue
		}
		if hasAnyPrefix(r.Symbol, cfg.ExcludePrefixes) {
			continue
		}
		if !r.Valid() {
			continue
		}
		if r.Price <= cfg.MinPrice || r.Price >= cfg.MaxPrice {
			continue
		}
		if r.MarketCap >= cfg.MaxMarketCap {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MarketCap < out[j].MarketCap
	})
	if cfg.ScanLimit > 0 && len(out) > cfg.ScanLimit {
		out = out[:cfg.ScanLimit]
	}
	return out
}

func hasAnySubstring(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
