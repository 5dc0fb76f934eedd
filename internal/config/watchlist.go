package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// Watchlist is the static portfolio table plus the motto pool shown in the report header.
type Watchlist struct {
	Quotes  []string               `yaml:"quotes"`
	Entries []model.WatchlistEntry `yaml:"entries"`
}

// Symbols returns the watchlist symbols in table order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, len(w.Entries))
	for i, e := range w.Entries {
		out[i] = e.Symbol
	}
	return out
}

// LoadWatchlist reads the watchlist YAML. A missing path or file yields DefaultWatchlist.
func LoadWatchlist(path string) (*Watchlist, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultWatchlist(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWatchlist(), nil
		}
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if err := wl.Validate(); err != nil {
		return nil, err
	}
	if len(wl.Quotes) == 0 {
		wl.Quotes = DefaultWatchlist().Quotes
	}
	return &wl, nil
}

// Validate checks every entry has a symbol, a known strategy and usable grid bands.
func (w *Watchlist) Validate() error {
	seen := make(map[string]bool)
	for i, e := range w.Entries {
		if strings.TrimSpace(e.Symbol) == "" {
			return fmt.Errorf("watchlist entry %d: symbol is required", i)
		}
		if seen[e.Symbol] {
			return fmt.Errorf("watchlist entry %s: duplicate symbol", e.Symbol)
		}
		seen[e.Symbol] = true
		switch e.Strategy {
		case model.StrategyBond, model.StrategyGrowth, model.StrategyValue,
			model.StrategyOffensive, model.StrategyPB:
		case model.StrategyGrid:
			if len(e.GridBands) != 3 {
				return fmt.Errorf("watchlist entry %s: grid strategy needs 3 bands", e.Symbol)
			}
			if !(e.GridBands[0] > e.GridBands[1] && e.GridBands[1] > e.GridBands[2]) {
				return fmt.Errorf("watchlist entry %s: grid bands must be descending", e.Symbol)
			}
		default:
			return fmt.Errorf("watchlist entry %s: unknown strategy %q", e.Symbol, e.Strategy)
		}
	}
	return nil
}

// DefaultWatchlist returns the built-in core holdings table.
func DefaultWatchlist() *Watchlist {
	return &Watchlist{
		Quotes: []string{
			"“长江的水，神华的煤，广核的电，茅台的酒。这是中国最硬的物理资产。”",
			"“太贵了就不买，哪怕它涨到天上去。错失不是亏损。”",
			"“不要羡慕泡沫，泡沫破裂时，只有我们的水电站还在印钞。”",
			"“只做升级，不做轮动。看不懂的钱不赚，太贵的货不买。”",
			"“真正的风控，是买入那个 30 年后肯定还在的公司。”",
		},
		Entries: []model.WatchlistEntry{
			{Symbol: "600900", Name: "长江电力", Role: "🏔️ 养老基石", DPS: 0.95, Strategy: model.StrategyBond,
				KeyMetric: "股息率", Commentary: "它负责兜底。只要跌下来，就是加仓送分题。"},
			{Symbol: "601088", Name: "中国神华", Role: "⚫️ 能源底座", DPS: 2.62, Strategy: model.StrategyBond,
				KeyMetric: "股息率", Commentary: "家里有矿，心中不慌。高位不追，回调加仓。"},
			{Symbol: "601006", Name: "大秦铁路", Role: "🛤️ 国家存折", DPS: 0.44, Strategy: model.StrategyBond,
				KeyMetric: "股息率", Commentary: "这是甚至不需要看K线的股票。把它当成永续债。"},
			{Symbol: "601985", Name: "中国核电", Role: "⚛️ 绿色引擎", DPS: 0.17, Strategy: model.StrategyGrowth,
				KeyMetric: "PE(TTM)", Commentary: "还在长身体的孩子。工资定投的首选对象。"},
			{Symbol: "600519", Name: "贵州茅台", Role: "👑 A股之王", DPS: 30.8, Strategy: model.StrategyValue,
				KeyMetric: "PE(TTM)", Commentary: "它是社交货币。跌破1400是上帝给的礼物。"},
			{Symbol: "000858", Name: "五粮液", Role: "🍷 价值前锋", DPS: 4.67, Strategy: model.StrategyGrid,
				KeyMetric: "价格网格", Commentary: "这是翻身仗。110左右极度低估，125以下只买不卖。",
				GridBands: []float64{125, 118, 110}},
			{Symbol: "000333", Name: "美的集团", Role: "🤖 全球制造", DPS: 3.0, Strategy: model.StrategyGrowth,
				KeyMetric: "PE(TTM)", Commentary: "代替京沪高铁和紫金，中国制造业巅峰。"},
			{Symbol: "000568", Name: "泸州老窖", Role: "🚀 进攻核心", DPS: 6.30, Strategy: model.StrategyOffensive,
				KeyMetric: "PE(TTM)", Commentary: "5.4%股息率是保底，PE 12倍是期权。"},
			{Symbol: "002415", Name: "海康威视", Role: "📹 智能监控", DPS: 0.40, Strategy: model.StrategyGrowth,
				KeyMetric: "PE(TTM)", Commentary: "专注全球安防与AI增长，估值合理时是长期定投标的。"},
		},
	}
}
