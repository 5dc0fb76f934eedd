package model

// StrategyType selects how a watchlist entry is valued.
type StrategyType string

const (
	StrategyBond      StrategyType = "bond"
	StrategyGrowth    StrategyType = "growth"
	StrategyValue     StrategyType = "value"
	StrategyOffensive StrategyType = "offensive"
	StrategyPB        StrategyType = "pb"
	StrategyGrid      StrategyType = "grid"
)

// WatchlistEntry is a hand-curated holding with static valuation inputs.
type WatchlistEntry struct {
	Symbol     string       `yaml:"symbol"`
	Name       string       `yaml:"name"`
	Role       string       `yaml:"role"`
	DPS        float64      `yaml:"dps"` // dividend per share, yuan
	Strategy   StrategyType `yaml:"strategy"`
	KeyMetric  string       `yaml:"key_metric"`
	Commentary string       `yaml:"commentary"`
	GridBands  []float64    `yaml:"grid_bands"` // descending, used by StrategyGrid
}

// WatchlistResult is one evaluated watchlist row.
type WatchlistResult struct {
	Entry     WatchlistEntry
	Price     float64
	PE        float64
	PB        float64
	Yield     float64 // percent
	Spread    float64 // yield minus bond anchor, percent points
	Status    string
	Highlight bool
}
