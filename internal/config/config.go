package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from strings such as "500ms".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be scalar")
	}
	dd, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

// Config holds all application configuration.
type Config struct {
	DataSource    DataSourceConfig `yaml:"data_source"`
	History       HistoryConfig    `yaml:"history"`
	Screen        ScreenConfig     `yaml:"screen"`
	Score         ScoreConfig      `yaml:"score"`
	Valuation     ValuationConfig  `yaml:"valuation"`
	WatchlistFile string           `yaml:"watchlist_file"`
	Notify        NotifyConfig     `yaml:"notify"`
	Schedule      ScheduleConfig   `yaml:"schedule"`
	Database      DatabaseConfig   `yaml:"database"`
	Logging       LoggingConfig    `yaml:"logging"`
	Proxy         string           `yaml:"proxy"`
}

// DataSourceConfig selects the market data provider.
type DataSourceConfig struct {
	Provider      string   `yaml:"provider"` // eastmoney | csv
	SnapshotURL   string   `yaml:"snapshot_url"`
	KlineURL      string   `yaml:"kline_url"`
	SnapshotCSV   string   `yaml:"snapshot_csv"`
	PageSize      int      `yaml:"page_size"`
	Timeout       Duration `yaml:"timeout"`
	SnapshotRetry int      `yaml:"snapshot_retry"`
}

// HistoryConfig controls the per-symbol history fetch.
type HistoryConfig struct {
	Years           int      `yaml:"years"`
	Adjust          string   `yaml:"adjust"` // qfq | hfq | none
	RequestInterval Duration `yaml:"request_interval"`
	MaxAttempts     int      `yaml:"max_attempts"`
	RetryDelay      Duration `yaml:"retry_delay"`
}

// ScreenConfig drives the candidate filter.
type ScreenConfig struct {
	MaxPrice        float64  `yaml:"max_price"`
	MinPrice        float64  `yaml:"min_price"`
	MaxMarketCap    float64  `yaml:"max_market_cap"` // yuan
	NameBlacklist   []string `yaml:"name_blacklist"`
	ExcludePrefixes []string `yaml:"exclude_prefixes"`
	ScanLimit       int      `yaml:"scan_limit"`
}

// BoardBoost adds a bonus to symbols on a particular board segment.
type BoardBoost struct {
	Enabled  bool     `yaml:"enabled"`
	Prefixes []string `yaml:"prefixes"`
	Bonus    float64  `yaml:"bonus"`
}

// ScoreConfig drives the position scorer and ranker.
type ScoreConfig struct {
	MinBars           int        `yaml:"min_bars"`
	MinMonths         int        `yaml:"min_months"`
	PositionThreshold float64    `yaml:"position_threshold"` // fraction, e.g. 0.20
	MAWindow          int        `yaml:"ma_window"`
	MaxMADeviation    float64    `yaml:"max_ma_deviation"`
	MADistanceCap     float64    `yaml:"ma_distance_cap"`
	NearMABand        float64    `yaml:"near_ma_band"`
	PositionWeight    float64    `yaml:"position_weight"`
	MAWeight          float64    `yaml:"ma_weight"`
	MomentumBonus     float64    `yaml:"momentum_bonus"`
	MomentumMinBars   int        `yaml:"momentum_min_bars"`
	BoardBoost        BoardBoost `yaml:"board_boost"`
	TopK              int        `yaml:"top_k"`
	RankBy            string     `yaml:"rank_by"` // score | position
}

// ValuationConfig holds the watchlist thresholds.
type ValuationConfig struct {
	BondYield       float64 `yaml:"bond_yield"` // percent
	BondSpreadCheap float64 `yaml:"bond_spread_cheap"`
	BondSpreadFair  float64 `yaml:"bond_spread_fair"`
	PECheap         float64 `yaml:"pe_cheap"`
	PEHot           float64 `yaml:"pe_hot"`
	PBBroken        float64 `yaml:"pb_broken"`
	PBCheap         float64 `yaml:"pb_cheap"`
	PBHot           float64 `yaml:"pb_hot"`
}

// NotifyConfig holds the delivery channels. Missing credentials disable a channel.
type NotifyConfig struct {
	PushPlus PushPlusConfig `yaml:"pushplus"`
	Mail     MailConfig     `yaml:"mail"`
	Chart    bool           `yaml:"chart"`
}

// PushPlusConfig configures the webhook channel.
type PushPlusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Token      string `yaml:"token"`       // comma-separated
	MaxRetries int    `yaml:"max_retries"` // 0 means default (1), negative disables retries
}

// MailConfig configures the SMTP channel.
type MailConfig struct {
	Host      string `yaml:"host"`
	SSLPort   int    `yaml:"ssl_port"`
	TLSPort   int    `yaml:"tls_port"`
	Sender    string `yaml:"sender"`
	Password  string `yaml:"password"`
	Receivers string `yaml:"receivers"` // comma-separated
}

// ScheduleConfig configures the schedule command.
type ScheduleConfig struct {
	DailyCron  string `yaml:"daily_cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// DatabaseConfig configures the optional run archive.
type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PUSHPLUS_TOKEN"); v != "" {
		c.Notify.PushPlus.Token = v
	}
	if v := os.Getenv("MAIL_SENDER"); v != "" {
		c.Notify.Mail.Sender = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		c.Notify.Mail.Password = v
	}
	if v := os.Getenv("MAIL_RECEIVERS"); v != "" {
		c.Notify.Mail.Receivers = v
	}
	if v := os.Getenv("MAIL_SMTP_HOST"); v != "" {
		c.Notify.Mail.Host = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("SCAN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Screen.ScanLimit = n
		}
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Schedule.RunOnStart = b
		}
	}
}

func (c *Config) applyDefaults() {
	// Data source
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "eastmoney"
	}
	if c.DataSource.SnapshotURL == "" {
		c.DataSource.SnapshotURL = "https://push2.eastmoney.com/api/qt/clist/get"
	}
	if c.DataSource.KlineURL == "" {
		c.DataSource.KlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	}
	if c.DataSource.PageSize <= 0 {
		c.DataSource.PageSize = 100
	}
	if c.DataSource.Timeout.Duration <= 0 {
		c.DataSource.Timeout = Duration{30 * time.Second}
	}
	if c.DataSource.SnapshotRetry <= 0 {
		c.DataSource.SnapshotRetry = 3
	}

	// History
	if c.History.Years <= 0 {
		c.History.Years = 4
	}
	if c.History.Adjust == "" {
		c.History.Adjust = "qfq"
	}
	if c.History.RequestInterval.Duration <= 0 {
		c.History.RequestInterval = Duration{500 * time.Millisecond}
	}
	if c.History.MaxAttempts <= 0 {
		c.History.MaxAttempts = 3
	}
	if c.History.RetryDelay.Duration <= 0 {
		c.History.RetryDelay = Duration{2 * time.Second}
	}

	// Screen
	if c.Screen.MaxPrice == 0 {
		c.Screen.MaxPrice = 15
	}
	if c.Screen.MinPrice == 0 {
		c.Screen.MinPrice = 2
	}
	if c.Screen.MaxMarketCap == 0 {
		c.Screen.MaxMarketCap = 60e8
	}
	if c.Screen.NameBlacklist == nil {
		c.Screen.NameBlacklist = []string{"ST", "退"}
	}
	if c.Screen.ExcludePrefixes == nil {
		c.Screen.ExcludePrefixes = []string{"8", "4", "92"}
	}
	if c.Screen.ScanLimit == 0 {
		c.Screen.ScanLimit = 50
	}

	// Score
	s := &c.Score
	if s.MinBars == 0 {
		s.MinBars = 100
	}
	if s.MinMonths == 0 {
		s.MinMonths = 12
	}
	if s.PositionThreshold == 0 {
		s.PositionThreshold = 0.20
	}
	if s.MAWindow == 0 {
		s.MAWindow = 250
	}
	if s.MaxMADeviation == 0 {
		s.MaxMADeviation = 0.15
	}
	if s.MADistanceCap == 0 {
		s.MADistanceCap = 0.20
	}
	if s.NearMABand == 0 {
		s.NearMABand = 0.05
	}
	if s.PositionWeight == 0 {
		s.PositionWeight = 50
	}
	if s.MAWeight == 0 {
		s.MAWeight = 30
	}
	if s.MomentumBonus == 0 {
		s.MomentumBonus = 10
	}
	if s.MomentumMinBars == 0 {
		s.MomentumMinBars = 30
	}
	if s.BoardBoost.Prefixes == nil {
		s.BoardBoost.Prefixes = []string{"300", "301"}
	}
	if s.BoardBoost.Bonus == 0 {
		s.BoardBoost.Bonus = 10
	}
	if s.TopK == 0 {
		s.TopK = 10
	}
	if s.RankBy == "" {
		s.RankBy = "score"
	}

	// Valuation
	v := &c.Valuation
	if v.BondYield == 0 {
		v.BondYield = 2.10
	}
	if v.BondSpreadCheap == 0 {
		v.BondSpreadCheap = 1.5
	}
	if v.BondSpreadFair == 0 {
		v.BondSpreadFair = 0.5
	}
	if v.PECheap == 0 {
		v.PECheap = 20
	}
	if v.PEHot == 0 {
		v.PEHot = 35
	}
	if v.PBBroken == 0 {
		v.PBBroken = 1.0
	}
	if v.PBCheap == 0 {
		v.PBCheap = 1.5
	}
	if v.PBHot == 0 {
		v.PBHot = 3.0
	}

	// Notify
	if c.Notify.PushPlus.Endpoint == "" {
		c.Notify.PushPlus.Endpoint = "http://www.pushplus.plus/send"
	}
	switch {
	case c.Notify.PushPlus.MaxRetries == 0:
		c.Notify.PushPlus.MaxRetries = 1
	case c.Notify.PushPlus.MaxRetries < 0:
		c.Notify.PushPlus.MaxRetries = 0
	}
	if c.Notify.Mail.Host == "" {
		c.Notify.Mail.Host = "smtp.qq.com"
	}
	if c.Notify.Mail.SSLPort == 0 {
		c.Notify.Mail.SSLPort = 465
	}
	if c.Notify.Mail.TLSPort == 0 {
		c.Notify.Mail.TLSPort = 587
	}

	// Schedule
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 15 * * 1-5"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that thresholds are usable. Notification credentials are optional.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "eastmoney":
	case "csv":
		if c.DataSource.SnapshotCSV == "" {
			return fmt.Errorf("data_source.snapshot_csv is required for the csv provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	switch c.History.Adjust {
	case "qfq", "hfq", "none":
	default:
		return fmt.Errorf("history.adjust %q must be qfq, hfq or none", c.History.Adjust)
	}
	if c.Screen.ScanLimit <= 0 {
		return fmt.Errorf("screen.scan_limit must be positive")
	}
	if c.Screen.MinPrice >= c.Screen.MaxPrice {
		return fmt.Errorf("screen.min_price must be below screen.max_price")
	}
	if c.Screen.MaxMarketCap <= 0 {
		return fmt.Errorf("screen.max_market_cap must be positive")
	}
	if c.Score.PositionThreshold <= 0 || c.Score.PositionThreshold > 1 {
		return fmt.Errorf("score.position_threshold must be in (0, 1]")
	}
	if c.Score.MAWindow <= 0 {
		return fmt.Errorf("score.ma_window must be positive")
	}
	if c.Score.MADistanceCap <= 0 {
		return fmt.Errorf("score.ma_distance_cap must be positive")
	}
	if c.Score.TopK <= 0 {
		return fmt.Errorf("score.top_k must be positive")
	}
	if c.Score.RankBy != "score" && c.Score.RankBy != "position" {
		return fmt.Errorf("score.rank_by %q must be score or position", c.Score.RankBy)
	}
	if c.History.MaxAttempts <= 0 {
		return fmt.Errorf("history.max_attempts must be positive")
	}
	return nil
}

// SplitList splits a comma-separated value, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
