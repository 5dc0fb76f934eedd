package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PUSHPLUS_TOKEN", "MAIL_SENDER", "MAIL_PASSWORD", "MAIL_RECEIVERS", "MAIL_SMTP_HOST",
		"HTTPS_PROXY", "SQLITE_PATH", "LOG_LEVEL", "CRON_DAILY", "SCAN_LIMIT", "RUN_ON_START",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "eastmoney", cfg.DataSource.Provider)
	assert.Equal(t, 15.0, cfg.Screen.MaxPrice)
	assert.Equal(t, 2.0, cfg.Screen.MinPrice)
	assert.Equal(t, 60e8, cfg.Screen.MaxMarketCap)
	assert.Equal(t, 50, cfg.Screen.ScanLimit)
	assert.Equal(t, []string{"ST", "退"}, cfg.Screen.NameBlacklist)
	assert.Equal(t, 0.20, cfg.Score.PositionThreshold)
	assert.Equal(t, 250, cfg.Score.MAWindow)
	assert.Equal(t, 10, cfg.Score.TopK)
	assert.Equal(t, 4, cfg.History.Years)
	assert.Equal(t, 500*time.Millisecond, cfg.History.RequestInterval.Duration)
	assert.Equal(t, 465, cfg.Notify.Mail.SSLPort)
	assert.Equal(t, 587, cfg.Notify.Mail.TLSPort)
	assert.Empty(t, cfg.Notify.PushPlus.Token)
	assert.Empty(t, cfg.Database.SQLitePath)
}

func TestLoad_YAMLThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
screen:
  max_price: 12
  scan_limit: 15
score:
  position_threshold: 0.15
  board_boost:
    enabled: true
history:
  request_interval: 800ms
notify:
  pushplus:
    token: from-yaml
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("PUSHPLUS_TOKEN", "from-env")
	t.Setenv("SCAN_LIMIT", "100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12.0, cfg.Screen.MaxPrice)
	assert.Equal(t, 100, cfg.Screen.ScanLimit)
	assert.Equal(t, 0.15, cfg.Score.PositionThreshold)
	assert.True(t, cfg.Score.BoardBoost.Enabled)
	assert.Equal(t, []string{"300", "301"}, cfg.Score.BoardBoost.Prefixes)
	assert.Equal(t, 800*time.Millisecond, cfg.History.RequestInterval.Duration)
	assert.Equal(t, "from-env", cfg.Notify.PushPlus.Token)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("screen: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.DataSource.Provider = "tushare" }},
		{"csv without path", func(c *Config) { c.DataSource.Provider = "csv" }},
		{"bad adjust", func(c *Config) { c.History.Adjust = "fwd" }},
		{"inverted price band", func(c *Config) { c.Screen.MinPrice = 20 }},
		{"negative scan limit", func(c *Config) { c.Screen.ScanLimit = -1 }},
		{"threshold above one", func(c *Config) { c.Score.PositionThreshold = 1.5 }},
		{"bad rank", func(c *Config) { c.Score.RankBy = "random" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_TEST_A=file\nDOTENV_TEST_B=file\n"), 0o644))
	t.Setenv("DOTENV_TEST_A", "process")
	os.Unsetenv("DOTENV_TEST_B")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_B") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "process", os.Getenv("DOTENV_TEST_A"))
	assert.Equal(t, "file", os.Getenv("DOTENV_TEST_B"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, SplitList(" a@x.com , ,b@x.com"))
	assert.Nil(t, SplitList(""))
}

func TestLoadWatchlist(t *testing.T) {
	wl, err := LoadWatchlist("")
	require.NoError(t, err)
	assert.Len(t, wl.Entries, 9)
	assert.NotEmpty(t, wl.Quotes)

	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	yml := `
entries:
  - symbol: "600900"
    name: 长江电力
    dps: 0.95
    strategy: bond
  - symbol: "000858"
    name: 五粮液
    strategy: grid
    grid_bands: [125, 118, 110]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	wl, err = LoadWatchlist(path)
	require.NoError(t, err)
	require.Len(t, wl.Entries, 2)
	assert.Equal(t, model.StrategyGrid, wl.Entries[1].Strategy)
	assert.Equal(t, []string{"600900", "000858"}, wl.Symbols())
	assert.NotEmpty(t, wl.Quotes, "quotes fall back to defaults")
}

func TestWatchlistValidate(t *testing.T) {
	bad := []Watchlist{
		{Entries: []model.WatchlistEntry{{Symbol: "", Strategy: model.StrategyBond}}},
		{Entries: []model.WatchlistEntry{{Symbol: "1", Strategy: "moon"}}},
		{Entries: []model.WatchlistEntry{{Symbol: "1", Strategy: model.StrategyGrid, GridBands: []float64{1, 2, 3}}}},
		{Entries: []model.WatchlistEntry{{Symbol: "1", Strategy: model.StrategyBond}, {Symbol: "1", Strategy: model.StrategyBond}}},
	}
	for _, wl := range bad {
		assert.Error(t, wl.Validate())
	}
	assert.NoError(t, DefaultWatchlist().Validate())
}

func TestShippedConfigsMatchDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default().Screen, cfg.Screen)
	assert.Equal(t, Default().Score, cfg.Score)
	assert.Equal(t, Default().Valuation, cfg.Valuation)
	assert.Equal(t, "configs/watchlist.yaml", cfg.WatchlistFile)

	wl, err := LoadWatchlist(filepath.Join("..", "..", "configs", "watchlist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWatchlist(), wl)
}
