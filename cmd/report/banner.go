package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
)

func printBanner(cfg *config.Config, mode string, logger *logging.Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 56) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  DAILY ENERGY · A股复盘日报%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n", hr)

	kvLines := [][2]string{
		{"Version", version},
		{"Mode", mode},
		{"Data source", cfg.DataSource.Provider},
		{"Scan limit", fmt.Sprint(cfg.Screen.ScanLimit)},
		{"Threshold", fmt.Sprintf("%.0f%%", cfg.Score.PositionThreshold*100)},
	}
	if mode == "schedule" {
		kvLines = append(kvLines, [2]string{"Cron", cfg.Schedule.DailyCron})
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-12s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Str("version", version).Str("mode", mode).
		Str("provider", cfg.DataSource.Provider).Msg("application started")
}
