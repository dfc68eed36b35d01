package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"Backtester/internal/backtest"
	"Backtester/internal/collector"
	"Backtester/internal/config"
	"Backtester/internal/logger"
	"Backtester/internal/model"
	"Backtester/internal/recorder"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

var configPath = flag.String("config", defaultConfigPath(), "Path to the YAML configuration file")

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// loadConfig reads the configuration and installs the global logger.
// Validation is left to the caller so flags can be applied first.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dateRange parses the configured range. An empty end means today.
func dateRange(cfg *config.Config) (start, end time.Time, err error) {
	start, err = model.ParseDate(cfg.Backtest.StartDate)
	if err != nil {
		return
	}
	if cfg.Backtest.EndDate == "" {
		now := time.Now().UTC()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return
	}
	end, err = model.ParseDate(cfg.Backtest.EndDate)
	return
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	if cfg.DataSource.Provider == "rest" {
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.CacheDir)
	}
	return collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.CacheDir)
}

// openRecorder opens the SQLite history, falling back to a no-op recorder.
func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func paramsFrom(cfg *config.Config) backtest.Params {
	return backtest.Params{
		ShortWindow:    cfg.Backtest.ShortWindow,
		LongWindow:     cfg.Backtest.LongWindow,
		InitialCapital: cfg.Backtest.InitialCapital,
		RiskFreeRate:   cfg.Backtest.RiskFreeRate,
	}
}

func symbolList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
