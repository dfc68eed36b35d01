package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	path := writeConfig(t, `
backtest:
  symbols: [AAPL, MSFT]
  start_date: "2021-01-01"
  end_date: "2023-01-01"
  short_window: 10
  long_window: 30
telegram:
  bot_token: abc
  chat_id: "42"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Backtest.Symbols) != 2 || cfg.Backtest.ShortWindow != 10 || cfg.Backtest.LongWindow != 30 {
		t.Errorf("yaml values not applied: %+v", cfg.Backtest)
	}
	if cfg.Backtest.InitialCapital != 10000 || cfg.Backtest.RiskFreeRate != 0.02 {
		t.Errorf("defaults not applied: %+v", cfg.Backtest)
	}
	if cfg.DataSource.Provider != "yahoo" || cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("nested defaults not applied: %+v %+v", cfg.DataSource, cfg.Log)
	}
	if cfg.Schedule.RunCron == "" || cfg.Database.SQLitePath == "" {
		t.Error("schedule and database defaults missing")
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("BACKTEST_SYMBOLS", "TCS.NS, INFY.NS")
	t.Setenv("INITIAL_CAPITAL", "5000")
	t.Setenv("REST_BASE_URL", "http://bars.local")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := strings.Join(cfg.Backtest.Symbols, "|"); got != "TCS.NS|INFY.NS" {
		t.Errorf("symbols = %q", got)
	}
	if cfg.Backtest.InitialCapital != 5000 {
		t.Errorf("capital = %v", cfg.Backtest.InitialCapital)
	}
	if cfg.DataSource.Provider != "rest" || cfg.DataSource.BaseURL != "http://bars.local" {
		t.Errorf("rest override not applied: %+v", cfg.DataSource)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no symbols", "backtest:\n  start_date: \"2020-01-01\"\n", "Symbols"},
		{"windows inverted", "backtest:\n  symbols: [A]\n  short_window: 60\n  long_window: 50\n", "ShortWindow"},
		{"bad date", "backtest:\n  symbols: [A]\n  start_date: 01/02/2020\n", "StartDate"},
		{"end before start", "backtest:\n  symbols: [A]\n  start_date: \"2022-01-01\"\n  end_date: \"2021-01-01\"\n", "before"},
		{"negative capital", "backtest:\n  symbols: [A]\n  initial_capital: -1\n", "InitialCapital"},
		{"chat id missing", "backtest:\n  symbols: [A]\ntelegram:\n  bot_token: x\n", "ChatID"},
		{"rest without url", "backtest:\n  symbols: [A]\ndata_source:\n  provider: rest\n", "BaseURL"},
	}
	for _, tt := range tests {
		cfg, err := Load(writeConfig(t, tt.body))
		if err != nil {
			t.Fatalf("%s: Load: %v", tt.name, err)
		}
		err = cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q should mention %q", tt.name, err, tt.want)
		}
	}
}
