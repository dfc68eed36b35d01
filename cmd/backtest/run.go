package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"Backtester/internal/backtest"
	"Backtester/internal/collector"
	"Backtester/internal/config"
	"Backtester/internal/notifier"
	"Backtester/internal/recorder"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type runCmd struct {
	symbols string
	start   string
	end     string
	capital float64
	short   int
	long    int
	rf      float64
	csvDir  string
	source  string
	notify  bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "backtest the SMA crossover strategy and print the report" }
func (*runCmd) Usage() string {
	return `backtest run [-config <file>] [-symbol AAPL,MSFT] [-start 2020-01-01] [-end 2023-12-31]
             [-capital 10000] [-short 20] [-long 50] [-rf 0.02] [-csv <dir>]
             [-source yahoo|rest] [-notify]

  Fetches daily bars for every symbol, runs the crossover backtest and prints
  a performance report. Flags override the configuration file.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(configPath, "config", *configPath, "Path to the YAML configuration file")
	f.StringVar(&c.symbols, "symbol", "", "Comma separated ticker symbols")
	f.StringVar(&c.start, "start", "", "First date of the backtest (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "Last date of the backtest (YYYY-MM-DD, defaults to today)")
	f.Float64Var(&c.capital, "capital", 0, "Initial capital")
	f.IntVar(&c.short, "short", 0, "Short SMA window in bars")
	f.IntVar(&c.long, "long", 0, "Long SMA window in bars")
	f.Float64Var(&c.rf, "rf", 0, "Yearly risk-free rate used by the Sharpe ratio")
	f.StringVar(&c.csvDir, "csv", "", "Directory receiving one <symbol>.csv per run")
	f.StringVar(&c.source, "source", "", "Data provider (yahoo, rest)")
	f.BoolVar(&c.notify, "notify", false, "Send every report to Telegram")
}

// apply copies the flags that were set on the command line into cfg.
func (c *runCmd) apply(f *flag.FlagSet, cfg *config.Config) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "symbol":
			cfg.Backtest.Symbols = symbolList(c.symbols)
		case "start":
			cfg.Backtest.StartDate = c.start
		case "end":
			cfg.Backtest.EndDate = c.end
		case "capital":
			cfg.Backtest.InitialCapital = c.capital
		case "short":
			cfg.Backtest.ShortWindow = c.short
		case "long":
			cfg.Backtest.LongWindow = c.long
		case "rf":
			cfg.Backtest.RiskFreeRate = c.rf
		case "csv":
			cfg.Output.CSVDir = c.csvDir
		case "source":
			cfg.DataSource.Provider = c.source
		}
	})
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	c.apply(f, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	start, end, err := dateRange(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	rec := openRecorder(cfg)
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	if c.notify {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if !tn.Enabled() {
			fmt.Fprintln(os.Stderr, "Error: -notify requires telegram.bot_token and telegram.chat_id")
			return subcommands.ExitUsageError
		}
	}

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Strs("symbols", cfg.Backtest.Symbols).Msg("starting backtest")
	runner := backtest.NewRunner(collector.NewCollector(fetcher), rec, paramsFrom(cfg))

	status := subcommands.ExitSuccess
	for _, out := range runner.RunAll(ctx, cfg.Backtest.Symbols, start, end) {
		if out.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", out.Symbol, out.Err)
			status = subcommands.ExitFailure
			if tn != nil {
				c.send(ctx, tn, notifier.FormatFailure(out.Symbol, out.Err))
			}
			continue
		}
		printMarkdown(notifier.FormatMarkdown(out.Result))
		if cfg.Output.CSVDir != "" {
			if err := writeResultCSV(cfg.Output.CSVDir, out.Result); err != nil {
				fmt.Fprintf(os.Stderr, "%s: write csv: %v\n", out.Symbol, err)
				status = subcommands.ExitFailure
			}
		}
		if tn != nil {
			c.send(ctx, tn, notifier.FormatReport(out.Result))
		}
	}
	return status
}

func (c *runCmd) send(ctx context.Context, tn *notifier.TelegramNotifier, text string) {
	if err := tn.SendWithRetry(ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("telegram send failed")
	}
}

func writeResultCSV(dir string, res *backtest.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, res.Prices.Symbol+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := recorder.WriteCSV(f, res.Prices, res.Signal, res.Values); err != nil {
		f.Close()
		return err
	}
	log.Info().Str("path", path).Msg("csv written")
	return f.Close()
}

