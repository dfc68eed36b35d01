package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"Backtester/internal/collector"
	"Backtester/internal/model"
	"Backtester/internal/recorder"

	"github.com/google/subcommands"
)

type fetchCmd struct {
	symbol string
	start  string
	end    string
	out    string
	source string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download daily bars to CSV" }
func (*fetchCmd) Usage() string {
	return `backtest fetch -symbol <ticker> -start <date> [-end <date>] [-out <file>] [-source yahoo|rest]

  Downloads the daily bars of one symbol and writes them as CSV.
  Without -out the CSV goes to standard output.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol")
	f.StringVar(&c.start, "start", "", "First date (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "Last date (YYYY-MM-DD, defaults to today)")
	f.StringVar(&c.out, "out", "", "Output file")
	f.StringVar(&c.source, "source", "", "Data provider (yahoo, rest)")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.start == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol and -start are required")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.source != "" {
		cfg.DataSource.Provider = c.source
	}

	start, err := model.ParseDate(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if c.end != "" {
		if end, err = model.ParseDate(c.end); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	prices, err := collector.NewCollector(newFetcher(cfg)).Collect(ctx, c.symbol, start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var w io.Writer = os.Stdout
	if c.out != "" {
		f, err := os.Create(c.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		w = f
	}
	if err := recorder.WriteBarsCSV(w, prices); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.out != "" {
		fmt.Fprintf(os.Stderr, "%d bars written to %s\n", prices.Len(), c.out)
	}
	return subcommands.ExitSuccess
}
