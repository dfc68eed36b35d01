package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"Backtester/internal/holdings"
	"Backtester/internal/logger"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type holdingsCmd struct {
	in  string
	out string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "analyze a broker holdings export" }
func (*holdingsCmd) Usage() string {
	return `backtest holdings -in <holdings.csv> [-out <enriched.csv>]

  Reads a holdings CSV (Instrument, Qty., Avg. cost, LTP) and prints
  allocation, unrealised P&L, concentration and rebalancing figures.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in, "in", "", "Holdings CSV export")
	f.StringVar(&c.out, "out", "", "Write the enriched table to this CSV file")
}

func (c *holdingsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		return subcommands.ExitUsageError
	}
	if err := logger.Setup(logger.Config{Level: "warn"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	f, err := os.Open(c.in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	hs, err := holdings.Read(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	rep, err := holdings.Analyze(hs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(holdingsMarkdown(rep))

	if c.out != "" {
		w, err := os.Create(c.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := holdings.WriteCSV(w, rep); err != nil {
			w.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := w.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func holdingsMarkdown(rep *holdings.Report) string {
	var b strings.Builder
	b.WriteString("# Holdings\n\n")
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Unique stocks | %d |\n", rep.UniqueCount)
	fmt.Fprintf(&b, "| Total invested | %s |\n", rep.TotalInvested.StringFixed(2))
	fmt.Fprintf(&b, "| Current value | %s |\n", rep.TotalCurrent.StringFixed(2))
	fmt.Fprintf(&b, "| Unrealised P&L | %s (%s%%) |\n", rep.TotalPnL.StringFixed(2), rep.TotalReturnPct.StringFixed(2))
	fmt.Fprintf(&b, "| HHI | %s |\n", rep.HHI.StringFixed(2))
	fmt.Fprintf(&b, "| -5%% correction | %s |\n", rep.CorrectionImpact.StringFixed(2))

	b.WriteString("\n## Allocation\n\n| Instrument | Current | Allocation % | Rebalance diff % |\n|---|---:|---:|---:|\n")
	for _, p := range rep.Positions {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Instrument, p.Current.StringFixed(2), p.AllocationPct.StringFixed(2), p.RebalanceDiffPct.StringFixed(2))
	}

	pnlTable(&b, "Top gainers", rep.TopGainers)
	pnlTable(&b, "Top losers", rep.TopLosers)
	return b.String()
}

func pnlTable(b *strings.Builder, title string, ps []holdings.Position) {
	fmt.Fprintf(b, "\n## %s\n\n| Instrument | Unrealised P&L | %% Return |\n|---|---:|---:|\n", title)
	for _, p := range ps {
		fmt.Fprintf(b, "| %s | %s | %s |\n", p.Instrument, p.PnL.StringFixed(2), pct(p.ReturnPct))
	}
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
