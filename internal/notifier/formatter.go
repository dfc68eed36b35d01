package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"Backtester/internal/backtest"
	"Backtester/internal/model"
	"Backtester/internal/recorder"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Field is one named, formatted metric.
type Field struct {
	Name  string
	Value string
}

// Money formats an amount as $1,234.56, rounding half away from zero.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	rounded := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return printer.Sprintf("$%.2f", rounded)
}

// Percent formats a ratio as a percentage with two decimals.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// ReportFields lists the report metrics in display order.
func ReportFields(r model.PerformanceReport) []Field {
	return []Field{
		{"Total Return", Percent(r.TotalReturn)},
		{"Market Return", Percent(r.MarketReturn)},
		{"Annualized Return", Percent(r.AnnualizedReturn)},
		{"Annualized Market Return", Percent(r.AnnualizedMarketReturn)},
		{"Volatility", Percent(r.Volatility)},
		{"Market Volatility", Percent(r.MarketVolatility)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", r.SharpeRatio)},
		{"Maximum Drawdown", Percent(r.MaxDrawdown)},
		{"Win Rate", Percent(r.WinRate)},
		{"Total Trades", fmt.Sprintf("%d", r.ActiveDays)},
		{"Entries", fmt.Sprintf("%d", r.Entries)},
		{"Exits", fmt.Sprintf("%d", r.Exits)},
		{"Final Portfolio Value", Money(r.FinalValue)},
	}
}

func period(res *backtest.Result) (string, string) {
	bars := res.Prices.Bars
	if len(bars) == 0 {
		return "", ""
	}
	return bars[0].Time.Format(model.DateLayout), bars[len(bars)-1].Time.Format(model.DateLayout)
}

// FormatMarkdown renders a run as markdown for terminal display.
func FormatMarkdown(res *backtest.Result) string {
	var b strings.Builder
	from, to := period(res)

	b.WriteString(fmt.Sprintf("# %s: SMA %d/%d crossover\n\n", res.Prices.Symbol, res.Params.ShortWindow, res.Params.LongWindow))
	b.WriteString(fmt.Sprintf("%s to %s, %d bars, initial capital %s\n\n", from, to, res.Prices.Len(), Money(res.Params.InitialCapital)))

	b.WriteString("| Metric | Value |\n|---|---:|\n")
	for _, f := range ReportFields(res.Report) {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", f.Name, f.Value))
	}

	if len(res.Values.Trades) > 0 {
		b.WriteString("\n## Trades\n\n| Date | Action | Price | Shares | Cash |\n|---|---|---:|---:|---:|\n")
		for _, t := range res.Values.Trades {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %s |\n",
				t.Time.Format(model.DateLayout), t.Action, Money(t.Price), t.Shares, Money(t.Cash)))
		}
	} else {
		b.WriteString("\nNo trades were executed.\n")
	}

	if last := len(res.Signal.Positions) - 1; last >= 0 {
		b.WriteString(fmt.Sprintf("\nCurrent position: **%s**\n", res.Signal.Positions[last]))
	}
	return b.String()
}

// FormatReport formats a run as a Telegram HTML message.
func FormatReport(res *backtest.Result) string {
	var b strings.Builder
	from, to := period(res)

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | SMA %d/%d\n", html.EscapeString(res.Prices.Symbol), res.Params.ShortWindow, res.Params.LongWindow))
	b.WriteString(fmt.Sprintf("%s → %s (%d bars)\n\n", from, to, res.Prices.Len()))
	for _, f := range ReportFields(res.Report) {
		b.WriteString(fmt.Sprintf("%s: %s\n", f.Name, f.Value))
	}
	if last := len(res.Signal.Positions) - 1; last >= 0 {
		b.WriteString(fmt.Sprintf("\n💰 <b>Position:</b> %s\n", res.Signal.Positions[last]))
	}
	return b.String()
}

// FormatFailure formats a failed run for Telegram.
func FormatFailure(symbol string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b> backtest failed: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
}

// FormatHistory lists recorded runs as a Telegram HTML message.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No recorded runs."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %d/%d: %s, final %s, sharpe %.2f, max DD %s\n",
			r.Timestamp.UTC().Format(model.DateLayout), html.EscapeString(r.Symbol), r.ShortWindow, r.LongWindow,
			Percent(r.TotalReturn), Money(r.FinalValue), r.SharpeRatio, Percent(r.MaxDrawdown)))
	}
	return b.String()
}
