package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"Backtester/internal/analyzer"
	"Backtester/internal/collector"
	"Backtester/internal/model"
	"Backtester/internal/portfolio"
	"Backtester/internal/recorder"
)

func seriesOf(closes []float64) *model.PriceSeries {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return &model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func TestRun_LinearUptrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res, err := Run(seriesOf(closes), DefaultParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	in, out := res.Signal.CountTransitions()
	if in != 1 || out != 0 {
		t.Errorf("expected one IN and no OUT transition, got %d/%d", in, out)
	}
	if res.Report.Entries != 1 || res.Report.Exits != 0 {
		t.Errorf("expected one executed entry, got %d/%d", res.Report.Entries, res.Report.Exits)
	}
	if res.Report.FinalValue <= 10000 {
		t.Errorf("expected gain in an uptrend, final %v", res.Report.FinalValue)
	}
	// Ten bars invested: 10 non-zero returns, all positive.
	if res.Report.ActiveDays != 10 || res.Report.WinRate != 1 {
		t.Errorf("ActiveDays/WinRate = %d/%v", res.Report.ActiveDays, res.Report.WinRate)
	}
}

func TestRun_InsufficientData(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res, err := Run(seriesOf(closes), DefaultParams())
	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if res != nil {
		t.Error("no result may be produced on error")
	}
}

func TestRun_FlatPrices(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	res, err := Run(seriesOf(closes), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range res.Signal.Transitions {
		if d != 0 || res.Signal.Positions[i] != model.Flat {
			t.Fatalf("bar %d: expected flat signal without transitions", i)
		}
	}
	r := res.Report
	if r.FinalValue != 10000 {
		t.Errorf("FinalValue = %v, want exactly 10000", r.FinalValue)
	}
	if r.MaxDrawdown != 0 || r.WinRate != 0 || r.ActiveDays != 0 || r.Entries != 0 {
		t.Errorf("unexpected metrics on flat prices: %+v", r)
	}
}

func TestRun_RoundTripAccounting(t *testing.T) {
	prices := seriesOf([]float64{45, 50, 55, 60, 62, 61})
	sig := &model.Signal{
		Positions:   []model.Position{model.Flat, model.Long, model.Long, model.Flat, model.Flat, model.Flat},
		Transitions: []int{0, 1, 0, -1, 0, 0},
	}
	values, err := portfolio.Simulate(prices, sig, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if values.Trades[0].Shares != 200 {
		t.Errorf("shares bought = %v, want 200", values.Trades[0].Shares)
	}
	if values.Trades[1].Cash != 12000 {
		t.Errorf("cash after exit = %v, want 12000", values.Trades[1].Cash)
	}
	report, err := analyzer.Analyze(values, prices.Closes(), 10000, analyzer.DefaultRiskFreeRate)
	if err != nil {
		t.Fatal(err)
	}
	if report.FinalValue != 12000 {
		t.Errorf("FinalValue = %v, want 12000", report.FinalValue)
	}
	if math.Abs(report.TotalReturn-0.20) > 1e-12 {
		t.Errorf("TotalReturn = %v, want 0.20", report.TotalReturn)
	}
	// Two invested bars with a non-zero return, one discrete trade.
	if report.ActiveDays != 2 || report.Entries != 1 || report.Exits != 1 {
		t.Errorf("ActiveDays/Entries/Exits = %d/%d/%d", report.ActiveDays, report.Entries, report.Exits)
	}
}

func zigzag(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/9) + float64(i%7)
	}
	return closes
}

func TestRun_Deterministic(t *testing.T) {
	prices := seriesOf(zigzag(300))
	p := Params{ShortWindow: 5, LongWindow: 20, InitialCapital: 2500, RiskFreeRate: 0.01}
	a, err := Run(prices, p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(prices, p)
	if err != nil {
		t.Fatal(err)
	}
	if a.Report != b.Report {
		t.Errorf("reports differ:\n%+v\n%+v", a.Report, b.Report)
	}
	for i := range a.Values.Points {
		if a.Values.Points[i] != b.Values.Points[i] {
			t.Fatalf("value point %d differs", i)
		}
	}
}

func TestRun_Invariants(t *testing.T) {
	prices := seriesOf(zigzag(400))
	res, err := Run(prices, Params{ShortWindow: 3, LongWindow: 15, InitialCapital: 1000, RiskFreeRate: 0.02})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Entries < 2 {
		t.Fatalf("fixture should trade several times, got %d entries", res.Report.Entries)
	}
	for i, p := range res.Values.Points {
		if math.Abs(p.Cash+p.Shares*p.Close-p.Value) > 1e-9*p.Value {
			t.Errorf("bar %d: value identity broken", i)
		}
		if p.Value <= 0 {
			t.Errorf("bar %d: non-positive value", i)
		}
	}
	if res.Report.MaxDrawdown < -1 || res.Report.MaxDrawdown > 0 {
		t.Errorf("drawdown out of bounds: %v", res.Report.MaxDrawdown)
	}
	if res.Report.WinRate < 0 || res.Report.WinRate > 1 {
		t.Errorf("win rate out of bounds: %v", res.Report.WinRate)
	}
	if res.Report.Entries-res.Report.Exits < 0 || res.Report.Entries-res.Report.Exits > 1 {
		t.Errorf("entries and exits must alternate: %d/%d", res.Report.Entries, res.Report.Exits)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	prices := seriesOf(zigzag(100))
	tests := []Params{
		{ShortWindow: 20, LongWindow: 50, InitialCapital: 0},
		{ShortWindow: 0, LongWindow: 50, InitialCapital: 1},
		{ShortWindow: 50, LongWindow: 50, InitialCapital: 1},
	}
	for _, p := range tests {
		_, err := Run(prices, p)
		var iie *model.InvalidInputError
		if !errors.As(err, &iie) {
			t.Errorf("%+v: expected InvalidInputError, got %v", p, err)
		}
	}
}

func TestRun_RejectsUnorderedSeries(t *testing.T) {
	prices := seriesOf(zigzag(60))
	prices.Bars[10].Time = prices.Bars[9].Time
	_, err := Run(prices, DefaultParams())
	var iie *model.InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestRunner_RunSymbolRecords(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(t.TempDir() + "/runs.db")
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	r := NewRunner(collector.NewCollector(&collector.MockFetcher{Price: 100}), rec, DefaultParams())
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	res, err := r.RunSymbol(context.Background(), "MOCK", start, end)
	if err != nil {
		t.Fatalf("RunSymbol: %v", err)
	}
	runs, err := rec.RecentRuns("MOCK", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].FinalValue != res.Report.FinalValue {
		t.Errorf("run not recorded: %+v", runs)
	}
}

func TestRunner_RunAllIsolatesFailures(t *testing.T) {
	r := NewRunner(collector.NewCollector(&collector.MockFetcher{Price: 100}), nil, DefaultParams())
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	// Three weeks of bars are too few for the 50-bar window.
	short := r.RunAll(context.Background(), []string{"A"}, start, start.AddDate(0, 0, 21))
	var ide *model.InsufficientDataError
	if !errors.As(short[0].Err, &ide) {
		t.Errorf("expected InsufficientDataError, got %v", short[0].Err)
	}

	out := r.RunAll(context.Background(), []string{"A", "B", "C"}, start, start.AddDate(0, 6, 0))
	if len(out) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(out))
	}
	for i, sym := range []string{"A", "B", "C"} {
		if out[i].Symbol != sym || out[i].Err != nil || out[i].Result == nil {
			t.Errorf("outcome %d: %+v", i, out[i])
		}
	}
}

func TestRunner_DataUnavailable(t *testing.T) {
	r := NewRunner(collector.NewCollector(&collector.MockFetcher{Err: errors.New("timeout")}), nil, DefaultParams())
	_, err := r.RunSymbol(context.Background(), "X", time.Now().AddDate(-1, 0, 0), time.Now())
	var due *model.DataUnavailableError
	if !errors.As(err, &due) {
		t.Fatalf("expected DataUnavailableError, got %v", err)
	}
}
