package recorder

import (
	"bytes"
	"encoding/csv"
	"math"
	"path/filepath"
	"testing"
	"time"

	"Backtester/internal/model"
)

func fixture() (*model.PriceSeries, *model.Signal, *model.ValueSeries) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	prices := &model.PriceSeries{Symbol: "TEST"}
	values := &model.ValueSeries{InitialCapital: 1000}
	for i, c := range []float64{10, 20, 25} {
		d := start.AddDate(0, 0, i)
		prices.Bars = append(prices.Bars, model.OHLCV{Time: d, Open: c, High: c, Low: c, Close: c, Volume: 5})
	}
	values.Points = []model.ValuePoint{
		{Time: start, Close: 10, Cash: 1000, Value: 1000},
		{Time: start.AddDate(0, 0, 1), Close: 20, Shares: 50, Value: 1000, Action: model.ActionBuy},
		{Time: start.AddDate(0, 0, 2), Close: 25, Shares: 50, Value: 1250},
	}
	values.Trades = []model.Trade{{Time: start.AddDate(0, 0, 1), Action: model.ActionBuy, Price: 20, Shares: 50, Cash: 1000}}
	sig := &model.Signal{
		ShortWindow: 1, LongWindow: 2,
		ShortMA:     []float64{10, 20, 25},
		LongMA:      []float64{math.NaN(), 15, 22.5},
		Positions:   []model.Position{model.Flat, model.Long, model.Long},
		Transitions: []int{0, 1, 0},
	}
	return prices, sig, values
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	_, _, values := fixture()
	run := &RunRecord{
		Symbol:         "TEST",
		Start:          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		ShortWindow:    1,
		LongWindow:     2,
		InitialCapital: 1000,
		Report: model.PerformanceReport{
			FinalValue:       1250,
			TotalReturn:      0.25,
			AnnualizedReturn: math.NaN(),
			Entries:          1,
		},
		Values: values,
	}
	if err := rec.RecordRun(run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := rec.RecordRun(&RunRecord{Symbol: "OTHER", Report: model.PerformanceReport{FinalValue: 1}}); err != nil {
		t.Fatalf("RecordRun without values: %v", err)
	}

	runs, err := rec.RecentRuns("TEST", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].FinalValue != 1250 || runs[0].Entries != 1 || runs[0].TotalReturn != 0.25 {
		t.Errorf("unexpected summary: %+v", runs[0])
	}
	var n int
	if err := rec.db.QueryRow(`SELECT COUNT(*) FROM portfolio_values WHERE run_id = ?`, runs[0].ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 stored values, got %d", n)
	}

	all, err := rec.RecentRuns("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Symbol != "OTHER" {
		t.Errorf("expected newest first across symbols, got %+v", all)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&RunRecord{}); err != nil {
		t.Error(err)
	}
	if err := r.Close(); err != nil {
		t.Error(err)
	}
}

func TestWriteCSV(t *testing.T) {
	prices, sig, values := fixture()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, prices, sig, values); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][12] != "portfolio_value" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][7] != "" {
		t.Errorf("undefined long SMA should be empty, got %q", rows[1][7])
	}
	if rows[2][0] != "2024-05-02" || rows[2][9] != "1" || rows[2][13] != "BUY" {
		t.Errorf("unexpected entry row: %v", rows[2])
	}
	if rows[3][12] != "1250" {
		t.Errorf("unexpected final value %q", rows[3][12])
	}
}

func TestWriteCSV_Misaligned(t *testing.T) {
	prices, sig, values := fixture()
	values.Points = values.Points[:2]
	if err := WriteCSV(&bytes.Buffer{}, prices, sig, values); err == nil {
		t.Error("expected error for misaligned series")
	}
}

func TestWriteBarsCSV(t *testing.T) {
	prices, _, _ := fixture()
	var buf bytes.Buffer
	if err := WriteBarsCSV(&buf, prices); err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows) != 4 || len(rows[0]) != 6 || rows[3][4] != "25" {
		t.Errorf("unexpected rows: %v", rows)
	}
}
