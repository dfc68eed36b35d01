package backtest

import (
	"fmt"

	"Backtester/internal/analyzer"
	"Backtester/internal/model"
	"Backtester/internal/portfolio"
	"Backtester/internal/strategy"
)

// Params are the strategy and accounting settings of one run.
type Params struct {
	ShortWindow    int
	LongWindow     int
	InitialCapital float64
	RiskFreeRate   float64
}

// DefaultParams mirrors the classic 20/50 crossover on 10k of capital.
func DefaultParams() Params {
	return Params{
		ShortWindow:    20,
		LongWindow:     50,
		InitialCapital: 10000,
		RiskFreeRate:   analyzer.DefaultRiskFreeRate,
	}
}

// Validate rejects parameters no stage could accept.
func (p Params) Validate() error {
	if p.InitialCapital <= 0 {
		return &model.InvalidInputError{Field: "initial_capital", Reason: fmt.Sprintf("must be positive, got %v", p.InitialCapital)}
	}
	if p.ShortWindow <= 0 {
		return &model.InvalidInputError{Field: "short_window", Reason: fmt.Sprintf("must be positive, got %d", p.ShortWindow)}
	}
	if p.ShortWindow >= p.LongWindow {
		return &model.InvalidInputError{Field: "long_window", Reason: fmt.Sprintf("must exceed short_window (%d >= %d)", p.ShortWindow, p.LongWindow)}
	}
	return nil
}

// Result bundles every stage's output for one symbol.
type Result struct {
	Params Params
	Prices *model.PriceSeries
	Signal *model.Signal
	Values *model.ValueSeries
	Report model.PerformanceReport
}

// Run executes signal generation, simulation and analysis on prices.
// It performs no I/O and returns identical results for identical inputs.
func Run(prices *model.PriceSeries, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, &model.InvalidInputError{Field: "prices", Reason: "price series is required"}
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	sig, err := strategy.Generate(prices, p.ShortWindow, p.LongWindow)
	if err != nil {
		return nil, fmt.Errorf("generate signal: %w", err)
	}
	values, err := portfolio.Simulate(prices, sig, p.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	report, err := analyzer.Analyze(values, prices.Closes(), p.InitialCapital, p.RiskFreeRate)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return &Result{Params: p, Prices: prices, Signal: sig, Values: values, Report: report}, nil
}
