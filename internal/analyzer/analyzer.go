package analyzer

import (
	"fmt"

	"Backtester/internal/calculator"
	"Backtester/internal/model"
)

// DefaultRiskFreeRate is the yearly rate subtracted in the Sharpe ratio.
const DefaultRiskFreeRate = 0.02

// Analyze derives the performance report from a simulated value series and
// the raw closes it was simulated on. Neither input is modified.
func Analyze(values *model.ValueSeries, closes []float64, initialCapital, riskFreeRate float64) (model.PerformanceReport, error) {
	if initialCapital <= 0 {
		return model.PerformanceReport{}, &model.InvalidInputError{Field: "initial_capital", Reason: fmt.Sprintf("must be positive, got %v", initialCapital)}
	}
	if values == nil || len(values.Points) == 0 {
		return model.PerformanceReport{}, &model.InvalidInputError{Field: "values", Reason: "empty value series"}
	}
	if len(values.Points) != len(closes) {
		return model.PerformanceReport{}, &model.InvalidInputError{
			Field:  "closes",
			Reason: fmt.Sprintf("length %d does not match %d values", len(closes), len(values.Points)),
		}
	}

	pv := values.Values()
	strategyReturns := calculator.PctChange(pv)
	marketReturns := calculator.PctChange(closes)
	n := len(strategyReturns)

	r := model.PerformanceReport{
		InitialCapital: initialCapital,
		FinalValue:     pv[len(pv)-1],
		Observations:   n,
		RiskFreeRate:   riskFreeRate,
		MaxDrawdown:    calculator.MaxDrawdown(pv),
	}

	r.TotalReturn = r.FinalValue/initialCapital - 1
	r.AnnualizedReturn = calculator.Annualize(r.TotalReturn, n)
	r.MarketReturn = closes[len(closes)-1]/closes[0] - 1
	r.AnnualizedMarketReturn = calculator.Annualize(r.MarketReturn, n)
	r.Volatility = calculator.AnnualizedVolatility(strategyReturns)
	r.MarketVolatility = calculator.AnnualizedVolatility(marketReturns)

	if r.Volatility != 0 {
		r.SharpeRatio = (r.AnnualizedReturn - riskFreeRate) / r.Volatility
	}

	wins := 0
	for _, ret := range strategyReturns {
		if ret != 0 {
			r.ActiveDays++
		}
		if ret > 0 {
			wins++
		}
	}
	if r.ActiveDays > 0 {
		r.WinRate = float64(wins) / float64(r.ActiveDays)
	}

	for _, tr := range values.Trades {
		switch tr.Action {
		case model.ActionBuy:
			r.Entries++
		case model.ActionSell:
			r.Exits++
		}
	}
	return r, nil
}
