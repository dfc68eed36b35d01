package model

// PerformanceReport summarises one simulated run. It is returned by value and
// never modified after construction.
type PerformanceReport struct {
	InitialCapital float64
	FinalValue     float64
	Observations   int // number of return observations (bars - 1)

	TotalReturn            float64
	AnnualizedReturn       float64 // NaN when Observations == 0
	MarketReturn           float64
	AnnualizedMarketReturn float64
	Volatility             float64
	MarketVolatility       float64
	RiskFreeRate           float64
	SharpeRatio            float64
	MaxDrawdown            float64
	WinRate                float64

	// ActiveDays counts bars with a non-zero strategy return, shown to
	// users as "Total Trades".
	ActiveDays int
	// Entries and Exits count executed buy and sell transitions.
	Entries int
	Exits   int
}
