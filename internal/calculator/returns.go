package calculator

import "math"

// TradingDaysPerYear is the annualization convention for daily bars.
const TradingDaysPerYear = 252

// PctChange returns v[t]/v[t-1] - 1 for t >= 1. The result has len(v)-1 entries.
func PctChange(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := 1; i < len(v); i++ {
		out[i-1] = v[i]/v[i-1] - 1
	}
	return out
}

// SampleStdDev is the n-1 standard deviation. Returns 0 for fewer than two values.
func SampleStdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	ss := 0.0
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)-1))
}

// Annualize compounds a total return over n daily observations to a yearly rate.
// Returns NaN when n is zero.
func Annualize(totalReturn float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return math.Pow(1+totalReturn, float64(TradingDaysPerYear)/float64(n)) - 1
}

// VolatilityEpsilon is the floor below which a volatility is rounding noise.
const VolatilityEpsilon = 1e-12

// AnnualizedVolatility scales the sample standard deviation of daily returns.
// Values below VolatilityEpsilon are reported as exactly 0.
func AnnualizedVolatility(returns []float64) float64 {
	v := SampleStdDev(returns) * math.Sqrt(TradingDaysPerYear)
	if v < VolatilityEpsilon {
		return 0
	}
	return v
}
