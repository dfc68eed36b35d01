package calculator

import "math"

// RunningMax returns the cumulative maximum of v up to and including each index.
func RunningMax(v []float64) []float64 {
	out := make([]float64, len(v))
	peak := math.Inf(-1)
	for i, x := range v {
		if x > peak {
			peak = x
		}
		out[i] = peak
	}
	return out
}

// Drawdowns returns (v[t]-peak[t])/peak[t] for every index.
func Drawdowns(v []float64) []float64 {
	peaks := RunningMax(v)
	out := make([]float64, len(v))
	for i, x := range v {
		if peaks[i] <= 0 {
			continue
		}
		out[i] = (x - peaks[i]) / peaks[i]
	}
	return out
}

// MaxDrawdown is the deepest drawdown of v, in [-1, 0] for positive series.
func MaxDrawdown(v []float64) float64 {
	worst := 0.0
	for _, d := range Drawdowns(v) {
		if d < worst {
			worst = d
		}
	}
	return worst
}
