package model

import "time"

// Action is what the simulator did on a bar.
type Action string

const (
	ActionNone Action = ""
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ValuePoint is the mark-to-market state after processing one bar.
type ValuePoint struct {
	Time   time.Time
	Close  float64
	Cash   float64
	Shares float64
	Value  float64
	Action Action
}

// Trade is one executed conversion between cash and shares.
type Trade struct {
	Time   time.Time
	Action Action
	Price  float64
	Shares float64
	Cash   float64 // cash spent on a buy, received on a sell
}

// ValueSeries is the simulated portfolio path.
type ValueSeries struct {
	InitialCapital float64
	Points         []ValuePoint
	Trades         []Trade
}

// Values returns a fresh slice of the per-bar portfolio values.
func (v *ValueSeries) Values() []float64 {
	out := make([]float64, len(v.Points))
	for i, p := range v.Points {
		out[i] = p.Value
	}
	return out
}

// Final returns the last portfolio value, or the initial capital for an empty series.
func (v *ValueSeries) Final() float64 {
	if len(v.Points) == 0 {
		return v.InitialCapital
	}
	return v.Points[len(v.Points)-1].Value
}
