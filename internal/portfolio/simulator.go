package portfolio

import (
	"fmt"

	"Backtester/internal/model"
)

// Simulate walks the bars in order and applies every signal transition at the
// same bar's close, all-in or all-out, without costs. It returns the
// mark-to-market value of every bar and the executed trades.
func Simulate(prices *model.PriceSeries, signal *model.Signal, initialCapital float64) (*model.ValueSeries, error) {
	if initialCapital <= 0 {
		return nil, &model.InvalidInputError{Field: "initial_capital", Reason: fmt.Sprintf("must be positive, got %v", initialCapital)}
	}
	if prices == nil || signal == nil {
		return nil, &model.InvalidInputError{Field: "series", Reason: "prices and signal are required"}
	}
	if len(signal.Transitions) != prices.Len() {
		return nil, &model.InvalidInputError{
			Field:  "signal",
			Reason: fmt.Sprintf("length %d does not match %d bars", len(signal.Transitions), prices.Len()),
		}
	}
	for i, b := range prices.Bars {
		if b.Close <= 0 {
			return nil, &model.InvalidInputError{
				Field:  "close",
				Reason: fmt.Sprintf("non-positive price %v at %s (index %d)", b.Close, b.Time.Format(model.DateLayout), i),
			}
		}
	}

	out := &model.ValueSeries{
		InitialCapital: initialCapital,
		Points:         make([]model.ValuePoint, prices.Len()),
	}
	st := NewState(initialCapital)

	for i, b := range prices.Bars {
		action := model.ActionNone
		switch d := signal.Transitions[i]; {
		case d > 0:
			cash := st.Cash
			if st.enter(b.Close) {
				action = model.ActionBuy
				out.Trades = append(out.Trades, model.Trade{Time: b.Time, Action: action, Price: b.Close, Shares: st.Shares, Cash: cash})
			}
		case d < 0:
			shares := st.Shares
			if st.exit(b.Close) {
				action = model.ActionSell
				out.Trades = append(out.Trades, model.Trade{Time: b.Time, Action: action, Price: b.Close, Shares: shares, Cash: st.Cash})
			}
		}
		out.Points[i] = model.ValuePoint{
			Time:   b.Time,
			Close:  b.Close,
			Cash:   st.Cash,
			Shares: st.Shares,
			Value:  st.Value(b.Close),
			Action: action,
		}
	}
	return out, nil
}
