package recorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"Backtester/internal/model"
)

var csvHeader = []string{
	"date", "open", "high", "low", "close", "volume",
	"sma_short", "sma_long", "position", "transition",
	"cash", "shares", "portfolio_value", "action",
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the per-bar table of a run: raw bars, moving averages,
// signal and the simulated portfolio. The three inputs must be aligned.
func WriteCSV(w io.Writer, prices *model.PriceSeries, signal *model.Signal, values *model.ValueSeries) error {
	n := prices.Len()
	if signal.Len() != n || len(values.Points) != n {
		return fmt.Errorf("write csv: misaligned series (%d bars, %d signals, %d values)", n, signal.Len(), len(values.Points))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, b := range prices.Bars {
		p := values.Points[i]
		row := []string{
			b.Time.Format(model.DateLayout),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close), formatFloat(b.Volume),
			formatFloat(signal.ShortMA[i]), formatFloat(signal.LongMA[i]),
			strconv.Itoa(int(signal.Positions[i])), strconv.Itoa(signal.Transitions[i]),
			formatFloat(p.Cash), formatFloat(p.Shares), formatFloat(p.Value), string(p.Action),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBarsCSV writes raw OHLCV bars.
func WriteBarsCSV(w io.Writer, prices *model.PriceSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader[:6]); err != nil {
		return err
	}
	for _, b := range prices.Bars {
		if err := cw.Write([]string{
			b.Time.Format(model.DateLayout),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close), formatFloat(b.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
