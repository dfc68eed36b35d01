package holdings

import (
	"encoding/csv"
	"io"
	"sort"

	"Backtester/internal/model"

	"github.com/shopspring/decimal"
)

// TopN is the length of the gainers and losers lists.
const TopN = 5

var (
	hundred    = decimal.NewFromInt(100)
	correction = decimal.RequireFromString("-0.05")
)

// Position is a holding enriched with valuation and allocation figures.
// Percentages are expressed in points (12.5 means 12.5%).
type Position struct {
	Holding
	Invested         decimal.Decimal
	Current          decimal.Decimal
	PnL              decimal.Decimal
	ReturnPct        decimal.Decimal
	AllocationPct    decimal.Decimal
	RebalanceDiffPct decimal.Decimal
	CorrectionImpact decimal.Decimal
}

// Report summarises a set of holdings.
type Report struct {
	Positions        []Position
	UniqueCount      int
	TotalInvested    decimal.Decimal
	TotalCurrent     decimal.Decimal
	TotalPnL         decimal.Decimal
	TotalReturnPct   decimal.Decimal
	CorrectionImpact decimal.Decimal
	HHI              decimal.Decimal
	TopGainers       []Position
	TopLosers        []Position
}

// Analyze values every holding and computes portfolio totals, concentration
// and the gap to an equal-weight allocation.
func Analyze(hs []Holding) (*Report, error) {
	if len(hs) == 0 {
		return nil, &model.InvalidInputError{Field: "holdings", Reason: "no holdings to analyze"}
	}

	rep := &Report{Positions: make([]Position, len(hs))}
	unique := make(map[string]struct{}, len(hs))
	for i, h := range hs {
		p := Position{Holding: h}
		p.Invested = h.Qty.Mul(h.AvgCost)
		p.Current = h.Qty.Mul(h.LTP)
		p.PnL = p.Current.Sub(p.Invested)
		if !p.Invested.IsZero() {
			p.ReturnPct = p.PnL.Div(p.Invested).Mul(hundred)
		}
		p.CorrectionImpact = p.Current.Mul(correction)
		rep.Positions[i] = p

		rep.TotalInvested = rep.TotalInvested.Add(p.Invested)
		rep.TotalCurrent = rep.TotalCurrent.Add(p.Current)
		rep.CorrectionImpact = rep.CorrectionImpact.Add(p.CorrectionImpact)
		unique[h.Instrument] = struct{}{}
	}
	rep.UniqueCount = len(unique)
	rep.TotalPnL = rep.TotalCurrent.Sub(rep.TotalInvested)
	if !rep.TotalInvested.IsZero() {
		rep.TotalReturnPct = rep.TotalPnL.Div(rep.TotalInvested).Mul(hundred)
	}

	equalWeight := hundred.Div(decimal.NewFromInt(int64(rep.UniqueCount)))
	for i := range rep.Positions {
		p := &rep.Positions[i]
		if !rep.TotalCurrent.IsZero() {
			p.AllocationPct = p.Current.Div(rep.TotalCurrent).Mul(hundred)
		}
		p.RebalanceDiffPct = p.AllocationPct.Sub(equalWeight)
		rep.HHI = rep.HHI.Add(p.AllocationPct.Mul(p.AllocationPct))
	}

	byPnL := append([]Position(nil), rep.Positions...)
	sort.SliceStable(byPnL, func(i, j int) bool { return byPnL[i].PnL.GreaterThan(byPnL[j].PnL) })
	n := min(TopN, len(byPnL))
	rep.TopGainers = byPnL[:n:n]
	rep.TopLosers = make([]Position, 0, n)
	for i := len(byPnL) - 1; i >= len(byPnL)-n; i-- {
		rep.TopLosers = append(rep.TopLosers, byPnL[i])
	}
	return rep, nil
}

// WriteCSV writes the enriched holdings table.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		ColInstrument, ColQty, ColAvgCost, ColLTP,
		"Invested Value", "Current Value", "Unrealised P&L", "% Return",
		"Portfolio Allocation %", "Rebalance Diff %", "-5% Correction Impact",
	}); err != nil {
		return err
	}
	for _, p := range rep.Positions {
		if err := cw.Write([]string{
			p.Instrument,
			p.Qty.String(),
			p.AvgCost.String(),
			p.LTP.String(),
			p.Invested.StringFixed(2),
			p.Current.StringFixed(2),
			p.PnL.StringFixed(2),
			p.ReturnPct.StringFixed(2),
			p.AllocationPct.StringFixed(2),
			p.RebalanceDiffPct.StringFixed(2),
			p.CorrectionImpact.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
