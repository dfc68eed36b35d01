package strategy

import (
	"fmt"
	"math"

	"Backtester/internal/calculator"
	"Backtester/internal/model"
)

// Generate computes the two-state SMA crossover signal for prices.
//
// A bar is Long when the short average is above the long average and Flat
// when it is below. On exact equality the previous bar's position is kept.
// Bars before the long window fills are Flat.
func Generate(prices *model.PriceSeries, shortWindow, longWindow int) (*model.Signal, error) {
	if shortWindow <= 0 {
		return nil, &model.InvalidInputError{Field: "short_window", Reason: fmt.Sprintf("must be positive, got %d", shortWindow)}
	}
	if shortWindow >= longWindow {
		return nil, &model.InvalidInputError{Field: "long_window", Reason: fmt.Sprintf("must exceed short_window (%d >= %d)", shortWindow, longWindow)}
	}
	if prices == nil || prices.Len() < longWindow {
		have := 0
		if prices != nil {
			have = prices.Len()
		}
		return nil, &model.InsufficientDataError{Have: have, Need: longWindow}
	}

	closes := prices.Closes()
	shortMA, err := calculator.RollingSMA(closes, shortWindow)
	if err != nil {
		return nil, fmt.Errorf("short SMA: %w", err)
	}
	longMA, err := calculator.RollingSMA(closes, longWindow)
	if err != nil {
		return nil, fmt.Errorf("long SMA: %w", err)
	}

	n := len(closes)
	sig := &model.Signal{
		ShortWindow: shortWindow,
		LongWindow:  longWindow,
		ShortMA:     shortMA,
		LongMA:      longMA,
		Positions:   make([]model.Position, n),
		Transitions: make([]int, n),
	}

	prev := model.Flat
	for i := 0; i < n; i++ {
		pos := prev
		if !math.IsNaN(shortMA[i]) && !math.IsNaN(longMA[i]) {
			switch {
			case shortMA[i] > longMA[i]:
				pos = model.Long
			case shortMA[i] < longMA[i]:
				pos = model.Flat
			}
		}
		sig.Positions[i] = pos
		if i > 0 {
			sig.Transitions[i] = int(pos) - int(prev)
		}
		prev = pos
	}
	return sig, nil
}
