package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Backtester/internal/model"
	"Backtester/internal/recorder"

	"github.com/rs/zerolog/log"
)

// Source produces a validated price series for a symbol and inclusive date range.
type Source interface {
	Collect(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
}

// Runner fetches data, runs the backtest and records the outcome.
type Runner struct {
	Source   Source
	Recorder recorder.Recorder
	Params   Params
}

// NewRunner creates a Runner. A nil recorder disables recording.
func NewRunner(src Source, rec recorder.Recorder, p Params) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Runner{Source: src, Recorder: rec, Params: p}
}

// Outcome is the per-symbol result of RunAll.
type Outcome struct {
	Symbol string
	Result *Result
	Err    error
}

// RunSymbol runs the full pipeline for one symbol.
func (r *Runner) RunSymbol(ctx context.Context, symbol string, start, end time.Time) (*Result, error) {
	if err := r.Params.Validate(); err != nil {
		return nil, err
	}
	prices, err := r.Source.Collect(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	log.Info().Str("symbol", symbol).Int("bars", prices.Len()).Msg("data fetched")

	res, err := Run(prices, r.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	if err := r.Recorder.RecordRun(&recorder.RunRecord{
		Symbol:         symbol,
		Start:          start,
		End:            end,
		ShortWindow:    r.Params.ShortWindow,
		LongWindow:     r.Params.LongWindow,
		InitialCapital: r.Params.InitialCapital,
		Report:         res.Report,
		Values:         res.Values,
	}); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("record run")
	}
	return res, nil
}

// RunAll runs every symbol independently and concurrently. Outcomes keep the
// order of symbols; one symbol failing does not affect the others.
func (r *Runner) RunAll(ctx context.Context, symbols []string, start, end time.Time) []Outcome {
	out := make([]Outcome, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			res, err := r.RunSymbol(ctx, sym, start, end)
			if err != nil {
				log.Warn().Err(err).Str("symbol", sym).Msg("backtest failed")
			}
			out[i] = Outcome{Symbol: sym, Result: res, Err: err}
		}(i, sym)
	}
	wg.Wait()
	return out
}
