package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"Backtester/internal/model"

	"github.com/rs/zerolog/log"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return append([]model.OHLCV(nil), m.Bars...), nil
	}
	return generateMockBars(m.Price, start, end), nil
}

// generateMockBars produces one weekday bar per day in [start, end] with a slow drift.
func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}

// Collector fetches bars and turns them into a validated price series.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// Collect fetches the bars of symbol over [start, end]. Every failure,
// including an empty range, is reported as a *model.DataUnavailableError.
func (c *Collector) Collect(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if end.Before(start) {
		return nil, &model.InvalidInputError{
			Field:  "end_date",
			Reason: fmt.Sprintf("%s is before start %s", end.Format(model.DateLayout), start.Format(model.DateLayout)),
		}
	}

	bars, err := c.Fetcher.FetchBars(ctx, symbol, start, end)
	if err != nil {
		var due *model.DataUnavailableError
		if errors.As(err, &due) {
			return nil, err
		}
		return nil, &model.DataUnavailableError{Symbol: symbol, Err: fmt.Errorf("%s: %w", c.Fetcher.Name(), err)}
	}
	if len(bars) == 0 {
		return nil, &model.DataUnavailableError{
			Symbol: symbol,
			Err:    fmt.Errorf("%s returned no bars between %s and %s", c.Fetcher.Name(), start.Format(model.DateLayout), end.Format(model.DateLayout)),
		}
	}

	// Ensure chronological order
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	series := &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
	if err := series.Validate(); err != nil {
		return nil, &model.DataUnavailableError{Symbol: symbol, Err: err}
	}
	log.Debug().Str("symbol", symbol).Str("source", c.Fetcher.Name()).Int("bars", len(bars)).Msg("collected")
	return series, nil
}
