package collector

import (
	"context"
	"time"

	"Backtester/internal/model"
)

// Fetcher defines the interface for fetching market data.
// start and end are calendar dates; both are inclusive.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
