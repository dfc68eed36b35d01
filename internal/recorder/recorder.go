package recorder

import (
	"time"

	"Backtester/internal/model"
)

// RunRecord holds everything persisted about one finished backtest.
type RunRecord struct {
	Symbol         string
	Start          time.Time
	End            time.Time
	ShortWindow    int
	LongWindow     int
	InitialCapital float64
	Report         model.PerformanceReport
	Values         *model.ValueSeries
}

// RunSummary is a stored run as read back from history.
type RunSummary struct {
	ID          int64
	Timestamp   time.Time
	Symbol      string
	ShortWindow int
	LongWindow  int
	TotalReturn float64
	FinalValue  float64
	SharpeRatio float64
	MaxDrawdown float64
	Entries     int
}

// Recorder persists finished runs for later analysis.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	Close() error
}
