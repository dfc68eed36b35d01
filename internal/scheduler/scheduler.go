package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Backtester/internal/backtest"
	"Backtester/internal/notifier"
	"Backtester/internal/recorder"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// History reads back recorded runs, newest first.
type History interface {
	RecentRuns(symbol string, limit int) ([]recorder.RunSummary, error)
}

// historyLimit is the number of runs listed by /history.
const historyLimit = 10

// Scheduler reruns the configured backtests on a cron schedule and answers
// chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *backtest.Runner
	Notifier Sender
	History  History
	Symbols  []string
	Start    time.Time
	// End is the last date of every run; zero means the current day.
	End time.Time
	Ctx context.Context
	Now func() time.Time
}

// NewScheduler creates a new Scheduler. A sender that reports itself as not
// enabled is dropped, so reports are logged instead.
func NewScheduler(ctx context.Context, runner *backtest.Runner, sender Sender, symbols []string, start, end time.Time) *Scheduler {
	if e, ok := sender.(interface{ Enabled() bool }); ok && !e.Enabled() {
		sender = nil
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Symbols:  symbols,
		Start:    start,
		End:      end,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// Register adds the periodic backtest task.
func (s *Scheduler) Register(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.runTask); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// StartCron starts the cron scheduler.
func (s *Scheduler) StartCron() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the scheduled task immediately.
func (s *Scheduler) RunNow() {
	s.runTask()
}

func (s *Scheduler) endDate() time.Time {
	if !s.End.IsZero() {
		return s.End
	}
	now := s.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scheduler) runTask() {
	s.runSymbols(s.Symbols)
}

func (s *Scheduler) runSymbols(symbols []string) {
	log.Info().Strs("symbols", symbols).Msg("running scheduled backtests")
	for _, o := range s.Runner.RunAll(s.Ctx, symbols, s.Start, s.endDate()) {
		if o.Err != nil {
			log.Error().Err(o.Err).Str("symbol", o.Symbol).Msg("scheduled backtest")
			s.trySend(notifier.FormatFailure(o.Symbol, o.Err))
			continue
		}
		s.trySend(notifier.FormatReport(o.Result))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return usage
	}
	switch fields[0] {
	case "/run":
		symbols := s.Symbols
		if len(fields) > 1 {
			symbols = fields[1:]
		}
		s.runSymbols(symbols)
		return ""
	case "/symbols":
		return "Tracked symbols: " + strings.Join(s.Symbols, ", ")
	case "/history":
		symbol := ""
		if len(fields) > 1 {
			symbol = fields[1]
		}
		return s.history(symbol)
	case "/help", "/start":
		return usage
	default:
		return usage
	}
}

const usage = "Available commands:\n• /run [SYMBOL ...]\n• /history [SYMBOL]\n• /symbols\n• /help"

func (s *Scheduler) history(symbol string) string {
	if s.History == nil {
		return "Run history is not recorded."
	}
	runs, err := s.History.RecentRuns(symbol, historyLimit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("read history")
		return "Failed to read run history."
	}
	return notifier.FormatHistory(runs)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Info().Msg(text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
