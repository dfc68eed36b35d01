package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Backtester/internal/backtest"
	"Backtester/internal/collector"
	"Backtester/internal/model"
	"Backtester/internal/notifier"
	"Backtester/internal/scheduler"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type serveCmd struct {
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run scheduled backtests and answer Telegram commands" }
func (*serveCmd) Usage() string {
	return `backtest serve [-config <file>] [-now]

  Reruns the configured backtests on schedule.run_cron and sends every report
  to Telegram. Commands /run [SYMBOL...], /history [SYMBOL] and /symbols are answered while the
  daemon runs. Stops on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(configPath, "config", *configPath, "Path to the YAML configuration file")
	f.BoolVar(&c.runOnStart, "now", os.Getenv("RUN_ON_START") == "true", "Run the backtests once at startup")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation")
		return subcommands.ExitUsageError
	}
	start, err := model.ParseDate(cfg.Backtest.StartDate)
	if err != nil {
		log.Error().Err(err).Msg("start date")
		return subcommands.ExitUsageError
	}
	// A zero end keeps every scheduled run current.
	var end time.Time
	if cfg.Backtest.EndDate != "" {
		if end, err = model.ParseDate(cfg.Backtest.EndDate); err != nil {
			log.Error().Err(err).Msg("end date")
			return subcommands.ExitUsageError
		}
	}
	log.Info().Msg("backtest daemon starting")

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("data source")

	rec := openRecorder(cfg)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	runner := backtest.NewRunner(collector.NewCollector(fetcher), rec, paramsFrom(cfg))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A nil sender makes the scheduler log reports instead of sending them.
	var sender scheduler.Sender
	if tn.Enabled() {
		sender = tn
	}
	sched := scheduler.NewScheduler(ctx, runner, sender, cfg.Backtest.Symbols, start, end)
	if h, ok := rec.(scheduler.History); ok {
		sched.History = h
	}
	if err := sched.Register(cfg.Schedule.RunCron); err != nil {
		log.Error().Err(err).Msg("register cron task")
		return subcommands.ExitFailure
	}
	sched.StartCron()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	} else {
		log.Warn().Msg("telegram not configured, reports are only recorded")
	}

	if c.runOnStart {
		log.Info().Msg("running backtests now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.RunCron).Msg("daemon running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	return subcommands.ExitSuccess
}
