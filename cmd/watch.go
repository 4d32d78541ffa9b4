package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/monitor"
	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep evaluating targets on a cron schedule",
	Long: `Runs an immediate tick and then keeps running ticks on the configured
cron schedule until interrupted.

Schedule examples (robfig/cron syntax):
  "@hourly"     — once per hour
  "@every 6h"   — every 6 hours
  "0 8 * * *"   — daily at 08:00

Unlike 'driftwatch run' (one-shot), watch stays in the foreground and is
meant for a tmux session, a systemd unit, or a container entrypoint.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "",
		"cron expression (overrides monitor.schedule from the config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down watch loop...")
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("no targets configured; run 'driftwatch init' or add targets to the config")
	}

	schedule := cfg.Monitor.Schedule
	if watchSchedule != "" {
		schedule = watchSchedule
	}

	store, err := state.New(cfg.State)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	dispatcher := notify.NewDispatcher(cfg.Notify)
	if !dispatcher.IsAnyConfigured() {
		return fmt.Errorf("no notification channel configured; run 'driftwatch init' first")
	}

	runner := monitor.NewRunner(monitor.RunnerConfig{
		Store:               store,
		Notifier:            dispatcher,
		NewFetcher:          fetcherFactory(cfg),
		HealthcheckInterval: cfg.Monitor.HealthcheckInterval(),
		FetchTimeout:        cfg.Monitor.FetchTimeout(),
		NotifyOnFailure:     cfg.Notify.OnFailure,
	})

	// Overlapping ticks are skipped rather than queued: a slow tick must
	// not pile up behind itself.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(schedule, func() {
		summary := runner.RunAll(ctx, cfg.Targets)
		slog.Info("Scheduled tick finished",
			"run_id", summary.RunID,
			"changes", summary.Count(monitor.OutcomeChange),
			"failures", summary.Count(monitor.OutcomeFetchFailed),
		)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Printf("Watching %d target(s) on schedule %q. Ctrl+C to stop.\n", len(cfg.Targets), schedule)

	// First tick fires immediately; cron handles the rest.
	runner.RunAll(ctx, cfg.Targets)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	slog.Info("Watch loop stopped")
	return nil
}
