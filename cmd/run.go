package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/fetch"
	"github.com/driftwatch/driftwatch/internal/monitor"
	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/driftwatch/driftwatch/models"
	"github.com/spf13/cobra"
)

var (
	runTargetIDs []string
	runDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate every configured target once",
	Long: `Fetches the current value of each target, compares it against the
recorded state, and sends any notifications that fall out of the tick.

Examples:
  driftwatch run
  driftwatch run --target ryhti-openapi
  driftwatch run --dry-run`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runTargetIDs, "target", nil, "Only evaluate the listed target IDs (default: all)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Fetch and compare but do not save state or notify")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	targets, err := selectTargets(cfg.Targets, runTargetIDs)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets configured; run 'driftwatch init' or add targets to the config")
	}

	store, err := state.New(cfg.State)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	dispatcher := notify.NewDispatcher(cfg.Notify)
	if !dispatcher.IsAnyConfigured() && !runDryRun {
		return fmt.Errorf("no notification channel configured; run 'driftwatch init' or use --dry-run")
	}

	runner := monitor.NewRunner(monitor.RunnerConfig{
		Store:               store,
		Notifier:            dispatcher,
		NewFetcher:          fetcherFactory(cfg),
		HealthcheckInterval: cfg.Monitor.HealthcheckInterval(),
		FetchTimeout:        cfg.Monitor.FetchTimeout(),
		NotifyOnFailure:     cfg.Notify.OnFailure,
		DryRun:              runDryRun,
	})

	slog.Info("Starting tick", "targets", len(targets), "dry_run", runDryRun)

	summary := runner.RunAll(ctx, targets)
	printRunSummary(summary, runDryRun)

	return nil
}

// fetcherFactory adapts the fetch constructors to the runner's factory shape,
// closing over the loaded config for provider credentials.
func fetcherFactory(cfg *config.Config) monitor.FetcherFactory {
	return func(target models.Target) (monitor.Fetcher, error) {
		return fetch.New(target, cfg)
	}
}

// selectTargets filters the configured targets down to the requested IDs.
// An unknown ID is an error rather than a silent no-op.
func selectTargets(all []models.Target, ids []string) ([]models.Target, error) {
	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[string]models.Target, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	selected := make([]models.Target, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown target %q (configured: %s)", id, strings.Join(targetIDs(all), ", "))
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func targetIDs(targets []models.Target) []string {
	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}
	return ids
}

func printRunSummary(summary monitor.Summary, dryRun bool) {
	fmt.Println("=== Tick Results ===")

	for _, r := range summary.Results {
		detail := ""
		switch r.Decision.Outcome {
		case monitor.OutcomeStartup:
			detail = fmt.Sprintf("recorded %s", r.Decision.New.Value)
		case monitor.OutcomeChange:
			detail = fmt.Sprintf("%s -> %s", r.Decision.Old.Value, r.Decision.New.Value)
		case monitor.OutcomeHealthcheck:
			detail = fmt.Sprintf("unchanged at %s", r.Decision.New.Value)
		case monitor.OutcomeNone:
			detail = "no change"
		case monitor.OutcomeFetchFailed:
			detail = r.Err.Error()
		}
		fmt.Printf("[%s] %s — %s\n", r.Decision.Outcome, r.Target.ID, detail)
	}

	fmt.Println()
	fmt.Printf("Totals — startup: %d  change: %d  healthcheck: %d  quiet: %d  failed: %d\n",
		summary.Count(monitor.OutcomeStartup),
		summary.Count(monitor.OutcomeChange),
		summary.Count(monitor.OutcomeHealthcheck),
		summary.Count(monitor.OutcomeNone),
		summary.Count(monitor.OutcomeFetchFailed),
	)
	if dryRun {
		fmt.Println()
		fmt.Println("Dry run: no state was saved and no notifications were sent.")
	}
}
