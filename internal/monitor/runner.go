package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/models"
)

// Fetcher reads the current observable value of one target. The concrete
// implementations live in internal/fetch.
type Fetcher interface {
	Fetch(ctx context.Context) (models.Observation, error)
}

// FetcherFactory builds the fetcher for a target. Construction errors are
// configuration errors (unknown kind, invalid pattern), not fetch errors.
type FetcherFactory func(target models.Target) (Fetcher, error)

// Store is the slice of the state store the runner needs.
type Store interface {
	Load(ctx context.Context, targetID string) (*models.MonitorState, error)
	Save(ctx context.Context, targetID string, st models.MonitorState) error
	AppendEvent(ctx context.Context, evt models.Event) error
}

// Notifier dispatches one rendered notification.
type Notifier interface {
	Notify(ctx context.Context, evt notify.Event) error
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Store      Store
	Notifier   Notifier
	NewFetcher FetcherFactory

	// HealthcheckInterval <= 0 disables healthcheck notifications.
	HealthcheckInterval time.Duration
	// FetchTimeout bounds each fetch call. Defaults to 30s.
	FetchTimeout time.Duration
	// NotifyOnFailure also sends notifications for FETCH_FAILED ticks.
	NotifyOnFailure bool
	// DryRun evaluates decisions without saving state or notifying.
	DryRun bool

	// Now is the tick clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Runner orchestrates ticks: load state, fetch, evaluate, persist, notify,
// record. Targets are independent; a failure in one never stops the others.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Runner{cfg: cfg}
}

// TargetResult is the outcome of one target's tick.
type TargetResult struct {
	Target   models.Target
	Decision Decision
	// Err is set for fetch and fetcher-construction failures. Save and
	// notify problems are logged, not surfaced here.
	Err error
}

// Summary aggregates one run over all targets.
type Summary struct {
	RunID   string
	Results []TargetResult
}

// Count returns how many targets concluded with outcome o.
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Decision.Outcome == o {
			n++
		}
	}
	return n
}

// RunAll ticks every target sequentially and returns the aggregate summary.
// The process outcome is always "run completed": per-target failures are
// logged and counted, never escalated.
func (r *Runner) RunAll(ctx context.Context, targets []models.Target) Summary {
	sum := Summary{RunID: uuid.NewString()}
	log := slog.With("run_id", sum.RunID)
	log.Info("Tick started", "targets", len(targets), "dry_run", r.cfg.DryRun)

	for _, target := range targets {
		sum.Results = append(sum.Results, r.RunTarget(ctx, target))
	}

	log.Info("Tick finished",
		"startup", sum.Count(OutcomeStartup),
		"change", sum.Count(OutcomeChange),
		"healthcheck", sum.Count(OutcomeHealthcheck),
		"quiet", sum.Count(OutcomeNone),
		"failed", sum.Count(OutcomeFetchFailed),
	)
	return sum
}

// RunTarget executes one tick for one target.
func (r *Runner) RunTarget(ctx context.Context, target models.Target) TargetResult {
	log := slog.With("target", target.ID)
	now := r.cfg.Now().UTC()

	fetcher, err := r.cfg.NewFetcher(target)
	if err != nil {
		log.Error("Building fetcher failed", "error", err)
		return TargetResult{Target: target, Decision: Decision{Outcome: OutcomeFetchFailed, Err: err}, Err: err}
	}

	prior, err := r.cfg.Store.Load(ctx, target.ID)
	if err != nil {
		// An unreadable record degrades to a fresh start instead of
		// wedging the target forever.
		log.Warn("Loading state failed; treating target as new", "error", err)
		prior = nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	obs, err := fetcher.Fetch(fetchCtx)
	cancel()
	if err != nil {
		// The stored state stays untouched so the next successful fetch
		// still compares against the last known-good value.
		log.Warn("Fetch failed; state untouched", "error", err)
		dec := Decision{Outcome: OutcomeFetchFailed, Err: err}
		if prior != nil {
			dec.Old = prior.Observation()
		}
		if !r.cfg.DryRun {
			r.record(ctx, target, dec, now)
			if r.cfg.NotifyOnFailure {
				r.send(ctx, target, dec, prior, now)
			}
		}
		return TargetResult{Target: target, Decision: dec, Err: err}
	}

	newState, dec := Evaluate(prior, obs, now, r.cfg.HealthcheckInterval)

	if r.cfg.DryRun {
		log.Info("Decision (dry run)", "outcome", dec.Outcome, "value", obs.Value)
		return TargetResult{Target: target, Decision: dec}
	}

	// State is written before any notification goes out; a delivery
	// failure must never replay as a duplicate CHANGE on the next tick.
	if err := r.cfg.Store.Save(ctx, target.ID, newState); err != nil {
		log.Error("Saving state failed; notification still dispatched", "error", err)
	}

	if dec.Outcome.Notifiable() {
		r.send(ctx, target, dec, prior, now)
	}
	if dec.Outcome != OutcomeNone {
		r.record(ctx, target, dec, now)
	}

	log.Info("Tick complete", "outcome", dec.Outcome, "value", obs.Value)
	return TargetResult{Target: target, Decision: dec}
}

// send renders and dispatches the notification for dec. Failures are
// logged only: the state write has already happened and the next tick must
// run on schedule regardless.
func (r *Runner) send(ctx context.Context, target models.Target, dec Decision, prior *models.MonitorState, now time.Time) {
	evt := renderEvent(target, dec, prior, now)
	if err := r.cfg.Notifier.Notify(ctx, evt); err != nil {
		slog.Warn("Notification delivery incomplete", "target", target.ID, "kind", evt.Kind, "error", err)
	}
}

// record appends the tick outcome to the event history, best-effort.
func (r *Runner) record(ctx context.Context, target models.Target, dec Decision, now time.Time) {
	evt := models.Event{
		TargetID:  target.ID,
		Kind:      dec.Outcome.String(),
		OldValue:  dec.Old.Value,
		NewValue:  dec.New.Value,
		Message:   eventMessage(dec),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := r.cfg.Store.AppendEvent(ctx, evt); err != nil {
		slog.Warn("Recording event failed", "target", target.ID, "error", err)
	}
}

// eventMessage is the short history line shown by status and the UI.
func eventMessage(dec Decision) string {
	switch dec.Outcome {
	case OutcomeStartup:
		return "first observation recorded"
	case OutcomeChange:
		return fmt.Sprintf("%s -> %s", dec.Old.Value, dec.New.Value)
	case OutcomeHealthcheck:
		return "no change, liveness notification sent"
	case OutcomeFetchFailed:
		if dec.Err != nil {
			return dec.Err.Error()
		}
		return "fetch failed"
	default:
		return ""
	}
}
