package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/models"
)

type fakeStore struct {
	state     map[string]*models.MonitorState
	events    []models.Event
	loadErr   error
	saveErr   error
	appendErr error
	saves     int
	onSave    func()
}

func (f *fakeStore) Load(_ context.Context, id string) (*models.MonitorState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.state[id], nil
}

func (f *fakeStore) Save(_ context.Context, id string, st models.MonitorState) error {
	f.saves++
	if f.onSave != nil {
		f.onSave()
	}
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.state == nil {
		f.state = map[string]*models.MonitorState{}
	}
	cp := st
	f.state[id] = &cp
	return nil
}

func (f *fakeStore) AppendEvent(_ context.Context, evt models.Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, evt)
	return nil
}

type fakeNotifier struct {
	events   []notify.Event
	err      error
	onNotify func()
}

func (f *fakeNotifier) Notify(_ context.Context, evt notify.Event) error {
	if f.onNotify != nil {
		f.onNotify()
	}
	f.events = append(f.events, evt)
	return f.err
}

type fetchFunc func(ctx context.Context) (models.Observation, error)

func (fn fetchFunc) Fetch(ctx context.Context) (models.Observation, error) { return fn(ctx) }

func staticFetcher(obs models.Observation, err error) FetcherFactory {
	return func(models.Target) (Fetcher, error) {
		return fetchFunc(func(context.Context) (models.Observation, error) { return obs, err }), nil
	}
}

func testTarget() models.Target {
	return models.Target{
		ID:    "openapi",
		Name:  "Ryhti OpenAPI",
		Kind:  models.KindGitHubCommits,
		Owner: "sykefi",
		Repo:  "Ryhti-rajapintakuvaukset",
		Path:  "OpenApi",
	}
}

func newTestRunner(store *fakeStore, notifier *fakeNotifier, factory FetcherFactory, opts func(*RunnerConfig)) *Runner {
	cfg := RunnerConfig{
		Store:               store,
		Notifier:            notifier,
		NewFetcher:          factory,
		HealthcheckInterval: week,
		FetchTimeout:        time.Second,
		Now:                 func() time.Time { return t0 },
	}
	if opts != nil {
		opts(&cfg)
	}
	return NewRunner(cfg)
}

func TestRunTargetFirstTick(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Decision.Outcome != OutcomeStartup {
		t.Fatalf("expected STARTUP, got %s", res.Decision.Outcome)
	}

	st := store.state["openapi"]
	if st == nil || !st.Initialized || st.LastValue != "abc123" {
		t.Fatalf("state not persisted: %+v", st)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.events))
	}
	evt := notifier.events[0]
	if evt.Subject != "Ryhti OpenAPI: STARTUP" {
		t.Fatalf("unexpected subject %q", evt.Subject)
	}
	if !strings.HasPrefix(evt.Body, "[Ryhti OpenAPI][STARTUP]") {
		t.Fatalf("body must open with the banner, got %q", evt.Body)
	}
	if !strings.Contains(evt.Body, "Checked at: "+t0.Format(time.RFC3339)) {
		t.Fatalf("body must close with the check timestamp, got %q", evt.Body)
	}
	if len(store.events) != 1 || store.events[0].Kind != "STARTUP" {
		t.Fatalf("startup event not recorded: %+v", store.events)
	}
}

func TestRunTargetFetchFailureLeavesStateUntouched(t *testing.T) {
	prior := initializedState(t0.Add(-time.Hour))
	store := &fakeStore{state: map[string]*models.MonitorState{"openapi": prior}}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(models.Observation{}, errors.New("HTTP 503")), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Err == nil {
		t.Fatal("expected fetch error to surface in the result")
	}
	if res.Decision.Outcome != OutcomeFetchFailed {
		t.Fatalf("expected FETCH_FAILED, got %s", res.Decision.Outcome)
	}
	if store.saves != 0 {
		t.Fatalf("fetch failure must not write state, saw %d saves", store.saves)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("fetch failures are log-only by default, got %d notifications", len(notifier.events))
	}
	if len(store.events) != 1 || store.events[0].Kind != "FETCH_FAILED" {
		t.Fatalf("failure must still be recorded in history: %+v", store.events)
	}
	if store.events[0].Message != "HTTP 503" {
		t.Fatalf("history should carry the error, got %q", store.events[0].Message)
	}
}

func TestRunTargetFetchFailureNotifiesWhenEnabled(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(models.Observation{}, errors.New("timeout")), func(cfg *RunnerConfig) {
		cfg.NotifyOnFailure = true
	})

	r.RunTarget(context.Background(), testTarget())
	if len(notifier.events) != 1 {
		t.Fatalf("expected a failure notification, got %d", len(notifier.events))
	}
	if notifier.events[0].Kind != models.EventFetchFailed {
		t.Fatalf("unexpected kind %s", notifier.events[0].Kind)
	}
	if notifier.events[0].Subject != "Ryhti OpenAPI: FETCH FAILED" {
		t.Fatalf("unexpected subject %q", notifier.events[0].Subject)
	}
}

func TestRunTargetChangeSavesBeforeNotifying(t *testing.T) {
	prior := initializedState(t0.Add(-time.Hour))
	store := &fakeStore{state: map[string]*models.MonitorState{"openapi": prior}}
	notifier := &fakeNotifier{}

	var ops []string
	store.onSave = func() { ops = append(ops, "save") }
	notifier.onNotify = func() { ops = append(ops, "notify") }

	newObs := models.Observation{Value: "def456", Link: "https://example/commit/def456"}
	r := newTestRunner(store, notifier, staticFetcher(newObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Decision.Outcome != OutcomeChange {
		t.Fatalf("expected CHANGE, got %s", res.Decision.Outcome)
	}
	if len(ops) != 2 || ops[0] != "save" || ops[1] != "notify" {
		t.Fatalf("state must be saved before notifying, got %v", ops)
	}
	if store.state["openapi"].LastValue != "def456" {
		t.Fatalf("new value not persisted: %+v", store.state["openapi"])
	}
	evt := notifier.events[0]
	if evt.OldValue != "abc123" || evt.NewValue != "def456" {
		t.Fatalf("notification readings wrong: %+v", evt)
	}
	if len(store.events) != 1 || store.events[0].Message != "abc123 -> def456" {
		t.Fatalf("change event not recorded: %+v", store.events)
	}
}

func TestRunTargetSaveFailureStillNotifies(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Err != nil {
		t.Fatalf("save failures must not fail the tick: %v", res.Err)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("notification must go out even when the save failed, got %d", len(notifier.events))
	}
}

func TestRunTargetNotifyFailureDoesNotFailTick(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("all channels down")}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Err != nil {
		t.Fatalf("delivery failures must not fail the tick: %v", res.Err)
	}
	if store.saves != 1 {
		t.Fatalf("state must still be saved, saw %d saves", store.saves)
	}
}

func TestRunTargetQuietTickRecordsNothing(t *testing.T) {
	prior := initializedState(t0.Add(-time.Hour))
	store := &fakeStore{state: map[string]*models.MonitorState{"openapi": prior}}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Decision.Outcome != OutcomeNone {
		t.Fatalf("expected NONE, got %s", res.Decision.Outcome)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("quiet ticks must not notify, got %d", len(notifier.events))
	}
	if len(store.events) != 0 {
		t.Fatalf("quiet ticks must not enter history, got %+v", store.events)
	}
	if store.saves != 1 {
		t.Fatalf("quiet ticks still advance last_checked_at, saw %d saves", store.saves)
	}
}

func TestRunTargetHealthcheck(t *testing.T) {
	prior := initializedState(t0.Add(-2 * week))
	store := &fakeStore{state: map[string]*models.MonitorState{"openapi": prior}}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Decision.Outcome != OutcomeHealthcheck {
		t.Fatalf("expected HEALTHCHECK, got %s", res.Decision.Outcome)
	}
	evt := notifier.events[0]
	if evt.Subject != "Ryhti OpenAPI: HEALTHCHECK — no changes" {
		t.Fatalf("unexpected subject %q", evt.Subject)
	}
	if !strings.Contains(evt.Body, "Silent since last notification: 2 weeks") {
		t.Fatalf("body should mention the silent window, got %q", evt.Body)
	}
}

func TestRunTargetDryRunTouchesNothing(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), func(cfg *RunnerConfig) {
		cfg.DryRun = true
	})

	res := r.RunTarget(context.Background(), testTarget())
	if res.Decision.Outcome != OutcomeStartup {
		t.Fatalf("dry run must still evaluate, got %s", res.Decision.Outcome)
	}
	if store.saves != 0 || len(store.events) != 0 || len(notifier.events) != 0 {
		t.Fatalf("dry run must not persist or notify: saves=%d events=%d notifications=%d",
			store.saves, len(store.events), len(notifier.events))
	}
}

func TestRunTargetLoadErrorDegradesToStartup(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("corrupt record")}
	notifier := &fakeNotifier{}
	r := newTestRunner(store, notifier, staticFetcher(firstObs, nil), nil)

	res := r.RunTarget(context.Background(), testTarget())
	if res.Decision.Outcome != OutcomeStartup {
		t.Fatalf("unreadable state must restart the target, got %s", res.Decision.Outcome)
	}
}

func TestRunAllIsolatesFailures(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	broken := testTarget()
	healthy := models.Target{ID: "models", Kind: models.KindWebVersion, URL: "https://example.org"}

	factory := func(target models.Target) (Fetcher, error) {
		if target.ID == "openapi" {
			return fetchFunc(func(context.Context) (models.Observation, error) {
				return models.Observation{}, errors.New("boom")
			}), nil
		}
		return fetchFunc(func(context.Context) (models.Observation, error) {
			return models.Observation{Value: "1.0.5"}, nil
		}), nil
	}
	r := newTestRunner(store, notifier, factory, nil)

	sum := r.RunAll(context.Background(), []models.Target{broken, healthy})
	if sum.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(sum.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sum.Results))
	}
	if sum.Count(OutcomeFetchFailed) != 1 || sum.Count(OutcomeStartup) != 1 {
		t.Fatalf("unexpected counts: failed=%d startup=%d",
			sum.Count(OutcomeFetchFailed), sum.Count(OutcomeStartup))
	}
	if store.state["models"] == nil || store.state["models"].LastValue != "1.0.5" {
		t.Fatalf("healthy target must complete despite the broken one: %+v", store.state)
	}
}
