// Package monitor implements the tick state machine: compare a fetched
// observation against the recorded state of a target and decide which
// notification, if any, is due. The Runner wires the state machine to the
// fetchers, the state store, and the notification dispatcher.
package monitor

import (
	"time"

	"github.com/driftwatch/driftwatch/models"
)

// Outcome is the conclusion of a single tick. Every tick produces exactly
// one outcome.
type Outcome string

const (
	// OutcomeStartup is the first successful observation of a target.
	OutcomeStartup Outcome = "STARTUP"
	// OutcomeChange means the fetched value differs from the stored one.
	OutcomeChange Outcome = "CHANGE"
	// OutcomeHealthcheck is the periodic liveness signal while the value
	// stays the same.
	OutcomeHealthcheck Outcome = "HEALTHCHECK"
	// OutcomeNone is a quiet tick: value unchanged, no healthcheck due.
	OutcomeNone Outcome = "NONE"
	// OutcomeFetchFailed means the target could not be read. The stored
	// state is left untouched.
	OutcomeFetchFailed Outcome = "FETCH_FAILED"
)

func (o Outcome) String() string { return string(o) }

// Notifiable reports whether the outcome sends a notification by default.
// Fetch failures are log-only unless notify.on_failure is set.
func (o Outcome) Notifiable() bool {
	switch o {
	case OutcomeStartup, OutcomeChange, OutcomeHealthcheck:
		return true
	default:
		return false
	}
}

// EventKind maps the outcome onto the persisted event taxonomy. NONE ticks
// are never recorded, so the mapping is only used for the other outcomes.
func (o Outcome) EventKind() models.EventKind { return models.EventKind(o) }

// Decision is what a tick concluded, carrying the readings the notification
// templates need.
type Decision struct {
	Outcome Outcome
	// Old is the stored reading before the tick; zero on STARTUP.
	Old models.Observation
	// New is the fetched reading; zero on FETCH_FAILED.
	New models.Observation
	// Err is the fetch error behind a FETCH_FAILED outcome.
	Err error
}

// Evaluate runs one tick's decision logic for a successful observation.
//
// Rules, in priority order:
//   - no prior state, or an uninitialised record: STARTUP
//   - fetched value differs from the stored value: CHANGE, which also
//     resets the healthcheck clock
//   - value unchanged and the healthcheck interval has elapsed: HEALTHCHECK
//   - otherwise NONE; only last_checked_at advances
//
// healthcheckInterval <= 0 disables HEALTHCHECK outcomes. A zero
// LastHealthcheckAt with healthchecks enabled counts as immediately due.
// Evaluate never mutates prior; it returns the full replacement state.
func Evaluate(prior *models.MonitorState, obs models.Observation, now time.Time, healthcheckInterval time.Duration) (models.MonitorState, Decision) {
	if prior == nil || !prior.Initialized {
		st := models.MonitorState{
			LastValue:         obs.Value,
			LastLink:          obs.Link,
			LastNote:          obs.Note,
			LastCheckedAt:     now,
			LastHealthcheckAt: now,
			Initialized:       true,
		}
		return st, Decision{Outcome: OutcomeStartup, New: obs}
	}

	if obs.Value != prior.LastValue {
		st := models.MonitorState{
			LastValue:         obs.Value,
			LastLink:          obs.Link,
			LastNote:          obs.Note,
			LastCheckedAt:     now,
			LastHealthcheckAt: now,
			Initialized:       true,
		}
		return st, Decision{Outcome: OutcomeChange, Old: prior.Observation(), New: obs}
	}

	st := *prior
	st.LastCheckedAt = now

	healthcheckDue := healthcheckInterval > 0 &&
		(prior.LastHealthcheckAt.IsZero() || now.Sub(prior.LastHealthcheckAt) >= healthcheckInterval)
	if healthcheckDue {
		st.LastHealthcheckAt = now
		return st, Decision{Outcome: OutcomeHealthcheck, Old: prior.Observation(), New: obs}
	}

	return st, Decision{Outcome: OutcomeNone, Old: prior.Observation(), New: obs}
}
