package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/hako/durafmt"

	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/models"
)

// renderEvent builds the notification for a tick decision. Subjects follow
// the "<name>: KIND" convention so inbox filters stay trivial; bodies open
// with a [name][KIND] banner and close with the check timestamp.
func renderEvent(target models.Target, dec Decision, prior *models.MonitorState, now time.Time) notify.Event {
	name := target.DisplayName()
	evt := notify.Event{
		Kind:       dec.Outcome.EventKind(),
		TargetID:   target.ID,
		TargetName: name,
		OldValue:   dec.Old.Value,
		NewValue:   dec.New.Value,
		Link:       dec.New.Link,
	}

	var b strings.Builder
	switch dec.Outcome {
	case OutcomeStartup:
		evt.Subject = fmt.Sprintf("%s: STARTUP", name)
		fmt.Fprintf(&b, "[%s][STARTUP] Monitor initialized and fetched initial data.\n\n", name)
		fmt.Fprintf(&b, "Target: %s\n", target.Describe())
		fmt.Fprintf(&b, "Value: %s\n", dec.New.Value)
		writeReading(&b, dec.New)
		b.WriteString("\nThis is the initial startup notification.\n")

	case OutcomeChange:
		evt.Subject = fmt.Sprintf("%s: CHANGE detected", name)
		fmt.Fprintf(&b, "[%s][CHANGE] Monitored value changed.\n\n", name)
		fmt.Fprintf(&b, "Target: %s\n", target.Describe())
		fmt.Fprintf(&b, "New value: %s\n", dec.New.Value)
		writeReading(&b, dec.New)
		fmt.Fprintf(&b, "\nPrevious value: %s\n", dec.Old.Value)
		if dec.Old.Note != "" {
			fmt.Fprintf(&b, "Previous note: %s\n", dec.Old.Note)
		}

	case OutcomeHealthcheck:
		evt.Subject = fmt.Sprintf("%s: HEALTHCHECK — no changes", name)
		fmt.Fprintf(&b, "[%s][HEALTHCHECK] No changes detected, the monitor itself is alive.\n\n", name)
		fmt.Fprintf(&b, "Target: %s\n", target.Describe())
		fmt.Fprintf(&b, "Current value: %s\n", dec.New.Value)
		writeReading(&b, dec.New)
		if prior != nil && !prior.LastHealthcheckAt.IsZero() {
			silent := now.Sub(prior.LastHealthcheckAt).Round(time.Second)
			fmt.Fprintf(&b, "Silent since last notification: %s\n", durafmt.Parse(silent).LimitFirstN(2))
		}

	case OutcomeFetchFailed:
		evt.Subject = fmt.Sprintf("%s: FETCH FAILED", name)
		fmt.Fprintf(&b, "[%s][FETCH_FAILED] Could not read the monitored value.\n\n", name)
		fmt.Fprintf(&b, "Target: %s\n", target.Describe())
		if dec.Err != nil {
			fmt.Fprintf(&b, "Error: %v\n", dec.Err)
		}
		if dec.Old.Value != "" {
			fmt.Fprintf(&b, "Last known value: %s (unchanged)\n", dec.Old.Value)
		}
		b.WriteString("\nState was left untouched; the next scheduled run will retry.\n")
	}

	fmt.Fprintf(&b, "\nChecked at: %s\n", now.UTC().Format(time.RFC3339))
	evt.Body = b.String()
	return evt
}

// writeReading appends the optional note and link lines of an observation.
func writeReading(b *strings.Builder, obs models.Observation) {
	if obs.Note != "" {
		fmt.Fprintf(b, "Note: %s\n", obs.Note)
	}
	if obs.Link != "" {
		fmt.Fprintf(b, "Link: %s\n", obs.Link)
	}
}
