package models

import "time"

// EventKind classifies the notification outcome of a tick.
type EventKind string

const (
	EventStartup     EventKind = "STARTUP"
	EventChange      EventKind = "CHANGE"
	EventHealthcheck EventKind = "HEALTHCHECK"
	EventFetchFailed EventKind = "FETCH_FAILED"
)

func (k EventKind) String() string { return string(k) }

// ParseEventKind normalises a stored kind string.
func ParseEventKind(raw string) EventKind {
	switch raw {
	case "STARTUP", "startup":
		return EventStartup
	case "CHANGE", "change":
		return EventChange
	case "HEALTHCHECK", "healthcheck":
		return EventHealthcheck
	case "FETCH_FAILED", "fetch_failed":
		return EventFetchFailed
	default:
		return EventKind(raw)
	}
}

// Event is one row of the append-only tick history. NONE ticks are not
// recorded. CreatedAt is stored as RFC3339 text in every backend.
type Event struct {
	ID       int64  `json:"id"        db:"id"`
	TargetID string `json:"target_id" db:"target_id"`
	Kind     string `json:"kind"      db:"kind"`
	OldValue string `json:"old_value" db:"old_value"`
	NewValue string `json:"new_value" db:"new_value"`
	Message  string `json:"message"   db:"message"`

	CreatedAt string `json:"created_at" db:"created_at"`
}

// Time parses CreatedAt, returning the zero time when it is malformed.
func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
