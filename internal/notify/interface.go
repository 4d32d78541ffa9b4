package notify

import (
	"context"

	"github.com/driftwatch/driftwatch/models"
)

// Event represents a rendered notification about one monitored target.
type Event struct {
	Kind       models.EventKind // startup | change | healthcheck | fetch_failed
	TargetID   string
	TargetName string
	Subject    string
	Body       string
	OldValue   string // previous observed value (empty for startup)
	NewValue   string // current observed value (empty for fetch_failed)
	Link       string // optional deep link (commit URL, release page)
}

// Channel is implemented by each notification provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	// Fallback reports whether the channel should only fire when every
	// primary channel failed to deliver.
	Fallback() bool
	Send(ctx context.Context, evt Event) error
}
