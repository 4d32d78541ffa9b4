package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftwatch/driftwatch/internal/config"
)

// Dispatcher routes events to the configured channels. Primary channels all
// receive every event; fallback channels fire only when no primary delivery
// succeeded, so a Slack webhook can back up an unreachable mail provider
// without doubling every notification.
type Dispatcher struct {
	primary  []Channel
	fallback []Channel
}

// Channels returns every known channel built from cfg, configured or not.
// Callers filter on IsConfigured; doctor uses the full list for reporting.
func Channels(cfg config.NotifyConfig) []Channel {
	return []Channel{
		NewMailjet(cfg.Mailjet),
		NewSlack(cfg.Slack),
		NewWebhook(cfg.Webhook),
		NewTelegram(cfg.Telegram),
	}
}

// NewDispatcher creates a Dispatcher from the given config.
// Only channels with IsConfigured() == true are active.
func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	d := &Dispatcher{}
	for _, ch := range Channels(cfg) {
		if !ch.IsConfigured() {
			continue
		}
		if ch.Fallback() {
			d.fallback = append(d.fallback, ch)
		} else {
			d.primary = append(d.primary, ch)
		}
	}
	return d
}

// IsAnyConfigured returns true if at least one channel is ready to send.
func (d *Dispatcher) IsAnyConfigured() bool {
	return len(d.primary)+len(d.fallback) > 0
}

// Notify sends evt to every primary channel, then to the fallback channels
// when nothing was delivered. A dispatcher with only fallback channels
// treats them as primaries. Per-channel failures are logged here; the
// returned joined error exists for caller visibility and never carries
// retry semantics.
func (d *Dispatcher) Notify(ctx context.Context, evt Event) error {
	var errs []error
	delivered := false

	for _, ch := range d.primary {
		if err := ch.Send(ctx, evt); err != nil {
			slog.Warn("Notification channel failed", "channel", ch.Name(), "kind", evt.Kind, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered = true
	}

	if !delivered {
		for _, ch := range d.fallback {
			if err := ch.Send(ctx, evt); err != nil {
				slog.Warn("Fallback channel failed", "channel", ch.Name(), "kind", evt.Kind, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
				continue
			}
			if len(d.primary) > 0 {
				slog.Info("Fallback channel delivered", "channel", ch.Name(), "kind", evt.Kind)
			}
			delivered = true
		}
	}

	return errors.Join(errs...)
}
