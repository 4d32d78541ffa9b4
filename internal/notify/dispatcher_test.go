package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

type fakeChannel struct {
	name       string
	configured bool
	fallback   bool
	err        error
	sent       []Event
}

func (f *fakeChannel) Name() string       { return f.name }
func (f *fakeChannel) IsConfigured() bool { return f.configured }
func (f *fakeChannel) Fallback() bool     { return f.fallback }

func (f *fakeChannel) Send(_ context.Context, evt Event) error {
	f.sent = append(f.sent, evt)
	return f.err
}

func testEvent() Event {
	return Event{
		Kind:       models.EventChange,
		TargetID:   "openapi",
		TargetName: "Ryhti OpenAPI",
		Subject:    "Ryhti OpenAPI: CHANGE detected",
		Body:       "[Ryhti OpenAPI][CHANGE] Monitored value changed.",
	}
}

func TestDispatcherPrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakeChannel{name: "mail", configured: true}
	backup := &fakeChannel{name: "slack", configured: true, fallback: true}
	d := &Dispatcher{primary: []Channel{primary}, fallback: []Channel{backup}}

	if err := d.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(primary.sent) != 1 {
		t.Fatalf("expected 1 primary send, got %d", len(primary.sent))
	}
	if len(backup.sent) != 0 {
		t.Fatalf("fallback fired even though primary delivered")
	}
}

func TestDispatcherFallbackFiresWhenPrimariesFail(t *testing.T) {
	primary := &fakeChannel{name: "mail", configured: true, err: errors.New("smtp down")}
	backup := &fakeChannel{name: "slack", configured: true, fallback: true}
	d := &Dispatcher{primary: []Channel{primary}, fallback: []Channel{backup}}

	err := d.Notify(context.Background(), testEvent())
	if len(backup.sent) != 1 {
		t.Fatalf("expected fallback to fire, got %d sends", len(backup.sent))
	}
	if err == nil || !strings.Contains(err.Error(), "mail") {
		t.Fatalf("expected joined error naming the failed channel, got %v", err)
	}
}

func TestDispatcherFallbackOnlyActsAsPrimary(t *testing.T) {
	backup := &fakeChannel{name: "slack", configured: true, fallback: true}
	d := &Dispatcher{fallback: []Channel{backup}}

	if err := d.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(backup.sent) != 1 {
		t.Fatalf("expected lone fallback channel to deliver, got %d sends", len(backup.sent))
	}
}

func TestDispatcherAllChannelsFailReturnsJoinedError(t *testing.T) {
	p1 := &fakeChannel{name: "mail", configured: true, err: errors.New("boom")}
	p2 := &fakeChannel{name: "webhook", configured: true, err: errors.New("bust")}
	backup := &fakeChannel{name: "slack", configured: true, fallback: true, err: errors.New("bang")}
	d := &Dispatcher{primary: []Channel{p1, p2}, fallback: []Channel{backup}}

	err := d.Notify(context.Background(), testEvent())
	if err == nil {
		t.Fatal("expected error when every channel fails")
	}
	for _, name := range []string{"mail", "webhook", "slack"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("joined error missing channel %q: %v", name, err)
		}
	}
}

func TestNewDispatcherSplitsPrimaryAndFallback(t *testing.T) {
	cfg := config.NotifyConfig{
		Mailjet: config.MailjetNotifyConfig{
			APIKey:    "key",
			SecretKey: "secret",
			From:      "monitor@example.org",
			To:        "ops@example.org",
		},
		Slack:   config.SlackNotifyConfig{WebhookURL: "https://hooks.slack.example/T/B/x"},
		Webhook: config.WebhookNotifyConfig{URL: "https://ci.example.org/hook"},
	}
	d := NewDispatcher(cfg)

	if !d.IsAnyConfigured() {
		t.Fatal("expected dispatcher to report configured channels")
	}
	if len(d.primary) != 2 {
		t.Fatalf("expected mailjet+webhook as primaries, got %d", len(d.primary))
	}
	if len(d.fallback) != 1 || d.fallback[0].Name() != "slack" {
		t.Fatalf("expected slack as the lone fallback, got %+v", d.fallback)
	}
}

func TestNewDispatcherSlackCanBePrimary(t *testing.T) {
	fallbackOnly := false
	cfg := config.NotifyConfig{
		Slack: config.SlackNotifyConfig{
			WebhookURL:   "https://hooks.slack.example/T/B/x",
			FallbackOnly: &fallbackOnly,
		},
	}
	d := NewDispatcher(cfg)
	if len(d.primary) != 1 || len(d.fallback) != 0 {
		t.Fatalf("expected slack promoted to primary, got primary=%d fallback=%d", len(d.primary), len(d.fallback))
	}
}

func TestNewDispatcherEmptyConfig(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{})
	if d.IsAnyConfigured() {
		t.Fatal("expected no configured channels for empty config")
	}
	if err := d.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("notify with no channels should be a no-op, got %v", err)
	}
}
