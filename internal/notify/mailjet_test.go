package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

func newTestMailjet(url string) *MailjetChannel {
	m := NewMailjet(config.MailjetNotifyConfig{
		APIKey:    "apikey",
		SecretKey: "secretkey",
		From:      "Drift Watch <monitor@example.org>",
		To:        "ops@example.org, dev@example.org",
	})
	m.sendURL = url
	m.client.RetryWaitMin = time.Millisecond
	m.client.RetryWaitMax = 5 * time.Millisecond
	return m
}

func TestMailjetSendPayload(t *testing.T) {
	var got struct {
		Messages []mailjetMessage `json:"Messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "apikey" || pass != "secretkey" {
			t.Errorf("unexpected basic auth: %q / %q", user, pass)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestMailjet(srv.URL)
	evt := Event{
		Kind:    models.EventStartup,
		Subject: "Ryhti OpenAPI: STARTUP",
		Body:    "[Ryhti OpenAPI][STARTUP] Monitor initialized and fetched initial data.",
	}
	if err := m.Send(context.Background(), evt); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	msg := got.Messages[0]
	if msg.From.Email != "monitor@example.org" || msg.From.Name != "Drift Watch" {
		t.Fatalf("unexpected sender: %+v", msg.From)
	}
	if len(msg.To) != 2 || msg.To[0].Email != "ops@example.org" || msg.To[1].Email != "dev@example.org" {
		t.Fatalf("unexpected recipients: %+v", msg.To)
	}
	if msg.Subject != evt.Subject || msg.TextPart != evt.Body {
		t.Fatalf("subject/body mismatch: %+v", msg)
	}
	if msg.CustomID == "" {
		t.Fatal("expected a CustomID on the message")
	}
}

func TestMailjetPermanentErrorDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"ErrorMessage":"bad api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := newTestMailjet(srv.URL)
	err := m.Send(context.Background(), Event{Subject: "s", Body: "b"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("4xx must not be retried, server saw %d requests", n)
	}
}

func TestMailjetTransientErrorRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream sad", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestMailjet(srv.URL)
	err := m.Send(context.Background(), Event{Subject: "s", Body: "b"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("expected 3 attempts (initial + 2 retries), server saw %d", n)
	}
}

func TestMailjetRecoversMidRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "flake", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestMailjet(srv.URL)
	if err := m.Send(context.Background(), Event{Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("expected recovery on second attempt, got %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 attempts, server saw %d", n)
	}
}

func TestMailjetIsConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MailjetNotifyConfig
		want bool
	}{
		{"complete", config.MailjetNotifyConfig{APIKey: "k", SecretKey: "s", From: "a@b.c", To: "d@e.f"}, true},
		{"missing keys", config.MailjetNotifyConfig{From: "a@b.c", To: "d@e.f"}, false},
		{"missing recipients", config.MailjetNotifyConfig{APIKey: "k", SecretKey: "s", From: "a@b.c"}, false},
		{"blank recipient list", config.MailjetNotifyConfig{APIKey: "k", SecretKey: "s", From: "a@b.c", To: " , "}, false},
		{"empty", config.MailjetNotifyConfig{}, false},
	}
	for _, tc := range cases {
		if got := NewMailjet(tc.cfg).IsConfigured(); got != tc.want {
			t.Fatalf("%s: IsConfigured = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSplitFromAddress(t *testing.T) {
	name, email := splitFromAddress("Drift Watch <monitor@example.org>")
	if name != "Drift Watch" || email != "monitor@example.org" {
		t.Fatalf("got %q / %q", name, email)
	}
	name, email = splitFromAddress("monitor@example.org")
	if name != "" || email != "monitor@example.org" {
		t.Fatalf("bare address: got %q / %q", name, email)
	}
}
