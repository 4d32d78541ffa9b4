package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

// SlackChannel sends notifications to a Slack incoming webhook URL.
// By default it acts as a fallback: it only fires when email delivery
// failed, so routine healthchecks stay out of the channel.
type SlackChannel struct {
	cfg    config.SlackNotifyConfig
	client *http.Client
}

// NewSlack creates a SlackChannel from cfg.
func NewSlack(cfg config.SlackNotifyConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *SlackChannel) Name() string        { return "slack" }
func (s *SlackChannel) IsConfigured() bool  { return s.cfg.WebhookURL != "" }
func (s *SlackChannel) Fallback() bool      { return s.cfg.IsFallbackOnly() }

func (s *SlackChannel) Send(ctx context.Context, evt Event) error {
	attachment := map[string]any{
		"color":  kindColor(evt.Kind),
		"title":  evt.Subject,
		"text":   evt.Body,
		"footer": "driftwatch",
		"ts":     time.Now().Unix(),
	}
	if evt.Link != "" {
		attachment["title_link"] = evt.Link
	}
	payload := map[string]any{
		"text":        evt.Subject,
		"attachments": []map[string]any{attachment},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req) // #nosec G107 -- WebhookURL is a user-configured Slack incoming webhook URL
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

func kindColor(kind models.EventKind) string {
	switch kind {
	case models.EventChange:
		return "#FFAA00"
	case models.EventFetchFailed:
		return "#FF0000"
	case models.EventStartup:
		return "#0099FF"
	case models.EventHealthcheck:
		return "#00AA00"
	default:
		return "#888888"
	}
}
