package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const mailjetSendURL = "https://api.mailjet.com/v3.1/send"

// MailjetChannel sends email notifications through the Mailjet v3.1 send API.
type MailjetChannel struct {
	cfg     config.MailjetNotifyConfig
	sendURL string
	client  *retryablehttp.Client
}

// NewMailjet creates a MailjetChannel from cfg. Transient API errors
// (429, 5xx, network) are retried twice with exponential backoff; other
// 4xx responses fail immediately.
func NewMailjet(cfg config.MailjetNotifyConfig) *MailjetChannel {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 15 * time.Second
	return &MailjetChannel{cfg: cfg, sendURL: mailjetSendURL, client: rc}
}

func (m *MailjetChannel) Name() string   { return "mailjet" }
func (m *MailjetChannel) Fallback() bool { return false }

func (m *MailjetChannel) IsConfigured() bool {
	return m.cfg.APIKey != "" && m.cfg.SecretKey != "" && m.cfg.From != "" && len(m.recipients()) > 0
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart"`
	CustomID string           `json:"CustomID,omitempty"`
}

func (m *MailjetChannel) Send(ctx context.Context, evt Event) error {
	name, addr := splitFromAddress(m.cfg.From)
	msg := mailjetMessage{
		From:     mailjetAddress{Email: addr, Name: name},
		Subject:  evt.Subject,
		TextPart: evt.Body,
		CustomID: uuid.NewString(),
	}
	for _, to := range m.recipients() {
		msg.To = append(msg.To, mailjetAddress{Email: to})
	}

	b, err := json.Marshal(map[string]any{"Messages": []mailjetMessage{msg}})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, m.sendURL, b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.cfg.APIKey, m.cfg.SecretKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailjet: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("mailjet API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}

// recipients splits the comma-separated To list into individual addresses.
func (m *MailjetChannel) recipients() []string {
	var out []string
	for _, part := range strings.Split(m.cfg.To, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// splitFromAddress parses a sender in "Display Name <user@host>" form.
// A bare address is returned with an empty display name.
func splitFromAddress(from string) (name, email string) {
	if a, err := mail.ParseAddress(from); err == nil {
		return a.Name, a.Address
	}
	return "", strings.TrimSpace(from)
}
