package config

import (
	"time"

	"github.com/driftwatch/driftwatch/models"
)

// Config is the root configuration structure for driftwatch.
// Serialised to ~/.driftwatch/config.json.
type Config struct {
	Monitor MonitorConfig   `mapstructure:"monitor" json:"monitor"`
	State   StateConfig     `mapstructure:"state"   json:"state"`
	Notify  NotifyConfig    `mapstructure:"notify"  json:"notify"`
	Git     GitConfig       `mapstructure:"git"     json:"git"`
	Targets []models.Target `mapstructure:"targets" json:"targets,omitempty"`
}

// MonitorConfig controls tick behaviour.
type MonitorConfig struct {
	// HealthcheckDays is the allowed silence before a liveness email is
	// due. 0 disables healthcheck notifications.
	HealthcheckDays int `mapstructure:"healthcheck_days" json:"healthcheck_days"`
	// FetchTimeoutSeconds bounds each fetcher call.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`
	// TargetsFile points at an optional YAML manifest whose targets are
	// appended to Targets (expanded at runtime).
	TargetsFile string `mapstructure:"targets_file" json:"targets_file,omitempty"`
	// Schedule is the cron expression used by `driftwatch watch`.
	Schedule string `mapstructure:"schedule" json:"schedule"`
}

// HealthcheckInterval returns HealthcheckDays as a duration; <= 0 means
// healthchecks are disabled.
func (m MonitorConfig) HealthcheckInterval() time.Duration {
	return time.Duration(m.HealthcheckDays) * 24 * time.Hour
}

// FetchTimeout returns the per-fetch deadline.
func (m MonitorConfig) FetchTimeout() time.Duration {
	if m.FetchTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.FetchTimeoutSeconds) * time.Second
}

// StateConfig controls the state-store backend.
type StateConfig struct {
	// Driver is "file" (default), "sqlite", or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Dir is the per-target JSON directory for the file driver.
	Dir string `mapstructure:"dir" json:"dir"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path" json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn" json:"dsn"`
}

// NotifyConfig wires the notification channels.
type NotifyConfig struct {
	Mailjet  MailjetNotifyConfig  `mapstructure:"mailjet"  json:"mailjet"`
	Slack    SlackNotifyConfig    `mapstructure:"slack"    json:"slack"`
	Webhook  WebhookNotifyConfig  `mapstructure:"webhook"  json:"webhook"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram" json:"telegram"`
	// OnFailure also notifies on FETCH_FAILED ticks (default: log only).
	OnFailure bool `mapstructure:"on_failure" json:"on_failure"`
}

// MailjetNotifyConfig holds the primary email channel credentials.
type MailjetNotifyConfig struct {
	APIKey    string `mapstructure:"api_key"    json:"api_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
	// From accepts either a bare address or "Name <addr>".
	From string `mapstructure:"from" json:"from"`
	// To is a comma-separated recipient list.
	To string `mapstructure:"to" json:"to"`
}

// SlackNotifyConfig holds the Slack incoming-webhook channel settings.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
	// FallbackOnly makes Slack fire only when every primary channel
	// failed, mirroring the email-first delivery policy.
	FallbackOnly *bool `mapstructure:"fallback_only" json:"fallback_only,omitempty"`
}

// IsFallbackOnly defaults to true when unset.
func (s SlackNotifyConfig) IsFallbackOnly() bool {
	if s.FallbackOnly == nil {
		return true
	}
	return *s.FallbackOnly
}

// WebhookNotifyConfig holds the generic HTTP endpoint channel settings.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"secret"`
}

// TelegramNotifyConfig holds the Telegram bot channel settings.
type TelegramNotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string `mapstructure:"chat_id"   json:"chat_id"`
}

// GitConfig holds credentials for the hosting-API fetchers.
type GitConfig struct {
	GitHub GitHubConfig `mapstructure:"github" json:"github"`
	GitLab GitLabConfig `mapstructure:"gitlab" json:"gitlab"`
}

// GitHubConfig holds the GitHub token (optional for public repos).
type GitHubConfig struct {
	Token string `mapstructure:"token" json:"token"`
}

// GitLabConfig holds the GitLab token (optional for public projects).
type GitLabConfig struct {
	Token string `mapstructure:"token" json:"token"`
}
