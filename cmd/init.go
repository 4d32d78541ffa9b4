package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard for driftwatch",
	Long: `Walks you through configuring driftwatch:
  - Monitoring cadence (healthcheck interval, tick schedule)
  - State storage backend (file, sqlite, or mysql)
  - Email delivery via Mailjet
  - Optional Slack and Telegram channels
  - Git provider tokens for private repos and rate limits

Finishes by scaffolding a commented targets.yaml you can edit.`,
	RunE: runInit,
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7C3AED")).
	MarginBottom(1)

var successStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280"))

func runInit(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  driftwatch — repository & web page change monitor"))
	fmt.Println(dimStyle.Render("  Polls your targets, emails you when something moves.\n"))

	// Load existing config or start fresh.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = &config.Config{}
	}

	// --- Step 1: Monitoring cadence ---
	fmt.Println(headerStyle.Render("  Step 1/6 · Monitoring Cadence"))

	healthcheckDays := "7"
	if cfg.Monitor.HealthcheckDays > 0 {
		healthcheckDays = strconv.Itoa(cfg.Monitor.HealthcheckDays)
	}
	schedule := cfg.Monitor.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}
	scheduleOptions := []huh.Option[string]{
		huh.NewOption("@hourly — once per hour", "@hourly"),
		huh.NewOption("@every 6h — four times a day", "@every 6h"),
		huh.NewOption("@daily — once at midnight", "@daily"),
		huh.NewOption("0 8 * * * — mornings at 08:00", "0 8 * * *"),
	}
	switch schedule {
	case "@hourly", "@every 6h", "@daily", "0 8 * * *":
	default:
		scheduleOptions = append([]huh.Option[string]{
			huh.NewOption("keep current: "+schedule, schedule),
		}, scheduleOptions...)
	}

	cadenceForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Healthcheck interval (days)").
				Description("After this many quiet days a 'still alive, nothing changed' email goes out. 0 disables healthchecks.").
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return fmt.Errorf("enter a whole number of days (0 disables)")
					}
					return nil
				}).
				Value(&healthcheckDays),
			huh.NewSelect[string]().
				Title("Tick schedule").
				Description("How often 'driftwatch watch' evaluates the targets (robfig/cron syntax).").
				Options(scheduleOptions...).
				Value(&schedule),
		),
	)
	if err := cadenceForm.Run(); err != nil {
		return err
	}
	cfg.Monitor.HealthcheckDays, _ = strconv.Atoi(strings.TrimSpace(healthcheckDays))
	cfg.Monitor.Schedule = schedule

	// --- Step 2: State storage ---
	fmt.Println(headerStyle.Render("\n  Step 2/6 · State Storage"))

	driver := cfg.State.Driver
	if driver == "" {
		driver = "file"
	}
	backendForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("State backend").
				Description("Where per-target state and the event history live.").
				Options(
					huh.NewOption("file — one JSON document per target, zero dependencies", "file"),
					huh.NewOption("sqlite — single-file database, queryable history", "sqlite"),
					huh.NewOption("mysql — shared database for running on several hosts", "mysql"),
				).
				Value(&driver),
		),
	)
	if err := backendForm.Run(); err != nil {
		return err
	}
	cfg.State.Driver = driver

	switch driver {
	case "sqlite":
		path := cfg.State.Path
		if path == "" {
			path = "~/.driftwatch/driftwatch.db"
		}
		pathForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("SQLite database path").Value(&path),
		))
		if err := pathForm.Run(); err != nil {
			return err
		}
		cfg.State.Path = path
	case "mysql":
		dsn := cfg.State.DSN
		dsnForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("MySQL DSN").
				Placeholder("user:pass@tcp(db.example.org:3306)/driftwatch?parseTime=true").
				Value(&dsn),
		))
		if err := dsnForm.Run(); err != nil {
			return err
		}
		cfg.State.DSN = dsn
	}

	// --- Step 3: Email via Mailjet ---
	fmt.Println(headerStyle.Render("\n  Step 3/6 · Email Delivery (Mailjet)"))
	fmt.Println(dimStyle.Render("  Email is the primary channel. Leave the API key blank to skip it"))
	fmt.Println(dimStyle.Render("  and rely on Slack/Telegram/webhook instead.\n"))

	apiKey := cfg.Notify.Mailjet.APIKey
	secretKey := cfg.Notify.Mailjet.SecretKey
	from := cfg.Notify.Mailjet.From
	to := cfg.Notify.Mailjet.To

	mailForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mailjet API key").
				Description("Create one at app.mailjet.com → Account settings → REST API keys.").
				Placeholder("(optional)").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Mailjet secret key").
				EchoMode(huh.EchoModePassword).
				Value(&secretKey),
			huh.NewInput().
				Title("From address").
				Description("Must be a sender address verified in your Mailjet account.").
				Placeholder("Drift Watch <monitor@example.org>").
				Value(&from),
			huh.NewInput().
				Title("Recipients (comma-separated)").
				Placeholder("you@example.org, team@example.org").
				Value(&to),
		),
	)
	if err := mailForm.Run(); err != nil {
		return err
	}
	cfg.Notify.Mailjet.APIKey = apiKey
	cfg.Notify.Mailjet.SecretKey = secretKey
	cfg.Notify.Mailjet.From = from
	cfg.Notify.Mailjet.To = to
	if apiKey != "" {
		fmt.Println(successStyle.Render("  Email channel enabled.\n"))
	} else {
		fmt.Println(dimStyle.Render("  No email channel. Add keys later by re-running 'driftwatch init'.\n"))
	}

	// --- Step 4: Extra channels ---
	fmt.Println(headerStyle.Render("\n  Step 4/6 · Extra Channels (optional)"))

	var addSlack, addTelegram bool
	extraForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add a Slack webhook?").
				Value(&addSlack),
			huh.NewConfirm().
				Title("Add a Telegram bot?").
				Value(&addTelegram),
		),
	)
	if err := extraForm.Run(); err != nil {
		return err
	}

	if addSlack {
		slackURL := cfg.Notify.Slack.WebhookURL
		fallbackOnly := cfg.Notify.Slack.IsFallbackOnly()
		slackForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Slack incoming webhook URL").
				Placeholder("https://hooks.slack.com/services/...").
				EchoMode(huh.EchoModePassword).
				Value(&slackURL),
			huh.NewConfirm().
				Title("Fallback only?").
				Description("Yes: Slack fires only when every primary channel failed. No: Slack gets every notification.").
				Value(&fallbackOnly),
		))
		if err := slackForm.Run(); err != nil {
			return err
		}
		cfg.Notify.Slack.WebhookURL = slackURL
		cfg.Notify.Slack.FallbackOnly = &fallbackOnly
	}

	if addTelegram {
		botToken := cfg.Notify.Telegram.BotToken
		chatID := cfg.Notify.Telegram.ChatID
		tgForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Create a bot with @BotFather to get one.").
				EchoMode(huh.EchoModePassword).
				Value(&botToken),
			huh.NewInput().
				Title("Chat ID").
				Placeholder("-1001234567890").
				Value(&chatID),
		))
		if err := tgForm.Run(); err != nil {
			return err
		}
		cfg.Notify.Telegram.BotToken = botToken
		cfg.Notify.Telegram.ChatID = chatID
	}

	// --- Step 5: Git credentials ---
	fmt.Println(headerStyle.Render("\n  Step 5/6 · Git Provider Tokens (optional)"))
	fmt.Println(dimStyle.Render("  Tokens are only needed for private repos and to avoid anonymous"))
	fmt.Println(dimStyle.Render("  API rate limits. Public targets work without them.\n"))

	githubToken := cfg.Git.GitHub.Token
	gitlabToken := cfg.Git.GitLab.Token
	gitForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub token").
				Placeholder("ghp_...  (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&githubToken),
			huh.NewInput().
				Title("GitLab token").
				Placeholder("glpat-...  (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&gitlabToken),
		),
	)
	if err := gitForm.Run(); err != nil {
		return err
	}
	cfg.Git.GitHub.Token = githubToken
	cfg.Git.GitLab.Token = gitlabToken

	// --- Step 6: Targets ---
	fmt.Println(headerStyle.Render("\n  Step 6/6 · Targets"))

	scaffoldPath := ""
	if len(cfg.Targets) == 0 && cfg.Monitor.TargetsFile == "" {
		writeScaffold := true
		scaffoldForm := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Write a commented targets.yaml scaffold?").
				Description("A starter manifest with one example per target kind, saved to ~/.driftwatch/targets.yaml.").
				Value(&writeScaffold),
		))
		if err := scaffoldForm.Run(); err != nil {
			return err
		}
		if writeScaffold {
			scaffoldPath, err = writeTargetsScaffold()
			if err != nil {
				return fmt.Errorf("writing targets scaffold: %w", err)
			}
			cfg.Monitor.TargetsFile = scaffoldPath
			fmt.Println(successStyle.Render("  Wrote " + scaffoldPath))
			fmt.Println(dimStyle.Render("  Edit it to swap in the things you actually want to watch.\n"))
		}
	} else {
		fmt.Println(dimStyle.Render("  Targets already configured — leaving them untouched.\n"))
	}

	// Save config
	cfgPath, _ := config.ConfigPath(cfgFile)
	if err := config.Save(cfg, cfgPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	// Print completion summary
	fmt.Println()
	fmt.Println(headerStyle.Render("  Setup complete!"))
	fmt.Printf("  Config saved to: %s\n", dimStyle.Render(cfgPath))
	if scaffoldPath != "" {
		fmt.Printf("  Targets file:    %s\n", dimStyle.Render(scaffoldPath))
	}
	fmt.Println()

	fmt.Println(dimStyle.Render("  Next steps:"))
	fmt.Println(dimStyle.Render("    driftwatch doctor          — verify config and credentials"))
	fmt.Println(dimStyle.Render("    driftwatch run --dry-run   — evaluate targets without notifying"))
	fmt.Println(dimStyle.Render("    driftwatch watch           — keep ticking on the schedule"))
	fmt.Println(dimStyle.Render("    driftwatch ui              — launch the terminal dashboard"))
	fmt.Println()

	return nil
}

// targetsScaffold is the starter manifest written by the wizard: one worked
// example per target kind, the less common kinds commented out.
const targetsScaffold = `# driftwatch targets
# Every entry resolves to one comparable value per tick (a commit SHA or a
# version string). driftwatch emails you when that value changes.

targets:
  # Latest commit touching a path of a GitHub repo.
  - id: ryhti-openapi
    name: Ryhti OpenAPI
    kind: github_commits
    owner: sykefi
    repo: Ryhti-rajapintakuvaukset
    path: OpenApi

  # Version number published on a web page.
  - id: model-kaava
    name: Kaavatietomalli
    kind: web_version
    url: https://tietomallit.suomi.fi/model/kaava/

  # Latest commit touching a path of a GitLab project.
  # - id: my-gitlab-docs
  #   kind: gitlab_commits
  #   project: group/project
  #   path: docs

  # Tip of a branch or tag on any git remote (no hosting API needed).
  # - id: my-release-branch
  #   kind: git_ref
  #   url: https://github.com/example/repo.git
  #   ref: main
`

// writeTargetsScaffold writes the starter manifest, keeping any existing file.
func writeTargetsScaffold() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".driftwatch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "targets.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(targetsScaffold), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
