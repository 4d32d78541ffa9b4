package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/driftwatch/driftwatch/models"
)

const (
	DefaultConfigDir  = ".driftwatch"
	DefaultConfigFile = "config.json"
	DefaultStateDir   = ".driftwatch/state"
	DefaultDBFile     = ".driftwatch/driftwatch.db"
)

// Load reads the config file and returns a populated Config. The configPath
// flag may override the default location. Targets from the optional YAML
// manifest are appended and the combined list is validated.
func Load(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file exists but is malformed.
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
		// No config file yet; defaults plus env still make a usable run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	expandPaths(&cfg, home)

	if cfg.Monitor.TargetsFile != "" {
		manifest, err := LoadTargetsFile(cfg.Monitor.TargetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, manifest...)
	}

	if err := validateTargets(cfg.Targets); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}

	if configPath == "" {
		configPath = filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}

	return os.WriteFile(configPath, data, 0o600)
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// LoadTargetsFile parses a YAML target manifest:
//
//	targets:
//	  - id: ryhti-openapi
//	    kind: github_commits
//	    owner: sykefi
//	    ...
func LoadTargetsFile(path string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file %s: %w", path, err)
	}
	var manifest struct {
		Targets []models.Target `yaml:"targets"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing targets file %s: %w", path, err)
	}
	return manifest.Targets, nil
}

func validateTargets(targets []models.Target) error {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate target id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("monitor.healthcheck_days", 7)
	v.SetDefault("monitor.fetch_timeout_seconds", 30)
	v.SetDefault("monitor.targets_file", "")
	v.SetDefault("monitor.schedule", "@hourly")

	v.SetDefault("state.driver", "file")
	v.SetDefault("state.dir", filepath.Join(home, DefaultStateDir))
	v.SetDefault("state.path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("state.dsn", "")
}

// bindEnvAliases maps the flat environment variable names used as CI
// secrets onto their dotted config keys.
func bindEnvAliases(v *viper.Viper) {
	aliases := map[string][]string{
		"notify.mailjet.api_key":    {"MAILJET_API_KEY"},
		"notify.mailjet.secret_key": {"MAILJET_SECRET_KEY"},
		"notify.mailjet.from":       {"EMAIL_FROM"},
		"notify.mailjet.to":         {"EMAIL_TO"},
		"notify.slack.webhook_url":  {"SLACK_WEBHOOK"},
		"monitor.healthcheck_days":  {"HEALTHCHECK_DAYS"},
		"git.github.token":          {"GITHUB_TOKEN"},
		"git.gitlab.token":          {"GITLAB_TOKEN"},
	}
	for key, envs := range aliases {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// expandPaths resolves ~ in configured paths.
func expandPaths(cfg *Config, home string) {
	cfg.State.Dir = expandHome(cfg.State.Dir, home)
	cfg.State.Path = expandHome(cfg.State.Path, home)
	cfg.Monitor.TargetsFile = expandHome(cfg.Monitor.TargetsFile, home)
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
