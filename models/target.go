package models

import "fmt"

// Target kinds. Each kind resolves to exactly one comparable value per fetch.
const (
	KindGitHubCommits = "github_commits"
	KindGitLabCommits = "gitlab_commits"
	KindGitRef        = "git_ref"
	KindWebVersion    = "web_version"
)

// Target is one monitored source with its own independent state record.
// Targets come from the config file or a targets.yaml manifest, so the
// struct carries tags for all three decoders.
type Target struct {
	// ID keys the persisted state record. Required, unique.
	ID string `mapstructure:"id" json:"id" yaml:"id"`
	// Name is the display name used in notification subjects (defaults to ID).
	Name string `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	// Kind selects the fetcher implementation.
	Kind string `mapstructure:"kind" json:"kind" yaml:"kind"`

	// github_commits / gitlab_commits fields.
	Owner   string `mapstructure:"owner"   json:"owner,omitempty"   yaml:"owner,omitempty"`
	Repo    string `mapstructure:"repo"    json:"repo,omitempty"    yaml:"repo,omitempty"`
	Project string `mapstructure:"project" json:"project,omitempty" yaml:"project,omitempty"`
	Path    string `mapstructure:"path"    json:"path,omitempty"    yaml:"path,omitempty"`
	// Host allows enterprise GitHub / self-hosted GitLab instances.
	Host string `mapstructure:"host" json:"host,omitempty" yaml:"host,omitempty"`

	// git_ref / web_version fields.
	URL string `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`
	// Ref is a branch, tag, or full ref name. Empty means the default
	// branch (hosting APIs) or HEAD (git_ref).
	Ref string `mapstructure:"ref" json:"ref,omitempty" yaml:"ref,omitempty"`
	// Pattern overrides the built-in version extraction for web_version
	// targets. Must contain exactly one capture group.
	Pattern string `mapstructure:"pattern" json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Describe returns a one-line human description of what is being watched.
func (t Target) Describe() string {
	switch t.Kind {
	case KindGitHubCommits:
		host := t.Host
		if host == "" {
			host = "github.com"
		}
		s := fmt.Sprintf("https://%s/%s/%s", host, t.Owner, t.Repo)
		if t.Path != "" {
			s += " path " + t.Path
		}
		return s
	case KindGitLabCommits:
		host := t.Host
		if host == "" {
			host = "gitlab.com"
		}
		s := fmt.Sprintf("https://%s/%s", host, t.Project)
		if t.Path != "" {
			s += " path " + t.Path
		}
		return s
	case KindGitRef:
		if t.Ref != "" {
			return t.URL + " ref " + t.Ref
		}
		return t.URL + " HEAD"
	case KindWebVersion:
		return t.URL
	default:
		return t.ID
	}
}

// Validate checks that the target carries the fields its kind requires.
func (t Target) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("target is missing an id")
	}
	switch t.Kind {
	case KindGitHubCommits:
		if t.Owner == "" || t.Repo == "" {
			return fmt.Errorf("target %s: github_commits requires owner and repo", t.ID)
		}
	case KindGitLabCommits:
		if t.Project == "" {
			return fmt.Errorf("target %s: gitlab_commits requires project", t.ID)
		}
	case KindGitRef:
		if t.URL == "" {
			return fmt.Errorf("target %s: git_ref requires url", t.ID)
		}
	case KindWebVersion:
		if t.URL == "" {
			return fmt.Errorf("target %s: web_version requires url", t.ID)
		}
	case "":
		return fmt.Errorf("target %s: missing kind", t.ID)
	default:
		return fmt.Errorf("target %s: unknown kind %q", t.ID, t.Kind)
	}
	return nil
}
