// Package fetch resolves a target to its current observable value: the
// latest commit SHA of a repository path, the hash behind a git ref, or a
// version string published on a web page. Each fetcher returns exactly one
// comparable value per call; everything else about the tick (comparison,
// state, notifications) lives in internal/monitor.
package fetch

import (
	"context"
	"fmt"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

// Fetcher reads the current observable value of one target.
type Fetcher interface {
	// Kind identifies the fetcher ("github_commits", "web_version", ...).
	Kind() string

	// Describe returns a one-line human description of the source.
	Describe() string

	// Fetch resolves the target to its current value. It never mutates
	// state; a returned error means the tick must leave the stored state
	// untouched.
	Fetch(ctx context.Context) (models.Observation, error)
}

// New returns the fetcher for target.Kind. An unknown kind is a
// configuration error, not a fetch error.
func New(target models.Target, cfg *config.Config) (Fetcher, error) {
	switch target.Kind {
	case models.KindGitHubCommits:
		return NewGitHubCommits(target, cfg.Git.GitHub)
	case models.KindGitLabCommits:
		return NewGitLabCommits(target, cfg.Git.GitLab)
	case models.KindGitRef:
		return NewGitRef(target), nil
	case models.KindWebVersion:
		return NewWebVersion(target)
	default:
		return nil, fmt.Errorf("target %s: unsupported kind %q", target.ID, target.Kind)
	}
}
