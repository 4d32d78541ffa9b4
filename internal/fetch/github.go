package fetch

import (
	"context"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

// GitHubCommitsFetcher observes the newest commit touching a path of a
// GitHub repository, for GitHub and GitHub Enterprise.
type GitHubCommitsFetcher struct {
	client *gogithub.Client
	target models.Target
}

// NewGitHubCommits creates a GitHubCommitsFetcher. The token is optional:
// public repositories work unauthenticated, just with a lower rate limit.
func NewGitHubCommits(target models.Target, cfg config.GitHubConfig) (*GitHubCommitsFetcher, error) {
	client := gogithub.NewClient(nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = gogithub.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	// Support GitHub Enterprise by overriding the base URL.
	if target.Host != "" && target.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", target.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", target.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}

	return &GitHubCommitsFetcher{client: client, target: target}, nil
}

func (g *GitHubCommitsFetcher) Kind() string     { return models.KindGitHubCommits }
func (g *GitHubCommitsFetcher) Describe() string { return g.target.Describe() }

// Fetch asks the commits API for the single newest commit on the watched
// path. An empty result is an error: a tracked path should always have
// history, so "nothing there" must not masquerade as a value.
func (g *GitHubCommitsFetcher) Fetch(ctx context.Context) (models.Observation, error) {
	t := g.target
	opts := &gogithub.CommitsListOptions{
		Path:        t.Path,
		SHA:         t.Ref,
		ListOptions: gogithub.ListOptions{PerPage: 1},
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, t.Owner, t.Repo, opts)
	if err != nil {
		return models.Observation{}, fmt.Errorf("listing commits of %s/%s: %w", t.Owner, t.Repo, err)
	}
	if len(commits) == 0 || commits[0].GetSHA() == "" {
		return models.Observation{}, fmt.Errorf("no commits found for %s/%s path %q", t.Owner, t.Repo, t.Path)
	}

	c := commits[0]
	obs := models.Observation{
		Value: c.GetSHA(),
		Link:  c.GetHTMLURL(),
	}
	if d := c.GetCommit().GetCommitter().GetDate(); !d.IsZero() {
		obs.Note = "committed " + d.UTC().Format(time.RFC3339)
	}
	return obs, nil
}
