package fetch

import (
	"context"
	"fmt"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

// GitLabCommitsFetcher observes the newest commit touching a path of a
// GitLab project, for gitlab.com and self-hosted instances.
type GitLabCommitsFetcher struct {
	client *gitlab.Client
	target models.Target
}

// NewGitLabCommits creates a GitLabCommitsFetcher. The token is optional
// for public projects.
func NewGitLabCommits(target models.Target, cfg config.GitLabConfig) (*GitLabCommitsFetcher, error) {
	opts := []gitlab.ClientOptionFunc{}
	if target.Host != "" && target.Host != "gitlab.com" {
		base := fmt.Sprintf("https://%s/api/v4/", target.Host)
		opts = append(opts, gitlab.WithBaseURL(base))
	}

	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}

	return &GitLabCommitsFetcher{client: client, target: target}, nil
}

func (g *GitLabCommitsFetcher) Kind() string     { return models.KindGitLabCommits }
func (g *GitLabCommitsFetcher) Describe() string { return g.target.Describe() }

func (g *GitLabCommitsFetcher) Fetch(ctx context.Context) (models.Observation, error) {
	t := g.target
	opt := &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}
	if t.Path != "" {
		opt.Path = &t.Path
	}
	if t.Ref != "" {
		opt.RefName = &t.Ref
	}

	commits, _, err := g.client.Commits.ListCommits(t.Project, opt, gitlab.WithContext(ctx))
	if err != nil {
		return models.Observation{}, fmt.Errorf("listing commits of %s: %w", t.Project, err)
	}
	if len(commits) == 0 || commits[0].ID == "" {
		return models.Observation{}, fmt.Errorf("no commits found for %s path %q", t.Project, t.Path)
	}

	c := commits[0]
	obs := models.Observation{
		Value: c.ID,
		Link:  c.WebURL,
	}
	if c.CommittedDate != nil {
		obs.Note = "committed " + c.CommittedDate.UTC().Format(time.RFC3339)
	}
	return obs, nil
}
