package fetch

import (
	"strings"
	"testing"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/models"
)

func TestNewDispatchesByKind(t *testing.T) {
	cfg := &config.Config{}
	cases := []struct {
		target models.Target
		kind   string
	}{
		{models.Target{ID: "a", Kind: models.KindGitHubCommits, Owner: "o", Repo: "r"}, models.KindGitHubCommits},
		{models.Target{ID: "b", Kind: models.KindGitLabCommits, Project: "g/p"}, models.KindGitLabCommits},
		{models.Target{ID: "c", Kind: models.KindGitRef, URL: "https://example.org/repo.git"}, models.KindGitRef},
		{models.Target{ID: "d", Kind: models.KindWebVersion, URL: "https://example.org/page"}, models.KindWebVersion},
	}
	for _, tc := range cases {
		f, err := New(tc.target, cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.target.ID, err)
		}
		if f.Kind() != tc.kind {
			t.Fatalf("%s: got kind %q, want %q", tc.target.ID, f.Kind(), tc.kind)
		}
		if f.Describe() == "" {
			t.Fatalf("%s: empty description", tc.target.ID)
		}
	}
}

func TestNewUnknownKindIsError(t *testing.T) {
	_, err := New(models.Target{ID: "x", Kind: "rss_feed"}, &config.Config{})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Fatalf("expected unsupported-kind error, got %v", err)
	}
}

func TestNewPropagatesPatternErrors(t *testing.T) {
	target := models.Target{ID: "x", Kind: models.KindWebVersion, URL: "https://example.org", Pattern: "("}
	if _, err := New(target, &config.Config{}); err == nil {
		t.Fatal("expected invalid-pattern error from factory")
	}
}
