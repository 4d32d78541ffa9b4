package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/driftwatch/driftwatch/models"
)

func newTestGitHubFetcher(t *testing.T, srvURL string, target models.Target) *GitHubCommitsFetcher {
	t.Helper()
	client := gogithub.NewClient(nil)
	base, err := url.Parse(srvURL + "/")
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	client.BaseURL = base
	return &GitHubCommitsFetcher{client: client, target: target}
}

func TestGitHubCommitsFetch(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/repos/sykefi/Ryhti-rajapintakuvaukset/commits") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{
				"sha": "abc123def456",
				"html_url": "https://github.com/sykefi/Ryhti-rajapintakuvaukset/commit/abc123def456",
				"commit": {"committer": {"date": "2025-03-08T12:00:00Z"}}
			}
		]`)
	}))
	defer srv.Close()

	target := models.Target{
		ID:    "openapi",
		Kind:  models.KindGitHubCommits,
		Owner: "sykefi",
		Repo:  "Ryhti-rajapintakuvaukset",
		Path:  "OpenApi",
	}
	f := newTestGitHubFetcher(t, srv.URL, target)

	obs, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "abc123def456" {
		t.Fatalf("unexpected value %q", obs.Value)
	}
	if obs.Link != "https://github.com/sykefi/Ryhti-rajapintakuvaukset/commit/abc123def456" {
		t.Fatalf("unexpected link %q", obs.Link)
	}
	if obs.Note != "committed 2025-03-08T12:00:00Z" {
		t.Fatalf("unexpected note %q", obs.Note)
	}
	if gotQuery.Get("path") != "OpenApi" {
		t.Fatalf("path filter not forwarded, query=%v", gotQuery)
	}
	if gotQuery.Get("per_page") != "1" {
		t.Fatalf("expected per_page=1, query=%v", gotQuery)
	}
}

func TestGitHubCommitsForwardsRef(t *testing.T) {
	var gotSHA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSHA = r.URL.Query().Get("sha")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"sha": "fff000"}]`)
	}))
	defer srv.Close()

	target := models.Target{ID: "t", Kind: models.KindGitHubCommits, Owner: "o", Repo: "r", Ref: "develop"}
	f := newTestGitHubFetcher(t, srv.URL, target)
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotSHA != "develop" {
		t.Fatalf("ref not forwarded as sha param, got %q", gotSHA)
	}
}

func TestGitHubCommitsEmptyHistoryIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	target := models.Target{ID: "t", Kind: models.KindGitHubCommits, Owner: "o", Repo: "r", Path: "gone"}
	f := newTestGitHubFetcher(t, srv.URL, target)
	_, err := f.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no commits found") {
		t.Fatalf("expected no-commits error, got %v", err)
	}
}

func TestGitHubCommitsAPIErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	target := models.Target{ID: "t", Kind: models.KindGitHubCommits, Owner: "o", Repo: "gone"}
	f := newTestGitHubFetcher(t, srv.URL, target)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error from API failure")
	}
}
