package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/driftwatch/driftwatch/models"
)

func fetchWebVersion(t *testing.T, target models.Target) (models.Observation, error) {
	t.Helper()
	w, err := NewWebVersion(target)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return w.Fetch(context.Background())
}

func TestWebVersionFromRedirectedURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/model/current?ver=1.0.5", http.StatusFound)
	})
	mux.HandleFunc("/model/current", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>no version label here</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	obs, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL + "/model"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "1.0.5" {
		t.Fatalf("expected version from redirect target URL, got %q", obs.Value)
	}
	if !strings.Contains(obs.Link, "ver=1.0.5") {
		t.Fatalf("link should be the final URL, got %q", obs.Link)
	}
}

func TestWebVersionFromPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Asemakaava, versio ei... Versio 1.1.0 (voimassa)</p></body></html>")
	}))
	defer srv.Close()

	obs, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "1.1.0" {
		t.Fatalf("expected 1.1.0 from page text, got %q", obs.Value)
	}
	if obs.Note != "version from page text" {
		t.Fatalf("unexpected note %q", obs.Note)
	}
}

func TestWebVersionFromBodyParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script src="/static/app.js?ver=2.3.4"></script>`)
	}))
	defer srv.Close()

	obs, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "2.3.4" {
		t.Fatalf("expected 2.3.4 from asset URL in body, got %q", obs.Value)
	}
}

func TestWebVersionURLParameterWinsOverPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Versio 9.9.9")
	}))
	defer srv.Close()

	obs, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL + "/?ver=1.0.0"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "1.0.0" {
		t.Fatalf("URL parameter must take priority, got %q", obs.Value)
	}
}

func TestWebVersionCustomPattern(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>release v2024.07 is out, Versio 1.0.0 ignored</html>`)
	}))
	defer srv.Close()

	obs, err := fetchWebVersion(t, models.Target{
		ID:      "m",
		Kind:    models.KindWebVersion,
		URL:     srv.URL,
		Pattern: `release v(\d+\.\d+)`,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if obs.Value != "2024.07" {
		t.Fatalf("expected custom pattern match, got %q", obs.Value)
	}
	if obs.Note != "version from custom pattern" {
		t.Fatalf("unexpected note %q", obs.Note)
	}
}

func TestWebVersionNoMatchIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>nothing to see</html>")
	}))
	defer srv.Close()

	_, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "no version found") {
		t.Fatalf("expected no-version error, got %v", err)
	}
}

func TestWebVersionHTTPErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("expected HTTP 404 error, got %v", err)
	}
}

func TestWebVersionSendsBrowserHeaders(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		fmt.Fprint(w, "Versio 1.0.0")
	}))
	defer srv.Close()

	if _, err := fetchWebVersion(t, models.Target{ID: "m", Kind: models.KindWebVersion, URL: srv.URL}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(ua, "Mozilla/5.0") {
		t.Fatalf("expected browser-like user agent, got %q", ua)
	}
	if !strings.Contains(accept, "text/html") {
		t.Fatalf("expected html accept header, got %q", accept)
	}
}

func TestNewWebVersionRejectsBadPatterns(t *testing.T) {
	if _, err := NewWebVersion(models.Target{ID: "m", URL: "https://x", Pattern: "("}); err == nil {
		t.Fatal("expected error for unparsable pattern")
	}
	if _, err := NewWebVersion(models.Target{ID: "m", URL: "https://x", Pattern: "no groups here"}); err == nil {
		t.Fatal("expected error for pattern without capture group")
	}
}
