package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/driftwatch/driftwatch/models"
)

// maxPageBytes caps how much of a page is read for version extraction.
const maxPageBytes = 4 << 20

var (
	// verParamRE matches a semantic version in a ver= query parameter,
	// the cache-busting style used by tietomallit.suomi.fi asset URLs.
	verParamRE = regexp.MustCompile(`(?i)[?&]ver=([0-9]+\.[0-9]+\.[0-9]+)\b`)
	// versionTextRE matches the visible "Versio x.y.z" label.
	versionTextRE = regexp.MustCompile(`(?i)\bVersio\s+(\d+\.\d+\.\d+)\b`)
)

// browserHeaders make the request look like an ordinary browser visit.
// Some publishing platforms serve bots a stripped page without the
// version markup.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "fi-FI,fi;q=0.9,en-US;q=0.8,en;q=0.7",
}

// WebVersionFetcher observes a version string published on a web page.
//
// Extraction order: a ver= parameter on the final URL after redirects,
// then a "Versio x.y.z" label in the page text, then a ver= parameter
// anywhere in the page body. A target Pattern replaces all three with a
// single custom regexp whose first capture group is the value.
type WebVersionFetcher struct {
	target  models.Target
	pattern *regexp.Regexp
	client  *http.Client
}

// NewWebVersion creates a WebVersionFetcher. An invalid or groupless
// custom pattern is a configuration error.
func NewWebVersion(target models.Target) (*WebVersionFetcher, error) {
	var pattern *regexp.Regexp
	if target.Pattern != "" {
		p, err := regexp.Compile(target.Pattern)
		if err != nil {
			return nil, fmt.Errorf("target %s: invalid pattern: %w", target.ID, err)
		}
		if p.NumSubexp() < 1 {
			return nil, fmt.Errorf("target %s: pattern needs a capture group for the value", target.ID)
		}
		pattern = p
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second

	return &WebVersionFetcher{
		target:  target,
		pattern: pattern,
		// StandardClient keeps redirect handling in net/http, so the
		// final URL stays visible on the response.
		client: rc.StandardClient(),
	}, nil
}

func (w *WebVersionFetcher) Kind() string     { return models.KindWebVersion }
func (w *WebVersionFetcher) Describe() string { return w.target.Describe() }

func (w *WebVersionFetcher) Fetch(ctx context.Context) (models.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.target.URL, nil)
	if err != nil {
		return models.Observation{}, fmt.Errorf("building request for %s: %w", w.target.URL, err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return models.Observation{}, fmt.Errorf("fetching %s: %w", w.target.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Observation{}, fmt.Errorf("fetching %s: HTTP %d", w.target.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return models.Observation{}, fmt.Errorf("reading %s: %w", w.target.URL, err)
	}

	finalURL := w.target.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	value, source, ok := w.extract(finalURL, string(body))
	if !ok {
		return models.Observation{}, fmt.Errorf("no version found at %s", finalURL)
	}
	return models.Observation{
		Value: value,
		Link:  finalURL,
		Note:  "version from " + source,
	}, nil
}

// extract applies the extraction strategies in priority order and names
// which one matched.
func (w *WebVersionFetcher) extract(finalURL, body string) (value, source string, ok bool) {
	if w.pattern != nil {
		if m := w.pattern.FindStringSubmatch(body); m != nil {
			return m[1], "custom pattern", true
		}
		return "", "", false
	}
	if m := verParamRE.FindStringSubmatch(finalURL); m != nil {
		return m[1], "ver parameter in URL", true
	}
	if m := versionTextRE.FindStringSubmatch(body); m != nil {
		return m[1], "page text", true
	}
	if m := verParamRE.FindStringSubmatch(body); m != nil {
		return m[1], "ver parameter in page", true
	}
	return "", "", false
}
