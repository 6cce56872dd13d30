package crawler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultRetries = 3
	defaultBackoff = 1500 * time.Millisecond
)

// fetchPage GETs a URL and parses it into a goquery document, retrying with
// multiplicative backoff the way the site crawlers always have.
func fetchPage(client *http.Client, userAgent, pageURL string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 1; attempt <= defaultRetries; attempt++ {
		req, err := http.NewRequest("GET", pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := client.Do(req)
		if err == nil && resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err = fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
		}
		if err != nil {
			lastErr = err
			slog.Warn("Page fetch failed", "url", pageURL, "attempt", attempt, "error", err)
			time.Sleep(defaultBackoff * time.Duration(attempt))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to parse HTML: %w", err)
			continue
		}
		return doc, nil
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", pageURL, defaultRetries, lastErr)
}

// absURL resolves href against base, mirroring urljoin semantics.
func absURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// validHref rejects empty and javascript: pseudo-links.
func validHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript")
}
