// Package fetch scrapes the main readable content of a web page. Three
// backends share the Scraper interface: plain HTTP with readability
// extraction, a headless Chrome browser, and the Firecrawl scrape API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/nugget/scout/internal/httpkit"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// ErrEmptyURL is returned when a scrape is requested without a URL.
var ErrEmptyURL = errors.New("url is required")

// Page is the extracted content of one URL.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content"`
	StatusCode int    `json:"status_code"`
}

// Scraper fetches a URL and returns its main content.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, rawURL string) (*Page, error)
}

// HTTPScraper downloads pages with a plain HTTP client and extracts the
// article body with readability, falling back to a whole-page text walk.
type HTTPScraper struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPScraper creates an HTTPScraper. A zero timeout uses
// DefaultTimeout.
func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPScraper{
		client: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
		),
		maxBytes: DefaultMaxBytes,
	}
}

func (s *HTTPScraper) Name() string { return "http" }

// Scrape downloads rawURL and extracts readable text.
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	rawURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 256))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	page := &Page{URL: rawURL, StatusCode: resp.StatusCode}
	contentType := resp.Header.Get("Content-Type")
	switch {
	case isHTML(contentType):
		page.Title, page.Content = extractMainContent(string(body), rawURL)
	case isPlainText(contentType), utf8.Valid(body):
		page.Content = strings.TrimSpace(string(body))
	default:
		return nil, fmt.Errorf("binary content (%s), %d bytes", contentType, len(body))
	}
	return page, nil
}

// extractMainContent runs readability over raw and falls back to the
// plain DOM text walk when readability fails or finds nothing.
func extractMainContent(raw, pageURL string) (title, text string) {
	article, err := readability.FromReader(strings.NewReader(raw), parseURL(pageURL))
	if err == nil {
		text = cleanWhitespace(article.TextContent)
		if text != "" {
			return strings.TrimSpace(article.Title), text
		}
	}
	return extractHTML(raw)
}

// normalizeURL trims rawURL and adds an https scheme when none is given.
func normalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	return rawURL, nil
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func isPlainText(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/plain")
}

// truncateRunes cuts s to at most n runes without splitting a
// multi-byte character.
func truncateRunes(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
