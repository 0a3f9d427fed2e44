// Package firecrawl is a small client for the Firecrawl search and
// scrape API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nugget/scout/internal/httpkit"
)

// levelTrace matches config.LevelTrace for wire-level logging.
const levelTrace = slog.Level(-8)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// ErrNoAPIKey is returned by New when no key is supplied.
var ErrNoAPIKey = errors.New("firecrawl: API key is required")

// Client calls the Firecrawl v1 API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger,
	}, nil
}

// SearchResult is one entry of a search response.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool           `json:"success"`
	Data    []SearchResult `json:"data"`
	Error   string         `json:"error"`
}

// Search runs a web search and returns at most limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	var resp searchResponse
	if err := c.post(ctx, "/v1/search", searchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("firecrawl search: %s", resp.Error)
	}
	return resp.Data, nil
}

// Document is the result of scraping one page.
type Document struct {
	Markdown string `json:"markdown"`
	Metadata struct {
		Title      string `json:"title"`
		SourceURL  string `json:"sourceURL"`
		StatusCode int    `json:"statusCode"`
	} `json:"metadata"`
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool     `json:"success"`
	Data    Document `json:"data"`
	Error   string   `json:"error"`
}

// Scrape fetches the main content of url as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (*Document, error) {
	req := scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}
	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("firecrawl scrape: %s", resp.Error)
	}
	return &resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("firecrawl: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("firecrawl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Log(ctx, levelTrace, "firecrawl request", "path", path, "body", string(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firecrawl: HTTP %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("firecrawl: decode response: %w", err)
	}
	return nil
}
