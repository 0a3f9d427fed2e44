// Package search provides the agent's "search" tool on top of pluggable
// web search providers.
//
// Each search provider implements the [Provider] interface and is
// registered by name. The [Manager] selects a provider based on
// configuration and exposes a single [Manager.Search] method that
// the tool layer calls.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/nugget/scout/internal/httpkit"
)

// Result is a single search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Options are optional parameters for a search query.
type Options struct {
	// Count is the maximum number of results to return.
	// Providers may return fewer. Zero means provider default.
	Count int `json:"count,omitempty"`

	// Language is an ISO 639-1 language code (e.g., "en", "de").
	Language string `json:"language,omitempty"`
}

// Provider is the interface that search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "firecrawl", "brave").
	Name() string

	// Search executes a query and returns results.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// ProviderError is a non-200 reply from a search backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the backend is rate limiting or failing
// server-side, as opposed to rejecting the request.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// newProviderError reads a bounded error body from resp and closes it.
func newProviderError(provider string, resp *http.Response) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(httpkit.ReadErrorBody(resp.Body, 512)),
	}
}

// Manager holds configured providers and routes searches.
type Manager struct {
	providers map[string]Provider
	primary   string
	fallback  string
	logger    *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFallback names a provider to retry on when the primary fails.
func WithFallback(name string) ManagerOption {
	return func(m *Manager) { m.fallback = name }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a search manager. The primary provider name
// determines which backend is used by default.
func NewManager(primary string, opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
		primary:   primary,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Register adds a provider to the manager.
func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

// Primary returns the name of the default provider.
func (m *Manager) Primary() string {
	return m.primary
}

// Search runs a query against the primary provider. When that fails
// and a fallback provider is registered, the query is retried there;
// if both fail the error names both.
func (m *Manager) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	results, err := m.SearchWith(ctx, m.primary, query, opts)
	if err == nil || m.fallback == "" || m.fallback == m.primary || ctx.Err() != nil {
		return results, err
	}
	if _, ok := m.providers[m.fallback]; !ok {
		return results, err
	}

	m.logger.Warn("search provider failed, trying fallback",
		"provider", m.primary, "fallback", m.fallback, "temporary", isTemporary(err), "error", err)
	results, fbErr := m.SearchWith(ctx, m.fallback, query, opts)
	if fbErr != nil {
		return nil, fmt.Errorf("%w; fallback %w", err, fbErr)
	}
	return results, nil
}

// Fallback returns the fallback provider name, or "".
func (m *Manager) Fallback() string {
	return m.fallback
}

func isTemporary(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Temporary()
}

// SearchWith runs a query against a specific named provider.
func (m *Manager) SearchWith(ctx context.Context, provider, query string, opts Options) ([]Result, error) {
	p, ok := m.providers[provider]
	if !ok {
		return nil, fmt.Errorf("search provider %q not configured", provider)
	}
	return p.Search(ctx, query, opts)
}

// Providers returns the names of all registered providers.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configured reports whether at least one provider is registered.
func (m *Manager) Configured() bool {
	return len(m.providers) > 0
}
