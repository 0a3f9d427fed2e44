package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultCount is how many results are requested from a provider.
const DefaultCount = 5

// Formatting limits for the tool result.
const (
	shownResults = 3
	snippetLimit = 400
)

// ToolName is the name the model uses to call search.
const ToolName = "search"

// ToolDescription is shown to the model in the system prompt.
const ToolDescription = "Useful for searching the internet. Returns search results with content snippets."

// ToolHandler returns the invoke function for the search tool. opts
// apply to every query; a zero Count uses DefaultCount. Failures come
// back as "Error searching: <cause>" text, never as an error.
func ToolHandler(mgr *Manager, opts Options, logger *slog.Logger) func(ctx context.Context, input string) string {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	return func(ctx context.Context, input string) string {
		query := strings.TrimSpace(input)
		if query == "" {
			return "Error searching: query is empty"
		}

		results, err := mgr.Search(ctx, query, opts)
		if err != nil {
			logger.Warn("search failed", "provider", mgr.Primary(), "query", query, "error", err)
			return fmt.Sprintf("Error searching: %v", err)
		}

		logger.Debug("search complete", "provider", mgr.Primary(), "query", query, "results", len(results))
		return FormatResults(results)
	}
}

// FormatResults renders the first three results as Title/URL/Content
// blocks, each followed by a "---" line.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, r := range results {
		if i == shownResults {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}

		title := r.Title
		if title == "" {
			title = "No Title"
		}
		url := r.URL
		if url == "" {
			url = "No URL"
		}
		fmt.Fprintf(&b, "Title: %s\nURL: %s\nContent: %s\n---", title, url, truncateSnippet(r.Snippet))
	}
	return b.String()
}

func truncateSnippet(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= snippetLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetLimit]) + "..."
}
