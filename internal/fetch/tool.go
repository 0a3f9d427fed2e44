package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxChars caps the content handed back to the model.
const DefaultMaxChars = 5000

// ToolName is the name the model uses to call the scraper.
const ToolName = "scrape"

// ToolDescription is shown to the model in the system prompt.
const ToolDescription = "Useful for scraping the full content of a specific webpage. Input should be a URL."

// ToolHandler returns the invoke function for the scrape tool. Failures
// come back as text so the model can read them.
func ToolHandler(s Scraper, maxChars int, logger *slog.Logger) func(ctx context.Context, input string) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return func(ctx context.Context, input string) string {
		page, err := s.Scrape(ctx, input)
		if err != nil {
			logger.Warn("scrape failed", "backend", s.Name(), "url", input, "error", err)
			return fmt.Sprintf("Error scraping: %v", err)
		}

		content := strings.TrimSpace(page.Content)
		if content == "" {
			return "Error: No content returned."
		}

		content, cut := truncateRunes(content, maxChars)
		logger.Debug("scrape complete", "backend", s.Name(), "url", page.URL,
			"status", page.StatusCode, "chars", len(content), "truncated", cut)
		if cut {
			content += "..."
		}
		return content
	}
}
