package fetch

import (
	"context"
	"strings"

	"github.com/nugget/scout/internal/firecrawl"
)

// FirecrawlScraper delegates extraction to the Firecrawl scrape API,
// which returns the main content as markdown.
type FirecrawlScraper struct {
	client *firecrawl.Client
}

// NewFirecrawlScraper wraps an API client.
func NewFirecrawlScraper(client *firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

func (f *FirecrawlScraper) Name() string { return "firecrawl" }

func (f *FirecrawlScraper) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	rawURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := f.client.Scrape(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:        rawURL,
		Title:      doc.Metadata.Title,
		Content:    strings.TrimSpace(doc.Markdown),
		StatusCode: doc.Metadata.StatusCode,
	}
	if doc.Metadata.SourceURL != "" {
		page.URL = doc.Metadata.SourceURL
	}
	return page, nil
}
