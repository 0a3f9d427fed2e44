package search

import (
	"context"
	"fmt"

	"github.com/nugget/scout/internal/firecrawl"
)

// Firecrawl implements the Provider interface on the Firecrawl search
// API. Results carry a description or, failing that, page markdown as
// the snippet.
type Firecrawl struct {
	client *firecrawl.Client
}

// NewFirecrawl wraps an API client.
func NewFirecrawl(client *firecrawl.Client) *Firecrawl {
	return &Firecrawl{client: client}
}

func (f *Firecrawl) Name() string { return "firecrawl" }

func (f *Firecrawl) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	count := opts.Count
	if count == 0 {
		count = DefaultCount
	}

	items, err := f.client.Search(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: %w", err)
	}

	results := make([]Result, 0, len(items))
	for _, it := range items {
		snippet := it.Description
		if snippet == "" {
			snippet = it.Markdown
		}
		results = append(results, Result{
			Title:   it.Title,
			URL:     it.URL,
			Snippet: snippet,
		})
	}
	return results, nil
}
