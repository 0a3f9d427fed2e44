package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/nugget/scout/internal/httpkit"
)

// duckDuckGoLiteURL is the no-JavaScript results page.
const duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"

// browserUserAgent is sent to DuckDuckGo, which serves an empty page to
// unknown agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGo implements the Provider interface by scraping the
// DuckDuckGo lite HTML page. It needs no API key.
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewDuckDuckGo creates a provider limited to one query per second.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		endpoint: duckDuckGoLiteURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
			httpkit.WithUserAgent(browserUserAgent),
		),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxRetries: 3,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("duckduckgo: query is empty")
	}
	count := opts.Count
	if count == 0 {
		count = DefaultCount
	}

	form := url.Values{"q": {query}}
	if opts.Language != "" {
		form.Set("kl", opts.Language)
	}

	delay := time.Second
	for attempt := 0; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < d.maxRetries {
			httpkit.DrainAndClose(resp.Body, 4096)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, newProviderError("duckduckgo", resp)
		}
		return parseLiteResults(io.LimitReader(resp.Body, 2<<20), count)
	}
}

// parseLiteResults walks the lite page: each result is an <a
// class="result-link"> followed later by a <td class="result-snippet">.
func parseLiteResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse html: %w", err)
	}

	var results []Result
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.A && hasClass(n, "result-link"):
				if len(results) >= limit {
					return false
				}
				results = append(results, Result{
					Title: strings.TrimSpace(nodeText(n)),
					URL:   resolveDuckDuckGoURL(attr(n, "href")),
				})
				return true
			case n.DataAtom == atom.Td && hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = strings.Join(strings.Fields(nodeText(n)), " ")
				}
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	out := results[:0]
	for _, res := range results {
		if res.URL != "" && res.Title != "" {
			out = append(out, res)
		}
	}
	return out, nil
}

// resolveDuckDuckGoURL unwraps "//duckduckgo.com/l/?uddg=<target>"
// redirect links.
func resolveDuckDuckGoURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
