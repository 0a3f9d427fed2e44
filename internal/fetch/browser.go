package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nugget/scout/internal/buildinfo"
)

// BrowserScraper renders pages in headless Chrome before extraction, for
// sites that build their content with JavaScript.
type BrowserScraper struct {
	timeout   time.Duration
	userAgent string
}

// NewBrowserScraper creates a BrowserScraper. A zero timeout uses
// DefaultTimeout.
func NewBrowserScraper(timeout time.Duration) *BrowserScraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserScraper{
		timeout:   timeout,
		userAgent: buildinfo.UserAgent(),
	}
}

func (b *BrowserScraper) Name() string { return "browser" }

// Scrape navigates to rawURL, waits for the body and extracts the
// rendered document.
func (b *BrowserScraper) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	rawURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	raw, err := b.renderHTML(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}

	title, text := extractMainContent(raw, rawURL)
	return &Page{URL: rawURL, Title: title, Content: text, StatusCode: 200}, nil
}

func (b *BrowserScraper) renderHTML(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(b.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
