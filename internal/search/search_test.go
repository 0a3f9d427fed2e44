package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nugget/scout/internal/firecrawl"
)

// mockProvider is a simple test provider.
type mockProvider struct {
	name    string
	results []Result
	err     error
	opts    Options
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Search(_ context.Context, _ string, opts Options) ([]Result, error) {
	m.opts = opts
	return m.results, m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerSearch(t *testing.T) {
	mgr := NewManager("mock")
	mgr.Register(&mockProvider{
		name: "mock",
		results: []Result{
			{Title: "Test", URL: "https://example.com", Snippet: "A test result"},
		},
	})

	results, err := mgr.Search(context.Background(), "test", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Test" {
		t.Errorf("expected title 'Test', got %q", results[0].Title)
	}
}

func TestManagerSearchWith(t *testing.T) {
	mgr := NewManager("primary")
	mgr.Register(&mockProvider{name: "primary", results: []Result{{Title: "Primary"}}})
	mgr.Register(&mockProvider{name: "secondary", results: []Result{{Title: "Secondary"}}})

	results, err := mgr.SearchWith(context.Background(), "secondary", "test", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Title != "Secondary" {
		t.Errorf("expected 'Secondary', got %q", results[0].Title)
	}
	if got := strings.Join(mgr.Providers(), ","); got != "primary,secondary" {
		t.Errorf("Providers() = %s", got)
	}
}

func TestManagerUnconfigured(t *testing.T) {
	mgr := NewManager("missing")
	_, err := mgr.Search(context.Background(), "test", Options{})
	if err == nil {
		t.Fatal("expected error for missing provider")
	}
}

func TestManagerFallback(t *testing.T) {
	primary := &mockProvider{name: "brave", err: &ProviderError{Provider: "brave", StatusCode: 503}}
	fallback := &mockProvider{name: "duckduckgo", results: []Result{{Title: "From fallback"}}}
	mgr := NewManager("brave", WithFallback("duckduckgo"), WithLogger(quietLogger()))
	mgr.Register(primary)
	mgr.Register(fallback)

	results, err := mgr.Search(context.Background(), "test", Options{Count: 3, Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Title != "From fallback" {
		t.Errorf("results = %+v", results)
	}
	if fallback.opts.Count != 3 || fallback.opts.Language != "en" {
		t.Errorf("fallback got opts %+v", fallback.opts)
	}
	if mgr.Fallback() != "duckduckgo" {
		t.Errorf("Fallback() = %q", mgr.Fallback())
	}
}

func TestManagerFallback_BothFail(t *testing.T) {
	mgr := NewManager("brave", WithFallback("duckduckgo"), WithLogger(quietLogger()))
	mgr.Register(&mockProvider{name: "brave", err: errors.New("brave down")})
	mgr.Register(&mockProvider{name: "duckduckgo", err: errors.New("ddg blocked")})

	_, err := mgr.Search(context.Background(), "test", Options{})
	if err == nil {
		t.Fatal("expected error when both providers fail")
	}
	if !strings.Contains(err.Error(), "brave down") || !strings.Contains(err.Error(), "ddg blocked") {
		t.Errorf("error = %v, want both causes", err)
	}
}

func TestManagerFallback_Skipped(t *testing.T) {
	fallback := &mockProvider{name: "duckduckgo", results: []Result{{Title: "unused"}}}

	// Unregistered fallback leaves the primary error alone.
	mgr := NewManager("brave", WithFallback("missing"), WithLogger(quietLogger()))
	mgr.Register(&mockProvider{name: "brave", err: errors.New("brave down")})
	if _, err := mgr.Search(context.Background(), "test", Options{}); err == nil || err.Error() != "brave down" {
		t.Errorf("error = %v, want primary error only", err)
	}

	// A cancelled context is not retried.
	mgr = NewManager("brave", WithFallback("duckduckgo"), WithLogger(quietLogger()))
	mgr.Register(&mockProvider{name: "brave", err: context.Canceled})
	mgr.Register(fallback)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mgr.Search(ctx, "test", Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if fallback.opts != (Options{}) {
		t.Error("fallback should not run after cancellation")
	}
}

func TestConfigured(t *testing.T) {
	mgr := NewManager("test")
	if mgr.Configured() {
		t.Error("empty manager should not be configured")
	}
	mgr.Register(&mockProvider{name: "test"})
	if !mgr.Configured() {
		t.Error("manager with provider should be configured")
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Title: "First", URL: "https://a.com", Snippet: "  Snippet A  "},
		{Title: "", URL: "", Snippet: ""},
		{Title: "Third", URL: "https://c.com", Snippet: "C"},
		{Title: "Fourth", URL: "https://d.com", Snippet: "never shown"},
	}

	want := "Title: First\nURL: https://a.com\nContent: Snippet A\n---\n" +
		"Title: No Title\nURL: No URL\nContent: \n---\n" +
		"Title: Third\nURL: https://c.com\nContent: C\n---"
	if got := FormatResults(results); got != want {
		t.Errorf("FormatResults() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	out := FormatResults(nil)
	if out != "No results found." {
		t.Errorf("expected 'No results found.', got %q", out)
	}
}

func TestTruncateSnippet(t *testing.T) {
	exact := strings.Repeat("a", 400)
	if got := truncateSnippet(exact); got != exact {
		t.Error("400-char snippet should not be cut")
	}

	long := strings.Repeat("é", 401)
	got := truncateSnippet(long)
	if got != strings.Repeat("é", 400)+"..." {
		t.Errorf("truncateSnippet() kept %d runes", len([]rune(got)))
	}
}

func TestToolHandler(t *testing.T) {
	p := &mockProvider{name: "mock", results: []Result{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"}}}
	mgr := NewManager("mock")
	mgr.Register(p)

	got := ToolHandler(mgr, Options{}, quietLogger())(context.Background(), "  golang  ")

	if got != "Title: Go\nURL: https://go.dev\nContent: The Go language\n---" {
		t.Errorf("handler result = %q", got)
	}
	if p.opts.Count != DefaultCount {
		t.Errorf("requested %d results, want %d", p.opts.Count, DefaultCount)
	}
}

func TestToolHandler_Language(t *testing.T) {
	p := &mockProvider{name: "mock"}
	mgr := NewManager("mock")
	mgr.Register(p)

	ToolHandler(mgr, Options{Count: 8, Language: "de"}, quietLogger())(context.Background(), "wetter")

	if p.opts.Count != 8 || p.opts.Language != "de" {
		t.Errorf("provider got opts %+v, want count 8 language de", p.opts)
	}
}

func TestToolHandler_Errors(t *testing.T) {
	mgr := NewManager("mock")
	mgr.Register(&mockProvider{name: "mock", err: errors.New("rate limited")})
	handler := ToolHandler(mgr, Options{Count: 5}, quietLogger())

	if got := handler(context.Background(), "q"); got != "Error searching: rate limited" {
		t.Errorf("handler(error) = %q", got)
	}
	if got := handler(context.Background(), "   "); got != "Error searching: query is empty" {
		t.Errorf("handler(empty) = %q", got)
	}
}

func TestBrave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			t.Errorf("missing subscription token")
		}
		if r.URL.Query().Get("q") != "golang" || r.URL.Query().Get("count") != "5" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"web":{"results":[{"title":"Go","url":"https://go.dev","description":"Build simple, secure, scalable systems"}]}}`)
	}))
	defer srv.Close()

	b := NewBrave("brave-key")
	b.endpoint = srv.URL

	results, err := b.Search(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Snippet != "Build simple, secure, scalable systems" {
		t.Errorf("results = %+v", results)
	}
}

func TestBrave_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewBrave("wrong")
	b.endpoint = srv.URL
	_, err := b.Search(context.Background(), "golang", Options{})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Search() error = %v, want *ProviderError", err)
	}
	if pe.Provider != "brave" || pe.StatusCode != http.StatusUnauthorized || pe.Body != "bad token" {
		t.Errorf("ProviderError = %+v", pe)
	}
	if pe.Temporary() {
		t.Error("401 should not be temporary")
	}
	if got := pe.Error(); got != "brave: HTTP 401: bad token" {
		t.Errorf("Error() = %q", got)
	}
}

func TestProviderErrorTemporary(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		pe := &ProviderError{Provider: "x", StatusCode: tt.status}
		if got := pe.Temporary(); got != tt.want {
			t.Errorf("Temporary() for %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBrave_LanguageAndExtraSnippets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search_lang") != "de" {
			t.Errorf("search_lang = %q, want de", q.Get("search_lang"))
		}
		if q.Get("extra_snippets") != "true" {
			t.Errorf("extra_snippets = %q, want true", q.Get("extra_snippets"))
		}
		io.WriteString(w, `{"web":{"results":[
			{"title":"Go","url":"https://go.dev","description":"Summary.","extra_snippets":["More detail.","  ","Even more."]},
			{"title":"Two","url":"https://2.example","description":"second"},
			{"title":"Three","url":"https://3.example","description":"third"}
		]}}`)
	}))
	defer srv.Close()

	b := NewBrave("brave-key")
	b.endpoint = srv.URL

	results, err := b.Search(context.Background(), "golang", Options{Count: 2, Language: "de"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Snippet != "Summary. More detail. Even more." {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestSearXNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("format") != "json" {
			t.Errorf("request = %s", r.URL)
		}
		io.WriteString(w, `{"results":[
			{"title":"One","url":"https://1.example","content":"first"},
			{"title":"Two","url":"https://2.example","content":"second"},
			{"title":"Three","url":"https://3.example","content":"third"}
		]}`)
	}))
	defer srv.Close()

	results, err := NewSearXNG(srv.URL+"/").Search(context.Background(), "q", Options{Count: 2})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 || results[1].Snippet != "second" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearXNG_LanguageAndDedupe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("language") != "fr" {
			t.Errorf("language = %q, want fr", r.URL.Query().Get("language"))
		}
		io.WriteString(w, `{"results":[
			{"title":"One","url":"https://1.example","content":"first"},
			{"title":"One again","url":"https://1.example","content":"duplicate"},
			{"title":"No URL","url":"","content":"skipped"},
			{"title":"Two","url":"https://2.example","content":"second"}
		]}`)
	}))
	defer srv.Close()

	results, err := NewSearXNG(srv.URL).Search(context.Background(), "q", Options{Language: "fr"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Snippet != "first" || results[1].URL != "https://2.example" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearXNG_UnresponsiveEngines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results":[],"unresponsive_engines":[["google","timeout"],["bing","CAPTCHA"]]}`)
	}))
	defer srv.Close()

	_, err := NewSearXNG(srv.URL).Search(context.Background(), "q", Options{})
	if err == nil {
		t.Fatal("Search() should fail when every engine was unresponsive")
	}
	if !strings.Contains(err.Error(), "google: timeout, bing: CAPTCHA") {
		t.Errorf("error = %v", err)
	}
}

func TestSearXNG_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()

	results, err := NewSearXNG(srv.URL).Search(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
}

func TestSearXNG_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSearXNG(srv.URL).Search(context.Background(), "q", Options{})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Search() error = %v, want *ProviderError", err)
	}
	if pe.Provider != "searxng" || !pe.Temporary() {
		t.Errorf("ProviderError = %+v", pe)
	}
}

func TestFirecrawlProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[
			{"title":"Desc","url":"https://a.example","description":"from description"},
			{"title":"MD","url":"https://b.example","markdown":"from markdown"}
		]}`)
	}))
	defer srv.Close()

	client, err := firecrawl.New("fc-key", srv.URL, time.Second, quietLogger())
	if err != nil {
		t.Fatalf("firecrawl.New() error: %v", err)
	}
	results, err := NewFirecrawl(client).Search(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Snippet != "from description" || results[1].Snippet != "from markdown" {
		t.Errorf("results = %+v", results)
	}
}

const liteFixture = `<html><body><table>
<tr><td>1.&nbsp;</td><td><a rel="nofollow" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=abc" class='result-link'>The Go <b>Programming</b> Language</a></td></tr>
<tr><td></td><td class='result-snippet'>Go is an open source   programming language.</td></tr>
<tr><td>2.&nbsp;</td><td><a rel="nofollow" href="https://en.wikipedia.org/wiki/Go_(programming_language)" class='result-link'>Go (programming language) - Wikipedia</a></td></tr>
<tr><td></td><td class='result-snippet'>Go is a statically typed language.</td></tr>
<tr><td>3.&nbsp;</td><td><a rel="nofollow" href="https://gobyexample.com" class='result-link'>Go by Example</a></td></tr>
</table></body></html>`

func TestParseLiteResults(t *testing.T) {
	results, err := parseLiteResults(strings.NewReader(liteFixture), 5)
	if err != nil {
		t.Fatalf("parseLiteResults() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}
	if results[0].URL != "https://go.dev/" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Title != "The Go Programming Language" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].Snippet != "Go is an open source programming language." {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if results[2].Snippet != "" {
		t.Errorf("third result should have no snippet, got %q", results[2].Snippet)
	}
}

func TestParseLiteResults_Limit(t *testing.T) {
	results, err := parseLiteResults(strings.NewReader(liteFixture), 2)
	if err != nil {
		t.Fatalf("parseLiteResults() error: %v", err)
	}
	if len(results) != 2 || results[1].Snippet != "Go is a statically typed language." {
		t.Errorf("results = %+v", results)
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		r.ParseForm()
		if r.PostForm.Get("q") != "golang" {
			t.Errorf("q = %q", r.PostForm.Get("q"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		io.WriteString(w, liteFixture)
	}))
	defer srv.Close()

	d := NewDuckDuckGo()
	d.endpoint = srv.URL
	d.limiter = rate.NewLimiter(rate.Inf, 1)

	results, err := d.Search(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2 (one 429 retry)", hits.Load())
	}
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	if _, err := NewDuckDuckGo().Search(context.Background(), " ", Options{}); err == nil {
		t.Fatal("empty query should fail")
	}
}

func TestResolveDuckDuckGoURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2F", "https://example.com/"},
		{"//example.com/x", "https://example.com/x"},
	}
	for _, tt := range tests {
		if got := resolveDuckDuckGoURL(tt.in); got != tt.want {
			t.Errorf("resolveDuckDuckGoURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
