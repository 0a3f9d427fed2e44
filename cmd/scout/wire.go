package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nugget/scout/internal/agent"
	"github.com/nugget/scout/internal/buildinfo"
	"github.com/nugget/scout/internal/config"
	"github.com/nugget/scout/internal/fetch"
	"github.com/nugget/scout/internal/firecrawl"
	"github.com/nugget/scout/internal/llm"
	"github.com/nugget/scout/internal/memory"
	"github.com/nugget/scout/internal/metrics"
	"github.com/nugget/scout/internal/search"
	"github.com/nugget/scout/internal/tools"
)

// setup loads .env and the config file, then builds the logger the
// config asks for.
func (o *globalOptions) setup(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	logger := newLogger(stderr, slog.LevelInfo, "text")

	if n, err := config.LoadDotEnv(config.DefaultDotEnvPath); err != nil {
		logger.Warn("failed to load .env", "path", config.DefaultDotEnvPath, "error", err)
	} else if n > 0 {
		logger.Debug(".env loaded", "vars", n)
	}

	cfg, cfgPath, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.LogLevel
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	logger = newLogger(stderr, level, cfg.LogFormat)

	if cfgPath != "" {
		logger.Debug("config loaded", "path", cfgPath)
	} else {
		logger.Debug("no config file found, using defaults")
	}
	return cfg, logger, nil
}

// newLogger creates a structured logger that writes to w. The format
// is "text" or "json".
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used and must exist. With no file
// anywhere, [config.Default] is returned with an empty path.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	if cfgPath == "" {
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// app is a fully wired agent plus everything that must be released when
// the command ends.
type app struct {
	agent   *agent.Agent
	store   *memory.Store
	closers []func() error
}

// Close releases persistence connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp wires config into a ready agent for model.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, model string) (*app, error) {
	logger.Info("starting Scout", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "model", model)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, closers: []func() error{closeStore}}

	client := newLLMClient(cfg, logger)
	if client.ProviderFor(model) == "" {
		if err := client.Ping(ctx); err != nil {
			logger.Warn("ollama unreachable, model calls will fail until it is up", "url", cfg.Ollama.URL, "error", err)
		}
	}

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var opts []agent.Option
	if cfg.Metrics.Listen != "" {
		m := metrics.New()
		if _, err := m.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, agent.WithRecorder(m))
	}

	a.agent = agent.New(client, model, store, registry, logger, opts...)
	logger.Info("agent ready", "model", model, "tools", registry.Names())
	return a, nil
}

// openStore opens the configured memory backend and loads the saved
// conversation. The returned func closes the backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*memory.Store, func() error, error) {
	noop := func() error { return nil }
	mlog := logger.With("component", "memory", "backend", cfg.Memory.Backend)

	switch cfg.Memory.Backend {
	case "sqlite":
		p, err := memory.NewSQLitePersister(cfg.Memory.Path, cfg.Memory.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory database: %w", err)
		}
		return memory.NewStore(ctx, p, mlog), p.Close, nil

	case "redis":
		r := cfg.Memory.Redis
		p := memory.NewRedisPersister(r.Addr, r.Password, r.DB, cfg.Memory.Key)
		if err := p.Ping(ctx); err != nil {
			mlog.Warn("redis unreachable, conversation will not persist", "addr", r.Addr, "error", err)
		}
		return memory.NewStore(ctx, p, mlog), p.Close, nil

	default:
		return memory.NewStore(ctx, memory.NewFilePersister(cfg.Memory.Path), mlog), noop, nil
	}
}

// newLLMClient builds a multi-provider client. Models mapped in
// model.providers go to their provider; everything else goes to Ollama.
func newLLMClient(cfg *config.Config, logger *slog.Logger) *llm.MultiClient {
	ollama := llm.NewOllamaClient(cfg.Ollama.URL, logger)
	multi := llm.NewMultiClient(ollama)
	multi.AddProvider("ollama", ollama)

	if cfg.Anthropic.Configured() {
		multi.AddProvider("anthropic", llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.MaxTokens, logger))
		logger.Debug("anthropic provider configured")
	}
	if cfg.OpenAI.Configured() {
		multi.AddProvider("openai", llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, logger))
		logger.Debug("openai provider configured", "base_url", cfg.OpenAI.BaseURL)
	}

	for model, provider := range cfg.Model.Providers {
		multi.AddModel(model, provider)
		if multi.ProviderFor(model) == "" && provider != "ollama" {
			logger.Warn("model mapped to unconfigured provider, using ollama", "model", model, "provider", provider)
		}
	}
	return multi
}

// newRegistry builds the search and scrape tools.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*tools.Registry, error) {
	var fc *firecrawl.Client
	if cfg.Firecrawl.Configured() {
		var err error
		fc, err = firecrawl.New(cfg.Firecrawl.APIKey, cfg.Firecrawl.BaseURL,
			time.Duration(cfg.Scrape.TimeoutSec)*time.Second, logger.With("component", "firecrawl"))
		if err != nil {
			return nil, err
		}
	}

	mgr := newSearchManager(cfg, fc, logger)
	scraper := newScraper(cfg, fc, logger)

	return tools.NewRegistry(
		tools.Tool{
			Name:        search.ToolName,
			Description: search.ToolDescription,
			Invoke:      search.ToolHandler(mgr, search.Options{Count: cfg.Search.Count, Language: cfg.Search.Language}, logger.With("tool", search.ToolName)),
		},
		tools.Tool{
			Name:        fetch.ToolName,
			Description: fetch.ToolDescription,
			Invoke:      fetch.ToolHandler(scraper, cfg.Scrape.MaxChars, logger.With("tool", fetch.ToolName)),
		},
	)
}

// newSearchManager registers every configured provider. DuckDuckGo needs
// no credentials and is always available, so it stands in for a primary
// provider that is missing its key.
func newSearchManager(cfg *config.Config, fc *firecrawl.Client, logger *slog.Logger) *search.Manager {
	primary := cfg.Search.Primary
	configured := map[string]bool{"duckduckgo": true}

	var providers []search.Provider
	if fc != nil {
		providers = append(providers, search.NewFirecrawl(fc))
		configured["firecrawl"] = true
	}
	if cfg.Search.Brave.Configured() {
		providers = append(providers, search.NewBrave(cfg.Search.Brave.APIKey))
		configured["brave"] = true
	}
	if cfg.Search.SearXNG.Configured() {
		providers = append(providers, search.NewSearXNG(cfg.Search.SearXNG.URL))
		configured["searxng"] = true
	}
	providers = append(providers, search.NewDuckDuckGo())

	if !configured[primary] {
		logger.Warn("search provider not configured, falling back to duckduckgo", "provider", primary)
		primary = "duckduckgo"
	}

	var opts []search.ManagerOption
	opts = append(opts, search.WithLogger(logger.With("component", "search")))
	if primary != "duckduckgo" {
		opts = append(opts, search.WithFallback("duckduckgo"))
	}
	mgr := search.NewManager(primary, opts...)
	for _, p := range providers {
		mgr.Register(p)
	}
	logger.Debug("search configured", "primary", mgr.Primary(), "fallback", mgr.Fallback(), "providers", mgr.Providers())
	return mgr
}

// newScraper returns the configured scrape backend. The firecrawl
// backend falls back to plain HTTP when no API key is set.
func newScraper(cfg *config.Config, fc *firecrawl.Client, logger *slog.Logger) fetch.Scraper {
	timeout := time.Duration(cfg.Scrape.TimeoutSec) * time.Second
	switch cfg.Scrape.Backend {
	case "browser":
		return fetch.NewBrowserScraper(timeout)
	case "firecrawl":
		if fc != nil {
			return fetch.NewFirecrawlScraper(fc)
		}
		logger.Warn("firecrawl scrape backend needs firecrawl.api_key, falling back to http")
	}
	return fetch.NewHTTPScraper(timeout)
}
