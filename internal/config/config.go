// Package config handles Scout configuration loading.
//
// Configuration comes from a single optional YAML file. Values of the
// form ${VAR} are expanded from the environment before parsing, and a
// .env file next to the working directory is loaded into the
// environment first so API keys can live outside the YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the model used when neither the config file nor the
// command line names one.
const DefaultModel = "gemma3n:e4b"

// DefaultSearchPaths returns the config file search order:
// ./scout.yaml, ~/.config/scout/config.yaml, /etc/scout/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"scout.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scout", "config.yaml"))
	}

	paths = append(paths, "/etc/scout/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise the first existing entry of DefaultSearchPaths is
// returned, or "" when none exists. Running without a config file is
// normal; Default supplies everything.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Config holds all Scout configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Memory    MemoryConfig    `yaml:"memory"`
	Search    SearchConfig    `yaml:"search"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // text or json
}

// ModelConfig selects the default model and maps model names to the
// provider that serves them. Unmapped models go to Ollama.
type ModelConfig struct {
	Default   string            `yaml:"default"`
	Providers map[string]string `yaml:"providers"` // model name → ollama|anthropic|openai
}

// OllamaConfig points at a local or remote Ollama server.
type OllamaConfig struct {
	URL string `yaml:"url"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// Configured reports whether an Anthropic API key is set.
func (c AnthropicConfig) Configured() bool {
	return c.APIKey != ""
}

// OpenAIConfig defines settings for OpenAI or any OpenAI-compatible
// chat completions endpoint.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Configured reports whether an OpenAI API key is set.
func (c OpenAIConfig) Configured() bool {
	return c.APIKey != ""
}

// MemoryConfig selects where the conversation log is persisted.
type MemoryConfig struct {
	// Backend is one of "file" (default), "sqlite" or "redis".
	Backend string `yaml:"backend"`
	// Path is the JSON file (file backend) or database file (sqlite).
	Path string `yaml:"path"`
	// Key names the conversation within sqlite or redis.
	Key   string      `yaml:"key"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis memory backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SearchConfig selects and configures web search providers.
type SearchConfig struct {
	// Primary is the provider used by the search tool: firecrawl,
	// brave, searxng or duckduckgo.
	Primary string `yaml:"primary"`
	// Count is how many results to request from the provider.
	Count int `yaml:"count"`
	// Language is an ISO 639-1 code passed to providers that support
	// it. Empty leaves the choice to the provider.
	Language string        `yaml:"language"`
	Brave    BraveConfig   `yaml:"brave"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// BraveConfig holds the Brave Search API key.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool {
	return c.APIKey != ""
}

// SearXNGConfig holds the base URL of a SearXNG instance.
type SearXNGConfig struct {
	URL string `yaml:"url"`
}

// Configured reports whether a SearXNG URL is set.
func (c SearXNGConfig) Configured() bool {
	return c.URL != ""
}

// ScrapeConfig selects the page scraping backend.
type ScrapeConfig struct {
	// Backend is one of "http" (default), "browser" or "firecrawl".
	Backend string `yaml:"backend"`
	// MaxChars caps the text returned to the model.
	MaxChars int `yaml:"max_chars"`
	// TimeoutSec bounds a single scrape.
	TimeoutSec int `yaml:"timeout_sec"`
}

// FirecrawlConfig holds Firecrawl API credentials, shared by the
// firecrawl search provider and scrape backend.
type FirecrawlConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Configured reports whether a Firecrawl API key is set.
func (c FirecrawlConfig) Configured() bool {
	return c.APIKey != ""
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is a host:port for /metrics. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// Load reads configuration from a YAML file, expanding ${VAR}
// references, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is found. API
// keys are still picked up from the environment, matching what a
// config file with ${VAR} references would produce.
func Default() *Config {
	cfg := &Config{
		Firecrawl: FirecrawlConfig{APIKey: os.Getenv("FIRECRAWL_API_KEY")},
		Anthropic: AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
		OpenAI:    OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Model.Default == "" {
		c.Model.Default = DefaultModel
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = "http://localhost:11434"
	}
	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = 4096
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = "file"
	}
	if c.Memory.Path == "" {
		switch c.Memory.Backend {
		case "sqlite":
			c.Memory.Path = "scout.db"
		default:
			c.Memory.Path = "agent_memory.json"
		}
	}
	if c.Memory.Key == "" {
		c.Memory.Key = "default"
	}
	if c.Memory.Redis.Addr == "" {
		c.Memory.Redis.Addr = "localhost:6379"
	}
	if c.Search.Primary == "" {
		c.Search.Primary = "firecrawl"
	}
	if c.Search.Count == 0 {
		c.Search.Count = 5
	}
	if c.Scrape.Backend == "" {
		c.Scrape.Backend = "http"
	}
	if c.Scrape.MaxChars == 0 {
		c.Scrape.MaxChars = 5000
	}
	if c.Scrape.TimeoutSec == 0 {
		c.Scrape.TimeoutSec = 30
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate rejects unknown backend and provider names.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("memory.backend: unknown backend %q (valid: file, sqlite, redis)", c.Memory.Backend)
	}
	switch c.Search.Primary {
	case "firecrawl", "brave", "searxng", "duckduckgo":
	default:
		return fmt.Errorf("search.primary: unknown provider %q (valid: firecrawl, brave, searxng, duckduckgo)", c.Search.Primary)
	}
	switch c.Scrape.Backend {
	case "http", "browser", "firecrawl":
	default:
		return fmt.Errorf("scrape.backend: unknown backend %q (valid: http, browser, firecrawl)", c.Scrape.Backend)
	}
	for model, provider := range c.Model.Providers {
		switch provider {
		case "ollama", "anthropic", "openai":
		default:
			return fmt.Errorf("model.providers[%s]: unknown provider %q", model, provider)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format: unknown format %q (valid: text, json)", c.LogFormat)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
