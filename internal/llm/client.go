// Package llm provides chat clients for the language model providers
// Scout can talk to: Ollama, Anthropic and any OpenAI-compatible API.
package llm

import "context"

// Client is the interface that all LLM providers must implement. Chat
// is synchronous: it returns the complete assistant message or an
// error. Scout never streams tokens.
type Client interface {
	// Chat sends the ordered messages to model and returns its reply.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
