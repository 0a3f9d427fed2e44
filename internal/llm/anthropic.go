package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nugget/scout/internal/httpkit"
)

// AnthropicClient talks to the Anthropic Messages API through the
// official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropicClient creates a client authenticated with apiKey. Extra
// request options (a base URL for tests, for example) are applied last.
func NewAnthropicClient(apiKey string, maxTokens int64, logger *slog.Logger, opts ...option.RequestOption) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpkit.NewClient(httpkit.WithTimeout(0))),
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Chat sends messages to the Messages API. System messages become the
// top-level system prompt; every other role maps to user or assistant.
func (c *AnthropicClient) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	var system []anthropic.TextBlockParam
	var msgs []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	c.logger.Log(ctx, LevelTrace, "anthropic response", "model", resp.Model, "stop_reason", resp.StopReason, "content", text.String())

	return &ChatResponse{
		Model:         string(resp.Model),
		CreatedAt:     time.Now(),
		Message:       Message{Role: RoleAssistant, Content: text.String()},
		InputTokens:   int(resp.Usage.InputTokens),
		OutputTokens:  int(resp.Usage.OutputTokens),
		TotalDuration: time.Since(start),
	}, nil
}

// Ping lists models to confirm the API key is accepted.
func (c *AnthropicClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	return nil
}
