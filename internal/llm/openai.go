package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nugget/scout/internal/httpkit"
)

// OpenAIClient talks to the OpenAI Chat Completions API, or to any
// server that implements it when a base URL is given.
type OpenAIClient struct {
	client openai.Client
	logger *slog.Logger
}

// NewOpenAIClient creates a client authenticated with apiKey. An empty
// baseURL keeps the SDK default.
func NewOpenAIClient(apiKey, baseURL string, logger *slog.Logger, opts ...option.RequestOption) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpkit.NewClient(httpkit.WithTimeout(0))),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		logger: logger,
	}
}

// Chat sends a non-streaming chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Log(ctx, LevelTrace, "openai response", "model", resp.Model, "finish_reason", resp.Choices[0].FinishReason, "content", content)

	return &ChatResponse{
		Model:         resp.Model,
		CreatedAt:     time.Unix(resp.Created, 0),
		Message:       Message{Role: RoleAssistant, Content: content},
		InputTokens:   int(resp.Usage.PromptTokens),
		OutputTokens:  int(resp.Usage.CompletionTokens),
		TotalDuration: time.Since(start),
	}, nil
}

// Ping lists models to confirm the endpoint and key are usable.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}
