// Package agent implements the ReAct control loop: it asks the model
// for the next step, dispatches tool calls and stops on a final answer,
// a model error or the turn limit.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nugget/scout/internal/llm"
	"github.com/nugget/scout/internal/memory"
	"github.com/nugget/scout/internal/prompts"
	"github.com/nugget/scout/internal/tools"
)

// MaxTurns bounds the number of model calls in one Run.
const MaxTurns = 5

// Recorder receives loop events for metrics. *metrics.Metrics
// satisfies it.
type Recorder interface {
	RunFinished(outcome string)
	ModelCall(model string, d time.Duration, err error)
	ToolCall(tool string)
	MemoryDegraded()
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string) {}
func (nopRecorder) ModelCall(string, time.Duration, error) {}
func (nopRecorder) ToolCall(string) {}
func (nopRecorder) MemoryDegraded() {}

// Result is the outcome of one Run.
type Result struct {
	RequestID  string
	Text       string
	Outcome    Outcome
	ModelCalls int
	ToolCalls  []ToolCall
	Err        error
}

// Option configures an Agent.
type Option func(*Agent)

// WithRecorder sends loop events to r.
func WithRecorder(r Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithMaxTurns overrides MaxTurns. Values below 1 are ignored.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// Agent owns one conversation and drives it one Run at a time.
type Agent struct {
	mu sync.Mutex

	llm      llm.Client
	model    string
	store    *memory.Store
	tools    *tools.Registry
	logger   *slog.Logger
	recorder Recorder
	maxTurns int
}

// New creates an agent that talks to model through client.
func New(client llm.Client, model string, store *memory.Store, registry *tools.Registry, logger *slog.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		llm:      client,
		model:    model,
		store:    store,
		tools:    registry,
		logger:   logger,
		recorder: nopRecorder{},
		maxTurns: MaxTurns,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the model name used for every call.
func (a *Agent) Model() string { return a.model }

// Run processes one user input and returns the text to show the user.
// Every failure is reported as text; Run never returns an error.
func (a *Agent) Run(ctx context.Context, input string) string {
	return a.RunDetailed(ctx, input).Text
}

// RunDetailed is Run with the full Result.
func (a *Agent) RunDetailed(ctx context.Context, input string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := Result{RequestID: generateRequestID()}
	log := a.logger.With("request_id", res.RequestID)
	start := time.Now()

	log.Info("run started", "model", a.model, "history", a.store.Len())
	a.store.Append(ctx, memory.User, input)

	var (
		state = StateAwaitingModel
		text  string
		call  ToolCall
	)

	for state != StateTerminated {
		switch state {
		case StateAwaitingModel:
			if res.ModelCalls >= a.maxTurns {
				log.Warn("turn limit reached", "turns", res.ModelCalls)
				res.Outcome = OutcomeTurnLimit
				res.Text = prompts.TurnLimitMessage
				state = StateTerminated
				continue
			}
			res.ModelCalls++

			var err error
			text, err = a.callModel(ctx, log, res.ModelCalls)
			if err != nil {
				res.Outcome = OutcomeError
				res.Err = err
				res.Text = prompts.ModelErrorMessage(err)
				state = StateTerminated
				continue
			}

			state = a.classify(log, text, &call)

		case StateToolDispatch:
			a.store.Append(ctx, memory.Agent, text)
			result := a.dispatch(ctx, log, call)
			res.ToolCalls = append(res.ToolCalls, call)
			a.store.Append(ctx, memory.User, memory.ToolResultPrefix+result)
			state = StateAwaitingModel

		case StateFinalAnswer:
			a.store.Append(ctx, memory.Agent, text)
			res.Outcome = OutcomeSuccess
			res.Text = text
			state = StateTerminated
		}
	}

	if a.store.Degraded() {
		a.recorder.MemoryDegraded()
	}
	a.recorder.RunFinished(res.Outcome.String())
	log.Info("run finished",
		"outcome", res.Outcome,
		"model_calls", res.ModelCalls,
		"tool_calls", len(res.ToolCalls),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res
}

// classify moves from AwaitingModel to ToolDispatch or FinalAnswer.
// Calls to unregistered tools are answers.
func (a *Agent) classify(log *slog.Logger, text string, call *ToolCall) State {
	c, ok := Interpret(text)
	if !ok {
		return StateFinalAnswer
	}
	if !a.tools.Has(c.Tool) {
		log.Debug("model named an unregistered tool, treating as answer", "tool", c.Tool)
		return StateFinalAnswer
	}
	*call = c
	return StateToolDispatch
}

func (a *Agent) callModel(ctx context.Context, log *slog.Logger, turn int) (string, error) {
	messages := a.render()
	log.Info("model call", "turn", turn, "model", a.model, "messages", len(messages))

	start := time.Now()
	resp, err := a.llm.Chat(ctx, a.model, messages)
	elapsed := time.Since(start)
	a.recorder.ModelCall(a.model, elapsed, err)
	if err != nil {
		log.Error("model call failed", "turn", turn, "error", err)
		return "", err
	}

	log.Debug("model replied",
		"turn", turn,
		"elapsed", elapsed.Round(time.Millisecond),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp.Message.Content, nil
}

// render builds the message list for one model call: a fresh system
// preamble followed by the whole conversation.
func (a *Agent) render() []llm.Message {
	history := a.store.History()
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: prompts.SystemPrompt(a.tools.Describe()),
	})
	for _, t := range history {
		role := llm.RoleUser
		if t.Speaker == memory.Agent {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}
	return messages
}

func (a *Agent) dispatch(ctx context.Context, log *slog.Logger, call ToolCall) string {
	log.Debug("tool dispatch", "tool", call.Tool, "input", call.Input)
	a.recorder.ToolCall(call.Tool)

	start := time.Now()
	result, err := a.tools.Invoke(ctx, call.Tool, call.Input)
	if err != nil {
		// Has was checked in classify; only a registry bug lands here.
		var unknown *tools.ErrUnknownTool
		if errors.As(err, &unknown) {
			log.Error("dispatch to unregistered tool", "tool", unknown.ToolName)
		}
		return err.Error()
	}

	log.Debug("tool finished",
		"tool", call.Tool,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"result_len", len(result),
	)
	return result
}

// History returns the conversation so far.
func (a *Agent) History() []memory.Turn {
	return a.store.History()
}

// Clear wipes the conversation. It waits for any Run in progress.
func (a *Agent) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store.Clear(ctx)
	a.logger.Info("conversation cleared")
}
