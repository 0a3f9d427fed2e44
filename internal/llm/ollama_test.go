package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOllamaWireResponse_ToChatResponse(t *testing.T) {
	w := ollamaWireResponse{
		Model:           "gemma3n:e4b",
		CreatedAt:       "2025-06-01T12:00:00.123456Z",
		Message:         Message{Content: "hello"},
		Done:            true,
		TotalDuration:   int64(2 * time.Second),
		PromptEvalCount: 12,
		EvalCount:       3,
	}

	resp := w.toChatResponse()
	if resp.Message.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q when wire role is empty", resp.Message.Role, RoleAssistant)
	}
	if resp.Message.Content != "hello" {
		t.Errorf("Content = %q, want hello", resp.Message.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("tokens = %d/%d, want 12/3", resp.InputTokens, resp.OutputTokens)
	}
	if resp.TotalDuration != 2*time.Second {
		t.Errorf("TotalDuration = %v, want 2s", resp.TotalDuration)
	}
	if resp.CreatedAt.IsZero() {
		t.Error("CreatedAt should be parsed")
	}
}

func TestOllamaWireResponse_BadTimestamp(t *testing.T) {
	w := ollamaWireResponse{CreatedAt: "yesterday"}
	if resp := w.toChatResponse(); !resp.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero for unparseable timestamp", resp.CreatedAt)
	}
}

func TestOllamaClient_Chat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"gemma3n:e4b","message":{"role":"assistant","content":"pong"},"done":true,"eval_count":1}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", quietLogger())
	resp, err := c.Chat(context.Background(), "gemma3n:e4b", []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "ping"},
	})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if resp.Message.Content != "pong" {
		t.Errorf("Content = %q, want pong", resp.Message.Content)
	}
	if got.Stream {
		t.Error("request should not ask for streaming")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v, want system then user", got.Messages)
	}
}

func TestOllamaClient_ChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, quietLogger())
	if _, err := c.Chat(context.Background(), "missing", nil); err == nil {
		t.Fatal("Chat should fail on 404")
	}
}

func TestOllamaClient_PingAndListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"models":[{"name":"gemma3n:e4b"},{"name":"llama3.2"}]}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, quietLogger())
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	names, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if len(names) != 2 || names[0] != "gemma3n:e4b" {
		t.Errorf("ListModels = %v", names)
	}
}

func TestNewOllamaClient_DefaultURL(t *testing.T) {
	c := NewOllamaClient("", nil)
	if c.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultOllamaURL)
	}
}
