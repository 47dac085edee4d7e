package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"manifold/internal/llm"
)

func TestCompleteReturnsChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
	}))
	t.Cleanup(srv.Close)

	cli := New(Config{APIKey: "test", BaseURL: srv.URL, Model: "m"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := cli.Complete(ctx, []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "hello" {
		t.Fatalf("expected hello, got %q", result.Content)
	}
	if result.FinishReason != llm.FinishStop {
		t.Fatalf("unexpected finish reason %q", result.FinishReason)
	}
	if result.Usage.TotalTokens != 4 {
		t.Fatalf("expected total tokens 4, got %d", result.Usage.TotalTokens)
	}
}

func TestCompleteUsesMaxCompletionTokensForThinkingModels(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	t.Cleanup(srv.Close)

	cli := New(Config{APIKey: "test", BaseURL: srv.URL, Model: "o4-mini"})
	_, err := cli.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reqBody["max_completion_tokens"]; !ok {
		t.Fatalf("expected max_completion_tokens for thinking model, got %#v", reqBody)
	}
	if _, ok := reqBody["max_tokens"]; ok {
		t.Fatalf("did not expect max_tokens for thinking model, got %#v", reqBody)
	}
}

func TestCompleteReturnsErrorOnNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[],"usage":{}}`))
	}))
	t.Cleanup(srv.Close)

	cli := New(Config{APIKey: "test", BaseURL: srv.URL, Model: "m"})
	_, err := cli.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{})
	if err == nil {
		t.Fatalf("expected error when no choices are returned")
	}
}

func TestIsThinkingModel(t *testing.T) {
	cases := map[string]bool{
		"o4-mini":         true,
		"o1-pro":          true,
		"gpt-4o":          false,
		"omega-1":         false,
		"o":               false,
		"gpt-4o-thinking": false,
	}
	for model, want := range cases {
		if got := isThinkingModel(model); got != want {
			t.Errorf("isThinkingModel(%q) = %v, want %v", model, got, want)
		}
	}
}
