package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"manifold/internal/llm"
)

func TestCompleteReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:           "msg_1",
			Type:         constant.Message("message"),
			Role:         constant.Assistant("assistant"),
			Model:        sdk.ModelClaude3_7SonnetLatest,
			StopReason:   sdk.StopReasonEndTurn,
			StopSequence: "",
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hello"},
			},
			Usage: minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	result, err := client.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "hello" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if result.FinishReason != llm.FinishStop {
		t.Fatalf("unexpected finish reason %q", result.FinishReason)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestCompleteSendsSystemAndStopSequences(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:           "msg_2",
			Type:         constant.Message("message"),
			Role:         constant.Assistant("assistant"),
			Model:        sdk.ModelClaude3_7SonnetLatest,
			StopReason:   sdk.StopReasonEndTurn,
			StopSequence: "",
			Content:      []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}},
			Usage:        minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "go"},
	}, llm.CompletionOptions{StopSequences: []string{"STOP"}})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if _, ok := reqBody["system"]; !ok {
		t.Fatalf("expected system in request, got %#v", reqBody)
	}
	seqs, ok := reqBody["stop_sequences"].([]any)
	if !ok || len(seqs) != 1 || seqs[0] != "STOP" {
		t.Fatalf("expected stop_sequences to be forwarded, got %#v", reqBody["stop_sequences"])
	}
}

func TestCompleteWithThinkingEnablesThinkingConfig(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:           "msg_3",
			Type:         constant.Message("message"),
			Role:         constant.Assistant("assistant"),
			Model:        sdk.ModelClaude3_7SonnetLatest,
			StopReason:   sdk.StopReasonEndTurn,
			StopSequence: "",
			Content: []sdk.ContentBlockUnion{
				{Type: "thinking", Thinking: "reasoning..."},
				{Type: "text", Text: "answer"},
			},
			Usage: minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(Config{APIKey: "k", Model: "claude-sonnet-4-5-latest", BaseURL: srv.URL})
	result, err := client.Complete(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
	}, llm.CompletionOptions{Thinking: &llm.ExtendedThinking{Enabled: true, BudgetTokens: 512}})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Thinking != "reasoning..." {
		t.Fatalf("expected thinking text to be captured, got %q", result.Thinking)
	}
	if result.Content != "answer" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if _, ok := reqBody["thinking"]; !ok {
		t.Fatalf("expected thinking config in request, got %#v", reqBody)
	}
}

func TestCompleteSkipsThinkingForUnsupportedModel(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:           "msg_4",
			Type:         constant.Message("message"),
			Role:         constant.Assistant("assistant"),
			Model:        sdk.ModelClaude3_7SonnetLatest,
			StopReason:   sdk.StopReasonEndTurn,
			StopSequence: "",
			Content:      []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}},
			Usage:        minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(Config{APIKey: "k", Model: "claude-3-7-sonnet-latest", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
	}, llm.CompletionOptions{Thinking: &llm.ExtendedThinking{Enabled: true}})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if _, ok := reqBody["thinking"]; ok {
		t.Fatalf("did not expect thinking config for unsupported model, got %#v", reqBody)
	}
}

func TestCompleteMapsFinishReasons(t *testing.T) {
	cases := []struct {
		stop sdk.StopReason
		want llm.FinishReason
	}{
		{sdk.StopReasonEndTurn, llm.FinishStop},
		{sdk.StopReasonMaxTokens, llm.FinishLength},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			w.Header().Set("Content-Type", "application/json")
			resp := sdk.Message{
				ID:           "msg",
				Type:         constant.Message("message"),
				Role:         constant.Assistant("assistant"),
				Model:        sdk.ModelClaude3_7SonnetLatest,
				StopReason:   tc.stop,
				StopSequence: "",
				Content:      []sdk.ContentBlockUnion{{Type: "text", Text: "x"}},
				Usage:        minimalUsage(),
			}
			b, _ := json.Marshal(resp)
			_, _ = w.Write(b)
		}))
		client := New(Config{APIKey: "k", BaseURL: srv.URL})
		result, err := client.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{})
		srv.Close()
		if err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		if result.FinishReason != tc.want {
			t.Fatalf("stop reason %q: expected %q, got %q", tc.stop, tc.want, result.FinishReason)
		}
	}
}

func minimalUsage() sdk.Usage {
	return sdk.Usage{
		InputTokens:  10,
		OutputTokens: 5,
	}
}
