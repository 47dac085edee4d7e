package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"manifold/internal/llm"
)

func TestCompleteReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":1,"totalTokenCount":4}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := Config{APIKey: "k", Model: "test-model", BaseURL: srv.URL}
	client, err := New(cfg, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := client.Complete(context.Background(), []llm.Message{
		{Role: "system", Content: "do"},
		{Role: "user", Content: "hi"},
	}, llm.CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "hello" {
		t.Fatalf("expected hello, got %q", result.Content)
	}
	if result.Usage.TotalTokens != 4 {
		t.Fatalf("expected total tokens 4, got %d", result.Usage.TotalTokens)
	}
	if result.FinishReason != llm.FinishStop {
		t.Fatalf("unexpected finish reason %q", result.FinishReason)
	}
	if gotPath != "/v1beta/models/test-model:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestCompleteThinkingOnlyForSupportedModels(t *testing.T) {
	if !shouldIncludeThoughtSummaries("gemini-2.5-pro") {
		t.Fatalf("expected gemini-2.5-pro to support thought summaries")
	}
	if !shouldIncludeThoughtSummaries("models/gemini-3-flash") {
		t.Fatalf("expected gemini-3-flash to support thought summaries")
	}
	if shouldIncludeThoughtSummaries("gemini-1.5-flash") {
		t.Fatalf("did not expect gemini-1.5-flash to support thought summaries")
	}
}

func TestCompleteReturnsErrorOnSafetyBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"SAFETY"}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.CompletionOptions{})
	if err == nil {
		t.Fatalf("expected error for safety-blocked response")
	}
}

func TestToContentsRejectsUnsupportedRole(t *testing.T) {
	_, err := toContents([]llm.Message{{Role: "tool", Content: "x"}})
	if err == nil {
		t.Fatalf("expected error for unsupported role")
	}
}

func TestToContentsFoldsSystemIntoUserTurn(t *testing.T) {
	contents, err := toContents([]llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("toContents returned error: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Parts[0].Text != "[system] be terse" {
		t.Fatalf("unexpected system content: %q", contents[0].Parts[0].Text)
	}
}
