package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"manifold/internal/llm"
)

func TestAdaptMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: "system", Content: ""},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "got it"},
	}
	out := AdaptMessages(msgs)
	if len(out) != len(msgs) {
		t.Fatalf("expected %d messages, got %d", len(msgs), len(out))
	}

	js0, _ := json.Marshal(out[0])
	if !strings.Contains(string(js0), "You are a helpful assistant.") {
		t.Fatalf("expected default system content in %s", string(js0))
	}
	js1, _ := json.Marshal(out[1])
	if !strings.Contains(string(js1), "hello") {
		t.Fatalf("expected user content in %s", string(js1))
	}
	js2, _ := json.Marshal(out[2])
	if !strings.Contains(string(js2), "got it") {
		t.Fatalf("expected assistant content in %s", string(js2))
	}
}

func TestIsGemini3Model(t *testing.T) {
	if !isGemini3Model("gemini-3-pro") {
		t.Fatalf("expected gemini-3-pro to match")
	}
	if isGemini3Model("gemini-2.5-flash") {
		t.Fatalf("did not expect gemini-2.5-flash to match")
	}
}
