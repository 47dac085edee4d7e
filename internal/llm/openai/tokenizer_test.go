package openai

import (
	"testing"

	"manifold/internal/llm"
)

func TestResponsesTokenizer_BuildInputItems_PlainConversation(t *testing.T) {
	tokenizer := &ResponsesTokenizer{}
	items, instructions := tokenizer.buildInputItems([]llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})

	if instructions != "be terse" {
		t.Fatalf("expected system content to become instructions, got %q", instructions)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 input items (user+assistant), got %d", len(items))
	}

	first, ok := items[0].(map[string]any)
	if !ok || first["role"] != "user" {
		t.Fatalf("expected first item to be user message, got %#v", items[0])
	}
	second, ok := items[1].(map[string]any)
	if !ok || second["role"] != "assistant" {
		t.Fatalf("expected second item to be assistant message, got %#v", items[1])
	}
}
