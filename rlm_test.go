package manifold

import (
	"context"
	"errors"
	"testing"

	"manifold/internal/llm"
)

type fakeProvider struct {
	content string
}

func (p *fakeProvider) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (llm.CompletionResult, error) {
	return llm.CompletionResult{
		Content:      p.content,
		Usage:        llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		FinishReason: llm.FinishStop,
	}, nil
}

func TestCompletionReturnsFinalAnswer(t *testing.T) {
	r := New(&fakeProvider{content: `FINAL("seven")`}, nil)

	result, err := r.Completion(context.Background(), "what is the answer?", "some context", Options{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != "seven" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
	if result.Usage.CallCount != 1 {
		t.Fatalf("expected 1 call, got %d", result.Usage.CallCount)
	}
}

func TestCompletionConvertsConfigurationError(t *testing.T) {
	r := New(&fakeProvider{content: `FINAL("x")`}, nil)

	_, err := r.Completion(context.Background(), "q", "ctx", Options{})
	var rlmErr *Error
	if !errors.As(err, &rlmErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if rlmErr.Code != CodeConfiguration {
		t.Fatalf("expected configuration error, got %s", rlmErr.Code)
	}
}

func TestStreamEmitsEventsAndReturnsResult(t *testing.T) {
	r := New(&fakeProvider{content: `FINAL("ok")`}, nil)

	var sawFinal, sawDone bool
	result, err := r.Stream(context.Background(), "q", "ctx", Options{Model: "gpt-4o-mini"}, func(ev StreamEvent) {
		switch ev.Type {
		case EventFinal:
			sawFinal = true
		case EventDone:
			sawDone = true
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawFinal || !sawDone {
		t.Fatalf("expected both final and done events, got final=%v done=%v", sawFinal, sawDone)
	}
	if result.Response != "ok" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
}
