package llm

import (
	"context"
	"testing"
)

func TestConfigureLoggingToggle(t *testing.T) {
	ConfigureLogging(false, 0)
	if ok, _ := shouldLog(); ok {
		t.Fatalf("expected logging disabled")
	}
	ConfigureLogging(true, 128)
	ok, trunc := shouldLog()
	if !ok || trunc != 128 {
		t.Fatalf("expected logging enabled with truncate=128, got ok=%v trunc=%d", ok, trunc)
	}
	ConfigureLogging(false, 0)
}

func TestLogRedactedPromptNoopWhenDisabled(t *testing.T) {
	ConfigureLogging(false, 0)
	// Must not panic even with no tracer/logger configured.
	LogRedactedPrompt(context.Background(), []Message{{Role: "user", Content: "hello"}})
	LogRedactedResponse(context.Background(), map[string]string{"ok": "true"})
}

func TestRecordTokenMetricsNoopOnEmpty(t *testing.T) {
	// Should not panic when called before any OTel provider is installed.
	RecordTokenMetrics("", 0, 0)
	RecordTokenMetrics("gpt-test", 10, 5)
}

func TestStartRequestSpanSetsAttributes(t *testing.T) {
	ctx, span := StartRequestSpan(context.Background(), "Test Op", "gpt-test", 3)
	defer span.End()
	if ctx == nil {
		t.Fatalf("expected non-nil context")
	}
}
