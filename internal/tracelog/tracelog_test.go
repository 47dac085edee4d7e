package tracelog

import (
	"bytes"
	"strings"
	"testing"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	l := New()
	e := l.Append(TraceEntry{Kind: KindLLMCall, Depth: 0, Iteration: 1})
	if e.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if e.Timestamp.IsZero() {
		t.Fatalf("expected generated timestamp")
	}
}

func TestGetEntriesPreservesOrder(t *testing.T) {
	l := New()
	l.Append(TraceEntry{Kind: KindLLMCall, Iteration: 1})
	l.Append(TraceEntry{Kind: KindCodeExecution, Iteration: 1})
	l.Append(TraceEntry{Kind: KindFinal, Iteration: 1})

	entries := l.GetEntries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindLLMCall || entries[1].Kind != KindCodeExecution || entries[2].Kind != KindFinal {
		t.Fatalf("expected append order preserved, got %+v", entries)
	}
}

func TestGetCallCountCountsOnlyTopLevelLLMCalls(t *testing.T) {
	l := New()
	l.Append(TraceEntry{Kind: KindLLMCall, Depth: 0})
	l.Append(TraceEntry{Kind: KindSubLLMCall, Depth: 1})
	l.Append(TraceEntry{Kind: KindLLMCall, Depth: 0})

	if got := l.GetCallCount(); got != 2 {
		t.Fatalf("expected 2 top-level calls, got %d", got)
	}
}

func TestGetTotalUsageSumsLLMAndSubLLMEntries(t *testing.T) {
	l := New()
	l.Append(TraceEntry{Kind: KindLLMCall, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	l.Append(TraceEntry{Kind: KindSubLLMCall, PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})
	l.Append(TraceEntry{Kind: KindCodeExecution})

	prompt, completion, total := l.GetTotalUsage()
	if prompt != 13 || completion != 7 || total != 20 {
		t.Fatalf("expected summed usage, got prompt=%d completion=%d total=%d", prompt, completion, total)
	}
}

func TestClearEmptiesLog(t *testing.T) {
	l := New()
	l.Append(TraceEntry{Kind: KindLLMCall})
	l.Clear()
	if len(l.GetEntries()) != 0 {
		t.Fatalf("expected empty log after Clear")
	}
}

func TestVerboseMirrorsToStream(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.Verbose = true
	l.Mirror = &buf
	l.Append(TraceEntry{Kind: KindError, Error: "boom", Depth: 0, Iteration: 1})

	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected mirrored output to contain error message, got %q", buf.String())
	}
}

type recordingSink struct {
	entries []TraceEntry
}

func (s *recordingSink) Write(e TraceEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestAddSinkReceivesAppendedEntries(t *testing.T) {
	l := New()
	sink := &recordingSink{}
	l.AddSink(sink)
	l.Append(TraceEntry{Kind: KindFinal})

	if len(sink.entries) != 1 {
		t.Fatalf("expected sink to receive 1 entry, got %d", len(sink.entries))
	}
}
