// Package tracelog is the append-only trace log Executor uses to narrate a
// single top-level execute: every LLM call, sandbox execution, recursive
// sub-call, extended-thinking segment, final answer, and error becomes one
// self-contained TraceEntry. Entries carry no cross-references
// so a consumer can reconstruct the full narrative with a linear scan.
package tracelog

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the variant payload a TraceEntry carries.
type Kind string

const (
	KindLLMCall       Kind = "llm_call"
	KindSubLLMCall    Kind = "sub_llm_call"
	KindCodeExecution Kind = "code_execution"
	KindExtendedThink Kind = "extended_thinking"
	KindFinal         Kind = "final"
	KindError         Kind = "error"
)

// TraceEntry is one ordered, self-contained event. Depth is 0 at the
// top-level loop and +1 per recursion level; Iteration is the per-loop turn
// counter at that depth.
type TraceEntry struct {
	ID        string
	Kind      Kind
	Depth     int
	Iteration int
	Timestamp time.Time

	// Payload fields; only those relevant to Kind are populated.
	Content          string // LLM reply text, code, execution output, final answer, or error message
	Error            string
	Prompt           string // sub-query prompt
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ExecutionTimeMS  int64
}

// Logger is the Trace Logger: an ordered, append-only sequence of entries
// plus running call-count/usage accessors. A Logger is owned by exactly one
// top-level execute and is not safe to share across concurrent executes,
// but IS safe for the concurrent appends issued by llm_query_parallel
// sub-calls within a single execute.
type Logger struct {
	mu      sync.Mutex
	entries []TraceEntry

	// Verbose, when true, mirrors every appended entry to Mirror as a single
	// human-readable line.
	Verbose bool
	Mirror  io.Writer

	sinks []Sink
}

// Sink receives a copy of every appended entry for external aggregation
// (Kafka, Postgres, ClickHouse — see sinks.go). Append discards any error a
// sink returns; sink failures never fail the trace log itself.
type Sink interface {
	Write(entry TraceEntry) error
}

// New constructs an empty Logger.
func New() *Logger {
	return &Logger{}
}

// AddSink registers an external sink that receives every subsequent Append.
func (l *Logger) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Append records entry, assigning it an ID and timestamp if unset, and
// mirrors it to the verbose stream and any attached sinks.
func (l *Logger) Append(entry TraceEntry) TraceEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	verbose := l.Verbose
	mirror := l.Mirror
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	if verbose && mirror != nil {
		_, _ = io.WriteString(mirror, formatLine(entry)+"\n")
	}
	for _, s := range sinks {
		_ = s.Write(entry)
	}

	return entry
}

// GetEntries returns a snapshot of all recorded entries, in append order.
func (l *Logger) GetEntries() []TraceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TraceEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// GetCallCount returns the number of top-level (depth 0) LLM call entries
// recorded, matching the P1 invariant's usage.totalCalls.
func (l *Logger) GetCallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Kind == KindLLMCall && e.Depth == 0 {
			n++
		}
	}
	return n
}

// GetTotalUsage sums token counts across every LLM and sub-LLM call entry.
func (l *Logger) GetTotalUsage() (promptTokens, completionTokens, totalTokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Kind != KindLLMCall && e.Kind != KindSubLLMCall {
			continue
		}
		promptTokens += e.PromptTokens
		completionTokens += e.CompletionTokens
		totalTokens += e.TotalTokens
	}
	return
}

// Clear empties the log so a Logger may be reused across runs.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

func formatLine(e TraceEntry) string {
	prefix := "[trace] depth=" + strconv.Itoa(e.Depth) + " iter=" + strconv.Itoa(e.Iteration) + " "
	switch e.Kind {
	case KindError:
		return prefix + "error: " + e.Error
	case KindFinal:
		return prefix + "final: " + e.Content
	default:
		return prefix + string(e.Kind)
	}
}
