package executor

import "manifold/internal/costtracker"

// EventType enumerates the streaming executor's event vocabulary. Events
// are ordered; a terminated stream always ends with either final then
// done, or error alone.
type EventType string

const (
	EventStart       EventType = "start"
	EventThinking    EventType = "thinking"
	EventCode        EventType = "code"
	EventCodeOutput  EventType = "code_output"
	EventSubQuery    EventType = "sub_query"
	EventSubResponse EventType = "sub_response"
	EventFinal       EventType = "final"
	EventError       EventType = "error"
	EventDone        EventType = "done"
)

// StreamEvent is one emitted transition; exactly one payload field is set,
// matching Type.
type StreamEvent struct {
	Type EventType

	Start       *StartPayload
	Thinking    *ThinkingPayload
	Code        *CodePayload
	CodeOutput  *CodeOutputPayload
	SubQuery    *SubQueryPayload
	SubResponse *SubResponsePayload
	Final       *FinalPayload
	Error       *ErrorPayload
	Done        *DonePayload
}

type StartPayload struct {
	Query         string
	ContextLength int

	// ContextWindowTokens is the target model's approximate context
	// window, and ContextWindowKnown reports whether that figure came
	// from a known mapping/override rather than a conservative guess.
	ContextWindowTokens int
	ContextWindowKnown  bool
}

type ThinkingPayload struct {
	Content   string
	Iteration int
}

type CodePayload struct {
	Code      string
	Iteration int
}

type CodeOutputPayload struct {
	Output    string
	Error     string
	Iteration int
}

type SubQueryPayload struct {
	Prompt           string
	SubContextLength int
	Depth            int
}

type SubResponsePayload struct {
	Response string
	Depth    int
}

type FinalPayload struct {
	Response string
	// Method is "FINAL" or "FINAL_VAR".
	Method string
}

type ErrorPayload struct {
	Message string
	Code    string
}

type DonePayload struct {
	Usage           costtracker.Summary
	ExecutionTimeMS int64
}
