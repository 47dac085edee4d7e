// Package llm defines the portable LLM client contract the executor depends
// on: a single-shot completion call, independent of provider.
package llm

import "context"

// Message is one turn of conversation history. The core never sends tool
// schemas or expects tool-call responses; roles are system, user, assistant.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// FinishReason enumerates why a completion stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishUnknown       FinishReason = "unknown"
)

// Usage reports token accounting for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResult is what a Provider returns for one turn.
type CompletionResult struct {
	Content      string
	Thinking     string // extended-thinking text, when the provider/model supports it
	Usage        Usage
	FinishReason FinishReason
}

// ExtendedThinking requests a provider reasoning channel, when supported.
type ExtendedThinking struct {
	Enabled      bool
	BudgetTokens int64
}

// CompletionOptions configures a single Complete call.
type CompletionOptions struct {
	Model            string
	Temperature      float64
	MaxTokens        int64
	StopSequences    []string
	Thinking         *ExtendedThinking
	ImageBase64      string // optional inline image payload (mime + data combined by caller)
	ImageMIMEType    string
}

// Provider is the capability contract required of an LLM client.
// Implementations must be safe for concurrent use: llm_query_parallel issues
// concurrent Complete calls against the same Provider instance.
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (CompletionResult, error)
}
