package manifold

import (
	"time"

	"manifold/internal/executor"
	"manifold/internal/llm"
)

// ExtendedThinking requests a provider reasoning channel, when the model
// supports it.
type ExtendedThinking struct {
	Enabled      bool
	BudgetTokens int64
}

// Options configures a Completion or Stream call. Model is the
// only required field; every other field defaults as documented.
type Options struct {
	// Model selects both pricing and provider dispatch. Required.
	Model string

	// MaxIterations caps top-level LLM turns. Default 20; a zero value is
	// treated as unset and becomes 20.
	MaxIterations int
	// MaxDepth caps llm_query/llm_query_parallel recursion. Default 1; a zero
	// value is treated as unset and becomes 1.
	MaxDepth int
	// SandboxTimeout bounds each sandbox.execute call. Default 10s.
	SandboxTimeout time.Duration
	// Temperature is forwarded to the LLM provider; 0 <= t <= 2. Default 0.
	Temperature float64

	// MaxCostUSD and MaxTokens are optional ceilings enforced across every
	// recursion depth. Zero means unset.
	MaxCostUSD float64
	MaxTokens  int64

	// Verbose mirrors each trace entry to standard error as one line when
	// it is appended.
	Verbose bool

	ExtendedThinking *ExtendedThinking

	ImageBase64   string
	ImageMIMEType string
}

func (o Options) toExecutorOptions() executor.Options {
	var thinking *llm.ExtendedThinking
	if o.ExtendedThinking != nil {
		thinking = &llm.ExtendedThinking{Enabled: o.ExtendedThinking.Enabled, BudgetTokens: o.ExtendedThinking.BudgetTokens}
	}
	return executor.Options{
		Model:            o.Model,
		MaxIterations:    o.MaxIterations,
		MaxDepth:         o.MaxDepth,
		SandboxTimeout:   o.SandboxTimeout,
		Temperature:      o.Temperature,
		MaxCostUSD:       o.MaxCostUSD,
		MaxTokens:        o.MaxTokens,
		Verbose:          o.Verbose,
		ExtendedThinking: thinking,
		ImageBase64:      o.ImageBase64,
		ImageMIMEType:    o.ImageMIMEType,
	}
}
