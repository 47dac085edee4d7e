// Package costtracker accumulates LLM token usage and derived USD cost for
// a single top-level execute, enforcing optional cost/token ceilings shared
// across every recursion depth.
package costtracker

import (
	"context"
	"fmt"
	"sync"
)

// Usage is one LLM call's token counts, as reported by llm.CompletionResult.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Summary is the Cost Tracker's accumulated totals at a point in time.
type Summary struct {
	TotalPromptTokens     int
	TotalCompletionTokens int
	TotalTokens           int
	EstimatedCostUSD      float64
	CallCount             int
}

// Ceiling holds the optional budget limits. A zero field means "unset".
// MaxTokens is int64 to match Options.MaxTokens/config.ExecutorConfig.MaxTokens
// end to end.
type Ceiling struct {
	MaxCostUSD float64
	MaxTokens  int64
}

// BudgetExceededError is raised when a recorded usage pushes the running
// total past a configured ceiling. It is a distinct type (rather than a
// sentinel value) so callers can carry the tripped ceiling's details.
type BudgetExceededError struct {
	Ceiling Ceiling
	Summary Summary
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: cost=$%.4f tokens=%d (ceiling cost=$%.4f tokens=%d)",
		e.Summary.EstimatedCostUSD, e.Summary.TotalTokens, e.Ceiling.MaxCostUSD, e.Ceiling.MaxTokens)
}

// DistributedCeiling is implemented by an out-of-process ceiling cache (see
// RedisCeiling) so multiple executor instances can share a single budget.
// Optional: a Tracker with a nil DistributedCeiling only enforces its own
// in-process ceiling.
type DistributedCeiling interface {
	// AddAndCheck atomically adds costUSD/tokens to the shared ledger keyed
	// by key and reports whether the combined total now exceeds ceiling.
	AddAndCheck(ctx context.Context, key string, costUSD float64, tokens int, ceiling Ceiling) (exceeded bool, totals Summary, err error)
}

// Tracker is the Cost Tracker. Usage is normally mutated only from the
// single event-loop turn that owns an execute, but llm_query_parallel fans
// sub-queries out across real goroutines, so RecordUsage is safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	pricing PricingTable
	ceiling Ceiling
	summary Summary

	distributed    DistributedCeiling
	distributedKey string
}

// New constructs a Tracker with the given pricing table and ceilings.
func New(pricing PricingTable, ceiling Ceiling) *Tracker {
	if pricing == nil {
		pricing = DefaultPricingTable()
	}
	return &Tracker{pricing: pricing, ceiling: ceiling}
}

// WithDistributedCeiling attaches a shared ceiling cache keyed by key. Every
// RecordUsage call also updates the distributed ledger and fails closed if
// the shared total trips the ceiling, even when the local total has not.
func (t *Tracker) WithDistributedCeiling(d DistributedCeiling, key string) *Tracker {
	t.distributed = d
	t.distributedKey = key
	return t
}

// RecordUsage accumulates usage for model and checks the configured
// ceilings. depth is carried only for trace correlation by the caller; the
// Tracker itself does not discriminate by depth (budgets are global per
// budgets are enforced globally, not per depth).
func (t *Tracker) RecordUsage(ctx context.Context, model string, usage Usage, depth int) error {
	t.mu.Lock()
	t.summary.TotalPromptTokens += usage.PromptTokens
	t.summary.TotalCompletionTokens += usage.CompletionTokens
	t.summary.TotalTokens += usage.TotalTokens
	t.summary.CallCount++
	t.summary.EstimatedCostUSD += t.pricing.CostUSD(model, usage.PromptTokens, usage.CompletionTokens)
	summary := t.summary
	ceiling := t.ceiling
	t.mu.Unlock()

	if ceiling.MaxCostUSD > 0 && summary.EstimatedCostUSD > ceiling.MaxCostUSD {
		return &BudgetExceededError{Ceiling: ceiling, Summary: summary}
	}
	if ceiling.MaxTokens > 0 && int64(summary.TotalTokens) > ceiling.MaxTokens {
		return &BudgetExceededError{Ceiling: ceiling, Summary: summary}
	}

	if t.distributed != nil {
		costUSD := t.pricing.CostUSD(model, usage.PromptTokens, usage.CompletionTokens)
		exceeded, totals, err := t.distributed.AddAndCheck(ctx, t.distributedKey, costUSD, usage.TotalTokens, ceiling)
		if err != nil {
			return fmt.Errorf("distributed ceiling check: %w", err)
		}
		if exceeded {
			return &BudgetExceededError{Ceiling: ceiling, Summary: totals}
		}
	}

	return nil
}

// Summary returns the current accumulated totals.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Reset zeros the accumulator so a Tracker may be reused across runs.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = Summary{}
}
