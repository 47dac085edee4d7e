package executor

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"manifold/internal/costtracker"
	"manifold/internal/llm"
	"manifold/internal/sandbox"
	"manifold/internal/tracelog"
)

// subDepth is the depth sandboxed code's llm_query/llm_query_parallel
// calls execute at. The agent loop itself is always depth 0; a sub-query
// is a one-shot, non-agentic completion with no sandbox of its own, so
// there is exactly one level of recursion below the top loop regardless
// of how many times llm_query is called.
const subDepth = 1

// subQuery implements the llm_query(prompt, subContext) contract: depth
// gating, a one-shot reduced-prompt completion, usage accounting against
// the shared tracker, and the error-to-sentinel-string contract — except
// for budget-exceeded, which must propagate fatally even from here, so it
// is stashed on the run and surfaced by loop() right after sandbox.Execute
// returns rather than thrown across the sandbox boundary.
func (r *run) subQuery(ctx context.Context, prompt, subContext string) (string, error) {
	if subDepth > r.opts.MaxDepth {
		return fmt.Sprintf("[Error: Maximum recursion depth (%d) exceeded]", r.opts.MaxDepth), nil
	}

	r.emitEvent(StreamEvent{Type: EventSubQuery, SubQuery: &SubQueryPayload{
		Prompt: prompt, SubContextLength: len([]rune(subContext)), Depth: subDepth,
	}})

	messages := []llm.Message{
		{Role: "system", Content: subQuerySystemPrompt},
		{Role: "user", Content: subContext + "\n\n" + prompt},
	}

	completion, err := r.executor.provider.Complete(ctx, messages, llm.CompletionOptions{
		Model:       r.opts.Model,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		r.logger.Append(tracelog.TraceEntry{Kind: tracelog.KindError, Depth: subDepth, Error: err.Error(), Prompt: prompt})
		return fmt.Sprintf("[Error: %s]", err.Error()), nil
	}

	if rerr := r.tracker.RecordUsage(ctx, r.opts.Model, costtracker.Usage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	}, subDepth); rerr != nil {
		var budgetErr *costtracker.BudgetExceededError
		if errors.As(rerr, &budgetErr) {
			r.setFatal(r.buildError(ErrBudgetExceeded, rerr.Error(), rerr))
			return "[Error: budget exceeded]", nil
		}
		return fmt.Sprintf("[Error: %s]", rerr.Error()), nil
	}

	r.logger.Append(tracelog.TraceEntry{
		Kind: tracelog.KindSubLLMCall, Depth: subDepth, Prompt: prompt,
		Content:          completion.Content,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	})
	r.emitEvent(StreamEvent{Type: EventSubResponse, SubResponse: &SubResponsePayload{Response: completion.Content, Depth: subDepth}})

	return completion.Content, nil
}

// subQueryParallel fans queries out concurrently, preserving input order in
// the result slice regardless of completion order.
func (r *run) subQueryParallel(ctx context.Context, queries []sandbox.Query) ([]string, error) {
	results := make([]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			result, err := r.subQuery(gctx, q.Prompt, q.SubContext)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
