// Package executor is the RLM agent loop: it drives an LLM provider
// through a sequence of sandboxed code-execution turns until the model
// emits a FINAL/FINAL_VAR terminator, and wires the recursive llm_query/
// llm_query_parallel callbacks sandboxed code can invoke.
package executor

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"manifold/internal/costtracker"
	"manifold/internal/llm"
	"manifold/internal/parser"
	"manifold/internal/sandbox"
	"manifold/internal/tracelog"
)

// Result is what a completed Execute/Stream call returns.
type Result struct {
	Response        string
	Trace           []tracelog.TraceEntry
	Usage           costtracker.Summary
	ExecutionTimeMS int64
}

// Executor owns the LLM provider and pricing table shared across calls.
// A single Executor is safe for concurrent Execute/Stream calls; each call
// gets its own logger, cost tracker, and sandbox session.
type Executor struct {
	provider       llm.Provider
	pricing        costtracker.PricingTable
	distributed    costtracker.DistributedCeiling
	distributedKey string
}

// New constructs an Executor. pricing may be nil to fall back to
// costtracker.DefaultPricingTable().
func New(provider llm.Provider, pricing costtracker.PricingTable) *Executor {
	return &Executor{provider: provider, pricing: pricing}
}

// WithDistributedCeiling attaches a shared budget ceiling (e.g. Redis) so
// multiple Executor instances can enforce one cost/token cap together.
func (e *Executor) WithDistributedCeiling(d costtracker.DistributedCeiling, key string) *Executor {
	e.distributed = d
	e.distributedKey = key
	return e
}

// Execute runs the agent loop to completion and returns the final result.
func (e *Executor) Execute(ctx context.Context, query, taskContext string, opts Options) (Result, error) {
	return e.run(ctx, query, taskContext, opts, nil)
}

// Stream runs the agent loop, invoking emit for every significant state
// transition in addition to returning the final Result.
func (e *Executor) Stream(ctx context.Context, query, taskContext string, opts Options, emit func(StreamEvent)) (Result, error) {
	return e.run(ctx, query, taskContext, opts, emit)
}

func (e *Executor) run(ctx context.Context, query, taskContext string, opts Options, emit func(StreamEvent)) (Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return Result{}, newConfigError(err)
	}

	logger := tracelog.New()
	logger.Verbose = opts.Verbose
	logger.Mirror = os.Stderr
	tracker := costtracker.New(e.pricing, costtracker.Ceiling{MaxCostUSD: opts.MaxCostUSD, MaxTokens: opts.MaxTokens})
	if e.distributed != nil {
		tracker = tracker.WithDistributedCeiling(e.distributed, e.distributedKey)
	}

	r := &run{executor: e, opts: opts, logger: logger, tracker: tracker, emit: emit}
	return r.loop(ctx, query, taskContext)
}

var bareIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// run holds the per-call state of one top-level execute: its logger, cost
// tracker, and the sandbox's recursion callbacks all close over it.
type run struct {
	executor *Executor
	opts     Options
	logger   *tracelog.Logger
	tracker  *costtracker.Tracker
	emit     func(StreamEvent)

	mu       sync.Mutex
	fatalErr *Error
}

func (r *run) setFatal(e *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatalErr == nil {
		r.fatalErr = e
	}
}

func (r *run) getFatal() *Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatalErr
}

func (r *run) emitEvent(ev StreamEvent) {
	if r.emit != nil {
		r.emit(ev)
	}
}

func (r *run) loop(ctx context.Context, query, taskContext string) (Result, error) {
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	windowTokens, windowKnown := llm.ContextSize(r.opts.Model)
	r.emitEvent(StreamEvent{Type: EventStart, Start: &StartPayload{
		Query:               query,
		ContextLength:       len([]rune(taskContext)),
		ContextWindowTokens: windowTokens,
		ContextWindowKnown:  windowKnown,
	}})

	sess := sandbox.New(sandbox.Config{
		Context:          taskContext,
		Timeout:          r.opts.SandboxTimeout,
		LLMQuery:         r.subQuery,
		LLMQueryParallel: r.subQueryParallel,
	})
	defer sess.Dispose()

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: seedUserMessage(query, taskContext)},
	}

	for iteration := 1; iteration <= r.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			e := r.buildError(ErrCancelled, "context cancelled", err)
			r.emitEvent(StreamEvent{Type: EventError, Error: &ErrorPayload{Message: e.Message, Code: string(e.Code)}})
			return Result{}, e
		}

		completion, err := r.executor.provider.Complete(ctx, messages, llm.CompletionOptions{
			Model:         r.opts.Model,
			Temperature:   r.opts.Temperature,
			Thinking:      r.opts.ExtendedThinking,
			ImageBase64:   r.opts.ImageBase64,
			ImageMIMEType: r.opts.ImageMIMEType,
		})
		if err != nil {
			e := r.buildError(ErrLLM, err.Error(), err)
			r.emitEvent(StreamEvent{Type: EventError, Error: &ErrorPayload{Message: e.Message, Code: string(e.Code)}})
			return Result{}, e
		}

		if rerr := r.tracker.RecordUsage(ctx, r.opts.Model, costtracker.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}, 0); rerr != nil {
			e := r.buildError(ErrBudgetExceeded, rerr.Error(), rerr)
			r.emitEvent(StreamEvent{Type: EventError, Error: &ErrorPayload{Message: e.Message, Code: string(e.Code)}})
			return Result{}, e
		}

		if completion.Thinking != "" && r.opts.ExtendedThinking != nil && r.opts.ExtendedThinking.Enabled {
			r.logger.Append(tracelog.TraceEntry{Kind: tracelog.KindExtendedThink, Depth: 0, Iteration: iteration, Content: completion.Thinking})
			r.emitEvent(StreamEvent{Type: EventThinking, Thinking: &ThinkingPayload{Content: completion.Thinking, Iteration: iteration}})
		}

		r.logger.Append(tracelog.TraceEntry{
			Kind: tracelog.KindLLMCall, Depth: 0, Iteration: iteration,
			Content:          completion.Content,
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		})

		parsed := parser.Parse(completion.Content)

		if parsed.HasCode {
			r.emitEvent(StreamEvent{Type: EventCode, Code: &CodePayload{Code: parsed.Code, Iteration: iteration}})

			execResult := sess.Execute(ctx, parsed.Code)

			if fatal := r.getFatal(); fatal != nil {
				r.emitEvent(StreamEvent{Type: EventError, Error: &ErrorPayload{Message: fatal.Message, Code: string(fatal.Code)}})
				return Result{}, fatal
			}

			r.logger.Append(tracelog.TraceEntry{
				Kind: tracelog.KindCodeExecution, Depth: 0, Iteration: iteration,
				Content: execResult.Output, Error: execResult.Error, ExecutionTimeMS: execResult.ExecutionTimeMS,
			})
			r.emitEvent(StreamEvent{Type: EventCodeOutput, CodeOutput: &CodeOutputPayload{Output: execResult.Output, Error: execResult.Error, Iteration: iteration}})

			messages = append(messages, llm.Message{Role: "assistant", Content: completion.Content})
			messages = append(messages, llm.Message{Role: "user", Content: formatExecutionMessage(execResult)})
		}

		if parsed.Final != nil {
			response := r.resolveFinal(sess, *parsed.Final)
			r.logger.Append(tracelog.TraceEntry{Kind: tracelog.KindFinal, Depth: 0, Iteration: iteration, Content: response})
			r.emitEvent(StreamEvent{Type: EventFinal, Final: &FinalPayload{Response: response, Method: string(parsed.Final.Kind)}})

			summary := r.tracker.Summary()
			result := Result{Response: response, Trace: r.logger.GetEntries(), Usage: summary, ExecutionTimeMS: elapsed()}
			r.emitEvent(StreamEvent{Type: EventDone, Done: &DonePayload{Usage: summary, ExecutionTimeMS: result.ExecutionTimeMS}})
			return result, nil
		}

		if !parsed.HasCode {
			messages = append(messages, llm.Message{Role: "assistant", Content: completion.Content})
			messages = append(messages, llm.Message{Role: "user", Content: nudgeMessage})
		}
	}

	e := r.buildError(ErrMaxIterations, "exceeded maxIterations without reaching a final answer", nil)
	r.emitEvent(StreamEvent{Type: EventError, Error: &ErrorPayload{Message: e.Message, Code: string(e.Code)}})
	return Result{}, e
}

// resolveFinal implements the FINAL/FINAL_VAR resolution
// rules, run only after the same turn's code (if any) has already executed.
func (r *run) resolveFinal(sess *sandbox.Session, final parser.Final) string {
	switch final.Kind {
	case parser.FinalVar:
		if v, ok := sess.GetVariable(final.Value); ok {
			return sandbox.StringifyFinal(v)
		}
		return "undefined"
	case parser.FinalText:
		if bareIdentifier.MatchString(final.Value) {
			if v, ok := sess.GetVariable(final.Value); ok {
				return sandbox.StringifyFinal(v)
			}
		}
		return final.Value
	default:
		return ""
	}
}

func formatExecutionMessage(res sandbox.ExecutionResult) string {
	var b strings.Builder
	if res.Output != "" {
		b.WriteString("Output:\n")
		b.WriteString(res.Output)
	}
	if res.Error != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Error:\n")
		b.WriteString(res.Error)
	}
	if b.Len() == 0 {
		return "Code executed successfully with no output."
	}
	return b.String()
}
