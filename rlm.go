// Package manifold is the Recursive Language Model executor's public API:
// construct an RLM against an llm.Provider, then call Completion or Stream
// to run the agent loop over sandboxed code execution.
package manifold

import (
	"context"
	"errors"

	"manifold/internal/costtracker"
	"manifold/internal/executor"
	"manifold/internal/llm"
)

// StreamEvent, EventType and its payloads are re-exported so callers never
// need to import the internal executor package directly.
type (
	StreamEvent        = executor.StreamEvent
	EventType          = executor.EventType
	StartPayload       = executor.StartPayload
	ThinkingPayload    = executor.ThinkingPayload
	CodePayload        = executor.CodePayload
	CodeOutputPayload  = executor.CodeOutputPayload
	SubQueryPayload    = executor.SubQueryPayload
	SubResponsePayload = executor.SubResponsePayload
	FinalPayload       = executor.FinalPayload
	ErrorPayload       = executor.ErrorPayload
	DonePayload        = executor.DonePayload
)

const (
	EventStart       = executor.EventStart
	EventThinking    = executor.EventThinking
	EventCode        = executor.EventCode
	EventCodeOutput  = executor.EventCodeOutput
	EventSubQuery    = executor.EventSubQuery
	EventSubResponse = executor.EventSubResponse
	EventFinal       = executor.EventFinal
	EventError       = executor.EventError
	EventDone        = executor.EventDone
)

// RLMResult is what a completed Completion or Stream call returns.
type RLMResult struct {
	Response        string
	Trace           []TraceEntry
	Usage           UsageSummary
	ExecutionTimeMS int64
}

// RLM drives the agent loop against a single LLM provider. A value is safe
// for concurrent Completion/Stream calls; each call gets its own sandbox,
// trace logger, and cost tracker.
type RLM struct {
	exec *executor.Executor
}

// New constructs an RLM against provider, using pricing for cost
// estimation (nil falls back to the built-in default pricing table).
func New(provider llm.Provider, pricing costtracker.PricingTable) *RLM {
	return &RLM{exec: executor.New(provider, pricing)}
}

// WithDistributedCeiling attaches a shared budget ceiling (e.g. Redis-backed)
// so multiple RLM instances enforce one cost/token cap together.
func (r *RLM) WithDistributedCeiling(d costtracker.DistributedCeiling, key string) *RLM {
	r.exec = r.exec.WithDistributedCeiling(d, key)
	return r
}

// Completion runs the agent loop to completion and returns the final
// result.
func (r *RLM) Completion(ctx context.Context, query, taskContext string, opts Options) (RLMResult, error) {
	result, err := r.exec.Execute(ctx, query, taskContext, opts.toExecutorOptions())
	if err != nil {
		return RLMResult{}, convertError(err)
	}
	return RLMResult{
		Response:        result.Response,
		Trace:           result.Trace,
		Usage:           result.Usage,
		ExecutionTimeMS: result.ExecutionTimeMS,
	}, nil
}

// Stream runs the agent loop, invoking emit for every significant state
// transition.
func (r *RLM) Stream(ctx context.Context, query, taskContext string, opts Options, emit func(StreamEvent)) (RLMResult, error) {
	result, err := r.exec.Stream(ctx, query, taskContext, opts.toExecutorOptions(), emit)
	if err != nil {
		return RLMResult{}, convertError(err)
	}
	return RLMResult{
		Response:        result.Response,
		Trace:           result.Trace,
		Usage:           result.Usage,
		ExecutionTimeMS: result.ExecutionTimeMS,
	}, nil
}

// convertError maps the internal executor's tagged error onto the public
// Error type so callers never need to import internal/executor to use
// errors.As against it.
func convertError(err error) error {
	var execErr *executor.Error
	if errors.As(err, &execErr) {
		return newErrorWithState(Code(execErr.Code), execErr.Message, execErr.Err, execErr.Trace, execErr.Usage)
	}
	return err
}
