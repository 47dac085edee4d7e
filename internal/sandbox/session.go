// Package sandbox hosts the isolated, stateful code-execution environment
// the Executor runs model-generated JavaScript in. It is built
// on goja, an in-process ECMAScript VM: no subprocess, no filesystem or
// network access beyond what the curated builtin surface explicitly wires
// in, and a single Runtime instance persists across successive Execute
// calls so variable bindings survive between turns.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Query is one element of an llm_query_parallel fan-out: a prompt plus the
// sub-context it should be evaluated against.
type Query struct {
	Prompt     string
	SubContext string
}

// Config configures a Session. LLMQuery and LLMQueryParallel implement the
// depth-gating, budget-propagation, and error-to-sentinel-string contract
// of recursive sub-query resolution; the Session itself only wires the JS-facing callback shape
// and the async plumbing around it.
type Config struct {
	// Context is the value bound to the read-only `context` global.
	Context string
	// Timeout bounds each Execute call. Defaults to 10s; the caller is
	// responsible for enforcing the documented 1s floor.
	Timeout time.Duration

	LLMQuery         func(ctx context.Context, prompt, subContext string) (string, error)
	LLMQueryParallel func(ctx context.Context, queries []Query) ([]string, error)
}

// ExecutionResult is the outcome of one Execute call.
type ExecutionResult struct {
	Output          string
	Error           string
	ExecutionTimeMS int64
}

// Session is the Sandbox Session: a persistent goja.Runtime plus the
// curated builtin surface, exclusive to a single depth-0 execute.
type Session struct {
	cfg Config

	vm     *goja.Runtime
	output bytes.Buffer

	// jobs carries completions of host-initiated async work (llm_query
	// resolution, setTimeout firing) back onto the single goroutine that
	// owns vm. Buffered so late completions after a call has already
	// returned (timeout, or the outer promise already settled) don't block
	// their goroutine forever; done unblocks any such stragglers.
	jobs chan func()
	done chan struct{}

	disposed bool
	execCtx  context.Context
}

// New constructs a Session preloaded with cfg.Context and the curated
// builtin surface.
func New(cfg Config) *Session {
	s := &Session{
		cfg:  cfg,
		jobs: make(chan func(), 64),
		done: make(chan struct{}),
	}
	s.vm = newRuntime(cfg.Context, s)
	return s
}

// objectStringifyPatch overrides Object.prototype.toString so that
// concatenating a plain object with a string (`obj + ""`, template
// literals) yields a JSON-like rendering instead of "[object Object]".
// Array/Function/Error keep their own prototype's toString, since this
// only shadows the one every other object falls back to.
const objectStringifyPatch = `
Object.defineProperty(Object.prototype, "toString", {
	value: function() { return str(this); },
	writable: false,
	configurable: false,
	enumerable: false,
});
`

func newRuntime(sandboxContext string, s *Session) *goja.Runtime {
	vm := goja.New()
	installBuiltins(vm, s)
	if _, err := vm.RunString(objectStringifyPatch); err != nil {
		panic(fmt.Sprintf("sandbox: failed to install stringify patch: %v", err))
	}
	freezeGlobal(vm, "context", vm.ToValue(sandboxContext))
	for _, name := range []string{"Array", "Object", "String", "Number", "Math", "JSON", "RegExp", "Map", "Set", "Promise"} {
		if v := vm.Get(name); v != nil {
			freezeGlobal(vm, name, v)
		}
	}
	return vm
}

// freezeGlobal (re)defines a global property as non-writable,
// non-configurable so model code cannot replace it in a way that would
// leak into subsequent Execute calls on the same session.
func freezeGlobal(vm *goja.Runtime, name string, value goja.Value) {
	_ = vm.GlobalObject().DefineDataProperty(name, value, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// Execute compiles and evaluates code in the session scope. Top-level
// awaits are permitted: Execute pumps the session's job queue until the
// top-level promise settles or the timeout expires, and a background
// watcher interrupts the VM on timeout even if the running code never
// yields (a synchronous infinite loop). Errors (thrown or timed out) are
// returned as ExecutionResult.Error, never as a Go error — the model sees
// text, the loop never dies from sandboxed code.
func (s *Session) Execute(ctx context.Context, code string) ExecutionResult {
	if s.disposed {
		return ExecutionResult{Error: "sandbox session is disposed"}
	}

	start := time.Now()
	s.output.Reset()

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.execCtx = execCtx

	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	// Code runs as a genuine top-level script, not wrapped in a function:
	// goja supports top-level await natively, and top-level `var` must bind
	// to the session's global scope so it survives into the next Execute
	// call — wrapping in an async IIFE would scope every `var` declaration
	// to that function instead.
	prg, err := goja.Compile("sandbox.js", code, false)
	if err != nil {
		return ExecutionResult{Error: err.Error(), ExecutionTimeMS: elapsed()}
	}

	// Synchronous model code (e.g. an infinite `while (true) {}` with no
	// await) never reaches the job-pumping loop below, so runProgram can
	// block the calling goroutine indefinitely on its own. Race a watcher
	// against it that interrupts the VM the moment execCtx expires,
	// regardless of whether the running code ever yields.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-execCtx.Done():
			s.vm.Interrupt("execution timed out")
		case <-watchDone:
		}
	}()
	result, err := s.runProgram(prg)
	close(watchDone)
	s.vm.ClearInterrupt()
	if err != nil {
		if execCtx.Err() != nil {
			return ExecutionResult{Output: s.output.String(), Error: "execution timed out", ExecutionTimeMS: elapsed()}
		}
		return ExecutionResult{Output: s.output.String(), Error: err.Error(), ExecutionTimeMS: elapsed()}
	}

	promise, isPromise := result.Export().(*goja.Promise)
	if !isPromise {
		return ExecutionResult{Output: s.output.String(), ExecutionTimeMS: elapsed()}
	}

	for promise.State() == goja.PromiseStatePending {
		select {
		case <-execCtx.Done():
			return ExecutionResult{Output: s.output.String(), Error: "execution timed out", ExecutionTimeMS: elapsed()}
		case job := <-s.jobs:
			job()
		}
	}

	if promise.State() == goja.PromiseStateRejected {
		return ExecutionResult{Output: s.output.String(), Error: Stringify(promise.Result(), false), ExecutionTimeMS: elapsed()}
	}
	return ExecutionResult{Output: s.output.String(), ExecutionTimeMS: elapsed()}
}

// runProgram evaluates prg, converting a VM panic (goja raises these for
// some host-function-triggered errors) into a regular error rather than
// letting it escape to the Executor's goroutine.
func (s *Session) runProgram(prg *goja.Program) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.vm.RunProgram(prg)
}

// GetVariable reads a binding from the session scope. ok is false if the
// name is unbound or undefined.
func (s *Session) GetVariable(name string) (goja.Value, bool) {
	if s.disposed {
		return nil, false
	}
	v := s.vm.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return v, true
}

// SetVariable writes a binding into the session scope.
func (s *Session) SetVariable(name string, value interface{}) {
	if s.disposed {
		return
	}
	s.vm.Set(name, value)
}

// Reset clears user bindings by discarding the current Runtime and
// reinstalling the curated API and the session's original context.
func (s *Session) Reset() {
	if s.disposed {
		return
	}
	s.vm = newRuntime(s.cfg.Context, s)
}

// Dispose releases the session's resources. Idempotent.
func (s *Session) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	close(s.done)
}
