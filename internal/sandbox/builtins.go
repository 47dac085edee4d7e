package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"manifold/internal/textsplitters"
)

// installBuiltins wires the curated surface a sandboxed script sees: print
// and the console.* aliases, the chunk/grep/len/slice/split/join/str text
// helpers, a capped setTimeout, and the two recursion entry points,
// llm_query and llm_query_parallel.
func installBuiltins(vm *goja.Runtime, s *Session) {
	vm.Set("print", func(call goja.FunctionCall) goja.Value {
		s.writeLine("", call.Arguments)
		return goja.Undefined()
	})

	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		s.writeLine("", call.Arguments)
		return goja.Undefined()
	})
	_ = console.Set("error", func(call goja.FunctionCall) goja.Value {
		s.writeLine("[error] ", call.Arguments)
		return goja.Undefined()
	})
	_ = console.Set("warn", func(call goja.FunctionCall) goja.Value {
		s.writeLine("[warn] ", call.Arguments)
		return goja.Undefined()
	})
	vm.Set("console", console)

	vm.Set("chunk", func(call goja.FunctionCall) goja.Value {
		text := call.Argument(0).String()
		size := 2000
		if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
			size = int(call.Argument(1).ToInteger())
		}
		chunks := textsplitters.Chunk(text, size)
		return vm.ToValue(chunks)
	})

	vm.Set("grep", func(call goja.FunctionCall) goja.Value {
		text := call.Argument(0).String()
		matched, err := grep(text, call.Argument(1))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(matched)
	})

	vm.Set("len", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(0)
		if goja.IsUndefined(v) || goja.IsNull(v) {
			return vm.ToValue(0)
		}
		obj := v.ToObject(vm)
		length := obj.Get("length")
		if length == nil || goja.IsUndefined(length) {
			return vm.ToValue(0)
		}
		return vm.ToValue(length.ToInteger())
	})

	vm.Set("slice", func(call goja.FunctionCall) goja.Value {
		return callMethod(vm, call.Argument(0), "slice", restArgs(call)...)
	})
	vm.Set("split", func(call goja.FunctionCall) goja.Value {
		return callMethod(vm, call.Argument(0), "split", restArgs(call)...)
	})
	vm.Set("join", func(call goja.FunctionCall) goja.Value {
		return callMethod(vm, call.Argument(0), "join", restArgs(call)...)
	})

	vm.Set("str", func(call goja.FunctionCall) goja.Value {
		pretty := len(call.Arguments) > 1 && call.Argument(1).ToBoolean()
		return vm.ToValue(Stringify(call.Argument(0), pretty))
	})

	vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("setTimeout: first argument must be a function"))
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
		if delay < 0 {
			delay = 0
		}
		extra := restArgs(call)
		if len(extra) > 0 {
			extra = extra[1:]
		}
		s.scheduleTimer(delay, func() {
			_, _ = fn(goja.Undefined(), extra...)
		})
		return vm.ToValue(0)
	})

	vm.Set("llm_query", func(call goja.FunctionCall) goja.Value {
		return s.jsLLMQuery(vm, call)
	})
	vm.Set("llm_query_parallel", func(call goja.FunctionCall) goja.Value {
		return s.jsLLMQueryParallel(vm, call)
	})
}

func restArgs(call goja.FunctionCall) []goja.Value {
	if len(call.Arguments) <= 1 {
		return nil
	}
	return call.Arguments[1:]
}

func callMethod(vm *goja.Runtime, v goja.Value, method string, args ...goja.Value) goja.Value {
	obj := v.ToObject(vm)
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		panic(vm.NewTypeError(fmt.Sprintf("%s: target has no %s method", method, method)))
	}
	res, err := fn(v, args...)
	if err != nil {
		panic(err)
	}
	return res
}

// writeLine appends a console-formatted line to the session's output
// buffer for the current Execute call.
func (s *Session) writeLine(prefix string, args []goja.Value) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = consoleFormat(a)
	}
	s.output.WriteString(prefix)
	s.output.WriteString(strings.Join(parts, " "))
	s.output.WriteString("\n")
}

func consoleFormat(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if isPrimitive(v) {
		if str, ok := v.Export().(string); ok {
			return str
		}
		return v.String()
	}
	return Stringify(v, false)
}

// runAsync executes work on its own goroutine, then delivers the result
// back onto the session's job queue so resolve/reject run on the goroutine
// that owns the Runtime. If the session is disposed before delivery, the
// result is dropped instead of leaking the goroutine.
func (s *Session) runAsync(work func() (string, error), resolve, reject func(interface{})) {
	go func() {
		result, err := work()
		job := func() {
			if err != nil {
				reject(err.Error())
				return
			}
			resolve(result)
		}
		select {
		case s.jobs <- job:
		case <-s.done:
		}
	}()
}

func (s *Session) runAsyncSlice(work func() ([]string, error), resolve, reject func(interface{})) {
	go func() {
		results, err := work()
		job := func() {
			if err != nil {
				reject(err.Error())
				return
			}
			resolve(results)
		}
		select {
		case s.jobs <- job:
		case <-s.done:
		}
	}()
}

// scheduleTimer fires fn on the job queue after delay, matching
// setTimeout's "runs on the same single-threaded turn as everything else"
// semantics despite using a real OS timer under the hood.
func (s *Session) scheduleTimer(delay time.Duration, fn func()) {
	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case s.jobs <- fn:
			case <-s.done:
			}
		case <-s.done:
		}
	}()
}

func (s *Session) jsLLMQuery(vm *goja.Runtime, call goja.FunctionCall) goja.Value {
	if s.cfg.LLMQuery == nil {
		panic(vm.NewGoError(fmt.Errorf("llm_query: no provider wired into this sandbox")))
	}
	prompt := call.Argument(0).String()
	subContext := s.cfg.Context
	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
		subContext = call.Argument(1).String()
	}
	promise, resolve, reject := vm.NewPromise()
	s.runAsync(func() (string, error) {
		return s.cfg.LLMQuery(s.execContext(), prompt, subContext)
	}, resolve, reject)
	return vm.ToValue(promise)
}

func (s *Session) jsLLMQueryParallel(vm *goja.Runtime, call goja.FunctionCall) goja.Value {
	if s.cfg.LLMQueryParallel == nil {
		panic(vm.NewGoError(fmt.Errorf("llm_query_parallel: no provider wired into this sandbox")))
	}
	queries := exportQueries(vm, call.Argument(0), s.cfg.Context)
	promise, resolve, reject := vm.NewPromise()
	s.runAsyncSlice(func() ([]string, error) {
		return s.cfg.LLMQueryParallel(s.execContext(), queries)
	}, resolve, reject)
	return vm.ToValue(promise)
}

func (s *Session) execContext() context.Context {
	if s.execCtx != nil {
		return s.execCtx
	}
	return context.Background()
}

// exportQueries accepts either an array of plain prompt strings or an array
// of {prompt, subContext} objects, defaulting subContext to the session's
// own context when omitted.
func exportQueries(vm *goja.Runtime, v goja.Value, defaultContext string) []Query {
	obj := v.ToObject(vm)
	length := int(obj.Get("length").ToInteger())
	out := make([]Query, 0, length)
	for i := 0; i < length; i++ {
		el := obj.Get(fmt.Sprintf("%d", i))
		if isPrimitive(el) {
			out = append(out, Query{Prompt: el.String(), SubContext: defaultContext})
			continue
		}
		elObj := el.ToObject(vm)
		q := Query{SubContext: defaultContext}
		if p := elObj.Get("prompt"); p != nil && !goja.IsUndefined(p) {
			q.Prompt = p.String()
		}
		if c := elObj.Get("subContext"); c != nil && !goja.IsUndefined(c) {
			q.SubContext = c.String()
		}
		out = append(out, q)
	}
	return out
}
