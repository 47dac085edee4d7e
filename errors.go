package manifold

// Code identifies the kind of a fatal rlm error, per the taxonomy in
// Kinds that never leave the sandbox (sandbox timeout,
// Sandbox-execution, Max-depth) are not represented here — they are
// reported to the model as text, never raised to the caller.
type Code string

const (
	// CodeConfiguration marks an invalid option value, e.g. maxIterations < 1,
	// temperature out of range, or a missing provider API key. Raised
	// synchronously at construction.
	CodeConfiguration Code = "configuration"
	// CodeLLM marks a network/provider error after retries are exhausted.
	// Fatal to the current execute.
	CodeLLM Code = "llm_error"
	// CodeMaxIterations marks the loop exhausting its iteration budget
	// without reaching a terminator.
	CodeMaxIterations Code = "max_iterations"
	// CodeBudgetExceeded marks a cost or token ceiling trip. Propagates from
	// sub-queries too.
	CodeBudgetExceeded Code = "budget_exceeded"
	// CodeCancelled marks an external cancellation signal aborting the run.
	CodeCancelled Code = "cancelled"
)

// Error is the tagged error the core raises on any fatal exit. It carries
// a code/message pair plus whatever trace and usage had
// accumulated before the failure, so a caller that only wants the final
// text can still recover what happened up to that point.
type Error struct {
	Code    Code
	Message string

	// Trace and Usage are the partial results accumulated before the
	// failure, when available. Nil/zero when the error occurred before a
	// sandbox session existed (e.g. a Configuration error).
	Trace []TraceEntry
	Usage UsageSummary

	// Err is the underlying error, if any (network failure, context
	// cancellation, ...). May be nil.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newErrorWithState(code Code, message string, err error, trace []TraceEntry, usage UsageSummary) *Error {
	return &Error{Code: code, Message: message, Err: err, Trace: trace, Usage: usage}
}
