package manifold

import (
	"manifold/internal/costtracker"
	"manifold/internal/tracelog"
)

// TraceEntry is re-exported at the package root so callers of Completion
// and Stream can inspect Error.Trace without importing the internal
// tracelog package directly.
type TraceEntry = tracelog.TraceEntry

// UsageSummary is re-exported at the package root for the same reason;
// RLMResult.Usage and Error.Usage are both this type.
type UsageSummary = costtracker.Summary
