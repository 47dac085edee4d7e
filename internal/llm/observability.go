package llm

import (
	"context"
	"encoding/json"
	"sync"

	"manifold/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu                   sync.RWMutex
	enablePayloadLogging = false
	truncateBytes        = 0 // 0 means no truncation
)

var (
	tokenOnce         sync.Once
	promptCounter     otelmetric.Int64Counter
	completionCounter otelmetric.Int64Counter
)

// ensureTokenInstruments lazily initializes OTel instruments once a provider
// has been installed (InitOTel should run before first use in normal startup).
func ensureTokenInstruments() {
	tokenOnce.Do(func() {
		m := otel.Meter("internal/llm")
		promptCounter, _ = m.Int64Counter("llm.prompt_tokens", otelmetric.WithDescription("Cumulative prompt tokens by model"))
		completionCounter, _ = m.Int64Counter("llm.completion_tokens", otelmetric.WithDescription("Cumulative completion tokens by model"))
	})
}

// RecordTokenMetrics records token usage for a model as OTel counter
// instruments. Aggregation/windowing over these counts is the embedding
// host's concern (a metrics dashboard is explicitly out of scope here).
func RecordTokenMetrics(model string, promptTokens, completionTokens int) {
	if model == "" || (promptTokens == 0 && completionTokens == 0) {
		return
	}
	ensureTokenInstruments()
	ctx := context.Background()
	if promptCounter != nil && promptTokens > 0 {
		promptCounter.Add(ctx, int64(promptTokens), otelmetric.WithAttributes(attribute.String("llm.model", model)))
	}
	if completionCounter != nil && completionTokens > 0 {
		completionCounter.Add(ctx, int64(completionTokens), otelmetric.WithAttributes(attribute.String("llm.model", model)))
	}
}

// ConfigureLogging sets global behavior for prompt/response logging.
// Call this once at startup with values from the main config.
func ConfigureLogging(enable bool, truncate int) {
	mu.Lock()
	defer mu.Unlock()
	enablePayloadLogging = enable
	truncateBytes = truncate
}

// StartRequestSpan starts a tracer span for an LLM request and sets common attributes.
func StartRequestSpan(ctx context.Context, operation string, model string, messages int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("internal/llm").Start(ctx, operation)
	span.SetAttributes(attribute.String("llm.model", model), attribute.Int("llm.messages", messages))
	return ctx, span
}

func shouldLog() (bool, int) {
	mu.RLock()
	defer mu.RUnlock()
	return enablePayloadLogging, truncateBytes
}

// LogRedactedPrompt logs a redacted copy of the prompt/messages at debug level.
// If global logging is disabled this is a no-op. Very large payloads are
// truncated according to configuration.
func LogRedactedPrompt(ctx context.Context, msgs []Message) {
	ok, t := shouldLog()
	if !ok {
		return
	}
	log := observability.LoggerWithTrace(ctx)
	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	red := observability.RedactJSON(b)
	if t > 0 && len(red) > t {
		if pb, err := json.Marshal(map[string]any{"truncated": true, "preview": string(red[:t])}); err == nil {
			tmp := log.With().RawJSON("prompt", pb).Logger()
			tmp.Debug().Msg("llm_request")
			return
		}
	}
	tmp := log.With().RawJSON("prompt", red).Logger()
	tmp.Debug().Msg("llm_request")
}

// LogRedactedResponse logs a redacted copy of the response payload at debug level.
func LogRedactedResponse(ctx context.Context, resp any) {
	ok, t := shouldLog()
	if !ok {
		return
	}
	log := observability.LoggerWithTrace(ctx)
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	red := observability.RedactJSON(b)
	if t > 0 && len(red) > t {
		if pb, err := json.Marshal(map[string]any{"truncated": true, "preview": string(red[:t])}); err == nil {
			tmp := log.With().RawJSON("response", pb).Logger()
			tmp.Debug().Msg("llm_response")
			return
		}
	}
	tmp := log.With().RawJSON("response", red).Logger()
	tmp.Debug().Msg("llm_response")
}

// RecordTokenAttributes sets token count attributes on the provided span.
func RecordTokenAttributes(span trace.Span, promptTokens, completionTokens, totalTokens int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", promptTokens),
		attribute.Int("llm.completion_tokens", completionTokens),
		attribute.Int("llm.total_tokens", totalTokens),
	)
}
