// Package openai adapts the OpenAI Chat Completions API (and
// OpenAI-compatible self-hosted servers) to the llm.Provider contract.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"manifold/internal/llm"
	"manifold/internal/observability"
)

// Config carries the subset of provider configuration the OpenAI client needs.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

type Client struct {
	sdk        sdk.Client
	model      string
	maxTokens  int64
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs an OpenAI-backed llm.Provider. The same client also talks to
// any OpenAI-compatible self-hosted server via BaseURL.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		sdk:        sdk.NewClient(opts...),
		model:      cfg.Model,
		maxTokens:  maxTokens,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: http.DefaultClient,
	}
}

func (c *Client) pickModel(model string) string {
	m := strings.TrimSpace(model)
	if m == "" {
		return c.model
	}
	return m
}

// Tokenizer returns a preflight tokenizer backed by the Responses API
// input_tokens endpoint, satisfying llm.TokenizableProvider.
func (c *Client) Tokenizer(cache *llm.TokenCache) llm.Tokenizer {
	return NewResponsesTokenizer(c, c.model, cache)
}

// SupportsTokenization reports whether this provider exposes a preflight
// token-counting endpoint.
func (c *Client) SupportsTokenization() bool {
	return true
}

// isThinkingModel reports whether model follows the "o<int>-*" reasoning
// model naming convention, which rejects max_tokens in favor of
// max_completion_tokens.
func isThinkingModel(model string) bool {
	m := strings.ToLower(model)
	if !strings.HasPrefix(m, "o") {
		return false
	}
	rest := m[1:]
	i := 0
	for ; i < len(rest) && rest[i] >= '0' && rest[i] <= '9'; i++ {
	}
	return i > 0 && i < len(rest) && rest[i] == '-'
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (llm.CompletionResult, error) {
	model := c.pickModel(opts.Model)

	ctx, span := llm.StartRequestSpan(ctx, "OpenAI Complete", model, len(messages))
	defer span.End()
	llm.LogRedactedPrompt(ctx, messages)
	log := observability.LoggerWithTrace(ctx)

	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: AdaptMessages(messages),
	}
	if opts.Temperature != 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if isThinkingModel(model) {
		params.MaxCompletionTokens = param.NewOpt(maxTokens)
	} else {
		params.MaxTokens = param.NewOpt(maxTokens)
	}
	if len(opts.StopSequences) > 0 {
		params.SetExtraFields(map[string]any{"stop": opts.StopSequences})
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("openai_complete_error")
		return llm.CompletionResult{}, fmt.Errorf("openai complete: %w", err)
	}
	if len(comp.Choices) == 0 {
		return llm.CompletionResult{}, fmt.Errorf("openai complete: no choices returned")
	}

	result := resultFromCompletion(comp)
	llm.LogRedactedResponse(ctx, comp)
	llm.RecordTokenAttributes(span, result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
	llm.RecordTokenMetrics(model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	log.Debug().Str("model", model).Dur("duration", dur).
		Int("prompt_tokens", result.Usage.PromptTokens).
		Int("completion_tokens", result.Usage.CompletionTokens).
		Msg("openai_complete_ok")

	return result, nil
}

func resultFromCompletion(comp *sdk.ChatCompletion) llm.CompletionResult {
	choice := comp.Choices[0]
	return llm.CompletionResult{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     int(comp.Usage.PromptTokens),
			CompletionTokens: int(comp.Usage.CompletionTokens),
			TotalTokens:      int(comp.Usage.TotalTokens),
		},
		FinishReason: finishReasonFromString(string(choice.FinishReason)),
	}
}

func finishReasonFromString(reason string) llm.FinishReason {
	switch reason {
	case "stop":
		return llm.FinishStop
	case "length":
		return llm.FinishLength
	case "content_filter":
		return llm.FinishContentFilter
	case "tool_calls", "function_call":
		return llm.FinishToolCalls
	default:
		return llm.FinishUnknown
	}
}
