// Package anthropic adapts the Anthropic Messages API to the llm.Provider
// contract: a single-shot Complete call, no tool calling, optional extended
// thinking.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"manifold/internal/llm"
	"manifold/internal/observability"
)

// Config carries the subset of provider configuration the Anthropic client needs.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
}

type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// thinkingBudget is the default token budget reserved for extended thinking
// when the caller enables it without specifying BudgetTokens.
const thinkingBudget int64 = 1024

// New constructs an Anthropic-backed llm.Provider.
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
		sdk:       anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Tokenizer returns a preflight tokenizer backed by the Messages API
// count_tokens endpoint, satisfying llm.TokenizableProvider.
func (c *Client) Tokenizer(cache *llm.TokenCache) llm.Tokenizer {
	return NewMessagesTokenizer(c.sdk, c.model, cache)
}

// SupportsTokenization reports whether this provider exposes a preflight
// token-counting endpoint.
func (c *Client) SupportsTokenization() bool {
	return true
}

func (c *Client) pickModel(model string) string {
	m := strings.TrimSpace(model)
	if m == "" {
		return c.model
	}
	return m
}

// shouldIncludeThoughtSummaries reports whether the given model family
// supports the extended-thinking content block.
func shouldIncludeThoughtSummaries(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, frag := range []string{"claude-sonnet-4-5", "claude-haiku-4-5", "claude-opus-4-5", "claude-sonnet-4", "claude-opus-4"} {
		if strings.Contains(m, frag) {
			return true
		}
	}
	return false
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (llm.CompletionResult, error) {
	model := c.pickModel(opts.Model)

	ctx, span := llm.StartRequestSpan(ctx, "Anthropic Complete", model, len(messages))
	defer span.End()
	llm.LogRedactedPrompt(ctx, messages)
	log := observability.LoggerWithTrace(ctx)

	msgParams, system := adaptMessages(messages)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgParams,
		MaxTokens: maxTokens,
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	params.Temperature = anthropic.Float(opts.Temperature)

	includeThinking := opts.Thinking != nil && opts.Thinking.Enabled && shouldIncludeThoughtSummaries(model)
	if includeThinking {
		budget := opts.Thinking.BudgetTokens
		if budget <= 0 {
			budget = thinkingBudget
		}
		if maxTokens <= budget {
			maxTokens = budget + c.maxTokens
			params.MaxTokens = maxTokens
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("anthropic_complete_error")
		return llm.CompletionResult{}, fmt.Errorf("anthropic complete: %w", err)
	}

	result := messageFromResponse(resp)
	llm.LogRedactedResponse(ctx, resp)
	llm.RecordTokenAttributes(span, result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
	llm.RecordTokenMetrics(model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	log.Debug().Str("model", model).Dur("duration", dur).
		Int("prompt_tokens", result.Usage.PromptTokens).
		Int("completion_tokens", result.Usage.CompletionTokens).
		Msg("anthropic_complete_ok")

	return result, nil
}

func adaptMessages(msgs []llm.Message) ([]anthropic.MessageParam, string) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	var system string
	for _, m := range msgs {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out, system
}

func messageFromResponse(resp *anthropic.Message) llm.CompletionResult {
	var content strings.Builder
	var thinking strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(b.Text)
		case anthropic.ThinkingBlock:
			thinking.WriteString(b.Thinking)
		}
	}

	return llm.CompletionResult{
		Content:  content.String(),
		Thinking: thinking.String(),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		FinishReason: finishReasonFromStopReason(string(resp.StopReason)),
	}
}

func finishReasonFromStopReason(reason string) llm.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return llm.FinishStop
	case "max_tokens":
		return llm.FinishLength
	case "tool_use":
		return llm.FinishToolCalls
	default:
		return llm.FinishUnknown
	}
}
