// Package google adapts the Gemini API to the llm.Provider contract: a
// single-shot Complete call, no tool calling, optional extended thinking.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"manifold/internal/llm"
	"manifold/internal/observability"
)

// Config carries the subset of provider configuration the Google client needs.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout int // seconds, 0 means SDK default
}

type Client struct {
	client      *genai.Client
	model       string
	httpOptions genai.HTTPOptions
}

// New constructs a Gemini-backed llm.Provider.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if cfg.Timeout > 0 {
		t := time.Duration(cfg.Timeout) * time.Second
		httpOpts.Timeout = &t
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}

	return &Client{
		client:      client,
		model:       model,
		httpOptions: httpOpts,
	}, nil
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
	if idx := strings.LastIndex(m, "/"); idx != -1 {
		m = m[idx+1:]
	}
	return strings.Contains(m, "gemini-2.5") || strings.Contains(m, "gemini-3")
}

func (c *Client) buildContentConfig(model string, opts llm.CompletionOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		HTTPOptions: &c.httpOptions,
	}
	if opts.Temperature != 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if len(opts.StopSequences) > 0 {
		cfg.StopSequences = opts.StopSequences
	}
	if opts.Thinking != nil && opts.Thinking.Enabled && shouldIncludeThoughtSummaries(model) {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return cfg
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (llm.CompletionResult, error) {
	model := c.pickModel(opts.Model)

	ctx, span := llm.StartRequestSpan(ctx, "Google Complete", model, len(messages))
	defer span.End()
	llm.LogRedactedPrompt(ctx, messages)
	log := observability.LoggerWithTrace(ctx)

	contents, err := toContents(messages)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("google_complete_to_contents_error")
		return llm.CompletionResult{}, err
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, c.buildContentConfig(model, opts))
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("google_complete_error")
		return llm.CompletionResult{}, fmt.Errorf("google complete: %w", err)
	}

	result, err := resultFromResponse(resp)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Dur("duration", dur).Msg("google_complete_response_parse_error")
		return llm.CompletionResult{}, err
	}

	llm.LogRedactedResponse(ctx, resp)
	llm.RecordTokenAttributes(span, result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
	llm.RecordTokenMetrics(model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	log.Debug().Str("model", model).Dur("duration", dur).
		Int("prompt_tokens", result.Usage.PromptTokens).
		Int("completion_tokens", result.Usage.CompletionTokens).
		Msg("google_complete_ok")

	return result, nil
}

// toContents converts portable messages into Gemini content turns. System
// messages are folded into the leading user turn, since Gemini has no
// dedicated system role in this single-shot path.
func toContents(msgs []llm.Message) ([]*genai.Content, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("messages required")
	}

	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role
		text := m.Content
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "", "user":
			role = genai.RoleUser
		case "system":
			role = genai.RoleUser
			text = "[system] " + text
		case "assistant":
			role = genai.RoleModel
		default:
			return nil, fmt.Errorf("unsupported role for google provider: %s", m.Role)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contents, nil
}

func resultFromResponse(resp *genai.GenerateContentResponse) (llm.CompletionResult, error) {
	if resp == nil {
		return llm.CompletionResult{}, fmt.Errorf("nil response from google provider")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return llm.CompletionResult{}, fmt.Errorf("request blocked by google: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return llm.CompletionResult{}, fmt.Errorf("no candidates in google response")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return llm.CompletionResult{}, fmt.Errorf("response blocked by safety filters")
	case genai.FinishReasonRecitation:
		return llm.CompletionResult{}, fmt.Errorf("response blocked due to recitation")
	}

	var content strings.Builder
	var thinking strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Thought {
				thinking.WriteString(part.Text)
				continue
			}
			content.WriteString(part.Text)
		}
	}

	var usage llm.Usage
	if resp.UsageMetadata != nil {
		usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return llm.CompletionResult{
		Content:      content.String(),
		Thinking:     thinking.String(),
		Usage:        usage,
		FinishReason: finishReasonFromGemini(candidate.FinishReason),
	}, nil
}

func finishReasonFromGemini(reason genai.FinishReason) llm.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return llm.FinishStop
	case genai.FinishReasonMaxTokens:
		return llm.FinishLength
	default:
		return llm.FinishUnknown
	}
}
