package openai

import (
	"strings"

	sdk "github.com/openai/openai-go/v2"

	"manifold/internal/llm"
)

// isGemini3Model reports whether model is an OpenAI-compatible alias for a
// Gemini 3 model served behind a self-hosted or proxying endpoint.
func isGemini3Model(model string) bool { return strings.HasPrefix(strings.ToLower(model), "gemini-3") }

// AdaptMessages converts portable llm.Message history to OpenAI SDK message
// params. There is no tool-call or compaction branch here: the core never
// issues tool calls.
func AdaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			content := m.Content
			if content == "" {
				content = "You are a helpful assistant."
			}
			out = append(out, sdk.SystemMessage(content))
		case "user":
			content := m.Content
			if content == "" {
				content = " "
			}
			out = append(out, sdk.UserMessage(content))
		case "assistant":
			content := m.Content
			if content == "" {
				content = " "
			}
			out = append(out, sdk.AssistantMessage(content))
		}
	}
	return out
}
