// Package providers selects and constructs the configured llm.Provider.
package providers

import (
	"fmt"
	"net/http"

	"manifold/internal/config"
	"manifold/internal/llm"
	"manifold/internal/llm/anthropic"
	"manifold/internal/llm/google"
	openaillm "manifold/internal/llm/openai"
)

// Build constructs an llm.Provider based on the configured provider name.
func Build(cfg config.Config, httpClient *http.Client) (llm.Provider, error) {
	switch cfg.LLMClient.Provider {
	case "", "openai":
		return openaillm.New(openaillm.Config{
			APIKey:    cfg.LLMClient.OpenAI.APIKey,
			Model:     cfg.LLMClient.OpenAI.Model,
			BaseURL:   cfg.LLMClient.OpenAI.BaseURL,
			MaxTokens: cfg.LLMClient.OpenAI.MaxTokens,
		}), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:    cfg.LLMClient.Anthropic.APIKey,
			Model:     cfg.LLMClient.Anthropic.Model,
			MaxTokens: cfg.LLMClient.Anthropic.MaxTokens,
			BaseURL:   cfg.LLMClient.Anthropic.BaseURL,
		}), nil
	case "google":
		return google.New(google.Config{
			APIKey:  cfg.LLMClient.Google.APIKey,
			Model:   cfg.LLMClient.Google.Model,
			BaseURL: cfg.LLMClient.Google.BaseURL,
			Timeout: cfg.LLMClient.Google.Timeout,
		}, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMClient.Provider)
	}
}
