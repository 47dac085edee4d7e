// Package config defines the RLM executor's configuration surface: LLM
// provider credentials, execution defaults, and observability identity.
package config

// OpenAIConfig mirrors internal/llm/openai.Config so the factory can pass it
// straight through without a lossy conversion.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

// AnthropicConfig mirrors internal/llm/anthropic.Config.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

// GoogleConfig mirrors internal/llm/google.Config.
type GoogleConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout int
}

// LLMClientConfig selects and configures the active llm.Provider.
type LLMClientConfig struct {
	// Provider is one of "openai", "anthropic", "google". Defaults to "openai".
	Provider  string
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Google    GoogleConfig
}

// ObsConfig carries the service identity and exporter endpoint consumed by
// internal/observability.InitOTel. Zero value disables OTLP export.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLP           string
}

// ExecutorConfig holds the RLM run defaults mirroring the public Options
// type. Zero values for MaxCostUSD/MaxTokens mean "unset" (no ceiling);
// every other field carries a concrete default applied in Load.
type ExecutorConfig struct {
	MaxIterations    int
	MaxDepth         int
	SandboxTimeoutMS int
	Temperature      float64
	MaxCostUSD       float64
	MaxTokens        int64
	Verbose          bool
	ExtendedThinking bool
	ThinkingBudget   int64
}

// Config is the fully-resolved process configuration.
type Config struct {
	LLMClient LLMClientConfig
	Obs       ObsConfig
	Executor  ExecutorConfig
}
