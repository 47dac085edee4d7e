package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load reads configuration from environment variables (optionally a local
// .env overlay) and, if present, merges an optional YAML file whose fields
// take precedence over env-derived defaults but not over explicitly set
// env vars. Env-first, YAML-fallback, matching the loader idiom this
// codebase already uses for its other services.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.LLMClient.Provider = strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))

	cfg.LLMClient.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.LLMClient.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	cfg.LLMClient.OpenAI.BaseURL = firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_BASE_URL"))
	cfg.LLMClient.OpenAI.MaxTokens = int64(intFromEnv("OPENAI_MAX_TOKENS", 0))

	cfg.LLMClient.Anthropic.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.LLMClient.Anthropic.Model = strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	cfg.LLMClient.Anthropic.BaseURL = strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))
	cfg.LLMClient.Anthropic.MaxTokens = int64(intFromEnv("ANTHROPIC_MAX_TOKENS", 0))

	cfg.LLMClient.Google.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_LLM_API_KEY"))
	cfg.LLMClient.Google.Model = strings.TrimSpace(os.Getenv("GOOGLE_LLM_MODEL"))
	cfg.LLMClient.Google.BaseURL = strings.TrimSpace(os.Getenv("GOOGLE_LLM_BASE_URL"))
	cfg.LLMClient.Google.Timeout = intFromEnv("GOOGLE_LLM_TIMEOUT_SECONDS", 0)

	cfg.Obs.ServiceName = strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("SERVICE_VERSION"))
	cfg.Obs.Environment = strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	cfg.Obs.OTLP = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	cfg.Executor.MaxIterations = intFromEnv("RLM_MAX_ITERATIONS", 0)
	cfg.Executor.MaxDepth = intFromEnv("RLM_MAX_DEPTH", 0)
	cfg.Executor.SandboxTimeoutMS = intFromEnv("RLM_SANDBOX_TIMEOUT_MS", 0)
	if v := strings.TrimSpace(os.Getenv("RLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Executor.Temperature = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RLM_MAX_COST_USD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Executor.MaxCostUSD = f
		}
	}
	cfg.Executor.MaxTokens = int64(intFromEnv("RLM_MAX_TOKENS", 0))
	if v := strings.TrimSpace(os.Getenv("RLM_VERBOSE")); v != "" {
		cfg.Executor.Verbose = strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(os.Getenv("RLM_EXTENDED_THINKING")); v != "" {
		cfg.Executor.ExtendedThinking = strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	cfg.Executor.ThinkingBudget = int64(intFromEnv("RLM_THINKING_BUDGET_TOKENS", 0))

	if err := mergeYAMLOverlay(&cfg); err != nil {
		return Config{}, err
	}

	applyDefaults(&cfg)

	provider := cfg.LLMClient.Provider
	switch provider {
	case "", "openai":
		cfg.LLMClient.Provider = "openai"
	case "anthropic", "google":
		// no-op, already valid
	default:
		return Config{}, fmt.Errorf("llm provider must be one of openai, anthropic, or google (got %q)", provider)
	}

	switch cfg.LLMClient.Provider {
	case "openai":
		if cfg.LLMClient.OpenAI.APIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "anthropic":
		if cfg.LLMClient.Anthropic.APIKey == "" {
			return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case "google":
		if cfg.LLMClient.Google.APIKey == "" {
			return Config{}, fmt.Errorf("GOOGLE_LLM_API_KEY is required when LLM_PROVIDER=google")
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLMClient.OpenAI.Model == "" {
		cfg.LLMClient.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.LLMClient.Anthropic.Model == "" {
		cfg.LLMClient.Anthropic.Model = "claude-sonnet-4-5-latest"
	}
	if cfg.LLMClient.Google.Model == "" {
		cfg.LLMClient.Google.Model = "gemini-2.5-flash"
	}
	if cfg.Obs.ServiceName == "" {
		cfg.Obs.ServiceName = "rlm-executor"
	}
	if cfg.Obs.Environment == "" {
		cfg.Obs.Environment = "dev"
	}
	if cfg.Executor.MaxIterations <= 0 {
		cfg.Executor.MaxIterations = 20
	}
	if cfg.Executor.MaxDepth <= 0 {
		cfg.Executor.MaxDepth = 1
	}
	if cfg.Executor.SandboxTimeoutMS <= 0 {
		cfg.Executor.SandboxTimeoutMS = 10000
	}
	if cfg.Executor.ThinkingBudget <= 0 {
		cfg.Executor.ThinkingBudget = 1024
	}
}

// yamlOverlay is the subset of Config that may be supplied via an optional
// YAML file. Fields left zero in the file do not override env-derived values.
type yamlOverlay struct {
	LLMClient struct {
		Provider  string `yaml:"provider"`
		OpenAI    struct {
			APIKey    string `yaml:"apiKey"`
			Model     string `yaml:"model"`
			BaseURL   string `yaml:"baseURL"`
			MaxTokens int64  `yaml:"maxTokens"`
		} `yaml:"openai"`
		Anthropic struct {
			APIKey    string `yaml:"apiKey"`
			Model     string `yaml:"model"`
			BaseURL   string `yaml:"baseURL"`
			MaxTokens int64  `yaml:"maxTokens"`
		} `yaml:"anthropic"`
		Google struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
			Timeout int    `yaml:"timeoutSeconds"`
		} `yaml:"google"`
	} `yaml:"llmClient"`
	Executor struct {
		MaxIterations    int     `yaml:"maxIterations"`
		MaxDepth         int     `yaml:"maxDepth"`
		SandboxTimeoutMS int     `yaml:"sandboxTimeoutMs"`
		Temperature      float64 `yaml:"temperature"`
		MaxCostUSD       float64 `yaml:"maxCostUSD"`
		MaxTokens        int64   `yaml:"maxTokens"`
		Verbose          bool    `yaml:"verbose"`
		ExtendedThinking bool    `yaml:"extendedThinking"`
		ThinkingBudget   int64   `yaml:"thinkingBudgetTokens"`
	} `yaml:"executor"`
}

// mergeYAMLOverlay loads RLM_CONFIG (or ./rlm.yaml / ./rlm.yml if unset) and
// fills in any field still at its zero value after the env pass.
func mergeYAMLOverlay(cfg *Config) error {
	var paths []string
	if p := strings.TrimSpace(os.Getenv("RLM_CONFIG")); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "rlm.yaml", "rlm.yml")

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if os.IsNotExist(err) {
			continue
		}
		return fmt.Errorf("read %s: %w", p, err)
	}
	if len(data) == 0 {
		return nil
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("unmarshal yaml config: %w", err)
	}

	if cfg.LLMClient.Provider == "" {
		cfg.LLMClient.Provider = strings.ToLower(strings.TrimSpace(overlay.LLMClient.Provider))
	}
	if cfg.LLMClient.OpenAI.APIKey == "" {
		cfg.LLMClient.OpenAI.APIKey = overlay.LLMClient.OpenAI.APIKey
	}
	if cfg.LLMClient.OpenAI.Model == "" {
		cfg.LLMClient.OpenAI.Model = overlay.LLMClient.OpenAI.Model
	}
	if cfg.LLMClient.OpenAI.BaseURL == "" {
		cfg.LLMClient.OpenAI.BaseURL = overlay.LLMClient.OpenAI.BaseURL
	}
	if cfg.LLMClient.OpenAI.MaxTokens == 0 {
		cfg.LLMClient.OpenAI.MaxTokens = overlay.LLMClient.OpenAI.MaxTokens
	}
	if cfg.LLMClient.Anthropic.APIKey == "" {
		cfg.LLMClient.Anthropic.APIKey = overlay.LLMClient.Anthropic.APIKey
	}
	if cfg.LLMClient.Anthropic.Model == "" {
		cfg.LLMClient.Anthropic.Model = overlay.LLMClient.Anthropic.Model
	}
	if cfg.LLMClient.Anthropic.BaseURL == "" {
		cfg.LLMClient.Anthropic.BaseURL = overlay.LLMClient.Anthropic.BaseURL
	}
	if cfg.LLMClient.Anthropic.MaxTokens == 0 {
		cfg.LLMClient.Anthropic.MaxTokens = overlay.LLMClient.Anthropic.MaxTokens
	}
	if cfg.LLMClient.Google.APIKey == "" {
		cfg.LLMClient.Google.APIKey = overlay.LLMClient.Google.APIKey
	}
	if cfg.LLMClient.Google.Model == "" {
		cfg.LLMClient.Google.Model = overlay.LLMClient.Google.Model
	}
	if cfg.LLMClient.Google.BaseURL == "" {
		cfg.LLMClient.Google.BaseURL = overlay.LLMClient.Google.BaseURL
	}
	if cfg.LLMClient.Google.Timeout == 0 {
		cfg.LLMClient.Google.Timeout = overlay.LLMClient.Google.Timeout
	}

	if cfg.Executor.MaxIterations == 0 {
		cfg.Executor.MaxIterations = overlay.Executor.MaxIterations
	}
	if cfg.Executor.MaxDepth == 0 {
		cfg.Executor.MaxDepth = overlay.Executor.MaxDepth
	}
	if cfg.Executor.SandboxTimeoutMS == 0 {
		cfg.Executor.SandboxTimeoutMS = overlay.Executor.SandboxTimeoutMS
	}
	if cfg.Executor.Temperature == 0 {
		cfg.Executor.Temperature = overlay.Executor.Temperature
	}
	if cfg.Executor.MaxCostUSD == 0 {
		cfg.Executor.MaxCostUSD = overlay.Executor.MaxCostUSD
	}
	if cfg.Executor.MaxTokens == 0 {
		cfg.Executor.MaxTokens = overlay.Executor.MaxTokens
	}
	if !cfg.Executor.Verbose {
		cfg.Executor.Verbose = overlay.Executor.Verbose
	}
	if !cfg.Executor.ExtendedThinking {
		cfg.Executor.ExtendedThinking = overlay.Executor.ExtendedThinking
	}
	if cfg.Executor.ThinkingBudget == 0 {
		cfg.Executor.ThinkingBudget = overlay.Executor.ThinkingBudget
	}

	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
