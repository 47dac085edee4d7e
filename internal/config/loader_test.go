package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "OPENAI_API_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL",
		"GOOGLE_LLM_API_KEY", "GOOGLE_LLM_MODEL", "GOOGLE_LLM_BASE_URL",
		"RLM_CONFIG", "RLM_MAX_ITERATIONS", "RLM_MAX_DEPTH",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsToOpenAI(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLMClient.Provider != "openai" {
		t.Fatalf("expected default provider openai, got %q", cfg.LLMClient.Provider)
	}
	if cfg.LLMClient.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.LLMClient.OpenAI.Model)
	}
	if cfg.Executor.MaxIterations != 20 {
		t.Fatalf("expected default max iterations 20, got %d", cfg.Executor.MaxIterations)
	}
	if cfg.Executor.MaxDepth != 1 {
		t.Fatalf("expected default max depth 1, got %d", cfg.Executor.MaxDepth)
	}
	if cfg.Executor.SandboxTimeoutMS != 10000 {
		t.Fatalf("expected default sandbox timeout 10000ms, got %d", cfg.Executor.SandboxTimeoutMS)
	}
}

func TestLoadRequiresAPIKeyForSelectedProvider(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Chdir(t.TempDir())

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when ANTHROPIC_API_KEY is missing")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("LLM_PROVIDER", "bogus")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Chdir(t.TempDir())

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoadMergesYAMLOverlayWhenEnvUnset(t *testing.T) {
	clearLLMEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yamlContent := `
llmClient:
  provider: anthropic
  anthropic:
    apiKey: yaml-key
    model: claude-sonnet-4-5-latest
executor:
  maxIterations: 5
`
	if err := os.WriteFile(filepath.Join(dir, "rlm.yaml"), []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write rlm.yaml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLMClient.Provider != "anthropic" {
		t.Fatalf("expected provider from yaml overlay, got %q", cfg.LLMClient.Provider)
	}
	if cfg.LLMClient.Anthropic.APIKey != "yaml-key" {
		t.Fatalf("expected api key from yaml overlay, got %q", cfg.LLMClient.Anthropic.APIKey)
	}
	if cfg.Executor.MaxIterations != 5 {
		t.Fatalf("expected max iterations from yaml overlay, got %d", cfg.Executor.MaxIterations)
	}
}

func TestLoadEnvOverridesYAMLOverlay(t *testing.T) {
	clearLLMEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yamlContent := `
llmClient:
  provider: anthropic
  anthropic:
    apiKey: yaml-key
`
	if err := os.WriteFile(filepath.Join(dir, "rlm.yaml"), []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write rlm.yaml: %v", err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("LLM_PROVIDER", "anthropic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLMClient.Anthropic.APIKey != "env-key" {
		t.Fatalf("expected env value to win over yaml overlay, got %q", cfg.LLMClient.Anthropic.APIKey)
	}
}
