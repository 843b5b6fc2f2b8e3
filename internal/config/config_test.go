package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("CACHE_BACKEND", "json")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("provider not normalized: %q", cfg.LLMProvider)
	}
	if cfg.CacheExpiry() != time.Duration(cfg.CacheExpiryHours)*time.Hour {
		t.Errorf("CacheExpiry = %v", cfg.CacheExpiry())
	}
	if cfg.MaxTokens <= 0 || cfg.MaxCacheSize <= 0 {
		t.Errorf("unexpected limits: max tokens %d, max cache %d", cfg.MaxTokens, cfg.MaxCacheSize)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("CACHE_BACKEND", "SQLite")
	t.Setenv("VALIDATOR_FAIL_POLICY", "Closed")
	t.Setenv("CACHE_EXPIRY_HOURS", "6")
	t.Setenv("STREAM_TIMEOUT", "45s")
	t.Setenv("AI_GENERATION_MAX_ATTEMPTS", "0")
	t.Setenv("MAX_TOKENS", "800")
	t.Setenv("MAX_CACHE_SIZE", "20")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("provider = %q", cfg.LLMProvider)
	}
	if cfg.CacheBackend != CacheBackendSQLite {
		t.Errorf("cache backend = %q", cfg.CacheBackend)
	}
	if cfg.ValidatorFailPolicy != "closed" {
		t.Errorf("fail policy = %q", cfg.ValidatorFailPolicy)
	}
	if cfg.CacheExpiry() != 6*time.Hour {
		t.Errorf("expiry = %v", cfg.CacheExpiry())
	}
	if cfg.StreamTimeout != 45*time.Second {
		t.Errorf("stream timeout = %v", cfg.StreamTimeout)
	}
	if cfg.AIGenerationMaxAttempts != 1 {
		t.Errorf("attempts should be clamped to 1, got %d", cfg.AIGenerationMaxAttempts)
	}
	if cfg.MaxTokens != 800 || cfg.MaxCacheSize != 20 {
		t.Errorf("limits = %d/%d", cfg.MaxTokens, cfg.MaxCacheSize)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"LLM_PROVIDER":          "gemini",
		"CACHE_BACKEND":         "redis",
		"VALIDATOR_FAIL_POLICY": "maybe",
		"MAX_TOKENS":            "0",
		"MAX_CACHE_SIZE":        "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", "openai")
			t.Setenv("CACHE_BACKEND", "json")
			t.Setenv("VALIDATOR_FAIL_POLICY", "open")
			t.Setenv("MAX_TOKENS", "500")
			t.Setenv("MAX_CACHE_SIZE", "100")
			t.Setenv(key, value)
			if _, err := Parse(); err == nil {
				t.Errorf("expected error for %s=%s", key, value)
			}
		})
	}
}
