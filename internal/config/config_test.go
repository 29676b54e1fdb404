package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DUR_1", "5s")
	if got := getEnvAsDurationOrDefault("TEST_DUR_1", time.Second); got != 5*time.Second {
		t.Errorf("Expected 5s, got %s", got)
	}

	t.Setenv("TEST_DUR_2", "soon")
	if got := getEnvAsDurationOrDefault("TEST_DUR_2", time.Second); got != time.Second {
		t.Errorf("Expected fallback 1s, got %s", got)
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	t.Setenv("TEST_LIST", " http://a.test , ,http://b.test")

	got := getEnvAsListOrDefault("TEST_LIST", "")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Unexpected list: %#v", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "GROQ_API_KEY", "GROQAPIKEY", "CHAT_TIMEOUT", "PORT", "CORS_ALLOWED_ORIGINS", "ENV", "TRUST_PROXY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Provider != ProviderGroq {
		t.Errorf("Expected provider %q, got %q", ProviderGroq, cfg.Provider)
	}
	if cfg.ChatTimeout != 28*time.Second {
		t.Errorf("Expected 28s chat timeout, got %s", cfg.ChatTimeout)
	}
	if cfg.MaxMessageLength != 5000 {
		t.Errorf("Expected max message length 5000, got %d", cfg.MaxMessageLength)
	}
	if cfg.Port != "10000" {
		t.Errorf("Expected port 10000, got %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 4 {
		t.Errorf("Expected 4 default origins, got %d", len(cfg.AllowedOrigins))
	}
	if cfg.HasAPIKey() {
		t.Error("Expected no API key")
	}
	if cfg.IsDevelopment() {
		t.Errorf("Expected unset ENV to withhold error detail, got Env=%q", cfg.Env)
	}
	if cfg.TrustProxy {
		t.Error("Expected proxy headers to be untrusted by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	t.Setenv("TEST_BOOL_1", "true")
	if !getEnvAsBoolOrDefault("TEST_BOOL_1", false) {
		t.Error("Expected true")
	}

	t.Setenv("TEST_BOOL_2", "maybe")
	if getEnvAsBoolOrDefault("TEST_BOOL_2", false) {
		t.Error("Expected fallback false")
	}
}

func TestLoad_DevelopmentOnlyWhenExplicit(t *testing.T) {
	t.Setenv("ENV", "development")
	if !Load().IsDevelopment() {
		t.Error("Expected ENV=development to be honoured")
	}

	t.Setenv("ENV", "staging")
	if Load().IsDevelopment() {
		t.Error("Expected staging to withhold error detail")
	}
}

func TestLoad_LegacyGroqKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GROQAPIKEY", "legacy-key")

	cfg := Load()
	if cfg.APIKey != "legacy-key" {
		t.Errorf("Expected legacy key to be picked up, got %q", cfg.APIKey)
	}
}

func TestLoad_GeminiProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("LLM_MODEL", "")

	cfg := Load()
	if cfg.Provider != ProviderGemini {
		t.Errorf("Expected gemini provider, got %q", cfg.Provider)
	}
	if cfg.APIKey != "g-key" {
		t.Errorf("Expected gemini key, got %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Expected default gemini model, got %q", cfg.Model)
	}
}

func TestValidate_RejectsBadSettings(t *testing.T) {
	base := Config{Provider: ProviderGroq, ChatTimeout: time.Second, MaxMessageLength: 1, MaxConcurrent: 1, MaxBodyBytes: 1}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "bard" }},
		{"zero timeout", func(c *Config) { c.ChatTimeout = 0 }},
		{"zero length", func(c *Config) { c.MaxMessageLength = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"zero body", func(c *Config) { c.MaxBodyBytes = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
