package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Mirrors the allow-list the portfolio frontend has always shipped with.
const defaultAllowedOrigins = `https://portfolio-production-url.vercel.app,http://localhost:3000,http://localhost:3001,/^https:\/\/portfolio.*\.vercel\.app$/`

type Config struct {
	// Server
	Port string
	Env  string

	// Upstream LLM
	Provider         string
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float64
	MaxTokens        int
	ChatTimeout      time.Duration
	MaxConcurrent    int
	SystemPromptFile string

	// Request limits
	MaxMessageLength int
	MaxBodyBytes     int64
	RateLimitPerMin  int
	TrustProxy       bool

	// CORS
	AllowedOrigins []string

	// Optional collaborators
	RedisURL  string
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGroq))

	cfg := &Config{
		Port:             getEnvOrDefault("PORT", "10000"),
		Env:              getEnvOrDefault("ENV", "production"),
		Provider:         provider,
		APIKey:           apiKeyFor(provider),
		BaseURL:          getEnvOrDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:            getEnvOrDefault("LLM_MODEL", defaultModelFor(provider)),
		Temperature:      getEnvAsFloatOrDefault("LLM_TEMPERATURE", 0.3),
		MaxTokens:        getEnvAsIntOrDefault("LLM_MAX_TOKENS", 1000),
		ChatTimeout:      getEnvAsDurationOrDefault("CHAT_TIMEOUT", 28*time.Second),
		MaxConcurrent:    getEnvAsIntOrDefault("UPSTREAM_MAX_CONCURRENT", 10),
		SystemPromptFile: getEnvOrDefault("SYSTEM_PROMPT_FILE", ""),
		MaxMessageLength: getEnvAsIntOrDefault("CHAT_MAX_MESSAGE_LENGTH", 5000),
		MaxBodyBytes:     int64(getEnvAsIntOrDefault("MAX_BODY_BYTES", 1<<20)),
		RateLimitPerMin:  getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),
		TrustProxy:       getEnvAsBoolOrDefault("TRUST_PROXY", false),
		AllowedOrigins:   getEnvAsListOrDefault("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		RedisURL:         getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:        getEnvOrDefault("AUTH_JWT_SECRET", ""),
	}

	return cfg
}

// Validate rejects settings the server cannot run with. A missing API key
// is not one of them: the chat route reports 503 until it is configured.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.Provider)
	}
	if c.ChatTimeout <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT must be positive, got %s", c.ChatTimeout)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("CHAT_MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("UPSTREAM_MAX_CONCURRENT must be positive, got %d", c.MaxConcurrent)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func apiKeyFor(provider string) string {
	if provider == ProviderGemini {
		return os.Getenv("GEMINI_API_KEY")
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GROQAPIKEY")
}

func defaultModelFor(provider string) string {
	if provider == ProviderGemini {
		return "gemini-2.0-flash"
	}
	return "llama-3.1-8b-instant"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks.
func getEnvAsListOrDefault(key, defaultVal string) []string {
	raw := getEnvOrDefault(key, defaultVal)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
