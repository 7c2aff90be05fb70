// Package profile loads service configuration from the environment.
package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM gateway configuration (OpenAI-compatible protocol).
	LLMAPIURL      string  // Base URL, e.g. https://api.deepseek.com/v1
	LLMModel       string  // Model name: deepseek-chat, gpt-4o, glm-4.7, ...
	LLMAPIKey      string  // API key; chat degrades to the fallback answer without one
	LLMTemperature float64 // Sampling temperature (default: 0.7)
	LLMMaxTokens   int     // Completion token cap (default: 1024)
	LLMTimeout     int     // Request timeout in seconds (default: 30)

	// Pipeline tuning.
	MaxConversationHistory   int     // Per-session turn cap (default: 20)
	CacheTimeout             int     // Exact-tier TTL in seconds (default: 300)
	SearchCacheTimeout       int     // Similarity-tier TTL in seconds (default: 600)
	CacheCapacity            int     // Response cache entry bound (default: 500)
	MatchThreshold           float64 // Fuzzy retrieval acceptance score (default: 0.6)
	CacheSimilarityThreshold float64 // Cache similarity acceptance score (default: 0.75)
	ContextTopN              int     // Records rendered into the prompt (default: 5)
	FieldBudget              int     // Per-field rune budget in the prompt (default: 200)

	// Catalog data.
	ProductsPath string
	PoliciesPath string

	// Server.
	Mode string // demo, dev, prod
	Addr string
	Port int
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer env value", "key", key, "value", value)
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric env value", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMAPIURL = getEnvOrDefault("LLM_API_URL", "https://api.deepseek.com/v1")
	p.LLMModel = getEnvOrDefault("LLM_MODEL", "deepseek-chat")
	p.LLMAPIKey = getEnvOrDefault("LLM_API_KEY", "")
	p.LLMTemperature = getEnvOrDefaultFloat("LLM_TEMPERATURE", 0.7)
	p.LLMMaxTokens = getEnvOrDefaultInt("LLM_MAX_TOKENS", 1024)
	p.LLMTimeout = getEnvOrDefaultInt("LLM_TIMEOUT_SECONDS", 30)

	p.MaxConversationHistory = getEnvOrDefaultInt("MAX_CONVERSATION_HISTORY", 20)
	p.CacheTimeout = getEnvOrDefaultInt("CACHE_TIMEOUT", 300)
	p.SearchCacheTimeout = getEnvOrDefaultInt("SEARCH_CACHE_TIMEOUT", 600)
	p.CacheCapacity = getEnvOrDefaultInt("CACHE_CAPACITY", 500)
	p.MatchThreshold = getEnvOrDefaultFloat("MATCH_THRESHOLD", 0.6)
	p.CacheSimilarityThreshold = getEnvOrDefaultFloat("CACHE_SIMILARITY_THRESHOLD", 0.75)
	p.ContextTopN = getEnvOrDefaultInt("CONTEXT_TOP_N", 5)
	p.FieldBudget = getEnvOrDefaultInt("FIELD_BUDGET", 200)

	p.ProductsPath = getEnvOrDefault("PRODUCTS_PATH", "data/products.json")
	p.PoliciesPath = getEnvOrDefault("POLICIES_PATH", "data/policies.json")

	p.Mode = getEnvOrDefault("SHOPTALK_MODE", "demo")
	p.Addr = getEnvOrDefault("SHOPTALK_ADDR", "")
	p.Port = getEnvOrDefaultInt("SHOPTALK_PORT", 8081)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// Validate normalizes and checks the profile. Thresholds must stay in (0, 1]
// or two pipeline invariants break: inclusive match acceptance and cache
// similarity acceptance.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.MatchThreshold <= 0 || p.MatchThreshold > 1 {
		return errors.Errorf("MATCH_THRESHOLD must be in (0, 1], got %g", p.MatchThreshold)
	}
	if p.CacheSimilarityThreshold <= 0 || p.CacheSimilarityThreshold > 1 {
		return errors.Errorf("CACHE_SIMILARITY_THRESHOLD must be in (0, 1], got %g", p.CacheSimilarityThreshold)
	}
	if p.MaxConversationHistory <= 0 {
		p.MaxConversationHistory = 20
	}

	for _, path := range []string{p.ProductsPath, p.PoliciesPath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "resolve data path %s", path)
		}
		if _, err := os.Stat(abs); err != nil {
			return errors.Wrapf(err, "unable to access data file %s", abs)
		}
	}
	return nil
}
