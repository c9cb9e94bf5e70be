package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig configures the text embedding provider.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`     // "openai", "jina", "hash"
	Model      string        `mapstructure:"model"`        // Model name/ID
	APIKey     string        `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL    string        `mapstructure:"base_url"`     // Base URL for OpenAI-compatible APIs
	Dimensions int           `mapstructure:"dimensions"`   // Fixed for the lifetime of a persisted index
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars fills APIKey from APIKeyEnv when set, then falls back to the
// chat provider's key and base URL. The original service reused one
// OpenRouter credential for both calls.
func (c *EmbeddingConfig) ResolveEnvVars(fallbackKey, fallbackBaseURL string) {
	if c.APIKey == "" && c.APIKeyEnv != "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
	if c.APIKey == "" {
		c.APIKey = fallbackKey
	}
	if c.BaseURL == "" && c.Provider == "openai" {
		c.BaseURL = fallbackBaseURL
	}
}

// Validate checks that the embedding configuration has all required fields.
func (c *EmbeddingConfig) Validate() error {
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}

	switch c.Provider {
	case "hash":
		return nil
	case "openai", "jina":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("embedding %q: model is required", c.Provider)
	}
	return nil
}
