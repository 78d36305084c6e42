package ai

import (
	"errors"

	"github.com/hrygo/divinecanvas/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM    LLMConfig
	Router RouterConfig
	Digest DigestConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Model       string // deepseek-chat
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 8192
	Temperature float32 // default: 0.7
}

// RouterConfig represents the intent classifier configuration.
// Empty fields inherit from LLMConfig.
type RouterConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// DigestConfig represents document pre-digestion configuration.
type DigestConfig struct {
	ChunkSize   int // runes per chunk, default: 20000
	Concurrency int // default: 3
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	cfg.LLM = LLMConfig{
		Model:       p.AILLMModel,
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		MaxTokens:   8192,
		Temperature: 0.7,
	}

	cfg.Router = RouterConfig{
		Model:   p.AIRouterModel,
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
	}
	if cfg.Router.Model == "" {
		cfg.Router.Model = cfg.LLM.Model
	}

	cfg.Digest = DigestConfig{
		ChunkSize:   p.DigestChunkSize,
		Concurrency: p.DigestConcurrency,
	}
	if cfg.Digest.ChunkSize <= 0 {
		cfg.Digest.ChunkSize = 20000
	}
	if cfg.Digest.Concurrency <= 0 {
		cfg.Digest.Concurrency = 3
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return errors.New("LLM API key or base URL is required")
	}

	return nil
}
