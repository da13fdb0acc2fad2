package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/linreg/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - LLM disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel builds provider configuration from the application config.
// Proxy settings are shared with the data fetcher.
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		APIKey:        resolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKey),
		BaseURL:       cfg.LLM.BaseURL,
		Timeout:       cfg.LLM.Timeout,
		StrictFigures: cfg.LLM.Strict,
		MaxTokens:     cfg.LLM.MaxTokens,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		NoProxy:       cfg.HTTP.NoProxy,
	}
}

// resolveAPIKey falls back to the provider's conventional environment variable
func resolveAPIKey(provider, key string) string {
	if key != "" {
		return key
	}
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
