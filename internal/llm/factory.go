package llm

import (
	"context"
	"fmt"
)

// Config is the subset of the service configuration the LLM provider
// factory needs.
type Config struct {
	Provider     string // openai | gemini | ollama
	Model        string
	BaseURL      string
	APIKey       string
}

// NewProvider builds the configured LLM Provider.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
