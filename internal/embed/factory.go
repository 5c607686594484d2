package embed

import "fmt"

// Config is the subset of the service configuration the embedding
// provider factory needs.
type Config struct {
	Provider  string // local | openai | ollama
	Model     string
	Dimension int
	BaseURL   string
	OpenAIAPIKey string
}

// NewProvider builds the configured embedding Provider.
func NewProvider(cfg Config) (Provider, error) {
	dim := ResolveDimension(cfg.Dimension, cfg.Model)
	if dim == 0 {
		return nil, fmt.Errorf("embedding dimension could not be resolved for model %q; set EMBEDDING_DIMENSION explicitly", cfg.Model)
	}

	switch cfg.Provider {
	case "", "local":
		return NewLocalProvider(cfg.Model, dim), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.BaseURL, cfg.Model, dim), nil
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, dim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
