package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// httpCeiling is the provider-specific batch ceiling for the HTTP backend.
const httpCeiling = 100

// OpenAIProvider is the remote HTTP (OpenAI-shaped) embedding backend.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIProvider builds an OpenAIProvider. baseURL overrides the
// default OpenAI endpoint, letting OpenAI-API-compatible gateways serve
// the same wire shape.
func NewOpenAIProvider(apiKey, baseURL, model string, dimension int) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

func (p *OpenAIProvider) Name() string   { return "openai:" + p.model }
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// EmbedOne embeds a single string.
func (p *OpenAIProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return zeroVector(p.dimension), nil
	}
	vecs, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in groups of at most batchSize, capped at the
// provider's request ceiling.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 || batchSize > httpCeiling {
		batchSize = httpCeiling
	}
	out := make([][]float32, 0, len(texts))
	for _, group := range batches(texts, batchSize) {
		vecs, err := p.embed(ctx, group)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *OpenAIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
