// Package embed implements the embedding provider abstraction (C5):
// a unified embed_one/embed_batch API over local, HTTP (OpenAI-shaped),
// and socket (Ollama-shaped) backends, each a tagged variant behind one
// capability interface.
package embed

import "context"

// knownModelDimensions resolves D for well-known models when the
// configuration doesn't pin it explicitly.
var knownModelDimensions = map[string]int{
	"all-MiniLM-L6-v2":    384,
	"all-mpnet-base-v2":   768,
	"nomic-embed-text":    768,
	"mxbai-embed-large":   1024,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
	"text-embedding-3-large": 3072,
}

// ResolveDimension returns the configured dimension if non-zero,
// otherwise the known dimension for model, otherwise 0.
func ResolveDimension(configured int, model string) int {
	if configured > 0 {
		return configured
	}
	if d, ok := knownModelDimensions[model]; ok {
		return d
	}
	return 0
}

// Provider is the capability set every embedding backend implements.
type Provider interface {
	Name() string
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// zeroVector returns a zero vector of the provider's configured dimension,
// the contractual response to an empty input.
func zeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// batches splits texts into groups of at most size.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[i:end])
	}
	return out
}
