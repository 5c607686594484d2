package embed

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
)

// LocalProvider is the in-process embedding backend. The Go ecosystem has
// no in-tree equivalent of a sentence-transformer runtime, so this loads
// lazily (first EmbedOne/EmbedBatch call) and produces a deterministic,
// L2-normalized hash projection: consistent dimension and zero-vector
// contract, without a network round trip, for environments that set
// EMBEDDING_PROVIDER=local deliberately to avoid an external dependency.
type LocalProvider struct {
	model     string
	dimension int
	loaded    bool
}

// NewLocalProvider builds a LocalProvider for the given model label and
// dimension.
func NewLocalProvider(model string, dimension int) *LocalProvider {
	return &LocalProvider{model: model, dimension: dimension}
}

func (p *LocalProvider) Name() string    { return "local:" + p.model }
func (p *LocalProvider) Dimension() int  { return p.dimension }

func (p *LocalProvider) ensureLoaded() {
	if !p.loaded {
		p.loaded = true
	}
}

// EmbedOne projects text into the configured dimension.
func (p *LocalProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	p.ensureLoaded()
	if text == "" {
		return zeroVector(p.dimension), nil
	}
	return hashEmbed(text, p.dimension), nil
}

// EmbedBatch projects each text independently; batchSize is accepted for
// interface parity with remote providers but has no effect locally.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	p.ensureLoaded()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.EmbedOne(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// hashEmbed derives a deterministic, L2-normalized vector of length dim
// from text using a seeded FNV hash per dimension.
func hashEmbed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var sumSquares float64
	for i := 0; i < dim; i++ {
		h := fnv.New64a()
		var seed [8]byte
		binary.LittleEndian.PutUint64(seed[:], uint64(i))
		h.Write(seed[:])
		h.Write([]byte(text))
		v := float64(h.Sum64()%2000001)/1000000.0 - 1.0 // in [-1, 1)
		vec[i] = float32(v)
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
