package embed

import (
	"context"
	"testing"
)

func TestResolveDimension_ConfiguredWins(t *testing.T) {
	if got := ResolveDimension(1536, "all-MiniLM-L6-v2"); got != 1536 {
		t.Errorf("expected configured dimension to win, got %d", got)
	}
}

func TestResolveDimension_KnownModel(t *testing.T) {
	if got := ResolveDimension(0, "all-MiniLM-L6-v2"); got != 384 {
		t.Errorf("expected 384 for all-MiniLM-L6-v2, got %d", got)
	}
	if got := ResolveDimension(0, "text-embedding-3-large"); got != 3072 {
		t.Errorf("expected 3072 for text-embedding-3-large, got %d", got)
	}
}

func TestResolveDimension_Unknown(t *testing.T) {
	if got := ResolveDimension(0, "some-unknown-model"); got != 0 {
		t.Errorf("expected 0 for unknown model, got %d", got)
	}
}

func TestLocalProvider_EmptyInputReturnsZeroVector(t *testing.T) {
	p := NewLocalProvider("test-model", 8)
	vec, err := p.EmbedOne(context.Background(), "")
	if err != nil {
		t.Fatalf("EmbedOne: %v", err)
	}
	if len(vec) != 8 {
		t.Fatalf("expected length 8, got %d", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("expected zero vector, index %d = %f", i, v)
		}
	}
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p := NewLocalProvider("test-model", 16)
	v1, _ := p.EmbedOne(context.Background(), "the quick brown fox")
	v2, _ := p.EmbedOne(context.Background(), "the quick brown fox")

	if len(v1) != 16 || len(v2) != 16 {
		t.Fatalf("expected length 16, got %d/%d", len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Errorf("expected deterministic output, index %d: %f != %f", i, v1[i], v2[i])
		}
	}
}

func TestLocalProvider_DifferentTextsDiffer(t *testing.T) {
	p := NewLocalProvider("test-model", 16)
	v1, _ := p.EmbedOne(context.Background(), "alpha")
	v2, _ := p.EmbedOne(context.Background(), "beta")

	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different texts to produce different vectors")
	}
}

func TestLocalProvider_EmbedBatch(t *testing.T) {
	p := NewLocalProvider("test-model", 4)
	out, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"}, 8)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(out))
	}
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "bogus", Model: "x", Dimension: 10})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewProvider_UnresolvableDimension(t *testing.T) {
	_, err := NewProvider(Config{Provider: "local", Model: "totally-unknown-model"})
	if err == nil {
		t.Error("expected error when dimension cannot be resolved")
	}
}

func TestBatches_SplitsWithRemainder(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}
	got := batches(texts, 2)
	if len(got) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(got))
	}
	if len(got[0]) != 2 || len(got[1]) != 2 || len(got[2]) != 1 {
		t.Errorf("unexpected batch sizes: %v", got)
	}
}
