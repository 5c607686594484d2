package retrieval

import (
	"math"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestMergeRRF_BothEmpty(t *testing.T) {
	result := mergeRRF(nil, nil, 60, 0.5, 0.5)
	if len(result) != 0 {
		t.Errorf("expected 0 results, got %d", len(result))
	}
}

func TestMergeRRF_VecOnly(t *testing.T) {
	vec := []model.ChunkResult{
		{ChunkID: "a", ChunkText: "chunk a"},
		{ChunkID: "b", ChunkText: "chunk b"},
	}
	result := mergeRRF(vec, nil, 60, 1, 1)

	if len(result) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result))
	}
	if result[0].ChunkID != "a" {
		t.Errorf("expected first result to be 'a', got %q", result[0].ChunkID)
	}
	expectedScore := 1.0 / 61.0
	if math.Abs(result[0].RRFScore-expectedScore) > 1e-9 {
		t.Errorf("expected RRF score %f, got %f", expectedScore, result[0].RRFScore)
	}
}

func TestMergeRRF_FTSOnly(t *testing.T) {
	fts := []model.ChunkResult{
		{ChunkID: "x", ChunkText: "chunk x"},
	}
	result := mergeRRF(nil, fts, 60, 1, 1)

	if len(result) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result))
	}
	if result[0].ChunkID != "x" {
		t.Errorf("expected 'x', got %q", result[0].ChunkID)
	}
}

func TestMergeRRF_OverlappingChunks(t *testing.T) {
	vec := []model.ChunkResult{
		{ChunkID: "a", ChunkText: "chunk a", VecScore: 0.9},
		{ChunkID: "b", ChunkText: "chunk b", VecScore: 0.8},
	}
	fts := []model.ChunkResult{
		{ChunkID: "a", ChunkText: "chunk a", FTSScore: 0.5},
		{ChunkID: "c", ChunkText: "chunk c", FTSScore: 0.3},
	}

	result := mergeRRF(vec, fts, 60, 1, 1)

	if len(result) != 3 {
		t.Fatalf("expected 3 results (a, b, c), got %d", len(result))
	}
	if result[0].ChunkID != "a" {
		t.Errorf("expected first result to be 'a', got %q", result[0].ChunkID)
	}

	expectedA := 2.0 / 61.0
	if math.Abs(result[0].RRFScore-expectedA) > 1e-9 {
		t.Errorf("expected RRF score %f for 'a', got %f", expectedA, result[0].RRFScore)
	}
	if result[0].VecScore != 0.9 {
		t.Errorf("expected VecScore 0.9, got %f", result[0].VecScore)
	}
	if result[0].FTSScore != 0.5 {
		t.Errorf("expected FTSScore 0.5, got %f", result[0].FTSScore)
	}
}

func TestMergeRRF_WeightedSum(t *testing.T) {
	// "a" in both lists at rank 1, weights 0.5/0.5 (the default).
	vec := []model.ChunkResult{{ChunkID: "a"}}
	fts := []model.ChunkResult{{ChunkID: "a"}}

	result := mergeRRF(vec, fts, 60, 0.5, 0.5)

	expected := 0.5/61.0 + 0.5/61.0
	if math.Abs(result[0].RRFScore-expected) > 1e-9 {
		t.Errorf("expected weighted RRF score %f, got %f", expected, result[0].RRFScore)
	}
}

func TestMergeRRF_SortedByScore(t *testing.T) {
	vec := []model.ChunkResult{
		{ChunkID: "b"},
		{ChunkID: "a"},
	}
	fts := []model.ChunkResult{
		{ChunkID: "c"},
		{ChunkID: "a"},
	}

	result := mergeRRF(vec, fts, 60, 1, 1)

	if result[0].ChunkID != "a" {
		t.Errorf("expected 'a' first, got %q", result[0].ChunkID)
	}
}

func TestMergeRRF_DifferentK(t *testing.T) {
	vec := []model.ChunkResult{{ChunkID: "a"}}

	result := mergeRRF(vec, nil, 0, 1, 1)
	if math.Abs(result[0].RRFScore-1.0) > 1e-9 {
		t.Errorf("expected RRF score 1.0 with k=0, got %f", result[0].RRFScore)
	}
}
