// Package rag implements the retrieval-augmented answer generator
// (C11): semantic retrieval, distinct-chunk context assembly, history
// trimming, and a grounded answer call through the LLM provider
// abstraction, with fixed sentences for the no-evidence and
// provider-error cases so the HTTP surface never has to invent copy.
package rag

import (
	"context"
	"log/slog"

	"github.com/tedkulp/cartulary-go/internal/llm"
	"github.com/tedkulp/cartulary-go/internal/model"
	"github.com/tedkulp/cartulary-go/internal/retrieval"
)

const (
	noEvidenceSentence = "I couldn't find any relevant information in your documents to answer this question."
	providerErrorSentence = "I ran into a problem generating an answer. Please try again in a moment."

	defaultNumChunks = 5
	maxNumChunks     = 20
	defaultThreshold = 0.3
	maxHistoryTurns  = 10
)

// Answerer composes the retrieval engine and an LLM provider into the
// question-answering operation.
type Answerer struct {
	retrieval *retrieval.Engine
	llmProv   llm.Provider
}

// New builds an Answerer.
func New(retrievalEngine *retrieval.Engine, llmProv llm.Provider) *Answerer {
	return &Answerer{retrieval: retrievalEngine, llmProv: llmProv}
}

// Answer runs the full RAG procedure for question against user's
// accessible document set. numChunks defaults to 5 when <= 0 and is
// capped at 20; threshold defaults to 0.3 when <= 0.
func (a *Answerer) Answer(ctx context.Context, question string, user model.User, history []llm.ConversationTurn, numChunks int, threshold float64) (model.RAGAnswer, error) {
	if numChunks <= 0 {
		numChunks = defaultNumChunks
	}
	if numChunks > maxNumChunks {
		numChunks = maxNumChunks
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	results, err := a.retrieval.Semantic(ctx, question, user, numChunks, threshold)
	if err != nil {
		return model.RAGAnswer{}, err
	}
	if len(results) == 0 {
		return model.RAGAnswer{Answer: noEvidenceSentence}, nil
	}

	chunks, sources := assembleContext(results, numChunks)

	trimmedHistory := history
	if len(trimmedHistory) > maxHistoryTurns {
		trimmedHistory = trimmedHistory[len(trimmedHistory)-maxHistoryTurns:]
	}

	titleByDoc := make(map[string]string, len(sources))
	for _, d := range sources {
		titleByDoc[d.ID] = d.Title
	}
	chunkResults := make([]model.ChunkResult, len(chunks))
	for i, c := range chunks {
		chunkResults[i] = model.ChunkResult{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Title:      titleByDoc[c.DocumentID],
			ChunkText:  c.ChunkText,
		}
	}

	answer, err := a.llmProv.GenerateAnswer(ctx, question, chunkResults, trimmedHistory)
	if err != nil {
		slog.Error("rag: answer generation failed", "error", err)
		return model.RAGAnswer{
			Answer:     providerErrorSentence,
			Sources:    sources,
			ChunksUsed: chunks,
		}, nil
	}

	return model.RAGAnswer{
		Answer:     answer,
		Sources:    sources,
		ChunksUsed: chunks,
	}, nil
}

// assembleContext takes the top numChunks semantic results (each
// already one distinct (chunk, document) pair via DISTINCT ON in the
// underlying query) and dedupes the source document list by id while
// preserving first-seen order.
func assembleContext(results []model.SearchResult, numChunks int) ([]model.DocumentChunk, []model.Document) {
	if len(results) > numChunks {
		results = results[:numChunks]
	}

	chunks := make([]model.DocumentChunk, 0, len(results))
	var sources []model.Document
	seenDocs := make(map[string]bool, len(results))

	for _, r := range results {
		chunkID := ""
		if r.MatchedChunkID != nil {
			chunkID = *r.MatchedChunkID
		}
		chunkText := ""
		if r.MatchedChunk != nil {
			chunkText = *r.MatchedChunk
		}
		chunks = append(chunks, model.DocumentChunk{
			ID:         chunkID,
			DocumentID: r.Document.ID,
			ChunkText:  chunkText,
		})

		if !seenDocs[r.Document.ID] {
			seenDocs[r.Document.ID] = true
			sources = append(sources, r.Document)
		}
	}

	return chunks, sources
}
