// Package llm implements the LLM provider abstraction (C7): metadata
// extraction and grounded answer generation over local/remote back-ends,
// mirroring the shape of the embedding provider abstraction in
// internal/embed.
package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// maxMetadataInputChars bounds the text sent for metadata extraction so a
// large document doesn't blow the provider's context window or budget.
const maxMetadataInputChars = 4000

// maxAnswerTokens and answerTemperature cap the grounded-answer call.
const (
	maxAnswerTokens   = 1000
	answerTemperature = 0.3
)

// The fixed reply for a question with no retrieved evidence is the RAG
// answerer's noEvidenceSentence (internal/rag); this package never
// produces it.

// ConversationTurn is one prior turn of a RAG conversation, used to give
// the grounded-answer call short-term memory.
type ConversationTurn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider is the capability set every LLM backend implements.
type Provider interface {
	Name() string
	ExtractMetadata(ctx context.Context, text, filename string, existingTags []string) (model.ExtractedMetadata, error)
	GenerateAnswer(ctx context.Context, question string, chunks []model.ChunkResult, history []ConversationTurn) (string, error)
}

// metadataJSON is the wire shape the provider is instructed to return for
// extraction; fields are all optional since a partially-confident model
// response should still parse.
type metadataJSON struct {
	Title         string   `json:"title"`
	Correspondent string   `json:"correspondent"`
	DocumentDate  string   `json:"document_date"`
	DocumentType  string   `json:"document_type"`
	Summary       string   `json:"summary"`
	SuggestedTags []string `json:"suggested_tags"`
}

// metadataSystemPrompt instructs the model to return strict JSON.
const metadataSystemPrompt = `You are a document metadata extraction assistant. Given the text of a document, return a single JSON object with these fields: "title" (short descriptive title), "correspondent" (sender or author, or empty string), "document_date" (YYYY-MM-DD if determinable, else empty string), "document_type" (e.g. invoice, letter, contract, receipt, report, or empty string), "summary" (one or two sentence summary), "suggested_tags" (array of up to 5 short lowercase tags).

Respond with ONLY the JSON object. Do not include explanations, markdown fences, or any other text.`

// buildMetadataPrompt truncates text to the provider budget and assembles
// the user-turn prompt for metadata extraction.
func buildMetadataPrompt(text, filename string, existingTags []string) string {
	truncated := text
	if len(truncated) > maxMetadataInputChars {
		truncated = truncated[:maxMetadataInputChars]
	}
	var b strings.Builder
	if filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}
	if len(existingTags) > 0 {
		b.WriteString("Existing tags in the system (reuse if relevant): ")
		b.WriteString(strings.Join(existingTags, ", "))
		b.WriteString("\n")
	}
	b.WriteString("Document text:\n")
	b.WriteString(truncated)
	return b.String()
}

// stripCodeFences removes a leading/trailing ``` or ```json fence some
// models wrap JSON responses in despite being told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Field-length caps enforced on parsed metadata output, independent of
// whatever the prompt asked the model to respect.
const (
	maxTitleLen         = 200
	maxCorrespondentLen = 200
	maxDocumentTypeLen  = 100
	maxSummaryLen       = 1000
	maxSuggestedTags    = 10
)

// parseMetadata parses a model's raw text response into ExtractedMetadata.
// A parse failure returns an empty-but-valid metadata struct and no error:
// per the extraction contract, a malformed response degrades gracefully
// rather than failing ingestion.
func parseMetadata(raw string) model.ExtractedMetadata {
	cleaned := stripCodeFences(raw)
	var parsed metadataJSON
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return model.ExtractedMetadata{}
	}

	tags := parsed.SuggestedTags
	if len(tags) > maxSuggestedTags {
		tags = tags[:maxSuggestedTags]
	}

	return model.ExtractedMetadata{
		Title:         truncateRunes(strings.TrimSpace(parsed.Title), maxTitleLen),
		Correspondent: truncateRunes(strings.TrimSpace(parsed.Correspondent), maxCorrespondentLen),
		DocumentDate:  strings.TrimSpace(parsed.DocumentDate),
		DocumentType:  truncateRunes(strings.TrimSpace(parsed.DocumentType), maxDocumentTypeLen),
		Summary:       truncateRunes(strings.TrimSpace(parsed.Summary), maxSummaryLen),
		SuggestedTags: tags,
	}
}

// truncateRunes trims s to at most n runes, respecting UTF-8 boundaries.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// answerSystemPrompt forbids the model from answering outside the
// supplied context.
const answerSystemPrompt = `You are a document question-answering assistant. Answer the user's question using ONLY the information in the document excerpts provided below. If the excerpts do not contain enough information to answer, say so plainly - do not use outside knowledge and do not guess.

Keep the answer concise and directly responsive to the question.`

// buildAnswerPrompt assembles the numbered excerpt context block and the
// question into the user-turn prompt for grounded answer generation.
func buildAnswerPrompt(question string, chunks []model.ChunkResult) string {
	var b strings.Builder
	for i, c := range chunks {
		b.WriteString("Document excerpt ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" (")
		b.WriteString(c.Title)
		b.WriteString("):\n")
		b.WriteString(c.ChunkText)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
