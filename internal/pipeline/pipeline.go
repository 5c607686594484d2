// Package pipeline implements the processing orchestrator (C8): the
// stage machine wiring text extraction -> embedding -> metadata
// extraction, driven by the durable job queue (C3) and publishing every
// status transition to the event bus (C2).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tedkulp/cartulary-go/internal/chunk"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/embed"
	"github.com/tedkulp/cartulary-go/internal/eventbus"
	"github.com/tedkulp/cartulary-go/internal/extract"
	"github.com/tedkulp/cartulary-go/internal/llm"
	"github.com/tedkulp/cartulary-go/internal/model"
	"github.com/tedkulp/cartulary-go/internal/queue"
)

// Config is the subset of service configuration the orchestrator needs.
type Config struct {
	ChunkSize          int
	ChunkOverlap       int
	EmbedBatchSize     int
	EmbeddingsEnabled  bool
	LLMEnabled         bool
}

// Orchestrator wires C4 (extract), C5 (embed), C7 (llm) behind the job
// queue's task handlers, and is the single writer of Document.OCRText,
// ProcessingStatus, and the document_chunks set.
type Orchestrator struct {
	cfg       Config
	docs      *db.DocumentRepo
	tags      *db.TagRepo
	extractor *extract.Extractor
	embedder  embed.Provider
	llmProv   llm.Provider
	queue     *queue.Queue
	bus       *eventbus.Bus
}

// New builds an Orchestrator. embedder/llmProv may be nil when their
// respective feature is disabled; the orchestrator checks cfg before
// ever dereferencing them.
func New(cfg Config, docs *db.DocumentRepo, tags *db.TagRepo, extractor *extract.Extractor, embedder embed.Provider, llmProv llm.Provider, q *queue.Queue, bus *eventbus.Bus) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		docs:      docs,
		tags:      tags,
		extractor: extractor,
		embedder:  embedder,
		llmProv:   llmProv,
		queue:     q,
		bus:       bus,
	}
}

// Submit enqueues the extraction stage for a document its caller has
// already inserted as pending via db.DocumentRepo.Insert. It is
// the single entry point both the HTTP upload path and every ingest
// source call to kick off processing.
func (o *Orchestrator) Submit(ctx context.Context, docID string) error {
	if _, err := o.queue.Enqueue(ctx, queue.TaskProcessDocument, docID, nil); err != nil {
		return fmt.Errorf("submit %s: %w", docID, err)
	}
	return nil
}

// Reprocess re-enters at the extraction stage, for a manual retry API.
func (o *Orchestrator) Reprocess(ctx context.Context, docID string) error {
	if _, err := o.queue.Enqueue(ctx, queue.TaskReprocessDocument, docID, nil); err != nil {
		return fmt.Errorf("reprocess %s: %w", docID, err)
	}
	return nil
}

// RegenerateEmbeddings re-enters at the embedding stage, rejecting
// documents with no extracted text yet.
func (o *Orchestrator) RegenerateEmbeddings(ctx context.Context, docID string) error {
	text, err := o.docs.OCRText(ctx, docID)
	if err != nil {
		return fmt.Errorf("regenerate embeddings for %s: %w", docID, err)
	}
	if text == nil || *text == "" {
		return fmt.Errorf("regenerate embeddings for %s: no ocr_text available", docID)
	}
	if _, err := o.queue.Enqueue(ctx, queue.TaskGenerateEmbeddings, docID, nil); err != nil {
		return fmt.Errorf("regenerate embeddings for %s: %w", docID, err)
	}
	return nil
}

// Handlers returns the task-name -> handler map to register with the
// queue's worker pool.
func (o *Orchestrator) Handlers() map[string]queue.Handler {
	return map[string]queue.Handler{
		queue.TaskProcessDocument:    o.processDocument,
		queue.TaskReprocessDocument:  o.processDocument,
		queue.TaskGenerateEmbeddings: o.generateEmbeddings,
		queue.TaskExtractMetadata:    o.extractMetadata,
	}
}

func (o *Orchestrator) publishStatus(ctx context.Context, docID, oldStatus, newStatus string) {
	if err := o.bus.DocumentStatusChanged(ctx, docID, oldStatus, newStatus); err != nil {
		slog.Error("pipeline: publish status change failed", "doc_id", docID, "error", err)
	}
}

// processDocument is the extraction stage (spec.md C8 step 1).
func (o *Orchestrator) processDocument(ctx context.Context, job *queue.Job) error {
	docID := job.DocID
	doc, err := o.docs.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("process_document: load %s: %w", docID, err)
	}

	if err := o.docs.SetStatus(ctx, docID, model.StatusProcessing, nil); err != nil {
		return fmt.Errorf("process_document: set processing for %s: %w", docID, err)
	}
	o.publishStatus(ctx, docID, doc.ProcessingStatus, model.StatusProcessing)

	result, extractErr := o.extractor.Extract(ctx, doc.FilePath, false)
	if extractErr != nil {
		msg := extractErr.Error()
		if err := o.docs.SetStatus(ctx, docID, model.StatusFailed, &msg); err != nil {
			slog.Error("pipeline: failed to record failed status", "doc_id", docID, "error", err)
		}
		o.publishStatus(ctx, docID, model.StatusProcessing, model.StatusFailed)
		return extractErr
	}

	if result.Text == "" {
		if result.PageCount > 0 {
			if err := o.docs.UpdatePageCount(ctx, docID, result.PageCount); err != nil {
				slog.Error("pipeline: failed to persist page count for blank OCR result", "doc_id", docID, "error", err)
			}
		}
		msg := "No text could be extracted"
		if err := o.docs.SetStatus(ctx, docID, model.StatusOCRFailed, &msg); err != nil {
			return fmt.Errorf("process_document: set ocr_failed for %s: %w", docID, err)
		}
		o.publishStatus(ctx, docID, model.StatusProcessing, model.StatusOCRFailed)
		return nil
	}

	if err := o.docs.SetOCRResult(ctx, docID, result.Text, o.extractor.PrimaryLanguage(), result.PageCountPtr()); err != nil {
		return fmt.Errorf("process_document: set ocr result for %s: %w", docID, err)
	}
	o.publishStatus(ctx, docID, model.StatusProcessing, model.StatusOCRComplete)

	return o.enqueueNextAfterOCR(ctx, docID)
}

// enqueueNextAfterOCR implements step 6: embeddings if enabled, else
// metadata extraction if enabled, else nothing further.
func (o *Orchestrator) enqueueNextAfterOCR(ctx context.Context, docID string) error {
	if o.cfg.EmbeddingsEnabled {
		if _, err := o.queue.Enqueue(ctx, queue.TaskGenerateEmbeddings, docID, nil); err != nil {
			return fmt.Errorf("enqueue generate_embeddings for %s: %w", docID, err)
		}
		return nil
	}
	if o.cfg.LLMEnabled {
		if _, err := o.queue.Enqueue(ctx, queue.TaskExtractMetadata, docID, nil); err != nil {
			return fmt.Errorf("enqueue extract_metadata for %s: %w", docID, err)
		}
	}
	return nil
}

// generateEmbeddings is the embedding stage (spec.md C8 step 2).
func (o *Orchestrator) generateEmbeddings(ctx context.Context, job *queue.Job) error {
	docID := job.DocID

	text, err := o.docs.OCRText(ctx, docID)
	if err != nil {
		return fmt.Errorf("generate_embeddings: read ocr_text for %s: %w", docID, err)
	}
	if text == nil || *text == "" {
		return nil // nothing to embed; not an error
	}

	chunks := chunk.Chunk(*text, o.cfg.ChunkSize, o.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	vecs, err := o.embedder.EmbedBatch(ctx, chunks, o.cfg.EmbedBatchSize)
	if err != nil {
		msg := err.Error()
		if setErr := o.docs.SetStatus(ctx, docID, model.StatusFailed, &msg); setErr != nil {
			slog.Error("pipeline: failed to record failed status", "doc_id", docID, "error", setErr)
		}
		o.publishStatus(ctx, docID, model.StatusOCRComplete, model.StatusFailed)
		return fmt.Errorf("generate_embeddings: embed batch for %s: %w", docID, err)
	}

	if err := o.docs.ReplaceChunks(ctx, docID, chunks, vecs, o.embedder.Name()); err != nil {
		msg := err.Error()
		if setErr := o.docs.SetStatus(ctx, docID, model.StatusFailed, &msg); setErr != nil {
			slog.Error("pipeline: failed to record failed status", "doc_id", docID, "error", setErr)
		}
		o.publishStatus(ctx, docID, model.StatusOCRComplete, model.StatusFailed)
		return fmt.Errorf("generate_embeddings: replace chunks for %s: %w", docID, err)
	}
	o.publishStatus(ctx, docID, model.StatusOCRComplete, model.StatusEmbeddingComplete)

	if o.cfg.LLMEnabled {
		if _, err := o.queue.Enqueue(ctx, queue.TaskExtractMetadata, docID, nil); err != nil {
			return fmt.Errorf("enqueue extract_metadata for %s: %w", docID, err)
		}
	}
	return nil
}

// extractMetadata is the LLM stage (spec.md C8 step 3). A provider error
// is logged here and, like a malformed response, degrades to empty
// metadata so every field conditionally no-ops; it never fails the stage.
func (o *Orchestrator) extractMetadata(ctx context.Context, job *queue.Job) error {
	docID := job.DocID

	doc, err := o.docs.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("extract_metadata: load %s: %w", docID, err)
	}
	if doc.OCRText == nil {
		return nil
	}

	var existingTags []string
	if vocab, err := o.tags.List(ctx); err != nil {
		slog.Warn("pipeline: failed to load tag vocabulary, extracting without it", "doc_id", docID, "error", err)
	} else {
		for _, t := range vocab {
			existingTags = append(existingTags, t.Name)
		}
	}

	meta, err := o.llmProv.ExtractMetadata(ctx, *doc.OCRText, doc.OriginalFilename, existingTags)
	if err != nil {
		slog.Error("pipeline: extract_metadata provider error, proceeding with empty metadata", "doc_id", docID, "error", err)
		meta = model.ExtractedMetadata{}
	}

	if err := o.docs.ApplyExtractedMetadata(ctx, docID, meta); err != nil {
		return fmt.Errorf("extract_metadata: apply metadata for %s: %w", docID, err)
	}
	o.publishStatus(ctx, docID, doc.ProcessingStatus, model.StatusLLMComplete)

	applied := normalizeTags(meta.SuggestedTags)
	slog.Info("metadata tags", "doc_id", docID, "raw", meta.SuggestedTags, "applied", applied)
	for _, tag := range applied {
		if err := o.linkSuggestedTag(ctx, docID, tag); err != nil {
			slog.Error("pipeline: failed to link suggested tag, skipping", "doc_id", docID, "tag", tag, "error", err)
		}
	}
	return nil
}

// linkSuggestedTag upserts a single tag and links it, isolated from the
// rest of the tag list per spec.md C8 step 4.
func (o *Orchestrator) linkSuggestedTag(ctx context.Context, docID, tag string) error {
	tagID, err := o.docs.UpsertTag(ctx, tag)
	if err != nil {
		return err
	}
	return o.docs.LinkTag(ctx, docID, tagID, true)
}

// normalizeTags lowercases, trims, truncates to 50 chars, and drops
// empties from a raw suggested-tag list.
func normalizeTags(raw []string) []string {
	var out []string
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if len(t) > 50 {
			t = t[:50]
		}
		out = append(out, t)
	}
	return out
}
