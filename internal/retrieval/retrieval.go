// Package retrieval implements the hybrid retrieval engine (C10):
// fulltext search, pgvector cosine similarity search, and a Reciprocal
// Rank Fusion merge of the two, each filtered by the access predicate so
// a user only ever sees documents they can read.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tedkulp/cartulary-go/internal/access"
	"github.com/tedkulp/cartulary-go/internal/embed"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// Mode selects which retrieval path Search runs.
type Mode string

const (
	ModeFulltext Mode = "fulltext"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Config holds the tunables spec.md pins defaults for.
type Config struct {
	RRFK                int
	RRFWeightFTS        float64
	RRFWeightVector     float64
	MinRRFScore         float64
	SemanticThreshold   float64
	SnippetContextChars int
	MaxSnippets         int
}

// Engine is the retrieval repository: direct SQL over the documents and
// document_chunks tables, following the teacher's flat inline-query
// style rather than a query builder.
type Engine struct {
	pool    *pgxpool.Pool
	embedder embed.Provider
	cfg     Config
}

// New builds an Engine.
func New(pool *pgxpool.Pool, embedder embed.Provider, cfg Config) *Engine {
	return &Engine{pool: pool, embedder: embedder, cfg: cfg}
}

// Search runs the requested mode for query against user's accessible
// document set and returns up to limit results.
func (e *Engine) Search(ctx context.Context, mode Mode, query string, user model.User, limit int) ([]model.SearchResult, error) {
	switch mode {
	case ModeFulltext:
		return e.fulltextSearch(ctx, query, user, 0, limit)
	case ModeSemantic:
		return e.semanticSearch(ctx, query, user, limit)
	case ModeHybrid:
		return e.hybridSearch(ctx, query, user, limit)
	default:
		return nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
}

// Count returns the number of documents the fulltext query matches for
// user, ignoring pagination — used by list_documents-style callers
// alongside fulltextSearch's skip/limit.
func (e *Engine) Count(ctx context.Context, query string, user model.User) (int, error) {
	where, args := e.fulltextWhere(query, user)
	var n int
	sql := fmt.Sprintf(`SELECT count(*) FROM documents d WHERE %s`, where)
	if err := e.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fulltext matches: %w", err)
	}
	return n, nil
}

// List runs the paginated fulltext listing (query may be empty to list
// all accessible documents), sorted by created_at desc.
func (e *Engine) List(ctx context.Context, query string, user model.User, skip, limit int) ([]model.SearchResult, error) {
	return e.fulltextSearch(ctx, query, user, skip, limit)
}

func (e *Engine) fulltextWhere(query string, user model.User) (string, []any) {
	args := []any{user.ID}
	accessFilter := "TRUE"
	if !user.IsSuperuser {
		accessFilter = access.SQLFilter(1, model.PermissionRead)
	}

	if strings.TrimSpace(query) == "" {
		return accessFilter, args
	}

	args = append(args, "%"+query+"%")
	matchFilter := fmt.Sprintf(`(
		d.title ILIKE $%[1]d OR d.original_filename ILIKE $%[1]d OR
		d.ocr_text ILIKE $%[1]d OR d.extracted_title ILIKE $%[1]d OR
		d.extracted_correspondent ILIKE $%[1]d
	)`, len(args))
	return fmt.Sprintf("%s AND %s", accessFilter, matchFilter), args
}

func (e *Engine) fulltextSearch(ctx context.Context, query string, user model.User, skip, limit int) ([]model.SearchResult, error) {
	where, args := e.fulltextWhere(query, user)
	args = append(args, limit, skip)

	sql := fmt.Sprintf(`
		SELECT id, owner_id, uploaded_by, title, original_filename, file_path,
		       file_size, mime_type, checksum, ocr_text, ocr_language, page_count,
		       extracted_title, extracted_date, extracted_correspondent,
		       extracted_document_type, extracted_summary, is_public,
		       processing_status, processing_error, created_at, updated_at
		  FROM documents d
		 WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var d model.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, fmt.Errorf("scan fulltext result: %w", err)
		}
		results = append(results, model.SearchResult{
			Document:   d,
			Score:      1.0,
			Highlights: extractSnippets(d, query, e.cfg.MaxSnippets, e.cfg.SnippetContextChars),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fulltext results: %w", err)
	}
	return results, nil
}

// rowScanner is the subset of pgx.Rows that scanDocument needs, shared
// with the semantic path's extended SELECT.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, d *model.Document) error {
	return row.Scan(
		&d.ID, &d.OwnerID, &d.UploadedBy, &d.Title, &d.OriginalFilename, &d.FilePath,
		&d.FileSize, &d.MimeType, &d.Checksum, &d.OCRText, &d.OCRLanguage, &d.PageCount,
		&d.ExtractedTitle, &d.ExtractedDate, &d.ExtractedCorrespondent,
		&d.ExtractedDocumentType, &d.ExtractedSummary, &d.IsPublic,
		&d.ProcessingStatus, &d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
	)
}

func (e *Engine) semanticSearch(ctx context.Context, query string, user model.User, limit int) ([]model.SearchResult, error) {
	qVec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return e.semanticSearchVec(ctx, qVec, user, limit, e.cfg.SemanticThreshold)
}

func (e *Engine) semanticSearchVec(ctx context.Context, qVec []float32, user model.User, limit int, threshold float64) ([]model.SearchResult, error) {
	args := []any{user.ID, pgvector.NewVector(qVec), threshold}
	accessFilter := "TRUE"
	if !user.IsSuperuser {
		accessFilter = access.SQLFilter(1, model.PermissionRead)
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (d.id)
		       d.id, d.owner_id, d.uploaded_by, d.title, d.original_filename, d.file_path,
		       d.file_size, d.mime_type, d.checksum, d.ocr_text, d.ocr_language, d.page_count,
		       d.extracted_title, d.extracted_date, d.extracted_correspondent,
		       d.extracted_document_type, d.extracted_summary, d.is_public,
		       d.processing_status, d.processing_error, d.created_at, d.updated_at,
		       c.id AS chunk_id, c.chunk_text, 1 - (c.embedding <=> $2) AS similarity
		  FROM documents d
		  JOIN document_chunks c ON c.document_id = d.id
		 WHERE %s
		   AND 1 - (c.embedding <=> $2) >= $3
		 ORDER BY d.id, similarity DESC
		 LIMIT $%d`, accessFilter, len(args))

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var d model.Document
		var chunkID, chunkText string
		var similarity float64
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.UploadedBy, &d.Title, &d.OriginalFilename, &d.FilePath,
			&d.FileSize, &d.MimeType, &d.Checksum, &d.OCRText, &d.OCRLanguage, &d.PageCount,
			&d.ExtractedTitle, &d.ExtractedDate, &d.ExtractedCorrespondent,
			&d.ExtractedDocumentType, &d.ExtractedSummary, &d.IsPublic,
			&d.ProcessingStatus, &d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
			&chunkID, &chunkText, &similarity,
		); err != nil {
			return nil, fmt.Errorf("scan semantic result: %w", err)
		}
		results = append(results, model.SearchResult{
			Document:       d,
			Score:          similarity,
			MatchedChunk:   &chunkText,
			MatchedChunkID: &chunkID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semantic results: %w", err)
	}
	return results, nil
}

// Semantic runs the semantic retrieval path with an explicit threshold,
// exported for the RAG answerer (C11), which applies its own default
// distinct from the general-purpose search threshold.
func (e *Engine) Semantic(ctx context.Context, query string, user model.User, limit int, threshold float64) ([]model.SearchResult, error) {
	qVec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return e.semanticSearchVec(ctx, qVec, user, limit, threshold)
}

// hybridSearch runs both paths concurrently with 2*limit candidates,
// merges by RRF, and filters by MinRRFScore, building results from the
// sub-search rows themselves (the access predicate is already enforced
// by each sub-search). Grounded on the teacher's RetrievalService.Retrieve,
// which runs its vector and FTS queries in parallel goroutines joined
// by a sync.WaitGroup rather than sequentially.
func (e *Engine) hybridSearch(ctx context.Context, query string, user model.User, limit int) ([]model.SearchResult, error) {
	candidates := 2 * limit

	qVec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var (
		wg                     sync.WaitGroup
		ftsResults, vecResults []model.SearchResult
		ftsErr, vecErr         error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ftsResults, ftsErr = e.fulltextSearch(ctx, query, user, 0, candidates)
	}()
	go func() {
		defer wg.Done()
		vecResults, vecErr = e.semanticSearchVec(ctx, qVec, user, candidates, 0)
	}()
	wg.Wait()

	if ftsErr != nil {
		return nil, fmt.Errorf("fulltext leg of hybrid search: %w", ftsErr)
	}
	if vecErr != nil {
		return nil, fmt.Errorf("semantic leg of hybrid search: %w", vecErr)
	}

	vecChunks := toChunkResults(vecResults)
	ftsChunks := toChunkResults(ftsResults)
	merged := mergeRRF(vecChunks, ftsChunks, e.cfg.RRFK, e.cfg.RRFWeightVector, e.cfg.RRFWeightFTS)

	docsByID := make(map[string]model.Document, len(vecResults)+len(ftsResults))
	chunkByDoc := make(map[string]string, len(vecResults))
	for _, r := range vecResults {
		docsByID[r.Document.ID] = r.Document
		if r.MatchedChunk != nil {
			chunkByDoc[r.Document.ID] = *r.MatchedChunk
		}
	}
	for _, r := range ftsResults {
		if _, ok := docsByID[r.Document.ID]; !ok {
			docsByID[r.Document.ID] = r.Document
		}
	}

	var out []model.SearchResult
	for _, cr := range merged {
		if cr.RRFScore < e.cfg.MinRRFScore {
			continue
		}
		doc, ok := docsByID[cr.DocumentID]
		if !ok {
			continue
		}
		sr := model.SearchResult{Document: doc, Score: cr.RRFScore}
		if chunk, ok := chunkByDoc[cr.DocumentID]; ok {
			c := chunk
			sr.MatchedChunk = &c
		}
		out = append(out, sr)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// toChunkResults flattens SearchResult rows into the ChunkResult shape
// mergeRRF operates on, keyed by document id (one row per document from
// both the fulltext and DISTINCT ON semantic queries, so document id
// doubles as the rank key).
func toChunkResults(results []model.SearchResult) []model.ChunkResult {
	out := make([]model.ChunkResult, 0, len(results))
	for _, r := range results {
		cr := model.ChunkResult{
			ChunkID:    r.Document.ID,
			DocumentID: r.Document.ID,
			Title:      r.Document.Title,
		}
		if r.MatchedChunk != nil {
			cr.ChunkText = *r.MatchedChunk
			cr.VecScore = r.Score
		} else {
			cr.FTSScore = r.Score
		}
		out = append(out, cr)
	}
	return out
}
