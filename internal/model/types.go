// Package model defines the domain entities shared across the core
// components: documents, chunks, tags, users, shares, import sources,
// and the retrieval/RAG result shapes built on top of them.
package model

import "time"

// Processing status values for Document.ProcessingStatus.
const (
	StatusPending            = "pending"
	StatusProcessing         = "processing"
	StatusOCRComplete        = "ocr_complete"
	StatusOCRFailed          = "ocr_failed"
	StatusEmbeddingComplete  = "embedding_complete"
	StatusLLMComplete        = "llm_complete"
	StatusFailed             = "failed"
)

// PermissionLevel orders read < write < admin for share comparisons.
type PermissionLevel string

const (
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
	PermissionAdmin PermissionLevel = "admin"
)

// Rank returns the ordinal used to compare permission levels, higher is
// more privileged.
func (p PermissionLevel) Rank() int {
	switch p {
	case PermissionAdmin:
		return 3
	case PermissionWrite:
		return 2
	case PermissionRead:
		return 1
	default:
		return 0
	}
}

// Document is the ownership root: one uploaded or ingested file plus its
// derived state. Mutated only by the pipeline orchestrator and by explicit
// user edits that never touch the Extracted* fields.
type Document struct {
	ID           string
	OwnerID      string
	UploadedBy   *string // nil distinguishes an ingestion-source document
	Title        string
	OriginalFilename string
	FilePath     string // relative key inside the blob store
	FileSize     int64
	MimeType     string
	Checksum     string // SHA-256 hex, lowercased

	OCRText     *string
	OCRLanguage *string
	PageCount   *int

	ExtractedTitle          *string
	ExtractedDate           *string // YYYY-MM-DD
	ExtractedCorrespondent  *string
	ExtractedDocumentType   *string
	ExtractedSummary        *string

	IsPublic         bool
	ProcessingStatus string
	ProcessingError  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentChunk is one embedded slice of a Document's OCRText.
type DocumentChunk struct {
	ID             string
	DocumentID     string
	ChunkIndex     int
	ChunkText      string
	Embedding      []float32
	EmbeddingModel string
	CreatedAt      time.Time
}

// Tag is a global, case-insensitively unique label.
type Tag struct {
	ID          string
	Name        string // lowercased, <=50 chars
	Color       *string
	Description *string
	CreatedBy   *string
	CreatedAt   time.Time
}

// DocumentTag links a Document to a Tag, optionally recording that the
// link was suggested by the LLM metadata-extraction stage rather than
// applied by a human.
type DocumentTag struct {
	DocumentID   string
	TagID        string
	Confidence   *float64
	IsAutoTagged bool
	TaggedAt     time.Time
}

// Role groups a set of permissions and is attached to a User.
type Role struct {
	ID          string
	Name        string
	Permissions []string
}

// User is an account in the system. Superuser bypasses all access checks.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	Roles        []Role
	CreatedAt    time.Time
}

// DocumentShare grants a user access to a document at a permission level,
// optionally expiring. At most one active share may exist per
// (document, user) pair.
type DocumentShare struct {
	ID               string
	DocumentID       string
	SharedWithUserID string
	SharedByUserID   *string
	PermissionLevel  PermissionLevel
	ExpiresAt        *time.Time
	CreatedAt        time.Time
}

// Active reports whether the share currently grants access as of now.
func (s DocumentShare) Active(now time.Time) bool {
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// ImportSourceType enumerates the two ingest source kinds.
type ImportSourceType string

const (
	ImportSourceDirectory ImportSourceType = "directory"
	ImportSourceIMAP      ImportSourceType = "imap"
)

// ImportSourceStatus enumerates the health states of an ImportSource.
type ImportSourceStatus string

const (
	ImportSourceActive ImportSourceStatus = "active"
	ImportSourcePaused ImportSourceStatus = "paused"
	ImportSourceError  ImportSourceStatus = "error"
)

// ImportSource is a configured origin that pushes new documents into the
// pipeline: a watched directory or a polled IMAP mailbox.
type ImportSource struct {
	ID         string
	Name       string
	SourceType ImportSourceType
	Status     ImportSourceStatus
	OwnerID    string
	LastRun    *time.Time
	LastError  *string

	// Directory fields.
	WatchPath       *string
	MoveAfterImport bool
	MoveToPath      *string
	DeleteAfterImport bool

	// IMAP fields.
	IMAPHost           *string
	IMAPPort           *int
	IMAPUsername       *string
	IMAPPassword       *string
	IMAPUseSSL         bool
	IMAPMailbox        *string
	IMAPProcessedFolder *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActivityLog is one recorded mutating action, written by the HTTP
// surface's handlers via the activity logging sink.
type ActivityLog struct {
	ID           string
	UserID       *string
	Action       string
	ResourceType string
	ResourceID   *string
	Description  string
	ExtraData    map[string]any
	IPAddress    *string
	UserAgent    *string
	CreatedAt    time.Time
}

// ChunkResult is a chunk surfaced by one retrieval path (fulltext,
// semantic, or the RRF merge of both), carrying whichever scores its
// source path computed.
type ChunkResult struct {
	ChunkID    string
	DocumentID string
	Title      string
	ChunkText  string

	VecScore float64 // cosine similarity, 1 - distance
	FTSScore float64 // fulltext score (1.0 for every substring match)
	RRFScore float64 // reciprocal rank fusion score

	VecRank int // 1-based; 0 if absent from this list
	FTSRank int
}

// SearchResult is one row of a retrieval response: the document plus its
// relevance score, any highlighted snippets, and (for semantic/hybrid
// modes) the best-matching chunk.
type SearchResult struct {
	Document       Document
	Score          float64
	Highlights     []string
	MatchedChunk   *string
	MatchedChunkID *string
}

// RAGAnswer is the output of the RAG answerer (C11).
type RAGAnswer struct {
	Answer     string
	Sources    []Document
	ChunksUsed []DocumentChunk
}

// EventEnvelope is the wire shape published on the event bus.
type EventEnvelope struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event type constants produced by the core.
const (
	EventDocumentCreated       = "document.created"
	EventDocumentUpdated       = "document.updated"
	EventDocumentDeleted       = "document.deleted"
	EventDocumentStatusChanged = "document.status_changed"
)

// ExtractedMetadata is the parsed output of the LLM metadata-extraction
// operation (C7a).
type ExtractedMetadata struct {
	Title             string
	Correspondent     string
	DocumentDate      string // YYYY-MM-DD or ""
	DocumentType      string
	Summary           string
	SuggestedTags     []string
}
