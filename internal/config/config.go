// Package config loads all environment variables for the cartulary-go service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the document service.
type Config struct {
	// Server
	APIHost string
	APIPort string

	// Database
	DatabaseURL string

	// Storage
	StorageType     string // local | s3
	LocalStoragePath string

	// Embeddings
	EmbeddingEnabled       bool
	EmbeddingProvider      string // local | openai | ollama
	EmbeddingModel         string
	EmbeddingDimension     int
	EmbeddingChunkSize     int
	EmbeddingChunkOverlap  int
	EmbeddingBaseURL       string
	OpenAIAPIKey           string

	// LLM
	LLMEnabled  bool
	LLMProvider string // openai | gemini | ollama
	LLMModel    string
	LLMBaseURL  string

	// OCR
	OCREnabled   bool
	OCRProvider  string // auto | paddleocr | easyocr | vision-llm
	OCRLanguages []string
	OCRUseGPU    bool

	// Ingest: directory sources are configured per-row in import_sources;
	// this is the poll/reconcile cadence shared by all of them.
	IngestReconcileInterval time.Duration
	IMAPPollInterval        time.Duration

	// Queue / bus
	RedisURL     string
	BrokerURL    string
	ResultBackendURL string

	// Retrieval defaults
	RetrievalK           int
	RRFK                 int
	RRFWeightFTS         float64
	RRFWeightVector      float64
	MinRRFScore          float64
	SemanticThreshold    float64
	SnippetContextChars  int
	MaxSnippets          int

	// RAG
	RAGNumChunks int
	RAGMaxTokens int

	// Auth
	JWTSecret   string
	AuthEnabled bool
	TokenTTL    time.Duration

	// Upload
	MaxUploadBytes int64

	// Crash guard (startup recovery of jobs orphaned by a prior restart)
	QueuedJobTTLMinutes      int
	RunningJobDeadlineMinutes int

	// Timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIHost: envOr("API_HOST", "0.0.0.0"),
		APIPort: envOr("API_PORT", "8000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageType:      envOr("STORAGE_TYPE", "local"),
		LocalStoragePath: envOr("LOCAL_STORAGE_PATH", "/data/documents"),

		EmbeddingEnabled:      envBool("EMBEDDING_ENABLED", true),
		EmbeddingProvider:     envOr("EMBEDDING_PROVIDER", "local"),
		EmbeddingModel:        envOr("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingDimension:    envInt("EMBEDDING_DIMENSION", 384),
		EmbeddingChunkSize:    envInt("EMBEDDING_CHUNK_SIZE", 500),
		EmbeddingChunkOverlap: envInt("EMBEDDING_CHUNK_OVERLAP", 50),
		EmbeddingBaseURL:      envOr("EMBEDDING_BASE_URL", "http://localhost:11434"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),

		LLMEnabled:  envBool("LLM_ENABLED", true),
		LLMProvider: envOr("LLM_PROVIDER", "openai"),
		LLMModel:    envOr("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),

		OCREnabled:   envBool("OCR_ENABLED", true),
		OCRProvider:  envOr("OCR_PROVIDER", "auto"),
		OCRLanguages: envList("OCR_LANGUAGES", []string{"en"}),
		OCRUseGPU:    envBool("OCR_USE_GPU", false),

		IngestReconcileInterval: time.Duration(envInt("INGEST_RECONCILE_SECONDS", 60)) * time.Second,
		IMAPPollInterval:        time.Duration(envInt("IMAP_POLL_SECONDS", 60)) * time.Second,

		RedisURL:         envOr("REDIS_URL", "redis://localhost:6379/0"),
		BrokerURL:        os.Getenv("BROKER_URL"),
		ResultBackendURL: os.Getenv("RESULT_BACKEND_URL"),

		RetrievalK:          envInt("RETRIEVAL_K", 50),
		RRFK:                envInt("RRF_K", 60),
		RRFWeightFTS:        envFloat("RRF_WEIGHT_FTS", 0.5),
		RRFWeightVector:     envFloat("RRF_WEIGHT_VECTOR", 0.5),
		MinRRFScore:         envFloat("MIN_RRF_SCORE", 0.005),
		SemanticThreshold:   envFloat("SEMANTIC_THRESHOLD", 0.3),
		SnippetContextChars: envInt("SNIPPET_CONTEXT_CHARS", 150),
		MaxSnippets:         envInt("MAX_SNIPPETS", 3),

		RAGNumChunks: envInt("RAG_NUM_CHUNKS", 5),
		RAGMaxTokens: envInt("RAG_MAX_TOKENS", 1000),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		AuthEnabled: envBool("AUTH_ENABLED", true),
		TokenTTL:    time.Duration(envInt("TOKEN_TTL_HOURS", 24)) * time.Hour,

		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 100)) * 1024 * 1024,

		QueuedJobTTLMinutes:       envInt("QUEUED_JOB_TTL_MINUTES", 15),
		RunningJobDeadlineMinutes: envInt("RUNNING_JOB_DEADLINE_MINUTES", 30),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
