package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tedkulp/cartulary-go/internal/activity"
	"github.com/tedkulp/cartulary-go/internal/auth"
	"github.com/tedkulp/cartulary-go/internal/blob"
	"github.com/tedkulp/cartulary-go/internal/config"
	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/embed"
	"github.com/tedkulp/cartulary-go/internal/eventbus"
	"github.com/tedkulp/cartulary-go/internal/extract"
	"github.com/tedkulp/cartulary-go/internal/handler"
	"github.com/tedkulp/cartulary-go/internal/ingest"
	"github.com/tedkulp/cartulary-go/internal/llm"
	authmw "github.com/tedkulp/cartulary-go/internal/middleware"
	"github.com/tedkulp/cartulary-go/internal/pipeline"
	"github.com/tedkulp/cartulary-go/internal/queue"
	"github.com/tedkulp/cartulary-go/internal/rag"
	"github.com/tedkulp/cartulary-go/internal/retrieval"
)

const processWorkerCount = 4

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.StartupChecks(ctx, pool); err != nil {
		slog.Error("startup checks failed", "error", err)
		os.Exit(1)
	}

	if err := db.RunCrashGuard(ctx, pool, cfg.QueuedJobTTLMinutes, cfg.RunningJobDeadlineMinutes); err != nil {
		slog.Error("crash guard failed", "error", err)
		os.Exit(1)
	}

	embeddingsEnabled := cfg.EmbeddingEnabled
	var embedder embed.Provider
	if embeddingsEnabled {
		embedder, err = embed.NewProvider(embed.Config{
			Provider:     cfg.EmbeddingProvider,
			Model:        cfg.EmbeddingModel,
			Dimension:    cfg.EmbeddingDimension,
			BaseURL:      cfg.EmbeddingBaseURL,
			OpenAIAPIKey: cfg.OpenAIAPIKey,
		})
		if err != nil {
			slog.Error("failed to build embedding provider", "error", err)
			os.Exit(1)
		}
		if err := db.CheckEmbeddingDimension(ctx, pool, embedder.Dimension()); err != nil {
			slog.Warn("embedding dimension check failed, disabling embeddings for this run", "error", err)
			embeddingsEnabled = false
			embedder = nil
		}
	}

	llmEnabled := cfg.LLMEnabled
	var llmProv llm.Provider
	if llmEnabled {
		llmProv, err = llm.NewProvider(ctx, llm.Config{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
			APIKey:   llmAPIKey(cfg),
		})
		if err != nil {
			slog.Error("failed to build LLM provider", "error", err)
			os.Exit(1)
		}
	}

	extractor, err := extract.NewExtractor(ctx, extract.Config{
		OCREnabled:  cfg.OCREnabled,
		OCRProvider: cfg.OCRProvider,
		OCRLangs:    cfg.OCRLanguages,
		OCRUseGPU:   cfg.OCRUseGPU,
	})
	if err != nil {
		slog.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	store, err := blob.NewStore(cfg.LocalStoragePath)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	bus, err := eventbus.New(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()
	go func() {
		if err := bus.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("event bus stopped", "error", err)
		}
	}()

	docs := db.NewDocumentRepo(pool)
	shares := db.NewShareRepo(pool)
	tags := db.NewTagRepo(pool)
	users := db.NewUserRepo(pool)
	sources := db.NewImportSourceRepo(pool)
	jobQueue := queue.New(pool)
	activityLog := activity.New(pool)
	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	orch := pipeline.New(pipeline.Config{
		ChunkSize:         cfg.EmbeddingChunkSize,
		ChunkOverlap:      cfg.EmbeddingChunkOverlap,
		EmbedBatchSize:    16,
		EmbeddingsEnabled: embeddingsEnabled,
		LLMEnabled:        llmEnabled,
	}, docs, tags, extractor, embedder, llmProv, jobQueue, bus)

	ingestDeps := ingest.Deps{Docs: docs, Blob: store, Orch: orch, Bus: bus}

	workerPool := queue.NewPool(jobQueue, orch.Handlers())
	go workerPool.Run(ctx, processWorkerCount)

	dirWatcher := ingest.NewDirectoryWatcher(ingestDeps, sources)
	go dirWatcher.Run(ctx)

	imapPoller := ingest.NewIMAPPoller(ingestDeps, sources)
	go imapPoller.Run(ctx)

	retrievalEngine := retrieval.New(pool, embedder, retrieval.Config{
		RRFK:                cfg.RRFK,
		RRFWeightFTS:        cfg.RRFWeightFTS,
		RRFWeightVector:     cfg.RRFWeightVector,
		MinRRFScore:         cfg.MinRRFScore,
		SemanticThreshold:   cfg.SemanticThreshold,
		SnippetContextChars: cfg.SnippetContextChars,
		MaxSnippets:         cfg.MaxSnippets,
	})
	answerer := rag.New(retrievalEngine, llmProv)

	documentHandler := handler.NewDocumentHandler(docs, shares, retrievalEngine, ingestDeps, activityLog, cfg.MaxUploadBytes)
	searchHandler := handler.NewSearchHandler(retrievalEngine, cfg.RetrievalK)
	ragHandler := handler.NewRAGHandler(answerer)
	shareHandler := handler.NewShareHandler(docs, shares, activityLog)
	tagHandler := handler.NewTagHandler(tags, docs, shares)
	sourceHandler := handler.NewImportSourceHandler(sources)
	authHandler := handler.NewAuthHandler(users, authSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":"%s"}`, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Post("/v1/auth/register", authHandler.Register)
	r.Post("/v1/auth/login", authHandler.Login)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(authSvc, cfg.AuthEnabled))

		r.Get("/documents", documentHandler.List)
		r.Post("/documents", documentHandler.Upload)
		r.Get("/documents/{id}", documentHandler.Get)
		r.Delete("/documents/{id}", documentHandler.Delete)

		r.Get("/documents/{id}/shares", shareHandler.List)
		r.Post("/documents/{id}/shares", shareHandler.Create)
		r.Delete("/documents/{id}/shares/{shareID}", shareHandler.Revoke)

		r.Get("/documents/{id}/tags", tagHandler.ForDocument)
		r.Delete("/documents/{id}/tags/{tagID}", tagHandler.Unlink)

		r.Get("/tags", tagHandler.List)

		r.Get("/search", searchHandler.Search)
		r.Post("/ask", ragHandler.Ask)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireSuperuser())
			r.Get("/admin/import-sources", sourceHandler.List)
			r.Post("/admin/import-sources", sourceHandler.Create)
			r.Get("/admin/import-sources/{id}", sourceHandler.Get)
			r.Patch("/admin/import-sources/{id}", sourceHandler.UpdateStatus)
			r.Delete("/admin/import-sources/{id}", sourceHandler.Delete)
		})
	})

	webDir := os.Getenv("WEB_DIR")
	if webDir == "" {
		webDir = "/web"
	}
	if info, err := os.Stat(webDir); err == nil && info.IsDir() {
		slog.Info("serving web UI", "dir", webDir)
		fs := http.FileServer(http.Dir(webDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				http.ServeFile(w, r, webDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
	} else {
		slog.Info("web UI not available", "dir", webDir, "reason", "directory not found")
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server...")

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(cancelCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// llmAPIKey picks the provider-appropriate credential; only OpenAI and
// Gemini need one, Ollama runs unauthenticated against a local endpoint.
func llmAPIKey(cfg *config.Config) string {
	switch cfg.LLMProvider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
