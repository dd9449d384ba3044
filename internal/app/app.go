// Package app wires configuration, storage and services into a running knowledge base.
// Both the API server and kbctl build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"helpdesk-kb/internal/config"
	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/indexer"
	"helpdesk-kb/internal/llm"
	"helpdesk-kb/internal/rag"
	"helpdesk-kb/internal/service"
	"helpdesk-kb/internal/storage"
	"helpdesk-kb/internal/vectorstore"
)

// App holds the wired components of the knowledge base.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	VectorStore vectorstore.VectorStore
	Embedder    llm.Embedder
	Extractors  *extract.Registry
	Engine      rag.Engine
	Knowledge   service.KnowledgeService

	closers []func() error
}

// NewLogger builds the process logger from the log level and format settings.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Options overrides components built by New. Nil fields use the configured defaults.
type Options struct {
	Embedder llm.Embedder
}

// New opens the database, connects the vector backend and builds the services.
// The returned App must be closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	vs, err := newVectorStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	a.VectorStore = vs
	if c, ok := vs.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	if err := vs.EnsureCollection(ctx, cfg.QdrantCollection, cfg.Embedding.Dimension); err != nil {
		return nil, fmt.Errorf("failed to ensure vector collection: %w", err)
	}
	slog.Info("Vector collection ready", "backend", cfg.VectorBackend, "collection", cfg.QdrantCollection, "vector_size", cfg.Embedding.Dimension)

	a.Embedder = opts.Embedder
	if a.Embedder == nil {
		a.Embedder = llm.NewEmbeddingsClient(llm.EmbeddingsConfig{
			BaseURL:       cfg.EmbeddingBaseURL,
			APIKey:        cfg.EmbeddingAPIKey,
			Model:         cfg.Embedding.Model,
			Dimension:     cfg.Embedding.Dimension,
			BatchSize:     cfg.Embedding.BatchSize,
			MaxInputChars: cfg.Embedding.MaxInputChars,
			MaxRetries:    cfg.Embedding.MaxRetries,
			RetryDelay:    cfg.Embedding.RetryDelay,
			RateLimit:     cfg.Embedding.RateLimit,
			Timeout:       cfg.Embedding.Timeout,
		})
	}

	documents := storage.NewDocumentRepo(db)
	chunks := storage.NewChunkRepo(db)
	queryLog := storage.NewQueryLogRepo(db)

	chunker := indexer.NewChunker(
		indexer.WithChunkSize(cfg.Chunking.ChunkSize),
		indexer.WithOverlap(cfg.Chunking.ChunkOverlap),
		indexer.WithMinChunkSize(cfg.Chunking.MinChunkSize),
	)
	pipeline := indexer.NewPipeline(documents, chunks, a.Embedder, vs, cfg.QdrantCollection, chunker)

	a.Engine = rag.NewEngine(a.Embedder, vs, chunks, queryLog, rag.EngineConfig{
		Collection:          cfg.QdrantCollection,
		DefaultTopK:         cfg.Retrieval.TopK,
		MaxTopK:             cfg.Retrieval.MaxTopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
	})
	a.closers = append(a.closers, func() error {
		a.Engine.Wait()
		return nil
	})

	a.Extractors = extract.NewDefaultRegistry(cfg.MaxFileSize)
	a.Knowledge = service.NewKnowledgeService(pipeline, a.Engine, documents, chunks, queryLog, a.Extractors, cfg.Embedding.Model)

	return a, nil
}

// newVectorStore connects the configured vector backend.
func newVectorStore(ctx context.Context, cfg *config.Config, db *sql.DB) (vectorstore.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		vs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		return vs, nil
	case config.BackendPgvector:
		vs, err := vectorstore.NewPgvectorStore(ctx, cfg.PgvectorDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to pgvector: %w", err)
		}
		return vs, nil
	case config.BackendSQLite, "":
		return vectorstore.NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// ValidateEmbedder embeds a sample text and checks the vector size.
func ValidateEmbedder(ctx context.Context, embedder llm.Embedder, dimension int) error {
	vec, err := embedder.GenerateEmbedding(ctx, "test")
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vec) != dimension {
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", dimension, len(vec))
	}
	return nil
}

// Close waits for background writes and releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
