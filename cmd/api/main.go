package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-kb/internal/app"
	"helpdesk-kb/internal/config"
	"helpdesk-kb/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API ingests support documents and answers similarity searches over them.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Helpdesk Knowledge Base API
//   description: |
//     Knowledge base for customer-support agents. Documents are chunked, embedded and
//     stored; searches return the most similar passages above a similarity threshold.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kb, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize knowledge base: %v", err)
	}
	defer func() {
		if err := kb.Close(); err != nil {
			slog.Error("Shutdown completed with errors", "error", err)
		}
	}()

	// Validate embedding client vector size (fail-fast)
	if err := app.ValidateEmbedder(ctx, kb.Embedder, cfg.Embedding.Dimension); err != nil {
		slog.Error("Embedding client validation failed", "error", err)
		return
	}
	slog.Info("Embedding client validated", "model", cfg.Embedding.Model, "vector_size", cfg.Embedding.Dimension)

	router := http.NewRouter(&http.Deps{
		Knowledge:   kb.Knowledge,
		DB:          kb.DB,
		VectorStore: kb.VectorStore,
		Backend:     cfg.VectorBackend,
		Collection:  cfg.QdrantCollection,
		MaxFileSize: cfg.MaxFileSize,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, draining requests")
	case err := <-serverErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown failed", "error", err)
	}
	slog.Info("API server stopped")
}
