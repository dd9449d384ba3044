package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"helpdesk-kb/internal/handlers"
	"helpdesk-kb/internal/service"
	"helpdesk-kb/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Knowledge   service.KnowledgeService
	DB          handlers.Pinger
	VectorStore vectorstore.VectorStore
	Backend     string
	Collection  string
	MaxFileSize int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	documents := handlers.NewDocumentHandler(deps.Knowledge, deps.MaxFileSize)

	r.Method(http.MethodGet, HealthPath, handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.Backend, deps.Collection))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documents.List)
			r.Post("/", documents.Create)
			r.Post("/upload", documents.Upload)
			r.Post("/batch", documents.Batch)
			r.Get("/{id}", documents.Get)
			r.Delete("/{id}", documents.Delete)
		})
		r.Method(http.MethodPost, "/search", handlers.NewSearchHandler(deps.Knowledge))
		r.Method(http.MethodPost, "/retrieve", handlers.NewRetrieveHandler(deps.Knowledge))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Knowledge))
	})

	return r
}
