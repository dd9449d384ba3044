package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/vectorstore"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheckTimeout bounds all dependency checks of one health request.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler reports whether the document store and the vector backend are reachable.
type HealthHandler struct {
	backend string
	checks  []dependencyCheck
}

// dependencyCheck tests one dependency; issue is reported when check fails.
type dependencyCheck struct {
	name  string
	issue string
	check func(ctx context.Context) error
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, vectorStore vectorstore.VectorStore, backend, collectionName string) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		checks: []dependencyCheck{
			{name: "database", issue: "database_unavailable", check: db.PingContext},
			{name: "vector_store", issue: "vector_store_unavailable", check: func(ctx context.Context) error {
				exists, err := vectorStore.CollectionExists(ctx, collectionName)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("collection %s does not exist", collectionName)
				}
				return nil
			}},
		},
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Vector backend in use: sqlite, qdrant or pgvector
	Backend string `json:"backend"`

	// Result of each dependency check: "ok" or "error"
	Checks map[string]string `json:"checks"`

	// Failed checks (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP returns 200 when every dependency answers, 503 otherwise.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// responses:
//
//	'200':
//	  description: System is healthy
//	'503':
//	  description: System is unhealthy
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Backend:   h.backend,
		Checks:    make(map[string]string, len(h.checks)),
	}
	for _, p := range h.checks {
		if err := p.check(checkCtx); err != nil {
			logger.WarnContext(ctx, "health check failed", "check", p.name, "error", err)
			resp.Checks[p.name] = "error"
			resp.Issues = append(resp.Issues, p.issue)
			continue
		}
		resp.Checks[p.name] = "ok"
	}

	status := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, status, resp)
}
