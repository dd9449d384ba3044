package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks helpdesk-kb/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
// ID is the chunk ID; Meta carries document_id and chunk_index.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Score is the cosine similarity between the query and the point.
type SearchResult struct {
	PointID string
	Score   float64
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection is present.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns at most k points whose similarity is at least minScore,
	// ordered by descending similarity.
	Search(ctx context.Context, collection string, query []float32, k int, minScore float64) ([]SearchResult, error)

	// Delete removes points by their IDs. Missing IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error
}
