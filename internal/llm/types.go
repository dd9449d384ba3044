package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks helpdesk-kb/internal/llm Embedder

import "context"

// Embedder turns text into fixed-dimension vectors.
// EmbeddingsClient is the production implementation.
type Embedder interface {
	// GenerateEmbedding embeds a single text.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateEmbeddingsBatch embeds texts, returning one vector per input in input order.
	GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the expected vector size, or 0 if unknown.
	Dimension() int
}

var _ Embedder = (*EmbeddingsClient)(nil)
