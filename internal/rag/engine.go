package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/llm"
	"helpdesk-kb/internal/storage"
	"helpdesk-kb/internal/vectorstore"
)

// ErrEmptyQuery is returned by Search when the query has no text.
var ErrEmptyQuery = errors.New("query is empty")

const (
	// DefaultTopK is used when neither the request nor the config sets a result count.
	DefaultTopK = 5
	// DefaultMaxTopK caps the result count.
	DefaultMaxTopK = 20
	// DefaultSimilarityThreshold is the minimum cosine similarity of a result.
	DefaultSimilarityThreshold = 0.7

	// maxCandidates bounds how many vector hits one search inspects.
	maxCandidates = 1000
)

// Engine provides similarity search over the knowledge base.
type Engine interface {
	// Search embeds the query and returns the most similar indexed chunks,
	// in descending similarity order. No match is an empty slice, not an error.
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
	// Retrieve runs Search and formats the outcome for the agent layer. It never fails.
	Retrieve(ctx context.Context, query string, topK int, tc *ToolContext) RetrieveResult
	// Wait blocks until pending query-log writes have finished.
	Wait()
}

// EngineConfig holds search parameters.
type EngineConfig struct {
	Collection          string
	DefaultTopK         int
	MaxTopK             int
	SimilarityThreshold float64
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	queryLog    storage.QueryLogStore
	cfg         EngineConfig
	pending     sync.WaitGroup
}

// NewEngine creates a new search engine. Zero-valued config fields fall back to defaults.
func NewEngine(
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	queryLog storage.QueryLogStore,
	cfg EngineConfig,
) Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.DefaultTopK > cfg.MaxTopK {
		cfg.DefaultTopK = cfg.MaxTopK
	}
	return &ragEngine{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		queryLog:    queryLog,
		cfg:         cfg,
	}
}

// resolveTopK applies the default for non-positive values and the configured cap.
func (e *ragEngine) resolveTopK(k int) int {
	if k <= 0 {
		k = e.cfg.DefaultTopK
	}
	return min(k, e.cfg.MaxTopK)
}

// Search runs a similarity search.
func (e *ragEngine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	k := e.resolveTopK(req.TopK)

	logger.InfoContext(ctx, "search started", "query_length", len(query), "k", k, "threshold", e.cfg.SimilarityThreshold)

	queryVector, err := e.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var (
		results    []SearchResult
		candidates int
	)
	for fetch := k; ; fetch = min(fetch*2, maxCandidates) {
		hits, err := e.vectorStore.Search(ctx, e.cfg.Collection, queryVector, fetch, e.cfg.SimilarityThreshold)
		if err != nil {
			logger.ErrorContext(ctx, "failed to search vector store", "error", err)
			return nil, fmt.Errorf("failed to search vector store: %w", err)
		}

		results, err = e.resolveHits(ctx, hits)
		if err != nil {
			return nil, err
		}
		candidates = len(hits)

		// Dropped hits can leave fewer than k results; widen until k survive or the store runs dry.
		if len(results) >= k || len(hits) < fetch || fetch >= maxCandidates {
			break
		}
		logger.DebugContext(ctx, "widening vector search", "fetched", fetch, "kept", len(results))
	}

	sortResults(query, results)
	if len(results) > k {
		results = results[:k]
	}

	logger.InfoContext(ctx, "search completed", "results_count", len(results), "candidates", candidates)

	e.logQuery(ctx, query, req, results)
	return results, nil
}

// resolveHits joins vector hits with their chunk and document rows. Hits without a chunk
// row, hits of documents that are not indexed and hits below the threshold are dropped.
func (e *ragEngine) resolveHits(ctx context.Context, hits []vectorstore.SearchResult) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.PointID
	}

	rows, err := e.chunkRepo.GetWithDocument(ctx, ids)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load chunks", "error", err)
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		row, ok := rows[hit.PointID]
		if !ok {
			logger.DebugContext(ctx, "skipping vector without chunk row", "chunk_id", hit.PointID)
			continue
		}
		if row.Document.Status != storage.StatusIndexed {
			logger.DebugContext(ctx, "skipping chunk of unindexed document", "chunk_id", hit.PointID, "status", row.Document.Status)
			continue
		}

		sim := min(hit.Score, 1)
		if sim < e.cfg.SimilarityThreshold {
			continue
		}

		results = append(results, SearchResult{
			ChunkID:    row.Chunk.ID,
			ChunkIndex: row.Chunk.ChunkIndex,
			Text:       row.Chunk.Text,
			Metadata:   row.Chunk.Metadata,
			Similarity: sim,
			Document: DocumentRef{
				ID:        row.Document.ID,
				Title:     row.Document.Title,
				Source:    row.Document.Source,
				Metadata:  row.Document.Metadata,
				CreatedAt: row.Document.CreatedAt,
			},
		})
	}
	return results, nil
}

// sortResults orders by descending similarity. Equal similarities are ordered by lexical
// overlap with the query, then by chunk ID.
func sortResults(query string, results []SearchResult) {
	lexical := make(map[string]float64, len(results))
	for _, r := range results {
		lexical[r.ChunkID] = lexicalOverlap(query, r.Text, r.Document.Title)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if lexical[a.ChunkID] != lexical[b.ChunkID] {
			return lexical[a.ChunkID] > lexical[b.ChunkID]
		}
		return a.ChunkID < b.ChunkID
	})
}

// logQuery appends the query log in the background. Failures are logged and never
// reach the caller; the write outlives cancellation of ctx.
func (e *ragEngine) logQuery(ctx context.Context, query string, req SearchRequest, results []SearchResult) {
	if e.queryLog == nil {
		return
	}

	chunks := make([]storage.RetrievedChunk, len(results))
	for i, r := range results {
		chunks[i] = storage.RetrievedChunk{ChunkID: r.ChunkID, Similarity: r.Similarity}
	}
	entry := &storage.QueryLogEntry{
		QueryText:      query,
		ResultsCount:   len(results),
		Chunks:         chunks,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
	}

	logger := contextutil.LoggerFromContext(ctx)
	bg := context.WithoutCancel(ctx)

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		if err := e.queryLog.Append(bg, entry); err != nil {
			logger.WarnContext(bg, "failed to append query log", "error", err)
		}
	}()
}

// Wait blocks until all background query-log writes are done.
func (e *ragEngine) Wait() {
	e.pending.Wait()
}
