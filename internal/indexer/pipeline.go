package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/llm"
	"helpdesk-kb/internal/storage"
	"helpdesk-kb/internal/vectorstore"
)

var (
	// ErrEmptyContent is returned by AddDocument when the document has no text.
	ErrEmptyContent = errors.New("document content is empty")
	// ErrNoChunks is returned by AddDocument when non-empty text yields no chunk.
	ErrNoChunks = errors.New("no chunks generated")
)

// DefaultSource is recorded when a document arrives without a provenance tag.
const DefaultSource = "upload"

// Pipeline orchestrates ingestion of documents into SQLite and the vector store.
type Pipeline struct {
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *Chunker
}

// NewPipeline creates a new ingestion pipeline. A nil chunker uses the default settings.
func NewPipeline(
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunker *Chunker,
) *Pipeline {
	if chunker == nil {
		chunker = NewChunker()
	}
	return &Pipeline{
		documents:   documents,
		chunks:      chunks,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     chunker,
	}
}

// Chunker returns the chunker used for ingestion.
func (p *Pipeline) Chunker() *Chunker {
	return p.chunker
}

// AddDocument chunks and embeds a document, then stores it with its chunks and vectors.
//
// All embeddings are generated before anything is written. The document and its chunk rows
// are inserted in one transaction with status pending; vectors are upserted next and the
// document is marked indexed last. If the vector upsert or the status update fails, the
// document row (and by cascade its chunks) and any written vectors are removed, so a
// document is either fully indexed or absent.
func (p *Pipeline) AddDocument(ctx context.Context, doc NewDocument) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(doc.Content) == "" {
		return "", ErrEmptyContent
	}
	source := doc.Source
	if source == "" {
		source = DefaultSource
	}

	chunks := p.chunker.ChunkText(doc.Content, doc.Metadata)
	if len(chunks) == 0 {
		logger.ErrorContext(ctx, "no chunks generated", "title", doc.Title,
			"chunk_size", p.chunker.ChunkSize(), "min_chunk_size", p.chunker.MinChunkSize())
		return "", fmt.Errorf("%w for document %q", ErrNoChunks, doc.Title)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.GenerateEmbeddingsBatch(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return "", fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	record := &storage.DocumentRecord{
		Title:    doc.Title,
		Content:  doc.Content,
		Metadata: doc.Metadata,
		Source:   source,
		Status:   storage.StatusPending,
	}

	chunkRecords := make([]storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.New().String()
		chunkRecords[i] = storage.ChunkRecord{
			ID:         ids[i],
			ChunkIndex: c.Index,
			Text:       c.Text,
			Metadata:   c.Metadata,
		}
	}

	if err := p.documents.InsertWithChunks(ctx, record, chunkRecords); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:  ids[i],
			Vec: embeddings[i],
			Meta: map[string]any{
				"document_id": record.ID,
				"chunk_index": c.Index,
				"title":       record.Title,
				"source":      record.Source,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		p.discard(ctx, record.ID, ids, err)
		return "", fmt.Errorf("failed to upsert vectors: %w", err)
	}

	if err := p.documents.SetStatus(ctx, record.ID, storage.StatusIndexed, len(chunks), ""); err != nil {
		p.discard(ctx, record.ID, ids, err)
		return "", fmt.Errorf("failed to mark document indexed: %w", err)
	}

	logger.InfoContext(ctx, "indexed document", "document_id", record.ID, "title", record.Title, "chunks", len(chunks))
	return record.ID, nil
}

// discard removes a document whose indexing did not complete. Cleanup runs even if ctx is done.
// A row that cannot be deleted is marked failed so search keeps ignoring it.
func (p *Pipeline) discard(ctx context.Context, documentID string, chunkIDs []string, cause error) {
	logger := contextutil.LoggerFromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	if len(chunkIDs) > 0 {
		if err := p.vectorStore.Delete(ctx, p.collection, chunkIDs); err != nil {
			logger.WarnContext(ctx, "failed to delete vectors of discarded document", "document_id", documentID, "error", err)
		}
	}
	if err := p.documents.Delete(ctx, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.ErrorContext(ctx, "failed to delete discarded document", "document_id", documentID, "error", err)
		if err := p.documents.SetStatus(ctx, documentID, storage.StatusFailed, 0, cause.Error()); err != nil {
			logger.ErrorContext(ctx, "failed to mark document failed", "document_id", documentID, "error", err)
		}
		return
	}
	logger.WarnContext(ctx, "discarded partially indexed document", "document_id", documentID)
}

// DeleteDocument removes a document's vectors and then the document with its chunks.
// It reports false when the document does not exist or any step fails; failures are logged.
// If the vectors cannot be removed the document is left untouched.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) bool {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := p.documents.Get(ctx, id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.ErrorContext(ctx, "failed to load document for deletion", "document_id", id, "error", err)
		}
		return false
	}

	ids, err := p.chunks.ListIDsByDocument(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list chunks for deletion", "document_id", id, "error", err)
		return false
	}

	if len(ids) > 0 {
		if err := p.vectorStore.Delete(ctx, p.collection, ids); err != nil {
			logger.ErrorContext(ctx, "failed to delete vectors", "document_id", id, "count", len(ids), "error", err)
			return false
		}
	}

	if err := p.documents.Delete(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to delete document", "document_id", id, "error", err)
		return false
	}

	logger.InfoContext(ctx, "deleted document", "document_id", id, "chunks", len(ids))
	return true
}
