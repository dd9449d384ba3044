package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk. An empty ID is generated.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// InsertBatch inserts chunks in one transaction, in slice order.
	InsertBatch(ctx context.Context, chunks []ChunkRecord) error
	// ListByDocument returns all chunks of a document ordered by chunk_index.
	ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error)
	// ListIDsByDocument returns chunk IDs of a document ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetWithDocument loads the given chunks joined with their parent documents, keyed by chunk ID.
	// Unknown IDs are absent from the result.
	GetWithDocument(ctx context.Context, ids []string) (map[string]ChunkWithDocument, error)
	// Count returns the total number of chunks.
	Count(ctx context.Context) (int, error)
	// TextLengths returns the character length of every chunk text.
	TextLengths(ctx context.Context) ([]int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk into the database.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	return storeErr("insert chunk", insertChunk(ctx, r.db, chunk))
}

// InsertBatch inserts chunks atomically.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertChunks(ctx, tx, chunks)
	})
	return storeErr("insert chunks", err)
}

func insertChunks(ctx context.Context, ex execer, chunks []ChunkRecord) error {
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.New().String()
		}
		if err := insertChunk(ctx, ex, &chunks[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertChunk(ctx context.Context, ex execer, chunk *ChunkRecord) error {
	meta, err := encodeJSON(chunk.Metadata, "{}")
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		"INSERT INTO chunks (id, document_id, chunk_text, chunk_index, metadata) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.Text, chunk.ChunkIndex, meta,
	)
	if err != nil {
		return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
	}
	return nil
}

// ListByDocument returns all chunks for a document, ordered by chunk_index.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, chunk_index, chunk_text, metadata FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, storeErr("query chunks", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []ChunkRecord{}
	for rows.Next() {
		var c ChunkRecord
		var meta string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &meta); err != nil {
			return nil, storeErr("scan chunk", err)
		}
		if c.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, storeErr("scan chunk", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate chunks", err)
	}
	return chunks, nil
}

// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to get vector point IDs for deletion.
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, storeErr("query chunk IDs", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan chunk ID", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate chunk IDs", err)
	}

	return ids, nil
}

// GetWithDocument joins each requested chunk to its parent document.
func (r *ChunkRepo) GetWithDocument(ctx context.Context, ids []string) (map[string]ChunkWithDocument, error) {
	out := make(map[string]ChunkWithDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT c.id, c.document_id, c.chunk_index, c.chunk_text, c.metadata,
			d.id, d.title, d.content, d.metadata, d.source, d.status, d.chunk_count, d.error, d.created_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (` + placeholders + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query chunks with documents", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var cw ChunkWithDocument
		var chunkMeta, docMeta string
		d := &cw.Document
		if err := rows.Scan(&cw.Chunk.ID, &cw.Chunk.DocumentID, &cw.Chunk.ChunkIndex, &cw.Chunk.Text, &chunkMeta,
			&d.ID, &d.Title, &d.Content, &docMeta, &d.Source, &d.Status, &d.ChunkCount, &d.Error, &d.CreatedAt); err != nil {
			return nil, storeErr("scan chunk with document", err)
		}
		if cw.Chunk.Metadata, err = decodeMetadata(chunkMeta); err != nil {
			return nil, storeErr("scan chunk with document", err)
		}
		if d.Metadata, err = decodeMetadata(docMeta); err != nil {
			return nil, storeErr("scan chunk with document", err)
		}
		out[cw.Chunk.ID] = cw
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate chunks with documents", err)
	}
	return out, nil
}

// Count returns the total number of chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, storeErr("count chunks", err)
	}
	return n, nil
}

// TextLengths returns the length in characters of each stored chunk.
func (r *ChunkRepo) TextLengths(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT length(chunk_text) FROM chunks")
	if err != nil {
		return nil, storeErr("query chunk lengths", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	lengths := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, storeErr("scan chunk length", err)
		}
		lengths = append(lengths, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate chunk lengths", err)
	}
	return lengths, nil
}
