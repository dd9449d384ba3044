package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// InsertWithChunks inserts a document and all of its chunks in one transaction.
	// Empty IDs are generated; a zero CreatedAt is set to now.
	InsertWithChunks(ctx context.Context, doc *DocumentRecord, chunks []ChunkRecord) error
	// Get gets a document by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*DocumentRecord, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]DocumentRecord, error)
	// Delete deletes a document and, by cascade, its chunks. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
	// SetStatus records the indexing state of a document.
	SetStatus(ctx context.Context, id, status string, chunkCount int, errMsg string) error
	// Counts returns the number of documents per status.
	Counts(ctx context.Context) (*DocumentCounts, error)
	// CountWithoutChunks returns the number of documents that own no chunk rows.
	CountWithoutChunks(ctx context.Context) (int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "id, title, content, metadata, source, status, chunk_count, error, created_at"

// InsertWithChunks inserts a document and its chunks atomically.
func (r *DocumentRepo) InsertWithChunks(ctx context.Context, doc *DocumentRecord, chunks []ChunkRecord) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = StatusPending
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}

	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertDocument(ctx, tx, doc); err != nil {
			return err
		}
		return insertChunks(ctx, tx, chunks)
	})
	return storeErr("insert document", err)
}

func insertDocument(ctx context.Context, ex execer, doc *DocumentRecord) error {
	meta, err := encodeJSON(doc.Metadata, "{}")
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.Title, doc.Content, meta, doc.Source, doc.Status, doc.ChunkCount, doc.Error, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document row: %w", err)
	}
	return nil
}

// Get gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("query document", err)
	}
	return doc, nil
}

// List returns all documents in descending creation order.
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, storeErr("query documents", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []DocumentRecord{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, storeErr("scan document", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate documents", err)
	}

	return docs, nil
}

// Delete removes a document; chunks go with it through ON DELETE CASCADE.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return storeErr("delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete document", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus records the indexing state, chunk count and last error of a document.
func (r *DocumentRepo) SetStatus(ctx context.Context, id, status string, chunkCount int, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, chunk_count = ?, error = ? WHERE id = ?",
		status, chunkCount, errMsg, id,
	)
	if err != nil {
		return storeErr("update document status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update document status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Counts returns document totals grouped by status.
func (r *DocumentRepo) Counts(ctx context.Context) (*DocumentCounts, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM documents GROUP BY status")
	if err != nil {
		return nil, storeErr("count documents", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := &DocumentCounts{ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storeErr("scan document count", err)
		}
		counts.ByStatus[status] = n
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate document counts", err)
	}
	return counts, nil
}

// CountWithoutChunks counts documents with no chunk rows.
func (r *DocumentRepo) CountWithoutChunks(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents d
		 WHERE NOT EXISTS (SELECT 1 FROM chunks c WHERE c.document_id = d.id)`,
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count documents without chunks", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	var meta string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &meta, &doc.Source, &doc.Status,
		&doc.ChunkCount, &doc.Error, &doc.CreatedAt); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	doc.Metadata = m
	return &doc, nil
}

func encodeJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
