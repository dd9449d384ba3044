package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/llm"
)

// SQLiteStore keeps vectors in the embedding BLOB column of the chunks table and
// answers searches with a brute-force cosine scan. The collection name is ignored:
// all vectors live next to their chunk rows.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a vector store over a migrated knowledge-base database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureCollection checks that the chunks table exists and that stored vectors have vectorSize dimensions.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("chunks table missing: run migrations first")
	}

	var blobLen int
	err = s.db.QueryRowContext(ctx,
		"SELECT length(embedding) FROM chunks WHERE embedding IS NOT NULL LIMIT 1",
	).Scan(&blobLen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect stored vectors: %w", err)
	}
	if blobLen/4 != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, blobLen/4)
	}
	return nil
}

// CollectionExists reports whether the chunks table is present.
func (s *SQLiteStore) CollectionExists(ctx context.Context, _ string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'chunks'",
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return n > 0, nil
}

// Upsert writes each vector into its chunk row. Every point must match an existing chunk.
func (s *SQLiteStore) Upsert(ctx context.Context, _ string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, "UPDATE chunks SET embedding = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range points {
		res, err := stmt.ExecContext(ctx, float32SliceToBytes(p.Vec), p.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to upsert points: chunk %s not found", p.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "upserted points", "backend", "sqlite", "count", len(points))
	return nil
}

// Search scans all stored vectors and returns the k most similar at or above minScore.
func (s *SQLiteStore) Search(ctx context.Context, _ string, query []float32, k int, minScore float64) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document_id, chunk_index, embedding FROM chunks WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	skipped := 0
	for rows.Next() {
		var id, documentID string
		var chunkIndex int
		var blob []byte
		if err := rows.Scan(&id, &documentID, &chunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}

		score, err := llm.CosineSimilarity(query, bytesToFloat32Slice(blob))
		if err != nil {
			skipped++
			continue
		}
		if score < minScore {
			continue
		}

		results = append(results, SearchResult{
			PointID: id,
			Score:   score,
			Meta:    map[string]any{"document_id": documentID, "chunk_index": chunkIndex},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate points: %w", err)
	}

	if skipped > 0 {
		logger.WarnContext(ctx, "skipped vectors with mismatched dimension", "count", skipped, "query_dim", len(query))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Delete clears the vectors of the given chunks.
func (s *SQLiteStore) Delete(ctx context.Context, _ string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE chunks SET embedding = NULL WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
