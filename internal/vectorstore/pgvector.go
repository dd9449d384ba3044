package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/spf13/cast"

	"helpdesk-kb/internal/contextutil"
)

// PgvectorStore implements VectorStore on PostgreSQL with the pgvector extension.
// Each collection is a table (id, document_id, chunk_index, embedding vector(n)) searched
// with the cosine distance operator <=>.
type PgvectorStore struct {
	pool *pgxpool.Pool
}

// NewPgvectorStore connects to PostgreSQL, installs the vector extension if needed and
// registers the vector types on every pooled connection.
func NewPgvectorStore(ctx context.Context, dsn string) (*PgvectorStore, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	_ = conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid PGVECTOR_DSN: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PgvectorStore{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *PgvectorStore) Close() error {
	s.pool.Close()
	return nil
}

func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

// EnsureCollection creates the collection table and index, or validates its dimension.
func (s *PgvectorStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "backend", "pgvector", "collection", collection, "vector_size", vectorSize)
		stmts := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				document_id TEXT NOT NULL,
				chunk_index INTEGER NOT NULL,
				embedding vector(%d) NOT NULL
			)`, tableName(collection), vectorSize),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
				pgx.Identifier{collection + "_embedding_idx"}.Sanitize(), tableName(collection)),
		}
		for _, stmt := range stmts {
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
		}
		return nil
	}

	var dim int
	err = s.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		tableName(collection),
	).Scan(&dim)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	if dim != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, dim)
	}

	logger.InfoContext(ctx, "collection validated", "backend", "pgvector", "collection", collection, "vector_size", vectorSize)
	return nil
}

// CollectionExists checks if the collection table exists. The name is matched case-sensitively.
func (s *PgvectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", tableName(collection)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Upsert inserts or replaces points in one batch.
func (s *PgvectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, document_id, chunk_index, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index, embedding = EXCLUDED.embedding`, tableName(collection))

	batch := &pgx.Batch{}
	for _, p := range points {
		documentID, chunkIndex := pointMeta(p.Meta)
		batch.Queue(query, p.ID, documentID, chunkIndex, pgvector.NewVector(p.Vec))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "upserted points", "backend", "pgvector", "collection", collection, "count", len(points))
	return nil
}

// Search orders by cosine distance and keeps points with similarity of at least minScore.
func (s *PgvectorStore) Search(ctx context.Context, collection string, query []float32, k int, minScore float64) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	sql := fmt.Sprintf(`SELECT id, document_id, chunk_index, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, tableName(collection))

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), minScore, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var id, documentID string
		var chunkIndex int
		var score float64
		if err := rows.Scan(&id, &documentID, &chunkIndex, &score); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		results = append(results, SearchResult{
			PointID: id,
			Score:   score,
			Meta:    map[string]any{"document_id": documentID, "chunk_index": chunkIndex},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	return results, nil
}

// Delete removes points by their IDs.
func (s *PgvectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", tableName(collection)), ids)
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// pointMeta reads document_id and chunk_index from point metadata of any numeric or string shape.
func pointMeta(meta map[string]any) (string, int) {
	return cast.ToString(meta["document_id"]), cast.ToInt(meta["chunk_index"])
}
