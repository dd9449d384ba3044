package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestPointMeta(t *testing.T) {
	tests := []struct {
		name      string
		meta      map[string]any
		wantDocID string
		wantIndex int
	}{
		{name: "native types", meta: map[string]any{"document_id": "doc-1", "chunk_index": 3}, wantDocID: "doc-1", wantIndex: 3},
		{name: "int64 from payload", meta: map[string]any{"document_id": "doc-2", "chunk_index": int64(7)}, wantDocID: "doc-2", wantIndex: 7},
		{name: "float from json", meta: map[string]any{"document_id": "doc-3", "chunk_index": float64(2)}, wantDocID: "doc-3", wantIndex: 2},
		{name: "string index", meta: map[string]any{"document_id": "doc-4", "chunk_index": "5"}, wantDocID: "doc-4", wantIndex: 5},
		{name: "missing", meta: nil, wantDocID: "", wantIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docID, index := pointMeta(tt.meta)
			if docID != tt.wantDocID || index != tt.wantIndex {
				t.Errorf("pointMeta() = (%q, %d), want (%q, %d)", docID, index, tt.wantDocID, tt.wantIndex)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	if got := tableName("knowledge"); got != `"knowledge"` {
		t.Errorf("tableName() = %s", got)
	}
	if got := tableName(`we"ird`); got != `"we""ird"` {
		t.Errorf("tableName() = %s", got)
	}
}

// TestPgvectorStore_Integration runs against a live PostgreSQL with pgvector when
// PGVECTOR_TEST_DSN is set.
func TestPgvectorStore_Integration(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN not set")
	}
	ctx := context.Background()

	store, err := NewPgvectorStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPgvectorStore() error = %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	collection := "kb_test_" + uuid.New().String()[:8]
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+tableName(collection))
	})

	if err := store.EnsureCollection(ctx, collection, 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.EnsureCollection(ctx, collection, 2); err != nil {
		t.Fatalf("EnsureCollection() second call error = %v", err)
	}
	if err := store.EnsureCollection(ctx, collection, 3); err == nil {
		t.Error("EnsureCollection(3) expected size mismatch error")
	}

	near, far := uuid.New().String(), uuid.New().String()
	err = store.Upsert(ctx, collection, []Point{
		{ID: near, Vec: []float32{1, 0}, Meta: map[string]any{"document_id": "d", "chunk_index": 0}},
		{ID: far, Vec: []float32{0, 1}, Meta: map[string]any{"document_id": "d", "chunk_index": 1}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, collection, []float32{1, 0}, 5, 0.7)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].PointID != near {
		t.Fatalf("Search() = %+v, want only %s", results, near)
	}

	if err := store.Delete(ctx, collection, []string{near}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	results, err = store.Search(ctx, collection, []float32{1, 0}, 5, 0.7)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after Delete = %+v", results)
	}
}

func TestPgvectorStore_MixedCaseCollection(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN not set")
	}
	ctx := context.Background()

	store, err := NewPgvectorStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPgvectorStore() error = %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	collection := "KB_Test_" + uuid.New().String()[:8]
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+tableName(collection))
	})

	if err := store.EnsureCollection(ctx, collection, 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		t.Fatalf("CollectionExists() error = %v", err)
	}
	if !exists {
		t.Fatalf("CollectionExists(%q) = false after EnsureCollection", collection)
	}
	if err := store.EnsureCollection(ctx, collection, 3); err == nil {
		t.Error("EnsureCollection(3) expected size mismatch error")
	}
}
