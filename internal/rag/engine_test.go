package rag

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/mock/gomock"

	"helpdesk-kb/internal/llm"
	llm_mocks "helpdesk-kb/internal/llm/mocks"
	"helpdesk-kb/internal/storage"
	"helpdesk-kb/internal/vectorstore"
	vectorstore_mocks "helpdesk-kb/internal/vectorstore/mocks"
)

const testCollection = "knowledge"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "rag.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// seedDocument stores a document with one chunk per text and returns the chunk IDs.
func seedDocument(t *testing.T, db *sql.DB, title, status string, texts ...string) (*storage.DocumentRecord, []string) {
	t.Helper()
	ctx := context.Background()

	repo := storage.NewDocumentRepo(db)
	doc := &storage.DocumentRecord{Title: title, Content: title + " content", Source: "test"}
	chunks := make([]storage.ChunkRecord, len(texts))
	for i, text := range texts {
		chunks[i] = storage.ChunkRecord{ChunkIndex: i, Text: text, Metadata: map[string]any{"startChar": 0}}
	}
	if err := repo.InsertWithChunks(ctx, doc, chunks); err != nil {
		t.Fatalf("InsertWithChunks() error = %v", err)
	}
	if err := repo.SetStatus(ctx, doc.ID, status, len(chunks), ""); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return doc, ids
}

func upsert(t *testing.T, store vectorstore.VectorStore, id string, vec ...float32) {
	t.Helper()
	if err := store.Upsert(context.Background(), testCollection, []vectorstore.Point{{ID: id, Vec: vec}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func defaultConfig() EngineConfig {
	return EngineConfig{Collection: testCollection, DefaultTopK: 5, MaxTopK: 20, SimilarityThreshold: 0.7}
}

func TestEngine_Search_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	store := vectorstore.NewSQLiteStore(db)
	queryLog := storage.NewQueryLogRepo(db)

	content := "Refunds take 5-7 business days. Contact support for exceptions."
	doc, ids := seedDocument(t, db, "Refund Policy", storage.StatusIndexed, content)
	upsert(t, store, ids[0], 1, 0)

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), "how long does a refund take").Return([]float32{0.9, 0.1}, nil)

	engine := NewEngine(embedder, store, storage.NewChunkRepo(db), queryLog, defaultConfig())

	results, err := engine.Search(context.Background(), SearchRequest{
		Query:          "  how long does a refund take ",
		TopK:           3,
		UserID:         "user-1",
		ConversationID: "conv-1",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	engine.Wait()

	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	got := results[0]
	if got.Text != content || got.ChunkID != ids[0] || got.Document.ID != doc.ID || got.Document.Title != "Refund Policy" {
		t.Errorf("result = %+v", got)
	}
	if got.Similarity < 0.7 || got.Similarity > 1 {
		t.Errorf("Similarity = %v, want within [0.7, 1]", got.Similarity)
	}

	entries, err := queryLog.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("query log has %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.QueryText != "how long does a refund take" || entry.ResultsCount != 1 ||
		entry.UserID != "user-1" || entry.ConversationID != "conv-1" {
		t.Errorf("query log entry = %+v", entry)
	}
	if len(entry.Chunks) != 1 || entry.Chunks[0].ChunkID != ids[0] || entry.Chunks[0].Similarity != got.Similarity {
		t.Errorf("logged chunks = %+v", entry.Chunks)
	}
}

func TestEngine_Search_ThresholdAndOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	store := vectorstore.NewSQLiteStore(db)
	_, ids := seedDocument(t, db, "Doc", storage.StatusIndexed, "exact", "close", "below", "orthogonal")

	upsert(t, store, ids[0], 1, 0)
	upsert(t, store, ids[1], 0.8, 0.6)
	upsert(t, store, ids[2], 0.65, float32(math.Sqrt(1-0.65*0.65)))
	upsert(t, store, ids[3], 0, 1)

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1, 0}, nil).Times(2)

	engine := NewEngine(embedder, store, storage.NewChunkRepo(db), nil, defaultConfig())

	results, err := engine.Search(context.Background(), SearchRequest{Query: "q", TopK: 20})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || results[0].ChunkID != ids[0] || results[1].ChunkID != ids[1] {
		t.Fatalf("Search() = %+v, want exact then close", results)
	}
	for _, r := range results {
		if r.Similarity < 0.7 {
			t.Errorf("result %s has similarity %v below threshold", r.ChunkID, r.Similarity)
		}
	}

	results, err = engine.Search(context.Background(), SearchRequest{Query: "q", TopK: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != ids[0] {
		t.Errorf("Search(topK=1) = %+v", results)
	}
}

func TestEngine_Search_FiltersAndClamps(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	_, indexed := seedDocument(t, db, "Indexed", storage.StatusIndexed, "a", "b", "c")
	_, pending := seedDocument(t, db, "Pending", storage.StatusPending, "p")

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1, 0}, nil)

	hits := []vectorstore.SearchResult{
		{PointID: indexed[1], Score: 0.75},
		{PointID: indexed[0], Score: 1.0000002},
		{PointID: pending[0], Score: 0.99},
		{PointID: "orphan", Score: 0.98},
		{PointID: indexed[2], Score: 0.5},
	}
	vs := vectorstore_mocks.NewMockVectorStore(ctrl)
	gomock.InOrder(
		vs.EXPECT().Search(gomock.Any(), testCollection, []float32{1, 0}, 5, 0.7).Return(hits, nil),
		vs.EXPECT().Search(gomock.Any(), testCollection, []float32{1, 0}, 10, 0.7).Return(hits, nil),
	)

	engine := NewEngine(embedder, vs, storage.NewChunkRepo(db), nil, defaultConfig())

	results, err := engine.Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2: %+v", len(results), results)
	}
	if results[0].ChunkID != indexed[0] || results[0].Similarity != 1 {
		t.Errorf("results[0] = %s %v, want %s clamped to 1", results[0].ChunkID, results[0].Similarity, indexed[0])
	}
	if results[1].ChunkID != indexed[1] {
		t.Errorf("results[1] = %s, want %s", results[1].ChunkID, indexed[1])
	}
}

func TestEngine_Search_WidensPastUnindexedHits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	store := vectorstore.NewSQLiteStore(db)
	_, pending := seedDocument(t, db, "Draft", storage.StatusPending, "refunds draft")
	_, indexed := seedDocument(t, db, "Refund Policy", storage.StatusIndexed, "refunds take 5-7 days")
	upsert(t, store, pending[0], 1, 0)
	upsert(t, store, indexed[0], 0.994, float32(math.Sqrt(1-0.994*0.994)))

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), "refunds").Return([]float32{1, 0}, nil)

	engine := NewEngine(embedder, store, storage.NewChunkRepo(db), nil, defaultConfig())

	results, err := engine.Search(context.Background(), SearchRequest{Query: "refunds", TopK: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != indexed[0] {
		t.Fatalf("Search() = %+v, want the indexed chunk %s", results, indexed[0])
	}
}

func TestEngine_Search_StopsWhenStoreIsExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	_, pending := seedDocument(t, db, "Pending", storage.StatusPending, "p1", "p2")

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1, 0}, nil)

	vs := vectorstore_mocks.NewMockVectorStore(ctrl)
	gomock.InOrder(
		vs.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 2, gomock.Any()).Return([]vectorstore.SearchResult{
			{PointID: pending[0], Score: 0.95},
			{PointID: "orphan", Score: 0.9},
		}, nil),
		vs.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 4, gomock.Any()).Return([]vectorstore.SearchResult{
			{PointID: pending[0], Score: 0.95},
			{PointID: "orphan", Score: 0.9},
			{PointID: pending[1], Score: 0.8},
		}, nil),
	)

	engine := NewEngine(embedder, vs, storage.NewChunkRepo(db), nil, defaultConfig())

	results, err := engine.Search(context.Background(), SearchRequest{Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search() = %+v, want empty non-nil slice", results)
	}
}

func TestEngine_Search_TopK(t *testing.T) {
	tests := []struct {
		name  string
		topK  int
		wantK int
	}{
		{name: "zero uses default", topK: 0, wantK: 5},
		{name: "negative uses default", topK: -3, wantK: 5},
		{name: "explicit", topK: 3, wantK: 3},
		{name: "capped", topK: 100, wantK: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			embedder := llm_mocks.NewMockEmbedder(ctrl)
			embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
			vs := vectorstore_mocks.NewMockVectorStore(ctrl)
			vs.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), tt.wantK, gomock.Any()).Return(nil, nil)

			engine := NewEngine(embedder, vs, storage.NewChunkRepo(newTestDB(t)), nil, defaultConfig())
			results, err := engine.Search(context.Background(), SearchRequest{Query: "q", TopK: tt.topK})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if results == nil || len(results) != 0 {
				t.Errorf("Search() = %v, want empty non-nil slice", results)
			}
		})
	}
}

func TestEngine_Search_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vs := vectorstore_mocks.NewMockVectorStore(ctrl)
	engine := NewEngine(embedder, vs, storage.NewChunkRepo(db), nil, defaultConfig())
	ctx := context.Background()

	if _, err := engine.Search(ctx, SearchRequest{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Search(blank) error = %v, want ErrEmptyQuery", err)
	}

	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).
		Return(nil, &llm.EmbeddingError{Op: "generate", Reason: "missing API key"})
	_, err := engine.Search(ctx, SearchRequest{Query: "q"})
	var ee *llm.EmbeddingError
	if !errors.As(err, &ee) || ee.Reason != "missing API key" {
		t.Errorf("Search() error = %v, want EmbeddingError", err)
	}

	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	vs.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	if _, err := engine.Search(ctx, SearchRequest{Query: "q"}); err == nil {
		t.Error("Search() expected error when the vector store fails")
	}
}

type failingQueryLog struct {
	storage.QueryLogStore
	calls atomic.Int32
}

func (f *failingQueryLog) Append(context.Context, *storage.QueryLogEntry) error {
	f.calls.Add(1)
	return errors.New("disk full")
}

func TestEngine_Search_QueryLogFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	store := vectorstore.NewSQLiteStore(db)
	_, ids := seedDocument(t, db, "Doc", storage.StatusIndexed, "text")
	upsert(t, store, ids[0], 1, 0)

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1, 0}, nil)

	queryLog := &failingQueryLog{}
	engine := NewEngine(embedder, store, storage.NewChunkRepo(db), queryLog, defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	results, err := engine.Search(ctx, SearchRequest{Query: "q"})
	cancel()
	engine.Wait()

	if err != nil || len(results) != 1 {
		t.Fatalf("Search() = %v, %v; want one result despite log failure", results, err)
	}
	if queryLog.calls.Load() != 1 {
		t.Errorf("Append() called %d times, want 1", queryLog.calls.Load())
	}
}

func TestEngine_Search_DeletedDocumentNeverReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	store := vectorstore.NewSQLiteStore(db)
	doc, ids := seedDocument(t, db, "Gone", storage.StatusIndexed, "text")
	upsert(t, store, ids[0], 1, 0)

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().GenerateEmbedding(gomock.Any(), gomock.Any()).Return([]float32{1, 0}, nil)

	if err := storage.NewDocumentRepo(db).Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	engine := NewEngine(embedder, store, storage.NewChunkRepo(db), nil, defaultConfig())
	results, err := engine.Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after delete = %+v, want none", results)
	}
}

func TestSortResults_TieBreak(t *testing.T) {
	results := []SearchResult{
		{ChunkID: "b", Similarity: 0.8, Text: "unrelated words"},
		{ChunkID: "a", Similarity: 0.8, Text: "unrelated words"},
		{ChunkID: "c", Similarity: 0.8, Text: "refund refund refund"},
		{ChunkID: "d", Similarity: 0.9, Text: "nothing"},
	}
	sortResults("refund", results)

	want := []string{"d", "c", "a", "b"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ChunkID, id)
		}
	}
}
