package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func insertTestDocument(t *testing.T, repo *DocumentRepo, title string, createdAt time.Time, chunks ...string) *DocumentRecord {
	t.Helper()

	doc := &DocumentRecord{
		Title:     title,
		Content:   "content of " + title,
		Metadata:  map[string]any{"fileType": "txt"},
		Source:    "test",
		CreatedAt: createdAt,
	}
	records := make([]ChunkRecord, len(chunks))
	for i, text := range chunks {
		records[i] = ChunkRecord{ChunkIndex: i, Text: text, Metadata: map[string]any{"startChar": i}}
	}

	if err := repo.InsertWithChunks(context.Background(), doc, records); err != nil {
		t.Fatalf("InsertWithChunks() error = %v", err)
	}
	return doc
}

func TestDocumentRepo_InsertWithChunks(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()

	doc := insertTestDocument(t, docs, "Refund Policy", time.Time{}, "first", "second")

	if doc.ID == "" {
		t.Fatal("InsertWithChunks() did not assign an ID")
	}
	if doc.Status != StatusPending {
		t.Errorf("Status = %q, want %q", doc.Status, StatusPending)
	}

	got, err := docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Refund Policy" || got.Source != "test" || got.Metadata["fileType"] != "txt" {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}

	stored, err := chunks.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument() error = %v", err)
	}
	if len(stored) != 2 || stored[0].Text != "first" || stored[1].Text != "second" {
		t.Errorf("ListByDocument() = %+v", stored)
	}
	if stored[0].DocumentID != doc.ID {
		t.Errorf("chunk DocumentID = %q, want %q", stored[0].DocumentID, doc.ID)
	}
}

func TestDocumentRepo_InsertWithChunks_Atomic(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	ctx := context.Background()

	doc := &DocumentRecord{Title: "Broken", Content: "x", Source: "test"}
	// Duplicate chunk_index violates the unique constraint on the second insert.
	records := []ChunkRecord{
		{ChunkIndex: 0, Text: "a"},
		{ChunkIndex: 0, Text: "b"},
	}

	err := docs.InsertWithChunks(ctx, doc, records)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("InsertWithChunks() error = %v, want StoreError", err)
	}

	if _, err := docs.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document persisted after failed insert: err = %v", err)
	}
}

func TestDocumentRepo_Get_NotFound(t *testing.T) {
	docs := NewDocumentRepo(newTestDB(t))

	_, err := docs.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_List(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	ctx := context.Background()

	empty, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() on empty store = %v, want empty slice", empty)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	insertTestDocument(t, docs, "old", base)
	insertTestDocument(t, docs, "new", base.Add(time.Hour))
	insertTestDocument(t, docs, "middle", base.Add(30*time.Minute))

	list, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"new", "middle", "old"}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d documents, want %d", len(list), len(want))
	}
	for i, title := range want {
		if list[i].Title != title {
			t.Errorf("List()[%d] = %q, want %q", i, list[i].Title, title)
		}
	}
}

func TestDocumentRepo_Delete_Cascades(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()

	doc := insertTestDocument(t, docs, "Doomed", time.Time{}, "a", "b", "c")
	keep := insertTestDocument(t, docs, "Kept", time.Time{}, "z")

	if err := docs.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ids, err := chunks.ListIDsByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("chunks survived delete: %v", ids)
	}

	n, err := chunks.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 (chunk of %s)", n, keep.Title)
	}

	if err := docs.Delete(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_SetStatusAndCounts(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	ctx := context.Background()

	a := insertTestDocument(t, docs, "A", time.Time{}, "x")
	insertTestDocument(t, docs, "B", time.Time{})

	if err := docs.SetStatus(ctx, a.ID, StatusIndexed, 1, ""); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := docs.SetStatus(ctx, "missing", StatusIndexed, 0, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus(missing) error = %v, want ErrNotFound", err)
	}

	got, err := docs.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusIndexed || got.ChunkCount != 1 {
		t.Errorf("after SetStatus: status=%q chunk_count=%d", got.Status, got.ChunkCount)
	}

	counts, err := docs.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts.Total != 2 || counts.ByStatus[StatusIndexed] != 1 || counts.ByStatus[StatusPending] != 1 {
		t.Errorf("Counts() = %+v", counts)
	}
}

func TestDocumentRepo_CountWithoutChunks(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	ctx := context.Background()

	insertTestDocument(t, docs, "With", time.Time{}, "x", "y")
	insertTestDocument(t, docs, "Without", time.Time{})

	n, err := docs.CountWithoutChunks(ctx)
	if err != nil {
		t.Fatalf("CountWithoutChunks() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountWithoutChunks() = %d, want 1", n)
	}
}
