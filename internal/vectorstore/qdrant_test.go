package vectorstore

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestGRPCAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost", // Defaults to localhost
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcAddress(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Error("grpcAddress() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcAddress() unexpected error: %v", err)
			}
			if host != tt.wantHost {
				t.Errorf("host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	// Returns before touching the client
	store := &QdrantStore{}

	if err := store.Upsert(context.Background(), "kb", []Point{}); err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Delete_EmptyIDs(t *testing.T) {
	store := &QdrantStore{}

	if err := store.Delete(context.Background(), "kb", nil); err != nil {
		t.Errorf("Delete() with empty IDs should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{}
	ctx := context.Background()

	for _, k := range []int{0, -1} {
		if _, err := store.Search(ctx, "kb", []float32{1.0, 2.0}, k, 0.7); err == nil {
			t.Errorf("Search() with k=%d should return error", k)
		}
	}
}

func TestPayloadToMap(t *testing.T) {
	result := payloadToMap(nil)
	if result == nil || len(result) != 0 {
		t.Errorf("payloadToMap(nil) = %v, want empty map", result)
	}

	payload := qdrant.NewValueMap(map[string]any{
		"document_id": "doc-1",
		"chunk_index": 3,
		"tags":        []any{"billing", "refund"},
		"nested":      map[string]any{"ok": true},
	})

	got := payloadToMap(payload)
	if got["document_id"] != "doc-1" {
		t.Errorf("document_id = %v", got["document_id"])
	}
	if got["chunk_index"] != int64(3) {
		t.Errorf("chunk_index = %v (%T), want int64(3)", got["chunk_index"], got["chunk_index"])
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 2 || tags[0] != "billing" {
		t.Errorf("tags = %v", got["tags"])
	}
	if nested, ok := got["nested"].(map[string]any); !ok || nested["ok"] != true {
		t.Errorf("nested = %v", got["nested"])
	}
}
