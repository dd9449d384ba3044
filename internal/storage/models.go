package storage

import "time"

// Document indexing states.
const (
	StatusPending = "pending" // rows written, vectors not yet confirmed
	StatusIndexed = "indexed" // searchable
	StatusFailed  = "failed"
)

// DocumentRecord represents a knowledge-base document in the database.
type DocumentRecord struct {
	ID         string // UUID
	Title      string
	Content    string // Full original text, immutable after creation
	Metadata   map[string]any
	Source     string // Provenance tag, e.g. "upload" or "batch-upload"
	Status     string
	ChunkCount int
	Error      string
	CreatedAt  time.Time
}

// ChunkRecord represents one indexed segment of a document.
type ChunkRecord struct {
	ID         string // UUID (same as the vector point ID)
	DocumentID string
	ChunkIndex int
	Text       string
	Metadata   map[string]any
}

// ChunkWithDocument pairs a chunk with its parent document.
type ChunkWithDocument struct {
	Chunk    ChunkRecord
	Document DocumentRecord
}

// RetrievedChunk is one (chunk, similarity) pair recorded in the query log.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunkId"`
	Similarity float64 `json:"similarity"`
}

// QueryLogEntry is an append-only record of one search.
type QueryLogEntry struct {
	ID             string
	QueryText      string
	ResultsCount   int
	Chunks         []RetrievedChunk
	UserID         string
	ConversationID string
	CreatedAt      time.Time
}

// DocumentCounts summarizes documents by indexing status.
type DocumentCounts struct {
	Total    int
	ByStatus map[string]int
}
