package service

import (
	"time"

	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/indexer"
)

// BatchSource is recorded for batch-uploaded documents without a source.
const BatchSource = "batch-upload"

// NoTextMessage is reported when a file yields no extractable text.
const NoTextMessage = "No text could be extracted from the file. If this is a PDF, ensure it contains selectable text, not just images."

// AddDocumentRequest is the input of AddDocument.
type AddDocumentRequest struct {
	Title    string
	Content  string
	Metadata map[string]any
	Source   string
}

// UploadRequest is the input of UploadFile. An empty Title uses the file name.
type UploadRequest struct {
	File       extract.File
	Title      string
	Source     string
	UploadedBy string
}

// UploadResult describes a stored upload.
type UploadResult struct {
	DocumentID string
	Metadata   map[string]any
}

// BatchItem is one document of a batch upload. Content may be any JSON value;
// non-string values are converted to text.
type BatchItem struct {
	Title    string
	Content  any
	Metadata map[string]any
	Source   string
}

// BatchItemResult reports the outcome of one batch item.
type BatchItemResult struct {
	Title      string `json:"title"`
	DocumentID string `json:"documentId,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// BatchResult reports the outcome of a batch upload.
type BatchResult struct {
	Total     int
	Succeeded int
	Results   []BatchItemResult
}

// Document is a stored knowledge-base document.
type Document struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Source     string         `json:"source"`
	Status     string         `json:"status"`
	ChunkCount int            `json:"chunkCount"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Stats summarizes the knowledge base.
type Stats struct {
	DocumentCount     int            `json:"documentCount"`
	ChunkCount        int            `json:"chunkCount"`
	QueryCount        int            `json:"queryCount"`
	DocumentsByStatus map[string]int `json:"documentsByStatus"`
	// Coverage is only set when requested.
	Coverage *indexer.IndexingCoverageStats `json:"coverage,omitempty"`
}
