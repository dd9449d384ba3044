package rag

import "time"

// NoResultsMessage is returned by Retrieve when nothing clears the similarity threshold.
const NoResultsMessage = "No relevant information found in the knowledge base."

// ContextSeparator joins result texts in RetrieveResult.Context.
const ContextSeparator = "\n\n---\n\n"

// SearchRequest represents a knowledge-base search.
type SearchRequest struct {
	// Query is the text to search for.
	Query string `json:"query"`
	// TopK is the maximum number of results. Zero or negative uses the configured default.
	TopK int `json:"topK,omitempty"`
	// UserID optionally identifies the caller in the query log.
	UserID string `json:"userId,omitempty"`
	// ConversationID optionally ties the search to a conversation in the query log.
	ConversationID string `json:"conversationId,omitempty"`
}

// DocumentRef is the parent-document view attached to each search result.
type DocumentRef struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SearchResult pairs a chunk with its parent document and its similarity to the query.
type SearchResult struct {
	// ChunkID is the chunk identifier (also the vector point ID).
	ChunkID string `json:"chunkId"`
	// ChunkIndex is the position of the chunk within its document.
	ChunkIndex int `json:"chunkIndex"`
	// Text is the chunk text.
	Text string `json:"chunkText"`
	// Metadata is the chunk metadata, including startChar/endChar offsets.
	Metadata map[string]any `json:"metadata"`
	// Similarity is the cosine similarity to the query, at most 1.
	Similarity float64 `json:"similarity"`
	// Document is the parent document.
	Document DocumentRef `json:"document"`
}

// ToolContext carries optional caller identity for the retrieval tool.
type ToolContext struct {
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// RankedResult is one formatted result of the retrieval tool.
type RankedResult struct {
	// Rank is 1-based.
	Rank int `json:"rank"`
	// Similarity is formatted with 3 decimal places.
	Similarity string `json:"similarity"`
	// Source is the title of the source document.
	Source     string         `json:"source"`
	Content    string         `json:"content"`
	DocumentID string         `json:"documentId"`
	ChunkID    string         `json:"chunkId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrieveResult is the response of the retrieval tool. It never carries a Go error;
// failures are reported in Error with Found set to false.
type RetrieveResult struct {
	Found   bool           `json:"found"`
	Message string         `json:"message,omitempty"`
	Results []RankedResult `json:"results"`
	Context string         `json:"context"`
	Error   string         `json:"error,omitempty"`
}
