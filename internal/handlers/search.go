package handlers

import (
	"net/http"
	"strings"

	"helpdesk-kb/internal/rag"
	"helpdesk-kb/internal/service"
)

// Header names carrying optional caller identity.
const (
	HeaderUserID         = "X-User-Id"
	HeaderConversationID = "X-Conversation-Id"
)

// SearchHandler handles HTTP requests for similarity search.
type SearchHandler struct {
	svc service.KnowledgeService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc service.KnowledgeService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchRequest is the JSON body of POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

// SearchResultItem is one search hit.
type SearchResultItem struct {
	ChunkID       string         `json:"chunkId"`
	DocumentID    string         `json:"documentId"`
	DocumentTitle string         `json:"documentTitle"`
	ChunkText     string         `json:"chunkText"`
	Similarity    float64        `json:"similarity"`
	Source        string         `json:"source"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	OK           bool               `json:"ok"`
	Query        string             `json:"query"`
	ResultsCount int                `json:"resultsCount"`
	Results      []SearchResultItem `json:"results"`
}

// ServeHTTP handles HTTP requests for search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(ctx, w, http.StatusBadRequest, "Query is required", nil)
		return
	}

	results, err := h.svc.Search(ctx, rag.SearchRequest{
		Query:          req.Query,
		TopK:           req.TopK,
		UserID:         r.Header.Get(HeaderUserID),
		ConversationID: r.Header.Get(HeaderConversationID),
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search knowledge base")
		return
	}

	items := make([]SearchResultItem, len(results))
	for i, res := range results {
		items[i] = SearchResultItem{
			ChunkID:       res.ChunkID,
			DocumentID:    res.Document.ID,
			DocumentTitle: res.Document.Title,
			ChunkText:     res.Text,
			Similarity:    res.Similarity,
			Source:        res.Document.Source,
			Metadata:      res.Metadata,
		}
	}

	writeJSON(ctx, w, http.StatusOK, SearchResponse{
		OK:           true,
		Query:        req.Query,
		ResultsCount: len(items),
		Results:      items,
	})
}

// RetrieveHandler exposes the retrieval tool over HTTP.
type RetrieveHandler struct {
	svc service.KnowledgeService
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(svc service.KnowledgeService) *RetrieveHandler {
	return &RetrieveHandler{svc: svc}
}

// RetrieveRequest is the JSON body of POST /api/v1/retrieve.
type RetrieveRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"topK,omitempty"`
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ServeHTTP handles HTTP requests for the retrieval tool. Retrieval failures are reported
// in the body with status 200; only a malformed request is rejected.
func (h *RetrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req RetrieveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tc := &rag.ToolContext{UserID: req.UserID, ConversationID: req.ConversationID}
	if tc.UserID == "" {
		tc.UserID = r.Header.Get(HeaderUserID)
	}
	if tc.ConversationID == "" {
		tc.ConversationID = r.Header.Get(HeaderConversationID)
	}

	writeJSON(ctx, w, http.StatusOK, h.svc.Retrieve(ctx, req.Query, req.TopK, tc))
}
