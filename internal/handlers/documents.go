package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/service"
)

// PreviewLength is the number of characters shown in document listings.
const PreviewLength = 200

// DocumentHandler handles HTTP requests for knowledge-base documents.
type DocumentHandler struct {
	svc         service.KnowledgeService
	maxFileSize int64
}

// NewDocumentHandler creates a new DocumentHandler. maxFileSize bounds multipart uploads.
func NewDocumentHandler(svc service.KnowledgeService, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxFileSize: maxFileSize}
}

// CreateDocumentRequest is the JSON body of POST /api/v1/documents.
type CreateDocumentRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Source   string         `json:"source,omitempty"`
}

// CreateDocumentResponse reports a stored document.
type CreateDocumentResponse struct {
	OK         bool           `json:"ok"`
	Message    string         `json:"message"`
	DocumentID string         `json:"documentId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// BatchUploadRequest is the JSON body of POST /api/v1/documents/batch.
type BatchUploadRequest struct {
	Documents []BatchDocument `json:"documents"`
}

// BatchDocument is one item of a batch upload. Content may be any JSON value.
type BatchDocument struct {
	Title    string         `json:"title"`
	Content  any            `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Source   string         `json:"source,omitempty"`
}

// BatchUploadResponse reports per-item outcomes.
type BatchUploadResponse struct {
	OK      bool                      `json:"ok"`
	Message string                    `json:"message"`
	Results []service.BatchItemResult `json:"results"`
}

// DocumentSummary is one entry of a document listing.
type DocumentSummary struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Source     string         `json:"source"`
	Status     string         `json:"status"`
	ChunkCount int            `json:"chunkCount"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"createdAt"`
	Preview    string         `json:"preview"`
}

// ListDocumentsResponse is the body of GET /api/v1/documents.
type ListDocumentsResponse struct {
	OK        bool              `json:"ok"`
	Count     int               `json:"count"`
	Documents []DocumentSummary `json:"documents"`
}

// GetDocumentResponse is the body of GET /api/v1/documents/{id}.
type GetDocumentResponse struct {
	OK       bool             `json:"ok"`
	Document service.Document `json:"document"`
}

// DeleteDocumentResponse is the body of DELETE /api/v1/documents/{id}.
type DeleteDocumentResponse struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

// Create adds one text document.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.svc.AddDocument(ctx, service.AddDocumentRequest{
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
		Source:   req.Source,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to add document")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, CreateDocumentResponse{
		OK:         true,
		Message:    "Document added successfully",
		DocumentID: id,
	})
}

// Upload accepts a multipart file with optional title, source and userId fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	tooLarge := func() {
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("File too large. Max size: %dMB", h.maxFileSize/(1024*1024)), nil)
	}

	if h.maxFileSize > 0 {
		// Leave room for the other form fields and multipart framing.
		limit := h.maxFileSize + 1<<20
		if r.ContentLength > limit {
			tooLarge()
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "No valid file provided", err.Error())
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "No valid file provided", nil)
		return
	}
	defer func() { _ = part.Close() }()

	data, err := io.ReadAll(part)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read uploaded file", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "No valid file provided", err.Error())
		return
	}

	file := extract.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}

	res, err := h.svc.UploadFile(ctx, service.UploadRequest{
		File:       file,
		Title:      r.FormValue("title"),
		Source:     r.FormValue("source"),
		UploadedBy: r.FormValue("userId"),
	})
	if err != nil {
		handleUploadError(ctx, w, h.svc, err, file, h.maxFileSize)
		return
	}

	writeJSON(ctx, w, http.StatusOK, CreateDocumentResponse{
		OK:         true,
		Message:    "Document uploaded and indexed successfully",
		DocumentID: res.DocumentID,
		Metadata:   res.Metadata,
	})
}

// Batch adds several documents; each item succeeds or fails on its own.
func (h *DocumentHandler) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]service.BatchItem, len(req.Documents))
	for i, d := range req.Documents {
		items[i] = service.BatchItem{Title: d.Title, Content: d.Content, Metadata: d.Metadata, Source: d.Source}
	}

	res, err := h.svc.BatchUpload(ctx, items)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to upload documents")
		return
	}

	writeJSON(ctx, w, http.StatusOK, BatchUploadResponse{
		OK:      true,
		Message: fmt.Sprintf("Batch upload completed: %d/%d successful", res.Succeeded, res.Total),
		Results: res.Results,
	})
}

// List returns all documents, newest first, with a short preview of each.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.svc.ListDocuments(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	summaries := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		summaries[i] = DocumentSummary{
			ID:         d.ID,
			Title:      d.Title,
			Source:     d.Source,
			Status:     d.Status,
			ChunkCount: d.ChunkCount,
			Metadata:   d.Metadata,
			CreatedAt:  d.CreatedAt,
			Preview:    preview(d.Content),
		}
	}

	writeJSON(ctx, w, http.StatusOK, ListDocumentsResponse{OK: true, Count: len(summaries), Documents: summaries})
}

// Get returns one document.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	doc, err := h.svc.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Document not found", nil)
			return
		}
		handleServiceError(ctx, w, err, "Failed to get document")
		return
	}

	writeJSON(ctx, w, http.StatusOK, GetDocumentResponse{OK: true, Document: *doc})
}

// Delete removes a document with its chunks and vectors.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if !h.svc.DeleteDocument(ctx, id) {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to delete document", nil)
		return
	}

	writeJSON(ctx, w, http.StatusOK, DeleteDocumentResponse{
		OK:         true,
		Message:    "Document deleted successfully",
		DocumentID: id,
	})
}

// preview returns the first PreviewLength characters of content, marking truncation.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	return string([]rune(content)[:PreviewLength]) + "..."
}
