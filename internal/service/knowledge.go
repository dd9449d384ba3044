package service

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=mocks/mock_knowledge_service.go -package=mocks helpdesk-kb/internal/service KnowledgeService

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/indexer"
	"helpdesk-kb/internal/llm"
	"helpdesk-kb/internal/rag"
	"helpdesk-kb/internal/storage"
)

// KnowledgeService is the single entry point of the HTTP, MCP and CLI surfaces.
type KnowledgeService interface {
	// AddDocument validates, chunks, embeds and stores a document and returns its ID.
	AddDocument(ctx context.Context, req AddDocumentRequest) (string, error)
	// UploadFile extracts text from a file and stores it as a document.
	UploadFile(ctx context.Context, req UploadRequest) (*UploadResult, error)
	// BatchUpload stores each item independently. Item failures are reported, not returned.
	BatchUpload(ctx context.Context, items []BatchItem) (*BatchResult, error)
	// Search returns the indexed chunks most similar to the query.
	Search(ctx context.Context, req rag.SearchRequest) ([]rag.SearchResult, error)
	// Retrieve runs the retrieval tool. It never fails.
	Retrieve(ctx context.Context, query string, topK int, tc *rag.ToolContext) rag.RetrieveResult
	// GetDocument returns a document. Returns ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*Document, error)
	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]Document, error)
	// DeleteDocument removes a document, its chunks and its vectors. False on any failure.
	DeleteDocument(ctx context.Context, id string) bool
	// Stats returns document, chunk and query counts, with coverage if requested.
	Stats(ctx context.Context, withCoverage bool) (*Stats, error)
	// SupportedFileTypes lists the MIME types UploadFile accepts.
	SupportedFileTypes() []string
}

// knowledgeService implements KnowledgeService.
type knowledgeService struct {
	pipeline       *indexer.Pipeline
	engine         rag.Engine
	documents      storage.DocumentStore
	chunks         storage.ChunkStore
	queryLog       storage.QueryLogStore
	extractors     *extract.Registry
	embeddingModel string
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(
	pipeline *indexer.Pipeline,
	engine rag.Engine,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	queryLog storage.QueryLogStore,
	extractors *extract.Registry,
	embeddingModel string,
) KnowledgeService {
	if extractors == nil {
		extractors = extract.NewDefaultRegistry(0)
	}
	return &knowledgeService{
		pipeline:       pipeline,
		engine:         engine,
		documents:      documents,
		chunks:         chunks,
		queryLog:       queryLog,
		extractors:     extractors,
		embeddingModel: embeddingModel,
	}
}

// AddDocument stores a document.
func (s *knowledgeService) AddDocument(ctx context.Context, req AddDocumentRequest) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Title) == "" {
		logger.WarnContext(ctx, "empty title in add document request")
		return "", &ValidationError{Field: "title", Message: "Title is required"}
	}

	id, err := s.pipeline.AddDocument(ctx, indexer.NewDocument{
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
		Source:   req.Source,
	})
	if err != nil {
		if errors.Is(err, indexer.ErrEmptyContent) {
			logger.WarnContext(ctx, "empty content in add document request", "title", req.Title)
			return "", &ValidationError{Field: "content", Message: "Content is required", Err: err}
		}
		logger.ErrorContext(ctx, "failed to add document", "title", req.Title, "error", err)
		return "", classify(err, "failed to add document")
	}

	return id, nil
}

// UploadFile extracts and stores a file.
func (s *knowledgeService) UploadFile(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(req.File.Data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "No valid file provided"}
	}

	extracted, err := s.extractors.Extract(ctx, req.File)
	if err != nil {
		logger.WarnContext(ctx, "failed to extract file", "file_name", req.File.Name, "error", err)
		if errors.Is(err, extract.ErrUnsupportedType) || errors.Is(err, extract.ErrFileTooLarge) || errors.Is(err, extract.ErrInvalidFile) {
			return nil, &ValidationError{Field: "file", Message: err.Error(), Err: err}
		}
		return nil, WrapError(err, "failed to process file")
	}

	if strings.TrimSpace(extracted.Text) == "" {
		return nil, &ValidationError{Field: "file", Message: NoTextMessage}
	}

	metadata := maps.Clone(extracted.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	if req.UploadedBy != "" {
		metadata["uploadedBy"] = req.UploadedBy
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.File.Name
	}

	id, err := s.AddDocument(ctx, AddDocumentRequest{
		Title:    title,
		Content:  extracted.Text,
		Metadata: metadata,
		Source:   req.Source,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "file uploaded", "document_id", id, "file_name", req.File.Name, "file_type", metadata["fileType"])
	return &UploadResult{DocumentID: id, Metadata: metadata}, nil
}

// BatchUpload stores items one at a time; a failing item does not stop the batch.
func (s *knowledgeService) BatchUpload(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(items) == 0 {
		return nil, &ValidationError{Field: "documents", Message: "Documents array is required"}
	}

	result := &BatchResult{Total: len(items), Results: make([]BatchItemResult, 0, len(items))}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, WrapError(err, "batch upload interrupted")
		}

		source := item.Source
		if source == "" {
			source = BatchSource
		}

		id, err := s.AddDocument(ctx, AddDocumentRequest{
			Title:    item.Title,
			Content:  indexer.ToText(item.Content),
			Metadata: item.Metadata,
			Source:   source,
		})
		if err != nil {
			result.Results = append(result.Results, BatchItemResult{Title: item.Title, Success: false, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BatchItemResult{Title: item.Title, DocumentID: id, Success: true})
	}

	logger.InfoContext(ctx, "batch upload completed", "total", result.Total, "succeeded", result.Succeeded)
	return result, nil
}

// Search runs a similarity search.
func (s *knowledgeService) Search(ctx context.Context, req rag.SearchRequest) ([]rag.SearchResult, error) {
	results, err := s.engine.Search(ctx, req)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			return nil, &ValidationError{Field: "query", Message: "Query is required", Err: err}
		}
		return nil, classify(err, "failed to search knowledge base")
	}
	return results, nil
}

// Retrieve runs the retrieval tool.
func (s *knowledgeService) Retrieve(ctx context.Context, query string, topK int, tc *rag.ToolContext) rag.RetrieveResult {
	return s.engine.Retrieve(ctx, query, topK, tc)
}

// GetDocument loads one document.
func (s *knowledgeService) GetDocument(ctx context.Context, id string) (*Document, error) {
	rec, err := s.documents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, WrapError(err, "failed to get document")
	}
	doc := toDocument(rec)
	return &doc, nil
}

// ListDocuments lists all documents.
func (s *knowledgeService) ListDocuments(ctx context.Context) ([]Document, error) {
	recs, err := s.documents.List(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	docs := make([]Document, len(recs))
	for i := range recs {
		docs[i] = toDocument(&recs[i])
	}
	return docs, nil
}

// DeleteDocument removes a document.
func (s *knowledgeService) DeleteDocument(ctx context.Context, id string) bool {
	return s.pipeline.DeleteDocument(ctx, id)
}

// Stats counts documents, chunks and logged queries.
func (s *knowledgeService) Stats(ctx context.Context, withCoverage bool) (*Stats, error) {
	counts, err := s.documents.Counts(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to count documents")
	}
	chunkCount, err := s.chunks.Count(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to count chunks")
	}
	queryCount, err := s.queryLog.Count(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to count queries")
	}

	stats := &Stats{
		DocumentCount:     counts.Total,
		ChunkCount:        chunkCount,
		QueryCount:        queryCount,
		DocumentsByStatus: counts.ByStatus,
	}

	if withCoverage {
		coverage, err := s.pipeline.Coverage(ctx, s.embeddingModel)
		if err != nil {
			return nil, WrapError(err, "failed to compute coverage")
		}
		stats.Coverage = coverage
	}
	return stats, nil
}

// SupportedFileTypes lists accepted MIME types.
func (s *knowledgeService) SupportedFileTypes() []string {
	return s.extractors.SupportedTypes()
}

// classify marks embedding failures as external service errors.
func classify(err error, msg string) error {
	var embErr *llm.EmbeddingError
	if errors.As(err, &embErr) {
		return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
	}
	return WrapError(err, msg)
}

func toDocument(rec *storage.DocumentRecord) Document {
	return Document{
		ID:         rec.ID,
		Title:      rec.Title,
		Content:    rec.Content,
		Metadata:   rec.Metadata,
		Source:     rec.Source,
		Status:     rec.Status,
		ChunkCount: rec.ChunkCount,
		CreatedAt:  rec.CreatedAt,
	}
}
