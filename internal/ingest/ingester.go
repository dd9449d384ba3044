package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/service"
)

// DefaultSource is recorded for files ingested from disk.
const DefaultSource = "filesystem"

// ErrUnsupportedFile is returned for files no extractor handles.
var ErrUnsupportedFile = errors.New("unsupported file")

// Ingester uploads local files through the knowledge service.
type Ingester struct {
	svc        service.KnowledgeService
	extractors *extract.Registry
	source     string
	uploadedBy string

	mu   sync.Mutex
	docs map[string]string // absolute path -> document ID ingested by this Ingester
}

// NewIngester creates an Ingester. An empty source uses DefaultSource.
func NewIngester(svc service.KnowledgeService, extractors *extract.Registry, source, uploadedBy string) *Ingester {
	if source == "" {
		source = DefaultSource
	}
	return &Ingester{
		svc:        svc,
		extractors: extractors,
		source:     source,
		uploadedBy: uploadedBy,
		docs:       make(map[string]string),
	}
}

// Accepts reports whether path has a type the extractors support.
func (i *Ingester) Accepts(path string) bool {
	return i.extractors.Supports(extract.File{Name: filepath.Base(path)})
}

// IngestFile reads a file and stores it as a document titled after the file name.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*service.UploadResult, error) {
	if !i.Accepts(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	res, err := i.svc.UploadFile(ctx, service.UploadRequest{
		File:       extract.File{Name: filepath.Base(path), Data: data},
		Source:     i.source,
		UploadedBy: i.uploadedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", path, err)
	}
	return res, nil
}

// Replace ingests path and then deletes the document this Ingester previously created
// for it, so a changed file is never indexed twice.
func (i *Ingester) Replace(ctx context.Context, path string) (*service.UploadResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	res, err := i.IngestFile(ctx, abs)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	previous, ok := i.docs[abs]
	i.docs[abs] = res.DocumentID
	i.mu.Unlock()

	if ok && previous != res.DocumentID {
		if !i.svc.DeleteDocument(ctx, previous) {
			logger.WarnContext(ctx, "failed to delete previous version", "path", abs, "document_id", previous)
		}
	}
	return res, nil
}

// DirResult summarizes a directory ingestion.
type DirResult struct {
	Ingested []string
	Failed   map[string]error
}

// IngestDir ingests every supported file under root. Failures are collected per file.
func (i *Ingester) IngestDir(ctx context.Context, root string) (*DirResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := Scan(ctx, root, i.Accepts)
	if err != nil {
		return nil, err
	}

	result := &DirResult{Failed: make(map[string]error)}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := i.Replace(ctx, f.AbsPath); err != nil {
			logger.WarnContext(ctx, "failed to ingest file", "path", f.RelPath, "error", err)
			result.Failed[f.RelPath] = err
			continue
		}
		result.Ingested = append(result.Ingested, f.RelPath)
	}

	logger.InfoContext(ctx, "directory ingested", "root", root, "ingested", len(result.Ingested), "failed", len(result.Failed))
	return result, nil
}
