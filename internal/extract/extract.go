// Package extract turns uploaded files into plain text plus file metadata.
package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// Supported MIME types.
const (
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMECSV       = "text/csv"
	MIMEJSON      = "application/json"
)

var (
	// ErrUnsupportedType is returned for MIME types no extractor handles.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned when a file exceeds the registry size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidFile is returned when a file cannot be parsed as its declared type.
	ErrInvalidFile = errors.New("invalid file")
)

// extensionTypes maps file extensions to MIME types for undeclared uploads.
var extensionTypes = map[string]string{
	".txt":      MIMEPlainText,
	".text":     MIMEPlainText,
	".log":      MIMEPlainText,
	".md":       MIMEMarkdown,
	".markdown": MIMEMarkdown,
	".pdf":      MIMEPDF,
	".docx":     MIMEDOCX,
	".csv":      MIMECSV,
	".json":     MIMEJSON,
}

// typeAliases maps alternative spellings to the canonical MIME type.
var typeAliases = map[string]string{
	"text/x-markdown":          MIMEMarkdown,
	"application/csv":          MIMECSV,
	"text/json":                MIMEJSON,
	"application/x-ndjson":     MIMEPlainText,
	"text/x-log":               MIMEPlainText,
	"application/x-pdf":        MIMEPDF,
	"application/octet-stream": "",
}

// File is an uploaded file.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Result is the text extracted from a file with its metadata.
type Result struct {
	Text     string
	Metadata map[string]any
}

// Extractor extracts text from files of specific MIME types.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string
	// Extract returns the text and type-specific metadata of f.
	Extract(ctx context.Context, f File) (*Result, error)
}

// Registry dispatches files to extractors by MIME type.
type Registry struct {
	extractors map[string]Extractor
	maxSize    int64
}

// NewRegistry creates a registry. A maxSize of 0 disables the size check.
func NewRegistry(maxSize int64, extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[string]Extractor), maxSize: maxSize}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry(maxSize int64) *Registry {
	return NewRegistry(maxSize,
		NewTextExtractor(),
		NewMarkdownExtractor(),
		NewPDFExtractor(),
		NewDOCXExtractor(),
		NewCSVExtractor(),
		NewJSONExtractor(),
	)
}

// Register adds an extractor, replacing any previous one for the same types.
func (r *Registry) Register(e Extractor) {
	for _, t := range e.SupportedMIMETypes() {
		r.extractors[t] = e
	}
}

// MaxSize returns the size limit in bytes.
func (r *Registry) MaxSize() int64 {
	return r.maxSize
}

// SupportedTypes returns the registered MIME types, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ResolveMIMEType returns the canonical MIME type of f. Parameters such as charset are
// dropped. An empty or generic declared type falls back to the file extension.
func (r *Registry) ResolveMIMEType(f File) string {
	declared := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}
	if alias, ok := typeAliases[declared]; ok {
		declared = alias
	}
	if declared != "" {
		return declared
	}
	return extensionTypes[strings.ToLower(filepath.Ext(f.Name))]
}

// Supports reports whether f can be extracted.
func (r *Registry) Supports(f File) bool {
	_, ok := r.extractors[r.ResolveMIMEType(f)]
	return ok
}

// Extract checks the size and type of f and runs the matching extractor. The result
// metadata always carries fileName, fileType and fileSize.
func (r *Registry) Extract(ctx context.Context, f File) (*Result, error) {
	if r.maxSize > 0 && int64(len(f.Data)) > r.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes", ErrFileTooLarge, len(f.Data), r.maxSize)
	}

	mt := r.ResolveMIMEType(f)
	e, ok := r.extractors[mt]
	if !ok {
		if mt == "" {
			mt = f.MIMEType
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mt)
	}

	res, err := e.Extract(ctx, f)
	if err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["fileName"] = f.Name
	res.Metadata["fileType"] = mt
	res.Metadata["fileSize"] = len(f.Data)
	return res, nil
}

// ExtractBase64 decodes base64 data and extracts it like Extract.
func (r *Registry) ExtractBase64(ctx context.Context, name, mimeType, data string) (*Result, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64 data: %v", ErrInvalidFile, err)
	}
	return r.Extract(ctx, File{Name: name, MIMEType: mimeType, Data: raw})
}
