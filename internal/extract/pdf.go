package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text layer of PDF files. Scanned pages without a text layer
// yield no text.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// SupportedMIMETypes implements Extractor.
func (e *PDFExtractor) SupportedMIMETypes() []string {
	return []string{MIMEPDF}
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(_ context.Context, f File) (res *Result, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: failed to parse PDF: %v", ErrInvalidFile, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", ErrInvalidFile, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF text: %v", ErrInvalidFile, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF text: %v", ErrInvalidFile, err)
	}

	return &Result{
		Text: strings.TrimSpace(buf.String()),
		Metadata: map[string]any{
			"pageCount": reader.NumPage(),
		},
	}, nil
}
