package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVExtractor keeps the CSV source as text and reports its shape.
type CSVExtractor struct{}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

// SupportedMIMETypes implements Extractor.
func (e *CSVExtractor) SupportedMIMETypes() []string {
	return []string{MIMECSV}
}

// Extract implements Extractor. The first record is the header row.
func (e *CSVExtractor) Extract(_ context.Context, f File) (*Result, error) {
	content := decodeText(f.Data)

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV: %v", ErrInvalidFile, err)
	}

	headers := []string{}
	rows := 0
	if len(records) > 0 {
		headers = records[0]
		rows = len(records) - 1
	}

	return &Result{
		Text: content,
		Metadata: map[string]any{
			"rowCount":    rows,
			"columnCount": len(headers),
			"headers":     headers,
		},
	}, nil
}
