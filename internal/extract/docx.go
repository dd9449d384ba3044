package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXExtractor reads paragraph text from Word documents.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// SupportedMIMETypes implements Extractor.
func (e *DOCXExtractor) SupportedMIMETypes() []string {
	return []string{MIMEDOCX}
}

// documentXML is the subset of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
		Tables     []struct {
			Rows []struct {
				Cells []struct {
					Paragraphs []paragraphXML `xml:"p"`
				} `xml:"tc"`
			} `xml:"tr"`
		} `xml:"tbl"`
	} `xml:"body"`
}

type paragraphXML struct {
	Runs []struct {
		Text []string   `xml:"t"`
		Tabs []struct{} `xml:"tab"`
	} `xml:"r"`
}

func (p paragraphXML) text() string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for range run.Tabs {
			sb.WriteByte('\t')
		}
		for _, t := range run.Text {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// Extract implements Extractor.
func (e *DOCXExtractor) Extract(_ context.Context, f File) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open DOCX: %v", ErrInvalidFile, err)
	}

	var docFile *zip.File
	for _, zf := range zr.File {
		if zf.Name == "word/document.xml" {
			docFile = zf
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found", ErrInvalidFile)
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open word/document.xml: %v", ErrInvalidFile, err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read word/document.xml: %v", ErrInvalidFile, err)
	}

	var doc documentXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse word/document.xml: %v", ErrInvalidFile, err)
	}

	var paragraphs []string
	for _, p := range doc.Body.Paragraphs {
		if t := strings.TrimSpace(p.text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				parts := make([]string, 0, len(cell.Paragraphs))
				for _, p := range cell.Paragraphs {
					parts = append(parts, strings.TrimSpace(p.text()))
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			if line := strings.TrimSpace(strings.Join(cells, "\t")); line != "" {
				paragraphs = append(paragraphs, line)
			}
		}
	}

	return &Result{
		Text: strings.Join(paragraphs, "\n"),
		Metadata: map[string]any{
			"paragraphCount": len(paragraphs),
		},
	}, nil
}
