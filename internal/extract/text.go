package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// TextExtractor passes plain text through unchanged.
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// SupportedMIMETypes implements Extractor.
func (e *TextExtractor) SupportedMIMETypes() []string {
	return []string{MIMEPlainText}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(_ context.Context, f File) (*Result, error) {
	content := decodeText(f.Data)
	return &Result{
		Text: content,
		Metadata: map[string]any{
			"lineCount": countLines(content),
		},
	}, nil
}

// MarkdownExtractor keeps the Markdown source as text and reports heading metadata.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a Markdown extractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// SupportedMIMETypes implements Extractor.
func (e *MarkdownExtractor) SupportedMIMETypes() []string {
	return []string{MIMEMarkdown}
}

// Extract implements Extractor.
func (e *MarkdownExtractor) Extract(_ context.Context, f File) (*Result, error) {
	content := decodeText(f.Data)
	source := []byte(content)
	doc := e.parser.Parser().Parse(text.NewReader(source))

	title, headings := scanHeadings(doc, source)
	meta := map[string]any{
		"headingCount": headings,
		"lineCount":    countLines(content),
	}
	if title != "" {
		meta["title"] = title
	}
	return &Result{Text: content, Metadata: meta}, nil
}

// scanHeadings returns the document title and the number of headings.
// The title is the first level 1 heading, or the first level 2 heading if there is none.
func scanHeadings(doc ast.Node, source []byte) (string, int) {
	var firstH1, firstH2 string
	count := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		count++
		switch {
		case heading.Level == 1 && firstH1 == "":
			firstH1 = nodeText(heading, source)
		case heading.Level == 2 && firstH2 == "":
			firstH2 = nodeText(heading, source)
		}
		return ast.WalkSkipChildren, nil
	})

	if firstH1 != "" {
		return firstH1, count
	}
	return firstH2, count
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// decodeText converts data to a string, dropping a UTF-8 byte order mark and
// replacing invalid sequences.
func decodeText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
