package indexer

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultMinChunkSize = 100

	// DefaultParagraphChunkSize is the max size used by ChunkByParagraphs when none is given.
	DefaultParagraphChunkSize = 1000
)

var (
	spaceRun     = regexp.MustCompile(` +`)
	newlineRun   = regexp.MustCompile(`\n{3,}`)
	paragraphSep = regexp.MustCompile(`\n\n+`)
)

// Chunker splits document text into overlapping, sentence-aware segments.
// Sizes and offsets are measured in runes.
type Chunker struct {
	chunkSize    int
	overlap      int
	minChunkSize int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the sliding window width.
func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithOverlap sets how many runes consecutive chunks share.
func WithOverlap(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// WithMinChunkSize sets the shortest chunk that is emitted.
func WithMinChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.minChunkSize = n
		}
	}
}

// NewChunker creates a chunker with defaults 1000/200/100.
// An overlap that is not smaller than the chunk size is reduced to a quarter of it.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultChunkOverlap,
		minChunkSize: DefaultMinChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// ChunkSize returns the configured window width.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// MinChunkSize returns the configured minimum chunk length.
func (c *Chunker) MinChunkSize() int { return c.minChunkSize }

// ChunkText normalizes text and splits it with a sliding window.
//
// Text shorter than the minimum chunk size becomes a single chunk. Otherwise each window
// is cut back to the last ". " or newline when that lies past half the chunk size, chunks
// shorter than the minimum are skipped, and the window advances by the cut length minus
// the overlap (at least one rune). The sweep ends with the window that reaches the end of
// the text.
func (c *Chunker) ChunkText(text string, metadata map[string]any) []TextChunk {
	cleaned := []rune(NormalizeText(text))
	n := len(cleaned)

	if n < c.minChunkSize {
		return []TextChunk{{
			Index:    0,
			Text:     string(cleaned),
			Metadata: withOffsets(metadata, 0, n),
		}}
	}

	var chunks []TextChunk
	half := float64(c.chunkSize) * 0.5

	for start := 0; start < n; {
		end := min(start+c.chunkSize, n)
		window := cleaned[start:end]

		if end < n {
			if bp := lastBreak(window); bp >= 0 && float64(bp) > half {
				window = window[:bp+1]
			}
		}

		trimmed := strings.TrimSpace(string(window))
		if utf8.RuneCountInString(trimmed) >= c.minChunkSize {
			chunks = append(chunks, TextChunk{
				Index:    len(chunks),
				Text:     trimmed,
				Metadata: withOffsets(metadata, start, start+len(window)),
			})
		}

		if end == n {
			break
		}
		start += max(1, len(window)-c.overlap)
	}

	return chunks
}

// ChunkValue coerces v to text and chunks it. It never panics; nil becomes empty text.
func (c *Chunker) ChunkValue(v any, metadata map[string]any) []TextChunk {
	return c.ChunkText(ToText(v), metadata)
}

// ChunkByParagraphs splits on blank lines and greedily packs paragraphs into chunks of at
// most maxChunkSize runes. A single paragraph longer than the limit becomes its own chunk.
func (c *Chunker) ChunkByParagraphs(text string, maxChunkSize int) []TextChunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultParagraphChunkSize
	}

	var chunks []TextChunk
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, TextChunk{Index: len(chunks), Text: s})
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if currentLen > 0 && currentLen+paraLen > maxChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(para)
		currentLen += paraLen
	}
	flush()

	return chunks
}

// ExtractMetadata returns simple statistics about text, plus a potential title when the
// first line is short.
func (c *Chunker) ExtractMetadata(text string) map[string]any {
	meta := map[string]any{
		"charCount":      utf8.RuneCountInString(text),
		"wordCount":      len(strings.Fields(text)),
		"paragraphCount": len(paragraphSep.Split(text, -1)),
	}

	firstLine, _, _ := strings.Cut(text, "\n")
	if utf8.RuneCountInString(firstLine) < 100 {
		meta["potentialTitle"] = strings.TrimSpace(firstLine)
	}
	return meta
}

// NormalizeText unifies line endings, turns tabs into spaces, collapses runs of spaces and
// of three or more newlines, and trims the result.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ToText converts arbitrary content to its textual form.
func ToText(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// lastBreak returns the rune index of the later of the last ". " or "\n" in window, or -1.
func lastBreak(window []rune) int {
	bp := -1
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			bp = i
			break
		}
	}
	for i := len(window) - 2; i > bp; i-- {
		if window[i] == '.' && window[i+1] == ' ' {
			return i
		}
	}
	return bp
}

func withOffsets(metadata map[string]any, start, end int) map[string]any {
	out := make(map[string]any, len(metadata)+2)
	maps.Copy(out, metadata)
	out["startChar"] = start
	out["endChar"] = end
	return out
}
