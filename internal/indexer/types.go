package indexer

// TextChunk is one segment of a document produced by the Chunker.
type TextChunk struct {
	Index    int            // Emission order within the document (starts at 0)
	Text     string         // Trimmed chunk text
	Metadata map[string]any // Caller metadata plus startChar/endChar offsets
}

// NewDocument is the input to Pipeline.AddDocument.
type NewDocument struct {
	Title    string
	Content  string
	Metadata map[string]any
	Source   string
}
