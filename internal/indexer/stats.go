package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

const (
	// ChunkerVersion is the version identifier for the chunker implementation.
	// Update this when chunking logic changes significantly.
	ChunkerVersion = "v2.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexingCoverageStats describes how much of the knowledge base is searchable.
type IndexingCoverageStats struct {
	// DocsProcessed is the total number of documents stored.
	DocsProcessed int `json:"docsProcessed"`
	// DocsByStatus breaks DocsProcessed down by indexing status.
	DocsByStatus map[string]int `json:"docsByStatus"`
	// DocsWith0Chunks is the number of documents that produced 0 chunks.
	DocsWith0Chunks int `json:"docsWith0Chunks"`
	// ChunksStored is the number of chunk rows.
	ChunksStored int `json:"chunksStored"`
	// ChunkTokenStats contains statistics about estimated token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunkTokenStats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunkerVersion"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"indexVersion"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// Coverage computes indexing coverage statistics from the database.
func (p *Pipeline) Coverage(ctx context.Context, embeddingModelName string) (*IndexingCoverageStats, error) {
	counts, err := p.documents.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	empty, err := p.documents.CountWithoutChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents with 0 chunks: %w", err)
	}

	lengths, err := p.chunks.TextLengths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk lengths: %w", err)
	}

	tokenCounts := make([]int, len(lengths))
	for i, n := range lengths {
		tokenCounts[i] = max(1, int(math.Round(float64(n)/TokensPerRune)))
	}

	return &IndexingCoverageStats{
		DocsProcessed:   counts.Total,
		DocsByStatus:    counts.ByStatus,
		DocsWith0Chunks: empty,
		ChunksStored:    len(lengths),
		ChunkTokenStats: computeTokenStats(tokenCounts),
		ChunkerVersion:  ChunkerVersion,
		IndexVersion:    p.IndexVersion(embeddingModelName),
	}, nil
}

// IndexVersion hashes the chunker version, embedding model and chunking parameters.
// Documents indexed under a different version were chunked or embedded differently.
func (p *Pipeline) IndexVersion(embeddingModelName string) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|overlap=%d|minChunkSize=%d",
		ChunkerVersion, embeddingModelName, p.chunker.ChunkSize(), p.chunker.Overlap(), p.chunker.MinChunkSize())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
