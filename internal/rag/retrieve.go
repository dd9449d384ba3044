package rag

import (
	"context"
	"fmt"
	"strings"

	"helpdesk-kb/internal/contextutil"
)

// Retrieve is the entry point for the agent layer. Errors and panics from the search
// are reported in the result instead of being returned.
func (e *ragEngine) Retrieve(ctx context.Context, query string, topK int, tc *ToolContext) (res RetrieveResult) {
	logger := contextutil.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "retrieval panicked", "panic", r)
			res = RetrieveResult{Found: false, Results: []RankedResult{}, Error: fmt.Sprintf("retrieval failed: %v", r)}
		}
	}()

	req := SearchRequest{Query: query, TopK: topK}
	if tc != nil {
		req.UserID = tc.UserID
		req.ConversationID = tc.ConversationID
	}

	results, err := e.Search(ctx, req)
	if err != nil {
		logger.WarnContext(ctx, "retrieval failed", "error", err)
		return RetrieveResult{Found: false, Results: []RankedResult{}, Error: err.Error()}
	}

	return FormatResults(results)
}

// FormatResults ranks search results for the retrieval tool.
func FormatResults(results []SearchResult) RetrieveResult {
	if len(results) == 0 {
		return RetrieveResult{Found: false, Message: NoResultsMessage, Results: []RankedResult{}}
	}

	ranked := make([]RankedResult, len(results))
	texts := make([]string, len(results))
	for i, r := range results {
		ranked[i] = RankedResult{
			Rank:       i + 1,
			Similarity: fmt.Sprintf("%.3f", r.Similarity),
			Source:     r.Document.Title,
			Content:    r.Text,
			DocumentID: r.Document.ID,
			ChunkID:    r.ChunkID,
			Metadata:   r.Metadata,
		}
		texts[i] = r.Text
	}

	return RetrieveResult{
		Found:   true,
		Message: fmt.Sprintf("Found %d relevant result(s).", len(results)),
		Results: ranked,
		Context: strings.Join(texts, ContextSeparator),
	}
}
