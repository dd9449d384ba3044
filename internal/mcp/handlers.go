package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"helpdesk-kb/internal/contextutil"
	"helpdesk-kb/internal/rag"
	"helpdesk-kb/internal/service"
)

// Handlers contains the handler functions for the MCP tools.
type Handlers struct {
	svc service.KnowledgeService
}

// RAGSearch handles the rag_search tool. Retrieval failures are part of the JSON result;
// only a missing query is a tool error.
func (h *Handlers) RAGSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	topK := request.GetInt("topK", 0)
	tc := &rag.ToolContext{
		UserID:         request.GetString("userId", ""),
		ConversationID: request.GetString("conversationId", ""),
	}

	result := h.svc.Retrieve(ctx, query, topK, tc)
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "rag_search tool called",
		"found", result.Found, "results", len(result.Results), "error", result.Error)

	return jsonResult(result)
}

// KBStats handles the kb_stats tool.
func (h *Handlers) KBStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.svc.Stats(ctx, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
