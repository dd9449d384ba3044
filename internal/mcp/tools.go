// Package mcp exposes the knowledge base to agents as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"helpdesk-kb/internal/service"
)

// Tool names.
const (
	ToolRAGSearch = "rag_search"
	ToolKBStats   = "kb_stats"
)

// ServerName identifies this server to MCP clients.
const ServerName = "helpdesk-kb"

// NewServer creates an MCP server with every knowledge-base tool registered.
func NewServer(svc service.KnowledgeService, version string) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, version)
	RegisterTools(server, svc)
	return server
}

// RegisterTools registers the knowledge-base tools with the server.
func RegisterTools(server *mcpserver.MCPServer, svc service.KnowledgeService) *Handlers {
	handlers := &Handlers{svc: svc}

	server.AddTool(mcp.Tool{
		Name: ToolRAGSearch,
		Description: "Search the customer-support knowledge base for passages relevant to a question. " +
			"Returns ranked passages with similarity scores and a combined context block. " +
			"A result with found=false and no error means nothing relevant was found.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The question or topic to search for",
				},
				"topK": map[string]any{
					"type":        "number",
					"description": "Maximum number of passages to return (default: 5)",
					"default":     5,
				},
				"userId": map[string]any{
					"type":        "string",
					"description": "Optional ID of the user on whose behalf the search runs",
				},
				"conversationId": map[string]any{
					"type":        "string",
					"description": "Optional ID of the conversation the search belongs to",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.RAGSearch)

	server.AddTool(mcp.Tool{
		Name:        ToolKBStats,
		Description: "Report how many documents, chunks and logged searches the knowledge base holds.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, handlers.KBStats)

	return handlers
}
