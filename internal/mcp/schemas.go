package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index the project corpus so query_context can retrieve from it. Reuses a persisted snapshot when the corpus is unchanged.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild the index even when a matching snapshot exists",
					"default":     false,
				},
			},
		},
	}
}

// queryContextTool returns the tool definition for query_context
func queryContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_context",
		Description: "Retrieve the most relevant code chunks for a natural language question, formatted as context blocks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the codebase",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of context blocks to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report the active retrieval backend, index size, and persistence state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}
}

// resetIndexTool returns the tool definition for reset_index
func resetIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reset_index",
		Description: "Drop the in-memory index and its persisted snapshot, then re-select the retrieval backend",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}
}
