package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coderag-dev/coderag/internal/engine"
	"github.com/coderag-dev/coderag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeIngestInProgress = -32002 // Another ingestion is already running
	ErrorCodeNotIndexed       = -32003 // Corpus not indexed yet
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	forceReindex := getBoolDefault(args, "force_reindex", false)

	files, err := s.discoverCorpus()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "corpus discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	warmStart := false
	if !forceReindex {
		if err := s.engine.LoadSnapshot(ctx, files); err == nil {
			warmStart = true
		} else if errors.Is(err, engine.ErrIngestInProgress) {
			return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", nil)
		}
	}

	count := s.engine.Stats(ctx).IndexedChunks
	if !warmStart {
		count, err = s.engine.Ingest(ctx, files, nil)
		if errors.Is(err, engine.ErrIngestInProgress) {
			return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", nil)
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	stats := s.engine.Stats(ctx)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":        true,
		"warm_start":     warmStart,
		"files_scanned":  len(files),
		"chunks_indexed": count,
		"backend":        string(stats.Backend),
		"persisted":      stats.Persisted,
	})), nil
}

// handleQueryContext handles the query_context tool invocation
func (s *Server) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	if s.engine.Stats(ctx).IndexedChunks == 0 {
		return nil, newMCPError(ErrorCodeNotIndexed, "corpus not indexed, run index_codebase first", nil)
	}

	out, err := s.engine.Query(ctx, query, topK)
	if err != nil {
		if errors.Is(err, types.ErrBackendUnavailable) {
			return nil, newMCPError(ErrorCodeInternalError, "embedding backend degraded, re-run index_codebase", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if out == "" {
		return mcp.NewToolResultText("No relevant context found."), nil
	}
	return mcp.NewToolResultText(out), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.Stats(ctx)

	response := map[string]interface{}{
		"root":           s.root,
		"backend":        string(stats.Backend),
		"available":      s.engine.IsAvailable(),
		"indexed_chunks": stats.IndexedChunks,
		"persisted":      stats.Persisted,
	}
	if stats.VocabularySize > 0 {
		response["vocabulary_size"] = stats.VocabularySize
	}
	if len(stats.Languages) > 0 {
		response["languages"] = stats.Languages
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResetIndex handles the reset_index tool invocation
func (s *Server) handleResetIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Reset(ctx); err != nil {
		if errors.Is(err, engine.ErrIngestInProgress) {
			return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "reset failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"reset": true,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
