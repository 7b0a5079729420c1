package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/coderag-dev/coderag/internal/config"
	"github.com/coderag-dev/coderag/internal/corpus"
	"github.com/coderag-dev/coderag/internal/engine"
	"github.com/coderag-dev/coderag/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "coderag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies. It is bound
// to one project root: tools ingest and query that corpus.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	cfg    *config.Config
	root   string
}

// NewServer creates an MCP server for the project at root.
func NewServer(root string) (*Server, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	eng, err := engine.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		engine: eng,
		cfg:    cfg,
		root:   absRoot,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.engine.Close() }()
	return server.ServeStdio(s.mcp)
}

// discoverCorpus walks the project root with the configured ignore rules.
func (s *Server) discoverCorpus() ([]types.SourceFile, error) {
	opts := corpus.DefaultOptions()
	if len(s.cfg.Discovery.IgnorePatterns) > 0 {
		opts.IgnorePatterns = s.cfg.Discovery.IgnorePatterns
	}
	if s.cfg.Discovery.MaxFileSize > 0 {
		opts.MaxFileSize = s.cfg.Discovery.MaxFileSize
	}
	return corpus.Discover(s.root, opts)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(queryContextTool(), s.handleQueryContext)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
	s.mcp.AddTool(resetIndexTool(), s.handleResetIndex)
}
