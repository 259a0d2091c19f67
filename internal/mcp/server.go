package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/personarag/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "personarag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	app *app.App
}

// NewServer creates a new MCP server over an assembled engine
func NewServer(a *app.App) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("engine is required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp: mcpServer,
		app: a,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchKnowledgeTool(), s.handleSearchKnowledge)
	s.mcp.AddTool(loadUserContextTool(), s.handleLoadUserContext)
	s.mcp.AddTool(invalidateUserContextTool(), s.handleInvalidateUserContext)
	s.mcp.AddTool(expandQueryTool(), s.handleExpandQuery)
	s.mcp.AddTool(ingestKnowledgeTool(), s.handleIngestKnowledge)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
