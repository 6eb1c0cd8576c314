// Package mcpserver exposes template generation and remapping as MCP tools
// so agents can prepare REDCap imports.
package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"redcapprep/internal/config"
	"redcapprep/internal/logging"
	"redcapprep/internal/service"
)

// Server is the MCP server for redcapprep.
type Server struct {
	mcp  *server.MCPServer
	prep *service.PrepService
	cfg  *config.Config
}

// Deps holds the dependencies passed from the App layer.
type Deps struct {
	Prep    *service.PrepService
	Config  *config.Config
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	s := &Server{prep: deps.Prep, cfg: deps.Config}

	s.mcp = server.NewMCPServer(
		"redcapprep-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerFileTools()
	s.registerBatchTools()
	s.registerResources()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	logging.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
