// Package mcpserver exposes the script tool catalog as an MCP server.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/scriptexec/tools"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "scriptexec"
	// defaultVersion is reported when no version is configured.
	defaultVersion = "0.1.0"
)

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	catalog   *tools.Catalog
}

// New creates an MCP server with one MCP tool per catalog entry.
func New(catalog *tools.Catalog, version string) (*Server, error) {
	if catalog == nil {
		return nil, fmt.Errorf("mcpserver: tool catalog is required")
	}
	if version == "" {
		version = defaultVersion
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)

	s := &Server{mcpServer: mcpServer, catalog: catalog}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) registerTools() error {
	c := s.catalog
	for _, def := range c.Defs() {
		tool := &mcp.Tool{
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			Annotations: def.Annotations,
		}
		switch def.Name {
		case tools.ToolRun:
			mcp.AddTool(s.mcpServer, tool, handler(c.Run))
		case tools.ToolRunFile:
			mcp.AddTool(s.mcpServer, tool, handler(c.RunFile))
		case tools.ToolContinue:
			mcp.AddTool(s.mcpServer, tool, handler(c.Continue))
		case tools.ToolReset:
			mcp.AddTool(s.mcpServer, tool, handler(c.Reset))
		case tools.ToolNewSession:
			mcp.AddTool(s.mcpServer, tool, handler(c.NewSession))
		default:
			return fmt.Errorf("mcpserver: no typed handler for tool %q", def.Name)
		}
	}
	return nil
}

// handler adapts a catalog operation to a typed MCP tool handler. Script
// failures are reported in the structured output, not as tool errors.
func handler[In any](fn func(context.Context, In) (tools.Output, error)) mcp.ToolHandlerFor[In, tools.Output] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input In) (*mcp.CallToolResult, tools.Output, error) {
		out, err := fn(ctx, input)
		if err != nil {
			return nil, tools.Output{}, err
		}
		return nil, out, nil
	}
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
