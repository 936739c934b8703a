package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer exposes tools over the Model Context Protocol. The tools keep their
// generated JSON schemas so any MCP client sees the same contract the agents use.
func NewMCPServer(name, version string, tools ...*Tool) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]interface{}{"type": "object"}
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: invalid input schema: %w", t.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, raw), MCPHandler(t))
	}
	return s, nil
}

// MCPHandler adapts a Tool to an MCP tool handler. Tool failures are reported as
// MCP error results rather than protocol errors.
func MCPHandler(t *Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slog.Debug("mcp tool call", "tool", t.Name)
		result, err := t.Call(ctx, req.GetArguments())
		if err != nil {
			slog.Error("error calling tool", "tool", t.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result.Error {
			return mcp.NewToolResultError(result.Text()), nil
		}
		return mcp.NewToolResultText(result.Text()), nil
	}
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
