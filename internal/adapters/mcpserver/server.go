package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// ToolExecutor is the subset of the tool registry an MCP server needs.
type ToolExecutor interface {
	Definitions() []domain.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) string
}

// New builds an MCP server exposing every registered tool over the
// Model Context Protocol. Tool results are plain text, exactly what
// the in-process engine would see.
func New(name, version string, tools ToolExecutor) (*server.MCPServer, error) {
	srv := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, def := range tools.Definitions() {
		rawSchema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal input schema for tool %s: %w", def.Name, err)
		}

		toolName := def.Name
		srv.AddTool(
			mcp.NewToolWithRawSchema(toolName, def.Description, rawSchema),
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				result := tools.Execute(ctx, toolName, request.GetArguments())
				return mcp.NewToolResultText(result), nil
			},
		)
	}

	return srv, nil
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}
