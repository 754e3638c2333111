package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

type executorFake struct {
	lastTool string
	lastArgs map[string]any
}

func (f *executorFake) Definitions() []domain.ToolDefinition {
	query := openapi3.NewStringSchema()
	query.Description = "What to search for"
	schema := openapi3.NewObjectSchema().WithProperty("query", query)
	schema.Required = []string{"query"}

	return []domain.ToolDefinition{{
		Name:        "search_course_content",
		Description: "Search course materials",
		InputSchema: schema,
	}}
}

func (f *executorFake) Execute(_ context.Context, name string, args map[string]any) string {
	f.lastTool = name
	f.lastArgs = args
	return "[Intro - Lesson 1]\nMCP overview."
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(raw)
}

func TestServerListsAndCallsTools(t *testing.T) {
	executor := &executorFake{}
	srv, err := New("course-assistant", "0.1.0", executor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	initMsg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0.0.0"}}}`
	if resp := srv.HandleMessage(ctx, []byte(initMsg)); resp == nil {
		t.Fatalf("expected initialize response")
	}

	listResp := srv.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	listRaw := mustJSON(t, listResp)
	if !strings.Contains(listRaw, "search_course_content") {
		t.Fatalf("expected tool listed, got %s", listRaw)
	}
	if !strings.Contains(listRaw, "What to search for") {
		t.Fatalf("expected input schema exposed, got %s", listRaw)
	}

	callMsg := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_course_content","arguments":{"query":"mcp"}}}`
	callResp := srv.HandleMessage(ctx, []byte(callMsg))
	callRaw := mustJSON(t, callResp)
	if !strings.Contains(callRaw, "MCP overview.") {
		t.Fatalf("expected tool result text, got %s", callRaw)
	}

	if executor.lastTool != "search_course_content" {
		t.Fatalf("expected executor invoked, got %q", executor.lastTool)
	}
	if executor.lastArgs["query"] != "mcp" {
		t.Fatalf("expected query argument forwarded, got %v", executor.lastArgs)
	}
}
