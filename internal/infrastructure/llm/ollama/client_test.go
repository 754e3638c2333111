package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

func TestChatSendsToolsAndOptions(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hi"},"done":true,"done_reason":"stop"}`))
	}))
	defer server.Close()

	schema := openapi3.NewObjectSchema().WithProperty("query", openapi3.NewStringSchema())
	chat := NewChatClient(New(server.URL, "qwen2.5", "nomic-embed-text"))

	resp, err := chat.Chat(context.Background(), domain.ChatRequest{
		System: "system prompt",
		Messages: []domain.ModelMessage{
			{Role: "user", Content: []domain.ContentBlock{{Kind: domain.BlockText, Text: "hello"}}},
		},
		Tools:     []domain.ToolDefinition{{Name: "search_course_content", Description: "search", InputSchema: schema}},
		MaxTokens: 600,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.StopReason != domain.StopReasonDone || resp.FirstText() != "hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if captured["model"] != "qwen2.5" {
		t.Fatalf("unexpected model: %v", captured["model"])
	}
	options := captured["options"].(map[string]any)
	if options["temperature"].(float64) != 0 {
		t.Fatalf("temperature must be pinned to zero")
	}
	if options["num_predict"].(float64) != 600 {
		t.Fatalf("unexpected num_predict: %v", options["num_predict"])
	}

	messages := captured["messages"].([]any)
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Fatalf("system prompt not first message: %v", first)
	}

	tools := captured["tools"].([]any)
	tool := tools[0].(map[string]any)
	if tool["type"] != "function" {
		t.Fatalf("unexpected tool type: %v", tool["type"])
	}
	fn := tool["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	if params["type"] != "object" {
		t.Fatalf("schema not serialized: %v", params)
	}
}

func TestChatParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"message":{
				"role":"assistant",
				"content":"",
				"tool_calls":[{"function":{"name":"search_course_content","arguments":{"query":"mcp","lesson_number":2}}}]
			},
			"done":true,
			"done_reason":"stop"
		}`))
	}))
	defer server.Close()

	chat := NewChatClient(New(server.URL, "qwen2.5", "nomic-embed-text"))
	resp, err := chat.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ModelMessage{{Role: "user", Content: []domain.ContentBlock{{Kind: domain.BlockText, Text: "q"}}}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.StopReason != domain.StopReasonToolUse {
		t.Fatalf("expected tool_use stop reason, got %s", resp.StopReason)
	}
	calls := resp.ToolCalls()
	if len(calls) != 1 || calls[0].ToolName != "search_course_content" {
		t.Fatalf("unexpected tool calls: %+v", calls)
	}
	if calls[0].ToolArgs["query"] != "mcp" {
		t.Fatalf("arguments not preserved: %v", calls[0].ToolArgs)
	}
	if calls[0].ToolCallID == "" {
		t.Fatalf("tool call id must be assigned")
	}
}

func TestChatForwardsToolResults(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"done"},"done":true}`))
	}))
	defer server.Close()

	chat := NewChatClient(New(server.URL, "qwen2.5", "nomic-embed-text"))
	_, err := chat.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ModelMessage{
			{Role: "user", Content: []domain.ContentBlock{{Kind: domain.BlockText, Text: "q"}}},
			{Role: "assistant", Content: []domain.ContentBlock{{Kind: domain.BlockToolCall, ToolName: "search_course_content", ToolArgs: map[string]any{"query": "q"}}}},
			{Role: "user", Content: []domain.ContentBlock{{Kind: domain.BlockToolResult, ToolName: "search_course_content", Text: "chunk text"}}},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	messages := captured["messages"].([]any)
	last := messages[len(messages)-1].(map[string]any)
	if last["role"] != "tool" || last["content"] != "chunk text" {
		t.Fatalf("tool result not mapped to tool role: %v", last)
	}
	if last["tool_name"] != "search_course_content" {
		t.Fatalf("tool result missing tool_name on the wire: %v", last)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("error should carry response body, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("retryable status should be wrapped temporary, got %v", err)
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vector, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}
