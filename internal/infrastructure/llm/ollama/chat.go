package ollama

import (
	"context"
	"fmt"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// ChatClient drives the native /api/chat tool-calling endpoint.
// Sampling is deterministic: temperature is pinned to zero.
type ChatClient struct {
	client *Client
}

func NewChatClient(client *Client) *ChatClient {
	return &ChatClient{client: client}
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type chatToolCall struct {
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type chatTool struct {
	Type     string         `json:"type"`
	Function chatToolSchema `json:"function"`
}

type chatToolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

func (c *ChatClient) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ModelResponse, error) {
	payload := map[string]any{
		"model":    c.client.chatModel,
		"messages": buildMessages(req),
		"stream":   false,
		"options": map[string]any{
			"temperature": 0,
			"num_predict": req.MaxTokens,
		},
	}
	if len(req.Tools) > 0 {
		payload["tools"] = buildTools(req.Tools)
	}

	var response chatResponse
	if err := c.client.postJSON(ctx, "/api/chat", payload, &response, "chat"); err != nil {
		return nil, err
	}
	return toModelResponse(response), nil
}

func buildMessages(req domain.ChatRequest) []chatMessage {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}

	for _, msg := range req.Messages {
		var text string
		var calls []chatToolCall
		var toolResults []chatMessage

		for _, block := range msg.Content {
			switch block.Kind {
			case domain.BlockText:
				text += block.Text
			case domain.BlockToolCall:
				calls = append(calls, chatToolCall{Function: chatToolFunction{
					Name:      block.ToolName,
					Arguments: block.ToolArgs,
				}})
			case domain.BlockToolResult:
				toolResults = append(toolResults, chatMessage{
					Role:     "tool",
					Content:  block.Text,
					ToolName: block.ToolName,
				})
			}
		}

		if text != "" || len(calls) > 0 {
			messages = append(messages, chatMessage{Role: msg.Role, Content: text, ToolCalls: calls})
		}
		messages = append(messages, toolResults...)
	}
	return messages
}

func buildTools(defs []domain.ToolDefinition) []chatTool {
	tools := make([]chatTool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, chatTool{
			Type: "function",
			Function: chatToolSchema{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}
	return tools
}

func toModelResponse(resp chatResponse) *domain.ModelResponse {
	var blocks []domain.ContentBlock
	if resp.Message.Content != "" {
		blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockText, Text: resp.Message.Content})
	}
	for i, call := range resp.Message.ToolCalls {
		blocks = append(blocks, domain.ContentBlock{
			Kind:       domain.BlockToolCall,
			ToolName:   call.Function.Name,
			ToolCallID: fmt.Sprintf("call_%d", i),
			ToolArgs:   call.Function.Arguments,
		})
	}

	stop := domain.StopReasonDone
	if len(resp.Message.ToolCalls) > 0 {
		stop = domain.StopReasonToolUse
	}
	return &domain.ModelResponse{StopReason: stop, Content: blocks}
}
