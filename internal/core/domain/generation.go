package domain

// StopReason explains why the model finished a turn.
type StopReason string

const (
	StopReasonDone    StopReason = "done"
	StopReasonToolUse StopReason = "tool_use"
)

// BlockKind discriminates content blocks in model messages.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolCall   BlockKind = "tool_call"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is one unit of message content. Text blocks carry Text;
// tool_call blocks carry ToolName, ToolCallID and ToolArgs; tool_result
// blocks carry ToolName, ToolCallID and Text (the tool's formatted
// output) so results stay correlated with the call that produced them.
type ContentBlock struct {
	Kind       BlockKind      `json:"kind"`
	Text       string         `json:"text,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolArgs   map[string]any `json:"tool_args,omitempty"`
}

// ModelMessage is one turn in a model conversation.
type ModelMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ChatRequest is a single model invocation. Tools may be nil to forbid
// tool use on this call. MaxTokens caps the output length.
type ChatRequest struct {
	System    string
	Messages  []ModelMessage
	Tools     []ToolDefinition
	MaxTokens int
}

// ModelResponse is the model's reply to one ChatRequest.
type ModelResponse struct {
	StopReason StopReason
	Content    []ContentBlock
}

// FirstText returns the first text block, or "" if the response carried
// no text content.
func (r *ModelResponse) FirstText() string {
	if r == nil {
		return ""
	}
	for _, block := range r.Content {
		if block.Kind == BlockText {
			return block.Text
		}
	}
	return ""
}

// ToolCalls returns tool_call blocks in the order the model listed them.
func (r *ModelResponse) ToolCalls() []ContentBlock {
	if r == nil {
		return nil
	}
	out := make([]ContentBlock, 0, len(r.Content))
	for _, block := range r.Content {
		if block.Kind == BlockToolCall {
			out = append(out, block)
		}
	}
	return out
}

// PhaseStatus tags the outcome of one reasoning phase.
type PhaseStatus string

const (
	PhaseSucceeded PhaseStatus = "succeeded"
	PhaseFailed    PhaseStatus = "failed"
	PhaseFellBack  PhaseStatus = "fallback"
)

// PhaseResult is the immutable outcome of one phase execution. It is
// consumed only by the phase orchestrator and never leaves the engine.
type PhaseResult struct {
	Phase          string
	Text           string
	UsedTool       bool
	Status         PhaseStatus
	Err            string
	FallbackReason string
}
