package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

const baseSystemPrompt = `You are an educational AI assistant that reasons through problems in phases to provide comprehensive answers.

**Phase-Based Reasoning:**
- INVESTIGATION: Gather relevant information using available tools when you need specific course content
- SYNTHESIS: Create comprehensive answers using all available context

**Tool Usage Philosophy:**
- **Content Search Tool**: Use for questions about specific course content or detailed educational materials
- **Course Outline Tool**: Use for questions about course structure, lesson lists, or course overviews
- Tools are available throughout your reasoning process
- Use judgment about when additional information would be helpful
- Focus on answering the user's actual question efficiently

**Response Guidelines:**
- **General knowledge questions**: Answer using existing knowledge without using tools
- **Course-specific questions**: Use tools to gather accurate information
- **Multi-part queries**: Investigate systematically, then synthesize findings
- **No meta-commentary**: Provide direct answers without explaining your process

All responses must be:
1. **Brief and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
`

const (
	phaseInvestigate       = "investigate"
	phaseSynthesize        = "synthesize"
	phaseSynthesisFallback = "synthesis_fallback"

	noResponsePlaceholder = "Unable to generate response"

	// Cap for the untooled follow-up call after a tool round.
	followUpMaxTokens = 800
)

type phaseConfig struct {
	suffix    string
	maxTokens int
}

var phaseConfigs = map[string]phaseConfig{
	phaseInvestigate: {
		suffix: "\n\n**Current Phase: INVESTIGATION**\nYour goal is to gather relevant information. " +
			"Use tools to search for content when needed. If you find useful information, you can " +
			"choose to investigate further or provide a complete answer.",
		maxTokens: 600,
	},
	phaseSynthesize: {
		suffix: "\n\n**Current Phase: SYNTHESIS**\nYou have access to previous investigation results. " +
			"Provide a comprehensive answer using all available context. You may use tools once more " +
			"if additional clarification is needed.",
		maxTokens: 800,
	},
}

// ToolProvider is what the engine needs from the tool registry.
type ToolProvider interface {
	Definitions() []domain.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) string
	Citations() []string
	ResetCitations()
}

// llmCaller matches ports.ToolCallingLLM; declared locally so the engine
// can be constructed from any conforming client.
type llmCaller interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ModelResponse, error)
}

// GenerationEngine drives the two-phase reasoning protocol: an
// investigation pass that may call tools, then a synthesis pass over the
// investigation's output. Model failures never escape as errors; every
// path yields displayable text.
type GenerationEngine struct {
	llm   llmCaller
	tools ToolProvider
}

func NewGenerationEngine(llm llmCaller, tools ToolProvider) *GenerationEngine {
	return &GenerationEngine{llm: llm, tools: tools}
}

// GenerateResponse answers the query. history is a pre-formatted
// conversation transcript, or "" for a fresh session.
//
// Synthesis is skipped when the investigation failed or answered without
// tools. A failed synthesis falls back to the investigation text when
// one exists.
func (e *GenerationEngine) GenerateResponse(ctx context.Context, query, history string) string {
	investigation := e.executePhase(ctx, phaseInvestigate, query, history)

	if shouldTerminateAfterInvestigation(investigation) {
		return finalText(investigation)
	}

	synthesis := e.executeSynthesis(ctx, query, history, investigation)
	return finalText(synthesis)
}

func (e *GenerationEngine) executePhase(ctx context.Context, phase, query, history string) domain.PhaseResult {
	req := domain.ChatRequest{
		System:    e.buildSystemContent(phase, history, nil),
		Messages:  []domain.ModelMessage{userTextMessage(query)},
		Tools:     e.tools.Definitions(),
		MaxTokens: phaseConfigs[phase].maxTokens,
	}

	resp, err := e.llm.Chat(ctx, req)
	if err != nil {
		return domain.PhaseResult{
			Phase:  phase,
			Text:   fmt.Sprintf("Error in %s phase: %s", phase, err),
			Status: domain.PhaseFailed,
			Err:    err.Error(),
		}
	}

	if resp.StopReason == domain.StopReasonToolUse {
		text, err := e.runToolRound(ctx, req, resp)
		if err != nil {
			return domain.PhaseResult{
				Phase:  phase,
				Text:   fmt.Sprintf("Error in %s phase: %s", phase, err),
				Status: domain.PhaseFailed,
				Err:    err.Error(),
			}
		}
		return domain.PhaseResult{Phase: phase, Text: text, UsedTool: true, Status: domain.PhaseSucceeded}
	}

	return domain.PhaseResult{Phase: phase, Text: resp.FirstText(), Status: domain.PhaseSucceeded}
}

func (e *GenerationEngine) executeSynthesis(ctx context.Context, query, history string, investigation domain.PhaseResult) domain.PhaseResult {
	synthesisQuery := query
	if investigation.Status == domain.PhaseSucceeded && investigation.Text != "" {
		synthesisQuery = fmt.Sprintf(
			"Original question: %s\n\nBased on the investigation, please provide a comprehensive answer.",
			query)
	}

	req := domain.ChatRequest{
		System:    e.buildSystemContent(phaseSynthesize, history, &investigation),
		Messages:  []domain.ModelMessage{userTextMessage(synthesisQuery)},
		Tools:     e.tools.Definitions(),
		MaxTokens: phaseConfigs[phaseSynthesize].maxTokens,
	}

	resp, err := e.llm.Chat(ctx, req)
	if err != nil {
		if investigation.Status == domain.PhaseSucceeded && investigation.Text != "" {
			return domain.PhaseResult{
				Phase:          phaseSynthesisFallback,
				Text:           investigation.Text,
				UsedTool:       investigation.UsedTool,
				Status:         domain.PhaseFellBack,
				FallbackReason: fmt.Sprintf("Synthesis failed: %s", err),
			}
		}
		return domain.PhaseResult{
			Phase:  phaseSynthesize,
			Text:   fmt.Sprintf("Unable to complete synthesis: %s", err),
			Status: domain.PhaseFailed,
			Err:    err.Error(),
		}
	}

	if resp.StopReason == domain.StopReasonToolUse {
		text, err := e.runToolRound(ctx, req, resp)
		if err != nil {
			if investigation.Status == domain.PhaseSucceeded && investigation.Text != "" {
				return domain.PhaseResult{
					Phase:          phaseSynthesisFallback,
					Text:           investigation.Text,
					UsedTool:       investigation.UsedTool,
					Status:         domain.PhaseFellBack,
					FallbackReason: fmt.Sprintf("Synthesis failed: %s", err),
				}
			}
			return domain.PhaseResult{
				Phase:  phaseSynthesize,
				Text:   fmt.Sprintf("Unable to complete synthesis: %s", err),
				Status: domain.PhaseFailed,
				Err:    err.Error(),
			}
		}
		return domain.PhaseResult{Phase: phaseSynthesize, Text: text, UsedTool: true, Status: domain.PhaseSucceeded}
	}

	return domain.PhaseResult{Phase: phaseSynthesize, Text: resp.FirstText(), Status: domain.PhaseSucceeded}
}

// runToolRound executes the tool calls from resp sequentially, feeds the
// results back, and asks for the phase's closing text. The follow-up
// call carries no tool schemas, so at most one tool round happens per
// phase.
func (e *GenerationEngine) runToolRound(ctx context.Context, req domain.ChatRequest, resp *domain.ModelResponse) (string, error) {
	messages := append([]domain.ModelMessage{}, req.Messages...)
	messages = append(messages, domain.ModelMessage{Role: "assistant", Content: resp.Content})

	var results []domain.ContentBlock
	for _, call := range resp.ToolCalls() {
		output := e.tools.Execute(ctx, call.ToolName, call.ToolArgs)
		results = append(results, domain.ContentBlock{
			Kind:       domain.BlockToolResult,
			ToolName:   call.ToolName,
			ToolCallID: call.ToolCallID,
			Text:       output,
		})
	}
	if len(results) > 0 {
		messages = append(messages, domain.ModelMessage{Role: "user", Content: results})
	}

	final, err := e.llm.Chat(ctx, domain.ChatRequest{
		System:    req.System,
		Messages:  messages,
		MaxTokens: followUpMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return final.FirstText(), nil
}

func (e *GenerationEngine) buildSystemContent(phase, history string, investigation *domain.PhaseResult) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString(phaseConfigs[phase].suffix)
	if history != "" {
		fmt.Fprintf(&b, "\n\nPrevious conversation:\n%s", history)
	}
	if phase == phaseSynthesize && investigation != nil &&
		investigation.Status == domain.PhaseSucceeded && investigation.Text != "" {
		fmt.Fprintf(&b, "\n\n**Investigation Results:**\n%s", investigation.Text)
	}
	return b.String()
}

func shouldTerminateAfterInvestigation(investigation domain.PhaseResult) bool {
	if investigation.Status != domain.PhaseSucceeded {
		return true
	}
	return !investigation.UsedTool
}

func finalText(result domain.PhaseResult) string {
	if result.Text == "" {
		return noResponsePlaceholder
	}
	return result.Text
}

func userTextMessage(text string) domain.ModelMessage {
	return domain.ModelMessage{
		Role:    "user",
		Content: []domain.ContentBlock{{Kind: domain.BlockText, Text: text}},
	}
}
