package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

type sessionsFake struct {
	ensured    string
	history    string
	historyErr error
	appendErr  error

	appendedUser      string
	appendedAssistant string
}

func (f *sessionsFake) EnsureSession(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = "session-new"
	}
	f.ensured = sessionID
	return sessionID, nil
}

func (f *sessionsFake) FormatHistory(context.Context, string, int) (string, error) {
	if f.historyErr != nil {
		return "", f.historyErr
	}
	return f.history, nil
}

func (f *sessionsFake) AppendExchange(_ context.Context, _, userMessage, assistantMessage string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appendedUser = userMessage
	f.appendedAssistant = assistantMessage
	return nil
}

func newAnswerFixture(llm *scriptedLLM, tools *toolProviderFake, sessions *sessionsFake) *AssistantUseCase {
	return NewAssistantUseCase(llm, func() ToolProvider { return tools }, sessions, 2)
}

func TestAssistantAnswerCollectsCitations(t *testing.T) {
	llm := &scriptedLLM{steps: []llmStep{{resp: textResponse("answer")}}}
	tools := &toolProviderFake{citations: []string{"[MCP - Lesson 1](https://example.com)"}}
	sessions := &sessionsFake{}
	uc := newAnswerFixture(llm, tools, sessions)

	answer, err := uc.Answer(context.Background(), "question", "session-1")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "answer" {
		t.Fatalf("unexpected text: %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Citations[0] != "[MCP - Lesson 1](https://example.com)" {
		t.Fatalf("unexpected citations: %v", answer.Citations)
	}
	if answer.SessionID != "session-1" {
		t.Fatalf("unexpected session id: %q", answer.SessionID)
	}
}

func TestAssistantAnswerCreatesSession(t *testing.T) {
	llm := &scriptedLLM{steps: []llmStep{{resp: textResponse("answer")}}}
	sessions := &sessionsFake{}
	uc := newAnswerFixture(llm, &toolProviderFake{}, sessions)

	answer, err := uc.Answer(context.Background(), "question", "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.SessionID != "session-new" {
		t.Fatalf("expected generated session id, got %q", answer.SessionID)
	}
}

func TestAssistantAnswerPersistsExchange(t *testing.T) {
	llm := &scriptedLLM{steps: []llmStep{{resp: textResponse("answer")}}}
	sessions := &sessionsFake{}
	uc := newAnswerFixture(llm, &toolProviderFake{}, sessions)

	if _, err := uc.Answer(context.Background(), "question", "s"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if sessions.appendedUser != "question" || sessions.appendedAssistant != "answer" {
		t.Fatalf("exchange not persisted: %q / %q", sessions.appendedUser, sessions.appendedAssistant)
	}
}

func TestAssistantAnswerHistoryFlowsToEngine(t *testing.T) {
	llm := &scriptedLLM{steps: []llmStep{{resp: textResponse("answer")}}}
	sessions := &sessionsFake{history: "User: hi\nAssistant: hello"}
	uc := newAnswerFixture(llm, &toolProviderFake{}, sessions)

	if _, err := uc.Answer(context.Background(), "question", "s"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := llm.requests[0].System; !strings.Contains(got, "Previous conversation:\nUser: hi\nAssistant: hello") {
		t.Fatalf("history missing from system prompt:\n%s", got)
	}
}

func TestAssistantAnswerHistoryFailureIsNonFatal(t *testing.T) {
	llm := &scriptedLLM{steps: []llmStep{{resp: textResponse("answer")}}}
	sessions := &sessionsFake{historyErr: errors.New("db down")}
	uc := newAnswerFixture(llm, &toolProviderFake{}, sessions)

	if _, err := uc.Answer(context.Background(), "question", "s"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
}

func TestAssistantAnswerRejectsEmptyQuery(t *testing.T) {
	uc := newAnswerFixture(&scriptedLLM{}, &toolProviderFake{}, &sessionsFake{})

	_, err := uc.Answer(context.Background(), "   ", "s")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

// toolCallLLM issues a tool call whenever tool schemas are offered and
// plain text otherwise. It keeps no state, so it is safe to share
// across goroutines.
type toolCallLLM struct{}

func (toolCallLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ModelResponse, error) {
	if len(req.Tools) > 0 {
		return &domain.ModelResponse{
			StopReason: domain.StopReasonToolUse,
			Content: []domain.ContentBlock{{
				Kind:       domain.BlockToolCall,
				ToolName:   "search_course_content",
				ToolCallID: "call-1",
				ToolArgs:   map[string]any{"query": req.Messages[0].Content[0].Text},
			}},
		}, nil
	}
	return textResponse("answer"), nil
}

// recordingTools notes one citation per execution, tagged with the
// query it served.
type recordingTools struct {
	citations []string
}

func (r *recordingTools) Definitions() []domain.ToolDefinition { return searchDefs() }

func (r *recordingTools) Execute(_ context.Context, _ string, args map[string]any) string {
	query, _ := args["query"].(string)
	r.citations = append(r.citations, "source for "+query)
	return "chunk for " + query
}

func (r *recordingTools) Citations() []string { return r.citations }

func (r *recordingTools) ResetCitations() { r.citations = nil }

type statelessSessions struct{}

func (statelessSessions) EnsureSession(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = "session-new"
	}
	return sessionID, nil
}

func (statelessSessions) FormatHistory(context.Context, string, int) (string, error) {
	return "", nil
}

func (statelessSessions) AppendExchange(context.Context, string, string, string) error {
	return nil
}

func TestAssistantAnswerConcurrentQueriesKeepCitationsApart(t *testing.T) {
	uc := NewAssistantUseCase(toolCallLLM{}, func() ToolProvider {
		return &recordingTools{}
	}, statelessSessions{}, 2)

	const workers = 8
	failures := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			marker := fmt.Sprintf("lesson %d", i)
			answer, err := uc.Answer(context.Background(), "what does "+marker+" cover?", fmt.Sprintf("session-%d", i))
			if err != nil {
				failures <- err.Error()
				return
			}
			if len(answer.Citations) == 0 {
				failures <- "no citations for " + marker
				return
			}
			for _, citation := range answer.Citations {
				if !strings.Contains(citation, marker) {
					failures <- fmt.Sprintf("citation %q does not belong to the %s query", citation, marker)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(failures)
	for msg := range failures {
		t.Fatal(msg)
	}
}

func TestAnalyticsCourseStats(t *testing.T) {
	catalog := &catalogFake{courses: []domain.Course{{Title: "A"}, {Title: "B"}}}
	uc := NewAnalyticsUseCase(catalog)

	total, titles, err := uc.CourseStats(context.Background())
	if err != nil {
		t.Fatalf("CourseStats() error = %v", err)
	}
	if total != 2 || titles[0] != "A" || titles[1] != "B" {
		t.Fatalf("unexpected stats: %d %v", total, titles)
	}
}
