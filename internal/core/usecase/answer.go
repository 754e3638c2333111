package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

// AssistantUseCase answers course questions end to end: it loads session
// history, runs the generation engine, collects the sources cited by the
// tools and records the exchange.
//
// newTools builds the tool set for a single query. Tool citation
// buffers are per-query state, so every Answer call gets its own
// registry; sharing one across concurrent queries would mix their
// sources.
type AssistantUseCase struct {
	llm          llmCaller
	newTools     func() ToolProvider
	sessions     ports.ConversationHistory
	maxExchanges int
}

func NewAssistantUseCase(
	llm llmCaller,
	newTools func() ToolProvider,
	sessions ports.ConversationHistory,
	maxExchanges int,
) *AssistantUseCase {
	if maxExchanges <= 0 {
		maxExchanges = 2
	}
	return &AssistantUseCase{
		llm:          llm,
		newTools:     newTools,
		sessions:     sessions,
		maxExchanges: maxExchanges,
	}
}

func (uc *AssistantUseCase) Answer(ctx context.Context, query, sessionID string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", fmt.Errorf("query is required"))
	}

	sessionID, err := uc.sessions.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	// History is best effort: an unreadable transcript degrades the
	// answer, it must not block it.
	history, err := uc.sessions.FormatHistory(ctx, sessionID, uc.maxExchanges)
	if err != nil {
		history = ""
	}

	tools := uc.newTools()
	engine := NewGenerationEngine(uc.llm, tools)

	text := engine.GenerateResponse(ctx, query, history)
	citations := append([]string(nil), tools.Citations()...)

	if err := uc.sessions.AppendExchange(ctx, sessionID, query, text); err != nil {
		return nil, fmt.Errorf("append exchange: %w", err)
	}

	return &domain.Answer{
		Text:      text,
		Citations: citations,
		SessionID: sessionID,
	}, nil
}

// AnalyticsUseCase exposes corpus-level statistics for the courses API.
type AnalyticsUseCase struct {
	catalog ports.CourseCatalog
}

func NewAnalyticsUseCase(catalog ports.CourseCatalog) *AnalyticsUseCase {
	return &AnalyticsUseCase{catalog: catalog}
}

func (uc *AnalyticsUseCase) CourseStats(ctx context.Context) (int, []string, error) {
	courses, err := uc.catalog.ListCourses(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list courses: %w", err)
	}
	titles := make([]string, 0, len(courses))
	for _, course := range courses {
		titles = append(titles, course.Title)
	}
	return len(titles), titles, nil
}
