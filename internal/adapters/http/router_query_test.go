package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kmelnikov/course-assistant/internal/config"
	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

type assistantFake struct {
	answer *domain.Answer
	err    error

	lastQuery     string
	lastSessionID string
}

func (f *assistantFake) Answer(_ context.Context, query, sessionID string) (*domain.Answer, error) {
	f.lastQuery = query
	f.lastSessionID = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type analyticsFake struct {
	total  int
	titles []string
	err    error
}

func (f analyticsFake) CourseStats(context.Context) (int, []string, error) {
	return f.total, f.titles, f.err
}

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", Filename: "a.txt", MimeType: "text/plain", StoragePath: "doc-1_a.txt", Status: domain.StatusReady}, nil
}

func newTestHandler(cfg config.Config, assistant *assistantFake, analytics analyticsFake) http.Handler {
	if assistant == nil {
		assistant = &assistantFake{answer: &domain.Answer{Text: "ok", SessionID: "s-1"}}
	}
	return NewRouter(cfg, assistant, analytics, ingestFake{}, docsFake{}, nil).Handler()
}

func postQuery(t *testing.T, handler http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryReturnsAnswerWithSources(t *testing.T) {
	assistant := &assistantFake{
		answer: &domain.Answer{
			Text:      "MCP stands for Model Context Protocol.",
			Citations: []string{"Introduction to MCP - Lesson 1"},
			SessionID: "session-7",
		},
	}
	handler := newTestHandler(config.Config{}, assistant, analyticsFake{})

	res := postQuery(t, handler, map[string]any{"query": "What is MCP?", "session_id": "session-7"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp struct {
		Answer    string   `json:"answer"`
		Sources   []string `json:"sources"`
		SessionID string   `json:"session_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "MCP stands for Model Context Protocol." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "Introduction to MCP - Lesson 1" {
		t.Fatalf("unexpected sources: %v", resp.Sources)
	}
	if resp.SessionID != "session-7" {
		t.Fatalf("unexpected session id: %q", resp.SessionID)
	}
	if assistant.lastQuery != "What is MCP?" {
		t.Fatalf("expected query forwarded, got %q", assistant.lastQuery)
	}
	if assistant.lastSessionID != "session-7" {
		t.Fatalf("expected session id forwarded, got %q", assistant.lastSessionID)
	}
}

func TestQuerySerializesEmptySourcesAsArray(t *testing.T) {
	assistant := &assistantFake{answer: &domain.Answer{Text: "general knowledge", SessionID: "s-1"}}
	handler := newTestHandler(config.Config{}, assistant, analyticsFake{})

	res := postQuery(t, handler, map[string]any{"query": "What is 2+2?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	sources, ok := resp["sources"].([]any)
	if !ok {
		t.Fatalf("expected sources to be a JSON array, got %T", resp["sources"])
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %v", sources)
	}
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, analyticsFake{})

	res := postQuery(t, handler, map[string]any{"query": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, analyticsFake{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte("{not json")))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsDomainInvalidInputTo400(t *testing.T) {
	assistant := &assistantFake{err: domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("bad query"))}
	handler := newTestHandler(config.Config{}, assistant, analyticsFake{})

	res := postQuery(t, handler, map[string]any{"query": "test"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsTemporaryFailureTo503(t *testing.T) {
	assistant := &assistantFake{err: domain.WrapError(domain.ErrTemporary, "answer query", errors.New("model backend down"))}
	handler := newTestHandler(config.Config{}, assistant, analyticsFake{})

	res := postQuery(t, handler, map[string]any{"query": "test"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestCoursesReturnsStats(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, analyticsFake{
		total:  2,
		titles: []string{"Introduction to MCP", "Advanced Retrieval"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		TotalCourses int      `json:"total_courses"`
		CourseTitles []string `json:"course_titles"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCourses != 2 {
		t.Fatalf("expected 2 courses, got %d", resp.TotalCourses)
	}
	if len(resp.CourseTitles) != 2 || resp.CourseTitles[1] != "Advanced Retrieval" {
		t.Fatalf("unexpected titles: %v", resp.CourseTitles)
	}
}

func TestCoursesSerializesEmptyCatalogAsArray(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, analyticsFake{})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["course_titles"].([]any); !ok {
		t.Fatalf("expected course_titles to be a JSON array, got %T", resp["course_titles"])
	}
}

func TestCoursesRejectsPost(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, analyticsFake{})

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
