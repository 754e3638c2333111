package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

type docRepoFake struct {
	doc      *domain.Document
	statuses []domain.DocumentStatus
	lastErr  string

	savedTitle  string
	savedChunks int
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.doc = doc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return f.doc, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	return nil
}

func (f *docRepoFake) SaveParseResult(_ context.Context, _, courseTitle string, chunkCount int) error {
	f.savedTitle = courseTitle
	f.savedChunks = chunkCount
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

type parserFake struct {
	parsed *domain.ParsedCourse
	err    error
}

func (f *parserFake) Parse(string) (*domain.ParsedCourse, error) {
	return f.parsed, f.err
}

type chunkerFake struct{}

// Splits on blank lines, close enough for pipeline tests.
func (chunkerFake) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(part) != "" {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}

func parsedFixture() *domain.ParsedCourse {
	return &domain.ParsedCourse{
		Title:      "MCP",
		Instructor: "Elie",
		Link:       "https://example.com/mcp",
		Lessons: []domain.ParsedLesson{
			{Lesson: domain.Lesson{Number: 0, Title: "Intro"}, Body: "part one\n\npart two"},
			{Lesson: domain.Lesson{Number: 1, Title: "Tools"}, Body: "part three"},
		},
	}
}

func processFixture(repo *docRepoFake, parser *parserFake, vectors *vectorStoreFake, catalog *catalogFake) *ProcessCourseUseCase {
	return NewProcessCourseUseCase(repo, &extractorFake{text: "raw"}, parser, chunkerFake{}, &embedderFake{}, vectors, catalog)
}

func TestProcessCourseHappyPath(t *testing.T) {
	repo := &docRepoFake{doc: &domain.Document{ID: "doc-1", Status: domain.StatusUploaded}}
	vectors := &vectorStoreFake{}
	catalog := &catalogFake{}
	uc := processFixture(repo, &parserFake{parsed: parsedFixture()}, vectors, catalog)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(vectors.indexedChunks) != 3 {
		t.Fatalf("expected 3 chunks indexed, got %d", len(vectors.indexedChunks))
	}
	first := vectors.indexedChunks[0]
	if first.CourseTitle != "MCP" || first.LessonNumber == nil || *first.LessonNumber != 0 {
		t.Fatalf("unexpected first chunk: %+v", first)
	}
	last := vectors.indexedChunks[2]
	if last.ChunkIndex != 2 || *last.LessonNumber != 1 {
		t.Fatalf("chunk indexes must run across lessons: %+v", last)
	}

	if len(vectors.indexedTitles) != 1 || vectors.indexedTitles[0] != "MCP" {
		t.Fatalf("course title not indexed: %v", vectors.indexedTitles)
	}
	if len(catalog.upserted) != 1 || len(catalog.upserted[0].Lessons) != 2 {
		t.Fatalf("catalog not updated: %+v", catalog.upserted)
	}
	if repo.savedTitle != "MCP" || repo.savedChunks != 3 {
		t.Fatalf("parse result not saved: %q %d", repo.savedTitle, repo.savedChunks)
	}
	if repo.statuses[len(repo.statuses)-1] != domain.StatusReady {
		t.Fatalf("expected ready status, got %v", repo.statuses)
	}
}

func TestProcessCourseSkipsExistingCourse(t *testing.T) {
	repo := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	vectors := &vectorStoreFake{}
	catalog := &catalogFake{exists: true}
	uc := processFixture(repo, &parserFake{parsed: parsedFixture()}, vectors, catalog)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(vectors.indexedChunks) != 0 {
		t.Fatalf("existing course must not be reindexed")
	}
	if repo.statuses[len(repo.statuses)-1] != domain.StatusSkipped {
		t.Fatalf("expected skipped status, got %v", repo.statuses)
	}
	if repo.savedTitle != "MCP" || repo.savedChunks != 0 {
		t.Fatalf("expected parse result with zero chunks, got %q %d", repo.savedTitle, repo.savedChunks)
	}
}

func TestProcessCourseParseFailureMarksFailed(t *testing.T) {
	repo := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := processFixture(repo, &parserFake{err: errors.New("missing course title")}, &vectorStoreFake{}, &catalogFake{})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}
	if repo.statuses[len(repo.statuses)-1] != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", repo.statuses)
	}
	if !strings.Contains(repo.lastErr, "missing course title") {
		t.Fatalf("failure reason not recorded: %q", repo.lastErr)
	}
}

func TestProcessCourseUnknownDocument(t *testing.T) {
	repo := &docRepoFake{}
	uc := processFixture(repo, &parserFake{parsed: parsedFixture()}, &vectorStoreFake{}, &catalogFake{})

	err := uc.ProcessByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document-not-found kind, got %v", err)
	}
}
