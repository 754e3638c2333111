package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

type storageFake struct {
	saved map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	content, _ := io.ReadAll(data)
	f.saved[key] = string(content)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published []domain.DocumentIngested
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, event domain.DocumentIngested) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, domain.DocumentIngested) error) error {
	return nil
}

func TestUploadStoresAndPublishes(t *testing.T) {
	repo := &docRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "mcp course.txt", "text/plain", bytes.NewBufferString("Course Title: MCP"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", doc.Status)
	}
	if !strings.HasSuffix(doc.StoragePath, "_mcp_course.txt") {
		t.Fatalf("unexpected storage key: %q", doc.StoragePath)
	}
	if storage.saved[doc.StoragePath] != "Course Title: MCP" {
		t.Fatalf("body not stored")
	}
	if len(queue.published) != 1 || queue.published[0].DocumentID != doc.ID {
		t.Fatalf("ingestion event not published: %v", queue.published)
	}
	if !queue.published[0].IngestedAt.Equal(doc.CreatedAt) {
		t.Fatalf("ingestion event must carry the upload time, got %v", queue.published[0].IngestedAt)
	}
	if repo.doc == nil || repo.doc.ID != doc.ID {
		t.Fatalf("metadata not persisted")
	}
}

func TestUploadStorageFailure(t *testing.T) {
	uc := NewIngestDocumentUseCase(&docRepoFake{}, &storageFake{err: errors.New("disk full")}, &queueFake{})

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", bytes.NewBufferString("x")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my course.txt":    "my_course.txt",
		"../../etc/passwd": "passwd",
		"данные.txt":       "______.txt",
		"report-v2_f.xlsx": "report-v2_f.xlsx",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
