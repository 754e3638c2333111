package ports

import (
	"context"
	"io"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// QueryAssistant is the inbound contract for answering course questions.
type QueryAssistant interface {
	Answer(ctx context.Context, query, sessionID string) (*domain.Answer, error)
}

// CourseAnalytics is the inbound read model for corpus statistics.
type CourseAnalytics interface {
	CourseStats(ctx context.Context) (int, []string, error)
}

// DocumentIngestor is the inbound contract for course document uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous course
// document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
