package ports

import (
	"context"
	"io"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// ToolCallingLLM performs one blocking model invocation, with or without
// tool schemas attached. Implementations must support deterministic
// sampling and a per-call output budget.
type ToolCallingLLM interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ModelResponse, error)
}

// CourseRetriever is the unified retrieval backend the tools depend on.
// Search performs fuzzy course-name resolution internally and narrows by
// lesson when a filter is given. An empty result with a nil error is a
// valid "nothing matched" outcome; errors carry the backend's message.
type CourseRetriever interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter) (domain.SearchResults, error)
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
	GetAllCoursesMetadata(ctx context.Context) ([]domain.Course, error)
	ResolveCourseName(ctx context.Context, partial string) (string, error)
}

// ConversationHistory supplies the opaque previously-formatted history
// blob prepended to the system prompt, and records completed exchanges.
type ConversationHistory interface {
	EnsureSession(ctx context.Context, sessionID string) (string, error)
	FormatHistory(ctx context.Context, sessionID string, maxExchanges int) (string, error)
	AppendExchange(ctx context.Context, sessionID, userMessage, assistantMessage string) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes course chunks and performs semantic search.
// ResolvedFilter carries a canonical course title, so no name resolution
// happens at this layer.
type VectorStore interface {
	IndexCourseChunks(ctx context.Context, chunks []domain.CourseChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, courseTitle string, lessonNumber *int) (domain.SearchResults, error)
	IndexCourseTitle(ctx context.Context, title string, vector []float32) error
	NearestCourseTitle(ctx context.Context, queryVector []float32) (string, error)
}

// CourseCatalog persists course metadata (titles, instructors, links,
// lesson lists).
type CourseCatalog interface {
	UpsertCourse(ctx context.Context, course domain.Course) error
	GetCourseByTitle(ctx context.Context, title string) (*domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	CourseExists(ctx context.Context, title string) (bool, error)
}

// DocumentRepository persists and reads document ingestion state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveParseResult(ctx context.Context, id, courseTitle string, chunkCount int) error
}

// ObjectStorage stores source course documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes course document ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, event domain.DocumentIngested) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, domain.DocumentIngested) error) error
}

// TextExtractor extracts plain text from a stored course document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// CourseParser turns extracted text into structured course metadata and
// per-lesson bodies.
type CourseParser interface {
	Parse(text string) (*domain.ParsedCourse, error)
}

// Chunker splits lesson text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}
