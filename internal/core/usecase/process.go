package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

// ProcessCourseUseCase turns an uploaded course document into searchable
// state: extracted text is parsed into course metadata and lessons, the
// lesson bodies are chunked and embedded, and the chunks, the course
// title vector and the catalog entry are indexed. A course whose title
// is already cataloged is skipped, re-uploading a file never duplicates
// chunks.
type ProcessCourseUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	parser    ports.CourseParser
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	catalog   ports.CourseCatalog
}

func NewProcessCourseUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	parser ports.CourseParser,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	catalog ports.CourseCatalog,
) *ProcessCourseUseCase {
	return &ProcessCourseUseCase{
		repo:      repo,
		extractor: extractor,
		parser:    parser,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		catalog:   catalog,
	}
}

func (uc *ProcessCourseUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	skipped, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	finalStatus := domain.StatusReady
	if skipped {
		finalStatus = domain.StatusSkipped
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, finalStatus, ""); err != nil {
		return fmt.Errorf("set status=%s: %w", finalStatus, err)
	}
	return nil
}

func (uc *ProcessCourseUseCase) processPipeline(ctx context.Context, documentID string) (skipped bool, err error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return false, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	parsed, err := uc.parser.Parse(text)
	if err != nil {
		return false, fmt.Errorf("parse course document: %w", err)
	}

	exists, err := uc.catalog.CourseExists(ctx, parsed.Title)
	if err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	if exists {
		if err := uc.repo.SaveParseResult(ctx, doc.ID, parsed.Title, 0); err != nil {
			return false, fmt.Errorf("save parse result: %w", err)
		}
		return true, nil
	}

	chunks := uc.buildChunks(parsed)
	if len(chunks) == 0 {
		return false, domain.WrapError(domain.ErrInvalidInput, "chunk course", errors.New("chunking produced zero chunks"))
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return false, domain.WrapError(domain.ErrInvalidInput, "embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)))
	}

	if err := uc.vectorDB.IndexCourseChunks(ctx, chunks, vectors); err != nil {
		return false, fmt.Errorf("index chunks in vector db: %w", err)
	}

	titleVector, err := uc.embedder.EmbedQuery(ctx, parsed.Title)
	if err != nil {
		return false, fmt.Errorf("embed course title: %w", err)
	}
	if err := uc.vectorDB.IndexCourseTitle(ctx, parsed.Title, titleVector); err != nil {
		return false, fmt.Errorf("index course title: %w", err)
	}

	if err := uc.catalog.UpsertCourse(ctx, parsed.CourseMetadata()); err != nil {
		return false, fmt.Errorf("upsert course catalog: %w", err)
	}

	if err := uc.repo.SaveParseResult(ctx, doc.ID, parsed.Title, len(chunks)); err != nil {
		return false, fmt.Errorf("save parse result: %w", err)
	}
	return false, nil
}

// buildChunks splits each lesson body and tags every chunk with its
// lesson number so filtered search can narrow to one lesson. Chunk
// indexes run across the whole course.
func (uc *ProcessCourseUseCase) buildChunks(parsed *domain.ParsedCourse) []domain.CourseChunk {
	var chunks []domain.CourseChunk
	index := 0
	for _, lesson := range parsed.Lessons {
		for _, piece := range uc.chunker.Split(lesson.Body) {
			number := lesson.Number
			chunks = append(chunks, domain.CourseChunk{
				CourseTitle:  parsed.Title,
				LessonNumber: &number,
				ChunkIndex:   index,
				Text:         piece,
			})
			index++
		}
	}
	return chunks
}
