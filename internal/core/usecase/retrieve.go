package usecase

import (
	"context"
	"fmt"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

// RetrieverService is the unified retrieval backend behind the tools. It
// resolves partial course names semantically, embeds queries and narrows
// vector search by course and lesson.
type RetrieverService struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	catalog  ports.CourseCatalog
	limit    int
}

func NewRetrieverService(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	catalog ports.CourseCatalog,
	limit int,
) *RetrieverService {
	if limit <= 0 {
		limit = 5
	}
	return &RetrieverService{
		embedder: embedder,
		vectors:  vectors,
		catalog:  catalog,
		limit:    limit,
	}
}

func (s *RetrieverService) Search(ctx context.Context, query string, filter domain.SearchFilter) (domain.SearchResults, error) {
	courseTitle := ""
	if filter.CourseName != "" {
		resolved, err := s.ResolveCourseName(ctx, filter.CourseName)
		if err != nil || resolved == "" {
			return domain.SearchResults{}, fmt.Errorf("no course found matching '%s'", filter.CourseName)
		}
		courseTitle = resolved
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return domain.SearchResults{}, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.vectors.Search(ctx, queryVector, s.limit, courseTitle, filter.LessonNumber)
	if err != nil {
		return domain.SearchResults{}, fmt.Errorf("search error: %w", err)
	}
	return results, nil
}

// ResolveCourseName maps a partial name to a canonical catalog title via
// nearest-neighbor search over embedded titles.
func (s *RetrieverService) ResolveCourseName(ctx context.Context, partial string) (string, error) {
	vector, err := s.embedder.EmbedQuery(ctx, partial)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}
	title, err := s.vectors.NearestCourseTitle(ctx, vector)
	if err != nil {
		return "", fmt.Errorf("resolve course name: %w", err)
	}
	return title, nil
}

func (s *RetrieverService) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	course, err := s.catalog.GetCourseByTitle(ctx, courseTitle)
	if err != nil {
		return "", fmt.Errorf("load course: %w", err)
	}
	link := course.LessonLink(lessonNumber)
	if link == "" {
		return "", domain.WrapError(domain.ErrCourseNotFound, "get lesson link",
			fmt.Errorf("lesson %d has no link in course %q", lessonNumber, courseTitle))
	}
	return link, nil
}

func (s *RetrieverService) GetAllCoursesMetadata(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
