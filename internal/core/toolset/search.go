package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

const SearchToolName = "search_course_content"

// SearchTool searches course content with fuzzy course-name matching
// and optional lesson filtering. It records one citation per formatted
// result; citations persist until the next successful execution or an
// explicit reset.
type SearchTool struct {
	retriever ports.CourseRetriever
	citations []string
}

func NewSearchTool(retriever ports.CourseRetriever) *SearchTool {
	return &SearchTool{retriever: retriever}
}

func (t *SearchTool) Definition() domain.ToolDefinition {
	schema := openapi3.NewObjectSchema().
		WithProperty("query", describedString("What to search for in the course content")).
		WithProperty("course_name", describedString("Course title (partial matches work, e.g. 'MCP', 'Introduction')")).
		WithProperty("lesson_number", describedInteger("Specific lesson number to search within (e.g. 1, 2, 3)"))
	schema.Required = []string{"query"}

	return domain.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: schema,
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) string {
	query := stringArg(args, "query")
	courseName := stringArg(args, "course_name")
	lessonNumber := intArgPtr(args, "lesson_number")

	results, err := t.retriever.Search(ctx, query, domain.SearchFilter{
		CourseName:   courseName,
		LessonNumber: lessonNumber,
	})
	// Backend errors pass through verbatim: the model sees the same
	// message a human operator would.
	if err != nil {
		return err.Error()
	}

	if results.IsEmpty() {
		var filterInfo strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filterInfo, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filterInfo, " in lesson %d", *lessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filterInfo.String())
	}

	return t.formatResults(ctx, results)
}

// formatResults renders one header+body block per result and replaces
// the tool's citation list with this execution's sources.
func (t *SearchTool) formatResults(ctx context.Context, results domain.SearchResults) string {
	blocks := make([]string, 0, len(results.Documents))
	citations := make([]string, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		title := meta.CourseTitle
		if title == "" {
			title = "unknown"
		}

		lessonLink := ""
		if meta.LessonNumber != nil && title != "unknown" {
			// A missing link is not an error worth surfacing here;
			// the header falls back to plain text.
			if link, err := t.retriever.GetLessonLink(ctx, title, *meta.LessonNumber); err == nil {
				lessonLink = link
			}
		}

		var header, citation string
		if lessonLink != "" {
			header = fmt.Sprintf("[[%s - Lesson %d]](%s)", title, *meta.LessonNumber, lessonLink)
			citation = fmt.Sprintf("[%s - Lesson %d](%s)", title, *meta.LessonNumber, lessonLink)
		} else {
			headerText := title
			if meta.LessonNumber != nil {
				headerText += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
			}
			header = "[" + headerText + "]"
			citation = headerText
		}

		citations = append(citations, citation)
		blocks = append(blocks, header+"\n"+doc)
	}

	t.citations = citations
	return strings.Join(blocks, "\n\n")
}

func (t *SearchTool) Citations() []string {
	return append([]string(nil), t.citations...)
}

func (t *SearchTool) ResetCitations() {
	t.citations = nil
}
