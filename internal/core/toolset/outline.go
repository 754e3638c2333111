package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

const OutlineToolName = "get_course_outline"

// OutlineTool renders a course's structure: title, link, instructor and
// the full lesson list. Course names are resolved in strict order:
// exact case-insensitive title match, then substring-or-prefix match,
// then the backend's fuzzy resolution as last resort.
type OutlineTool struct {
	retriever ports.CourseRetriever
}

func NewOutlineTool(retriever ports.CourseRetriever) *OutlineTool {
	return &OutlineTool{retriever: retriever}
}

func (t *OutlineTool) Definition() domain.ToolDefinition {
	schema := openapi3.NewObjectSchema().
		WithProperty("course_name", describedString("Course title (partial matches work, e.g. 'MCP', 'Introduction')"))
	schema.Required = []string{"course_name"}

	return domain.ToolDefinition{
		Name:        OutlineToolName,
		Description: "Get course structure including title, link, and complete lesson list",
		InputSchema: schema,
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) string {
	courseName := stringArg(args, "course_name")

	courses, err := t.retriever.GetAllCoursesMetadata(ctx)
	if err != nil {
		return err.Error()
	}
	if len(courses) == 0 {
		return "No courses found in the system"
	}

	match := resolveCourse(courses, courseName)
	if match == nil {
		if resolved, err := t.retriever.ResolveCourseName(ctx, courseName); err == nil && resolved != "" {
			for i := range courses {
				if courses[i].Title == resolved {
					match = &courses[i]
					break
				}
			}
		}
	}

	if match == nil {
		titles := make([]string, 0, len(courses))
		for _, course := range courses {
			titles = append(titles, course.Title)
		}
		return fmt.Sprintf("No course found matching '%s'. Available courses: %s",
			courseName, strings.Join(titles, ", "))
	}

	return formatOutline(*match)
}

// resolveCourse applies the direct text-matching strategies. An exact
// title match always wins, even when a substring match would also
// succeed.
func resolveCourse(courses []domain.Course, courseName string) *domain.Course {
	needle := strings.ToLower(courseName)

	for i := range courses {
		if strings.ToLower(courses[i].Title) == needle {
			return &courses[i]
		}
	}
	for i := range courses {
		title := strings.ToLower(courses[i].Title)
		if strings.Contains(title, needle) || strings.HasPrefix(title, needle) {
			return &courses[i]
		}
	}
	return nil
}

func formatOutline(course domain.Course) string {
	var out strings.Builder

	if course.Link != "" {
		fmt.Fprintf(&out, "# [%s](%s)", course.Title, course.Link)
	} else {
		fmt.Fprintf(&out, "# %s", course.Title)
	}

	instructor := course.Instructor
	if instructor == "" {
		instructor = "Unknown"
	}
	fmt.Fprintf(&out, "\n**Instructor:** %s\n", instructor)

	if len(course.Lessons) == 0 {
		out.WriteString("\n**No lessons found**\n")
		return out.String()
	}

	fmt.Fprintf(&out, "\n**Lessons (%d total):**\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		if lesson.Link != "" {
			fmt.Fprintf(&out, "- Lesson %d: [%s](%s)\n", lesson.Number, lesson.Title, lesson.Link)
		} else {
			fmt.Fprintf(&out, "- Lesson %d: %s\n", lesson.Number, lesson.Title)
		}
	}
	return out.String()
}

// The outline tool does not attribute per-chunk sources.

func (t *OutlineTool) Citations() []string { return nil }

func (t *OutlineTool) ResetCitations() {}
