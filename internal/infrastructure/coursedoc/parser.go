package coursedoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// Parser reads the course document layout: a metadata header followed
// by "Lesson N: Title" sections.
//
//	Course Title: MCP: Build Rich-Context AI Apps
//	Course Link: https://example.com/mcp
//	Course Instructor: Elie Schoppik
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/mcp/lesson/0
//	<lesson content>
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

func (p *Parser) Parse(text string) (*domain.ParsedCourse, error) {
	lines := strings.Split(text, "\n")

	parsed := &domain.ParsedCourse{}
	bodyStart := len(lines)
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if matchHeader(line, "Course Title:", &parsed.Title) ||
			matchHeader(line, "Course Link:", &parsed.Link) ||
			matchHeader(line, "Course Instructor:", &parsed.Instructor) {
			continue
		}
		bodyStart = i
		break
	}

	if parsed.Title == "" {
		return nil, fmt.Errorf("course document missing 'Course Title:' header")
	}

	parsed.Lessons = parseLessons(lines[bodyStart:])
	if len(parsed.Lessons) == 0 {
		// No lesson markers: index the remaining text as a single section.
		body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
		if body != "" {
			parsed.Lessons = []domain.ParsedLesson{{
				Lesson: domain.Lesson{Number: 0, Title: parsed.Title},
				Body:   body,
			}}
		}
	}
	return parsed, nil
}

func parseLessons(lines []string) []domain.ParsedLesson {
	var lessons []domain.ParsedLesson
	var current *domain.ParsedLesson
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		lessons = append(lessons, *current)
		current = nil
		body = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if m := lessonHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			current = &domain.ParsedLesson{Lesson: domain.Lesson{Number: number, Title: strings.TrimSpace(m[2])}}
			continue
		}
		if current != nil {
			var link string
			if matchHeader(line, "Lesson Link:", &link) && current.Link == "" && len(body) == 0 {
				current.Link = link
				continue
			}
			body = append(body, raw)
		}
	}
	flush()
	return lessons
}

func matchHeader(line, prefix string, out *string) bool {
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return false
	}
	*out = strings.TrimSpace(line[len(prefix):])
	return true
}
