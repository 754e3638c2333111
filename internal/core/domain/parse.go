package domain

// ParsedLesson is one lesson section extracted from a course document,
// metadata plus the raw body text that still needs chunking.
type ParsedLesson struct {
	Lesson
	Body string
}

// ParsedCourse is the structured form of one course document.
type ParsedCourse struct {
	Title      string
	Instructor string
	Link       string
	Lessons    []ParsedLesson
}

func (p ParsedCourse) CourseMetadata() Course {
	lessons := make([]Lesson, 0, len(p.Lessons))
	for _, lesson := range p.Lessons {
		lessons = append(lessons, lesson.Lesson)
	}
	return Course{
		Title:      p.Title,
		Instructor: p.Instructor,
		Link:       p.Link,
		Lessons:    lessons,
	}
}
