package domain

import "time"

// Lesson is one numbered unit inside a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the catalog entry for one ingested course document.
// Title is the canonical identifier: course names arriving from the model
// are resolved against it before any filtered search.
type Course struct {
	Title      string    `json:"title"`
	Instructor string    `json:"instructor,omitempty"`
	Link       string    `json:"course_link,omitempty"`
	Lessons    []Lesson  `json:"lessons"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c Course) LessonLink(number int) string {
	for _, lesson := range c.Lessons {
		if lesson.Number == number {
			return lesson.Link
		}
	}
	return ""
}

// CourseChunk is one indexed slice of lesson content.
type CourseChunk struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
	Text         string `json:"text"`
}
