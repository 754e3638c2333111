package domain

// SearchFilter narrows a content search. CourseName may be approximate;
// the retrieval backend resolves it to a canonical title. A nil
// LessonNumber means "any lesson" (lesson 0 is a valid filter value).
type SearchFilter struct {
	CourseName   string
	LessonNumber *int
}

// ChunkRef locates one retrieved chunk in the course corpus.
type ChunkRef struct {
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// SearchResults pairs retrieved documents with their metadata,
// aligned index for index.
type SearchResults struct {
	Documents []string   `json:"documents"`
	Metadata  []ChunkRef `json:"metadata"`
}

// IsEmpty reports a valid "nothing matched" outcome, distinct from a
// backend failure (which surfaces as a Go error).
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}

// Answer is the fully assembled response to one query.
type Answer struct {
	Text      string   `json:"answer"`
	Citations []string `json:"sources"`
	SessionID string   `json:"session_id,omitempty"`
}
