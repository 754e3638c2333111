package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
)

// CourseRepository is the course catalog: canonical titles, instructors,
// links and lesson lists. Lessons are stored as a JSONB blob, they are
// always read and written as one unit.
type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS courses (
	title TEXT PRIMARY KEY,
	instructor TEXT,
	link TEXT,
	lessons JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CourseRepository) UpsertCourse(ctx context.Context, course domain.Course) error {
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO courses (title, instructor, link, lessons, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
ON CONFLICT (title) DO UPDATE
SET instructor = EXCLUDED.instructor, link = EXCLUDED.link, lessons = EXCLUDED.lessons, updated_at = EXCLUDED.updated_at
`, course.Title, course.Instructor, course.Link, lessonsJSON, now)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

func (r *CourseRepository) GetCourseByTitle(ctx context.Context, title string) (*domain.Course, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT title, COALESCE(instructor, ''), COALESCE(link, ''), lessons, created_at, updated_at
FROM courses
WHERE title = $1
`, title)

	course, err := scanCourse(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCourseNotFound, "get course", fmt.Errorf("title=%s", title))
		}
		return nil, err
	}
	return course, nil
}

func (r *CourseRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT title, COALESCE(instructor, ''), COALESCE(link, ''), lessons, created_at, updated_at
FROM courses
ORDER BY created_at ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

func (r *CourseRepository) CourseExists(ctx context.Context, title string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE title = $1)`, title)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("course exists: %w", err)
	}
	return exists, nil
}

func scanCourse(scan func(dest ...any) error) (*domain.Course, error) {
	var course domain.Course
	var lessonsRaw []byte

	if err := scan(&course.Title, &course.Instructor, &course.Link, &lessonsRaw, &course.CreatedAt, &course.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	if err := json.Unmarshal(lessonsRaw, &course.Lessons); err != nil {
		return nil, fmt.Errorf("unmarshal lessons: %w", err)
	}
	return &course, nil
}
