package models

import "time"

// Origin classifies where a content record came from. Records seeded from
// the default catalog carry OriginRemote and are never written back to the
// local tier; only locally authored records persist there.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// AssignmentStatus gates student visibility of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "DRAFT"
	AssignmentStatusPublished AssignmentStatus = "PUBLISHED"
)

// Material is a downloadable resource attached to a lesson.
type Material struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	FileRef string `json:"file_ref"`
	Kind    string `json:"kind"`
}

// Assignment is graded work attached to a lesson. Only PUBLISHED
// assignments are visible to or submittable by students.
type Assignment struct {
	ID           string           `json:"id"`
	LessonID     string           `json:"lesson_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Instructions string           `json:"instructions"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	MaxPoints    int              `json:"max_points"`
	Status       AssignmentStatus `json:"status"`
}

// Lesson is a unit of course content. A course's lessons are persisted as
// one JSON array under a course-scoped key in the content store.
type Lesson struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"course_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	DurationMin int          `json:"duration_min"`
	Position    int          `json:"position"`
	IsPublished bool         `json:"is_published"`
	Origin      Origin       `json:"origin"`
	Materials   []Material   `json:"materials,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RecordID implements merge.Record.
func (l Lesson) RecordID() string { return l.ID }

// RecordOrigin implements merge.Record.
func (l Lesson) RecordOrigin() Origin { return l.Origin }
