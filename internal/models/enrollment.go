package models

import (
	"math"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
// ENROLLED is the only non-terminal state: COMPLETED and DROPPED are
// terminal, re-enrolling after a drop creates a new record.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Terminal reports whether no further transition is permitted.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusDropped
}

// Enrollment captures a student's registration to a course.
//
// Progress is always derived from the lesson counters; it is recomputed on
// every mutation and never accepted from input.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	CourseID         string           `db:"course_id" json:"course_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	Progress         int              `db:"progress" json:"progress"`
	LessonsCompleted int              `db:"lessons_completed" json:"lessons_completed"`
	TotalLessons     int              `db:"total_lessons" json:"total_lessons"`
	NextLessonID     *string          `db:"next_lesson_id" json:"next_lesson_id,omitempty"`
	FinalGrade       *int             `db:"final_grade" json:"final_grade,omitempty"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt      *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	DroppedAt        *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
}

// RecomputeProgress derives the progress percentage from the lesson
// counters. Zero total lessons yields zero progress.
func (e *Enrollment) RecomputeProgress() {
	if e.TotalLessons <= 0 {
		e.Progress = 0
		return
	}
	e.Progress = int(math.Round(float64(e.LessonsCompleted) / float64(e.TotalLessons) * 100))
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
	CourseCode  string `db:"course_code" json:"course_code"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
