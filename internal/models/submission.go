package models

import "time"

// SubmissionStatus moves forward only: SUBMITTED precedes GRADED and a
// graded submission never reverts.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
)

// Submission relates one student to one assignment. At most one submission
// exists per (student, assignment) pair; resubmitting replaces the prior
// record.
type Submission struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	Content      string           `db:"content" json:"content"`
	FileRef      *string          `db:"file_ref" json:"file_ref,omitempty"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Grade        *int             `db:"grade" json:"grade,omitempty"`
	Feedback     *string          `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt     *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
}

// SubmissionFilter provides filters for listing submissions.
type SubmissionFilter struct {
	StudentID    string
	AssignmentID string
	CourseID     string
	Status       SubmissionStatus
	Page         int
	PageSize     int
}
