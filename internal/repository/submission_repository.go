package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
)

// SubmissionRepository handles persistence of assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, student_id, assignment_id, course_id, content, file_ref, status,
        grade, feedback, submitted_at, graded_at`

// List returns submissions filtered by the provided criteria.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	base := "FROM submissions"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d",
		submissionColumns, base+clause, size, offset)

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// FindByID returns a submission by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByStudentAndAssignment returns the single submission for the pair,
// or nil when none exists.
func (r *SubmissionRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE student_id = $1 AND assignment_id = $2", submissionColumns)
	var submission models.Submission
	err := r.db.GetContext(ctx, &submission, query, studentID, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// Upsert inserts a submission or replaces the existing one for the same
// (student, assignment) pair. A resubmission resets the record to SUBMITTED
// and discards any prior grade.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	submission.Status = models.SubmissionStatusSubmitted
	submission.Grade = nil
	submission.Feedback = nil
	submission.GradedAt = nil

	const query = `INSERT INTO submissions (id, student_id, assignment_id, course_id, content, file_ref, status,
        grade, feedback, submitted_at, graded_at)
        VALUES (:id, :student_id, :assignment_id, :course_id, :content, :file_ref, :status,
        :grade, :feedback, :submitted_at, :graded_at)
        ON CONFLICT (student_id, assignment_id) DO UPDATE SET
        content = EXCLUDED.content, file_ref = EXCLUDED.file_ref, status = EXCLUDED.status,
        grade = EXCLUDED.grade, feedback = EXCLUDED.feedback,
        submitted_at = EXCLUDED.submitted_at, graded_at = EXCLUDED.graded_at`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// UpdateGrade persists the grading fields.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, submission *models.Submission) error {
	const query = `UPDATE submissions SET status = :status, grade = :grade, feedback = :feedback,
        graded_at = :graded_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("update submission grade: %w", err)
	}
	return nil
}

// CountGradedForStudent counts graded submissions of a student in a course,
// used by the progress projection.
func (r *SubmissionRepository) CountGradedForStudent(ctx context.Context, studentID, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE student_id = $1 AND course_id = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, courseID, models.SubmissionStatusGraded); err != nil {
		return 0, fmt.Errorf("count graded submissions: %w", err)
	}
	return count, nil
}
