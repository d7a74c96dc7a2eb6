package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) error
	UpdateGrade(ctx context.Context, submission *models.Submission) error
}

type assignmentFinder interface {
	FindAssignment(ctx context.Context, courseID, assignmentID string) (*models.Assignment, error)
}

type activeEnrollmentReader interface {
	FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// SubmitRequest describes a submission payload.
type SubmitRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	AssignmentID string  `json:"assignment_id" validate:"required"`
	CourseID     string  `json:"course_id" validate:"required"`
	Content      string  `json:"content" validate:"required_without=FileRef"`
	FileRef      *string `json:"file_ref"`
}

// GradeRequest describes a grading payload.
type GradeRequest struct {
	Grade    int     `json:"grade" validate:"gte=0"`
	Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
}

// SubmissionService manages assignment submissions. One submission exists
// per (student, assignment) pair; resubmitting replaces the prior record
// and returns it to the ungraded state.
type SubmissionService struct {
	repo        submissionRepository
	assignments assignmentFinder
	enrollments activeEnrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, assignments assignmentFinder, enrollments activeEnrollmentReader, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, assignments: assignments, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns submissions with pagination metadata.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return submissions, pagination, nil
}

// Get returns a single submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// Submit records a student's work for a published assignment. The student
// must hold an active enrollment in the assignment's course.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.assignments.FindAssignment(ctx, req.CourseID, req.AssignmentID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if assignment.Status != models.AssignmentStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "assignment is not published")
	}

	enrollment, err := s.enrollments.FindActiveByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this course")
	}

	submission := &models.Submission{
		StudentID:    req.StudentID,
		AssignmentID: req.AssignmentID,
		CourseID:     req.CourseID,
		Content:      req.Content,
		FileRef:      req.FileRef,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	s.logger.Info("submission recorded",
		zap.String("student_id", req.StudentID),
		zap.String("assignment_id", req.AssignmentID))
	return submission, nil
}

// Grade records a score against a submission. The grade must lie within
// [0, MaxPoints] of the assignment; an out-of-range grade is rejected and
// the submission keeps its current status and score.
func (s *SubmissionService) Grade(ctx context.Context, id string, req GradeRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.FindAssignment(ctx, submission.CourseID, submission.AssignmentID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if req.Grade < 0 || req.Grade > assignment.MaxPoints {
		return nil, appErrors.ErrInvalidGrade
	}

	now := time.Now().UTC()
	grade := req.Grade
	submission.Status = models.SubmissionStatusGraded
	submission.Grade = &grade
	submission.Feedback = req.Feedback
	submission.GradedAt = &now

	if err := s.repo.UpdateGrade(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}
	s.logger.Info("submission graded",
		zap.String("submission_id", submission.ID),
		zap.Int("grade", grade),
		zap.Int("max_points", assignment.MaxPoints))
	return submission, nil
}
