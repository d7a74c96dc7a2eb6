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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	CreateWithCounter(ctx context.Context, enrollment *models.Enrollment) error
	DropWithCounter(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error
	Complete(ctx context.Context, enrollment *models.Enrollment) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseReconciler interface {
	courseReader
	ListIDs(ctx context.Context) ([]string, error)
	Reconcile(ctx context.Context, courseID string) (bool, error)
}

type lessonCounter interface {
	CountForStudent(ctx context.Context, courseID string) (total int, firstLessonID *string, err error)
}

type projectionInvalidator interface {
	InvalidateCourse(ctx context.Context, courseID string)
}

// EnrollRequest describes a self-enrollment attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Password  string `json:"password"`
	// StaffOverride is set by staff endpoints enrolling on a student's
	// behalf, never from student input.
	StaffOverride bool `json:"-"`
}

// CompleteEnrollmentRequest carries the optional final grade.
type CompleteEnrollmentRequest struct {
	FinalGrade *int `json:"final_grade" validate:"omitempty,gte=0,lte=100"`
}

// EnrollmentService orchestrates the enrollment ledger: one record per
// (student, course) attempt, with drops terminal and re-enrollment after a
// drop producing a fresh record.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReconciler
	lessons   lessonCounter
	guard     *CapacityGuard
	cache     projectionInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReconciler, lessons lessonCounter, guard *CapacityGuard, cache projectionInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if guard == nil {
		guard = NewCapacityGuard()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, lessons: lessons, guard: guard, cache: cache, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Get returns a single enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ListForStudent returns every enrollment of a student.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	return enrollments, nil
}

// Enroll registers a student to a course. The preconditions run in a fixed
// order so the client always sees the first failed gate: course active,
// not already enrolled, seat available, self-enrollment allowed, password.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.ErrCourseInactive
	}

	active, err := s.repo.FindActiveByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if active != nil {
		return nil, appErrors.ErrAlreadyEnrolled
	}

	if err := s.guard.CheckEnroll(course, EnrollCheck{Password: req.Password, StaffOverride: req.StaffOverride}); err != nil {
		return nil, err
	}

	total, firstLessonID, err := s.lessons.CountForStudent(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course lessons")
	}

	enrollment := &models.Enrollment{
		StudentID:    req.StudentID,
		CourseID:     req.CourseID,
		TotalLessons: total,
		NextLessonID: firstLessonID,
		EnrolledAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateWithCounter(ctx, enrollment); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.invalidate(ctx, req.CourseID)
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID))
	return enrollment, nil
}

// Drop marks an enrollment dropped and releases its seat. Dropping is
// terminal: the record never transitions again, and a later enrollment to
// the same course creates a new record.
func (s *EnrollmentService) Drop(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}
	if err := s.repo.DropWithCounter(ctx, enrollment); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.invalidate(ctx, enrollment.CourseID)
	s.logger.Info("enrollment dropped",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", enrollment.CourseID))
	return enrollment, nil
}

// CompleteLesson advances the lesson counter for an active enrollment and
// re-derives the progress percentage. The counter is capped at the total,
// so completing an already counted lesson is a no-op rather than an error.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, id string, nextLessonID *string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}

	if enrollment.LessonsCompleted < enrollment.TotalLessons {
		enrollment.LessonsCompleted++
	}
	enrollment.NextLessonID = nextLessonID
	enrollment.RecomputeProgress()

	if err := s.repo.UpdateProgress(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	s.invalidate(ctx, enrollment.CourseID)
	return enrollment, nil
}

// Complete marks an active enrollment completed with an optional final
// grade. Completion keeps the seat: only drops release one.
func (s *EnrollmentService) Complete(ctx context.Context, id string, req CompleteEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}

	enrollment.FinalGrade = req.FinalGrade
	enrollment.LessonsCompleted = enrollment.TotalLessons
	enrollment.RecomputeProgress()
	if err := s.repo.Complete(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
	}

	s.invalidate(ctx, enrollment.CourseID)
	s.logger.Info("enrollment completed",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", enrollment.CourseID))
	return enrollment, nil
}

// Reconcile recounts the seat counter of every course from the enrollment
// ledger, repairing any drift left by partial failures.
func (s *EnrollmentService) Reconcile(ctx context.Context) (int, error) {
	ids, err := s.courses.ListIDs(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	repaired := 0
	for _, id := range ids {
		drifted, err := s.courses.Reconcile(ctx, id)
		if err != nil {
			s.logger.Warn("course counter reconcile failed", zap.String("course_id", id), zap.Error(err))
			continue
		}
		if drifted {
			repaired++
			s.invalidate(ctx, id)
			s.logger.Info("course counter repaired", zap.String("course_id", id))
		}
	}
	return repaired, nil
}

func (s *EnrollmentService) invalidate(ctx context.Context, courseID string) {
	if s.cache != nil {
		s.cache.InvalidateCourse(ctx, courseID)
	}
}
