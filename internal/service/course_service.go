package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetStatus(ctx context.Context, id string, status models.CourseStatus) error
}

// CreateCourseRequest describes course creation input.
type CreateCourseRequest struct {
	Title               string                `json:"title" validate:"required,min=3,max=200"`
	Code                string                `json:"code" validate:"required,min=2,max=32"`
	Description         string                `json:"description" validate:"max=2000"`
	Category            models.CourseCategory `json:"category" validate:"required,oneof=ICT TOURISM AGRICULTURE CONSTRUCTION AUTOMOTIVE"`
	Level               models.CourseLevel    `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	DurationHours       int                   `json:"duration_hours" validate:"gte=0"`
	Instructor          string                `json:"instructor" validate:"max=200"`
	MaxStudents         int                   `json:"max_students" validate:"required,gt=0"`
	CoursePassword      string                `json:"course_password" validate:"max=100"`
	AllowSelfEnrollment bool                  `json:"allow_self_enrollment"`
}

// UpdateCourseRequest describes course update input.
type UpdateCourseRequest struct {
	Title               *string                `json:"title" validate:"omitempty,min=3,max=200"`
	Description         *string                `json:"description" validate:"omitempty,max=2000"`
	Category            *models.CourseCategory `json:"category" validate:"omitempty,oneof=ICT TOURISM AGRICULTURE CONSTRUCTION AUTOMOTIVE"`
	Level               *models.CourseLevel    `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	DurationHours       *int                   `json:"duration_hours" validate:"omitempty,gte=0"`
	Instructor          *string                `json:"instructor" validate:"omitempty,max=200"`
	MaxStudents         *int                   `json:"max_students" validate:"omitempty,gt=0"`
	Status              *models.CourseStatus   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE DRAFT"`
	CoursePassword      *string                `json:"course_password" validate:"omitempty,max=100"`
	AllowSelfEnrollment *bool                  `json:"allow_self_enrollment"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     projectionInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache projectionInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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
	return courses, pagination, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog in DRAFT state unless activated via
// a later update.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Title:               req.Title,
		Code:                req.Code,
		Description:         req.Description,
		Category:            req.Category,
		Level:               req.Level,
		DurationHours:       req.DurationHours,
		Instructor:          req.Instructor,
		MaxStudents:         req.MaxStudents,
		CoursePassword:      req.CoursePassword,
		AllowSelfEnrollment: req.AllowSelfEnrollment,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update edits catalog attributes. Shrinking MaxStudents below the current
// enrollment count is allowed: existing students keep their seats and the
// course simply stops admitting until attrition brings it under the cap.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.DurationHours != nil {
		course.DurationHours = *req.DurationHours
	}
	if req.Instructor != nil {
		course.Instructor = *req.Instructor
	}
	if req.MaxStudents != nil {
		course.MaxStudents = *req.MaxStudents
	}
	if req.Status != nil {
		course.Status = *req.Status
	}
	if req.CoursePassword != nil {
		course.CoursePassword = *req.CoursePassword
	}
	if req.AllowSelfEnrollment != nil {
		course.AllowSelfEnrollment = *req.AllowSelfEnrollment
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	if s.cache != nil {
		s.cache.InvalidateCourse(ctx, id)
	}
	return course, nil
}

// Deactivate closes a course to new enrollments. Existing enrollments are
// untouched; deactivation is reversible via Update.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, id, models.CourseStatusInactive); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	if s.cache != nil {
		s.cache.InvalidateCourse(ctx, id)
	}
	s.logger.Info("course deactivated", zap.String("course_id", id))
	return nil
}

// SeedDefaults inserts the built-in catalog courses that are not present
// yet. Existing rows, including locally edited copies, are left untouched.
func (s *CourseService) SeedDefaults(ctx context.Context, defaults []models.Course) (int, error) {
	created := 0
	for i := range defaults {
		course := defaults[i]
		_, err := s.repo.FindByID(ctx, course.ID)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seeded course")
		}
		if err := s.repo.Create(ctx, &course); err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed course")
		}
		created++
	}
	if created > 0 {
		s.logger.Info("default catalog seeded", zap.Int("courses", created))
	}
	return created, nil
}
