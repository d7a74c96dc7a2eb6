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

type reminderRepository interface {
	List(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, int, error)
	FindByID(ctx context.Context, id string) (*models.Reminder, error)
	Create(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, id string) error
	ListUnexpired(ctx context.Context) ([]models.Reminder, error)
}

type enrolledCourseReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// CreateReminderRequest describes reminder creation input.
type CreateReminderRequest struct {
	Title          string                  `json:"title" validate:"required,min=3,max=200"`
	Message        string                  `json:"message" validate:"required,max=4000"`
	Audience       models.ReminderAudience `json:"audience" validate:"required,oneof=ALL_STUDENTS SPECIFIC_STUDENTS SPECIFIC_EMAILS COURSE_STUDENTS ALL_USERS STAFF ADMINS"`
	TargetIDs      models.StringList       `json:"target_ids"`
	TargetEmails   models.StringList       `json:"target_emails" validate:"omitempty,dive,email"`
	TargetCourseID *string                 `json:"target_course_id"`
	Priority       models.ReminderPriority `json:"priority" validate:"required,oneof=LOW NORMAL HIGH"`
	ExpiresAt      *time.Time              `json:"expires_at"`
}

// ReminderViewer identifies who is asking for their reminder feed.
type ReminderViewer struct {
	UserID    string
	Email     string
	Role      models.UserRole
	CourseIDs []string
}

// ReminderService manages broadcast reminders and audience resolution.
// Staff may only address student audiences; admins may address anyone.
type ReminderService struct {
	repo        reminderRepository
	enrollments enrolledCourseReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReminderService constructs ReminderService.
func NewReminderService(repo reminderRepository, enrollments enrolledCourseReader, validate *validator.Validate, logger *zap.Logger) *ReminderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns reminders with pagination metadata, for management views.
func (s *ReminderService) List(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, *models.Pagination, error) {
	reminders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reminders")
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
	return reminders, pagination, nil
}

// Create publishes a reminder on behalf of the given creator.
func (s *ReminderService) Create(ctx context.Context, creatorID string, creatorRole models.UserRole, req CreateReminderRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reminder payload")
	}
	if err := checkAudiencePermission(creatorRole, req.Audience); err != nil {
		return nil, err
	}
	if err := checkAudienceTargets(req); err != nil {
		return nil, err
	}

	reminder := &models.Reminder{
		Title:          req.Title,
		Message:        req.Message,
		Audience:       req.Audience,
		TargetIDs:      req.TargetIDs,
		TargetEmails:   req.TargetEmails,
		TargetCourseID: req.TargetCourseID,
		Priority:       req.Priority,
		ExpiresAt:      req.ExpiresAt,
		CreatedBy:      creatorID,
		CreatorRole:    creatorRole,
	}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reminder")
	}
	s.logger.Info("reminder created",
		zap.String("reminder_id", reminder.ID),
		zap.String("audience", string(reminder.Audience)))
	return reminder, nil
}

// Update edits a reminder. The same audience restriction applies to the
// editor's role, so a staff member cannot repoint an admin broadcast.
func (s *ReminderService) Update(ctx context.Context, id string, editorRole models.UserRole, req CreateReminderRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reminder payload")
	}
	if err := checkAudiencePermission(editorRole, req.Audience); err != nil {
		return nil, err
	}
	if err := checkAudienceTargets(req); err != nil {
		return nil, err
	}

	reminder, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reminder")
	}

	reminder.Title = req.Title
	reminder.Message = req.Message
	reminder.Audience = req.Audience
	reminder.TargetIDs = req.TargetIDs
	reminder.TargetEmails = req.TargetEmails
	reminder.TargetCourseID = req.TargetCourseID
	reminder.Priority = req.Priority
	reminder.ExpiresAt = req.ExpiresAt

	if err := s.repo.Update(ctx, reminder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reminder")
	}
	return reminder, nil
}

// Delete removes a reminder.
func (s *ReminderService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reminder")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reminder")
	}
	return nil
}

// Feed returns the unexpired reminders visible to the viewer, resolving
// audience expressions against their role, identity and enrollments.
func (s *ReminderService) Feed(ctx context.Context, viewer ReminderViewer) ([]models.Reminder, error) {
	reminders, err := s.repo.ListUnexpired(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reminders")
	}

	if viewer.Role == models.RoleStudent && viewer.CourseIDs == nil && s.enrollments != nil {
		enrollments, err := s.enrollments.ListByStudent(ctx, viewer.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		for _, e := range enrollments {
			if e.Status != models.EnrollmentStatusDropped {
				viewer.CourseIDs = append(viewer.CourseIDs, e.CourseID)
			}
		}
	}

	visible := make([]models.Reminder, 0, len(reminders))
	for _, reminder := range reminders {
		if audienceMatches(reminder, viewer) {
			visible = append(visible, reminder)
		}
	}
	return visible, nil
}

func checkAudiencePermission(role models.UserRole, audience models.ReminderAudience) error {
	if role == models.RoleAdmin {
		return nil
	}
	if role == models.RoleStaff && audience.StudentAudience() {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role cannot address this audience")
}

func checkAudienceTargets(req CreateReminderRequest) error {
	switch req.Audience {
	case models.ReminderAudienceSpecificStudents:
		if len(req.TargetIDs) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "audience requires target student ids")
		}
	case models.ReminderAudienceSpecificEmails:
		if len(req.TargetEmails) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "audience requires target emails")
		}
	case models.ReminderAudienceCourseStudents:
		if req.TargetCourseID == nil || *req.TargetCourseID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "audience requires a target course")
		}
	}
	return nil
}

func audienceMatches(reminder models.Reminder, viewer ReminderViewer) bool {
	switch reminder.Audience {
	case models.ReminderAudienceAllUsers:
		return true
	case models.ReminderAudienceAllStudents:
		return viewer.Role == models.RoleStudent
	case models.ReminderAudienceStaff:
		return viewer.Role == models.RoleStaff
	case models.ReminderAudienceAdmins:
		return viewer.Role == models.RoleAdmin
	case models.ReminderAudienceSpecificStudents:
		for _, id := range reminder.TargetIDs {
			if id == viewer.UserID {
				return true
			}
		}
	case models.ReminderAudienceSpecificEmails:
		for _, email := range reminder.TargetEmails {
			if email == viewer.Email {
				return true
			}
		}
	case models.ReminderAudienceCourseStudents:
		if reminder.TargetCourseID == nil {
			return false
		}
		for _, courseID := range viewer.CourseIDs {
			if courseID == *reminder.TargetCourseID {
				return true
			}
		}
	}
	return false
}
