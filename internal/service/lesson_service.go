package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/merge"
	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type lessonRepository interface {
	LoadLocal(ctx context.Context, courseID string) ([]models.Lesson, error)
	SaveLocal(ctx context.Context, courseID string, lessons []models.Lesson) error
	RemoveCourse(ctx context.Context, courseID string) error
}

type defaultLessonCatalog func(courseID string) []models.Lesson

// CreateLessonRequest describes lesson creation input.
type CreateLessonRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Content     string `json:"content"`
	DurationMin int    `json:"duration_min" validate:"gte=0"`
	Position    int    `json:"position" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

// UpdateLessonRequest describes lesson update input.
type UpdateLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Content     *string `json:"content"`
	DurationMin *int    `json:"duration_min" validate:"omitempty,gte=0"`
	Position    *int    `json:"position" validate:"omitempty,gte=0"`
	IsPublished *bool   `json:"is_published"`
}

// AddMaterialRequest attaches a resource to a lesson.
type AddMaterialRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	FileRef string `json:"file_ref" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=document video link archive"`
}

// CreateAssignmentRequest attaches graded work to a lesson.
type CreateAssignmentRequest struct {
	Title        string     `json:"title" validate:"required,min=3,max=200"`
	Description  string     `json:"description" validate:"max=2000"`
	Instructions string     `json:"instructions"`
	DueDate      *time.Time `json:"due_date"`
	MaxPoints    int        `json:"max_points" validate:"required,gt=0"`
}

// LessonService serves the merged lesson working set of a course. The
// default catalog tier is merged under the locally authored tier on every
// read; writes only ever touch the local tier.
type LessonService struct {
	repo      lessonRepository
	courses   courseReader
	defaults  defaultLessonCatalog
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(repo lessonRepository, courses courseReader, defaults defaultLessonCatalog, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if defaults == nil {
		defaults = func(string) []models.Lesson { return nil }
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, courses: courses, defaults: defaults, validator: validate, logger: logger}
}

// List returns the merged lesson set of a course ordered by position.
// When publishedOnly is set, draft lessons and draft assignments are
// stripped, which is the student view.
func (s *LessonService) List(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if publishedOnly {
		lessons = studentView(lessons)
	}
	return lessons, nil
}

// Get returns one lesson from the merged working set.
func (s *LessonService) Get(ctx context.Context, courseID, lessonID string, publishedOnly bool) (*models.Lesson, error) {
	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if publishedOnly {
		lessons = studentView(lessons)
	}
	lesson, ok := merge.Find(lessons, lessonID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return &lesson, nil
}

// Create authors a new local lesson for a course.
func (s *LessonService) Create(ctx context.Context, courseID string, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	local, err := s.repo.LoadLocal(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	now := time.Now().UTC()
	lesson := models.Lesson{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		DurationMin: req.DurationMin,
		Position:    req.Position,
		IsPublished: req.IsPublished,
		Origin:      models.OriginLocal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if lesson.Position == 0 {
		lesson.Position = len(s.defaults(courseID)) + len(local) + 1
	}

	local = append(local, lesson)
	if err := s.repo.SaveLocal(ctx, courseID, local); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("lesson created", zap.String("course_id", courseID), zap.String("lesson_id", lesson.ID))
	return &lesson, nil
}

// Update edits a lesson. Editing a default-catalog lesson materializes it
// into the local tier under the same id, shadowing the default from then on.
func (s *LessonService) Update(ctx context.Context, courseID, lessonID string, req UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lesson, ok := merge.Find(lessons, lessonID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.DurationMin != nil {
		lesson.DurationMin = *req.DurationMin
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}
	if req.IsPublished != nil {
		lesson.IsPublished = *req.IsPublished
	}
	lesson.Origin = models.OriginLocal
	lesson.UpdatedAt = time.Now().UTC()

	if err := s.saveWorkingSet(ctx, courseID, replace(lessons, lesson)); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Delete removes a lesson from the local tier. A default-catalog lesson
// that was never shadowed cannot be deleted, only unpublished via Update.
func (s *LessonService) Delete(ctx context.Context, courseID, lessonID string) error {
	local, err := s.repo.LoadLocal(ctx, courseID)
	if err != nil {
		return appErrors.FromError(err)
	}
	kept := local[:0]
	found := false
	for _, l := range local {
		if l.ID == lessonID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found in local tier")
	}
	if err := s.repo.SaveLocal(ctx, courseID, kept); err != nil {
		return appErrors.FromError(err)
	}
	s.logger.Info("lesson deleted", zap.String("course_id", courseID), zap.String("lesson_id", lessonID))
	return nil
}

// AddMaterial attaches a resource to a lesson.
func (s *LessonService) AddMaterial(ctx context.Context, courseID, lessonID string, req AddMaterialRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	return s.mutateLesson(ctx, courseID, lessonID, func(lesson *models.Lesson) error {
		lesson.Materials = append(lesson.Materials, models.Material{
			ID:      uuid.NewString(),
			Title:   req.Title,
			FileRef: req.FileRef,
			Kind:    req.Kind,
		})
		return nil
	})
}

// CreateAssignment attaches draft graded work to a lesson.
func (s *LessonService) CreateAssignment(ctx context.Context, courseID, lessonID string, req CreateAssignmentRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	return s.mutateLesson(ctx, courseID, lessonID, func(lesson *models.Lesson) error {
		lesson.Assignments = append(lesson.Assignments, models.Assignment{
			ID:           uuid.NewString(),
			LessonID:     lesson.ID,
			Title:        req.Title,
			Description:  req.Description,
			Instructions: req.Instructions,
			DueDate:      req.DueDate,
			MaxPoints:    req.MaxPoints,
			Status:       models.AssignmentStatusDraft,
		})
		return nil
	})
}

// PublishAssignment makes an assignment visible and submittable.
func (s *LessonService) PublishAssignment(ctx context.Context, courseID, lessonID, assignmentID string) (*models.Lesson, error) {
	return s.mutateLesson(ctx, courseID, lessonID, func(lesson *models.Lesson) error {
		for i := range lesson.Assignments {
			if lesson.Assignments[i].ID == assignmentID {
				lesson.Assignments[i].Status = models.AssignmentStatusPublished
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	})
}

// FindAssignment locates an assignment in the merged working set.
func (s *LessonService) FindAssignment(ctx context.Context, courseID, assignmentID string) (*models.Assignment, error) {
	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, lesson := range lessons {
		for _, a := range lesson.Assignments {
			if a.ID == assignmentID {
				return &a, nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
}

// CountForStudent returns the published lesson count and the id of the
// first published lesson by position, seeding a new enrollment's counters.
func (s *LessonService) CountForStudent(ctx context.Context, courseID string) (int, *string, error) {
	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return 0, nil, err
	}
	published := studentView(lessons)
	if len(published) == 0 {
		return 0, nil, nil
	}
	first := published[0].ID
	return len(published), &first, nil
}

// PurgeCourse drops the local content tier of a course.
func (s *LessonService) PurgeCourse(ctx context.Context, courseID string) error {
	if err := s.repo.RemoveCourse(ctx, courseID); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

func (s *LessonService) workingSet(ctx context.Context, courseID string) ([]models.Lesson, error) {
	local, err := s.repo.LoadLocal(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	lessons := merge.Merge(s.defaults(courseID), local)
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })
	return lessons, nil
}

// saveWorkingSet persists a merged set; the repository strips remote-origin
// records on the way down.
func (s *LessonService) saveWorkingSet(ctx context.Context, courseID string, lessons []models.Lesson) error {
	if err := s.repo.SaveLocal(ctx, courseID, lessons); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

func (s *LessonService) mutateLesson(ctx context.Context, courseID, lessonID string, fn func(*models.Lesson) error) (*models.Lesson, error) {
	lessons, err := s.workingSet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lesson, ok := merge.Find(lessons, lessonID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	if err := fn(&lesson); err != nil {
		return nil, appErrors.FromError(err)
	}
	lesson.Origin = models.OriginLocal
	lesson.UpdatedAt = time.Now().UTC()

	if err := s.saveWorkingSet(ctx, courseID, replace(lessons, lesson)); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func replace(lessons []models.Lesson, lesson models.Lesson) []models.Lesson {
	for i := range lessons {
		if lessons[i].ID == lesson.ID {
			lessons[i] = lesson
			break
		}
	}
	return lessons
}

// studentView strips draft lessons and, inside published lessons, draft
// assignments.
func studentView(lessons []models.Lesson) []models.Lesson {
	visible := make([]models.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if !lesson.IsPublished {
			continue
		}
		if len(lesson.Assignments) > 0 {
			published := make([]models.Assignment, 0, len(lesson.Assignments))
			for _, a := range lesson.Assignments {
				if a.Status == models.AssignmentStatusPublished {
					published = append(published, a)
				}
			}
			lesson.Assignments = published
		}
		visible = append(visible, lesson)
	}
	return visible
}
