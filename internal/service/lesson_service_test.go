package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/merge"
	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type mockLessonRepo struct {
	local map[string][]models.Lesson
}

func (m *mockLessonRepo) LoadLocal(ctx context.Context, courseID string) ([]models.Lesson, error) {
	return m.local[courseID], nil
}

func (m *mockLessonRepo) SaveLocal(ctx context.Context, courseID string, lessons []models.Lesson) error {
	if m.local == nil {
		m.local = make(map[string][]models.Lesson)
	}
	// Remote-origin records never land in the local tier.
	m.local[courseID] = merge.LocalOnly(lessons)
	return nil
}

func (m *mockLessonRepo) RemoveCourse(ctx context.Context, courseID string) error {
	delete(m.local, courseID)
	return nil
}

func defaultCatalog(courseID string) []models.Lesson {
	if courseID != "course-1" {
		return nil
	}
	return []models.Lesson{
		{ID: "def-1", CourseID: "course-1", Title: "Safety Orientation", Position: 1, IsPublished: true, Origin: models.OriginRemote},
		{ID: "def-2", CourseID: "course-1", Title: "Hand Tools", Position: 2, IsPublished: true, Origin: models.OriginRemote,
			Assignments: []models.Assignment{
				{ID: "asg-pub", LessonID: "def-2", Title: "Tool identification", MaxPoints: 20, Status: models.AssignmentStatusPublished},
				{ID: "asg-draft", LessonID: "def-2", Title: "Practice", MaxPoints: 10, Status: models.AssignmentStatusDraft},
			}},
		{ID: "def-3", CourseID: "course-1", Title: "Final Project", Position: 3, IsPublished: false, Origin: models.OriginRemote},
	}
}

func newLessonFixture() (*mockLessonRepo, *LessonService) {
	repo := &mockLessonRepo{local: make(map[string][]models.Lesson)}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Status: models.CourseStatusActive},
	}}
	svc := NewLessonService(repo, courses, defaultCatalog, validator.New(), zap.NewNop())
	return repo, svc
}

func TestLessonServiceListMergesTiers(t *testing.T) {
	repo, svc := newLessonFixture()
	repo.local["course-1"] = []models.Lesson{
		{ID: "loc-1", CourseID: "course-1", Title: "Shop Practice", Position: 4, IsPublished: true, Origin: models.OriginLocal},
		{ID: "def-2", CourseID: "course-1", Title: "Hand Tools (revised)", Position: 2, IsPublished: true, Origin: models.OriginLocal},
	}

	lessons, err := svc.List(context.Background(), "course-1", false)
	require.NoError(t, err)
	require.Len(t, lessons, 4)
	assert.Equal(t, "def-1", lessons[0].ID)
	// The local record shadows the default under the same id.
	assert.Equal(t, "Hand Tools (revised)", lessons[1].Title)
	assert.Equal(t, models.OriginLocal, lessons[1].Origin)
	assert.Equal(t, "def-3", lessons[2].ID)
	assert.Equal(t, "loc-1", lessons[3].ID)
}

func TestLessonServiceListStudentView(t *testing.T) {
	_, svc := newLessonFixture()

	lessons, err := svc.List(context.Background(), "course-1", true)
	require.NoError(t, err)
	// The draft lesson def-3 is stripped.
	require.Len(t, lessons, 2)
	// Inside published lessons, draft assignments are stripped too.
	require.Len(t, lessons[1].Assignments, 1)
	assert.Equal(t, "asg-pub", lessons[1].Assignments[0].ID)
}

func TestLessonServiceListCourseNotFound(t *testing.T) {
	_, svc := newLessonFixture()

	_, err := svc.List(context.Background(), "missing", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreate(t *testing.T) {
	repo, svc := newLessonFixture()

	lesson, err := svc.Create(context.Background(), "course-1", CreateLessonRequest{
		Title: "Workplace Communication", IsPublished: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OriginLocal, lesson.Origin)
	// Position defaults past the existing working set.
	assert.Equal(t, 4, lesson.Position)
	require.Len(t, repo.local["course-1"], 1)
}

func TestLessonServiceUpdateMaterializesShadow(t *testing.T) {
	repo, svc := newLessonFixture()
	title := "Hand Tools and Safety"

	lesson, err := svc.Update(context.Background(), "course-1", "def-2", UpdateLessonRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.OriginLocal, lesson.Origin)
	assert.Equal(t, title, lesson.Title)

	// The shadow now lives in the local tier and wins on the next read.
	local := repo.local["course-1"]
	require.Len(t, local, 1)
	assert.Equal(t, "def-2", local[0].ID)

	lessons, err := svc.List(context.Background(), "course-1", false)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.Equal(t, title, lessons[1].Title)
}

func TestLessonServiceDeleteLocalOnly(t *testing.T) {
	repo, svc := newLessonFixture()
	repo.local["course-1"] = []models.Lesson{
		{ID: "loc-1", CourseID: "course-1", Title: "Shop Practice", Position: 4, Origin: models.OriginLocal},
	}

	require.NoError(t, svc.Delete(context.Background(), "course-1", "loc-1"))
	assert.Empty(t, repo.local["course-1"])

	// A never-shadowed default has nothing to delete in the local tier.
	err := svc.Delete(context.Background(), "course-1", "def-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceAddMaterial(t *testing.T) {
	repo, svc := newLessonFixture()

	lesson, err := svc.AddMaterial(context.Background(), "course-1", "def-1", AddMaterialRequest{
		Title: "Safety handbook", FileRef: "uploads/handbook.pdf", Kind: "document",
	})
	require.NoError(t, err)
	require.Len(t, lesson.Materials, 1)
	assert.Equal(t, models.OriginLocal, lesson.Origin)
	require.Len(t, repo.local["course-1"], 1)
}

func TestLessonServicePublishAssignment(t *testing.T) {
	_, svc := newLessonFixture()

	lesson, err := svc.PublishAssignment(context.Background(), "course-1", "def-2", "asg-draft")
	require.NoError(t, err)
	published, ok := findAssignment(lesson.Assignments, "asg-draft")
	require.True(t, ok)
	assert.Equal(t, models.AssignmentStatusPublished, published.Status)

	// The assignment is now visible through the merged set lookup.
	assignment, err := svc.FindAssignment(context.Background(), "course-1", "asg-draft")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusPublished, assignment.Status)
}

func findAssignment(assignments []models.Assignment, id string) (models.Assignment, bool) {
	for _, a := range assignments {
		if a.ID == id {
			return a, true
		}
	}
	return models.Assignment{}, false
}

func TestLessonServiceCountForStudent(t *testing.T) {
	repo, svc := newLessonFixture()

	total, first, err := svc.CountForStudent(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.NotNil(t, first)
	assert.Equal(t, "def-1", *first)

	// An all-draft course seeds empty counters.
	repo.local["course-1"] = nil
	unpublished := func(string) []models.Lesson {
		return []models.Lesson{{ID: "d1", Position: 1, Origin: models.OriginRemote}}
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1"}}}
	svc = NewLessonService(repo, courses, unpublished, validator.New(), zap.NewNop())
	total, first, err = svc.CountForStudent(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Nil(t, first)
}
