package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	active      map[string]models.Enrollment
	created     *models.Enrollment
	createErr   error
	dropped     []string
	updated     *models.Enrollment
	completed   *models.Enrollment
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.active[studentID+"/"+courseID]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) CreateWithCounter(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.RecomputeProgress()
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) DropWithCounter(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.Status = models.EnrollmentStatusDropped
	m.enrollments[enrollment.ID] = *enrollment
	// A dropped record no longer answers the active lookup.
	delete(m.active, enrollment.StudentID+"/"+enrollment.CourseID)
	m.dropped = append(m.dropped, enrollment.ID)
	return nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	m.enrollments[enrollment.ID] = *enrollment
	m.updated = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Complete(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.Status = models.EnrollmentStatusCompleted
	m.enrollments[enrollment.ID] = *enrollment
	m.completed = enrollment
	return nil
}

type mockCourseReconciler struct {
	courses    map[string]*models.Course
	ids        []string
	drifted    map[string]bool
	reconciled []string
}

func (m *mockCourseReconciler) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseReconciler) ListIDs(ctx context.Context) ([]string, error) {
	return m.ids, nil
}

func (m *mockCourseReconciler) Reconcile(ctx context.Context, courseID string) (bool, error) {
	m.reconciled = append(m.reconciled, courseID)
	return m.drifted[courseID], nil
}

type mockLessonCounter struct {
	total int
	first *string
}

func (m *mockLessonCounter) CountForStudent(ctx context.Context, courseID string) (int, *string, error) {
	return m.total, m.first, nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) InvalidateCourse(ctx context.Context, courseID string) {
	m.invalidated = append(m.invalidated, courseID)
}

func newEnrollmentFixture() (*mockEnrollmentRepo, *mockCourseReconciler, *mockLessonCounter, *mockInvalidator, *EnrollmentService) {
	repo := &mockEnrollmentRepo{enrollments: make(map[string]models.Enrollment), active: make(map[string]models.Enrollment)}
	first := "lesson-1"
	courses := &mockCourseReconciler{courses: map[string]*models.Course{
		"course-1": {
			ID:                  "course-1",
			Status:              models.CourseStatusActive,
			EnrolledStudents:    5,
			MaxStudents:         30,
			AllowSelfEnrollment: true,
		},
	}}
	lessons := &mockLessonCounter{total: 4, first: &first}
	cache := &mockInvalidator{}
	svc := NewEnrollmentService(repo, courses, lessons, NewCapacityGuard(), cache, validator.New(), zap.NewNop())
	return repo, courses, lessons, cache, svc
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo, _, _, cache, svc := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Equal(t, 4, enrollment.TotalLessons)
	require.NotNil(t, enrollment.NextLessonID)
	assert.Equal(t, "lesson-1", *enrollment.NextLessonID)
	assert.Equal(t, 0, enrollment.Progress)
	assert.Contains(t, cache.invalidated, "course-1")
}

func TestEnrollmentServiceEnrollCourseNotFound(t *testing.T) {
	_, _, _, _, svc := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollInactiveCourse(t *testing.T) {
	_, courses, _, _, svc := newEnrollmentFixture()
	courses.courses["course-1"].Status = models.CourseStatusDraft

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, appErrors.ErrCourseInactive)
}

func TestEnrollmentServiceEnrollAlreadyEnrolled(t *testing.T) {
	repo, courses, _, _, svc := newEnrollmentFixture()
	repo.active["stu-1/course-1"] = models.Enrollment{ID: "enr-0", StudentID: "stu-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled}
	// Already-enrolled wins over the capacity gate.
	courses.courses["course-1"].EnrolledStudents = 30

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestEnrollmentServiceEnrollRaceLosesSeat(t *testing.T) {
	repo, _, _, cache, svc := newEnrollmentFixture()
	// The snapshot showed a seat but the transactional counter update lost
	// the race; the repository error surfaces unchanged.
	repo.createErr = appErrors.ErrCourseFull

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, appErrors.ErrCourseFull)
	assert.Empty(t, cache.invalidated)
}

func TestEnrollmentServiceEnrollStaffOverride(t *testing.T) {
	repo, courses, _, _, svc := newEnrollmentFixture()
	courses.courses["course-1"].AllowSelfEnrollment = false
	courses.courses["course-1"].CoursePassword = "secret"

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1", StaffOverride: true})
	require.NoError(t, err)
	assert.NotNil(t, repo.created)
}

func TestEnrollmentServiceDrop(t *testing.T) {
	repo, _, _, cache, svc := newEnrollmentFixture()
	repo.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", StudentID: "stu-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled}

	enrollment, err := svc.Drop(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	assert.Contains(t, repo.dropped, "enr-1")
	assert.Contains(t, cache.invalidated, "course-1")
}

func TestEnrollmentServiceDropTerminal(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusDropped}

	_, err := svc.Drop(context.Background(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.dropped)
}

func TestEnrollmentServiceReEnrollAfterDrop(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", StudentID: "stu-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled}
	repo.active["stu-1/course-1"] = repo.enrollments["enr-1"]

	_, err := svc.Drop(context.Background(), "enr-1")
	require.NoError(t, err)

	// Re-enrolling starts a fresh record; the dropped one stays in the
	// ledger as history.
	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.NoError(t, err)
	assert.NotEqual(t, "enr-1", enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Equal(t, models.EnrollmentStatusDropped, repo.enrollments["enr-1"].Status)
}

func TestEnrollmentServiceCompleteLesson(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	next := "lesson-4"
	repo.enrollments["enr-1"] = models.Enrollment{
		ID: "enr-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled,
		LessonsCompleted: 2, TotalLessons: 4,
	}

	enrollment, err := svc.CompleteLesson(context.Background(), "enr-1", &next)
	require.NoError(t, err)
	assert.Equal(t, 3, enrollment.LessonsCompleted)
	assert.Equal(t, 75, enrollment.Progress)
	require.NotNil(t, enrollment.NextLessonID)
	assert.Equal(t, "lesson-4", *enrollment.NextLessonID)
}

func TestEnrollmentServiceCompleteLessonCappedAtTotal(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.enrollments["enr-1"] = models.Enrollment{
		ID: "enr-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled,
		LessonsCompleted: 4, TotalLessons: 4,
	}

	// Completing a lesson past the total is a no-op, not an error.
	enrollment, err := svc.CompleteLesson(context.Background(), "enr-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, enrollment.LessonsCompleted)
	assert.Equal(t, 100, enrollment.Progress)
}

func TestEnrollmentServiceCompleteLessonInactive(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusCompleted}

	_, err := svc.CompleteLesson(context.Background(), "enr-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceComplete(t *testing.T) {
	repo, _, _, cache, svc := newEnrollmentFixture()
	grade := 92
	repo.enrollments["enr-1"] = models.Enrollment{
		ID: "enr-1", CourseID: "course-1", Status: models.EnrollmentStatusEnrolled,
		LessonsCompleted: 2, TotalLessons: 4,
	}

	enrollment, err := svc.Complete(context.Background(), "enr-1", CompleteEnrollmentRequest{FinalGrade: &grade})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	assert.Equal(t, 4, enrollment.LessonsCompleted)
	assert.Equal(t, 100, enrollment.Progress)
	require.NotNil(t, enrollment.FinalGrade)
	assert.Equal(t, 92, *enrollment.FinalGrade)
	assert.Contains(t, cache.invalidated, "course-1")
}

func TestEnrollmentServiceCompleteInvalidGrade(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	grade := 150
	repo.enrollments["enr-1"] = models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusEnrolled}

	_, err := svc.Complete(context.Background(), "enr-1", CompleteEnrollmentRequest{FinalGrade: &grade})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.completed)
}

func TestEnrollmentServiceReconcile(t *testing.T) {
	_, courses, _, cache, svc := newEnrollmentFixture()
	courses.ids = []string{"course-1", "course-2", "course-3"}
	courses.drifted = map[string]bool{"course-1": true, "course-3": true}

	repaired, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)
	assert.Len(t, courses.reconciled, 3)
	assert.ElementsMatch(t, []string{"course-1", "course-3"}, cache.invalidated)
}
