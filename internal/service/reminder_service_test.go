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

type mockReminderRepo struct {
	reminders map[string]models.Reminder
	unexpired []models.Reminder
	created   *models.Reminder
	updated   *models.Reminder
	deleted   []string
}

func (m *mockReminderRepo) List(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, int, error) {
	return m.unexpired, len(m.unexpired), nil
}

func (m *mockReminderRepo) FindByID(ctx context.Context, id string) (*models.Reminder, error) {
	if r, ok := m.reminders[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReminderRepo) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = "new-reminder"
	}
	if m.reminders == nil {
		m.reminders = make(map[string]models.Reminder)
	}
	m.reminders[reminder.ID] = *reminder
	m.created = reminder
	return nil
}

func (m *mockReminderRepo) Update(ctx context.Context, reminder *models.Reminder) error {
	m.reminders[reminder.ID] = *reminder
	m.updated = reminder
	return nil
}

func (m *mockReminderRepo) Delete(ctx context.Context, id string) error {
	delete(m.reminders, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockReminderRepo) ListUnexpired(ctx context.Context) ([]models.Reminder, error) {
	return m.unexpired, nil
}

type mockEnrolledCourseReader struct {
	byStudent map[string][]models.Enrollment
}

func (m *mockEnrolledCourseReader) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return m.byStudent[studentID], nil
}

func validReminderRequest(audience models.ReminderAudience) CreateReminderRequest {
	return CreateReminderRequest{
		Title:    "Assessment schedule",
		Message:  "Institutional assessment runs next week.",
		Audience: audience,
		Priority: models.ReminderPriorityNormal,
	}
}

func TestReminderServiceCreateStaffStudentAudience(t *testing.T) {
	repo := &mockReminderRepo{}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	reminder, err := svc.Create(context.Background(), "staff-1", models.RoleStaff, validReminderRequest(models.ReminderAudienceAllStudents))
	require.NoError(t, err)
	assert.Equal(t, "staff-1", reminder.CreatedBy)
	assert.Equal(t, models.RoleStaff, reminder.CreatorRole)
}

func TestReminderServiceStaffCannotAddressNonStudents(t *testing.T) {
	repo := &mockReminderRepo{}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	for _, audience := range []models.ReminderAudience{
		models.ReminderAudienceAllUsers,
		models.ReminderAudienceStaff,
		models.ReminderAudienceAdmins,
	} {
		_, err := svc.Create(context.Background(), "staff-1", models.RoleStaff, validReminderRequest(audience))
		require.Error(t, err, string(audience))
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
	assert.Nil(t, repo.created)
}

func TestReminderServiceAdminAddressesAnyAudience(t *testing.T) {
	repo := &mockReminderRepo{}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", models.RoleAdmin, validReminderRequest(models.ReminderAudienceStaff))
	require.NoError(t, err)
}

func TestReminderServiceTargetedAudiencesRequireTargets(t *testing.T) {
	repo := &mockReminderRepo{}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin-1", models.RoleAdmin, validReminderRequest(models.ReminderAudienceSpecificStudents))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, "admin-1", models.RoleAdmin, validReminderRequest(models.ReminderAudienceSpecificEmails))
	require.Error(t, err)

	_, err = svc.Create(ctx, "admin-1", models.RoleAdmin, validReminderRequest(models.ReminderAudienceCourseStudents))
	require.Error(t, err)

	req := validReminderRequest(models.ReminderAudienceSpecificStudents)
	req.TargetIDs = models.StringList{"stu-1"}
	_, err = svc.Create(ctx, "admin-1", models.RoleAdmin, req)
	require.NoError(t, err)
}

func TestReminderServiceUpdateHeldToEditorRole(t *testing.T) {
	repo := &mockReminderRepo{reminders: map[string]models.Reminder{
		"rem-1": {ID: "rem-1", Audience: models.ReminderAudienceAllUsers, CreatorRole: models.RoleAdmin},
	}}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	// A staff editor cannot keep an admin-only audience on the record.
	_, err := svc.Update(context.Background(), "rem-1", models.RoleStaff, validReminderRequest(models.ReminderAudienceAllUsers))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	reminder, err := svc.Update(context.Background(), "rem-1", models.RoleStaff, validReminderRequest(models.ReminderAudienceAllStudents))
	require.NoError(t, err)
	assert.Equal(t, models.ReminderAudienceAllStudents, reminder.Audience)
}

func TestReminderServiceFeedAudienceResolution(t *testing.T) {
	courseID := "course-1"
	repo := &mockReminderRepo{unexpired: []models.Reminder{
		{ID: "r-all-users", Audience: models.ReminderAudienceAllUsers},
		{ID: "r-all-students", Audience: models.ReminderAudienceAllStudents},
		{ID: "r-staff", Audience: models.ReminderAudienceStaff},
		{ID: "r-admins", Audience: models.ReminderAudienceAdmins},
		{ID: "r-specific", Audience: models.ReminderAudienceSpecificStudents, TargetIDs: models.StringList{"stu-1"}},
		{ID: "r-emails", Audience: models.ReminderAudienceSpecificEmails, TargetEmails: models.StringList{"other@tesda.gov.ph"}},
		{ID: "r-course", Audience: models.ReminderAudienceCourseStudents, TargetCourseID: &courseID},
	}}
	enrollments := &mockEnrolledCourseReader{byStudent: map[string][]models.Enrollment{
		"stu-1": {
			{CourseID: "course-1", Status: models.EnrollmentStatusEnrolled},
			{CourseID: "course-2", Status: models.EnrollmentStatusDropped},
		},
	}}
	svc := NewReminderService(repo, enrollments, validator.New(), zap.NewNop())

	feed, err := svc.Feed(context.Background(), ReminderViewer{
		UserID: "stu-1", Email: "stu1@tesda.gov.ph", Role: models.RoleStudent,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(feed))
	for _, r := range feed {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"r-all-users", "r-all-students", "r-specific", "r-course"}, ids)
}

func TestReminderServiceFeedDroppedCourseExcluded(t *testing.T) {
	courseID := "course-2"
	repo := &mockReminderRepo{unexpired: []models.Reminder{
		{ID: "r-course", Audience: models.ReminderAudienceCourseStudents, TargetCourseID: &courseID},
	}}
	enrollments := &mockEnrolledCourseReader{byStudent: map[string][]models.Enrollment{
		"stu-1": {{CourseID: "course-2", Status: models.EnrollmentStatusDropped}},
	}}
	svc := NewReminderService(repo, enrollments, validator.New(), zap.NewNop())

	feed, err := svc.Feed(context.Background(), ReminderViewer{UserID: "stu-1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestReminderServiceFeedStaffViewer(t *testing.T) {
	repo := &mockReminderRepo{unexpired: []models.Reminder{
		{ID: "r-all-users", Audience: models.ReminderAudienceAllUsers},
		{ID: "r-all-students", Audience: models.ReminderAudienceAllStudents},
		{ID: "r-staff", Audience: models.ReminderAudienceStaff},
	}}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	feed, err := svc.Feed(context.Background(), ReminderViewer{UserID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)
	require.Len(t, feed, 2)
}

func TestReminderServiceDelete(t *testing.T) {
	repo := &mockReminderRepo{reminders: map[string]models.Reminder{
		"rem-1": {ID: "rem-1"},
	}}
	svc := NewReminderService(repo, &mockEnrolledCourseReader{}, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "rem-1"))
	assert.Contains(t, repo.deleted, "rem-1")

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
