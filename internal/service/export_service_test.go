package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/pkg/export"
	"github.com/FerventBolt/tesda-lms-api/pkg/storage"
)

type exportEnrollmentStub struct{}

func (exportEnrollmentStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if filter.Page > 1 {
		return nil, 1, nil
	}
	return []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				ID: "enr-1", StudentID: "stu-1", CourseID: "course-1",
				Status: models.EnrollmentStatusEnrolled, Progress: 50,
				LessonsCompleted: 2, TotalLessons: 4, EnrolledAt: time.Now().UTC(),
			},
			StudentName: "Juan Dela Cruz",
			CourseTitle: "Computer Systems Servicing NC II",
			CourseCode:  "CSS-NC2",
		},
	}, 1, nil
}

type exportCertificateStub struct{}

func (exportCertificateStub) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, int, error) {
	if filter.Page > 1 {
		return nil, 1, nil
	}
	return []models.CertificateSubmission{
		{ID: "cert-1", StudentID: "stu-1", Type: models.CertificateTypeNC,
			CertificateNumber: "NC2-2025-00123", Status: models.CertificateStatusApproved, CreatedAt: time.Now().UTC()},
	}, 1, nil
}

type exportCourseStub struct{}

func (exportCourseStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return []models.Course{
		{ID: "course-1", Title: "Computer Systems Servicing NC II", Code: "CSS-NC2", MaxStudents: 30, EnrolledStudents: 12},
	}, 1, nil
}

type summaryProjectorStub struct{}

func (summaryProjectorStub) CourseSummary(ctx context.Context, courseID string) (*models.CourseSummary, error) {
	return &models.CourseSummary{
		CourseID: courseID, EnrolledStudents: 12, CompletionRate: 25, AverageProgress: 40, PendingSubmissions: 3,
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(exportEnrollmentStub{}, exportCertificateStub{}, exportCourseStub{}, summaryProjectorStub{},
		store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateEnrollmentsCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeEnrollments,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "admin-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/api/v1/reports/download/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateProgressPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeProgress,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: "admin-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateCertificatesRoundtripToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeCertificates,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "staff-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, "job-3", jobID)
	require.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportServiceGenerateUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeEnrollments,
		Params: models.ReportJobParams{Format: "xlsx"},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
