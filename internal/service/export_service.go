package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/pkg/export"
	"github.com/FerventBolt/tesda-lms-api/pkg/storage"
)

type exportEnrollmentSource interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type exportCertificateSource interface {
	List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, int, error)
}

type exportCourseSource interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
}

type summaryProjector interface {
	CourseSummary(ctx context.Context, courseID string) (*models.CourseSummary, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	enrollments  exportEnrollmentSource
	certificates exportCertificateSource
	courses      exportCourseSource
	progress     summaryProjector
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments exportEnrollmentSource, certificates exportCertificateSource, courses exportCourseSource, progress summaryProjector, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		enrollments:  enrollments,
		certificates: certificates,
		courses:      courses,
		progress:     progress,
		storage:      store,
		csv:          csv,
		pdf:          pdf,
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured
// ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.CourseID != nil && *job.Params.CourseID != "" {
		scope = sanitizeFilename(*job.Params.CourseID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeEnrollments:
		return s.buildEnrollmentDataset(ctx, job.Params)
	case models.ReportTypeCertificates:
		return s.buildCertificateDataset(ctx, job.Params)
	case models.ReportTypeProgress:
		return s.buildProgressDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildEnrollmentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.EnrollmentFilter{CourseID: deref(params.CourseID), PageSize: 100}
	headers := []string{"Student", "Course", "Code", "Status", "Progress (%)", "Lessons", "Enrolled At"}
	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, e := range batch {
			rows = append(rows, map[string]string{
				"Student":      e.StudentName,
				"Course":       e.CourseTitle,
				"Code":         e.CourseCode,
				"Status":       string(e.Status),
				"Progress (%)": fmt.Sprintf("%d", e.Progress),
				"Lessons":      fmt.Sprintf("%d/%d", e.LessonsCompleted, e.TotalLessons),
				"Enrolled At":  e.EnrolledAt.UTC().Format(time.RFC3339),
			})
		}
		if len(rows) >= total || len(batch) == 0 {
			break
		}
	}
	title := "Enrollment Report"
	if params.CourseID != nil && *params.CourseID != "" {
		title = fmt.Sprintf("Enrollment Report %s", *params.CourseID)
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) buildCertificateDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	headers := []string{"Student ID", "Type", "Certificate No", "Status", "Reviewed By", "Submitted At"}
	rows := make([]map[string]string, 0)
	filter := models.CertificateFilter{PageSize: 100}
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.certificates.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, c := range batch {
			reviewer := ""
			if c.ReviewedBy != nil {
				reviewer = *c.ReviewedBy
			}
			rows = append(rows, map[string]string{
				"Student ID":     c.StudentID,
				"Type":           string(c.Type),
				"Certificate No": c.CertificateNumber,
				"Status":         string(c.Status),
				"Reviewed By":    reviewer,
				"Submitted At":   c.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(rows) >= total || len(batch) == 0 {
			break
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Certificate Report", nil
}

func (s *ExportService) buildProgressDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	courses, _, err := s.courses.List(ctx, models.CourseFilter{PageSize: 100})
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Course", "Code", "Enrolled", "Capacity", "Average Progress (%)", "Completion Rate (%)", "Pending Submissions"}
	rows := make([]map[string]string, 0, len(courses))
	for _, course := range courses {
		if params.CourseID != nil && *params.CourseID != "" && course.ID != *params.CourseID {
			continue
		}
		summary, err := s.progress.CourseSummary(ctx, course.ID)
		if err != nil {
			s.logger.Warn("skipping course in progress report", zap.String("course_id", course.ID), zap.Error(err))
			continue
		}
		rows = append(rows, map[string]string{
			"Course":               course.Title,
			"Code":                 course.Code,
			"Enrolled":             fmt.Sprintf("%d", summary.EnrolledStudents),
			"Capacity":             fmt.Sprintf("%d", course.MaxStudents),
			"Average Progress (%)": fmt.Sprintf("%d", summary.AverageProgress),
			"Completion Rate (%)":  fmt.Sprintf("%d", summary.CompletionRate),
			"Pending Submissions":  fmt.Sprintf("%d", summary.PendingSubmissions),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Course Progress Report", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
