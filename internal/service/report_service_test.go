package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/internal/repository"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
	"github.com/FerventBolt/tesda-lms-api/pkg/jobs"
)

type mockReportJobStore struct {
	jobs map[string]models.ReportJob
}

func (m *mockReportJobStore) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if m.jobs == nil {
		m.jobs = make(map[string]models.ReportJob)
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockReportJobStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportJobStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	m.jobs[id] = job
	return nil
}

func (m *mockReportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, j := range m.jobs {
		if j.Status == models.ReportStatusQueued {
			queued = append(queued, j)
		}
	}
	return queued, nil
}

func (m *mockReportJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockJobDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (m *mockJobDispatcher) Enqueue(job jobs.Job) error {
	if m.fail {
		return errors.New("queue closed")
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func TestReportServiceCreateJob(t *testing.T) {
	repo := &mockReportJobStore{}
	queue := &mockJobDispatcher{}
	svc := NewReportService(repo, queue, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), ReportRequest{
		Type: models.ReportTypeEnrollments, Format: models.ReportFormatCSV,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestReportServiceCreateJobInvalid(t *testing.T) {
	repo := &mockReportJobStore{}
	svc := NewReportService(repo, &mockJobDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, ReportRequest{Type: "grades", Format: models.ReportFormatCSV}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateJob(ctx, ReportRequest{Type: models.ReportTypeProgress, Format: "xlsx"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	repo := &mockReportJobStore{}
	svc := NewReportService(repo, &mockJobDispatcher{fail: true}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type: models.ReportTypeEnrollments, Format: models.ReportFormatCSV,
	}, "admin-1")
	require.Error(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
}

func TestReportServiceGetStatusOwnership(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusProcessing, Progress: 10, CreatedBy: "staff-1"},
	}}
	svc := NewReportService(repo, &mockJobDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})
	ctx := context.Background()

	status, err := svc.GetStatus(ctx, "job-1", "staff-1", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, status.Status)

	_, err = svc.GetStatus(ctx, "job-1", "staff-2", models.RoleStaff)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	// Admins can inspect any job.
	_, err = svc.GetStatus(ctx, "job-1", "admin-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.GetStatus(ctx, "missing", "admin-1", models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

type failingGenerator struct {
	err error
}

func (g *failingGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	url := "/api/v1/reports/download/token-1"
	return &ExportResult{RelativePath: "file.csv", Token: "token-1", URL: url, Format: models.ReportFormatCSV}, nil
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeEnrollments, Status: models.ReportStatusQueued,
			Params: models.ReportJobParams{Format: models.ReportFormatCSV}},
	}}
	worker := NewReportWorker(repo, &failingGenerator{}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "/reports/download/")
}

func TestReportWorkerHandleRetryThenFail(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeEnrollments, Status: models.ReportStatusQueued},
	}}
	worker := NewReportWorker(repo, &failingGenerator{err: errors.New("render failed")}, 3, zap.NewNop())
	ctx := context.Background()

	// Below the retry budget the job goes back to the queue.
	err := worker.Handle(ctx, jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	// Exhausted retries are terminal.
	err = worker.Handle(ctx, jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}
