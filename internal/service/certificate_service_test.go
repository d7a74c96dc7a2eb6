package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type mockCertificateRepo struct {
	certificates map[string]models.CertificateSubmission
	created      *models.CertificateSubmission
	updated      *models.CertificateSubmission
	reviewed     *models.CertificateSubmission
	reviewRace   bool
}

func (m *mockCertificateRepo) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, int, error) {
	return nil, 0, nil
}

func (m *mockCertificateRepo) FindByID(ctx context.Context, id string) (*models.CertificateSubmission, error) {
	if c, ok := m.certificates[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCertificateRepo) Create(ctx context.Context, certificate *models.CertificateSubmission) error {
	if certificate.ID == "" {
		certificate.ID = "new-certificate"
	}
	certificate.Status = models.CertificateStatusPending
	if m.certificates == nil {
		m.certificates = make(map[string]models.CertificateSubmission)
	}
	m.certificates[certificate.ID] = *certificate
	m.created = certificate
	return nil
}

func (m *mockCertificateRepo) Update(ctx context.Context, certificate *models.CertificateSubmission) error {
	m.certificates[certificate.ID] = *certificate
	m.updated = certificate
	return nil
}

func (m *mockCertificateRepo) Review(ctx context.Context, certificate *models.CertificateSubmission) (bool, error) {
	if m.reviewRace {
		return false, nil
	}
	m.certificates[certificate.ID] = *certificate
	m.reviewed = certificate
	return true, nil
}

func ncRequest() SubmitCertificateRequest {
	course := "Computer Systems Servicing NC II"
	accredited := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	expiration := accredited.AddDate(5, 0, 0)
	return SubmitCertificateRequest{
		StudentID:         "stu-1",
		Type:              models.CertificateTypeNC,
		CertificateNumber: "NC2-2025-00123",
		FileRef:           "uploads/nc2.pdf",
		CourseName:        &course,
		DateAccredited:    &accredited,
		DateExpiration:    &expiration,
	}
}

func cocRequest() SubmitCertificateRequest {
	course := "Basic Welding"
	hours := 40
	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 5)
	given := to.AddDate(0, 0, 3)
	return SubmitCertificateRequest{
		StudentID:         "stu-1",
		Type:              models.CertificateTypeCOC,
		CertificateNumber: "COC-2025-00456",
		FileRef:           "uploads/coc.pdf",
		TrainingCourse:    &course,
		TrainingHours:     &hours,
		TrainingFrom:      &from,
		TrainingTo:        &to,
		DateGiven:         &given,
	}
}

func TestCertificateServiceSubmitNC(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	certificate, err := svc.Submit(context.Background(), ncRequest())
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.CertificateStatusPending, certificate.Status)
}

func TestCertificateServiceSubmitNCWithoutExpiration(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	// Some NC certificates never lapse, so the expiration date is optional.
	req := ncRequest()
	req.DateExpiration = nil
	certificate, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusPending, certificate.Status)
	assert.Nil(t, certificate.DateExpiration)
}

func TestCertificateServiceSubmitNCMissingFields(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	req := ncRequest()
	req.CourseName = nil
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestCertificateServiceSubmitCOC(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	certificate, err := svc.Submit(context.Background(), cocRequest())
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusPending, certificate.Status)
}

func TestCertificateServiceSubmitCOCMissingTraining(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	req := cocRequest()
	req.TrainingHours = nil
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceSubmitCOCInvertedPeriod(t *testing.T) {
	repo := &mockCertificateRepo{}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	req := cocRequest()
	from := req.TrainingFrom.AddDate(0, 1, 0)
	req.TrainingFrom = &from
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceEditResetsReview(t *testing.T) {
	repo := &mockCertificateRepo{certificates: make(map[string]models.CertificateSubmission)}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	reviewer := "staff-1"
	remarks := "blurry scan"
	now := time.Now().UTC()
	repo.certificates["cert-1"] = models.CertificateSubmission{
		ID: "cert-1", StudentID: "stu-1", Type: models.CertificateTypeNC,
		Status: models.CertificateStatusRejected, Remarks: &remarks,
		ReviewedBy: &reviewer, ReviewedAt: &now,
	}

	certificate, err := svc.Edit(context.Background(), "cert-1", ncRequest())
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusPending, certificate.Status)
	assert.Nil(t, certificate.Remarks)
	assert.Nil(t, certificate.ReviewedBy)
	assert.Nil(t, certificate.ReviewedAt)
}

func TestCertificateServiceEditWrongStudent(t *testing.T) {
	repo := &mockCertificateRepo{certificates: map[string]models.CertificateSubmission{
		"cert-1": {ID: "cert-1", StudentID: "stu-2", Status: models.CertificateStatusPending},
	}}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	_, err := svc.Edit(context.Background(), "cert-1", ncRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestCertificateServiceReviewApprove(t *testing.T) {
	repo := &mockCertificateRepo{certificates: map[string]models.CertificateSubmission{
		"cert-1": {ID: "cert-1", StudentID: "stu-1", Status: models.CertificateStatusPending},
	}}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	certificate, err := svc.Review(context.Background(), "cert-1", "staff-1", ReviewCertificateRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusApproved, certificate.Status)
	require.NotNil(t, certificate.ReviewedBy)
	assert.Equal(t, "staff-1", *certificate.ReviewedBy)
}

func TestCertificateServiceReviewAlreadyReviewed(t *testing.T) {
	repo := &mockCertificateRepo{certificates: map[string]models.CertificateSubmission{
		"cert-1": {ID: "cert-1", StudentID: "stu-1", Status: models.CertificateStatusApproved},
	}}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	_, err := svc.Review(context.Background(), "cert-1", "staff-1", ReviewCertificateRequest{Approve: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceReviewLosesRace(t *testing.T) {
	repo := &mockCertificateRepo{
		certificates: map[string]models.CertificateSubmission{
			"cert-1": {ID: "cert-1", StudentID: "stu-1", Status: models.CertificateStatusPending},
		},
		reviewRace: true,
	}
	svc := NewCertificateService(repo, validator.New(), zap.NewNop())

	// The conditional update reports no row touched: a concurrent reviewer
	// already decided this pending cycle.
	_, err := svc.Review(context.Background(), "cert-1", "staff-1", ReviewCertificateRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
