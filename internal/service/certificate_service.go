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

type certificateRepository interface {
	List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, int, error)
	FindByID(ctx context.Context, id string) (*models.CertificateSubmission, error)
	Create(ctx context.Context, certificate *models.CertificateSubmission) error
	Update(ctx context.Context, certificate *models.CertificateSubmission) error
	Review(ctx context.Context, certificate *models.CertificateSubmission) (bool, error)
}

// SubmitCertificateRequest carries both NC and COC payloads; the type
// decides which field group is mandatory.
type SubmitCertificateRequest struct {
	StudentID         string                 `json:"student_id" validate:"required"`
	Type              models.CertificateType `json:"type" validate:"required,oneof=NC COC"`
	CertificateNumber string                 `json:"certificate_number" validate:"required,max=64"`
	FileRef           string                 `json:"file_ref" validate:"required"`

	CourseName     *string    `json:"course_name"`
	DateAccredited *time.Time `json:"date_accredited"`
	DateExpiration *time.Time `json:"date_expiration"`

	TrainingCourse *string    `json:"training_course"`
	TrainingHours  *int       `json:"training_hours" validate:"omitempty,gt=0"`
	TrainingFrom   *time.Time `json:"training_from"`
	TrainingTo     *time.Time `json:"training_to"`
	DateGiven      *time.Time `json:"date_given"`
}

// ReviewCertificateRequest carries the terminal decision.
type ReviewCertificateRequest struct {
	Approve bool    `json:"approve"`
	Remarks *string `json:"remarks" validate:"omitempty,max=2000"`
}

// CertificateService manages NC and COC certificate submissions and their
// one-shot review workflow.
type CertificateService struct {
	repo      certificateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, validator: validate, logger: logger}
}

// List returns certificate submissions with pagination metadata.
func (s *CertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, *models.Pagination, error) {
	certificates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificate submissions")
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
	return certificates, pagination, nil
}

// Get returns a single certificate submission.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.CertificateSubmission, error) {
	certificate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate submission")
	}
	return certificate, nil
}

// Submit files a new certificate claim in PENDING state.
func (s *CertificateService) Submit(ctx context.Context, req SubmitCertificateRequest) (*models.CertificateSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}
	if err := validateCertificateFields(req); err != nil {
		return nil, err
	}

	certificate := &models.CertificateSubmission{
		StudentID:         req.StudentID,
		Type:              req.Type,
		CertificateNumber: req.CertificateNumber,
		FileRef:           req.FileRef,
		CourseName:        req.CourseName,
		DateAccredited:    req.DateAccredited,
		DateExpiration:    req.DateExpiration,
		TrainingCourse:    req.TrainingCourse,
		TrainingHours:     req.TrainingHours,
		TrainingFrom:      req.TrainingFrom,
		TrainingTo:        req.TrainingTo,
		DateGiven:         req.DateGiven,
	}
	if err := s.repo.Create(ctx, certificate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate submission")
	}
	s.logger.Info("certificate submitted",
		zap.String("certificate_id", certificate.ID),
		zap.String("type", string(certificate.Type)))
	return certificate, nil
}

// Edit rewrites a submission's fields. Editing always resets the record to
// PENDING and clears the review outcome, so a reviewed certificate re-enters
// the queue the moment its content changes.
func (s *CertificateService) Edit(ctx context.Context, id string, req SubmitCertificateRequest) (*models.CertificateSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}
	if err := validateCertificateFields(req); err != nil {
		return nil, err
	}

	certificate, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if certificate.StudentID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another student")
	}

	certificate.Type = req.Type
	certificate.CertificateNumber = req.CertificateNumber
	certificate.FileRef = req.FileRef
	certificate.CourseName = req.CourseName
	certificate.DateAccredited = req.DateAccredited
	certificate.DateExpiration = req.DateExpiration
	certificate.TrainingCourse = req.TrainingCourse
	certificate.TrainingHours = req.TrainingHours
	certificate.TrainingFrom = req.TrainingFrom
	certificate.TrainingTo = req.TrainingTo
	certificate.DateGiven = req.DateGiven

	certificate.Status = models.CertificateStatusPending
	certificate.Remarks = nil
	certificate.ReviewedBy = nil
	certificate.ReviewedAt = nil

	if err := s.repo.Update(ctx, certificate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update certificate submission")
	}
	return certificate, nil
}

// Review applies the terminal decision to a pending submission. A second
// review of the same pending cycle loses the race and gets a conflict.
func (s *CertificateService) Review(ctx context.Context, id, reviewerID string, req ReviewCertificateRequest) (*models.CertificateSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	certificate, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if certificate.Status != models.CertificateStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate submission already reviewed")
	}

	if req.Approve {
		certificate.Status = models.CertificateStatusApproved
	} else {
		certificate.Status = models.CertificateStatusRejected
	}
	certificate.Remarks = req.Remarks
	certificate.ReviewedBy = &reviewerID

	reviewed, err := s.repo.Review(ctx, certificate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}
	if !reviewed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate submission already reviewed")
	}
	s.logger.Info("certificate reviewed",
		zap.String("certificate_id", certificate.ID),
		zap.String("status", string(certificate.Status)),
		zap.String("reviewer_id", reviewerID))
	return certificate, nil
}

// validateCertificateFields enforces the per-type mandatory field sets: NC
// requires accreditation data, COC requires training data. The NC
// expiration date stays optional because some certificates never lapse.
func validateCertificateFields(req SubmitCertificateRequest) error {
	switch req.Type {
	case models.CertificateTypeNC:
		if req.CourseName == nil || *req.CourseName == "" || req.DateAccredited == nil {
			return appErrors.Clone(appErrors.ErrValidation, "NC certificates require course name and accreditation date")
		}
	case models.CertificateTypeCOC:
		if req.TrainingCourse == nil || *req.TrainingCourse == "" || req.TrainingHours == nil ||
			req.TrainingFrom == nil || req.TrainingTo == nil || req.DateGiven == nil {
			return appErrors.Clone(appErrors.ErrValidation, "COC certificates require training course, hours, period and date given")
		}
		if req.TrainingTo.Before(*req.TrainingFrom) {
			return appErrors.Clone(appErrors.ErrValidation, "training period end precedes its start")
		}
	}
	return nil
}
