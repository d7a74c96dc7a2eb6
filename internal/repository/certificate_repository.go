package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
)

// CertificateRepository handles persistence of certificate submissions.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, student_id, type, certificate_number, file_ref, status,
        course_name, date_accredited, date_expiration,
        training_course, training_hours, training_from, training_to, date_given,
        remarks, reviewed_by, reviewed_at, created_at, updated_at`

// List returns certificate submissions filtered by the provided criteria.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateSubmission, int, error) {
	base := "FROM certificate_submissions"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		certificateColumns, base+clause, size, offset)

	var certificates []models.CertificateSubmission
	if err := r.db.SelectContext(ctx, &certificates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificate submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificate submissions: %w", err)
	}
	return certificates, total, nil
}

// FindByID returns a certificate submission by its ID.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.CertificateSubmission, error) {
	query := fmt.Sprintf("SELECT %s FROM certificate_submissions WHERE id = $1", certificateColumns)
	var certificate models.CertificateSubmission
	if err := r.db.GetContext(ctx, &certificate, query, id); err != nil {
		return nil, err
	}
	return &certificate, nil
}

// Create persists a new certificate submission in PENDING state.
func (r *CertificateRepository) Create(ctx context.Context, certificate *models.CertificateSubmission) error {
	if certificate.ID == "" {
		certificate.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	certificate.Status = models.CertificateStatusPending
	certificate.CreatedAt = now
	certificate.UpdatedAt = now
	const query = `INSERT INTO certificate_submissions (id, student_id, type, certificate_number, file_ref, status,
        course_name, date_accredited, date_expiration,
        training_course, training_hours, training_from, training_to, date_given,
        remarks, reviewed_by, reviewed_at, created_at, updated_at)
        VALUES (:id, :student_id, :type, :certificate_number, :file_ref, :status,
        :course_name, :date_accredited, :date_expiration,
        :training_course, :training_hours, :training_from, :training_to, :date_given,
        :remarks, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, certificate); err != nil {
		return fmt.Errorf("create certificate submission: %w", err)
	}
	return nil
}

// Update rewrites the submission. Callers reset the review fields before
// calling so an edited submission re-enters the pending queue.
func (r *CertificateRepository) Update(ctx context.Context, certificate *models.CertificateSubmission) error {
	certificate.UpdatedAt = time.Now().UTC()
	const query = `UPDATE certificate_submissions SET type = :type, certificate_number = :certificate_number,
        file_ref = :file_ref, status = :status,
        course_name = :course_name, date_accredited = :date_accredited, date_expiration = :date_expiration,
        training_course = :training_course, training_hours = :training_hours,
        training_from = :training_from, training_to = :training_to, date_given = :date_given,
        remarks = :remarks, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, certificate); err != nil {
		return fmt.Errorf("update certificate submission: %w", err)
	}
	return nil
}

// Review applies the terminal decision to a pending submission. Zero rows
// affected means the submission was already reviewed.
func (r *CertificateRepository) Review(ctx context.Context, certificate *models.CertificateSubmission) (bool, error) {
	now := time.Now().UTC()
	certificate.ReviewedAt = &now
	certificate.UpdatedAt = now
	const query = `UPDATE certificate_submissions SET status = :status, remarks = :remarks,
        reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, updated_at = :updated_at
        WHERE id = :id AND status = 'PENDING'`
	res, err := r.db.NamedExecContext(ctx, query, certificate)
	if err != nil {
		return false, fmt.Errorf("review certificate submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review certificate submission: %w", err)
	}
	return affected > 0, nil
}

// CountByStatus groups submissions per status, used by report exports.
func (r *CertificateRepository) CountByStatus(ctx context.Context) (map[models.CertificateStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM certificate_submissions GROUP BY status`
	rows := []struct {
		Status models.CertificateStatus `db:"status"`
		Total  int                      `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count certificate submissions: %w", err)
	}
	counts := make(map[models.CertificateStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
