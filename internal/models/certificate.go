package models

import "time"

// CertificateType distinguishes the two certificate classes, each with its
// own mandatory field set.
type CertificateType string

const (
	CertificateTypeNC  CertificateType = "NC"
	CertificateTypeCOC CertificateType = "COC"
)

// CertificateStatus is one-shot: a submission is PENDING exactly once and
// review moves it to a terminal state. Editing a reviewed submission resets
// it to PENDING and clears the review fields.
type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "PENDING"
	CertificateStatusApproved CertificateStatus = "APPROVED"
	CertificateStatusRejected CertificateStatus = "REJECTED"
)

// CertificateSubmission is a student's claim to an NC or COC certificate.
type CertificateSubmission struct {
	ID                string            `db:"id" json:"id"`
	StudentID         string            `db:"student_id" json:"student_id"`
	Type              CertificateType   `db:"type" json:"type"`
	CertificateNumber string            `db:"certificate_number" json:"certificate_number"`
	FileRef           string            `db:"file_ref" json:"file_ref"`
	Status            CertificateStatus `db:"status" json:"status"`

	// NC fields.
	CourseName     *string    `db:"course_name" json:"course_name,omitempty"`
	DateAccredited *time.Time `db:"date_accredited" json:"date_accredited,omitempty"`
	DateExpiration *time.Time `db:"date_expiration" json:"date_expiration,omitempty"`

	// COC fields.
	TrainingCourse *string    `db:"training_course" json:"training_course,omitempty"`
	TrainingHours  *int       `db:"training_hours" json:"training_hours,omitempty"`
	TrainingFrom   *time.Time `db:"training_from" json:"training_from,omitempty"`
	TrainingTo     *time.Time `db:"training_to" json:"training_to,omitempty"`
	DateGiven      *time.Time `db:"date_given" json:"date_given,omitempty"`

	Remarks    *string    `db:"remarks" json:"remarks,omitempty"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// CertificateFilter provides filters for listing certificate submissions.
type CertificateFilter struct {
	StudentID string
	Type      CertificateType
	Status    CertificateStatus
	Page      int
	PageSize  int
}
