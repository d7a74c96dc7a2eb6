package models

import "time"

// CourseStatus represents the publication lifecycle of a course.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
	CourseStatusDraft    CourseStatus = "DRAFT"
)

// CourseCategory is the closed set of TESDA training sectors offered.
type CourseCategory string

const (
	CourseCategoryICT          CourseCategory = "ICT"
	CourseCategoryTourism      CourseCategory = "TOURISM"
	CourseCategoryAgriculture  CourseCategory = "AGRICULTURE"
	CourseCategoryConstruction CourseCategory = "CONSTRUCTION"
	CourseCategoryAutomotive   CourseCategory = "AUTOMOTIVE"
)

// CourseLevel grades course difficulty.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "BEGINNER"
	CourseLevelIntermediate CourseLevel = "INTERMEDIATE"
	CourseLevelAdvanced     CourseLevel = "ADVANCED"
)

// Course represents a vocational training course.
//
// EnrolledStudents is a materialized counter kept in step with the
// enrollments table inside the same transaction; a reconciliation pass
// recounts it from non-dropped enrollments to repair drift. Completion
// rate and average progress are never stored here, they are projections
// computed on read.
type Course struct {
	ID                  string         `db:"id" json:"id"`
	Title               string         `db:"title" json:"title"`
	Code                string         `db:"code" json:"code"`
	Description         string         `db:"description" json:"description"`
	Category            CourseCategory `db:"category" json:"category"`
	Level               CourseLevel    `db:"level" json:"level"`
	DurationHours       int            `db:"duration_hours" json:"duration_hours"`
	Instructor          string         `db:"instructor" json:"instructor"`
	EnrolledStudents    int            `db:"enrolled_students" json:"enrolled_students"`
	MaxStudents         int            `db:"max_students" json:"max_students"`
	Status              CourseStatus   `db:"status" json:"status"`
	CoursePassword      string         `db:"course_password" json:"-"`
	AllowSelfEnrollment bool           `db:"allow_self_enrollment" json:"allow_self_enrollment"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether self-enrollment is gated by a shared secret.
func (c *Course) HasPassword() bool {
	return c.CoursePassword != ""
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Category  CourseCategory
	Level     CourseLevel
	Status    CourseStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseSummary carries the derived per-course statistics computed on read.
type CourseSummary struct {
	CourseID           string  `json:"course_id"`
	EnrolledStudents   int     `json:"enrolled_students"`
	CompletionRate     int     `json:"completion_rate"`
	AverageProgress    int     `json:"average_progress"`
	PendingSubmissions int     `json:"pending_submissions"`
	TotalLessons       int     `json:"total_lessons"`
	PublishedLessons   int     `json:"published_lessons"`
	CapacityUsed       float64 `json:"capacity_used"`
}
