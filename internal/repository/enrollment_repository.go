package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollments and keeps the
// course seat counter in step with them.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.status, e.progress, e.lessons_completed,
        e.total_lessons, e.next_lesson_id, e.final_grade, e.enrolled_at, e.completed_at, e.dropped_at`

// List returns enrollments joined with student and course info.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at": "e.enrolled_at",
		"progress":    "e.progress",
		"status":      "e.status",
	}
	sortBy := allowedSorts[filter.SortBy]
	if sortBy == "" {
		sortBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s, u.full_name AS student_name, c.title AS course_title, c.code AS course_code
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, sortBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActiveByStudentAndCourse returns the ENROLLED record for a pair, if
// any. Dropped and completed records never block a new enrollment.
func (r *EnrollmentRepository) FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        WHERE e.student_id = $1 AND e.course_id = $2 AND e.status = $3`, enrollmentColumns)
	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID, models.EnrollmentStatusEnrolled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment of a student, most recent first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByCourse returns every enrollment of a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.course_id = $1 ORDER BY e.enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// CreateWithCounter inserts the enrollment and claims a seat in one
// transaction. The guarded UPDATE is the authoritative capacity check:
// a concurrent enrollment that loses the race gets zero rows and the
// whole transaction rolls back with ErrCourseFull.
func (r *EnrollmentRepository) CreateWithCounter(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.RecomputeProgress()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll tx: %w", err)
	}
	defer tx.Rollback()

	const claim = `UPDATE courses SET enrolled_students = enrolled_students + 1, updated_at = $2
        WHERE id = $1 AND enrolled_students < max_students`
	res, err := tx.ExecContext(ctx, claim, enrollment.CourseID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("claim course seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim course seat: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrCourseFull
	}

	const insert = `INSERT INTO enrollments (id, student_id, course_id, status, progress, lessons_completed,
        total_lessons, next_lesson_id, final_grade, enrolled_at, completed_at, dropped_at)
        VALUES (:id, :student_id, :course_id, :status, :progress, :lessons_completed,
        :total_lessons, :next_lesson_id, :final_grade, :enrolled_at, :completed_at, :dropped_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll tx: %w", err)
	}
	return nil
}

// DropWithCounter marks the enrollment dropped and releases its seat in one
// transaction. The counter is floored at zero so a reconciled course never
// goes negative.
func (r *EnrollmentRepository) DropWithCounter(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusDropped
	enrollment.DroppedAt = &now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop tx: %w", err)
	}
	defer tx.Rollback()

	const drop = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, drop, enrollment.ID, models.EnrollmentStatusDropped, now, models.EnrollmentStatusEnrolled)
	if err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}

	const release = `UPDATE courses SET enrolled_students = GREATEST(enrolled_students - 1, 0), updated_at = $2
        WHERE id = $1`
	if _, err := tx.ExecContext(ctx, release, enrollment.CourseID, now); err != nil {
		return fmt.Errorf("release course seat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop tx: %w", err)
	}
	return nil
}

// UpdateProgress persists the lesson counters and the derived fields.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `UPDATE enrollments SET progress = :progress, lessons_completed = :lessons_completed,
        total_lessons = :total_lessons, next_lesson_id = :next_lesson_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

// Complete marks the enrollment completed with an optional final grade.
// A completed enrollment keeps its seat; only drops release one.
func (r *EnrollmentRepository) Complete(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.CompletedAt = &now
	const query = `UPDATE enrollments SET status = :status, progress = :progress, final_grade = :final_grade,
        completed_at = :completed_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("complete enrollment: %w", err)
	}
	return nil
}
