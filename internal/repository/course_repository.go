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

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, code, description, category, level, duration_hours, instructor,
        enrolled_students, max_students, status, course_password, allow_self_enrollment, created_at, updated_at`

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses"
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "title",
		"code":       "code",
		"created_at": "created_at",
	}
	sortBy := allowedSorts[filter.SortBy]
	if sortBy == "" {
		sortBy = "created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		courseColumns, base+clause, sortBy, order, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	const query = `INSERT INTO courses (id, title, code, description, category, level, duration_hours, instructor,
        enrolled_students, max_students, status, course_password, allow_self_enrollment, created_at, updated_at)
        VALUES (:id, :title, :code, :description, :category, :level, :duration_hours, :instructor,
        :enrolled_students, :max_students, :status, :course_password, :allow_self_enrollment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists editable course attributes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, code = :code, description = :description,
        category = :category, level = :level, duration_hours = :duration_hours, instructor = :instructor,
        max_students = :max_students, status = :status, course_password = :course_password,
        allow_self_enrollment = :allow_self_enrollment, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// SetStatus updates only the lifecycle status. Courses are never hard
// deleted; deactivation is the terminal admin action.
func (r *CourseRepository) SetStatus(ctx context.Context, id string, status models.CourseStatus) error {
	const query = `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set course status: %w", err)
	}
	return nil
}

// CountNonDropped recounts enrollments that occupy a seat.
func (r *CourseRepository) CountNonDropped(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusDropped); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Reconcile rewrites the materialized seat counter from the enrollments
// table and reports whether it had drifted.
func (r *CourseRepository) Reconcile(ctx context.Context, courseID string) (bool, error) {
	const query = `UPDATE courses SET enrolled_students = sub.actual, updated_at = $2
        FROM (SELECT COUNT(*) AS actual FROM enrollments WHERE course_id = $1 AND status <> 'DROPPED') AS sub
        WHERE courses.id = $1 AND courses.enrolled_students <> sub.actual`
	res, err := r.db.ExecContext(ctx, query, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reconcile course counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reconcile course counter: %w", err)
	}
	return affected > 0, nil
}

// ListIDs returns every course id, used by the periodic reconciliation pass.
func (r *CourseRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM courses"); err != nil {
		return nil, fmt.Errorf("list course ids: %w", err)
	}
	return ids, nil
}
