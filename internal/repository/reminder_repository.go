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

// ReminderRepository handles persistence of reminders.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `id, title, message, audience, target_ids, target_emails, target_course_id,
        priority, expires_at, created_by, creator_role, created_at, updated_at`

// List returns reminders filtered by the provided criteria.
func (r *ReminderRepository) List(ctx context.Context, filter models.ReminderFilter) ([]models.Reminder, int, error) {
	base := "FROM reminders"
	var conditions []string
	var args []interface{}

	if filter.Audience != "" {
		conditions = append(conditions, fmt.Sprintf("audience = $%d", len(args)+1))
		args = append(args, filter.Audience)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.Active {
		conditions = append(conditions, fmt.Sprintf("(expires_at IS NULL OR expires_at > $%d)", len(args)+1))
		args = append(args, time.Now().UTC())
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

	query := fmt.Sprintf(`SELECT %s %s
        ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END, created_at DESC
        LIMIT %d OFFSET %d`, reminderColumns, base+clause, size, offset)

	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reminders: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reminders: %w", err)
	}
	return reminders, total, nil
}

// FindByID returns a reminder by its ID.
func (r *ReminderRepository) FindByID(ctx context.Context, id string) (*models.Reminder, error) {
	query := fmt.Sprintf("SELECT %s FROM reminders WHERE id = $1", reminderColumns)
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		return nil, err
	}
	return &reminder, nil
}

// Create persists a new reminder.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	const query = `INSERT INTO reminders (id, title, message, audience, target_ids, target_emails, target_course_id,
        priority, expires_at, created_by, creator_role, created_at, updated_at)
        VALUES (:id, :title, :message, :audience, :target_ids, :target_emails, :target_course_id,
        :priority, :expires_at, :created_by, :creator_role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// Update persists editable reminder attributes.
func (r *ReminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	reminder.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reminders SET title = :title, message = :message, audience = :audience,
        target_ids = :target_ids, target_emails = :target_emails, target_course_id = :target_course_id,
        priority = :priority, expires_at = :expires_at, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	return nil
}

// Delete removes a reminder.
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// ListUnexpired returns every reminder that has not expired, for in-process
// audience filtering against a particular viewer.
func (r *ReminderRepository) ListUnexpired(ctx context.Context) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE expires_at IS NULL OR expires_at > $1
        ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END, created_at DESC`, reminderColumns)
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("list unexpired reminders: %w", err)
	}
	return reminders, nil
}
