package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList persists a list of ids or emails as a JSON column.
type StringList []string

// Value marshals the list to JSON for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	return nil
}

// ReminderAudience defines who a reminder targets.
type ReminderAudience string

const (
	ReminderAudienceAllStudents      ReminderAudience = "ALL_STUDENTS"
	ReminderAudienceSpecificStudents ReminderAudience = "SPECIFIC_STUDENTS"
	ReminderAudienceSpecificEmails   ReminderAudience = "SPECIFIC_EMAILS"
	ReminderAudienceCourseStudents   ReminderAudience = "COURSE_STUDENTS"
	ReminderAudienceAllUsers         ReminderAudience = "ALL_USERS"
	ReminderAudienceStaff            ReminderAudience = "STAFF"
	ReminderAudienceAdmins           ReminderAudience = "ADMINS"
)

// StudentAudience reports whether the audience targets students only.
// Staff creators are restricted to these audiences.
func (a ReminderAudience) StudentAudience() bool {
	switch a {
	case ReminderAudienceAllStudents, ReminderAudienceSpecificStudents,
		ReminderAudienceSpecificEmails, ReminderAudienceCourseStudents:
		return true
	default:
		return false
	}
}

// ReminderPriority defines ordering for reminders.
type ReminderPriority string

const (
	ReminderPriorityLow    ReminderPriority = "LOW"
	ReminderPriorityNormal ReminderPriority = "NORMAL"
	ReminderPriorityHigh   ReminderPriority = "HIGH"
)

// Reminder is a broadcast notice targeted at an audience expression.
type Reminder struct {
	ID             string           `db:"id" json:"id"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	Audience       ReminderAudience `db:"audience" json:"audience"`
	TargetIDs      StringList       `db:"target_ids" json:"target_ids,omitempty"`
	TargetEmails   StringList       `db:"target_emails" json:"target_emails,omitempty"`
	TargetCourseID *string          `db:"target_course_id" json:"target_course_id,omitempty"`
	Priority       ReminderPriority `db:"priority" json:"priority"`
	ExpiresAt      *time.Time       `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy      string           `db:"created_by" json:"created_by"`
	CreatorRole    UserRole         `db:"creator_role" json:"creator_role"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ReminderFilter provides filters for listing reminders.
type ReminderFilter struct {
	Audience ReminderAudience
	Priority ReminderPriority
	Active   bool
	Page     int
	PageSize int
}
