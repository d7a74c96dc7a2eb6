package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

func activeCourse() *models.Course {
	return &models.Course{
		ID:                  "course-1",
		Status:              models.CourseStatusActive,
		EnrolledStudents:    5,
		MaxStudents:         10,
		AllowSelfEnrollment: true,
	}
}

func TestCapacityGuardHasSeat(t *testing.T) {
	guard := NewCapacityGuard()

	course := activeCourse()
	assert.True(t, guard.HasSeat(course))

	course.EnrolledStudents = 10
	assert.False(t, guard.HasSeat(course))

	// Zero capacity accepts nobody even with an empty roster.
	course.EnrolledStudents = 0
	course.MaxStudents = 0
	assert.False(t, guard.HasSeat(course))
}

func TestCapacityGuardGateOrder(t *testing.T) {
	guard := NewCapacityGuard()

	// An inactive course fails first even when it is also full and gated.
	course := activeCourse()
	course.Status = models.CourseStatusInactive
	course.EnrolledStudents = course.MaxStudents
	course.AllowSelfEnrollment = false
	course.CoursePassword = "secret"
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{}), appErrors.ErrCourseInactive)

	course.Status = models.CourseStatusActive
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{}), appErrors.ErrCourseFull)

	course.EnrolledStudents = 5
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{}), appErrors.ErrApprovalRequired)

	course.AllowSelfEnrollment = true
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{}), appErrors.ErrPasswordRequired)

	assert.NoError(t, guard.CheckEnroll(course, EnrollCheck{Password: "secret"}))
}

func TestCapacityGuardStaffOverride(t *testing.T) {
	guard := NewCapacityGuard()

	// The override skips the self-enrollment and password gates.
	course := activeCourse()
	course.AllowSelfEnrollment = false
	course.CoursePassword = "secret"
	assert.NoError(t, guard.CheckEnroll(course, EnrollCheck{StaffOverride: true}))

	// But never the capacity check: staff enrollments still consume a seat.
	course.EnrolledStudents = course.MaxStudents
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{StaffOverride: true}), appErrors.ErrCourseFull)
}

func TestCapacityGuardWrongPassword(t *testing.T) {
	guard := NewCapacityGuard()
	course := activeCourse()
	course.CoursePassword = "secret"

	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{Password: "wrong"}), appErrors.ErrPasswordRequired)
	assert.ErrorIs(t, guard.CheckEnroll(course, EnrollCheck{}), appErrors.ErrPasswordRequired)
}
