package service

import (
	"crypto/subtle"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

// CapacityGuard evaluates whether a course can accept one more student.
// It is pure over the course snapshot it is given; the transactional
// counter update in the repository re-checks the same predicate so a
// stale snapshot can never oversell a seat.
type CapacityGuard struct{}

// NewCapacityGuard constructs the guard.
func NewCapacityGuard() *CapacityGuard {
	return &CapacityGuard{}
}

// HasSeat reports whether the course has at least one free seat.
// A non-positive MaxStudents means the course accepts nobody.
func (g *CapacityGuard) HasSeat(course *models.Course) bool {
	if course.MaxStudents <= 0 {
		return false
	}
	return course.EnrolledStudents < course.MaxStudents
}

// EnrollCheck contains the optional inputs to a self-enrollment attempt.
type EnrollCheck struct {
	// Password is the shared course secret supplied by the student, if any.
	Password string
	// StaffOverride skips the self-enrollment and password gates; staff
	// enrolling a student on their behalf still consume a seat.
	StaffOverride bool
}

// CheckEnroll validates every static precondition for enrolling into the
// course, in a fixed order so the caller always surfaces the first failed
// gate: active status, capacity, self-enrollment permission, password.
func (g *CapacityGuard) CheckEnroll(course *models.Course, check EnrollCheck) error {
	if course.Status != models.CourseStatusActive {
		return appErrors.ErrCourseInactive
	}
	if !g.HasSeat(course) {
		return appErrors.ErrCourseFull
	}
	if check.StaffOverride {
		return nil
	}
	if !course.AllowSelfEnrollment {
		return appErrors.ErrApprovalRequired
	}
	if course.HasPassword() {
		if subtle.ConstantTimeCompare([]byte(check.Password), []byte(course.CoursePassword)) != 1 {
			return appErrors.ErrPasswordRequired
		}
	}
	return nil
}
