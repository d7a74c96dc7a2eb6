// Package seed holds the default course catalog shipped with the system.
// Seeded content carries OriginRemote: it participates in merges but is
// never written back to the local content tier.
package seed

import (
	"time"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
)

var seededAt = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// DefaultCourses returns the built-in TESDA course catalog.
func DefaultCourses() []models.Course {
	return []models.Course{
		{
			ID:                  "course-css-nc2",
			Title:               "Computer Systems Servicing NC II",
			Code:                "CSS-NC2",
			Description:         "Installing, configuring and maintaining computer systems and networks.",
			Category:            models.CourseCategoryICT,
			Level:               models.CourseLevelBeginner,
			DurationHours:       280,
			Instructor:          "R. Dela Cruz",
			MaxStudents:         30,
			Status:              models.CourseStatusActive,
			AllowSelfEnrollment: true,
			CreatedAt:           seededAt,
			UpdatedAt:           seededAt,
		},
		{
			ID:                  "course-fbs-nc2",
			Title:               "Food and Beverage Services NC II",
			Code:                "FBS-NC2",
			Description:         "Providing food and beverage service in hotels, restaurants and resorts.",
			Category:            models.CourseCategoryTourism,
			Level:               models.CourseLevelBeginner,
			DurationHours:       356,
			Instructor:          "M. Santos",
			MaxStudents:         25,
			Status:              models.CourseStatusActive,
			AllowSelfEnrollment: true,
			CreatedAt:           seededAt,
			UpdatedAt:           seededAt,
		},
		{
			ID:                  "course-smaw-nc2",
			Title:               "Shielded Metal Arc Welding NC II",
			Code:                "SMAW-NC2",
			Description:         "Welding carbon steel plates and pipes using shielded metal arc welding.",
			Category:            models.CourseCategoryConstruction,
			Level:               models.CourseLevelIntermediate,
			DurationHours:       268,
			Instructor:          "J. Ramos",
			MaxStudents:         20,
			Status:              models.CourseStatusActive,
			AllowSelfEnrollment: false,
			CreatedAt:           seededAt,
			UpdatedAt:           seededAt,
		},
	}
}

// DefaultLessons returns the built-in lessons for a seeded course. Courses
// outside the default catalog have no remote tier.
func DefaultLessons(courseID string) []models.Lesson {
	lessons, ok := defaultLessons[courseID]
	if !ok {
		return nil
	}
	out := make([]models.Lesson, len(lessons))
	copy(out, lessons)
	return out
}

var defaultLessons = map[string][]models.Lesson{
	"course-css-nc2": {
		{
			ID:          "lesson-css-1",
			CourseID:    "course-css-nc2",
			Title:       "Install and Configure Computer Systems",
			Description: "Assembling computer hardware and installing operating systems and drivers.",
			Content:     "Covers OHS procedures, hardware assembly, BIOS configuration and OS installation.",
			DurationMin: 480,
			Position:    1,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
		{
			ID:          "lesson-css-2",
			CourseID:    "course-css-nc2",
			Title:       "Set Up Computer Networks",
			Description: "Cabling, network device configuration and basic routing.",
			Content:     "Covers structured cabling, switch and router setup, and network testing.",
			DurationMin: 600,
			Position:    2,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
		{
			ID:          "lesson-css-3",
			CourseID:    "course-css-nc2",
			Title:       "Maintain and Repair Systems",
			Description: "Preventive maintenance and fault diagnosis.",
			Content:     "Covers maintenance planning, diagnostics and component replacement.",
			DurationMin: 420,
			Position:    3,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
	},
	"course-fbs-nc2": {
		{
			ID:          "lesson-fbs-1",
			CourseID:    "course-fbs-nc2",
			Title:       "Prepare the Dining Area",
			Description: "Table setup, ambiance and service stations.",
			Content:     "Covers mise en place, table skirting and station preparation.",
			DurationMin: 360,
			Position:    1,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
		{
			ID:          "lesson-fbs-2",
			CourseID:    "course-fbs-nc2",
			Title:       "Welcome Guests and Take Orders",
			Description: "Guest relations and order taking procedures.",
			Content:     "Covers greeting protocols, menu presentation and suggestive selling.",
			DurationMin: 300,
			Position:    2,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
	},
	"course-smaw-nc2": {
		{
			ID:          "lesson-smaw-1",
			CourseID:    "course-smaw-nc2",
			Title:       "Weld Carbon Steel Plates",
			Description: "Flat, horizontal and vertical position plate welding.",
			Content:     "Covers joint preparation, electrode selection and weld defect prevention.",
			DurationMin: 720,
			Position:    1,
			IsPublished: true,
			Origin:      models.OriginRemote,
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		},
	},
}
