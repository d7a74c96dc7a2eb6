package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type enrollmentReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

type submissionCounter interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
}

type lessonSetReader interface {
	List(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error)
}

type projectionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ProgressService derives per-course statistics from the enrollment
// counters. Nothing here is stored: every figure is a projection over the
// ledger, optionally cached with a short TTL.
type ProgressService struct {
	enrollments enrollmentReader
	submissions submissionCounter
	lessons     lessonSetReader
	courses     courseReader
	cache       projectionCache
	ttl         time.Duration
	logger      *zap.Logger
}

// NewProgressService constructs ProgressService. A nil cache disables
// projection caching.
func NewProgressService(enrollments enrollmentReader, submissions submissionCounter, lessons lessonSetReader, courses courseReader, cache projectionCache, ttl time.Duration, logger *zap.Logger) *ProgressService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		enrollments: enrollments,
		submissions: submissions,
		lessons:     lessons,
		courses:     courses,
		cache:       cache,
		ttl:         ttl,
		logger:      logger,
	}
}

func summaryKey(courseID string) string {
	return fmt.Sprintf("lms:summary:%s", courseID)
}

// AverageProgress is the rounded mean progress over the given enrollments.
// An empty set yields zero, not an error.
func AverageProgress(enrollments []models.Enrollment) int {
	if len(enrollments) == 0 {
		return 0
	}
	sum := 0
	for _, e := range enrollments {
		sum += e.Progress
	}
	return int(math.Round(float64(sum) / float64(len(enrollments))))
}

// CompletionRate is the rounded percentage of the given enrollments that
// reached COMPLETED. The set is taken as-is: callers that want dropped
// enrollments excluded filter before calling.
func CompletionRate(enrollments []models.Enrollment) int {
	if len(enrollments) == 0 {
		return 0
	}
	completed := 0
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(enrollments)) * 100))
}

// PendingAssignments returns the published assignments that have no
// matching submission in the given set. Draft assignments are invisible to
// students and never count as pending.
func PendingAssignments(assignments []models.Assignment, submissions []models.Submission) []models.Assignment {
	submitted := make(map[string]struct{}, len(submissions))
	for _, sub := range submissions {
		submitted[sub.AssignmentID] = struct{}{}
	}
	pending := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Status != models.AssignmentStatusPublished {
			continue
		}
		if _, ok := submitted[a.ID]; ok {
			continue
		}
		pending = append(pending, a)
	}
	return pending
}

// StudentPendingAssignments projects the published assignments of a course
// the student has not submitted work for yet.
func (s *ProgressService) StudentPendingAssignments(ctx context.Context, studentID, courseID string) ([]models.Assignment, error) {
	lessons, err := s.lessons.List(ctx, courseID, true)
	if err != nil {
		return nil, err
	}
	assignments := make([]models.Assignment, 0)
	for _, lesson := range lessons {
		assignments = append(assignments, lesson.Assignments...)
	}

	submissions := make([]models.Submission, 0)
	for page := 1; ; page++ {
		batch, total, err := s.submissions.List(ctx, models.SubmissionFilter{
			StudentID: studentID,
			CourseID:  courseID,
			Page:      page,
			PageSize:  100,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
		}
		submissions = append(submissions, batch...)
		if len(batch) == 0 || len(submissions) >= total {
			break
		}
	}

	return PendingAssignments(assignments, submissions), nil
}

// CourseSummary computes the derived statistics of a course, serving a
// cached copy when one is fresh.
func (s *ProgressService) CourseSummary(ctx context.Context, courseID string) (*models.CourseSummary, error) {
	if s.cache != nil {
		var cached models.CourseSummary
		err := s.cache.Get(ctx, summaryKey(courseID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("course summary cache read failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	// Dropped enrollments carry no weight in course statistics, so both
	// rates are computed over the non-dropped subset.
	active := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Status != models.EnrollmentStatusDropped {
			active = append(active, e)
		}
	}

	lessons, err := s.lessons.List(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	published := 0
	for _, l := range lessons {
		if l.IsPublished {
			published++
		}
	}

	_, pending, err := s.submissions.List(ctx, models.SubmissionFilter{
		CourseID: courseID,
		Status:   models.SubmissionStatusSubmitted,
		PageSize: 1,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending submissions")
	}

	var capacityUsed float64
	if course.MaxStudents > 0 {
		capacityUsed = float64(course.EnrolledStudents) / float64(course.MaxStudents)
	}

	summary := &models.CourseSummary{
		CourseID:           courseID,
		EnrolledStudents:   course.EnrolledStudents,
		CompletionRate:     CompletionRate(active),
		AverageProgress:    AverageProgress(active),
		PendingSubmissions: pending,
		TotalLessons:       len(lessons),
		PublishedLessons:   published,
		CapacityUsed:       capacityUsed,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryKey(courseID), summary, s.ttl); err != nil {
			s.logger.Warn("course summary cache write failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return summary, nil
}

// StudentProgress returns the progress figures of every enrollment a
// student holds, derived straight from the ledger counters.
func (s *ProgressService) StudentProgress(ctx context.Context, enrollments []models.Enrollment) []models.Enrollment {
	for i := range enrollments {
		enrollments[i].RecomputeProgress()
	}
	return enrollments
}

// InvalidateCourse drops the cached projection of a course. Called after
// every enrollment mutation so reads never serve a stale summary longer
// than one TTL.
func (s *ProgressService) InvalidateCourse(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryKey(courseID)); err != nil {
		s.logger.Warn("course summary invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}
}
