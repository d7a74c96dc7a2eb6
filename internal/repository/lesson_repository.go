package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FerventBolt/tesda-lms-api/internal/merge"
	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/internal/store"
)

// LessonRepository persists locally authored lessons in the content store,
// one JSON array per course under a course-scoped key. The default catalog
// tier is merged in by the service layer; this repository only ever sees
// the local tier.
type LessonRepository struct {
	kv     store.KeyValueStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewLessonRepository constructs the repository. A zero ttl stores lessons
// without expiry.
func NewLessonRepository(kv store.KeyValueStore, ttl time.Duration, logger *zap.Logger) *LessonRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonRepository{kv: kv, ttl: ttl, logger: logger}
}

func lessonKey(courseID string) string {
	return fmt.Sprintf("lms:lessons:%s", courseID)
}

// LoadLocal returns the locally authored lessons of a course. A missing key
// means the course has no local lessons yet.
func (r *LessonRepository) LoadLocal(ctx context.Context, courseID string) ([]models.Lesson, error) {
	return store.LoadList[models.Lesson](ctx, r.kv, lessonKey(courseID), r.logger)
}

// SaveLocal replaces the stored local tier for a course. Remote-origin
// records are filtered out before the write so merged working sets can be
// passed in directly.
func (r *LessonRepository) SaveLocal(ctx context.Context, courseID string, lessons []models.Lesson) error {
	return store.SaveList(ctx, r.kv, lessonKey(courseID), merge.LocalOnly(lessons), r.ttl)
}

// RemoveCourse deletes the local tier of a course, used when a course is
// deactivated and purged.
func (r *LessonRepository) RemoveCourse(ctx context.Context, courseID string) error {
	return r.kv.Remove(ctx, lessonKey(courseID))
}
