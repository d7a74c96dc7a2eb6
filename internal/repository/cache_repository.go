package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

// cacheMetrics receives hit/miss observations from cache lookups.
type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// CacheRepository wraps Redis for cached progress and summary projections.
type CacheRepository struct {
	client  *redis.Client
	metrics cacheMetrics
	logger  *zap.Logger
}

// NewCacheRepository constructs a cache repository. metrics may be nil.
func NewCacheRepository(client *redis.Client, metrics cacheMetrics, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, metrics: metrics, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided
// destination. A nil client behaves as a permanent miss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	start := time.Now()
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			r.observe(false, start)
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	r.observe(true, start)

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (r *CacheRepository) observe(hit bool, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordCacheOperation(hit, time.Since(start))
	}
}

// Set marshals the provided value and stores it with the given TTL.
// Cache writes are best effort: a nil client is a no-op.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern,
// used to invalidate course projections after enrollment mutations.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
