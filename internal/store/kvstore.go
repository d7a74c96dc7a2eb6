// Package store provides the string-keyed persistence tier used for
// course-scoped content collections.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

// KeyValueStore is a synchronous string-keyed store holding JSON-serialized
// record arrays. Implementations must report a missing key via found=false
// rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// RedisStore backs the key-value contract with Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore. A nil client degrades every read
// to a miss and every write to a storage error.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves the raw value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

// Set stores the raw value under key with an optional TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return appErrors.Clone(appErrors.ErrStorage, "content store unavailable")
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the value stored under key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.client == nil {
		return appErrors.Clone(appErrors.ErrStorage, "content store unavailable")
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-process KeyValueStore used in tests and degraded
// single-node setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get retrieves the raw value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true, nil
}

// Set stores the raw value under key. TTL is ignored.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

// Remove deletes the value stored under key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// LoadList reads and unmarshals a record array. A missing key or a corrupt
// payload degrades to an empty slice; only a store failure is an error.
func LoadList[T any](ctx context.Context, kv KeyValueStore, key string, logger *zap.Logger) ([]T, error) {
	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read content store")
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		if logger != nil {
			logger.Warn("corrupt content store value, treating as empty", zap.String("key", key), zap.Error(err))
		}
		return []T{}, nil
	}
	return records, nil
}

// SaveList marshals and writes a record array. A failed write leaves the
// previously stored value untouched.
func SaveList[T any](ctx context.Context, kv KeyValueStore, key string, records []T, ttl time.Duration) error {
	if records == nil {
		records = []T{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode content records")
	}
	if err := kv.Set(ctx, key, payload, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to write content store")
	}
	return nil
}
