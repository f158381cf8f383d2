package watermark

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"hsr-monitor/internal/apperr"
)

// DefaultRedisKey is the key holding the watermark in Redis.
const DefaultRedisKey = "hsr-monitor:last_created"

// RedisStore keeps the watermark under a single Redis key. The compare and
// set are separate commands with no WATCH/MULTI, so concurrent writers race
// as they do with FileStore.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store using client. An empty key selects DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Read implements Store.
func (s *RedisStore) Read(ctx context.Context) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &apperr.PersistenceError{Op: "read", Path: "redis:" + s.key, Err: err}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Write implements Store.
func (s *RedisStore) Write(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	current, ok, err := s.Read(ctx)
	if err != nil {
		return &apperr.PersistenceError{Op: "write", Path: "redis:" + s.key, Err: err}
	}
	if ok && value <= current {
		return nil
	}
	if err := s.client.Set(ctx, s.key, value, 0).Err(); err != nil {
		return &apperr.PersistenceError{Op: "write", Path: "redis:" + s.key, Err: err}
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
