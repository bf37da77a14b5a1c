// ABOUTME: Redis-backed passcode store using go-redis
// ABOUTME: Values are "code:unix" strings with a TTL past the validity window

package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "socialcore:passcode:"

// RedisStore keeps records in Redis. Keys expire after the configured
// retention, which should be well past the validity window (see DefaultRetention).
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore parses url, connects and pings.
func NewRedisStore(ctx context.Context, url string, retention time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client, retention: retention}, nil
}

// Put stores rec under key, replacing any previous record.
func (r *RedisStore) Put(ctx context.Context, key string, rec Record) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, rec.Encode(), r.retention).Err(); err != nil {
		return fmt.Errorf("storing passcode: %w", err)
	}
	return nil
}

// Get returns the record for key.
func (r *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading passcode: %w", err)
	}
	return ParseRecord(val)
}

// Delete removes the record for key, if any.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting passcode: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
