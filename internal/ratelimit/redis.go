package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rate_limit:"

// RedisStore persists buckets in Redis so the window is shared across
// instances. Bucket TTL tracks the window, so stale buckets expire on
// their own.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a bucket store over an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, phone string) (*Bucket, error) {
	raw, err := s.client.Get(ctx, rateLimitPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit bucket: %w", err)
	}

	var bucket Bucket
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return nil, fmt.Errorf("invalid rate limit bucket format: %w", err)
	}
	return &bucket, nil
}

func (s *RedisStore) Put(ctx context.Context, phone string, bucket *Bucket, ttl time.Duration) error {
	raw, err := json.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("failed to encode rate limit bucket: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, rateLimitPrefix+phone, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rate limit bucket: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, rateLimitPrefix+phone).Err(); err != nil {
		return fmt.Errorf("failed to delete rate limit bucket: %w", err)
	}
	return nil
}
