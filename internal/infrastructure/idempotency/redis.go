package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps claimed keys in Redis so every instance sees them
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a store on an existing client. Keys are written
// under keyPrefix + "claimed:".
func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "claimed:",
		ttl:       ttl,
	}
}

// Claim records key with SETNX and reports whether this was the first claim
func (s *RedisStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// Release forgets key so it can be claimed again
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller
func (s *RedisStore) Close() error {
	return nil
}
