package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a KVStore backed by Redis. The quota is enforced on the
// client side over the keys this store has touched; a server-side OOM
// rejection is reported as a quota error as well.
type RedisStore struct {
	client *redis.Client
	quota  int64
	logger *zap.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, quotaBytes int64, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		quota:  quotaBytes,
		logger: logger,
		keys:   make(map[string]struct{}),
	}
}

// NewRedisStoreFromConfig connects to Redis and verifies the connection
func NewRedisStoreFromConfig(cfg config.RedisConfig, quotaBytes int64, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}

	if logger != nil {
		logger.Info("Redis store connected",
			zap.String("addr", cfg.Addr()),
			zap.Int("db", cfg.DB),
			zap.Int64("quota_bytes", quotaBytes),
		)
	}
	return NewRedisStore(client, quotaBytes, logger), nil
}

// Get returns the value stored under key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.track(key)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from redis: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key without expiry
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	s.track(key)

	if s.quota > 0 {
		used, err := s.usedExcept(ctx, key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.quota {
			return quotaError(key, used, int64(len(value)), s.quota)
		}
	}

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("redis rejected write to %s: %v: %w", key, err, shared.ErrQuotaExceeded)
		}
		return fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}
	return nil
}

// Delete removes the given keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v from redis: %w", keys, err)
	}
	return nil
}

// Client returns the underlying client for sharing with other components
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Ping checks if the Redis server is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) track(key string) {
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
}

// usedExcept sums the sizes of every tracked key other than key
func (s *RedisStore) usedExcept(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	others := make([]string, 0, len(s.keys))
	for k := range s.keys {
		if k != key {
			others = append(others, k)
		}
	}
	s.mu.Unlock()
	slices.Sort(others)

	var used int64
	for _, k := range others {
		n, err := s.client.StrLen(ctx, k).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to measure key %s in redis: %w", k, err)
		}
		used += n
	}
	return used, nil
}

func isOutOfMemory(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
