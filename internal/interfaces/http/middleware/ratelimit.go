package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	// Take consumes one request for key and reports what is left in the window
	Take(ctx context.Context, key string) (remaining int, allowed bool)
	// Limit returns the number of requests allowed per window
	Limit() int
}

// RateLimiter implements a simple in-memory fixed window rate limiter
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*client
	limit       int           // Maximum requests per window
	window      time.Duration // Time window
	cleanupTick time.Duration // Cleanup interval
	stop        chan struct{}
	stopOnce    sync.Once
}

type client struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a new rate limiter. Call Stop to release its cleanup goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*client),
		limit:       limit,
		window:      window,
		cleanupTick: window * 2,
		stop:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes expired clients periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, c := range rl.clients {
				if now.Sub(c.lastReset) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, exists := rl.clients[key]

	if !exists {
		rl.clients[key] = &client{
			tokens:    rl.limit - 1,
			lastReset: now,
		}
		return true
	}

	if now.Sub(c.lastReset) >= rl.window {
		c.tokens = rl.limit - 1
		c.lastReset = now
		return true
	}

	if c.tokens > 0 {
		c.tokens--
		return true
	}

	return false
}

// Remaining returns the number of remaining requests for the given key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[key]
	if !exists {
		return rl.limit
	}

	if time.Since(c.lastReset) >= rl.window {
		return rl.limit
	}

	return c.tokens
}

// Take implements Limiter
func (rl *RateLimiter) Take(_ context.Context, key string) (int, bool) {
	allowed := rl.Allow(key)
	return rl.Remaining(key), allowed
}

// Limit implements Limiter
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// RedisRateLimiter is a fixed window limiter shared by every instance
// pointing at the same Redis. It fails open when Redis is unreachable.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a Redis-backed limiter
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix + "ratelimit:", limit: limit, window: window}
}

// Take implements Limiter
func (rl *RedisRateLimiter) Take(ctx context.Context, key string) (int, bool) {
	k := rl.prefix + key
	count, err := rl.client.Incr(ctx, k).Result()
	if err != nil {
		return rl.limit, true
	}
	if count == 1 {
		rl.client.Expire(ctx, k, rl.window)
	}
	remaining := rl.limit - int(count)
	if remaining < 0 {
		return 0, false
	}
	return remaining, true
}

// Limit implements Limiter
func (rl *RedisRateLimiter) Limit() int {
	return rl.limit
}

// RateLimit returns a rate limiting middleware keyed by client IP and operator
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		key := c.ClientIP()
		if operator := c.GetString(OperatorKey); operator != "" {
			key = operator + ":" + key
		}
		return key
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, allowed := limiter.Take(c.Request.Context(), keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeRateLimited), dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Next()
	}
}

var (
	_ Limiter = (*RateLimiter)(nil)
	_ Limiter = (*RedisRateLimiter)(nil)
)
