package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key extractor (default: client IP)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis
	KeyPrefix string
}

// rateLimitEntry tracks request count for a key (in-memory fallback)
type rateLimitEntry struct {
	count   int
	resetAt time.Time
	mu      sync.Mutex
}

// Atomic increment with TTL on first hit.
// KEYS[1] = counter key, ARGV[1] = TTL in seconds. Returns {count, ttl}.
var rateLimitScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`)

// NavigationRateLimitConfig bounds how often one client can report navigation changes.
func NavigationRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:     120,
		Window:    time.Minute,
		KeyPrefix: "rl:nav:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// memoryCleanupInterval is how often expired in-memory counters are dropped.
const memoryCleanupInterval = 5 * time.Minute

// AuthRateLimitConfig is stricter; check-email must not become an account
// enumeration oracle.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:     20,
		Window:    time.Minute,
		KeyPrefix: "rl:auth:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

type rateLimiter struct {
	cfg         RateLimitConfig
	client      *goredis.Client
	store       sync.Map
	cleanupOnce sync.Once
}

// RateLimitMiddleware counts requests in Redis when client is non-nil and
// falls back to process memory when it is nil or failing. It fails open.
func RateLimitMiddleware(client *goredis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	rl := &rateLimiter{cfg: cfg, client: client}

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + cfg.KeyFunc(c)
		now := time.Now()

		count, resetAt, err := rl.hit(c.Request.Context(), key, now)
		if err != nil {
			logger.Log.Warn("rate limit redis error, using memory", "error", err)
			count, resetAt = rl.hitInMemory(key, now)
		}

		remaining := cfg.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count > cfg.Limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			logger.Log.Info("rate limit triggered", "ip", c.ClientIP(), "path", c.FullPath())
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *rateLimiter) hit(ctx context.Context, key string, now time.Time) (int, time.Time, error) {
	if rl.client == nil {
		count, resetAt := rl.hitInMemory(key, now)
		return count, resetAt, nil
	}

	result, err := rateLimitScript.Run(ctx, rl.client, []string{key}, int(rl.cfg.Window.Seconds())).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}
	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), now.Add(time.Duration(ttl) * time.Second), nil
}

// startCleanup runs a background sweep of expired counters once the memory
// store is first used.
func (rl *rateLimiter) startCleanup() {
	rl.cleanupOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(memoryCleanupInterval)
			defer ticker.Stop()
			for now := range ticker.C {
				rl.sweep(now)
			}
		}()
	})
}

func (rl *rateLimiter) sweep(now time.Time) {
	rl.store.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		if now.After(entry.resetAt) {
			rl.store.Delete(key)
		}
		entry.mu.Unlock()
		return true
	})
}

func (rl *rateLimiter) hitInMemory(key string, now time.Time) (int, time.Time) {
	rl.startCleanup()

	entryI, _ := rl.store.LoadOrStore(key, &rateLimitEntry{resetAt: now.Add(rl.cfg.Window)})
	entry := entryI.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.resetAt) {
		entry.count = 0
		entry.resetAt = now.Add(rl.cfg.Window)
	}
	entry.count++

	return entry.count, entry.resetAt
}
