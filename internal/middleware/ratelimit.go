package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/passport-local/internal/templates"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType defines the type of rate limit store
type RateLimitStoreType string

const (
	// RateLimitStoreMemory uses in-memory storage (single instance only)
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis uses Redis storage (distributed, multi-pod support)
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

// RateLimitConfig holds the configuration for rate limiting with store support
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration

	StoreType RateLimitStoreType
	// RedisClient is required when StoreType is RateLimitStoreRedis.
	RedisClient redis.UniversalClient
	// Prefix separates the counters of different limiters sharing a store.
	Prefix string

	// OnLimitReached is called before the 429 response is written.
	OnLimitReached func(c *gin.Context)
}

// NewRateLimiter creates a per-client-IP rate limiter
func NewRateLimiter(config RateLimitConfig) (gin.HandlerFunc, error) {
	if config.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", config.RequestsPerMinute)
	}
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(config.RequestsPerMinute),
	}

	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	prefix := config.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	opts := limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: config.CleanupInterval,
	}

	var store limiter.Store
	switch config.StoreType {
	case RateLimitStoreRedis:
		if config.RedisClient == nil {
			return nil, fmt.Errorf("redis rate limit store requires a redis client")
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(config.RedisClient, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	case RateLimitStoreMemory, "":
		store = memory.NewStoreWithOptions(opts)
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", config.StoreType)
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		if config.OnLimitReached != nil {
			config.OnLimitReached(c)
		}

		const message = "Too many requests. Please try again later."
		if strings.Contains(c.GetHeader("Accept"), "text/html") {
			templates.RenderError(c, http.StatusTooManyRequests, message)
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": message,
		})
	})), nil
}

// NewMemoryRateLimiter creates an in-memory rate limiter (single instance)
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}
