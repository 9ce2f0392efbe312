package bootstrap

import (
	"fmt"

	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login    gin.HandlerFunc
	apiLogin gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration
func setupRateLimiting(
	cfg *config.Config,
	recorder metrics.Recorder,
	redisClient redis.UniversalClient,
	log *zap.Logger,
) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		noOp := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{login: noOp, apiLogin: noOp}, nil
	}

	log.Info("rate limiting enabled",
		zap.String("store", cfg.RateLimitStore),
		zap.Int("per_minute", cfg.LoginRateLimit))

	createLimiter := func(route string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.LoginRateLimit,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
			StoreType:         middleware.RateLimitStoreType(cfg.RateLimitStore),
			RedisClient:       redisClient,
			Prefix:            "ratelimit" + route,
			OnLimitReached: func(c *gin.Context) {
				recorder.RecordRateLimited(route)
				log.Warn("rate limit exceeded",
					zap.String("route", route),
					zap.String("client_ip", c.ClientIP()))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter for %s: %w", route, err)
		}
		return limiter, nil
	}

	var (
		limiters rateLimitMiddlewares
		err      error
	)
	if limiters.login, err = createLimiter("/login"); err != nil {
		return limiters, err
	}
	if limiters.apiLogin, err = createLimiter("/api/login"); err != nil {
		return limiters, err
	}
	return limiters, nil
}
