package bootstrap

import (
	"context"
	"errors"

	"github.com/go-authgate/passport-local/internal/cache"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "passport-local:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, log *zap.Logger) metrics.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Info("prometheus metrics initialized")
	} else {
		log.Info("metrics disabled, using noop recorder")
	}
	return recorder
}

// initializeCache builds a cache of the configured type. The redis backend
// shares redisClient; rueidis opens its own connection.
func initializeCache[T any](
	ctx context.Context,
	cfg *config.Config,
	redisClient redis.UniversalClient,
	name string,
) (cache.Cache[T], error) {
	prefix := cacheKeyPrefix + name + ":"

	switch cfg.CacheType {
	case config.CacheTypeRedis:
		if redisClient == nil {
			return nil, errors.New("redis cache requires a redis client")
		}
		return cache.NewRedisCache[T](redisClient, prefix), nil

	case config.CacheTypeRueidis:
		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			prefix,
		)
		if err != nil {
			return nil, err
		}
		return c, nil

	default: // memory
		return cache.NewMemoryCache[T](), nil
	}
}
