package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-authgate/passport-local/internal/auth"
	"github.com/go-authgate/passport-local/internal/cache"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/internal/store"
	"github.com/go-authgate/passport-local/internal/token"
	"github.com/go-authgate/passport-local/passport"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Logger *zap.Logger

	// Core infrastructure
	DB           *store.Store
	Metrics      metrics.Recorder
	RedisClient  redis.UniversalClient
	UserCache    cache.Cache[models.User]
	MetricsCache cache.Cache[int64]

	// Services
	Provider    auth.Provider
	UserService *services.UserService
	Tokens      *token.LocalTokenProvider
	Passport    *passport.Passport

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// New validates cfg and builds every component without starting anything.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Application, error) {
	if log == nil {
		log = zap.NewNop()
	}
	app := &Application{Config: cfg, Logger: log}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// Run builds the application and serves until a shutdown signal arrives.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown(ctx)
	return nil
}

// initializeInfrastructure sets up database, metrics, Redis and caches
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	app.Metrics = initializeMetrics(app.Config, app.Logger)

	app.RedisClient, err = initializeRedisClient(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	app.UserCache, err = initializeCache[models.User](ctx, app.Config, app.RedisClient, "users")
	if err != nil {
		return fmt.Errorf("failed to initialize user cache: %w", err)
	}
	app.Logger.Info("user cache ready", zap.String("type", app.Config.CacheType))

	if app.Config.MetricsEnabled {
		app.MetricsCache, err = initializeCache[int64](ctx, app.Config, app.RedisClient, "metrics")
		if err != nil {
			return fmt.Errorf("failed to initialize metrics cache: %w", err)
		}
	}
	return nil
}

// initializeBusinessLayer sets up the verification backend, services and passport
func (app *Application) initializeBusinessLayer() error {
	var err error

	app.Provider, err = initializeAuthProvider(app.Config, app.DB, app.Logger)
	if err != nil {
		return err
	}

	app.UserService = services.NewUserService(
		app.DB,
		app.Provider,
		app.Config.AuthMode,
		app.UserCache,
		app.Config.UserCacheTTL,
		app.Logger.Named("users"),
	)

	app.Tokens, err = token.NewLocalTokenProvider(
		app.Config.JWTSecret,
		app.Config.BaseURL,
		app.Config.JWTExpiration,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token provider: %w", err)
	}

	app.Passport, err = initializePassport(app.Config, app.UserService, app.Metrics, app.Logger)
	return err
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.Passport,
		app.UserService,
		app.Tokens,
		app.Metrics,
		app.Logger,
	)

	var err error
	app.Router, err = setupRouter(app)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown(ctx context.Context) {
	m := graceful.NewManager(
		graceful.WithContext(ctx),
		graceful.WithLogger(app.Logger.Sugar()),
	)

	addServerRunningJob(m, app.Server, app.Logger)
	addServerShutdownJob(m, app.Server, app.Logger)
	addUsersFileWatchJob(m, app.Provider, app.Logger)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.Metrics, app.MetricsCache, app.Logger)
	m.AddShutdownJob(func() error {
		app.Close()
		return nil
	})

	<-m.Done()
}

// Close releases caches, the Redis client and the database. It is safe on a
// partially built Application.
func (app *Application) Close() {
	closeQuietly := func(name string, fn func() error) {
		if err := fn(); err != nil {
			app.Logger.Warn("failed to close "+name, zap.Error(err))
		}
	}

	if app.UserCache != nil {
		closeQuietly("user cache", app.UserCache.Close)
	}
	if app.MetricsCache != nil {
		closeQuietly("metrics cache", app.MetricsCache.Close)
	}
	if app.RedisClient != nil {
		closeQuietly("redis client", app.RedisClient.Close)
	}
	if app.DB != nil {
		closeQuietly("database", app.DB.Close)
	}
}
