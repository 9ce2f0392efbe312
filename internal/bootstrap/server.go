package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-authgate/passport-local/internal/auth"
	"github.com/go-authgate/passport-local/internal/cache"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/store"

	"github.com/appleboy/graceful"
	"go.uber.org/zap"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("failed to start server", zap.Error(err))
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		log.Info("server exited")
		return nil
	})
}

// addUsersFileWatchJob reloads the users file on change when it backs logins
func addUsersFileWatchJob(m *graceful.Manager, provider auth.Provider, log *zap.Logger) {
	fileProvider, ok := provider.(*auth.FileAuthProvider)
	if !ok {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		if err := fileProvider.Watch(ctx); err != nil {
			log.Error("users file watcher stopped", zap.Error(err))
			return err
		}
		return nil
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	metricsCache cache.Cache[int64],
	log *zap.Logger,
) {
	if !cfg.MetricsEnabled || metricsCache == nil || cfg.MetricsGaugeInterval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeInterval)
		defer ticker.Stop()

		cacheWrapper := metrics.NewCacheWrapper(db, metricsCache)
		errLog := newErrorLogger(log)

		updateGaugeMetrics(ctx, cacheWrapper, recorder, cfg.MetricsGaugeInterval, errLog)
		for {
			select {
			case <-ticker.C:
				updateGaugeMetrics(ctx, cacheWrapper, recorder, cfg.MetricsGaugeInterval, errLog)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// errorLogger logs each failing operation at most once per window
type errorLogger struct {
	log             *zap.Logger
	mu              sync.Mutex
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger(log *zap.Logger) *errorLogger {
	return &errorLogger{
		log:             log,
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if last, ok := e.lastErrorTimes[operation]; ok && now.Sub(last) < e.rateLimitWindow {
		return
	}
	e.lastErrorTimes[operation] = now
	e.log.Warn("gauge query failed, suppressing repeats",
		zap.String("operation", operation),
		zap.Duration("window", e.rateLimitWindow),
		zap.Error(err))
}

// gaugeAuthSources are reported as separate users_total series; "" is the total.
var gaugeAuthSources = []string{
	"",
	models.AuthSourceLocal,
	models.AuthSourceHTTPAPI,
	models.AuthSourceFile,
}

// updateGaugeMetrics refreshes the user count gauges through the cache so
// several instances share one database query per interval.
func updateGaugeMetrics(
	ctx context.Context,
	cacheWrapper *metrics.CacheWrapper,
	recorder metrics.Recorder,
	cacheTTL time.Duration,
	errLog *errorLogger,
) {
	for _, source := range gaugeAuthSources {
		count, err := cacheWrapper.GetUsersCount(ctx, source, cacheTTL)
		label := source
		if label == "" {
			label = "all"
		}
		if err != nil {
			recorder.RecordDatabaseQueryError("count_users_" + label)
			errLog.logIfNeeded("count_users_"+label, err)
			continue
		}
		recorder.SetUsersCount(label, int(count))
	}
}
