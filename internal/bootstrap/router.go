package bootstrap

import (
	"net/http"

	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/logging"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionName = "passport_session"

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) (*gin.Engine, error) {
	cfg := app.Config

	setupGinMode(cfg, app.Logger)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(app.Metrics))
	r.Use(logging.Gin(app.Logger.Named("http")), gin.Recovery())
	r.Use(middleware.RequestID())

	setupSessionMiddleware(r, cfg)
	r.Use(app.Passport.Session())

	r.GET("/health", createHealthCheckHandler(app))
	setupMetricsEndpoint(r, cfg, app.Logger)

	rateLimiters, err := setupRateLimiting(cfg, app.Metrics, app.RedisClient, app.Logger)
	if err != nil {
		return nil, err
	}

	setupAllRoutes(r, cfg, app.HandlerSet, rateLimiters)

	app.Logger.Info("server configured",
		zap.String("addr", cfg.ServerAddr),
		zap.String("base_url", cfg.BaseURL),
		zap.String("auth_mode", cfg.AuthMode))
	return r, nil
}

// setupSessionMiddleware configures session handling middleware
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, log *zap.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		log.Info("prometheus metrics endpoint disabled")
	case cfg.MetricsToken != "":
		log.Info("prometheus metrics enabled at /metrics with bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Info("prometheus metrics enabled at /metrics without authentication")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	cfg *config.Config,
	h handlerSet,
	rateLimiters rateLimitMiddlewares,
) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/account")
	})

	// Browser login, guarded by CSRF tokens
	pages := r.Group("")
	pages.Use(middleware.CSRFMiddleware())
	{
		pages.GET("/login", h.auth.LoginPage)
		pages.POST("/login", rateLimiters.login, h.auth.Login())
		pages.GET("/logout", h.auth.Logout)

		if signupEnabled(cfg) {
			pages.GET("/signup", h.auth.SignupPage)
			pages.POST("/signup", rateLimiters.login, h.auth.Signup(), h.auth.SignupComplete)
		}
	}

	// Account routes (require login)
	account := r.Group("/account")
	account.Use(middleware.RequireAuth(), middleware.CSRFMiddleware())
	{
		account.GET("", h.account.Account)
	}

	// Admin routes (require admin role)
	admin := r.Group("/admin")
	admin.Use(
		middleware.RequireAuth(),
		middleware.RequireAdmin(),
		middleware.CSRFMiddleware(),
	)
	{
		admin.GET("/users", h.account.ListUsers)
		admin.POST("/users/:id/role", h.account.SetRole)
	}

	// JSON API, token based and session free
	api := r.Group("/api")
	{
		api.POST("/login", rateLimiters.apiLogin, h.api.Authenticate(), h.api.IssueToken)
		api.GET("/me", h.api.Me)
	}
}

// createHealthCheckHandler reports database and cache reachability
func createHealthCheckHandler(app *Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := http.StatusOK
		body := gin.H{"status": "healthy", "database": "connected", "cache": "connected"}

		if err := app.DB.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "disconnected"
		}
		if err := app.UserCache.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["cache"] = "disconnected"
		}
		c.JSON(status, body)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config, log *zap.Logger) {
	mode := gin.DebugMode
	if cfg.IsProduction {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	log.Info("gin mode", zap.String("mode", mode))
}
