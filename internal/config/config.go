package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Authentication mode constants
const (
	AuthModeLocal   = "local"
	AuthModeHTTPAPI = "http_api"
	AuthModeFile    = "file"
)

// Cache type constants
const (
	CacheTypeMemory  = "memory"
	CacheTypeRedis   = "redis"
	CacheTypeRueidis = "rueidis"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string `env:"SERVER_ADDR,default=:8080"`
	BaseURL      string `env:"BASE_URL,default=http://localhost:8080"`
	IsProduction bool   `env:"IS_PRODUCTION,default=false"`

	// Session settings
	SessionSecret string `env:"SESSION_SECRET,default=session-secret-change-in-production"`
	SessionMaxAge int    `env:"SESSION_MAX_AGE,default=86400"` // seconds

	// Database
	DatabaseDriver string `env:"DATABASE_DRIVER,default=sqlite"` // "sqlite" or "postgres"
	DatabaseDSN    string `env:"DATABASE_DSN,default=passport-local.db"`

	// Authentication
	AuthMode  string `env:"AUTH_MODE,default=local"` // "local", "http_api" or "file"
	UsersFile string `env:"USERS_FILE,default=users.yaml"`

	// Strategy settings
	UsernameField     string `env:"USERNAME_FIELD,default=username"`
	PasswordField     string `env:"PASSWORD_FIELD,default=password"`
	BadRequestMessage string `env:"BAD_REQUEST_MESSAGE"`

	// HTTP API Authentication
	HTTPAPIURL                string        `env:"HTTP_API_URL"`
	HTTPAPITimeout            time.Duration `env:"HTTP_API_TIMEOUT,default=10s"`
	HTTPAPIInsecureSkipVerify bool          `env:"HTTP_API_INSECURE_SKIP_VERIFY,default=false"`
	HTTPAPIAuthMode           string        `env:"HTTP_API_AUTH_MODE,default=none"` // "none", "simple" or "hmac"
	HTTPAPIAuthSecret         string        `env:"HTTP_API_AUTH_SECRET"`
	HTTPAPIAuthHeader         string        `env:"HTTP_API_AUTH_HEADER,default=X-API-Secret"`
	HTTPAPIMaxRetries         int           `env:"HTTP_API_MAX_RETRIES,default=3"`
	HTTPAPIRetryDelay         time.Duration `env:"HTTP_API_RETRY_DELAY,default=1s"`
	HTTPAPIMaxRetryDelay      time.Duration `env:"HTTP_API_MAX_RETRY_DELAY,default=10s"`

	// JWT settings for the JSON login API
	JWTSecret     string        `env:"JWT_SECRET,default=your-256-bit-secret-change-in-production"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION,default=1h"`

	// Cache
	CacheType    string        `env:"CACHE_TYPE,default=memory"` // "memory", "redis" or "rueidis"
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL,default=5m"`

	// Redis, shared by the cache and the rate limiter
	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// Rate limiting
	EnableRateLimit          bool          `env:"ENABLE_RATE_LIMIT,default=true"`
	LoginRateLimit           int           `env:"LOGIN_RATE_LIMIT,default=5"` // requests per minute
	RateLimitStore           string        `env:"RATE_LIMIT_STORE,default=memory"`
	RateLimitCleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL,default=5m"`

	// Metrics
	MetricsEnabled       bool          `env:"METRICS_ENABLED,default=false"`
	MetricsToken         string        `env:"METRICS_TOKEN"`
	MetricsGaugeInterval time.Duration `env:"METRICS_GAUGE_INTERVAL,default=30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"` // "json" or "console"
}

// Load reads .env when present and decodes the environment into a Config.
// A value that does not parse is an error rather than a zero field.
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envdecode.StrictDecode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected modes have what they need.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeLocal:
	case AuthModeHTTPAPI:
		if c.HTTPAPIURL == "" {
			return fmt.Errorf("%w: HTTP_API_URL is required when AUTH_MODE=http_api", ErrInvalidConfig)
		}
	case AuthModeFile:
		if c.UsersFile == "" {
			return fmt.Errorf("%w: USERS_FILE is required when AUTH_MODE=file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown AUTH_MODE %q", ErrInvalidConfig, c.AuthMode)
	}

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unsupported DATABASE_DRIVER %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: DATABASE_DSN is required", ErrInvalidConfig)
	}

	switch c.CacheType {
	case CacheTypeMemory, CacheTypeRedis, CacheTypeRueidis:
	default:
		return fmt.Errorf("%w: unknown CACHE_TYPE %q", ErrInvalidConfig, c.CacheType)
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("%w: unknown RATE_LIMIT_STORE %q", ErrInvalidConfig, c.RateLimitStore)
	}
	if c.EnableRateLimit && c.LoginRateLimit <= 0 {
		return fmt.Errorf("%w: LOGIN_RATE_LIMIT must be positive", ErrInvalidConfig)
	}

	if c.UsernameField == "" || c.PasswordField == "" {
		return fmt.Errorf("%w: USERNAME_FIELD and PASSWORD_FIELD must not be empty", ErrInvalidConfig)
	}

	if c.IsProduction {
		if c.SessionSecret == defaultSessionSecret {
			return fmt.Errorf("%w: SESSION_SECRET must be changed in production", ErrInvalidConfig)
		}
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("%w: JWT_SECRET must be changed in production", ErrInvalidConfig)
		}
	}
	if c.MetricsEnabled && c.IsProduction && c.MetricsToken == "" {
		return fmt.Errorf("%w: METRICS_TOKEN is required for /metrics in production", ErrInvalidConfig)
	}

	return nil
}

// NeedsRedis reports whether any component is configured to talk to Redis.
func (c *Config) NeedsRedis() bool {
	return c.CacheType == CacheTypeRedis ||
		(c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis)
}

const (
	defaultSessionSecret = "session-secret-change-in-production"
	defaultJWTSecret     = "your-256-bit-secret-change-in-production"
)

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("invalid configuration")
