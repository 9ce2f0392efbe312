package bootstrap

import (
	"fmt"

	"github.com/go-authgate/passport-local/internal/auth"
	"github.com/go-authgate/passport-local/internal/client"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/store"

	"go.uber.org/zap"
)

// initializeAuthProvider selects the password verification backend for AUTH_MODE
func initializeAuthProvider(
	cfg *config.Config,
	db *store.Store,
	log *zap.Logger,
) (auth.Provider, error) {
	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		retryClient, err := client.CreateRetryClient(client.RetryOptions{
			AuthMode:           cfg.HTTPAPIAuthMode,
			AuthSecret:         cfg.HTTPAPIAuthSecret,
			AuthHeader:         cfg.HTTPAPIAuthHeader,
			Timeout:            cfg.HTTPAPITimeout,
			InsecureSkipVerify: cfg.HTTPAPIInsecureSkipVerify,
			MaxRetries:         cfg.HTTPAPIMaxRetries,
			RetryDelay:         cfg.HTTPAPIRetryDelay,
			MaxRetryDelay:      cfg.HTTPAPIMaxRetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP API auth client: %w", err)
		}
		log.Info("http api authentication enabled", zap.String("url", cfg.HTTPAPIURL))
		return auth.NewHTTPAPIAuthProvider(cfg.HTTPAPIURL, retryClient), nil

	case config.AuthModeFile:
		p, err := auth.NewFileAuthProvider(cfg.UsersFile, log.Named("users-file"))
		if err != nil {
			return nil, fmt.Errorf("failed to load users file: %w", err)
		}
		return p, nil

	default:
		return auth.NewLocalAuthProvider(db), nil
	}
}
