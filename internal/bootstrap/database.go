package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/store"

	"go.uber.org/zap"
)

// initializeDatabase opens the store and, in local mode, creates the default
// admin on first start.
func initializeDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN, log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("database ready", zap.String("driver", cfg.DatabaseDriver))

	if cfg.AuthMode != config.AuthModeLocal {
		return db, nil
	}

	seeded, err := db.SeedIfEmpty(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}
	for _, r := range seeded {
		log.Warn("created default user, change its password",
			zap.String("username", r.User.Username),
			zap.String("password", r.Password))
	}
	return db, nil
}
