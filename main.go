package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-authgate/passport-local/internal/bootstrap"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/logging"
	"github.com/go-authgate/passport-local/internal/store"
	"github.com/go-authgate/passport-local/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "passport-local",
	Short: "Username and password login server",
	Long: `passport-local serves session based username/password login,
signup and a token API backed by a local database, an HTTP API or a
users file. Settings are read from the environment and .env.`,
	Example: `  $ passport-local server
  $ passport-local seed`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "server",
			Short: "Start the login server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withEnv(func(cfg *config.Config, log *zap.Logger) error {
					return bootstrap.Run(cmd.Context(), cfg, log)
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the default users with random passwords",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(func(db *store.Store, log *zap.Logger) error {
					created, err := db.Seed(cmd.Context(), store.DefaultSeedUsers())
					if err != nil {
						return err
					}
					for _, r := range created {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.User.Username, r.Password)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop all tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(func(db *store.Store, log *zap.Logger) error {
					if err := db.Drop(cmd.Context()); err != nil {
						return err
					}
					log.Info("dropped tables")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, _ []string) {
				version.Print(cmd.OutOrStdout())
			},
		},
	)
	rootCmd.Version = version.String()
}

// withEnv loads the configuration and logger shared by every command.
func withEnv(fn func(cfg *config.Config, log *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	return fn(cfg, log)
}

func withStore(fn func(db *store.Store, log *zap.Logger) error) error {
	return withEnv(func(cfg *config.Config, log *zap.Logger) error {
		db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN, log.Named("store"))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return fn(db, log)
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
