package bootstrap

import (
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/handlers"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/internal/token"
	"github.com/go-authgate/passport-local/passport"

	"go.uber.org/zap"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth    *handlers.AuthHandler
	account *handlers.AccountHandler
	api     *handlers.APIHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	p *passport.Passport,
	userService *services.UserService,
	tokens *token.LocalTokenProvider,
	recorder metrics.Recorder,
	log *zap.Logger,
) handlerSet {
	return handlerSet{
		auth: handlers.NewAuthHandler(p, recorder, handlers.AuthOptions{
			BaseURL:           cfg.BaseURL,
			UsernameField:     cfg.UsernameField,
			PasswordField:     cfg.PasswordField,
			BadRequestMessage: cfg.BadRequestMessage,
			SignupEnabled:     signupEnabled(cfg),
		}, log.Named("auth")),
		account: handlers.NewAccountHandler(userService, log.Named("account")),
		api:     handlers.NewAPIHandler(p, userService, tokens, recorder, cfg.BadRequestMessage),
	}
}
