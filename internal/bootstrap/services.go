package bootstrap

import (
	"fmt"

	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/handlers"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/local"
	"github.com/go-authgate/passport-local/passport"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// initializePassport registers the login strategy and, when users may sign
// up, the signup strategy keyed on the email field.
func initializePassport(
	cfg *config.Config,
	userService *services.UserService,
	recorder metrics.Recorder,
	log *zap.Logger,
) (*passport.Passport, error) {
	p := passport.New(
		passport.WithLogger(log.Named("passport")),
		passport.WithRecorder(recorder),
		passport.WithTracerProvider(otel.GetTracerProvider()),
		passport.WithSerializer(userService.SerializeUser),
		passport.WithDeserializer(userService.DeserializeUser),
	)

	login, err := local.New(
		userService.LoginVerify(),
		local.WithName(handlers.StrategyLogin),
		local.WithUsernameField(cfg.UsernameField),
		local.WithPasswordField(cfg.PasswordField),
		local.WithLogger(log.Named("local")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login strategy: %w", err)
	}
	p.Use(login)

	if signupEnabled(cfg) {
		signup, err := local.NewWithRequest(
			userService.SignupVerify(),
			local.WithName(handlers.StrategySignup),
			local.WithUsernameField("email"),
			local.WithPasswordField("password"),
			local.WithLogger(log.Named("local-signup")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create signup strategy: %w", err)
		}
		p.Use(signup)
	}

	return p, nil
}

// signupEnabled reports whether accounts can be created through the site.
func signupEnabled(cfg *config.Config) bool {
	return cfg.AuthMode == config.AuthModeLocal
}
