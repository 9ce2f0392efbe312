package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/middleware"
	"github.com/go-authgate/passport-local/internal/templates"
	"github.com/go-authgate/passport-local/passport"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Registered strategy names.
const (
	StrategyLogin  = "local"
	StrategySignup = "local-signup"
)

// FlashInfo is the flash key for informational messages.
const FlashInfo = "info"

const defaultLandingPath = "/account"

// AuthOptions are the form settings shared by the login pages.
type AuthOptions struct {
	BaseURL           string
	UsernameField     string
	PasswordField     string
	BadRequestMessage string
	SignupEnabled     bool
}

type AuthHandler struct {
	passport *passport.Passport
	metrics  metrics.Recorder
	opts     AuthOptions
	log      *zap.Logger
}

func NewAuthHandler(
	p *passport.Passport,
	m metrics.Recorder,
	opts AuthOptions,
	log *zap.Logger,
) *AuthHandler {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{passport: p, metrics: m, opts: opts, log: log}
}

// LoginPage renders the login page
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, defaultLandingPath)
		return
	}

	redirectTo := c.Query("redirect")
	if !isRedirectSafe(redirectTo, h.opts.BaseURL) {
		redirectTo = ""
	}

	templates.RenderTempl(c, http.StatusOK, templates.LoginPage(templates.LoginPageProps{
		BaseProps:     templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
		Errors:        passport.Flashes(c, passport.FlashError),
		Notices:       passport.Flashes(c, FlashInfo),
		Redirect:      redirectTo,
		UsernameField: h.opts.UsernameField,
		PasswordField: h.opts.PasswordField,
		SignupEnabled: h.opts.SignupEnabled,
	}))
}

// Login runs the login strategy and decides the response itself, so the
// redirect target survives a failed attempt.
func (h *AuthHandler) Login() gin.HandlerFunc {
	return h.passport.Authenticate(StrategyLogin, passport.AuthenticateOptions{
		BadRequestMessage: h.opts.BadRequestMessage,
		Callback:          h.loginCallback,
	})
}

func (h *AuthHandler) loginCallback(c *gin.Context, out passport.Outcome) {
	redirectTo := c.Query("redirect")

	switch out.Kind {
	case passport.KindSuccess:
		if err := h.passport.Login(c, out.User); err != nil {
			_ = c.Error(err)
			templates.RenderError(c, http.StatusInternalServerError, "Failed to create session")
			return
		}
		c.Redirect(http.StatusFound, safeRedirect(redirectTo, defaultLandingPath, h.opts.BaseURL))

	case passport.KindFailure:
		if msg := out.Info.Message(); msg != "" {
			if err := passport.AddFlash(c, passport.FlashError, msg); err != nil {
				h.log.Warn("failed to save flash message", zap.Error(err))
			}
		}
		target := "/login"
		if redirectTo != "" && isRedirectSafe(redirectTo, h.opts.BaseURL) {
			target += "?redirect=" + url.QueryEscape(redirectTo)
		}
		c.Redirect(http.StatusFound, target)

	default:
		_ = c.Error(out.Err)
		templates.RenderError(c, http.StatusInternalServerError, "Sign in is temporarily unavailable.")
	}
}

// SignupPage renders the registration form
func (h *AuthHandler) SignupPage(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, defaultLandingPath)
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.SignupPage(templates.SignupPageProps{
		BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
		Errors:    passport.Flashes(c, passport.FlashError),
	}))
}

// Signup runs the signup strategy with flash-and-redirect on failure. On
// success the new user is logged in and SignupComplete runs next.
func (h *AuthHandler) Signup() gin.HandlerFunc {
	return h.passport.Authenticate(StrategySignup, passport.AuthenticateOptions{
		BadRequestMessage: "Please enter an email address and a password.",
		FailureRedirect:   "/signup",
		FailureFlash:      true,
	})
}

// SignupComplete greets the freshly registered user.
func (h *AuthHandler) SignupComplete(c *gin.Context) {
	if info, ok := c.Get(passport.ContextInfoKey); ok {
		if info, ok := info.(passport.Info); ok && info.Message() != "" {
			_ = passport.AddFlash(c, FlashInfo, info.Message())
		}
	}
	c.Redirect(http.StatusFound, defaultLandingPath)
}

// Logout clears the login session and redirects to login
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.passport.Logout(c); err != nil {
		_ = c.Error(err)
		templates.RenderError(c, http.StatusInternalServerError, "Failed to save session")
		return
	}
	h.metrics.RecordLogout()
	_ = passport.AddFlash(c, FlashInfo, "You have been signed out.")
	c.Redirect(http.StatusFound, "/login")
}
