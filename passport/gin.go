package passport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// DefaultSessionKey holds the serialized user in the session.
	DefaultSessionKey = "passport_user"

	// ContextUserKey and ContextInfoKey hold the authenticated user and the
	// success info in the gin context.
	ContextUserKey = "passport.user"
	ContextInfoKey = "passport.info"

	// FlashError is the flash key used for failure messages.
	FlashError = "error"
)

// AuthenticateOptions controls how an outcome is turned into a response.
type AuthenticateOptions struct {
	BadRequestMessage string

	SuccessRedirect string
	FailureRedirect string
	// FailureFlash stores the failure message as an "error" flash.
	FailureFlash bool
	// NoSession skips establishing a login session on success.
	NoSession bool

	// Callback, when set, receives the outcome and owns the response.
	Callback func(c *gin.Context, out Outcome)
}

// Authenticate returns a gin middleware running the named strategy.
func (p *Passport) Authenticate(name string, opts AuthenticateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := NewRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
			return
		}

		out, err := p.Run(name, req, Options{BadRequestMessage: opts.BadRequestMessage})
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "server_error",
			})
			return
		}

		if opts.Callback != nil {
			opts.Callback(c, out)
			return
		}

		switch out.Kind {
		case KindSuccess:
			p.handleSuccess(c, out, opts)
		case KindFailure:
			p.handleFailure(c, out, opts)
		default:
			p.handleError(c, out)
		}
	}
}

func (p *Passport) handleSuccess(c *gin.Context, out Outcome, opts AuthenticateOptions) {
	c.Set(ContextInfoKey, out.Info)
	if opts.NoSession {
		c.Set(ContextUserKey, out.User)
	} else if err := p.Login(c, out.User); err != nil {
		p.handleError(c, Error(err))
		return
	}

	if opts.SuccessRedirect != "" {
		c.Redirect(http.StatusFound, opts.SuccessRedirect)
		c.Abort()
		return
	}
	c.Next()
}

func (p *Passport) handleFailure(c *gin.Context, out Outcome, opts AuthenticateOptions) {
	msg := out.Info.Message()

	if opts.FailureFlash && msg != "" {
		session := sessions.Default(c)
		session.AddFlash(msg, FlashError)
		if err := session.Save(); err != nil {
			p.logger.Warn("failed to save flash message", zap.Error(err))
		}
	}

	if opts.FailureRedirect != "" {
		c.Redirect(http.StatusFound, opts.FailureRedirect)
		c.Abort()
		return
	}

	status := out.Status
	if status == 0 {
		status = http.StatusUnauthorized
	}
	body := gin.H{"error": http.StatusText(status)}
	if msg != "" {
		body["message"] = msg
	}
	c.AbortWithStatusJSON(status, body)
}

func (p *Passport) handleError(c *gin.Context, out Outcome) {
	_ = c.Error(out.Err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "server_error",
	})
}

// Login establishes a login session for user and exposes it in the context.
func (p *Passport) Login(c *gin.Context, user any) error {
	if p.serialize == nil {
		return ErrNoSerializer
	}
	id, err := p.serialize(c.Request.Context(), user)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSerializer, err)
	}

	session := sessions.Default(c)
	session.Set(p.sessionKey, id)
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.Set(ContextUserKey, user)
	return nil
}

// Logout terminates the login session.
func (p *Passport) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(p.sessionKey)
	c.Set(ContextUserKey, nil)
	return session.Save()
}

// Session restores the logged-in user from the session on every request.
func (p *Passport) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(p.sessionKey).(string)
		if !ok || id == "" {
			c.Next()
			return
		}

		if p.deserialize == nil {
			_ = c.Error(ErrNoDeserializer)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		user, err := p.deserialize(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(fmt.Errorf("%w: %v", ErrNoDeserializer, err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if user == nil {
			p.logger.Debug("session user no longer exists", zap.String("id", id))
			session.Delete(p.sessionKey)
			_ = session.Save()
			c.Next()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// User returns the authenticated user, or nil.
func User(c *gin.Context) any {
	user, _ := c.Get(ContextUserKey)
	return user
}

// IsAuthenticated reports whether the request carries an authenticated user.
func IsAuthenticated(c *gin.Context) bool {
	return User(c) != nil
}

// Flashes pops the flash messages stored under key.
func Flashes(c *gin.Context, key string) []string {
	session := sessions.Default(c)
	raw := session.Flashes(key)
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()

	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AddFlash stores a flash message under key.
func AddFlash(c *gin.Context, key, msg string) error {
	session := sessions.Default(c)
	session.AddFlash(msg, key)
	return session.Save()
}

// IsUnknownStrategy reports whether err came from a missing registration.
func IsUnknownStrategy(err error) bool {
	return errors.Is(err, ErrUnknownStrategy)
}
