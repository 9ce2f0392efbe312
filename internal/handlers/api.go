package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/middleware"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/internal/token"
	"github.com/go-authgate/passport-local/passport"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	passport    *passport.Passport
	userService *services.UserService
	tokens      *token.LocalTokenProvider
	metrics     metrics.Recorder
	badRequest  string
}

func NewAPIHandler(
	p *passport.Passport,
	us *services.UserService,
	tokens *token.LocalTokenProvider,
	m metrics.Recorder,
	badRequestMessage string,
) *APIHandler {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &APIHandler{
		passport:    p,
		userService: us,
		tokens:      tokens,
		metrics:     m,
		badRequest:  badRequestMessage,
	}
}

// Authenticate runs the login strategy without a session. Failures are
// answered with JSON by passport; on success IssueToken runs next.
func (h *APIHandler) Authenticate() gin.HandlerFunc {
	return h.passport.Authenticate(StrategyLogin, passport.AuthenticateOptions{
		BadRequestMessage: h.badRequest,
		NoSession:         true,
	})
}

// IssueToken answers a successful API login with a bearer token
func (h *APIHandler) IssueToken(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	start := time.Now()
	result, err := h.tokens.GenerateToken(c.Request.Context(), user)
	if err != nil {
		h.metrics.RecordTokenIssued(false, 0)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	h.metrics.RecordTokenIssued(true, time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"access_token": result.TokenString,
		"token_type":   result.TokenType,
		"expires_in":   int(time.Until(result.ExpiresAt).Seconds()),
	})
}

// Me returns the user identified by the bearer token
func (h *APIHandler) Me(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Bearer token required"})
		return
	}

	claims, err := h.tokens.ValidateToken(c.Request.Context(), raw)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, token.ErrExpiredToken) {
			msg = "Token expired"
		}
		c.Header("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": msg})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), claims.UserID)
	if errors.Is(err, services.ErrUserNotFound) {
		c.Header("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": "User no longer exists"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"full_name":   user.FullName,
		"role":        user.Role,
		"auth_source": user.AuthSource,
	})
}
