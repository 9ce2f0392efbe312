package middleware

import (
	"net/http"
	"net/url"

	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/templates"
	"github.com/go-authgate/passport-local/passport"

	"github.com/gin-gonic/gin"
)

// LoginPath is where RequireAuth sends anonymous visitors.
const LoginPath = "/login"

// RequireAuth is a middleware that requires the user to be logged in. It
// must run after passport's Session middleware.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			// Redirect to login with return URL
			redirectURL := c.Request.URL.RequestURI()
			c.Redirect(http.StatusFound, LoginPath+"?redirect="+url.QueryEscape(redirectURL))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is a middleware that requires the user to have admin role
// This middleware should be used after RequireAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			templates.RenderError(c, http.StatusForbidden, "Unauthorized access")
			return
		}
		if !user.IsAdmin() {
			templates.RenderError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user restored by passport, or nil.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := passport.User(c).(*models.User)
	return user
}
