package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/services"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginPage(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	w := b.get("/login?redirect=/admin/users")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="username"`)
	assert.Contains(t, body, `name="password"`)
	assert.Contains(t, body, url.QueryEscape("/admin/users"))
	assert.Contains(t, body, `href="/signup"`)

	w = b.get("/login?redirect=//evil.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "evil.com")
}

func TestLogin_Success(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "jack", "secret-pass", models.RoleUser)
	b := app.browser(t)

	b.login("jack", "secret-pass")

	w := b.get("/account")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jack")

	// a logged-in user skips the login page
	w = b.get("/login")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, defaultLandingPath, w.Header().Get("Location"))

	assert.Equal(t, 1.0, testutil.ToFloat64(
		app.metrics.AuthAttemptsTotal.WithLabelValues(StrategyLogin, "success")))
}

func TestLogin_Redirect(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "jack", "secret-pass", models.RoleUser)

	tests := []struct {
		name     string
		redirect string
		want     string
	}{
		{"safe target", "/admin/users", "/admin/users"},
		{"external target", "https://evil.com", defaultLandingPath},
		{"protocol relative", "//evil.com", defaultLandingPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := app.browser(t)
			w := b.postForm("/login?redirect="+url.QueryEscape(tt.redirect), url.Values{
				"username": {"jack"},
				"password": {"secret-pass"},
			})
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Location"))
		})
	}
}

func TestLogin_Failure(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "jack", "secret-pass", models.RoleUser)

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "wrong password",
			form:    url.Values{"username": {"jack"}, "password": {"nope"}},
			message: services.MessageInvalidCredentials,
		},
		{
			name:    "unknown user",
			form:    url.Values{"username": {"jill"}, "password": {"secret-pass"}},
			message: services.MessageInvalidCredentials,
		},
		{
			name:    "missing password",
			form:    url.Values{"username": {"jack"}},
			message: "Missing credentials",
		},
		{
			name:    "empty username",
			form:    url.Values{"username": {""}, "password": {"secret-pass"}},
			message: "Missing credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := app.browser(t)

			w := b.postForm("/login?redirect=%2Faccount", tt.form)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login?redirect=%2Faccount", w.Header().Get("Location"))

			w = b.get("/login?redirect=%2Faccount")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)

			// flashes are shown once
			w = b.get("/login")
			assert.NotContains(t, w.Body.String(), tt.message)

			w = b.get("/account")
			assert.Equal(t, http.StatusFound, w.Code)
		})
	}
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	w := b.get("/signup")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="email"`)

	w = b.postForm("/signup", url.Values{
		"email":     {"Jill@Example.com"},
		"password":  {"long-enough"},
		"full_name": {"Jill Doe"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, defaultLandingPath, w.Header().Get("Location"))

	w = b.get("/account")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, services.MessageRegistered)
	assert.Contains(t, body, "jill@example.com")
	assert.Contains(t, body, "Jill Doe")
}

func TestSignup_Failure(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "jack", "secret-pass", models.RoleUser)

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "missing fields",
			form:    url.Values{"email": {"new@example.com"}},
			message: "Please enter an email address and a password.",
		},
		{
			name:    "email taken",
			form:    url.Values{"email": {"jack@example.com"}, "password": {"long-enough"}},
			message: services.MessageEmailTaken,
		},
		{
			name:    "username taken",
			form:    url.Values{"email": {"other@example.com"}, "username": {"jack"}, "password": {"long-enough"}},
			message: services.MessageUsernameTaken,
		},
		{
			name:    "invalid email",
			form:    url.Values{"email": {"not-an-email"}, "password": {"long-enough"}},
			message: services.MessageInvalidEmail,
		},
		{
			name:    "weak password",
			form:    url.Values{"email": {"new@example.com"}, "password": {"short"}},
			message: services.MessageWeakPassword,
		},
		{
			name:    "password too long",
			form:    url.Values{"email": {"new@example.com"}, "password": {strings.Repeat("x", 80)}},
			message: services.MessagePasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := app.browser(t)

			w := b.postForm("/signup", tt.form)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/signup", w.Header().Get("Location"))

			w = b.get("/signup")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "jack", "secret-pass", models.RoleUser)
	b := app.browser(t)
	b.login("jack", "secret-pass")

	w := b.get("/logout")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = b.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have been signed out.")

	w = b.get("/account")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login?redirect=")

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.LogoutsTotal))
}
