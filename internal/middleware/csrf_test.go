package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFMiddleware(t *testing.T) {
	r := setupTestRouter()
	r.Use(CSRFMiddleware())
	r.GET("/form", func(c *gin.Context) { c.String(http.StatusOK, GetCSRFToken(c)) })
	r.POST("/form", func(c *gin.Context) { c.String(http.StatusOK, "accepted") })

	// GET issues a token bound to the session cookie
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	require.NotEmpty(t, token)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := func(form url.Values, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post(url.Values{"csrf_token": {token}}, "").Code)
	assert.Equal(t, http.StatusOK, post(url.Values{}, token).Code)

	rejected := post(url.Values{"csrf_token": {"forged"}}, "")
	assert.Equal(t, http.StatusForbidden, rejected.Code)
	assert.Contains(t, rejected.Body.String(), "CSRF token validation failed")

	assert.Equal(t, http.StatusForbidden, post(url.Values{}, "").Code)
}

func TestCSRFMiddleware_NoSession(t *testing.T) {
	r := setupTestRouter()
	r.Use(CSRFMiddleware())
	r.POST("/form", func(c *gin.Context) { c.String(http.StatusOK, "accepted") })

	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader("csrf_token=guess"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
