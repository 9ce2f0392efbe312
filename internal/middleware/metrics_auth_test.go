package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testToken = "test-secret-token-123"

func TestMetricsAuthMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		header        string
		wantCode      int
		wantMsg       string
		wantChallenge bool
	}{
		{name: "no token configured", token: "", wantCode: http.StatusOK},
		{name: "valid token", token: testToken, header: "Bearer " + testToken, wantCode: http.StatusOK},
		{name: "missing header", token: testToken, wantCode: http.StatusUnauthorized, wantMsg: "Bearer token required", wantChallenge: true},
		{name: "basic scheme", token: testToken, header: "Basic dXNlcjpwYXNz", wantCode: http.StatusUnauthorized, wantMsg: "Bearer token required", wantChallenge: true},
		{name: "empty bearer", token: testToken, header: "Bearer ", wantCode: http.StatusUnauthorized, wantMsg: "Bearer token required", wantChallenge: true},
		{name: "wrong token", token: testToken, header: "Bearer wrong", wantCode: http.StatusUnauthorized, wantMsg: "Invalid token", wantChallenge: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(MetricsAuthMiddleware(tt.token))
			r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "metrics") })

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, w.Body.String(), tt.wantMsg)
			}
			if tt.wantChallenge {
				assert.Equal(t, `Bearer realm="Metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
