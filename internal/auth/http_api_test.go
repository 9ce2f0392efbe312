package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-authgate/passport-local/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPProvider(t *testing.T, handler http.HandlerFunc) *HTTPAPIAuthProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	retryClient, err := client.CreateRetryClient(client.RetryOptions{
		AuthMode:      "none",
		AuthHeader:    "X-API-Secret",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return NewHTTPAPIAuthProvider(server.URL, retryClient)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPAPIAuthProvider_Success(t *testing.T) {
	provider := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req APIAuthRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "testuser" || req.Password != "password123" {
			writeJSON(w, http.StatusOK, APIAuthResponse{Success: false})
			return
		}
		writeJSON(w, http.StatusOK, APIAuthResponse{
			Success:  true,
			UserID:   "ext-user-123",
			Email:    "user@example.com",
			FullName: "Test User",
		})
	})

	result, err := provider.Authenticate(context.Background(), "testuser", "password123")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "testuser", result.Username)
	assert.Equal(t, "ext-user-123", result.ExternalID)
	assert.Equal(t, "user@example.com", result.Email)
	assert.Equal(t, "Test User", result.FullName)
	assert.Equal(t, "http_api", provider.Name())
}

func TestHTTPAPIAuthProvider_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{name: "success false", status: http.StatusOK, body: APIAuthResponse{Success: false}},
		{name: "success false with message", status: http.StatusOK, body: APIAuthResponse{Message: "locked"}},
		{name: "unauthorized", status: http.StatusUnauthorized, body: APIAuthResponse{Message: "bad password"}},
		{name: "forbidden without body", status: http.StatusForbidden, body: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := provider.Authenticate(context.Background(), "testuser", "wrong")
			assert.ErrorIs(t, err, ErrHTTPAPIAuthFailed)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestHTTPAPIAuthProvider_InvalidResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "missing user id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, APIAuthResponse{Success: true})
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, APIAuthResponse{Message: "malformed"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestHTTPProvider(t, tt.handler)

			_, err := provider.Authenticate(context.Background(), "testuser", "password123")
			assert.ErrorIs(t, err, ErrHTTPAPIInvalidResp)
			assert.NotErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestHTTPAPIAuthProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	provider := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, APIAuthResponse{Success: true, UserID: "u-1"})
	})

	result, err := provider.Authenticate(context.Background(), "testuser", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.ExternalID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPAPIAuthProvider_ConnectionError(t *testing.T) {
	retryClient, err := client.CreateRetryClient(client.RetryOptions{
		AuthMode:      "none",
		Timeout:       time.Second,
		MaxRetries:    0,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	provider := NewHTTPAPIAuthProvider("http://127.0.0.1:1/auth", retryClient)

	_, err = provider.Authenticate(context.Background(), "testuser", "password123")
	assert.ErrorIs(t, err, ErrHTTPAPIConnection)
}
