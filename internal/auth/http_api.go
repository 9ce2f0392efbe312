package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	retry "github.com/appleboy/go-httpretry"

	"github.com/go-authgate/passport-local/internal/models"
)

// HTTPAPIAuthProvider delegates the credential check to an external HTTP API
type HTTPAPIAuthProvider struct {
	url         string
	retryClient *retry.Client
}

// NewHTTPAPIAuthProvider creates a new HTTP API authentication provider
func NewHTTPAPIAuthProvider(url string, retryClient *retry.Client) *HTTPAPIAuthProvider {
	return &HTTPAPIAuthProvider{
		url:         url,
		retryClient: retryClient,
	}
}

// APIAuthRequest is the request payload sent to external API
type APIAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIAuthResponse is the expected response from external API
type APIAuthResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Authenticate verifies credentials against external HTTP API. A 401 or 403
// answer, or success=false, rejects the credentials; other non-2xx answers
// are errors.
func (p *HTTPAPIAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	jsonData, err := json.Marshal(APIAuthRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.retryClient.Post(
		ctx,
		p.url,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrHTTPAPIInvalidResp)
	}

	var authResp APIAuthResponse
	jsonErr := json.Unmarshal(body, &authResp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if jsonErr == nil && authResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrHTTPAPIAuthFailed, authResp.Message)
		}
		return nil, ErrHTTPAPIAuthFailed
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if jsonErr == nil && authResp.Message != "" {
			return nil, fmt.Errorf("%w: HTTP %d - %s",
				ErrHTTPAPIInvalidResp, resp.StatusCode, authResp.Message)
		}
		// Limit body preview to 200 characters to avoid overwhelming logs
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf("%w: HTTP %d - %s",
			ErrHTTPAPIInvalidResp, resp.StatusCode, bodyPreview)
	case jsonErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIInvalidResp, jsonErr)
	}

	if !authResp.Success {
		if authResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrHTTPAPIAuthFailed, authResp.Message)
		}
		return nil, ErrHTTPAPIAuthFailed
	}

	if authResp.UserID == "" {
		return nil, fmt.Errorf(
			"%w: external API returned success=true but missing user_id",
			ErrHTTPAPIInvalidResp,
		)
	}

	return &Result{
		Username:   username,
		ExternalID: authResp.UserID,
		Email:      authResp.Email,
		FullName:   authResp.FullName,
		Admin:      authResp.Admin,
		Success:    true,
	}, nil
}

// Name returns provider name for logging
func (p *HTTPAPIAuthProvider) Name() string {
	return models.AuthSourceHTTPAPI
}
