package auth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	// HTTP API errors
	ErrHTTPAPIConnection  = errors.New("failed to connect to authentication API")
	ErrHTTPAPIAuthFailed  = fmt.Errorf("authentication API rejected credentials: %w", ErrInvalidCredentials)
	ErrHTTPAPIInvalidResp = errors.New("invalid response from authentication API")

	// Users file errors
	ErrUsersFile = errors.New("invalid users file")
)
