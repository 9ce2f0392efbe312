package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrAuthProviderFailed = errors.New("authentication provider failed")
	ErrUserSyncFailed     = errors.New("failed to sync user from external provider")
	ErrUnsupportedUser    = errors.New("unsupported session user")

	ErrInvalidEmail     = errors.New("invalid email address")
	ErrWeakPassword     = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already taken")
	ErrSignupNotAllowed = errors.New("signup is only available with local authentication")
)
