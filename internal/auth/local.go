package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// UserFinder looks users up by username.
type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// LocalAuthProvider handles local database authentication
type LocalAuthProvider struct {
	users UserFinder
}

// NewLocalAuthProvider creates a new local authentication provider
func NewLocalAuthProvider(users UserFinder) *LocalAuthProvider {
	return &LocalAuthProvider{users: users}
}

// Authenticate verifies credentials against local database
func (p *LocalAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	user, err := p.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// users verified elsewhere have no local password
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Result{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Admin:    user.IsAdmin(),
		Success:  true,
	}, nil
}

// Name returns provider name for logging
func (p *LocalAuthProvider) Name() string {
	return models.AuthSourceLocal
}
