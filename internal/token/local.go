package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/passport-local/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalTokenProvider signs and verifies HS256 access tokens.
type LocalTokenProvider struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewLocalTokenProvider creates a provider. The issuer is usually the
// server's base URL.
func NewLocalTokenProvider(secret, issuer string, expiration time.Duration) (*LocalTokenProvider, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &LocalTokenProvider{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
	}, nil
}

// GenerateToken creates an access token for user.
func (p *LocalTokenProvider) GenerateToken(_ context.Context, user *models.User) (*Result, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrTokenGeneration)
	}

	now := time.Now()
	expiresAt := now.Add(p.expiration)
	id := uuid.New().String()

	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		ID:          id,
	}, nil
}

// ValidateToken verifies signature, issuer and expiry of tokenString.
func (p *LocalTokenProvider) ValidateToken(_ context.Context, tokenString string) (*ValidationResult, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &ValidationResult{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Name returns provider name for logging
func (p *LocalTokenProvider) Name() string {
	return "local"
}
