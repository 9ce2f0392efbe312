package token

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/passport-local/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-for-jwt-signing"
	testIssuer = "http://localhost:8080"
)

func testUser() *models.User {
	return &models.User{ID: "user-123", Username: "jack", Role: models.RoleAdmin}
}

func newTestProvider(t *testing.T, expiration time.Duration) *LocalTokenProvider {
	t.Helper()
	p, err := NewLocalTokenProvider(testSecret, testIssuer, expiration)
	require.NoError(t, err)
	return p
}

func TestNewLocalTokenProvider_RequiresSecret(t *testing.T) {
	_, err := NewLocalTokenProvider("", testIssuer, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLocalTokenProvider_RoundTrip(t *testing.T) {
	provider := newTestProvider(t, time.Hour)

	result, err := provider.GenerateToken(context.Background(), testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, result.TokenString)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)

	got, err := provider.ValidateToken(context.Background(), result.TokenString)
	require.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)
	assert.Equal(t, "user-123", got.UserID)
	assert.Equal(t, "jack", got.Username)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.WithinDuration(t, result.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestLocalTokenProvider_UniqueIDs(t *testing.T) {
	provider := newTestProvider(t, time.Hour)

	a, err := provider.GenerateToken(context.Background(), testUser())
	require.NoError(t, err)
	b, err := provider.GenerateToken(context.Background(), testUser())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.TokenString, b.TokenString)
}

func TestLocalTokenProvider_GenerateToken_NoUser(t *testing.T) {
	provider := newTestProvider(t, time.Hour)

	_, err := provider.GenerateToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTokenGeneration)
	_, err = provider.GenerateToken(context.Background(), &models.User{})
	assert.ErrorIs(t, err, ErrTokenGeneration)
}

func TestLocalTokenProvider_ValidateToken_Expired(t *testing.T) {
	provider := newTestProvider(t, -time.Minute)

	result, err := provider.GenerateToken(context.Background(), testUser())
	require.NoError(t, err)

	_, err = provider.ValidateToken(context.Background(), result.TokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestLocalTokenProvider_ValidateToken_Rejects(t *testing.T) {
	provider := newTestProvider(t, time.Hour)
	ctx := context.Background()

	otherSecret, err := NewLocalTokenProvider("another-secret", testIssuer, time.Hour)
	require.NoError(t, err)
	foreign, err := otherSecret.GenerateToken(ctx, testUser())
	require.NoError(t, err)

	otherIssuer, err := NewLocalTokenProvider(testSecret, "https://evil.example", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.GenerateToken(ctx, testUser())
	require.NoError(t, err)

	noneSigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"wrong secret", foreign.TokenString},
		{"wrong issuer", wrongIssuer.TokenString},
		{"alg none", noneSigned},
		{"other hmac", hs512},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.ValidateToken(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
