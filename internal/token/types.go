package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants
const (
	TokenTypeBearer = "Bearer"
)

// Result is an issued access token.
type Result struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
	ID          string
}

// ValidationResult describes a token that passed verification.
type ValidationResult struct {
	ID        string
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// Claims are the JWT claims issued for a logged-in user.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
