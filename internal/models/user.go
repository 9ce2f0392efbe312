package models

import (
	"time"
)

// Role and auth source values
const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	AuthSourceLocal   = "local"
	AuthSourceHTTPAPI = "http_api"
	AuthSourceFile    = "file"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-"` // empty for users verified elsewhere
	Role         string `gorm:"not null;default:'user'"` // "admin" or "user"
	FullName     string

	// External authentication support
	ExternalID string `gorm:"index"`           // ID assigned by the external backend
	AuthSource string `gorm:"default:'local'"` // "local", "http_api" or "file"

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsExternal returns true if the user's password is checked outside the database
func (u *User) IsExternal() bool {
	return u.AuthSource != AuthSourceLocal && u.AuthSource != ""
}

// DisplayName prefers the full name over the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
