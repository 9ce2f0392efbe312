package auth

import "context"

// Result describes a user whose credentials a Provider accepted.
type Result struct {
	Username   string
	ExternalID string // empty for database users
	Email      string
	FullName   string
	Admin      bool
	Success    bool
}

// Provider checks a username and password. A wrong username or password is
// reported as ErrInvalidCredentials (possibly wrapped); any other error means
// the check itself could not be carried out.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, username, password string) (*Result, error)
}
