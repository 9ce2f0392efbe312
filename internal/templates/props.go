package templates

import (
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/store"
)

// BaseProps contains common properties shared across all pages
type BaseProps struct {
	CSRFToken string
}

// NavbarProps contains properties for the navigation bar
type NavbarProps struct {
	Username   string
	IsAdmin    bool
	ActiveLink string // "account", "users"
}

// PaginationProps contains properties for pagination component
type PaginationProps struct {
	Pagination  store.PaginationResult
	BaseURL     string
	QueryParams map[string]string
}

// ===== Page Props Structures =====

// ErrorPageProps contains properties for the error page
type ErrorPageProps struct {
	BaseProps
	Error   string
	Message string
}

// LoginPageProps contains properties for the login page
type LoginPageProps struct {
	BaseProps
	Errors        []string
	Notices       []string
	Redirect      string
	UsernameField string
	PasswordField string
	SignupEnabled bool
}

// SignupPageProps contains properties for the signup page
type SignupPageProps struct {
	BaseProps
	Errors []string
}

// AccountPageProps contains properties for the account page
type AccountPageProps struct {
	BaseProps
	NavbarProps
	User    *models.User
	Notices []string
}

// UsersPageProps contains properties for the admin users page
type UsersPageProps struct {
	BaseProps
	NavbarProps
	Users      []models.User
	Pagination store.PaginationResult
	Search     string
	PageSize   int
}
