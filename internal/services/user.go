package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-authgate/passport-local/internal/auth"
	"github.com/go-authgate/passport-local/internal/cache"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds enforced on signup. bcrypt rejects passwords
// longer than 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

const userCacheKeyPrefix = "user:"

type UserService struct {
	store    *store.Store
	provider auth.Provider
	authMode string
	log      *zap.Logger

	userCache    cache.Cache[models.User]
	userCacheTTL time.Duration
	bcryptCost   int
}

// NewUserService wires the backend selected by authMode to the store.
// A nil cache disables caching of GetUserByID.
func NewUserService(
	s *store.Store,
	provider auth.Provider,
	authMode string,
	userCache cache.Cache[models.User],
	userCacheTTL time.Duration,
	log *zap.Logger,
) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	if userCache == nil {
		userCache = cache.NewMemoryCache[models.User]()
	}
	return &UserService{
		store:        s,
		provider:     provider,
		authMode:     authMode,
		log:          log,
		userCache:    userCache,
		userCacheTTL: userCacheTTL,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// AuthMode returns the configured verification backend.
func (s *UserService) AuthMode() string {
	return s.authMode
}

// Authenticate checks username and password with the configured backend and
// returns the matching database user. Users verified outside the database are
// created or refreshed on every successful login.
func (s *UserService) Authenticate(
	ctx context.Context,
	username, password string,
) (*models.User, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrAuthProviderFailed)
	}

	result, err := s.provider.Authenticate(ctx, username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAuthProviderFailed, s.provider.Name(), err)
	}
	if result == nil || !result.Success {
		return nil, ErrInvalidCredentials
	}

	if s.authMode == config.AuthModeLocal {
		user, err := s.store.GetUserByUsername(ctx, result.Username)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		return user, nil
	}

	return s.syncExternalUser(ctx, result)
}

// syncExternalUser creates or updates the local record of a user verified
// by the HTTP API or the users file.
func (s *UserService) syncExternalUser(
	ctx context.Context,
	result *auth.Result,
) (*models.User, error) {
	externalID := result.ExternalID
	if externalID == "" {
		externalID = result.Username
	}

	user, err := s.store.UpsertExternalUser(
		ctx,
		result.Username,
		externalID,
		s.authMode,
		result.Email,
		result.FullName,
	)
	if err != nil {
		s.log.Error("failed to sync external user",
			zap.String("username", result.Username),
			zap.String("source", s.authMode),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
	}

	role := models.RoleUser
	if result.Admin {
		role = models.RoleAdmin
	}
	if user.Role != role {
		user.Role = role
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
		}
	}

	s.invalidate(ctx, user.ID)
	return user, nil
}

// RegisterInput describes a new local account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Register creates a local account with a bcrypt password hash. The username
// defaults to the local part of the email address.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if s.authMode != config.AuthModeLocal {
		return nil, ErrSignupNotAllowed
	}

	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Name != "" {
		return nil, ErrInvalidEmail
	}
	email := strings.ToLower(addr.Address)

	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, ErrPasswordTooLong
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = email[:strings.IndexByte(email, '@')]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		FullName:     strings.TrimSpace(in.FullName),
		AuthSource:   models.AuthSourceLocal,
	}
	switch err := s.store.CreateUser(ctx, user); {
	case errors.Is(err, store.ErrUsernameConflict):
		return nil, ErrUsernameTaken
	case errors.Is(err, store.ErrEmailConflict):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// GetUserByID returns a user, served from the user cache when possible.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := cache.GetWithFetch(
		ctx,
		s.userCache,
		userCacheKeyPrefix+id,
		s.userCacheTTL,
		func(ctx context.Context, _ string) (models.User, error) {
			u, err := s.store.GetUserByID(ctx, id)
			if err != nil {
				return models.User{}, err
			}
			u.PasswordHash = ""
			return *u, nil
		},
	)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ListUsers returns one page of users for the admin listing.
func (s *UserService) ListUsers(
	ctx context.Context,
	params store.PaginationParams,
) ([]models.User, store.PaginationResult, error) {
	return s.store.ListUsers(ctx, params)
}

// SetRole changes a user's role and drops the cached copy.
func (s *UserService) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.invalidate(ctx, id)
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if err := s.userCache.Delete(ctx, userCacheKeyPrefix+id); err != nil {
		s.log.Warn("failed to invalidate user cache", zap.String("id", id), zap.Error(err))
	}
}
