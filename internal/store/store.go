package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/passport-local/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// New opens the database and migrates the schema.
func New(driver, dsn string, log *zap.Logger) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if dsn == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// newGormLogger writes gorm's warnings through zap. Missed lookups are a
// normal result of login and signup checks and are not logged.
func newGormLogger(log *zap.Logger) logger.Interface {
	writer, err := zap.NewStdLogAt(log.Named("gorm"), zap.WarnLevel)
	if err != nil {
		writer = zap.NewStdLog(log.Named("gorm"))
	}
	return logger.New(
		writer,
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// SeedUser describes a user created by Seed. An empty password is replaced
// by a random one.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

// SeedResult reports a created user and the plain password it was given.
type SeedResult struct {
	User     *models.User
	Password string
}

// DefaultSeedUsers are created by the seed command.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{Username: "admin", Email: "admin@example.com", Admin: true},
		{Username: "bob", Email: "bob@example.com"},
	}
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// Seed creates the given users, skipping usernames that already exist.
func (s *Store) Seed(ctx context.Context, users []SeedUser) ([]SeedResult, error) {
	var created []SeedResult
	for _, su := range users {
		_, err := s.GetUserByUsername(ctx, su.Username)
		if err == nil {
			s.log.Info("seed user exists, skipping", zap.String("username", su.Username))
			continue
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return created, err
		}

		password := su.Password
		if password == "" {
			if password, err = generateRandomPassword(16); err != nil {
				return created, err
			}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return created, err
		}

		role := models.RoleUser
		if su.Admin {
			role = models.RoleAdmin
		}
		user := &models.User{
			ID:           uuid.New().String(),
			Username:     su.Username,
			Email:        su.Email,
			PasswordHash: string(hash),
			Role:         role,
			AuthSource:   models.AuthSourceLocal,
		}
		if err := s.CreateUser(ctx, user); err != nil {
			return created, err
		}
		s.log.Info("seeded user", zap.String("username", user.Username), zap.String("role", role))
		created = append(created, SeedResult{User: user, Password: password})
	}
	return created, nil
}

// SeedIfEmpty creates the default admin when the users table is empty.
func (s *Store) SeedIfEmpty(ctx context.Context) ([]SeedResult, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	return s.Seed(ctx, DefaultSeedUsers()[:1])
}

// Drop removes all tables owned by the store.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.WithContext(ctx).Migrator().DropTable(&models.User{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// User operations
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CreateUser inserts user, reporting username or email clashes as conflicts.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	// email first: a username derived from a registered email clashes too
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return ErrEmailConflict
	} else if !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return ErrUsernameConflict
	} else if !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}

// ListUsers returns one page of users ordered by username, filtered by a
// username or email substring.
func (s *Store) ListUsers(
	ctx context.Context,
	params PaginationParams,
) ([]models.User, PaginationResult, error) {
	search := func(db *gorm.DB) *gorm.DB {
		if params.Search == "" {
			return db
		}
		like := "%" + strings.ToLower(params.Search) + "%"
		return db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Scopes(search).
		Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)
	var users []models.User
	if err := s.db.WithContext(ctx).
		Scopes(search).
		Order("username ASC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&users).Error; err != nil {
		return nil, PaginationResult{}, err
	}
	return users, pagination, nil
}

// CountUsers counts users with the given auth source; an empty source counts
// every user.
func (s *Store) CountUsers(ctx context.Context, authSource string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if authSource != "" {
		q = q.Where("auth_source = ?", authSource)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// UpsertExternalUser creates or updates a user verified by an external backend
func (s *Store) UpsertExternalUser(
	ctx context.Context,
	username, externalID, authSource, email, fullName string,
) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User

	err := db.Where("external_id = ? AND auth_source = ?", externalID, authSource).
		First(&user).
		Error

	if err == nil {
		if user.Username != username {
			var conflictingUser models.User
			conflictErr := db.Where("username = ? AND id != ?", username, user.ID).
				First(&conflictingUser).
				Error
			if conflictErr == nil {
				return nil, ErrUsernameConflict
			}
			if !errors.Is(conflictErr, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check username: %w", conflictErr)
			}
		}

		user.Username = username
		if email != "" {
			user.Email = email
		}
		user.FullName = fullName
		if err := db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update external user: %w", err)
		}
		return &user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query external user: %w", err)
	}

	if email == "" {
		email = fmt.Sprintf("%s@%s.local", username, authSource)
	}
	user = models.User{
		ID:         uuid.New().String(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Role:       models.RoleUser,
		ExternalID: externalID,
		AuthSource: authSource,
	}
	if err := s.CreateUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
