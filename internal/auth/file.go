package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-authgate/passport-local/internal/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// FileUser is one entry of the users file.
type FileUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Email        string `yaml:"email,omitempty"`
	FullName     string `yaml:"full_name,omitempty"`
	Admin        bool   `yaml:"admin,omitempty"`
}

type usersFile struct {
	Users []FileUser `yaml:"users"`
}

// FileAuthProvider checks credentials against a YAML users file:
//
//	users:
//	  - username: jack
//	    password_hash: $2a$10$...
//	    email: jack@example.com
//
// The file is re-read whenever it changes on disk once Watch is running.
type FileAuthProvider struct {
	path string
	log  *zap.Logger

	mu    sync.RWMutex
	users map[string]FileUser
}

// NewFileAuthProvider loads path and returns a provider serving its users.
func NewFileAuthProvider(path string, log *zap.Logger) (*FileAuthProvider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &FileAuthProvider{path: path, log: log}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadUsersFile parses a users file.
func LoadUsersFile(path string) (map[string]FileUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsersFile, err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUsersFile, path, err)
	}

	users := make(map[string]FileUser, len(f.Users))
	for i, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("%w: entry %d has no username", ErrUsersFile, i)
		}
		if _, dup := users[u.Username]; dup {
			return nil, fmt.Errorf("%w: duplicate username %q", ErrUsersFile, u.Username)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: user %q: password_hash is not a bcrypt hash", ErrUsersFile, u.Username)
		}
		users[u.Username] = u
	}
	return users, nil
}

// Reload re-reads the users file. On error the previous users stay in place.
func (p *FileAuthProvider) Reload() error {
	users, err := LoadUsersFile(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.users = users
	p.mu.Unlock()
	p.log.Info("loaded users file", zap.String("path", p.path), zap.Int("users", len(users)))
	return nil
}

// Watch reloads the file on every change until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (p *FileAuthProvider) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.path, err)
	}
	target := filepath.Clean(p.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := p.Reload(); err != nil {
				p.log.Warn("failed to reload users file, keeping previous users", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("users file watcher error", zap.Error(err))
		}
	}
}

// Authenticate verifies credentials against the loaded users.
func (p *FileAuthProvider) Authenticate(
	_ context.Context,
	username, password string,
) (*Result, error) {
	p.mu.RLock()
	u, ok := p.users[username]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Result{
		Username:   u.Username,
		ExternalID: u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Admin:      u.Admin,
		Success:    true,
	}, nil
}

// Len returns the number of loaded users.
func (p *FileAuthProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// Name returns provider name for logging
func (p *FileAuthProvider) Name() string {
	return models.AuthSourceFile
}
