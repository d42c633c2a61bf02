// Package identity supplies the owner key for each request and the
// minimal login check used in corporate mode.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// The two accounts seeded at first run.
const (
	seedAdminUser = "admin"
	seedAdminPass = "admin123"
	seedPlainUser = "user"
	seedPlainPass = "user123"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Service verifies credentials and manages login accounts against the
// users table.
type Service struct {
	repo *storage.Repository
}

func NewService(repo *storage.Repository) *Service {
	return &Service{repo: repo}
}

// EnsureSeedUsers creates the fixed admin/user pair when the users table
// is empty. Re-running on a populated table does nothing.
func (s *Service) EnsureSeedUsers(ctx context.Context) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("check existing users: %w", err)
	}
	if n > 0 {
		return nil
	}

	if err := s.CreateUser(ctx, seedAdminUser, seedAdminPass, RoleAdmin); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if err := s.CreateUser(ctx, seedPlainUser, seedPlainPass, RoleUser); err != nil {
		return fmt.Errorf("seed default user: %w", err)
	}

	slog.InfoContext(ctx, "Seeded default accounts", "users", 2)
	return nil
}

// CreateUser registers a new account with a bcrypt password hash.
// Duplicate usernames surface as core.ErrUsernameTaken.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, username, string(hash), role)
}

// VerifyCredentials checks a username/password pair. It returns a nil
// user for an unknown name or wrong password; an error only means a
// storage failure. Unknown name and wrong password are deliberately
// indistinguishable.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*core.User, error) {
	stored, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}

	return &core.User{ID: stored.ID, Username: stored.Username, Role: stored.Role}, nil
}
