// Package account implements user registration, password login and the
// account-linking rule for social sign-in.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/services/oauth"
)

// Service manages user accounts.
type Service struct {
	users database.UserRepositoryInterface
}

// NewService creates an account service.
func NewService(users database.UserRepositoryInterface) *Service {
	return &Service{users: users}
}

// Register creates a local account with a bcrypt password hash. The email is
// normalized to lowercase before lookup and storage.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hash)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: &hashStr,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a password login. OAuth-only accounts have no password
// hash and always fail with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindOrCreateByEmail resolves a social sign-in profile to an account.
// An existing account with the same email is reused regardless of how it was
// originally created, so a returning social login never produces a duplicate
// account. New accounts are created without a password and with the email
// considered verified by the provider.
func (s *Service) FindOrCreateByEmail(ctx context.Context, profile *oauth.Profile) (*models.User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, fmt.Errorf("provider %s returned no email", profile.Provider)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	provider := profile.Provider
	user = &models.User{
		ID:            uuid.New(),
		Email:         email,
		Name:          profile.Name,
		Provider:      &provider,
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// VerifyEmail marks the account's email address as verified.
func (s *Service) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
