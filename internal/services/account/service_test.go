package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/services/oauth"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := f.byEmail[user.Email]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint")
	}
	cp := *user
	f.byEmail[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := f.byEmail[user.Email]; !ok {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	cp := *user
	f.byEmail[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.EmailVerified = true
			return nil
		}
	}
	return fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func TestRegister_HashesPassword(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)

	user, err := svc.Register(context.Background(), "Dana@Example.com", "Dana", "hunter2-but-longer")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.Email != "dana@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if user.PasswordHash == nil {
		t.Fatal("expected a stored password hash")
	}
	if *user.PasswordHash == "hunter2-but-longer" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("hunter2-but-longer")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)

	if _, err := svc.Register(context.Background(), "dana@example.com", "Dana", "pw-first"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "DANA@example.com", "Other", "pw-second"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)
	registered, err := svc.Register(context.Background(), "dana@example.com", "Dana", "correct-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "dana@example.com", "correct-password")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if user.ID != registered.ID {
			t.Errorf("authenticated as wrong user")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Authenticate(context.Background(), "dana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthenticate_SocialOnlyAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)

	if _, err := svc.FindOrCreateByEmail(context.Background(), &oauth.Profile{
		Provider: "kakao",
		Email:    "social@example.com",
		Name:     "Social",
	}); err != nil {
		t.Fatalf("FindOrCreateByEmail: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "social@example.com", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for passwordless account, got %v", err)
	}
}

func TestFindOrCreateByEmail_ReusesExistingAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)

	local, err := svc.Register(context.Background(), "dana@example.com", "Dana", "some-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A social login with the same email must resolve to the same account.
	viaOAuth, err := svc.FindOrCreateByEmail(context.Background(), &oauth.Profile{
		Provider: "kakao",
		Email:    "Dana@Example.com",
		Name:     "Dana from Kakao",
	})
	if err != nil {
		t.Fatalf("FindOrCreateByEmail: %v", err)
	}

	if viaOAuth.ID != local.ID {
		t.Errorf("social login created a second account: %v vs %v", viaOAuth.ID, local.ID)
	}
	if len(repo.byEmail) != 1 {
		t.Errorf("expected exactly one stored account, got %d", len(repo.byEmail))
	}
}

func TestFindOrCreateByEmail_CreatesVerifiedAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)

	user, err := svc.FindOrCreateByEmail(context.Background(), &oauth.Profile{
		Provider: "google",
		Email:    "new@example.com",
		Name:     "New User",
	})
	if err != nil {
		t.Fatalf("FindOrCreateByEmail: %v", err)
	}

	if !user.EmailVerified {
		t.Error("expected provider-asserted email to be marked verified")
	}
	if user.PasswordHash != nil {
		t.Error("social account should have no password hash")
	}
	if user.Provider == nil || *user.Provider != "google" {
		t.Errorf("expected provider recorded, got %v", user.Provider)
	}
}

func TestFindOrCreateByEmail_MissingEmail(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeUserRepo())
	if _, err := svc.FindOrCreateByEmail(context.Background(), &oauth.Profile{Provider: "kakao"}); err == nil {
		t.Error("expected error for profile without email")
	}
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewService(repo)
	user, err := svc.Register(context.Background(), "dana@example.com", "Dana", "some-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.VerifyEmail(context.Background(), user.ID); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	stored, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.EmailVerified {
		t.Error("expected email_verified to be set")
	}

	if err := svc.VerifyEmail(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown user")
	}
}
