package token

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/models"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	svc, err := NewService("test-secret-please-rotate", "divtrack-test", ttl)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_EmptySecret(t *testing.T) {
	t.Parallel()
	if _, err := NewService("", "iss", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, time.Hour)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com"}

	raw, err := svc.Issue(user, PurposeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, email, err := svc.Verify(context.Background(), raw, PurposeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != user.ID {
		t.Errorf("subject = %v, want %v", userID, user.ID)
	}
	if email != user.Email {
		t.Errorf("email claim = %q, want %q", email, user.Email)
	}
}

func TestVerify_PurposeMismatch(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, time.Hour)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com"}

	raw, err := svc.Issue(user, PurposeVerify)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := svc.Verify(context.Background(), raw, PurposeAccess); err == nil {
		t.Error("expected error when verification token is used as access token")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuing := newTestService(t, time.Hour)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com"}
	raw, err := issuing.Issue(user, PurposeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewService("a-different-secret", "divtrack-test", time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, _, err := other.Verify(context.Background(), raw, PurposeAccess); err == nil {
		t.Error("expected signature validation failure with wrong secret")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, -time.Minute)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com"}
	raw, err := svc.Issue(user, PurposeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := svc.Verify(context.Background(), raw, PurposeAccess); err == nil {
		t.Error("expected validation failure for expired token")
	}
}

func TestIssue_UnknownPurpose(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, time.Hour)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com"}
	if _, err := svc.Issue(user, "refresh"); err == nil {
		t.Error("expected error for unsupported purpose")
	}
}
