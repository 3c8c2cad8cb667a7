// Package token issues and verifies the signed bearer tokens used by the
// API. Two purposes exist: "access" tokens returned at login, and "verify"
// tokens embedded in email verification links.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/jmoon/divtrack/internal/models"
)

const (
	// PurposeAccess marks tokens that authenticate API requests.
	PurposeAccess = "access"
	// PurposeVerify marks single-use email verification tokens.
	PurposeVerify = "verify"

	purposeClaim = "purpose"
	emailClaim   = "email"
)

// Service signs and parses HS256 tokens with a shared secret.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewService creates a token service. ttl applies to access tokens;
// verification tokens use the same lifetime.
func NewService(secret, issuer string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	return &Service{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token for the given user and purpose.
func (s *Service) Issue(user *models.User, purpose string) (string, error) {
	if purpose != PurposeAccess && purpose != PurposeVerify {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(user.ID.String()).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim(emailClaim, user.Email).
		Claim(purposeClaim, purpose).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify parses and validates a signed token, requiring the given purpose.
// It returns the subject user ID and the email claim.
func (s *Service) Verify(ctx context.Context, raw, purpose string) (uuid.UUID, string, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithContext(ctx),
	)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("token validation failed: %w", err)
	}

	got, ok := tok.Get(purposeClaim)
	if !ok || got != purpose {
		return uuid.Nil, "", fmt.Errorf("token purpose mismatch")
	}

	userID, err := uuid.Parse(tok.Subject())
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid token subject: %w", err)
	}

	email, _ := tok.Get(emailClaim)
	emailStr, _ := email.(string)
	return userID, emailStr, nil
}
