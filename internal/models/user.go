package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. PasswordHash is empty for OAuth-only
// accounts and is never serialized.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  *string   `json:"-"`
	Provider      *string   `json:"provider,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
