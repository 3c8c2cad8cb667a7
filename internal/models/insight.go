package models

import (
	"time"

	"github.com/google/uuid"
)

// Insight is the cached natural-language summary of a user's dividend
// history, refreshed in the background by the insights worker.
type Insight struct {
	UserID      uuid.UUID `json:"-"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}
