package models

import (
	"time"

	"github.com/google/uuid"
)

// DividendUnit is the currency the dividend was paid in
type DividendUnit string

const (
	DividendUnitKRW DividendUnit = "KRW"
	DividendUnitUSD DividendUnit = "USD"
)

// Dividend represents a single dividend payment recorded by a user.
// UserID is the owning user; it is an authorization detail and is never
// serialized back to clients.
type Dividend struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"-"`
	PayDate   time.Time    `json:"date"`
	Name      string       `json:"name"`
	Unit      DividendUnit `json:"unit"`
	Dividend  float64      `json:"dividend"`
	Tax       float64      `json:"tax"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MonthlyStat is one row of the per-month, per-unit aggregation of a user's
// dividend history. Month is formatted as YYYY-MM.
type MonthlyStat struct {
	Month    string       `json:"date"`
	Unit     DividendUnit `json:"unit"`
	Dividend float64      `json:"dividend"`
	Tax      float64      `json:"tax"`
	Total    float64      `json:"total"`
}
