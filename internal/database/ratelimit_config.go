package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoon/divtrack/internal/models"
)

const defaultRatelimitConfigKey = "default"

// RatelimitConfigRepository stores the API throttle rate. Like the CORS
// allowlist, the stored value is polled by a reloader so operators can
// loosen or tighten the limit at runtime.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get retrieves the default rate limit config.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`, defaultRatelimitConfigKey)
	c := &models.RatelimitConfig{}
	err := row.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	return c, nil
}

// Set upserts the default rate limit config. The rate must use the
// limiter "count-period" notation, e.g. "5-S" or "100-M"; a malformed
// value is rejected here so the reloader never picks up a rate the
// middleware cannot parse.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	if err := ValidateRate(rate); err != nil {
		return err
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, defaultRatelimitConfigKey, rate, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}

// ValidateRate checks the "count-period" rate notation accepted by the
// limiter middleware. Period is one of S, M, H or D.
func ValidateRate(rate string) error {
	parts := strings.SplitN(rate, "-", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid rate %q: expected count-period, e.g. 5-S", rate)
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil || count <= 0 {
		return fmt.Errorf("invalid rate %q: count must be a positive integer", rate)
	}
	switch strings.ToUpper(parts[1]) {
	case "S", "M", "H", "D":
		return nil
	default:
		return fmt.Errorf("invalid rate %q: period must be S, M, H or D", rate)
	}
}
