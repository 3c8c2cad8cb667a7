package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/models"
)

// InsightRepository handles cached insight summaries in the database.
type InsightRepository struct {
	db *DB
}

// NewInsightRepository creates a new insight repository.
func NewInsightRepository(db *DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// GetByUserID retrieves the cached insight for a user.
func (r *InsightRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Insight, error) {
	in := &models.Insight{}
	query := `
		SELECT user_id, summary, generated_at
		FROM user_insights
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&in.UserID, &in.Summary, &in.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("insight not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}

	return in, nil
}

// Set upserts the cached insight for a user.
func (r *InsightRepository) Set(ctx context.Context, in *models.Insight) error {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_insights (user_id, summary, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			generated_at = EXCLUDED.generated_at
	`, in.UserID, in.Summary, in.GeneratedAt)
	if err != nil {
		return fmt.Errorf("set insight: %w", err)
	}
	return nil
}
