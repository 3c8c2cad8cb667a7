package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/models"
)

// DividendRepository handles dividend database operations
type DividendRepository struct {
	db *DB
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(db *DB) *DividendRepository {
	return &DividendRepository{db: db}
}

// Create creates a new dividend record
func (r *DividendRepository) Create(ctx context.Context, d *models.Dividend) error {
	query := `
		INSERT INTO dividends (id, user_id, pay_date, name, unit, dividend, tax, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		d.ID,
		d.UserID,
		d.PayDate,
		d.Name,
		d.Unit,
		d.Dividend,
		d.Tax,
		now,
		now,
	).Scan(&d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create dividend: %w", err)
	}

	return nil
}

// GetByID retrieves a dividend by ID
func (r *DividendRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dividend, error) {
	d := &models.Dividend{}
	query := `
		SELECT id, user_id, pay_date, name, unit, dividend, tax, created_at, updated_at
		FROM dividends
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.UserID,
		&d.PayDate,
		&d.Name,
		&d.Unit,
		&d.Dividend,
		&d.Tax,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dividend not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend: %w", err)
	}

	return d, nil
}

// ListByUserPaginated retrieves the user's dividends with pay_date in
// [from, to), ordered ascending by pay_date, with offset/limit pagination.
// Returns the page of records and the total count of matching records.
func (r *DividendRepository) ListByUserPaginated(ctx context.Context, userID uuid.UUID, from, to time.Time, page, perPage int) ([]*models.Dividend, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	countQuery := `
		SELECT COUNT(*)
		FROM dividends
		WHERE user_id = $1 AND pay_date >= $2 AND pay_date < $3
	`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID, from, to).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dividends: %w", err)
	}

	query := `
		SELECT id, user_id, pay_date, name, unit, dividend, tax, created_at, updated_at
		FROM dividends
		WHERE user_id = $1 AND pay_date >= $2 AND pay_date < $3
		ORDER BY pay_date ASC
		LIMIT $4 OFFSET $5
	`

	offset := (page - 1) * perPage
	rows, err := r.db.QueryContext(ctx, query, userID, from, to, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query dividends: %w", err)
	}
	defer rows.Close()

	var dividends []*models.Dividend
	for rows.Next() {
		d := &models.Dividend{}
		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.PayDate,
			&d.Name,
			&d.Unit,
			&d.Dividend,
			&d.Tax,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan dividend: %w", err)
		}
		dividends = append(dividends, d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating dividends: %w", err)
	}

	return dividends, total, nil
}

// UpdateOwned updates a dividend record conditioned on ownership. The
// WHERE clause matches both id and user_id so a record can never be
// mutated by a non-owner, even if it was reassigned between the caller's
// ownership check and this statement.
func (r *DividendRepository) UpdateOwned(ctx context.Context, d *models.Dividend) error {
	query := `
		UPDATE dividends
		SET pay_date = $3, name = $4, unit = $5, dividend = $6, tax = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		d.ID,
		d.UserID,
		d.PayDate,
		d.Name,
		d.Unit,
		d.Dividend,
		d.Tax,
		now,
	).Scan(&d.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("dividend not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	return nil
}

// DeleteOwned hard-deletes a dividend record conditioned on ownership
func (r *DividendRepository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM dividends WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("dividend not found: %w", sql.ErrNoRows)
	}

	return nil
}

// MonthlyStatistics aggregates the user's entire dividend history by
// (month, unit) in the database: sum of gross amounts, sum of tax, and
// net, ordered ascending by month. The grouping key is the pay_date
// truncated to month and formatted YYYY-MM in UTC.
func (r *DividendRepository) MonthlyStatistics(ctx context.Context, userID uuid.UUID) ([]*models.MonthlyStat, error) {
	query := `
		SELECT to_char(pay_date AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
		       unit,
		       COALESCE(SUM(dividend), 0),
		       COALESCE(SUM(tax), 0),
		       COALESCE(SUM(dividend), 0) - COALESCE(SUM(tax), 0) AS total
		FROM dividends
		WHERE user_id = $1
		GROUP BY month, unit
		ORDER BY month ASC, unit ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	var stats []*models.MonthlyStat
	for rows.Next() {
		s := &models.MonthlyStat{}
		if err := rows.Scan(&s.Month, &s.Unit, &s.Dividend, &s.Tax, &s.Total); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics: %w", err)
	}

	return stats, nil
}
