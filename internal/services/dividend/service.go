package dividend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/validation"
)

const (
	// DefaultPage is the default page number for listing
	DefaultPage = 1
	// DefaultPerPage is the default page size for listing
	DefaultPerPage = 10
	// MaxPerPage is the maximum page size for listing
	MaxPerPage = 100
)

// Service owns the dividend resource: create, list, update, delete and
// the monthly statistics aggregation, all scoped to the calling user.
type Service struct {
	repo database.DividendRepositoryInterface
}

// NewService creates a new dividend service
func NewService(repo database.DividendRepositoryInterface) *Service {
	return &Service{repo: repo}
}

// CreateInput is the payload for creating a dividend record
type CreateInput struct {
	Date     string
	Name     string
	Unit     models.DividendUnit
	Dividend float64
	Tax      *float64
}

// Create persists a new dividend record owned by userID. The date is
// normalized to a UTC instant and a missing tax defaults to 0. The new
// record's identifier is not returned; callers re-list to discover it.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) error {
	payDate, err := validation.ParseDate(in.Date)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, in.Date)
	}

	tax := 0.0
	if in.Tax != nil {
		tax = *in.Tax
	}

	d := &models.Dividend{
		ID:       uuid.New(),
		UserID:   userID,
		PayDate:  payDate,
		Name:     in.Name,
		Unit:     in.Unit,
		Dividend: in.Dividend,
		Tax:      tax,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return fmt.Errorf("failed to create dividend: %w", err)
	}

	return nil
}

// ListQuery holds the listing parameters. Date is an optional reference
// date; the listing is scoped to its calendar month.
type ListQuery struct {
	Date    string
	Page    int
	PerPage int
}

// PageMeta is the pagination metadata returned alongside a listing page
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// List returns the caller's dividends within the reference date's month,
// ordered ascending by date, with offset/limit pagination. The owning-user
// field is zeroed on every returned record.
func (s *Service) List(ctx context.Context, userID uuid.UUID, q ListQuery) ([]*models.Dividend, *PageMeta, error) {
	ref := time.Now().UTC()
	if q.Date != "" {
		parsed, err := validation.ParseDate(q.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidDate, q.Date)
		}
		ref = parsed
	}

	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	from, to := monthWindow(ref)
	dividends, total, err := s.repo.ListByUserPaginated(ctx, userID, from, to, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list dividends: %w", err)
	}

	for _, d := range dividends {
		d.UserID = uuid.Nil
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	meta := &PageMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	return dividends, meta, nil
}

// UpdateInput is the partial payload for updating a dividend record.
// Nil fields are left unchanged.
type UpdateInput struct {
	Date     *string
	Name     *string
	Unit     *models.DividendUnit
	Dividend *float64
	Tax      *float64
}

// Update applies a partial update to a record after the ownership check.
// A date field is applied only when it parses; an unparseable date is
// ignored, matching the original contract. The mutation itself is
// conditional on ownership so a concurrent reassignment cannot slip
// through between the check and the write.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get dividend: %w", err)
	}

	if !ownedBy(d, userID) {
		return ErrForbidden
	}

	if in.Date != nil {
		if payDate, err := validation.ParseDate(*in.Date); err == nil {
			d.PayDate = payDate
		}
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Unit != nil {
		d.Unit = *in.Unit
	}
	if in.Dividend != nil {
		d.Dividend = *in.Dividend
	}
	if in.Tax != nil {
		d.Tax = *in.Tax
	}

	if err := s.repo.UpdateOwned(ctx, d); err != nil {
		// The record vanished between the check and the write
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	return nil
}

// Delete hard-deletes a record after the ownership check
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get dividend: %w", err)
	}

	if !ownedBy(d, userID) {
		return ErrForbidden
	}

	if err := s.repo.DeleteOwned(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	return nil
}

// Statistics returns the caller's entire history grouped by (month, unit)
// with gross, tax and net sums, ordered ascending by month. The grouping
// and reduction are pushed down to the database.
func (s *Service) Statistics(ctx context.Context, userID uuid.UUID) ([]*models.MonthlyStat, error) {
	stats, err := s.repo.MonthlyStatistics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	if stats == nil {
		stats = []*models.MonthlyStat{}
	}
	return stats, nil
}

// ownedBy reports whether the record's owning-user identifier equals the
// authenticated user's identifier. Evaluated before every mutation.
func ownedBy(d *models.Dividend, userID uuid.UUID) bool {
	return d.UserID == userID
}

// monthWindow returns the half-open UTC interval [start-of-month,
// start-of-next-month) containing ref. For instants this is equivalent to
// the inclusive start-of-month through end-of-month window.
func monthWindow(ref time.Time) (time.Time, time.Time) {
	ref = ref.UTC()
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return from, to
}
