package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/models"
)

// DividendRepositoryInterface defines the interface for dividend repository
// operations. This interface enables better testability by allowing mock
// implementations
type DividendRepositoryInterface interface {
	Create(ctx context.Context, d *models.Dividend) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dividend, error)
	ListByUserPaginated(ctx context.Context, userID uuid.UUID, from, to time.Time, page, perPage int) ([]*models.Dividend, int, error)
	UpdateOwned(ctx context.Context, d *models.Dividend) error
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
	MonthlyStatistics(ctx context.Context, userID uuid.UUID) ([]*models.MonthlyStat, error)
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

// InsightRepositoryInterface defines the interface for insight repository operations
type InsightRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Insight, error)
	Set(ctx context.Context, in *models.Insight) error
}

// OAuthConfigRepositoryInterface defines the interface for OAuth provider
// configuration storage
type OAuthConfigRepositoryInterface interface {
	GetByProvider(ctx context.Context, provider string) (*models.OAuthConfig, error)
	GetAll(ctx context.Context) ([]*models.OAuthConfig, error)
	Set(ctx context.Context, cfg *models.OAuthConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ DividendRepositoryInterface    = (*DividendRepository)(nil)
	_ UserRepositoryInterface        = (*UserRepository)(nil)
	_ InsightRepositoryInterface     = (*InsightRepository)(nil)
	_ OAuthConfigRepositoryInterface = (*OAuthConfigRepository)(nil)
)
