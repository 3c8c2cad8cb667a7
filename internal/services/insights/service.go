package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/models"
)

// Service regenerates and stores a user's dividend summary.
type Service struct {
	dividends database.DividendRepositoryInterface
	insights  database.InsightRepositoryInterface
	generator Generator
}

// NewService creates an insight service.
func NewService(dividends database.DividendRepositoryInterface, insights database.InsightRepositoryInterface, generator Generator) *Service {
	return &Service{dividends: dividends, insights: insights, generator: generator}
}

// Refresh recomputes the user's monthly statistics, generates a fresh
// summary and stores it. Users with no dividend history get a fixed message
// without a model call.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID) error {
	stats, err := s.dividends.MonthlyStatistics(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}

	var summary string
	if len(stats) == 0 {
		summary = "No dividend history yet. Record your first dividend to see insights here."
	} else {
		summary, err = s.generator.MonthlySummary(ctx, stats)
		if err != nil {
			return err
		}
	}

	in := &models.Insight{
		UserID:      userID,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.insights.Set(ctx, in); err != nil {
		return fmt.Errorf("failed to store insight: %w", err)
	}
	return nil
}
