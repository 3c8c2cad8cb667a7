package insights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoon/divtrack/internal/models"
)

type fakeStatsRepo struct {
	stats []*models.MonthlyStat
	err   error
}

func (f *fakeStatsRepo) Create(ctx context.Context, d *models.Dividend) error { return nil }
func (f *fakeStatsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dividend, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeStatsRepo) ListByUserPaginated(ctx context.Context, userID uuid.UUID, from, to time.Time, page, perPage int) ([]*models.Dividend, int, error) {
	return nil, 0, nil
}
func (f *fakeStatsRepo) UpdateOwned(ctx context.Context, d *models.Dividend) error { return nil }
func (f *fakeStatsRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	return nil
}
func (f *fakeStatsRepo) MonthlyStatistics(ctx context.Context, userID uuid.UUID) ([]*models.MonthlyStat, error) {
	return f.stats, f.err
}

type fakeInsightRepo struct {
	stored map[uuid.UUID]*models.Insight
}

func (f *fakeInsightRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Insight, error) {
	in, ok := f.stored[userID]
	if !ok {
		return nil, fmt.Errorf("insight not found: %w", sql.ErrNoRows)
	}
	return in, nil
}

func (f *fakeInsightRepo) Set(ctx context.Context, in *models.Insight) error {
	f.stored[in.UserID] = in
	return nil
}

type fakeGenerator struct {
	summary string
	err     error
	calls   int
}

func (f *fakeGenerator) MonthlySummary(ctx context.Context, stats []*models.MonthlyStat) (string, error) {
	f.calls++
	return f.summary, f.err
}

func TestRefresh_StoresGeneratedSummary(t *testing.T) {
	t.Parallel()

	stats := []*models.MonthlyStat{
		{Month: "2024-01", Unit: models.DividendUnitUSD, Dividend: 150, Tax: 15, Total: 135},
	}
	gen := &fakeGenerator{summary: "A steady start to the year."}
	insightRepo := &fakeInsightRepo{stored: make(map[uuid.UUID]*models.Insight)}
	svc := NewService(&fakeStatsRepo{stats: stats}, insightRepo, gen)

	userID := uuid.New()
	if err := svc.Refresh(context.Background(), userID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	stored, err := insightRepo.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if stored.Summary != "A steady start to the year." {
		t.Errorf("unexpected summary: %q", stored.Summary)
	}
	if stored.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}
	if gen.calls != 1 {
		t.Errorf("expected one generator call, got %d", gen.calls)
	}
}

func TestRefresh_EmptyHistorySkipsGenerator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{summary: "should not be used"}
	insightRepo := &fakeInsightRepo{stored: make(map[uuid.UUID]*models.Insight)}
	svc := NewService(&fakeStatsRepo{}, insightRepo, gen)

	userID := uuid.New()
	if err := svc.Refresh(context.Background(), userID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if gen.calls != 0 {
		t.Errorf("generator called for empty history")
	}
	stored, err := insightRepo.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if !strings.Contains(stored.Summary, "No dividend history") {
		t.Errorf("unexpected placeholder summary: %q", stored.Summary)
	}
}

func TestRefresh_GeneratorFailurePropagates(t *testing.T) {
	t.Parallel()

	genErr := errors.New("429 too many requests")
	gen := &fakeGenerator{err: genErr}
	insightRepo := &fakeInsightRepo{stored: make(map[uuid.UUID]*models.Insight)}
	svc := NewService(&fakeStatsRepo{stats: []*models.MonthlyStat{{Month: "2024-01"}}}, insightRepo, gen)

	err := svc.Refresh(context.Background(), uuid.New())
	if !errors.Is(err, genErr) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if len(insightRepo.stored) != 0 {
		t.Error("insight stored despite generation failure")
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt([]*models.MonthlyStat{
		{Month: "2024-01", Unit: models.DividendUnitUSD, Dividend: 150, Tax: 15, Total: 135},
		{Month: "2024-02", Unit: models.DividendUnitKRW, Dividend: 30000, Tax: 4620, Total: 25380},
	})

	for _, want := range []string{"2024-01 USD 150.00 15.00 135.00", "2024-02 KRW 30000.00 4620.00 25380.00"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing line %q:\n%s", want, prompt)
		}
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	if d := RetryDelay(errors.New("429 too many requests"), 0); d != 60*time.Second {
		t.Errorf("rate limit attempt 0 = %v, want 60s", d)
	}
	if d := RetryDelay(errors.New("insufficient_quota"), 0); d != time.Hour {
		t.Errorf("quota attempt 0 = %v, want 1h", d)
	}
	if d := RetryDelay(errors.New("connection refused"), 1); d != 10*time.Second {
		t.Errorf("generic attempt 1 = %v, want 10s", d)
	}
	if d := RetryDelay(errors.New("429"), 20); d != 15*time.Minute {
		t.Errorf("rate limit cap = %v, want 15m", d)
	}
}
