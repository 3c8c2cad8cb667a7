package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/request"
)

// fakeDividendRepo is an in-memory dividend store for handler tests
type fakeDividendRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.Dividend
}

func newFakeDividendRepo() *fakeDividendRepo {
	return &fakeDividendRepo{records: make(map[uuid.UUID]*models.Dividend)}
}

func (f *fakeDividendRepo) Create(ctx context.Context, d *models.Dividend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.records[d.ID] = &cp
	return nil
}

func (f *fakeDividendRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dividend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("dividend not found: %w", sql.ErrNoRows)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDividendRepo) ListByUserPaginated(ctx context.Context, userID uuid.UUID, from, to time.Time, page, perPage int) ([]*models.Dividend, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matching []*models.Dividend
	for _, d := range f.records {
		if d.UserID != userID || d.PayDate.Before(from) || !d.PayDate.Before(to) {
			continue
		}
		cp := *d
		matching = append(matching, &cp)
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].PayDate.Before(matching[j].PayDate)
	})
	total := len(matching)
	offset := (page - 1) * perPage
	if offset >= total {
		return nil, total, nil
	}
	end := offset + perPage
	if end > total {
		end = total
	}
	return matching[offset:end], total, nil
}

func (f *fakeDividendRepo) UpdateOwned(ctx context.Context, d *models.Dividend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[d.ID]
	if !ok || existing.UserID != d.UserID {
		return fmt.Errorf("dividend not found: %w", sql.ErrNoRows)
	}
	cp := *d
	f.records[d.ID] = &cp
	return nil
}

func (f *fakeDividendRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[id]
	if !ok || existing.UserID != userID {
		return fmt.Errorf("dividend not found: %w", sql.ErrNoRows)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeDividendRepo) MonthlyStatistics(ctx context.Context, userID uuid.UUID) ([]*models.MonthlyStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type key struct {
		month string
		unit  models.DividendUnit
	}
	groups := make(map[key]*models.MonthlyStat)
	for _, d := range f.records {
		if d.UserID != userID {
			continue
		}
		k := key{month: d.PayDate.UTC().Format("2006-01"), unit: d.Unit}
		s, ok := groups[k]
		if !ok {
			s = &models.MonthlyStat{Month: k.month, Unit: k.unit}
			groups[k] = s
		}
		s.Dividend += d.Dividend
		s.Tax += d.Tax
		s.Total = s.Dividend - s.Tax
	}
	var stats []*models.MonthlyStat
	for _, s := range groups {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Month != stats[j].Month {
			return stats[i].Month < stats[j].Month
		}
		return stats[i].Unit < stats[j].Unit
	})
	return stats, nil
}

// fakeJobQueue records enqueued jobs
type fakeJobQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, fmt.Errorf("not supported")
}

func (f *fakeJobQueue) Close() error                          { return nil }
func (f *fakeJobQueue) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeJobQueue) jobsOfType(t queue.JobType) []*queue.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*queue.Job
	for _, j := range f.jobs {
		if j.Type == t {
			out = append(out, j)
		}
	}
	return out
}

// withUser attaches an authenticated user to the request
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(request.WithUser(r.Context(), user))
}
