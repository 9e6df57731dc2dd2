package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/services"
)

// MemoryStore is an in-memory Store used for database-less CLI runs
// (CSV-only exports) and for tests. Same duplicate and job-transition
// semantics as the Postgres store.
type MemoryStore struct {
	mu         sync.Mutex
	businesses []*models.Business
	jobs       map[int64]*models.ScrapeJob
	summaries  map[string]*models.CitySummary
	nextBizID  int64
	nextJobID  int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[int64]*models.ScrapeJob),
		summaries: make(map[string]*models.CitySummary),
		nextBizID: 1,
		nextJobID: 1,
	}
}

// SaveBusiness stores a copy of the record unless a (name, address)
// match exists.
func (s *MemoryStore) SaveBusiness(_ context.Context, b *models.Business) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.businesses {
		if existing.Name == b.Name && existing.Address == b.Address {
			return 0, ErrDuplicate
		}
	}

	b.WebsiteStatus = services.ClassifyWebsite(b.Website)

	stored := *b
	stored.ID = s.nextBizID
	s.nextBizID++
	s.businesses = append(s.businesses, &stored)

	b.ID = stored.ID
	return stored.ID, nil
}

// CountBusinessesByCity counts stored records for the city.
func (s *MemoryStore) CountBusinessesByCity(_ context.Context, city string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countCityLocked(strings.TrimSpace(city)), nil
}

func (s *MemoryStore) countCityLocked(city string) int {
	count := 0
	for _, b := range s.businesses {
		if b.City == city {
			count++
		}
	}
	return count
}

// UpdateCitySummary recomputes the count and upserts the summary.
func (s *MemoryStore) UpdateCitySummary(_ context.Context, city string) error {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return fmt.Errorf("empty city name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[trimmed] = &models.CitySummary{
		Name:          trimmed,
		BusinessCount: s.countCityLocked(trimmed),
		LastScraped:   time.Now(),
	}
	return nil
}

// ListCitySummaries returns all summaries.
func (s *MemoryStore) ListCitySummaries(_ context.Context) ([]*models.CitySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]*models.CitySummary, 0, len(s.summaries))
	for _, cs := range s.summaries {
		copied := *cs
		summaries = append(summaries, &copied)
	}
	return summaries, nil
}

// DistinctCities returns every city with at least one stored business.
func (s *MemoryStore) DistinctCities(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var cities []string
	for _, b := range s.businesses {
		if _, ok := seen[b.City]; !ok {
			seen[b.City] = struct{}{}
			cities = append(cities, b.City)
		}
	}
	return cities, nil
}

// CreateJob registers a new running job.
func (s *MemoryStore) CreateJob(_ context.Context, params models.ScrapeParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextJobID
	s.nextJobID++
	s.jobs[id] = &models.ScrapeJob{
		ID:           id,
		City:         params.City,
		BusinessType: params.BusinessType,
		MaxResults:   params.MaxResults,
		Status:       models.JobRunning,
		Timestamp:    time.Now(),
	}
	return id, nil
}

// GetJob returns a copy of the job, or nil when not found.
func (s *MemoryStore) GetJob(_ context.Context, id int64) (*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

// ListJobs returns up to limit jobs, most recent first.
func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]*models.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*models.ScrapeJob
	for id := s.nextJobID - 1; id >= 1 && len(jobs) < limit; id-- {
		if job, ok := s.jobs[id]; ok {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

// CompleteJob transitions a running job to completed.
func (s *MemoryStore) CompleteJob(_ context.Context, id int64, resultsCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.runningJobLocked(id)
	if err != nil {
		return err
	}
	now := time.Now()
	job.Status = models.JobCompleted
	job.ResultsCount = &resultsCount
	job.CompletedAt = &now
	return nil
}

// FailJob transitions a running job to failed.
func (s *MemoryStore) FailJob(_ context.Context, id int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.runningJobLocked(id)
	if err != nil {
		return err
	}
	now := time.Now()
	job.Status = models.JobFailed
	job.Error = &message
	job.CompletedAt = &now
	return nil
}

func (s *MemoryStore) runningJobLocked(id int64) (*models.ScrapeJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d not found", id)
	}
	if job.Status != models.JobRunning {
		return nil, fmt.Errorf("job %d is not running", id)
	}
	return job, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
