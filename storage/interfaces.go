package storage

import (
	"context"
	"errors"

	"github.com/dekimage/scraper-usa-platform/models"
)

// ErrDuplicate is returned by SaveBusiness when a record with the same
// (name, address) pair already exists. A duplicate is expected during
// normal operation, not a failure.
var ErrDuplicate = errors.New("business already exists")

// BusinessStore is the persistence boundary of the scrape pipeline.
// The duplicate pre-check in SaveBusiness is a check-then-insert, not a
// transaction; the intended deployment is a single writer per store.
type BusinessStore interface {
	// SaveBusiness inserts the record unless a (name, address) match
	// exists, in which case it returns ErrDuplicate. The record's
	// website status is recomputed from its website before the write.
	SaveBusiness(ctx context.Context, b *models.Business) (int64, error)

	// CountBusinessesByCity returns the true number of stored records
	// for the city.
	CountBusinessesByCity(ctx context.Context, city string) (int, error)

	// UpdateCitySummary recomputes the city's business count from the
	// store and upserts the summary keyed by the trimmed city name.
	// Writes a zero count rather than skipping when no records exist.
	UpdateCitySummary(ctx context.Context, city string) error

	ListCitySummaries(ctx context.Context) ([]*models.CitySummary, error)

	// DistinctCities returns every city with at least one stored record.
	DistinctCities(ctx context.Context) ([]string, error)
}

// JobStore tracks scrape job lifecycles. CompleteJob and FailJob only
// transition jobs still in the running state, so a job reaches a
// terminal state at most once.
type JobStore interface {
	CreateJob(ctx context.Context, params models.ScrapeParams) (int64, error)
	GetJob(ctx context.Context, id int64) (*models.ScrapeJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.ScrapeJob, error)
	CompleteJob(ctx context.Context, id int64, resultsCount int) error
	FailJob(ctx context.Context, id int64, message string) error
}

// Store combines both persistence concerns; the Postgres and in-memory
// implementations satisfy it.
type Store interface {
	BusinessStore
	JobStore
	Ping(ctx context.Context) error
	Close() error
}
