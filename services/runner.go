package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/utils"
)

// Scraper runs one full scrape. The returned result is never nil: when
// err is non-nil it still carries whatever records were saved before
// the failure.
type Scraper interface {
	Scrape(ctx context.Context, params models.ScrapeParams) (*models.ScrapeResult, error)
}

// JobTracker is the slice of the store the runner needs for job
// lifecycle bookkeeping.
type JobTracker interface {
	CreateJob(ctx context.Context, params models.ScrapeParams) (int64, error)
	CompleteJob(ctx context.Context, id int64, resultsCount int) error
	FailJob(ctx context.Context, id int64, message string) error
}

// JobRunner starts scrape runs in the background and records their
// outcome on the job exactly once, success or failure captured
// structurally rather than via scattered callbacks.
type JobRunner struct {
	scraper Scraper
	jobs    JobTracker
	logger  *utils.Logger

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewJobRunner creates a JobRunner.
func NewJobRunner(scraper Scraper, jobs JobTracker, logger *utils.Logger) *JobRunner {
	return &JobRunner{
		scraper: scraper,
		jobs:    jobs,
		logger:  logger,
		cancels: make(map[int64]context.CancelFunc),
	}
}

// Start creates a job record and launches the scrape in the
// background, returning the job id immediately.
func (r *JobRunner) Start(ctx context.Context, params models.ScrapeParams) (int64, error) {
	jobID, err := r.jobs.CreateJob(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(runCtx, jobID, params)

	return jobID, nil
}

func (r *JobRunner) run(ctx context.Context, jobID int64, params models.ScrapeParams) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.cancels[jobID]; ok {
			cancel()
			delete(r.cancels, jobID)
		}
		r.mu.Unlock()
	}()

	r.logger.Info("Job %d started: %q in %q (max %d)",
		jobID, params.BusinessType, params.City, params.MaxResults)

	result, err := r.scraper.Scrape(ctx, params)

	// Job bookkeeping outlives the run context.
	updateCtx := context.Background()
	if err != nil {
		r.logger.Error("Job %d failed after %d saves: %v", jobID, result.TotalSaved, err)
		if ferr := r.jobs.FailJob(updateCtx, jobID, err.Error()); ferr != nil {
			r.logger.Error("Job %d status update failed: %v", jobID, ferr)
		}
		return
	}

	r.logger.Info("Job %d completed: %d businesses saved", jobID, result.TotalSaved)
	if cerr := r.jobs.CompleteJob(updateCtx, jobID, result.TotalSaved); cerr != nil {
		r.logger.Error("Job %d status update failed: %v", jobID, cerr)
	}
}

// Cancel aborts a running job between units of work. Records saved
// before the abort stay saved. Returns false when the job is not
// running.
func (r *JobRunner) Cancel(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[jobID]
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until all background runs have finished. Used by the CLI
// and in graceful shutdown.
func (r *JobRunner) Wait() {
	r.wg.Wait()
}
