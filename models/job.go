package models

import "time"

// JobStatus is the lifecycle state of a scrape job. A job moves from
// running to exactly one terminal state and is immutable afterwards.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ScrapeJob records one invocation of the pipeline.
type ScrapeJob struct {
	ID           int64      `json:"id"`
	City         string     `json:"city"`
	BusinessType string     `json:"businessType"`
	MaxResults   int        `json:"maxResults"`
	Status       JobStatus  `json:"status"`
	ResultsCount *int       `json:"resultsCount,omitempty"`
	Error        *string    `json:"error,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ScrapeParams are the inputs of one pipeline run.
type ScrapeParams struct {
	City         string
	BusinessType string
	MaxResults   int
}

// Query composes the search string submitted to the maps search box.
func (p ScrapeParams) Query() string {
	return p.BusinessType + " near " + p.City
}

// ScrapeResult aggregates the outcome of one run. Records holds every
// business saved during the run, including runs that ended in error.
type ScrapeResult struct {
	Records    []*Business
	TotalSaved int
}

// CitySummary is the per-city aggregate counter.
type CitySummary struct {
	Name          string    `json:"name"`
	BusinessCount int       `json:"businessCount"`
	LastScraped   time.Time `json:"lastScraped"`
}
