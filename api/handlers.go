package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"
)

// Handler handles HTTP requests for the scraping platform.
type Handler struct {
	store             storage.Store
	runner            *services.JobRunner
	logger            *utils.Logger
	defaultMaxResults int
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, runner *services.JobRunner, defaultMaxResults int, logger *utils.Logger) *Handler {
	return &Handler{
		store:             store,
		runner:            runner,
		logger:            logger,
		defaultMaxResults: defaultMaxResults,
	}
}

type scrapeRequest struct {
	City         string `json:"city"`
	BusinessType string `json:"businessType"`
	MaxResults   int    `json:"maxResults"`
}

// StartScrape kicks off a scrape run in the background and returns the
// job id immediately. Progress is visible only by reading the job
// record afterwards.
func (h *Handler) StartScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.City == "" || req.BusinessType == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing required parameters",
			"required": []string{"city", "businessType"},
		})
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = h.defaultMaxResults
	}

	jobID, err := h.runner.Start(c.Request.Context(), models.ScrapeParams{
		City:         req.City,
		BusinessType: req.BusinessType,
		MaxResults:   req.MaxResults,
	})
	if err != nil {
		h.logger.Error("Failed to start scrape job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Scraper job started",
		"jobId":   jobID,
	})
}

// GetJob returns one job record.
func (h *Handler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get job %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs returns the most recent jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// CancelJob aborts a running job between units of work. Records saved
// before the abort are kept.
func (h *Handler) CancelJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}

	if !h.runner.Cancel(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCities returns the per-city summary counters.
func (h *Handler) ListCities(c *gin.Context) {
	summaries, err := h.store.ListCitySummaries(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list city summaries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": summaries, "count": len(summaries)})
}

// AggregateCities recomputes every city's summary from the businesses
// table.
func (h *Handler) AggregateCities(c *gin.Context) {
	ctx := c.Request.Context()

	cities, err := h.store.DistinctCities(ctx)
	if err != nil {
		h.logger.Error("Failed to list cities for aggregation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	updated := 0
	for _, city := range cities {
		if err := h.store.UpdateCitySummary(ctx, city); err != nil {
			h.logger.Error("Failed to update summary for %q: %v", city, err)
			continue
		}
		updated++
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cityCount": updated})
}

// HealthCheck reports service liveness and database reachability.
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
