package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"
)

type stubScraper struct{}

func (stubScraper) Scrape(ctx context.Context, params models.ScrapeParams) (*models.ScrapeResult, error) {
	return &models.ScrapeResult{TotalSaved: 0}, nil
}

func testServer() (http.Handler, *storage.MemoryStore, *services.JobRunner) {
	store := storage.NewMemoryStore()
	logger := utils.NewLogger()
	runner := services.NewJobRunner(stubScraper{}, store, logger)
	handler := NewHandler(store, runner, 300, logger)
	return NewServer(handler), store, runner
}

func TestStartScrapeValidation(t *testing.T) {
	server, _, _ := testServer()

	cases := []struct {
		name string
		body string
	}{
		{"missing city", `{"businessType": "Barber"}`},
		{"missing business type", `{"city": "Park City"}`},
		{"not json", `city=Park City`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(c.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestStartScrapeReturnsJobID(t *testing.T) {
	server, store, runner := testServer()

	body := `{"city": "Park City", "businessType": "Barber", "maxResults": 5}`
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	var resp struct {
		Success bool  `json:"success"`
		JobID   int64 `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.Success || resp.JobID == 0 {
		t.Errorf("response: %+v", resp)
	}

	runner.Wait()
	job, err := store.GetJob(context.Background(), resp.JobID)
	if err != nil || job == nil {
		t.Fatalf("GetJob: job=%v err=%v", job, err)
	}
	if job.Status != models.JobCompleted {
		t.Errorf("job status after run: got %q, want %q", job.Status, models.JobCompleted)
	}
}

func TestGetJobNotFound(t *testing.T) {
	server, _, _ := testServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/999", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCancelNotRunningJob(t *testing.T) {
	server, _, _ := testServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/7/cancel", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestHealthCheck(t *testing.T) {
	server, _, _ := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAggregateCities(t *testing.T) {
	server, store, _ := testServer()
	ctx := context.Background()

	store.SaveBusiness(ctx, &models.Business{Name: "A", Address: "1 St", City: "Park City"})
	store.SaveBusiness(ctx, &models.Business{Name: "B", Address: "2 St", City: "Heber City"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cities/aggregate", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	summaries, _ := store.ListCitySummaries(ctx)
	if len(summaries) != 2 {
		t.Errorf("summaries after aggregate: got %d, want 2", len(summaries))
	}
}
