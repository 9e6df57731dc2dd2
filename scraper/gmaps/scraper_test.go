package gmaps

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dekimage/scraper-usa-platform/config"
	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"
)

type fakeEntry struct {
	activateErr error
	biz         *models.Business
	extractErr  error
}

// fakeSession replays a scripted feed so the orchestrator loop can be
// exercised without a browser.
type fakeSession struct {
	entries       []fakeEntry
	lastActivated int
	countErrAfter int
	countCalls    int
}

func (f *fakeSession) OpenSearch(ctx context.Context, query string) error { return nil }

func (f *fakeSession) GrowFeed(ctx context.Context, target int) (int, error) {
	return len(f.entries), nil
}

func (f *fakeSession) EntryCount(ctx context.Context) (int, error) {
	f.countCalls++
	if f.countErrAfter > 0 && f.countCalls > f.countErrAfter {
		return 0, errors.New("browser crashed")
	}
	return len(f.entries), nil
}

func (f *fakeSession) Activate(ctx context.Context, index int) error {
	f.lastActivated = index
	return f.entries[index].activateErr
}

func (f *fakeSession) Extract(ctx context.Context, params models.ScrapeParams) (*models.Business, error) {
	e := f.entries[f.lastActivated]
	if e.extractErr != nil {
		return nil, e.extractErr
	}
	return e.biz, nil
}

func testScraper(sess session, store storage.BusinessStore) *Scraper {
	tuning := config.DefaultTuning()
	tuning.MinDelayMs = 0
	tuning.MaxDelayMs = 0

	s := NewScraper(&config.Config{}, tuning, store, utils.NewLogger())
	s.newSession = func(ctx context.Context) (session, context.CancelFunc, error) {
		return sess, func() {}, nil
	}
	return s
}

func entryBusiness(n int) *models.Business {
	return &models.Business{
		Name:      fmt.Sprintf("Barber %d", n),
		Address:   fmt.Sprintf("%d Main St", n),
		MapsLink:  fmt.Sprintf("https://www.google.com/maps/place/barber-%d", n),
		ScrapedAt: time.Now().UTC(),
	}
}

// Eight loaded entries: two fail activation, one is a duplicate of an
// already-stored record, five are fresh. With maxResults 5 the run
// must save exactly five and still complete.
func TestScrapeEndToEnd(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	preexisting := entryBusiness(2)
	preexisting.City = "Park City"
	if _, err := store.SaveBusiness(ctx, preexisting); err != nil {
		t.Fatalf("seeding store failed: %v", err)
	}

	dup := entryBusiness(2)
	dup.MapsLink = "https://www.google.com/maps/place/barber-2-again"
	dup.City = "Park City"

	sess := &fakeSession{entries: []fakeEntry{
		{biz: withCity(entryBusiness(0))},
		{activateErr: errors.New("click did not land")},
		{biz: dup},
		{biz: withCity(entryBusiness(3))},
		{activateErr: errors.New("detail view not confirmed")},
		{biz: withCity(entryBusiness(5))},
		{biz: withCity(entryBusiness(6))},
		{biz: withCity(entryBusiness(7))},
	}}

	s := testScraper(sess, store)
	result, err := s.Scrape(ctx, models.ScrapeParams{
		City: "Park City", BusinessType: "Barber", MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if result.TotalSaved != 5 {
		t.Errorf("TotalSaved: got %d, want 5", result.TotalSaved)
	}
	if len(result.Records) != 5 {
		t.Errorf("Records: got %d, want 5", len(result.Records))
	}

	// 1 preexisting + 5 saved in this run; the duplicate added nothing.
	count, err := store.CountBusinessesByCity(ctx, "Park City")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 6 {
		t.Errorf("stored businesses: got %d, want 6", count)
	}

	summaries, _ := store.ListCitySummaries(ctx)
	if len(summaries) != 1 || summaries[0].BusinessCount != 6 {
		t.Errorf("city summary not recomputed, got %+v", summaries)
	}
}

func withCity(b *models.Business) *models.Business {
	b.City = "Park City"
	return b
}

// A detail view that resolves to a placeholder yields no record; the
// loop advances without incrementing the saved count.
func TestScrapeSkipsInvalidRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	sess := &fakeSession{entries: []fakeEntry{
		{biz: nil}, // placeholder name, extractor discarded it
		{biz: withCity(entryBusiness(1))},
		{extractErr: errors.New("field timeout")},
	}}

	s := testScraper(sess, store)
	result, err := s.Scrape(context.Background(), models.ScrapeParams{
		City: "Park City", BusinessType: "Barber", MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if result.TotalSaved != 1 {
		t.Errorf("TotalSaved: got %d, want 1", result.TotalSaved)
	}
}

// A record with only name and address still saves, with nil optional
// fields and website status derived from the missing website.
func TestScrapePartialExtractionTolerance(t *testing.T) {
	store := storage.NewMemoryStore()
	partial := &models.Business{
		Name:     "Sparse Barber",
		Address:  "9 Side St",
		MapsLink: "https://www.google.com/maps/place/sparse-barber",
		City:     "Park City",
	}
	sess := &fakeSession{entries: []fakeEntry{{biz: partial}}}

	s := testScraper(sess, store)
	result, err := s.Scrape(context.Background(), models.ScrapeParams{
		City: "Park City", BusinessType: "Barber", MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if result.TotalSaved != 1 {
		t.Fatalf("TotalSaved: got %d, want 1", result.TotalSaved)
	}

	saved := result.Records[0]
	if saved.Phone != nil || saved.Website != nil || saved.Rating != nil ||
		saved.ReviewCount != nil || saved.ImageURL != nil {
		t.Error("optional fields should stay nil when not extracted")
	}
	if saved.WebsiteStatus != models.WebsiteNone {
		t.Errorf("WebsiteStatus: got %q, want %q", saved.WebsiteStatus, models.WebsiteNone)
	}
}

// Losing the session mid-run fails the scrape but keeps the records
// saved before the failure.
func TestScrapeReturnsPartialResultsOnFatalError(t *testing.T) {
	store := storage.NewMemoryStore()
	sess := &fakeSession{
		entries: []fakeEntry{
			{biz: withCity(entryBusiness(0))},
			{biz: withCity(entryBusiness(1))},
			{biz: withCity(entryBusiness(2))},
		},
		countErrAfter: 2,
	}

	s := testScraper(sess, store)
	result, err := s.Scrape(context.Background(), models.ScrapeParams{
		City: "Park City", BusinessType: "Barber", MaxResults: 10,
	})
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if result.TotalSaved != 2 {
		t.Errorf("TotalSaved: got %d, want 2", result.TotalSaved)
	}

	summaries, _ := store.ListCitySummaries(context.Background())
	if len(summaries) != 1 {
		t.Error("city summary should be updated even on the error path")
	}
}

// Cancellation between items stops the run with the partial results.
func TestScrapeCancellation(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	entries := make([]fakeEntry, 10)
	for i := range entries {
		entries[i] = fakeEntry{biz: withCity(entryBusiness(i))}
	}
	sess := &fakeSession{entries: entries}

	s := testScraper(sess, store)
	cancel()

	result, err := s.Scrape(ctx, models.ScrapeParams{
		City: "Park City", BusinessType: "Barber", MaxResults: 10,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("result must be returned even when cancelled")
	}
}
