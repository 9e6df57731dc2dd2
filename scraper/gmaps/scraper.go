package gmaps

import (
	"context"
	"errors"
	"fmt"

	"github.com/dekimage/scraper-usa-platform/config"
	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"

	"github.com/chromedp/chromedp"
)

// session is one live browser tab over a maps search. The orchestrator
// only talks to this interface; the chromedp implementation lives in
// navigator.go and extractor.go.
type session interface {
	// OpenSearch loads the maps page, deals with the consent dialog and
	// submits the query, waiting for the results feed to appear.
	OpenSearch(ctx context.Context, query string) error
	// GrowFeed scrolls the feed until the target entry count, attempt
	// exhaustion or early-exhaustion detection, returning the number of
	// loaded entries.
	GrowFeed(ctx context.Context, target int) (int, error)
	// EntryCount re-queries the number of loaded feed entries.
	EntryCount(ctx context.Context) (int, error)
	// Activate clicks the entry at index and confirms the detail view
	// loaded. No retry on failure; the caller advances regardless.
	Activate(ctx context.Context, index int) error
	// Extract reads the open detail view into a Business. Returns
	// (nil, nil) when the view does not hold a usable business.
	Extract(ctx context.Context, params models.ScrapeParams) (*models.Business, error)
}

// Scraper orchestrates one full Google Maps scrape: session setup,
// search, feed scrolling, the per-item processing loop, the city
// summary update and teardown.
type Scraper struct {
	cfg    *config.Config
	tuning config.Tuning
	logger *utils.Logger
	store  storage.BusinessStore

	// swapped out in tests
	newSession func(ctx context.Context) (session, context.CancelFunc, error)
}

// NewScraper creates a Scraper backed by a headless Chrome session.
func NewScraper(cfg *config.Config, tuning config.Tuning, store storage.BusinessStore, logger *utils.Logger) *Scraper {
	s := &Scraper{
		cfg:    cfg,
		tuning: tuning,
		logger: logger,
		store:  store,
	}
	s.newSession = s.launchBrowser
	return s
}

// launchBrowser starts one exclusively-owned Chrome tab with a random
// but session-stable user agent and English locale forced regardless
// of the host locale, since the selectors are tuned against
// English-rendered markup.
func (s *Scraper) launchBrowser(ctx context.Context) (session, context.CancelFunc, error) {
	ua := utils.PickUserAgent(s.tuning.UserAgents)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US"),
		chromedp.Flag("accept-lang", "en-US,en;q=0.9"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1280, 800),
	)
	if s.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	s.logger.Info("Browser session started (user agent: %s)", ua)
	return &browserSession{ctx: tabCtx, tuning: s.tuning, logger: s.logger}, cancel, nil
}

// Scrape runs the whole pipeline for one job. The returned result is
// never nil; on error it carries the records saved before the failure,
// partial success is preferred over total loss.
func (s *Scraper) Scrape(ctx context.Context, params models.ScrapeParams) (*models.ScrapeResult, error) {
	result := &models.ScrapeResult{}

	s.logger.Info("Starting Google Maps scraper for %q in %q (max results: %d)",
		params.BusinessType, params.City, params.MaxResults)

	sess, closeSession, err := s.newSession(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer closeSession()

	err = utils.RetryWithBackoff(ctx, s.tuning.NavRetries, func() error {
		return sess.OpenSearch(ctx, params.Query())
	}, s.logger)
	if err != nil {
		s.summarize(ctx, params.City)
		return result, fmt.Errorf("search navigation failed: %w", err)
	}

	loaded, err := sess.GrowFeed(ctx, params.MaxResults)
	if err != nil {
		s.summarize(ctx, params.City)
		return result, fmt.Errorf("feed scrolling failed: %w", err)
	}
	s.logger.Info("Feed ready with %d loaded entries. Processing items...", loaded)

	tracker := utils.NewURLTracker()
	for index := 0; result.TotalSaved < params.MaxResults; index++ {
		if err := ctx.Err(); err != nil {
			s.summarize(ctx, params.City)
			return result, err
		}

		// Re-query the feed every iteration; the SPA reflows the DOM
		// and cached counts go stale.
		count, err := sess.EntryCount(ctx)
		if err != nil {
			s.summarize(ctx, params.City)
			return result, fmt.Errorf("lost results feed at entry %d: %w", index+1, err)
		}
		if index >= count {
			s.logger.Info("Processed all %d entries in the feed. Stopping.", count)
			break
		}

		s.logger.Info("Processing entry %d (saved: %d/%d)...",
			index+1, result.TotalSaved, params.MaxResults)

		biz := s.processEntry(ctx, sess, index, tracker, params)
		if biz != nil {
			result.Records = append(result.Records, biz)
			result.TotalSaved++
			s.logger.Info("Saved business #%d: %s", result.TotalSaved, biz.Name)
		}

		if err := utils.RandomDelay(ctx, s.tuning.MinDelay(), s.tuning.MaxDelay()); err != nil {
			s.summarize(ctx, params.City)
			return result, err
		}
	}

	s.logger.Info("Finished processing loop. Successfully scraped %d businesses.", result.TotalSaved)
	s.summarize(ctx, params.City)
	return result, nil
}

// processEntry handles one feed entry end to end. Every failure mode
// is local: the entry is skipped and the loop moves on. An entry that
// is an ad or separator is indistinguishable from a failed extraction,
// both come back nil.
func (s *Scraper) processEntry(ctx context.Context, sess session, index int, tracker *utils.URLTracker, params models.ScrapeParams) *models.Business {
	if err := sess.Activate(ctx, index); err != nil {
		s.logger.Warn("Entry %d: activation failed, skipping: %v", index+1, err)
		return nil
	}

	biz, err := sess.Extract(ctx, params)
	if err != nil {
		s.logger.Warn("Entry %d: extraction failed, skipping: %v", index+1, err)
		return nil
	}
	if biz == nil {
		s.logger.Debug("Entry %d: no usable business in detail view, skipping", index+1)
		return nil
	}

	if !tracker.Add(biz.MapsLink) {
		s.logger.Debug("Entry %d: already processed %s, skipping", index+1, biz.MapsLink)
		return nil
	}

	biz.WebsiteStatus = services.ClassifyWebsite(biz.Website)

	if _, err := s.store.SaveBusiness(ctx, biz); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.logger.Info("Entry %d: duplicate business %q, skipping", index+1, biz.Name)
		} else {
			s.logger.Error("Entry %d: failed to save %q: %v", index+1, biz.Name, err)
		}
		return nil
	}
	return biz
}

// summarize updates the city summary unconditionally, including error
// paths and zero-record runs. A failed update is logged, not fatal:
// the counter is recomputed from source truth on the next run anyway.
func (s *Scraper) summarize(ctx context.Context, city string) {
	if err := s.store.UpdateCitySummary(context.WithoutCancel(ctx), city); err != nil {
		s.logger.Error("City summary update failed for %q: %v", city, err)
	}
}
