package gmaps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dekimage/scraper-usa-platform/config"
	"github.com/dekimage/scraper-usa-platform/utils"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	mapsURL         = "https://www.google.com/maps?hl=en"
	feedSelector    = `div[role="feed"]`
	entrySelector   = `div[role="feed"] > div`
	detailURLMarker = "/maps/place/"
	addressSelector = `button[data-item-id="address"]`
)

// consentSelectors are tried in order to dismiss the cookie dialog.
// The dialog is best-effort: absence is not an error.
var consentSelectors = []string{
	`button[aria-label="Accept all"]`,
	`button[aria-label="I agree"]`,
	`form[action*="consent"] button`,
}

// browserSession drives one chromedp tab. ctx is the tab's context,
// already a child of the run context, so cancelling the run tears the
// tab down mid-action.
type browserSession struct {
	ctx    context.Context
	tuning config.Tuning
	logger *utils.Logger
}

// OpenSearch navigates to the maps page, dismisses the consent dialog
// if present and submits the query through the search box.
func (b *browserSession) OpenSearch(_ context.Context, query string) error {
	if err := chromedp.Run(b.ctx,
		chromedp.Navigate(mapsURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to open maps: %w", err)
	}

	b.dismissConsent()

	if err := chromedp.Run(b.ctx,
		chromedp.WaitVisible(`input[name="q"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="q"]`, query+kb.Enter, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}

	feedCtx, cancel := context.WithTimeout(b.ctx, b.tuning.FeedTimeout())
	defer cancel()
	if err := chromedp.Run(feedCtx, chromedp.WaitVisible(feedSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("results feed did not appear: %w", err)
	}

	return utils.RandomDelay(b.ctx, 2*time.Second, 4*time.Second)
}

func (b *browserSession) dismissConsent() {
	for _, sel := range consentSelectors {
		clickCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
		err := chromedp.Run(clickCtx,
			chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
		)
		cancel()
		if err == nil {
			b.logger.Debug("Consent dialog dismissed via %s", sel)
			time.Sleep(1 * time.Second)
			return
		}
	}
	b.logger.Debug("No consent dialog or already accepted")
}

// GrowFeed scrolls the results container to the bottom and polls the
// loaded entry count until the target, attempt exhaustion or a run of
// attempts without growth.
func (b *browserSession) GrowFeed(ctx context.Context, target int) (int, error) {
	current, err := b.EntryCount(ctx)
	if err != nil {
		return 0, err
	}

	attempts := 0
	noGrowth := 0
	for continueScrolling(current, target, attempts, noGrowth, b.tuning) {
		if err := ctx.Err(); err != nil {
			return current, err
		}

		var scrolled bool
		err := chromedp.Run(b.ctx, chromedp.Evaluate(`(function() {
			var feed = document.querySelector('div[role="feed"]');
			if (!feed) return false;
			feed.scrollTop = feed.scrollHeight;
			return true;
		})()`, &scrolled))
		if err != nil {
			return current, fmt.Errorf("scroll failed: %w", err)
		}
		if !scrolled {
			b.logger.Warn("Results feed disappeared while scrolling")
		}

		if err := utils.RandomDelay(b.ctx, b.tuning.ScrollPauseMin(), b.tuning.ScrollPauseMax()); err != nil {
			return current, err
		}

		previous := current
		current, err = b.EntryCount(ctx)
		if err != nil {
			return previous, err
		}
		if current > previous {
			noGrowth = 0
		} else {
			noGrowth++
		}
		attempts++
		b.logger.Info("Loaded %d results so far...", current)
	}

	return current, nil
}

// continueScrolling decides whether the feed growth loop keeps going.
// Scrolling never gives up before the minimum attempt count, so slow
// feeds get several chances, and stops once the count stalls for
// NoGrowthLimit consecutive attempts.
func continueScrolling(current, target, attempts, noGrowth int, t config.Tuning) bool {
	if current >= target {
		return false
	}
	if attempts >= t.MaxScrollAttempts {
		return false
	}
	if attempts < t.MinScrollAttempts {
		return true
	}
	return noGrowth < t.NoGrowthLimit
}

// EntryCount re-queries the feed's direct children fresh; holding on
// to element references across iterations is the classic stale-node
// failure in SPA automation.
func (b *browserSession) EntryCount(_ context.Context) (int, error) {
	var count int
	err := chromedp.Run(b.ctx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, entrySelector), &count),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count feed entries: %w", err)
	}
	return count, nil
}

// Activate clicks the entry at index, preferring its inner result link
// and falling back to the entry container, then confirms the detail
// view through both the URL pattern and the address landmark.
func (b *browserSession) Activate(_ context.Context, index int) error {
	entry := fmt.Sprintf(`div[role="feed"] > div:nth-child(%d)`, index+1)
	targets := []string{entry + ` a.hfpxzc`, entry}

	var lastErr error
	for _, target := range targets {
		clickCtx, cancel := context.WithTimeout(b.ctx, b.tuning.ClickTimeout())
		err := chromedp.Run(clickCtx,
			chromedp.ScrollIntoView(target, chromedp.ByQuery),
			chromedp.Click(target, chromedp.ByQuery, chromedp.NodeVisible),
		)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		if err := b.confirmDetailView(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("entry %d did not open a detail view: %w", index+1, lastErr)
}

// confirmDetailView polls until the URL has moved to a place URL and
// the address control is in the DOM, or the confirm window elapses.
// A click that "worked" without both signals is a failed activation.
func (b *browserSession) confirmDetailView() error {
	deadline := time.Now().Add(b.tuning.ConfirmTimeout())
	for {
		var location string
		var hasAddress bool
		err := chromedp.Run(b.ctx,
			chromedp.Location(&location),
			chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%q)`, addressSelector), &hasAddress),
		)
		if err != nil {
			return fmt.Errorf("failed to poll detail view: %w", err)
		}
		if strings.Contains(location, detailURLMarker) && hasAddress {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("detail view not confirmed (url: %s)", location)
		}
		if err := utils.RandomDelay(b.ctx, 200*time.Millisecond, 400*time.Millisecond); err != nil {
			return err
		}
	}
}
