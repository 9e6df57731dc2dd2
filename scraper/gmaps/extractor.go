package gmaps

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dekimage/scraper-usa-platform/models"

	"github.com/chromedp/chromedp"
)

var (
	ratingRegexp  = regexp.MustCompile(`([0-9.]+)\s*stars?`)
	reviewsRegexp = regexp.MustCompile(`\(?([0-9][0-9,]*)\)?`)
)

// namePlaceholders mark detail views that are search banners rather
// than businesses. The second one shows up when the host locale leaks
// through despite the forced English headers.
var namePlaceholders = []string{
	"results for",
	"резултати",
}

// websitePlaceholders are "add a website" button texts in the UI's
// display languages; they must never be stored as a URL.
var websitePlaceholders = []string{
	"add website",
	"додадете веб-сајт",
}

// Extract reads the open detail view into a Business. Every field is
// attempted independently with its own bounded wait; a failed field is
// nil on the record, never fatal. Only a missing or placeholder name
// invalidates the whole record, in which case (nil, nil) is returned.
func (b *browserSession) Extract(_ context.Context, params models.ScrapeParams) (*models.Business, error) {
	var mapsLink string
	if err := chromedp.Run(b.ctx, chromedp.Location(&mapsLink)); err != nil {
		return nil, fmt.Errorf("failed to read detail view URL: %w", err)
	}

	name := strings.TrimSpace(b.text(`h1.DUwDvf`))
	if !validBusinessName(name) {
		b.logger.Debug("Invalid business name %q, discarding record", name)
		return nil, nil
	}

	biz := &models.Business{
		Name:         name,
		MapsLink:     mapsLink,
		City:         params.City,
		BusinessType: params.BusinessType,
		// The source site's category taxonomy is inconsistent; the
		// search input is treated as ground truth.
		Category:  params.BusinessType,
		ScrapedAt: time.Now().UTC(),
	}

	// Each field is its own strategy; order does not matter.
	for _, extract := range []func(*models.Business){
		b.extractAddress,
		b.extractPhone,
		b.extractWebsite,
		b.extractRating,
		b.extractReviews,
		b.extractImage,
	} {
		extract(biz)
	}

	return biz, nil
}

func (b *browserSession) extractAddress(biz *models.Business) {
	if v := strings.TrimSpace(b.text(`button[data-item-id="address"] div[class*="fontBodyMedium"]`)); v != "" {
		biz.Address = v
	}
}

func (b *browserSession) extractPhone(biz *models.Business) {
	if v := strings.TrimSpace(b.text(`button[data-item-id^="phone"] div[class*="fontBodyMedium"]`)); v != "" {
		biz.Phone = &v
	}
}

// extractWebsite reads the website link's href first and falls back to
// the website button's visible text, which is rejected when it is the
// "add a website" placeholder.
func (b *browserSession) extractWebsite(biz *models.Business) {
	if href := strings.TrimSpace(b.attr(`a[data-item-id="authority"]`, "href")); href != "" {
		biz.Website = &href
		return
	}
	text := strings.TrimSpace(b.text(`button[data-item-id="website"]`))
	biz.Website = websiteFromButtonText(text)
}

func (b *browserSession) extractRating(biz *models.Business) {
	label := b.attr(`div[role="img"][aria-label*="stars"]`, "aria-label")
	biz.Rating = parseRating(label)
}

func (b *browserSession) extractReviews(biz *models.Business) {
	text := b.text(`div.F7nice span[aria-label$="reviews"]`)
	if text == "" {
		text = b.text(`span[aria-label$="reviews"]`)
	}
	biz.ReviewCount = parseReviewCount(text)
}

func (b *browserSession) extractImage(biz *models.Business) {
	src := strings.TrimSpace(b.attr(`button[aria-label^="Photo of"] img`, "src"))
	biz.ImageURL = acceptImageURL(src)
}

// text returns the visible text of the first match of sel, or "" when
// the selector does not resolve within the field timeout.
func (b *browserSession) text(sel string) string {
	fieldCtx, cancel := context.WithTimeout(b.ctx, b.tuning.FieldTimeout())
	defer cancel()

	var value string
	if err := chromedp.Run(fieldCtx,
		chromedp.Text(sel, &value, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		b.logger.Debug("Selector %s failed: %v", sel, err)
		return ""
	}
	return value
}

// attr returns an attribute of the first match of sel, or "".
func (b *browserSession) attr(sel, name string) string {
	fieldCtx, cancel := context.WithTimeout(b.ctx, b.tuning.FieldTimeout())
	defer cancel()

	var value string
	var ok bool
	if err := chromedp.Run(fieldCtx,
		chromedp.AttributeValue(sel, name, &value, &ok, chromedp.ByQuery),
	); err != nil || !ok {
		b.logger.Debug("Attribute %s of %s unavailable", name, sel)
		return ""
	}
	return value
}

// validBusinessName rejects empty names and search-banner placeholders.
func validBusinessName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range namePlaceholders {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// websiteFromButtonText treats placeholder button texts as no website.
func websiteFromButtonText(text string) *string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	for _, p := range websitePlaceholders {
		if strings.Contains(lower, p) {
			return nil
		}
	}
	return &text
}

// parseRating pulls the numeric value out of an accessible label like
// "4.5 stars". Absent or non-numeric labels yield nil.
func parseRating(label string) *float64 {
	m := ratingRegexp.FindStringSubmatch(label)
	if len(m) < 2 {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// parseReviewCount pulls the integer out of texts like "(1,234)" with
// thousands separators stripped.
func parseReviewCount(text string) *int {
	m := reviewsRegexp.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// acceptImageURL accepts any http-prefixed source. The URL is stored
// unverified; checking it resolves to an image would take a network
// fetch the pipeline never performs.
func acceptImageURL(src string) *string {
	if src == "" || !strings.HasPrefix(src, "http") {
		return nil
	}
	return &src
}
