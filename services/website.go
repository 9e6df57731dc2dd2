package services

import (
	"strings"

	"github.com/dekimage/scraper-usa-platform/models"
)

// socialFragments are domain fragments that mark a website as a social
// profile rather than a real site, including short-link variants.
var socialFragments = []string{
	"facebook.com",
	"fb.com",
	"instagram.com",
	"fb.me",
}

// ClassifyWebsite maps an extracted website URL to its status. nil or
// empty means the business has no website; a social-platform URL is
// flagged separately because it converts differently for outreach.
// Total function: every input maps to exactly one status.
func ClassifyWebsite(url *string) models.WebsiteStatus {
	if url == nil || *url == "" {
		return models.WebsiteNone
	}

	lower := strings.ToLower(*url)
	for _, fragment := range socialFragments {
		if strings.Contains(lower, fragment) {
			return models.WebsiteSocial
		}
	}
	return models.WebsiteReal
}
