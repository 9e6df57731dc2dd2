package models

import "time"

// WebsiteStatus categorizes the website extracted for a business.
type WebsiteStatus string

const (
	WebsiteNone   WebsiteStatus = "none"
	WebsiteSocial WebsiteStatus = "social"
	WebsiteReal   WebsiteStatus = "real"
)

// Business is one harvested Google Maps listing, ready for storage.
// Optional fields are pointers: nil means the field could not be extracted.
type Business struct {
	ID            int64
	Name          string
	Address       string
	Phone         *string
	Website       *string
	WebsiteStatus WebsiteStatus
	Rating        *float64
	ReviewCount   *int
	ImageURL      *string
	MapsLink      string
	Category      string // copied from the search input, never scraped
	City          string
	BusinessType  string
	ScrapedAt     time.Time
}

// DedupKey returns the (name, address) pair used for duplicate detection.
func (b *Business) DedupKey() (string, string) {
	return b.Name, b.Address
}
