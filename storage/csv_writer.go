package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/utils"
)

// csvColumns is the fixed export column order.
var csvColumns = []string{
	"name", "category", "address", "phone", "rating", "reviews",
	"website", "website_status", "maps_link", "city", "business_type",
	"scraped_at",
}

// CSVWriter exports scraped businesses to a CSV file. Every field is
// double-quoted, with embedded quotes escaped by doubling, so consumers
// never have to guess at the quoting rules.
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter targeting filePath.
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// ExportFilename builds a timestamped export filename for one run.
func ExportFilename(params models.ScrapeParams) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
	return fmt.Sprintf("google_maps_%s_%s_%s.csv", params.BusinessType, params.City, ts)
}

// WriteBusinesses writes the businesses to the CSV file, creating the
// output directory if needed.
func (w *CSVWriter) WriteBusinesses(businesses []*models.Business) error {
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(csvRow(csvColumns)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, b := range businesses {
		if _, err := file.WriteString(csvRow(businessRow(b))); err != nil {
			return fmt.Errorf("failed to write CSV row for %q: %w", b.Name, err)
		}
	}

	w.logger.Info("Exported %d businesses to: %s", len(businesses), w.filePath)
	return nil
}

func businessRow(b *models.Business) []string {
	return []string{
		b.Name,
		b.Category,
		b.Address,
		derefString(b.Phone),
		formatRating(b.Rating),
		formatReviews(b.ReviewCount),
		derefString(b.Website),
		string(b.WebsiteStatus),
		b.MapsLink,
		b.City,
		b.BusinessType,
		b.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

func csvRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",") + "\n"
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func formatReviews(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
