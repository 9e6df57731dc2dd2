package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/utils"
)

func TestWriteBusinesses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "export.csv")

	phone := "+1 435 555 0100"
	website := "https://fadefactory.example.com"
	rating := 4.5
	reviews := 128

	businesses := []*models.Business{
		{
			Name:          "Fade Factory",
			Category:      "Barber shop",
			Address:       "12 Main St",
			Phone:         &phone,
			Website:       &website,
			WebsiteStatus: models.WebsiteReal,
			Rating:        &rating,
			ReviewCount:   &reviews,
			MapsLink:      "https://www.google.com/maps/place/fade-factory",
			City:          "Park City",
			BusinessType:  "Barber",
			ScrapedAt:     time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			Name:          `The "Chop" Shop`,
			Address:       "3 Side St",
			WebsiteStatus: models.WebsiteNone,
			City:          "Park City",
			BusinessType:  "Barber",
			ScrapedAt:     time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC),
		},
	}

	writer := NewCSVWriter(path, utils.NewLogger())
	if err := writer.WriteBusinesses(businesses); err != nil {
		t.Fatalf("WriteBusinesses failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3", len(lines))
	}

	wantHeader := `"name","category","address","phone","rating","reviews","website","website_status","maps_link","city","business_type","scraped_at"`
	if lines[0] != wantHeader {
		t.Errorf("header:\n got %s\nwant %s", lines[0], wantHeader)
	}

	wantFirst := `"Fade Factory","Barber shop","12 Main St","+1 435 555 0100","4.5","128",` +
		`"https://fadefactory.example.com","real","https://www.google.com/maps/place/fade-factory",` +
		`"Park City","Barber","2026-08-29T10:00:00Z"`
	if lines[1] != wantFirst {
		t.Errorf("row 1:\n got %s\nwant %s", lines[1], wantFirst)
	}

	// Missing optional fields export as empty quoted strings; embedded
	// quotes are doubled.
	wantSecond := `"The ""Chop"" Shop","","3 Side St","","","","","none","","Park City","Barber","2026-08-29T10:05:00Z"`
	if lines[2] != wantSecond {
		t.Errorf("row 2:\n got %s\nwant %s", lines[2], wantSecond)
	}
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename(models.ScrapeParams{City: "Park City", BusinessType: "Barber"})
	if !strings.HasPrefix(name, "google_maps_Barber_Park City_") {
		t.Errorf("unexpected prefix: %s", name)
	}
	if !strings.HasSuffix(name, ".csv") {
		t.Errorf("missing .csv suffix: %s", name)
	}
	if strings.Contains(name, ":") {
		t.Errorf("timestamp must not contain colons: %s", name)
	}
}
