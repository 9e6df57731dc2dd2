package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/utils"
)

// LeadReport holds summary figures over one run's saved businesses.
// Leads without a real website are the interesting ones for outreach,
// so the breakdown is by website status.
type LeadReport struct {
	Total         int
	RealWebsite   int
	SocialOnly    int
	NoWebsite     int
	WithPhone     int
	AverageRating float64
	RatedCount    int
	ByCategory    map[string]int
}

// ReportService computes run summaries from saved businesses.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService with the given logger.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate computes the lead report over a slice of saved businesses.
func (s *ReportService) Generate(businesses []*models.Business) *LeadReport {
	report := &LeadReport{
		ByCategory: make(map[string]int),
	}

	if len(businesses) == 0 {
		s.logger.Warn("No businesses to generate report from")
		return report
	}

	var ratingSum float64
	for _, b := range businesses {
		report.Total++

		switch b.WebsiteStatus {
		case models.WebsiteReal:
			report.RealWebsite++
		case models.WebsiteSocial:
			report.SocialOnly++
		default:
			report.NoWebsite++
		}

		if b.Phone != nil && *b.Phone != "" {
			report.WithPhone++
		}
		if b.Rating != nil {
			ratingSum += *b.Rating
			report.RatedCount++
		}
		if b.Category != "" {
			report.ByCategory[b.Category]++
		}
	}

	if report.RatedCount > 0 {
		report.AverageRating = ratingSum / float64(report.RatedCount)
	}
	return report
}

// PrintLeadReport formats and prints the lead report to terminal.
func PrintLeadReport(report *LeadReport) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║%s║\n", center("LEAD GENERATION RUN SUMMARY", 55))
	fmt.Printf("╚%s╝\n", border)

	fmt.Printf("\n OVERVIEW\n%s\n", thin)
	fmt.Printf("  Businesses Saved   : %d\n", report.Total)
	fmt.Printf("  Real Website       : %d\n", report.RealWebsite)
	fmt.Printf("  Social Media Only  : %d\n", report.SocialOnly)
	fmt.Printf("  No Website         : %d\n", report.NoWebsite)
	fmt.Printf("  With Phone Number  : %d\n", report.WithPhone)
	if report.RatedCount > 0 {
		fmt.Printf("  Average Rating     : %.2f (%d rated)\n", report.AverageRating, report.RatedCount)
	}

	if len(report.ByCategory) > 0 {
		fmt.Printf("\n BUSINESSES PER CATEGORY\n%s\n", thin)
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range report.ByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			return cats[i].count > cats[j].count
		})
		for _, cc := range cats {
			bar := strings.Repeat("▓", cc.count)
			fmt.Printf("  %-25s %3d  %s\n", cc.cat+":", cc.count, bar)
		}
	}

	fmt.Printf("\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}
