package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/dekimage/scraper-usa-platform/config"
	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/scraper/gmaps"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"
)

type options struct {
	City         string `short:"c" long:"city" default:"Park City" description:"City or location to search"`
	BusinessType string `short:"b" long:"business-type" default:"Barber" description:"Business type or category"`
	MaxResults   int    `short:"m" long:"max-results" default:"20" description:"Maximum number of results to scrape"`
	ExportCSV    bool   `short:"e" long:"export-csv" description:"Export results to a CSV file"`
	OutputDir    string `short:"o" long:"output-dir" default:"output" description:"Directory for CSV exports"`
	NoDB         bool   `long:"no-db" description:"Run without a database (in-memory store, CSV-only)"`
}

func main() {
	logger := utils.NewLogger()

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg := config.Load()
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Warn("Tuning file problem, using defaults: %v", err)
	}

	logger.Info("Google Maps Scraper CLI")
	logger.Info("City: %s | Business type: %s | Max results: %d | Export CSV: %v",
		opts.City, opts.BusinessType, opts.MaxResults, opts.ExportCSV)

	var store storage.Store
	if opts.NoDB {
		logger.Info("Running without a database; results live in memory only")
		store = storage.NewMemoryStore()
	} else {
		pg, err := storage.NewPostgresStore(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Cannot connect to PostgreSQL: %v", err)
			logger.Error("Use --no-db for a database-less CSV run")
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := models.ScrapeParams{
		City:         opts.City,
		BusinessType: opts.BusinessType,
		MaxResults:   opts.MaxResults,
	}

	scraper := gmaps.NewScraper(cfg, tuning, store, logger)
	result, err := scraper.Scrape(ctx, params)
	if err != nil {
		logger.Error("Scrape ended with error: %v", err)
		logger.Info("Keeping %d businesses saved before the failure", result.TotalSaved)
	}

	if opts.ExportCSV && len(result.Records) > 0 {
		path := filepath.Join(opts.OutputDir, storage.ExportFilename(params))
		writer := storage.NewCSVWriter(path, logger)
		if err := writer.WriteBusinesses(result.Records); err != nil {
			logger.Error("CSV export failed: %v", err)
		}
	}

	reportSvc := services.NewReportService(logger)
	services.PrintLeadReport(reportSvc.Generate(result.Records))

	if err != nil {
		os.Exit(1)
	}
	logger.Info("Done! Scraped %d businesses.", result.TotalSaved)
}
