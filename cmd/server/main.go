package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dekimage/scraper-usa-platform/api"
	"github.com/dekimage/scraper-usa-platform/config"
	"github.com/dekimage/scraper-usa-platform/scraper/gmaps"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/storage"
	"github.com/dekimage/scraper-usa-platform/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("Lead Scraper Platform server starting")

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Warn("Tuning file problem, using defaults: %v", err)
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Cannot connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	scraper := gmaps.NewScraper(cfg, tuning, store, logger)
	runner := services.NewJobRunner(scraper, store, logger)

	handler := api.NewHandler(store, runner, cfg.DefaultMaxResults, logger)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal: %v", sig)
	case err := <-serverErr:
		logger.Error("HTTP server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}

	// Let in-flight scrape runs record their terminal job status.
	runner.Wait()
	logger.Info("Server stopped")
}
