package main

import (
	"log/slog"
	"net/http"
	"time"

	"cardscan/internal/arthash"
	"cardscan/internal/catalog"
	"cardscan/internal/config"
	"cardscan/internal/daemon"
	"cardscan/internal/inventory"
	"cardscan/internal/ocr"
	"cardscan/internal/pipeline"
	"cardscan/internal/queue"
	"cardscan/internal/workers"
)

// buildDaemon assembles the recognition pipeline and its worker pool.
func buildDaemon(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	inv, err := inventory.NewStore(store.DB())
	if err != nil {
		return nil, err
	}

	engine := ocr.NewClient(ocr.Config{
		Binary:   cfg.Tesseract.Binary,
		Language: cfg.Tesseract.Language,
		Timeout:  time.Duration(cfg.Tesseract.TimeoutSeconds) * time.Second,
	}, logger)

	httpClient := &http.Client{Timeout: time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second}
	cat, err := catalog.New(catalog.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		PageCap:    cfg.Catalog.PageCap,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	cache := arthash.NewCache(cfg.HashCachePath(), logger)
	refiner := arthash.NewRefiner(cache, httpClient, logger)

	pipe := pipeline.New(cfg, engine, cat, refiner, inv, logger)
	pool := workers.New(cfg.Workers, store, pipe, logger)
	return daemon.New(cfg, store, inv, pool, logger)
}
