package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/andresuchdata/vendormetrics/internal/cache"
	"github.com/andresuchdata/vendormetrics/internal/config"
	"github.com/andresuchdata/vendormetrics/internal/ingest"
	"github.com/andresuchdata/vendormetrics/internal/pipeline"
	"github.com/andresuchdata/vendormetrics/internal/repository/postgres"
	"github.com/andresuchdata/vendormetrics/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Object storage is optional; the upload path works without it
	var store storage.ObjectStorage
	if cfg.Storage.Enabled {
		store, err = storage.NewMinioClient(cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
	}

	// Report cache is shared with the read-side server; runs invalidate it
	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Printf("warning: report cache unavailable: %v", err)
		reportCache = cache.NewNoopReportCache()
	}

	// Initialize ingestion and run pipeline
	ingestor := ingest.NewIngestor(db.DB.DB, cfg.Ingest)
	runner := pipeline.NewRunner(db, reportCache)
	runsRepo := pipeline.NewRepository(db.DB.DB)

	// Create router
	r := mux.NewRouter()

	// Register routes
	ingestHandler := ingest.NewHandler(ingestor, runner, runsRepo, store, cfg.Ingest.UploadDir)
	ingestHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
