package main

import (
	"fmt"

	"github.com/andresuchdata/vendormetrics/internal/cache"
	"github.com/andresuchdata/vendormetrics/internal/config"
	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/andresuchdata/vendormetrics/internal/pipeline"
	"github.com/andresuchdata/vendormetrics/internal/repository/postgres"
	"github.com/andresuchdata/vendormetrics/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// runMetrics computes brand metrics for the requested period and optionally
// exports the report CSV.
func runMetrics(c *cli.Context) error {
	start, end, err := parsePeriod(c)
	if err != nil {
		return err
	}

	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	reportCache, err := cache.NewReportCache(config.Load().Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, skipping invalidation")
		reportCache = cache.NewNoopReportCache()
	}

	runner := pipeline.NewRunner(db, reportCache)
	report, err := runner.Run(c.Context, start, end)
	if err != nil {
		return err
	}

	log.Info().
		Int64("run_id", report.RunID).
		Int("core", len(report.Core)).
		Int("outliers", len(report.Outliers)).
		Int("rejected", report.Rejections.Total()).
		Msg("metrics run finished")

	if c.Bool("export") {
		path, err := pipeline.WriteReportCSV(c.String("output-dir"), report)
		if err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", path)
	}

	return nil
}

// exportReport rebuilds the report for a stored run and writes it as CSV.
func exportReport(c *cli.Context) error {
	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	runID := c.Int64("run-id")
	runs := pipeline.NewRepository(db.DB.DB)
	run, err := runs.GetRun(c.Context, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}
	if run.Status != pipeline.StatusCompleted {
		return fmt.Errorf("run %d is %s, only completed runs can be exported", runID, run.Status)
	}

	metricsRepo := postgres.NewMetricsRepository(db)
	rows, err := metricsRepo.GetReport(c.Context, domain.ReportFilter{RunID: runID})
	if err != nil {
		return err
	}
	summaries, err := metricsRepo.GetSummaries(c.Context, runID)
	if err != nil {
		return err
	}

	report := &domain.MetricsReport{
		RunID:       run.ID,
		PeriodStart: run.PeriodStart,
		PeriodEnd:   run.PeriodEnd,
	}
	for _, m := range rows {
		if m.IsOutlier {
			report.Outliers = append(report.Outliers, m)
		} else {
			report.Core = append(report.Core, m)
		}
	}
	for _, s := range summaries {
		switch s.Partition {
		case domain.PartitionCore:
			report.CoreSummary = s
		case domain.PartitionOutlier:
			report.OutlierSummary = s
		}
	}

	path, err := pipeline.WriteReportCSV(c.String("output-dir"), report)
	if err != nil {
		return err
	}
	fmt.Printf("report written to %s\n", path)

	if c.Bool("upload") {
		cfg := config.Load()
		if !cfg.Storage.Enabled {
			return fmt.Errorf("object storage is not enabled, set STORAGE_ENABLED=true")
		}
		store, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return err
		}
		if err := pipeline.UploadReport(c.Context, store, path); err != nil {
			return err
		}
	}

	return nil
}
