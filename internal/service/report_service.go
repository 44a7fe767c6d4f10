package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/cache"
	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/andresuchdata/vendormetrics/internal/pipeline"
	"github.com/andresuchdata/vendormetrics/internal/repository/postgres"
	"github.com/rs/zerolog/log"
)

// ReportService serves the read side of completed metrics runs. Report and
// summary queries go through the cache; cache failures degrade to the
// database, never to an error.
type ReportService struct {
	metrics *postgres.MetricsRepository
	runs    *pipeline.Repository
	cache   cache.ReportCache
}

func NewReportService(metrics *postgres.MetricsRepository, runs *pipeline.Repository, reportCache cache.ReportCache) *ReportService {
	if reportCache == nil {
		reportCache = cache.NewNoopReportCache()
	}
	return &ReportService{
		metrics: metrics,
		runs:    runs,
		cache:   reportCache,
	}
}

// GetReport returns the BrandMetrics rows matching the filter, partitioned
// report order (by brand_id).
func (s *ReportService) GetReport(ctx context.Context, filter domain.ReportFilter) ([]domain.BrandMetrics, error) {
	if cached, ok, err := s.cache.GetReport(ctx, filter); err != nil {
		log.Warn().Err(err).Int64("run_id", filter.RunID).Msg("report cache read failed")
	} else if ok {
		return cached, nil
	}

	rows, err := s.metrics.GetReport(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetReport(ctx, filter, rows); err != nil {
		log.Warn().Err(err).Int64("run_id", filter.RunID).Msg("report cache write failed")
	}

	return rows, nil
}

// GetSummaries returns the per-partition aggregates for a run.
func (s *ReportService) GetSummaries(ctx context.Context, runID int64) ([]domain.PartitionSummary, error) {
	if cached, ok, err := s.cache.GetSummaries(ctx, runID); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("summary cache read failed")
	} else if ok {
		return cached, nil
	}

	summaries, err := s.metrics.GetSummaries(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSummaries(ctx, runID, summaries); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("summary cache write failed")
	}

	return summaries, nil
}

// GetRun returns the run record, or an error when it does not exist.
func (s *ReportService) GetRun(ctx context.Context, runID int64) (*pipeline.Run, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	return run, nil
}

// ListRuns returns run history, newest first.
func (s *ReportService) ListRuns(ctx context.Context, limit int) ([]*pipeline.Run, error) {
	return s.runs.ListRuns(ctx, limit)
}

// RunIDForPeriod resolves the run covering an exact analysis period.
func (s *ReportService) RunIDForPeriod(ctx context.Context, start, end time.Time) (int64, error) {
	run, err := s.runs.GetRunByPeriod(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("no run found for period %s to %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return run.ID, nil
}

// LatestCompletedRunID resolves the most recent completed run, used when a
// report query names no run explicitly.
func (s *ReportService) LatestCompletedRunID(ctx context.Context) (int64, error) {
	runs, err := s.runs.ListRuns(ctx, 20)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		if run.Status == pipeline.StatusCompleted {
			return run.ID, nil
		}
	}
	return 0, fmt.Errorf("no completed runs available")
}
