package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/cache"
	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/andresuchdata/vendormetrics/internal/metrics"
	"github.com/andresuchdata/vendormetrics/internal/repository/postgres"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Runner executes a full metrics run: load the five datasets, aggregate,
// classify outliers, persist the BrandMetrics set, finalize the run record.
type Runner struct {
	runs     *Repository
	datasets *postgres.DatasetRepository
	metrics  *postgres.MetricsRepository
	agg      *metrics.Aggregator
	cache    cache.ReportCache
}

// NewRunner creates a new metrics run runner. reportCache may be nil when no
// cache is configured.
func NewRunner(db *postgres.DB, reportCache cache.ReportCache) *Runner {
	if reportCache == nil {
		reportCache = cache.NewNoopReportCache()
	}
	return &Runner{
		runs:     NewRepository(db.DB.DB),
		datasets: postgres.NewDatasetRepository(db),
		metrics:  postgres.NewMetricsRepository(db),
		agg:      metrics.NewAggregator(),
		cache:    reportCache,
	}
}

// Run recomputes BrandMetrics for the period. Re-running an existing period
// reuses its run record and replaces its metrics rows.
func (r *Runner) Run(ctx context.Context, periodStart, periodEnd time.Time) (*domain.MetricsReport, error) {
	run, err := r.getOrCreateRun(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics run: %w", err)
	}

	run.Status = StatusProcessing
	if err := r.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update metrics run: %w", err)
	}

	report, err := r.execute(ctx, run)
	if err != nil {
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
		now := time.Now()
		run.CompletedAt = &now
		if uerr := r.runs.UpdateRun(ctx, run); uerr != nil {
			log.Error().Err(uerr).Int64("run_id", run.ID).Msg("failed to mark run failed")
		}
		return nil, err
	}

	return report, nil
}

func (r *Runner) execute(ctx context.Context, run *Run) (*domain.MetricsReport, error) {
	in := metrics.Inputs{
		PeriodStart: run.PeriodStart,
		PeriodEnd:   run.PeriodEnd,
	}

	// Brands are independent until the IQR fence, so the five datasets can
	// be loaded concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Purchases, err = r.datasets.LoadPurchases(gctx, run.PeriodStart, run.PeriodEnd)
		return err
	})
	g.Go(func() (err error) {
		in.Sales, err = r.datasets.LoadSales(gctx, run.PeriodStart, run.PeriodEnd)
		return err
	})
	g.Go(func() (err error) {
		in.BeginInventory, err = r.datasets.LoadBeginInventory(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.EndInventory, err = r.datasets.LoadEndInventory(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.Invoices, err = r.datasets.LoadInvoices(gctx, run.PeriodStart, run.PeriodEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load source datasets: %w", err)
	}

	totalRows := len(in.Purchases) + len(in.Sales) + len(in.BeginInventory) +
		len(in.EndInventory) + len(in.Invoices)

	log.Info().
		Int64("run_id", run.ID).
		Int("rows", totalRows).
		Str("period_start", run.PeriodStart.Format("2006-01-02")).
		Str("period_end", run.PeriodEnd.Format("2006-01-02")).
		Msg("starting vendor metrics run")

	result, err := r.agg.Aggregate(in)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	all := make([]domain.BrandMetrics, 0, len(result.Core)+len(result.Outliers))
	all = append(all, result.Core...)
	all = append(all, result.Outliers...)
	if err := r.metrics.SaveRunMetrics(ctx, run.ID, all); err != nil {
		return nil, fmt.Errorf("failed to persist brand metrics: %w", err)
	}

	run.Status = StatusCompleted
	run.TotalBrands = len(all)
	run.OutlierBrands = len(result.Outliers)
	run.ProcessedRows = totalRows - result.Rejections.Total()
	run.RejectedRows = result.Rejections.Total()
	now := time.Now()
	run.CompletedAt = &now
	if err := r.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete metrics run: %w", err)
	}

	// Recomputing a period replaces its rows, so cached report reads for
	// this run are stale now
	if err := r.cache.InvalidateRun(ctx, run.ID); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("report cache invalidation failed")
	}

	log.Info().
		Int64("run_id", run.ID).
		Int("brands", run.TotalBrands).
		Int("outliers", run.OutlierBrands).
		Int("rejected", run.RejectedRows).
		Msg("vendor metrics run completed")

	return &domain.MetricsReport{
		RunID:          run.ID,
		PeriodStart:    run.PeriodStart,
		PeriodEnd:      run.PeriodEnd,
		Core:           result.Core,
		Outliers:       result.Outliers,
		CoreSummary:    result.CoreSummary,
		OutlierSummary: result.OutlierSummary,
		Rejections:     result.Rejections,
	}, nil
}

// getOrCreateRun gets or creates a run record for the period
func (r *Runner) getOrCreateRun(ctx context.Context, start, end time.Time) (*Run, error) {
	run, err := r.runs.GetRunByPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}

	run = &Run{
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      StatusPending,
		StartedAt:   time.Now(),
	}
	if err := r.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}
