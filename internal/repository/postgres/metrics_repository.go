package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/andresuchdata/vendormetrics/internal/domain"
)

// MetricsRepository persists and serves computed BrandMetrics rows.
type MetricsRepository struct {
	db *DB
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db *DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// SaveRunMetrics upserts the full BrandMetrics set for a run in one
// transaction, so a re-run replaces its previous rows.
func (r *MetricsRepository) SaveRunMetrics(ctx context.Context, runID int64, rows []domain.BrandMetrics) error {
	const query = `
		INSERT INTO brand_metrics (
			run_id, brand_id, weighted_avg_cost, cogs, revenue, units_sold,
			avg_inventory_value, turnover, dio, gmroi, dpo, ccc, is_outlier,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (run_id, brand_id)
		DO UPDATE SET
			weighted_avg_cost = EXCLUDED.weighted_avg_cost,
			cogs = EXCLUDED.cogs,
			revenue = EXCLUDED.revenue,
			units_sold = EXCLUDED.units_sold,
			avg_inventory_value = EXCLUDED.avg_inventory_value,
			turnover = EXCLUDED.turnover,
			dio = EXCLUDED.dio,
			gmroi = EXCLUDED.gmroi,
			dpo = EXCLUDED.dpo,
			ccc = EXCLUDED.ccc,
			is_outlier = EXCLUDED.is_outlier,
			updated_at = NOW()
	`

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare brand_metrics upsert: %w", err)
		}
		defer stmt.Close()

		for _, m := range rows {
			if _, err := stmt.ExecContext(ctx,
				runID, m.BrandID, m.WeightedAvgCost, m.COGS, m.Revenue, m.UnitsSold,
				m.AvgInventoryValue, m.Turnover, m.DIO, m.GMROI, m.DPO, m.CCC, m.IsOutlier,
			); err != nil {
				return fmt.Errorf("failed to upsert metrics for brand %s: %w", m.BrandID, err)
			}
		}

		return nil
	})
}

// GetReport returns BrandMetrics rows for a run, ordered by brand_id.
func (r *MetricsRepository) GetReport(ctx context.Context, filter domain.ReportFilter) ([]domain.BrandMetrics, error) {
	query := `
		SELECT brand_id, weighted_avg_cost, cogs, revenue, units_sold,
		       avg_inventory_value, turnover, dio, gmroi, dpo, ccc, is_outlier
		FROM brand_metrics
		WHERE run_id = $1
	`
	args := []interface{}{filter.RunID}

	switch filter.Partition {
	case domain.PartitionCore:
		query += " AND is_outlier = FALSE"
	case domain.PartitionOutlier:
		query += " AND is_outlier = TRUE"
	}

	if len(filter.BrandIDs) > 0 {
		placeholders := make([]string, 0, len(filter.BrandIDs))
		for _, id := range filter.BrandIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		query += fmt.Sprintf(" AND brand_id IN (%s)", strings.Join(placeholders, ", "))
	}

	query += " ORDER BY brand_id"

	var rows []domain.BrandMetrics
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load brand metrics: %w", err)
	}

	return rows, nil
}

// GetSummaries returns per-partition aggregates for a run. Postgres AVG
// skips NULLs, which matches the defined-metrics-only summary semantics.
func (r *MetricsRepository) GetSummaries(ctx context.Context, runID int64) ([]domain.PartitionSummary, error) {
	const query = `
		SELECT
			CASE WHEN is_outlier THEN 'outlier' ELSE 'core' END AS partition,
			COUNT(*) AS brand_count,
			AVG(turnover) AS mean_turnover,
			AVG(gmroi) AS mean_gmroi,
			AVG(dio) AS mean_dio,
			AVG(ccc) AS mean_ccc
		FROM brand_metrics
		WHERE run_id = $1
		GROUP BY is_outlier
		ORDER BY partition
	`

	var summaries []domain.PartitionSummary
	if err := r.db.SelectContext(ctx, &summaries, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load partition summaries: %w", err)
	}

	return summaries, nil
}
