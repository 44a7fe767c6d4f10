package pipeline

import (
	"context"
	"database/sql"
	"time"
)

// Repository handles database operations for run and ingest tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new metrics run record
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO metric_runs (
			period_start, period_end, status, total_brands, outlier_brands,
			processed_rows, rejected_rows, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		run.PeriodStart, run.PeriodEnd, run.Status, run.TotalBrands,
		run.OutlierBrands, run.ProcessedRows, run.RejectedRows, run.StartedAt,
	).Scan(&run.ID)

	return err
}

// UpdateRun updates an existing metrics run
func (r *Repository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE metric_runs
		SET status = $1, total_brands = $2, outlier_brands = $3,
		    processed_rows = $4, rejected_rows = $5,
		    completed_at = $6, error_message = $7
		WHERE id = $8
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TotalBrands, run.OutlierBrands,
		run.ProcessedRows, run.RejectedRows,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)

	return err
}

// GetRun retrieves a metrics run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `
		SELECT id, period_start, period_end, status, total_brands, outlier_brands,
		       processed_rows, rejected_rows, started_at, completed_at, error_message
		FROM metric_runs
		WHERE id = $1
	`

	run := &Run{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.PeriodStart, &run.PeriodEnd, &run.Status,
		&run.TotalBrands, &run.OutlierBrands, &run.ProcessedRows, &run.RejectedRows,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// GetRunByPeriod retrieves the run for an exact analysis period
func (r *Repository) GetRunByPeriod(ctx context.Context, start, end time.Time) (*Run, error) {
	query := `
		SELECT id, period_start, period_end, status, total_brands, outlier_brands,
		       processed_rows, rejected_rows, started_at, completed_at, error_message
		FROM metric_runs
		WHERE period_start = $1 AND period_end = $2
	`

	run := &Run{}
	err := r.db.QueryRowContext(ctx, query, start, end).Scan(
		&run.ID, &run.PeriodStart, &run.PeriodEnd, &run.Status,
		&run.TotalBrands, &run.OutlierBrands, &run.ProcessedRows, &run.RejectedRows,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns retrieves run history, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, period_start, period_end, status, total_brands, outlier_brands,
		       processed_rows, rejected_rows, started_at, completed_at, error_message
		FROM metric_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID, &run.PeriodStart, &run.PeriodEnd, &run.Status,
			&run.TotalBrands, &run.OutlierBrands, &run.ProcessedRows, &run.RejectedRows,
			&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CreateIngestJob creates a new ingest job record
func (r *Repository) CreateIngestJob(ctx context.Context, job *IngestJob) error {
	query := `
		INSERT INTO ingest_jobs (
			dataset, file_path, status, row_count, reject_count, error_message
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		job.Dataset, job.FilePath, job.Status, job.RowCount, job.RejectCount, job.ErrorMessage,
	).Scan(&job.ID)

	return err
}

// UpdateIngestJob updates an existing ingest job
func (r *Repository) UpdateIngestJob(ctx context.Context, job *IngestJob) error {
	query := `
		UPDATE ingest_jobs
		SET status = $1, row_count = $2, reject_count = $3,
		    error_message = $4, processed_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(
		ctx, query,
		job.Status, job.RowCount, job.RejectCount, job.ErrorMessage, job.ProcessedAt, job.ID,
	)

	return err
}

// ListIngestJobs retrieves recent ingest jobs for a dataset; an empty
// dataset returns jobs for all datasets.
func (r *Repository) ListIngestJobs(ctx context.Context, dataset string, limit int) ([]*IngestJob, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, dataset, file_path, status, row_count, reject_count,
		       error_message, processed_at
		FROM ingest_jobs
		WHERE ($1 = '' OR dataset = $1)
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*IngestJob
	for rows.Next() {
		job := &IngestJob{}
		err := rows.Scan(
			&job.ID, &job.Dataset, &job.FilePath, &job.Status,
			&job.RowCount, &job.RejectCount, &job.ErrorMessage, &job.ProcessedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
