package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/config"
	"github.com/andresuchdata/vendormetrics/internal/pipeline"
	"github.com/rs/zerolog/log"
)

// Ingestor loads dataset CSVs into Postgres with full-replace semantics:
// each file load truncates the target table and inserts the parsed rows,
// so re-ingesting the same file is idempotent. Large files are committed
// chunk by chunk to keep transactions small.
type Ingestor struct {
	db         *sql.DB
	jobs       *pipeline.Repository
	chunkSize  int
	largeFiles map[string]struct{}
}

// NewIngestor creates an ingestor bound to the ingest config.
func NewIngestor(db *sql.DB, cfg config.IngestConfig) *Ingestor {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 5000
	}

	large := make(map[string]struct{}, len(cfg.LargeFiles))
	for _, name := range cfg.LargeFiles {
		large[strings.ToLower(name)] = struct{}{}
	}

	return &Ingestor{
		db:         db,
		jobs:       pipeline.NewRepository(db),
		chunkSize:  chunkSize,
		largeFiles: large,
	}
}

// Summary reports the outcome of a directory ingest.
type Summary struct {
	TotalFiles  int      `json:"total_files"`
	Successful  int      `json:"successful"`
	Failed      int      `json:"failed"`
	TotalRows   int      `json:"total_rows"`
	Rejected    int      `json:"rejected"`
	FailedFiles []string `json:"failed_files,omitempty"`
}

// IngestDir loads every recognized dataset CSV in dir. Unknown files are
// skipped with a warning. Per-file failures do not abort the remaining files.
func (i *Ingestor) IngestDir(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingest directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	summary := &Summary{}
	start := time.Now()

	for _, path := range paths {
		dataset, ok := DatasetForFile(path)
		if !ok {
			log.Warn().Str("file", filepath.Base(path)).Msg("skipping file with no matching dataset")
			continue
		}

		summary.TotalFiles++
		job, err := i.IngestFile(ctx, dataset, path)
		if err != nil {
			summary.Failed++
			summary.FailedFiles = append(summary.FailedFiles, filepath.Base(path))
			log.Error().Err(err).Str("file", filepath.Base(path)).Msg("dataset ingest failed")
			continue
		}

		summary.Successful++
		summary.TotalRows += job.RowCount
		summary.Rejected += job.RejectCount
	}

	log.Info().
		Int("files", summary.TotalFiles).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int("rows", summary.TotalRows).
		Int("rejected", summary.Rejected).
		Dur("elapsed", time.Since(start)).
		Msg("ingest run finished")

	return summary, nil
}

// IngestFile loads a single CSV into its dataset table and records an
// ingest job for it.
func (i *Ingestor) IngestFile(ctx context.Context, dataset Dataset, path string) (*pipeline.IngestJob, error) {
	job := &pipeline.IngestJob{
		Dataset:  string(dataset),
		FilePath: path,
		Status:   pipeline.IngestStatusQueued,
	}
	if err := i.jobs.CreateIngestJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create ingest job: %w", err)
	}

	job.Status = pipeline.IngestStatusProcessing
	if err := i.jobs.UpdateIngestJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update ingest job: %w", err)
	}

	parsed, err := i.load(ctx, dataset, path)

	now := time.Now()
	job.ProcessedAt = &now
	if err != nil {
		job.Status = pipeline.IngestStatusFailed
		job.ErrorMessage = err.Error()
		if uerr := i.jobs.UpdateIngestJob(ctx, job); uerr != nil {
			log.Error().Err(uerr).Int64("job_id", job.ID).Msg("failed to mark ingest job failed")
		}
		return nil, err
	}

	job.Status = pipeline.IngestStatusCompleted
	job.RowCount = parsed.Rows - parsed.Rejected
	job.RejectCount = parsed.Rejected
	if err := i.jobs.UpdateIngestJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to complete ingest job: %w", err)
	}

	log.Info().
		Str("dataset", string(dataset)).
		Str("file", filepath.Base(path)).
		Int("rows", job.RowCount).
		Int("rejected", job.RejectCount).
		Msg("dataset ingested")

	return job, nil
}

func (i *Ingestor) load(ctx context.Context, dataset Dataset, path string) (*ParsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := ParseCSV(dataset, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	if parsed.Rejected > 0 {
		log.Warn().
			Str("dataset", string(dataset)).
			Int("rejected", parsed.Rejected).
			Msg("dropped unparseable rows")
	}

	if err := i.replace(ctx, dataset, parsed, strings.ToLower(filepath.Base(path))); err != nil {
		return nil, err
	}

	return parsed, nil
}

// replace truncates the dataset table and inserts the parsed rows. Files
// flagged as large commit one chunk per transaction instead of holding a
// single transaction across the whole load.
func (i *Ingestor) replace(ctx context.Context, dataset Dataset, parsed *ParsedFile, filename string) error {
	total := rowCount(parsed)
	_, chunked := i.largeFiles[filename]

	if !chunked {
		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(dataset)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", dataset, err)
		}
		if err := insertRows(ctx, tx, dataset, parsed, 0, total); err != nil {
			return err
		}
		return tx.Commit()
	}

	// Chunked path: the delete rides with the first chunk so a crash before
	// any commit leaves the previous load intact.
	for offset := 0; offset < total || offset == 0; offset += i.chunkSize {
		end := offset + i.chunkSize
		if end > total {
			end = total
		}

		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if offset == 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(dataset)); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to clear %s: %w", dataset, err)
			}
		}
		if err := insertRows(ctx, tx, dataset, parsed, offset, end); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit chunk: %w", err)
		}

		log.Debug().
			Str("dataset", string(dataset)).
			Int("loaded", end).
			Int("total", total).
			Msg("committed ingest chunk")
	}

	return nil
}

func rowCount(parsed *ParsedFile) int {
	switch parsed.Dataset {
	case DatasetPurchases:
		return len(parsed.Purchases)
	case DatasetSales:
		return len(parsed.Sales)
	case DatasetBeginInventory, DatasetEndInventory:
		return len(parsed.Snapshots)
	case DatasetVendorInvoices:
		return len(parsed.Invoices)
	}
	return 0
}

func insertRows(ctx context.Context, tx *sql.Tx, dataset Dataset, parsed *ParsedFile, from, to int) error {
	var (
		stmt *sql.Stmt
		err  error
	)

	switch dataset {
	case DatasetPurchases:
		stmt, err = tx.PrepareContext(ctx, `
			INSERT INTO purchases (vendor_id, brand_id, quantity, unit_cost, purchase_date)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range parsed.Purchases[from:to] {
			if _, err := stmt.ExecContext(ctx, rec.VendorID, rec.BrandID, rec.Quantity, rec.UnitCost, rec.PurchaseDate); err != nil {
				return fmt.Errorf("failed to insert purchase row: %w", err)
			}
		}

	case DatasetSales:
		stmt, err = tx.PrepareContext(ctx, `
			INSERT INTO sales (brand_id, quantity_sold, revenue, sale_date)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range parsed.Sales[from:to] {
			if _, err := stmt.ExecContext(ctx, rec.BrandID, rec.QuantitySold, rec.Revenue, rec.SaleDate); err != nil {
				return fmt.Errorf("failed to insert sale row: %w", err)
			}
		}

	case DatasetBeginInventory, DatasetEndInventory:
		stmt, err = tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (brand_id, quantity_on_hand, snapshot_date)
			VALUES ($1, $2, $3)
		`, dataset))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range parsed.Snapshots[from:to] {
			var snapshotDate interface{}
			if !rec.SnapshotDate.IsZero() {
				snapshotDate = rec.SnapshotDate
			}
			if _, err := stmt.ExecContext(ctx, rec.BrandID, rec.QuantityOnHand, snapshotDate); err != nil {
				return fmt.Errorf("failed to insert inventory row: %w", err)
			}
		}

	case DatasetVendorInvoices:
		stmt, err = tx.PrepareContext(ctx, `
			INSERT INTO vendor_invoices (vendor_id, invoice_date, payment_date)
			VALUES ($1, $2, $3)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range parsed.Invoices[from:to] {
			if _, err := stmt.ExecContext(ctx, rec.VendorID, rec.InvoiceDate, rec.PaymentDate); err != nil {
				return fmt.Errorf("failed to insert invoice row: %w", err)
			}
		}

	default:
		return fmt.Errorf("unknown dataset %q", dataset)
	}

	return nil
}
