package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/andresuchdata/vendormetrics/internal/config"
	"github.com/andresuchdata/vendormetrics/internal/ingest"
	"github.com/andresuchdata/vendormetrics/internal/types"
	"github.com/urfave/cli/v2"
)

// runIngest loads every dataset CSV found in the data directory.
func runIngest(c *cli.Context) error {
	db, ok := c.Context.Value(types.DBKey).(*sql.DB)
	if !ok || db == nil {
		return fmt.Errorf("database connection not initialized")
	}

	cfg := config.Load()
	ingestCfg := cfg.Ingest
	if dir := c.String("data-dir"); dir != "" {
		ingestCfg.CSVDir = dir
	}

	ingestor := ingest.NewIngestor(db, ingestCfg)
	summary, err := ingestor.IngestDir(c.Context, ingestCfg.CSVDir)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d dataset files failed: %s",
			summary.Failed, summary.TotalFiles, strings.Join(summary.FailedFiles, ", "))
	}
	if summary.Successful == 0 {
		return fmt.Errorf("no dataset CSV files found in %s", ingestCfg.CSVDir)
	}

	return nil
}
