package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/types"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, types.DBKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(types.DBKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func parsePeriod(c *cli.Context) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.String("period-start"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period-start: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.String("period-end"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period-end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("period-end must not be before period-start")
	}
	return start, end, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "vendormetrics",
		Usage: "Load dataset CSVs and compute per-brand inventory metrics",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "Load dataset CSV files into the source tables",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing dataset CSV files",
						Value:   "./data/csv",
						EnvVars: []string{"CSV_FOLDER_PATH"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runIngest,
			},
			{
				Name:  "run",
				Usage: "Compute brand metrics for an analysis period",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "period-start",
						Usage:    "Analysis period start (YYYY-MM-DD)",
						Required: true,
						EnvVars:  []string{"PERIOD_START"},
					},
					&cli.StringFlag{
						Name:     "period-end",
						Usage:    "Analysis period end (YYYY-MM-DD)",
						Required: true,
						EnvVars:  []string{"PERIOD_END"},
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Write the report CSV after the run completes",
						Value: false,
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Usage:   "Directory for exported report files",
						Value:   "./data/output",
						EnvVars: []string{"APP_OUTPUT_DIR"},
					},
				},
				Action: runMetrics,
			},
			{
				Name:  "export",
				Usage: "Export a completed run as a report CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{
						Name:     "run-id",
						Usage:    "Run to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Usage:   "Directory for exported report files",
						Value:   "./data/output",
						EnvVars: []string{"APP_OUTPUT_DIR"},
					},
					&cli.BoolFlag{
						Name:  "upload",
						Usage: "Archive the exported report to object storage",
						Value: false,
					},
				},
				Action: exportReport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
