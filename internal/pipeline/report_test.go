package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func sampleReport() *domain.MetricsReport {
	return &domain.MetricsReport{
		RunID:       7,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Core: []domain.BrandMetrics{
			{
				BrandID:           "BRAND-A",
				WeightedAvgCost:   floatPtr(2.75),
				COGS:              floatPtr(55),
				Revenue:           100,
				UnitsSold:         20,
				AvgInventoryValue: floatPtr(82.5),
				Turnover:          floatPtr(0.6666666666666666),
				DIO:               floatPtr(547.5),
				GMROI:             floatPtr(0.5454545454545454),
			},
			{
				// No purchases: every derived metric is undefined
				BrandID:   "BRAND-B",
				Revenue:   40,
				UnitsSold: 8,
			},
		},
		Outliers: []domain.BrandMetrics{
			{
				BrandID:   "BRAND-Z",
				Revenue:   10,
				UnitsSold: 1,
				DIO:       floatPtr(900),
				IsOutlier: true,
			},
		},
	}
}

func TestWriteReportCSV(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReportCSV(dir, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brand_metrics_run_7.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, reportHeader, records[0])

	// Core rows come first, outliers after
	assert.Equal(t, "BRAND-A", records[1][0])
	assert.Equal(t, "core", records[1][11])
	assert.Equal(t, "2.75", records[1][1])

	// Undefined metrics render as empty fields, not "0" or "NaN"
	assert.Equal(t, "BRAND-B", records[2][0])
	assert.Equal(t, "", records[2][1])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "40", records[2][3])

	assert.Equal(t, "BRAND-Z", records[3][0])
	assert.Equal(t, "outlier", records[3][11])
}

func TestWriteReportCSVDeterministic(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	pathA, err := WriteReportCSV(dirA, sampleReport())
	require.NoError(t, err)
	pathB, err := WriteReportCSV(dirB, sampleReport())
	require.NoError(t, err)

	bytesA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(pathB)
	require.NoError(t, err)

	assert.Equal(t, bytesA, bytesB)
}
