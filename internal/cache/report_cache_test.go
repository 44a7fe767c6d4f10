package cache

import (
	"context"
	"testing"

	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestReportFilterHashStable(t *testing.T) {
	a := domain.ReportFilter{
		RunID:     3,
		Partition: "core",
		BrandIDs:  []string{"B2", "B1"},
	}
	b := domain.ReportFilter{
		RunID:     3,
		Partition: "core",
		BrandIDs:  []string{"b1", " B2 "},
	}

	// Brand order, case and whitespace must not change the key
	assert.Equal(t, buildReportKey(a), buildReportKey(b))
}

func TestReportFilterHashDistinguishesFilters(t *testing.T) {
	base := domain.ReportFilter{RunID: 3}

	withPartition := base
	withPartition.Partition = "outlier"

	withBrands := base
	withBrands.BrandIDs = []string{"B1"}

	assert.NotEqual(t, buildReportKey(base), buildReportKey(withPartition))
	assert.NotEqual(t, buildReportKey(base), buildReportKey(withBrands))
	assert.NotEqual(t, buildReportKey(withPartition), buildReportKey(withBrands))
}

func TestReportFilterHashDefault(t *testing.T) {
	key := buildReportKey(domain.ReportFilter{RunID: 9})
	assert.Equal(t, "brand_metrics:report:9:default", key)
}

func TestNoopReportCache(t *testing.T) {
	c := NewNoopReportCache()

	_, ok, err := c.GetReport(context.Background(), domain.ReportFilter{RunID: 1})
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.SetReport(context.Background(), domain.ReportFilter{RunID: 1}, nil))
	assert.NoError(t, c.InvalidateRun(context.Background(), 1))
	assert.NoError(t, c.InvalidateAll(context.Background()))
}
