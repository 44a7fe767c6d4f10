package metrics

import (
	"testing"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	midPeriod   = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
)

// fixtureInputs builds six brands. A through E hold inventory sized so their
// DIO comes out at exactly 10, 20, 30, 40 and 500 days; with IQR fences at
// [-10, 70] only E is an outlier. F has no sales, so its DIO is undefined and
// it stays in the core partition without joining the DIO distribution.
func fixtureInputs() Inputs {
	in := Inputs{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	brands := []struct {
		id  string
		inv float64
	}{
		{"BRAND-A", 10},
		{"BRAND-B", 20},
		{"BRAND-C", 30},
		{"BRAND-D", 40},
		{"BRAND-E", 500},
	}

	for _, b := range brands {
		in.Purchases = append(in.Purchases, domain.PurchaseRecord{
			VendorID:     "VENDOR-" + b.id,
			BrandID:      b.id,
			Quantity:     1000,
			UnitCost:     1,
			PurchaseDate: midPeriod,
		})
		// 365 units sold at unit cost 1 makes DIO equal the inventory level
		in.Sales = append(in.Sales, domain.SaleRecord{
			BrandID:      b.id,
			QuantitySold: 365,
			Revenue:      730,
			SaleDate:     midPeriod,
		})
		in.BeginInventory = append(in.BeginInventory, domain.InventorySnapshot{
			BrandID:        b.id,
			QuantityOnHand: b.inv,
			SnapshotDate:   periodStart,
		})
		in.EndInventory = append(in.EndInventory, domain.InventorySnapshot{
			BrandID:        b.id,
			QuantityOnHand: b.inv,
			SnapshotDate:   periodEnd,
		})
	}

	in.Purchases = append(in.Purchases, domain.PurchaseRecord{
		VendorID:     "VENDOR-BRAND-F",
		BrandID:      "BRAND-F",
		Quantity:     100,
		UnitCost:     1,
		PurchaseDate: midPeriod,
	})
	in.BeginInventory = append(in.BeginInventory, domain.InventorySnapshot{
		BrandID: "BRAND-F", QuantityOnHand: 50, SnapshotDate: periodStart,
	})
	in.EndInventory = append(in.EndInventory, domain.InventorySnapshot{
		BrandID: "BRAND-F", QuantityOnHand: 50, SnapshotDate: periodEnd,
	})

	// 30-day payment delay for brand A's vendor
	in.Invoices = append(in.Invoices, domain.VendorInvoice{
		VendorID:    "VENDOR-BRAND-A",
		InvoiceDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		PaymentDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	})

	return in
}

func TestAggregatePartitions(t *testing.T) {
	agg := NewAggregator()
	res, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)

	require.NotNil(t, res.LowerFence)
	require.NotNil(t, res.UpperFence)
	assert.InDelta(t, -10.0, *res.LowerFence, 1e-9)
	assert.InDelta(t, 70.0, *res.UpperFence, 1e-9)

	// Every brand lands in exactly one partition
	assert.Len(t, res.Core, 5)
	require.Len(t, res.Outliers, 1)
	assert.Equal(t, "BRAND-E", res.Outliers[0].BrandID)
	assert.True(t, res.Outliers[0].IsOutlier)

	seen := make(map[string]int)
	for _, m := range res.Core {
		assert.False(t, m.IsOutlier)
		seen[m.BrandID]++
	}
	for _, m := range res.Outliers {
		seen[m.BrandID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "brand %s must appear exactly once", id)
	}

	// Core rows come back ordered by brand_id
	coreIDs := make([]string, 0, len(res.Core))
	for _, m := range res.Core {
		coreIDs = append(coreIDs, m.BrandID)
	}
	assert.Equal(t, []string{"BRAND-A", "BRAND-B", "BRAND-C", "BRAND-D", "BRAND-F"}, coreIDs)
}

func TestAggregateSummaries(t *testing.T) {
	agg := NewAggregator()
	res, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)

	assert.Equal(t, "core", res.CoreSummary.Partition)
	assert.Equal(t, 5, res.CoreSummary.BrandCount)
	// Mean DIO over the four defined core values (10, 20, 30, 40); brand F
	// contributes nothing
	require.NotNil(t, res.CoreSummary.MeanDIO)
	assert.InDelta(t, 25.0, *res.CoreSummary.MeanDIO, 1e-9)

	assert.Equal(t, "outlier", res.OutlierSummary.Partition)
	assert.Equal(t, 1, res.OutlierSummary.BrandCount)
	require.NotNil(t, res.OutlierSummary.MeanDIO)
	assert.InDelta(t, 500.0, *res.OutlierSummary.MeanDIO, 1e-9)
}

func TestAggregateUndefinedDIOStaysCore(t *testing.T) {
	agg := NewAggregator()
	res, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)

	var brandF *domain.BrandMetrics
	for i := range res.Core {
		if res.Core[i].BrandID == "BRAND-F" {
			brandF = &res.Core[i]
		}
	}

	require.NotNil(t, brandF)
	assert.Nil(t, brandF.DIO)
	assert.False(t, brandF.IsOutlier)
}

func TestAggregateDPOAndCCC(t *testing.T) {
	agg := NewAggregator()
	res, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)

	byID := make(map[string]domain.BrandMetrics)
	for _, m := range append(res.Core, res.Outliers...) {
		byID[m.BrandID] = m
	}

	a := byID["BRAND-A"]
	require.NotNil(t, a.DPO)
	assert.InDelta(t, 30.0, *a.DPO, 1e-9)
	require.NotNil(t, a.DIO)
	require.NotNil(t, a.CCC)
	assert.InDelta(t, *a.DIO-*a.DPO, *a.CCC, 1e-9)

	// No invoices for brand B's vendor, so DPO and CCC are undefined
	b := byID["BRAND-B"]
	assert.Nil(t, b.DPO)
	assert.Nil(t, b.CCC)
}

func TestAggregateRejections(t *testing.T) {
	in := fixtureInputs()

	in.Purchases = append(in.Purchases, domain.PurchaseRecord{
		VendorID: "VENDOR-BRAND-A", BrandID: "BRAND-A",
		Quantity: -5, UnitCost: 1, PurchaseDate: midPeriod,
	})
	in.Sales = append(in.Sales,
		domain.SaleRecord{BrandID: "BRAND-A", QuantitySold: 10, Revenue: 20,
			SaleDate: periodEnd.AddDate(0, 1, 0)},
		domain.SaleRecord{BrandID: "BRAND-UNKNOWN", QuantitySold: 10, Revenue: 20,
			SaleDate: midPeriod},
	)
	in.EndInventory = append(in.EndInventory,
		domain.InventorySnapshot{BrandID: "BRAND-A", QuantityOnHand: 5, SnapshotDate: midPeriod},
		domain.InventorySnapshot{BrandID: "BRAND-UNKNOWN", QuantityOnHand: 5, SnapshotDate: periodEnd},
	)
	in.Invoices = append(in.Invoices,
		domain.VendorInvoice{VendorID: "VENDOR-UNKNOWN",
			InvoiceDate: midPeriod, PaymentDate: midPeriod.AddDate(0, 0, 10)},
		domain.VendorInvoice{VendorID: "VENDOR-BRAND-A"},
	)

	agg := NewAggregator()
	res, err := agg.Aggregate(in)
	require.NoError(t, err)

	rej := res.Rejections
	assert.Equal(t, 1, rej.MalformedPurchases)
	assert.Equal(t, 1, rej.MalformedSales)
	assert.Equal(t, 1, rej.MalformedSnapshots)
	assert.Equal(t, 1, rej.MalformedInvoices)
	assert.Equal(t, 1, rej.UnmatchedSales)
	assert.Equal(t, 1, rej.UnmatchedSnapshots)
	assert.Equal(t, 1, rej.UnmatchedInvoices)
	assert.Equal(t, 7, rej.Total())

	// Rejected records must not leak into the metrics
	byID := make(map[string]domain.BrandMetrics)
	for _, m := range append(res.Core, res.Outliers...) {
		byID[m.BrandID] = m
	}
	assert.NotContains(t, byID, "BRAND-UNKNOWN")
	assert.InDelta(t, 30.0, *byID["BRAND-A"].DPO, 1e-9)
	assert.Equal(t, 365.0, byID["BRAND-A"].UnitsSold)
}

func TestAggregateDeterministic(t *testing.T) {
	agg := NewAggregator()

	first, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)
	second, err := agg.Aggregate(fixtureInputs())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestAggregateInvalidPeriod(t *testing.T) {
	agg := NewAggregator()
	_, err := agg.Aggregate(Inputs{
		PeriodStart: periodEnd,
		PeriodEnd:   periodStart,
	})
	assert.Error(t, err)
}

func TestAggregateEmptyInputs(t *testing.T) {
	agg := NewAggregator()
	res, err := agg.Aggregate(Inputs{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Core)
	assert.Empty(t, res.Outliers)
	assert.Nil(t, res.LowerFence)
	assert.Nil(t, res.UpperFence)
	assert.Equal(t, 0, res.CoreSummary.BrandCount)
	assert.Nil(t, res.CoreSummary.MeanDIO)
}
