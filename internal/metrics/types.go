package metrics

import (
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
)

// Inputs holds the five source datasets for a single analysis period.
// Snapshot dates are treated as fixed period endpoints: BeginInventory rows
// belong to PeriodStart, EndInventory rows to PeriodEnd.
type Inputs struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	Purchases      []domain.PurchaseRecord
	Sales          []domain.SaleRecord
	BeginInventory []domain.InventorySnapshot
	EndInventory   []domain.InventorySnapshot
	Invoices       []domain.VendorInvoice
}

// BrandInput holds the per-brand sums the Calculator works from.
type BrandInput struct {
	PurchasedQty  float64 // sum of purchase quantities in the period
	PurchaseValue float64 // sum of quantity * unit_cost
	UnitsSold     float64
	Revenue       float64
	BeginQty      float64 // on-hand quantity at period start
	EndQty        float64 // on-hand quantity at period end
	DPO           *float64
}

// Result is the partitioned output of one aggregation pass.
type Result struct {
	Core     []domain.BrandMetrics
	Outliers []domain.BrandMetrics

	CoreSummary    domain.PartitionSummary
	OutlierSummary domain.PartitionSummary

	// IQR fences applied to the DIO distribution; nil when no brand had a
	// defined DIO.
	LowerFence *float64
	UpperFence *float64

	Rejections domain.RejectionReport
}
