// internal/domain/models.go
package domain

import "time"

// PurchaseRecord represents a single vendor purchase line
type PurchaseRecord struct {
	VendorID     string    `json:"vendor_id" db:"vendor_id"`
	BrandID      string    `json:"brand_id" db:"brand_id"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	UnitCost     float64   `json:"unit_cost" db:"unit_cost"`
	PurchaseDate time.Time `json:"purchase_date" db:"purchase_date"`
}

// SaleRecord represents aggregated sales for a brand on a date
type SaleRecord struct {
	BrandID      string    `json:"brand_id" db:"brand_id"`
	QuantitySold float64   `json:"quantity_sold" db:"quantity_sold"`
	Revenue      float64   `json:"revenue" db:"revenue"`
	SaleDate     time.Time `json:"sale_date" db:"sale_date"`
}

// InventorySnapshot represents on-hand quantity for a brand at a period endpoint
type InventorySnapshot struct {
	BrandID        string    `json:"brand_id" db:"brand_id"`
	QuantityOnHand float64   `json:"quantity_on_hand" db:"quantity_on_hand"`
	SnapshotDate   time.Time `json:"snapshot_date" db:"snapshot_date"`
}

// VendorInvoice represents a vendor invoice with its payment date
type VendorInvoice struct {
	VendorID    string    `json:"vendor_id" db:"vendor_id"`
	InvoiceDate time.Time `json:"invoice_date" db:"invoice_date"`
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
}

// BrandMetrics holds the derived inventory-efficiency metrics for one brand
// in one analysis period. Nil pointers mean the metric is undefined for the
// brand (zero denominator or missing inputs), never NaN or Inf.
type BrandMetrics struct {
	BrandID           string   `json:"brand_id" db:"brand_id"`
	WeightedAvgCost   *float64 `json:"weighted_avg_cost" db:"weighted_avg_cost"`
	COGS              *float64 `json:"cogs" db:"cogs"`
	Revenue           float64  `json:"revenue" db:"revenue"`
	UnitsSold         float64  `json:"units_sold" db:"units_sold"`
	AvgInventoryValue *float64 `json:"avg_inventory_value" db:"avg_inventory_value"`
	Turnover          *float64 `json:"turnover" db:"turnover"`
	DIO               *float64 `json:"dio" db:"dio"`
	GMROI             *float64 `json:"gmroi" db:"gmroi"`
	DPO               *float64 `json:"dpo" db:"dpo"`
	CCC               *float64 `json:"ccc" db:"ccc"`
	IsOutlier         bool     `json:"is_outlier" db:"is_outlier"`
}

// PartitionSummary holds aggregate statistics over one partition of the
// brand set. Means are computed only over brands where the metric is defined.
type PartitionSummary struct {
	Partition    string   `json:"partition" db:"partition"`
	BrandCount   int      `json:"brand_count" db:"brand_count"`
	MeanTurnover *float64 `json:"mean_turnover" db:"mean_turnover"`
	MeanGMROI    *float64 `json:"mean_gmroi" db:"mean_gmroi"`
	MeanDIO      *float64 `json:"mean_dio" db:"mean_dio"`
	MeanCCC      *float64 `json:"mean_ccc" db:"mean_ccc"`
}

// RejectionReport counts records excluded from aggregation, by cause.
// Malformed covers negative quantities and dates outside the analysis
// period; unmatched covers foreign keys with no purchase-side counterpart.
type RejectionReport struct {
	MalformedPurchases int `json:"malformed_purchases"`
	MalformedSales     int `json:"malformed_sales"`
	MalformedSnapshots int `json:"malformed_snapshots"`
	MalformedInvoices  int `json:"malformed_invoices"`
	UnmatchedSales     int `json:"unmatched_sales"`
	UnmatchedSnapshots int `json:"unmatched_snapshots"`
	UnmatchedInvoices  int `json:"unmatched_invoices"`
}

// Total returns the total number of rejected records.
func (r RejectionReport) Total() int {
	return r.MalformedPurchases + r.MalformedSales + r.MalformedSnapshots +
		r.MalformedInvoices + r.UnmatchedSales + r.UnmatchedSnapshots +
		r.UnmatchedInvoices
}

// MetricsReport is the full partitioned output of one metrics run.
type MetricsReport struct {
	RunID          int64            `json:"run_id"`
	PeriodStart    time.Time        `json:"period_start"`
	PeriodEnd      time.Time        `json:"period_end"`
	Core           []BrandMetrics   `json:"core"`
	Outliers       []BrandMetrics   `json:"outliers"`
	CoreSummary    PartitionSummary `json:"core_summary"`
	OutlierSummary PartitionSummary `json:"outlier_summary"`
	Rejections     RejectionReport  `json:"rejections"`
}

// ReportFilter represents filters for metrics report queries
type ReportFilter struct {
	RunID     int64
	Partition string // core, outlier, or empty for all
	BrandIDs  []string
}
