package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
)

// Dataset identifies one of the five source tables.
type Dataset string

const (
	DatasetPurchases      Dataset = "purchases"
	DatasetSales          Dataset = "sales"
	DatasetBeginInventory Dataset = "begin_inventory"
	DatasetEndInventory   Dataset = "end_inventory"
	DatasetVendorInvoices Dataset = "vendor_invoices"
)

// Datasets lists all datasets in ingestion order.
var Datasets = []Dataset{
	DatasetPurchases,
	DatasetSales,
	DatasetBeginInventory,
	DatasetEndInventory,
	DatasetVendorInvoices,
}

// ParseDatasetName normalizes a table or query value into a Dataset.
func ParseDatasetName(raw string) (Dataset, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, "-", "_")
	for _, d := range Datasets {
		if name == string(d) {
			return d, true
		}
	}
	return "", false
}

// DatasetForFile derives the target dataset from a CSV filename, e.g.
// "begin-inventory.csv" -> begin_inventory.
func DatasetForFile(path string) (Dataset, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return ParseDatasetName(base)
}

// ParsedFile holds the typed rows of one parsed CSV file. Only the slice
// matching Dataset is populated.
type ParsedFile struct {
	Dataset   Dataset
	Purchases []domain.PurchaseRecord
	Sales     []domain.SaleRecord
	Snapshots []domain.InventorySnapshot
	Invoices  []domain.VendorInvoice

	// Rows counts data records read; Rejected counts records dropped for
	// unparseable values or missing keys.
	Rows     int
	Rejected int
}

// ParseCSV reads one dataset CSV. Header names are matched loosely (case,
// spaces, underscores and dots are ignored), so exports from different
// systems load without renaming columns. Malformed records are counted and
// skipped, never fatal.
func ParseCSV(dataset Dataset, r io.Reader) (*ParsedFile, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumnName(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumnName(h)]; ok {
				return i
			}
		}
		return -1
	}

	out := &ParsedFile{Dataset: dataset}

	var consume func(record []string) bool
	switch dataset {
	case DatasetPurchases:
		idxVendor := colIndex("vendor_id", "vendor")
		idxBrand := colIndex("brand_id", "brand")
		idxQty := colIndex("quantity", "qty")
		idxCost := colIndex("unit_cost", "cost")
		idxDate := colIndex("purchase_date", "date")
		consume = func(record []string) bool {
			date, ok := parseDate(get(record, idxDate))
			vendorID := get(record, idxVendor)
			brandID := get(record, idxBrand)
			if !ok || vendorID == "" || brandID == "" {
				return false
			}
			out.Purchases = append(out.Purchases, domain.PurchaseRecord{
				VendorID:     vendorID,
				BrandID:      brandID,
				Quantity:     parseFloat(get(record, idxQty)),
				UnitCost:     parseFloat(get(record, idxCost)),
				PurchaseDate: date,
			})
			return true
		}

	case DatasetSales:
		idxBrand := colIndex("brand_id", "brand")
		idxQty := colIndex("quantity_sold", "qty_sold", "quantity")
		idxRevenue := colIndex("revenue", "sales_dollars")
		idxDate := colIndex("sale_date", "date")
		consume = func(record []string) bool {
			date, ok := parseDate(get(record, idxDate))
			brandID := get(record, idxBrand)
			if !ok || brandID == "" {
				return false
			}
			out.Sales = append(out.Sales, domain.SaleRecord{
				BrandID:      brandID,
				QuantitySold: parseFloat(get(record, idxQty)),
				Revenue:      parseFloat(get(record, idxRevenue)),
				SaleDate:     date,
			})
			return true
		}

	case DatasetBeginInventory, DatasetEndInventory:
		idxBrand := colIndex("brand_id", "brand")
		idxQty := colIndex("quantity_on_hand", "on_hand", "quantity")
		idxDate := colIndex("snapshot_date", "date")
		consume = func(record []string) bool {
			brandID := get(record, idxBrand)
			if brandID == "" {
				return false
			}
			// Snapshot dates are optional; missing ones default to the
			// period endpoint downstream.
			date, _ := parseDate(get(record, idxDate))
			out.Snapshots = append(out.Snapshots, domain.InventorySnapshot{
				BrandID:        brandID,
				QuantityOnHand: parseFloat(get(record, idxQty)),
				SnapshotDate:   date,
			})
			return true
		}

	case DatasetVendorInvoices:
		idxVendor := colIndex("vendor_id", "vendor")
		idxInvoice := colIndex("invoice_date")
		idxPayment := colIndex("payment_date", "pay_date")
		consume = func(record []string) bool {
			vendorID := get(record, idxVendor)
			invoiceDate, okInv := parseDate(get(record, idxInvoice))
			paymentDate, okPay := parseDate(get(record, idxPayment))
			if vendorID == "" || !okInv || !okPay {
				return false
			}
			out.Invoices = append(out.Invoices, domain.VendorInvoice{
				VendorID:    vendorID,
				InvoiceDate: invoiceDate,
				PaymentDate: paymentDate,
			})
			return true
		}

	default:
		return nil, fmt.Errorf("unknown dataset %q", dataset)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		out.Rows++
		if !consume(record) {
			out.Rejected++
		}
	}

	return out, nil
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

func get(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloat(v string) float64 {
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2/1/2006",
	"2/1/06 15:04",
	time.RFC3339,
}

func parseDate(v string) (time.Time, bool) {
	if v == "" || v == "0000-00-00 00:00:00" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
