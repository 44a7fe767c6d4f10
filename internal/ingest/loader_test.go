package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetForFile(t *testing.T) {
	tests := []struct {
		path    string
		dataset Dataset
		ok      bool
	}{
		{"purchases.csv", DatasetPurchases, true},
		{"/data/csv/sales.csv", DatasetSales, true},
		{"begin-inventory.csv", DatasetBeginInventory, true},
		{"Begin_Inventory.CSV", DatasetBeginInventory, true},
		{"end_inventory.csv", DatasetEndInventory, true},
		{"vendor_invoices.csv", DatasetVendorInvoices, true},
		{"unknown.csv", "", false},
		{"purchases.txt", DatasetPurchases, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			dataset, ok := DatasetForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.dataset, dataset)
			}
		})
	}
}

func TestParseCSVPurchases(t *testing.T) {
	csvData := `vendor_id,brand_id,quantity,unit_cost,purchase_date
V1,B1,10,2.50,2024-01-15
V2,B1,"1,000",3.00,2024-02-20
V1,B2,5,4.00,not-a-date
,B3,5,4.00,2024-03-01
`

	parsed, err := ParseCSV(DatasetPurchases, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 4, parsed.Rows)
	assert.Equal(t, 2, parsed.Rejected)
	require.Len(t, parsed.Purchases, 2)

	first := parsed.Purchases[0]
	assert.Equal(t, "V1", first.VendorID)
	assert.Equal(t, "B1", first.BrandID)
	assert.Equal(t, 10.0, first.Quantity)
	assert.Equal(t, 2.5, first.UnitCost)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.PurchaseDate)

	// Thousands separators in quoted numerics are accepted
	assert.Equal(t, 1000.0, parsed.Purchases[1].Quantity)
}

func TestParseCSVHeaderVariants(t *testing.T) {
	// Header matching ignores case, spaces and separators
	csvData := `Brand ID,Quantity Sold,Revenue,Sale Date
B1,20,150.75,2024-05-01
`

	parsed, err := ParseCSV(DatasetSales, strings.NewReader(csvData))
	require.NoError(t, err)

	require.Len(t, parsed.Sales, 1)
	assert.Equal(t, "B1", parsed.Sales[0].BrandID)
	assert.Equal(t, 20.0, parsed.Sales[0].QuantitySold)
	assert.Equal(t, 150.75, parsed.Sales[0].Revenue)
}

func TestParseCSVSnapshotsMissingDate(t *testing.T) {
	csvData := `brand_id,quantity_on_hand,snapshot_date
B1,50,2024-12-31
B2,30,
`

	parsed, err := ParseCSV(DatasetEndInventory, strings.NewReader(csvData))
	require.NoError(t, err)

	// A missing snapshot date is not a parse rejection; the aggregation
	// defaults it to the period endpoint
	assert.Equal(t, 0, parsed.Rejected)
	require.Len(t, parsed.Snapshots, 2)
	assert.False(t, parsed.Snapshots[0].SnapshotDate.IsZero())
	assert.True(t, parsed.Snapshots[1].SnapshotDate.IsZero())
}

func TestParseCSVInvoices(t *testing.T) {
	csvData := `vendor_id,invoice_date,payment_date
V1,2024-02-01,2024-03-02
V2,2024-02-01,
`

	parsed, err := ParseCSV(DatasetVendorInvoices, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 1, parsed.Rejected)
	require.Len(t, parsed.Invoices, 1)
	assert.Equal(t, "V1", parsed.Invoices[0].VendorID)
	assert.Equal(t, 30.0, parsed.Invoices[0].PaymentDate.Sub(parsed.Invoices[0].InvoiceDate).Hours()/24)
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV(DatasetPurchases, strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseDatasetName(t *testing.T) {
	dataset, ok := ParseDatasetName("  Vendor-Invoices ")
	require.True(t, ok)
	assert.Equal(t, DatasetVendorInvoices, dataset)

	_, ok = ParseDatasetName("orders")
	assert.False(t, ok)
}
