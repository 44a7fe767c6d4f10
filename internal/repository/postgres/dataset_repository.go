package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
)

// DatasetRepository reads the five source tables for an analysis period.
type DatasetRepository struct {
	db *DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// LoadPurchases returns all purchase records dated inside the period.
func (r *DatasetRepository) LoadPurchases(ctx context.Context, start, end time.Time) ([]domain.PurchaseRecord, error) {
	const query = `
		SELECT vendor_id, brand_id, quantity, unit_cost, purchase_date
		FROM purchases
		WHERE purchase_date >= $1 AND purchase_date <= $2
		ORDER BY brand_id, purchase_date, vendor_id
	`

	var records []domain.PurchaseRecord
	if err := r.db.SelectContext(ctx, &records, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to load purchases: %w", err)
	}

	return records, nil
}

// LoadSales returns all sale records dated inside the period.
func (r *DatasetRepository) LoadSales(ctx context.Context, start, end time.Time) ([]domain.SaleRecord, error) {
	const query = `
		SELECT brand_id, quantity_sold, revenue, sale_date
		FROM sales
		WHERE sale_date >= $1 AND sale_date <= $2
		ORDER BY brand_id, sale_date
	`

	var records []domain.SaleRecord
	if err := r.db.SelectContext(ctx, &records, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	return records, nil
}

// LoadBeginInventory returns the period-start snapshot rows.
func (r *DatasetRepository) LoadBeginInventory(ctx context.Context) ([]domain.InventorySnapshot, error) {
	return r.loadSnapshots(ctx, "begin_inventory")
}

// LoadEndInventory returns the period-end snapshot rows.
func (r *DatasetRepository) LoadEndInventory(ctx context.Context) ([]domain.InventorySnapshot, error) {
	return r.loadSnapshots(ctx, "end_inventory")
}

func (r *DatasetRepository) loadSnapshots(ctx context.Context, table string) ([]domain.InventorySnapshot, error) {
	query := fmt.Sprintf(`
		SELECT brand_id, quantity_on_hand, snapshot_date
		FROM %s
		ORDER BY brand_id
	`, table)

	var records []domain.InventorySnapshot
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}

	return records, nil
}

// LoadInvoices returns all vendor invoices dated inside the period.
func (r *DatasetRepository) LoadInvoices(ctx context.Context, start, end time.Time) ([]domain.VendorInvoice, error) {
	const query = `
		SELECT vendor_id, invoice_date, payment_date
		FROM vendor_invoices
		WHERE invoice_date >= $1 AND invoice_date <= $2
		ORDER BY vendor_id, invoice_date
	`

	var records []domain.VendorInvoice
	if err := r.db.SelectContext(ctx, &records, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to load vendor invoices: %w", err)
	}

	return records, nil
}
