package metrics

import "github.com/andresuchdata/vendormetrics/internal/domain"

// daysPerYear annualizes inventory turnover into DIO.
const daysPerYear = 365

// Calculator computes the inventory-efficiency metrics for a single brand.
// Zero denominators yield nil metrics, never NaN or Inf.
type Calculator struct{}

// NewCalculator creates a new brand metrics calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes all efficiency metrics for one brand from its period sums
func (c *Calculator) Calculate(brandID string, in BrandInput) domain.BrandMetrics {
	m := domain.BrandMetrics{
		BrandID:   brandID,
		Revenue:   in.Revenue,
		UnitsSold: in.UnitsSold,
		DPO:       in.DPO,
	}

	// 1. Weighted average unit cost = sum(qty x unit_cost) / sum(qty).
	//    Undefined when the brand had no purchased quantity in the period.
	if in.PurchasedQty > 0 {
		wac := in.PurchaseValue / in.PurchasedQty
		m.WeightedAvgCost = &wac

		// 2. COGS applies the brand-level weighted cost to brand unit sales
		cogs := in.UnitsSold * wac
		m.COGS = &cogs

		// 3. Average inventory value = mean of begin and end snapshot valuations
		avgInv := (in.BeginQty*wac + in.EndQty*wac) / 2
		m.AvgInventoryValue = &avgInv

		if avgInv != 0 {
			// 4. Inventory turnover
			turnover := cogs / avgInv
			m.Turnover = &turnover

			// 5. DIO, undefined when turnover is zero
			if turnover != 0 {
				dio := daysPerYear / turnover
				m.DIO = &dio
			}

			// 6. GMROI = gross margin / average inventory value
			gmroi := (in.Revenue - cogs) / avgInv
			m.GMROI = &gmroi
		}
	}

	// 7. CCC = DIO - DPO, defined only when both components are
	if m.DIO != nil && m.DPO != nil {
		ccc := *m.DIO - *m.DPO
		m.CCC = &ccc
	}

	return m
}
