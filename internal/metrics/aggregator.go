package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/rs/zerolog/log"
)

// brandAccumulator collects per-brand sums while records are consumed.
type brandAccumulator struct {
	purchasedQty  float64
	purchaseValue float64
	unitsSold     float64
	revenue       float64
	beginQty      float64
	endQty        float64
	vendors       map[string]struct{}
}

// Aggregator turns the five source datasets into partitioned BrandMetrics.
// Aggregation is pure and deterministic: the same Inputs always produce the
// same Result, with brands ordered by brand_id.
type Aggregator struct {
	calc *Calculator
}

// NewAggregator creates a new vendor metrics aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{calc: NewCalculator()}
}

// Aggregate computes BrandMetrics for every brand seen in the purchase data,
// classifies outliers on the DIO distribution, and reports rejected records.
// Data-quality problems degrade individual metrics to null; they never fail
// the run.
func (a *Aggregator) Aggregate(in Inputs) (*Result, error) {
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, fmt.Errorf("period end %s before period start %s",
			in.PeriodEnd.Format("2006-01-02"), in.PeriodStart.Format("2006-01-02"))
	}

	var rej domain.RejectionReport

	// The brand universe comes from the purchase records; sales, snapshots
	// and invoices referencing anything else are referential mismatches.
	brands := make(map[string]*brandAccumulator)
	knownVendors := make(map[string]struct{})

	for _, p := range in.Purchases {
		if p.Quantity < 0 || p.UnitCost < 0 || a.outsidePeriod(in, p.PurchaseDate) {
			rej.MalformedPurchases++
			continue
		}
		acc := a.brandFor(brands, p.BrandID)
		acc.purchasedQty += p.Quantity
		acc.purchaseValue += p.Quantity * p.UnitCost
		acc.vendors[p.VendorID] = struct{}{}
		knownVendors[p.VendorID] = struct{}{}
	}

	for _, s := range in.Sales {
		if s.QuantitySold < 0 || a.outsidePeriod(in, s.SaleDate) {
			rej.MalformedSales++
			continue
		}
		acc, ok := brands[s.BrandID]
		if !ok {
			rej.UnmatchedSales++
			log.Warn().Str("brand_id", s.BrandID).Msg("sale references brand with no purchases, dropped")
			continue
		}
		acc.unitsSold += s.QuantitySold
		acc.revenue += s.Revenue
	}

	a.consumeSnapshots(brands, in.BeginInventory, in.PeriodStart, &rej, func(acc *brandAccumulator, qty float64) {
		acc.beginQty += qty
	})
	a.consumeSnapshots(brands, in.EndInventory, in.PeriodEnd, &rej, func(acc *brandAccumulator, qty float64) {
		acc.endQty += qty
	})

	// Vendor-level payment delays in days. A brand sourced from several
	// vendors pools all their invoices, which is the invoice-count-weighted
	// mean across vendors.
	vendorDelays := make(map[string][]float64)
	for _, inv := range in.Invoices {
		if inv.InvoiceDate.IsZero() || inv.PaymentDate.IsZero() {
			rej.MalformedInvoices++
			continue
		}
		if _, ok := knownVendors[inv.VendorID]; !ok {
			rej.UnmatchedInvoices++
			log.Warn().Str("vendor_id", inv.VendorID).Msg("invoice references vendor with no purchases, dropped")
			continue
		}
		days := inv.PaymentDate.Sub(inv.InvoiceDate).Hours() / 24
		vendorDelays[inv.VendorID] = append(vendorDelays[inv.VendorID], days)
	}

	// Compute per-brand metrics in deterministic brand order
	brandIDs := make([]string, 0, len(brands))
	for id := range brands {
		brandIDs = append(brandIDs, id)
	}
	sort.Strings(brandIDs)

	all := make([]domain.BrandMetrics, 0, len(brandIDs))
	dioSample := make([]float64, 0, len(brandIDs))
	for _, id := range brandIDs {
		acc := brands[id]
		m := a.calc.Calculate(id, BrandInput{
			PurchasedQty:  acc.purchasedQty,
			PurchaseValue: acc.purchaseValue,
			UnitsSold:     acc.unitsSold,
			Revenue:       acc.revenue,
			BeginQty:      acc.beginQty,
			EndQty:        acc.endQty,
			DPO:           brandDPO(acc.vendors, vendorDelays),
		})

		if m.WeightedAvgCost == nil {
			log.Warn().Str("brand_id", id).Msg("zero purchased quantity, cost metrics undefined")
		}
		if m.DIO != nil {
			if *m.DIO < 0 {
				log.Warn().Str("brand_id", id).Float64("dio", *m.DIO).Msg("negative DIO indicates a data-quality issue")
			}
			dioSample = append(dioSample, *m.DIO)
		}
		all = append(all, m)
	}

	res := &Result{Rejections: rej}

	// Brands without a defined DIO cannot be fenced; they stay in the core
	// partition but contribute nothing to the distribution.
	lower, upper, ok := Fences(dioSample)
	if ok {
		res.LowerFence = &lower
		res.UpperFence = &upper
	}

	for i := range all {
		m := all[i]
		if ok && m.DIO != nil && (*m.DIO < lower || *m.DIO > upper) {
			m.IsOutlier = true
			res.Outliers = append(res.Outliers, m)
		} else {
			res.Core = append(res.Core, m)
		}
	}

	res.CoreSummary = summarize(domain.PartitionCore, res.Core)
	res.OutlierSummary = summarize(domain.PartitionOutlier, res.Outliers)

	log.Info().
		Int("brands", len(all)).
		Int("outliers", len(res.Outliers)).
		Int("rejected", rej.Total()).
		Msg("vendor metrics aggregation completed")

	return res, nil
}

func (a *Aggregator) brandFor(brands map[string]*brandAccumulator, id string) *brandAccumulator {
	acc, ok := brands[id]
	if !ok {
		acc = &brandAccumulator{vendors: make(map[string]struct{})}
		brands[id] = acc
	}
	return acc
}

// outsidePeriod reports whether a record date falls outside the analysis period.
func (a *Aggregator) outsidePeriod(in Inputs, date time.Time) bool {
	return date.Before(in.PeriodStart) || date.After(in.PeriodEnd)
}

// consumeSnapshots folds one snapshot table into the brand accumulators.
// Snapshot dates must match the period endpoint they belong to; anything
// else is malformed, since snapshots are fixed period endpoints rather than
// a rolling window.
func (a *Aggregator) consumeSnapshots(
	brands map[string]*brandAccumulator,
	snapshots []domain.InventorySnapshot,
	endpoint time.Time,
	rej *domain.RejectionReport,
	apply func(acc *brandAccumulator, qty float64),
) {
	for _, s := range snapshots {
		if s.QuantityOnHand < 0 || (!s.SnapshotDate.IsZero() && !sameDay(s.SnapshotDate, endpoint)) {
			rej.MalformedSnapshots++
			continue
		}
		acc, ok := brands[s.BrandID]
		if !ok {
			rej.UnmatchedSnapshots++
			log.Warn().Str("brand_id", s.BrandID).Msg("snapshot references brand with no purchases, dropped")
			continue
		}
		apply(acc, s.QuantityOnHand)
	}
}

// brandDPO pools the payment delays of every vendor the brand was purchased
// from. Returns nil when none of them has invoices.
func brandDPO(vendors map[string]struct{}, vendorDelays map[string][]float64) *float64 {
	var sum float64
	var n int
	for vendorID := range vendors {
		for _, d := range vendorDelays[vendorID] {
			sum += d
			n++
		}
	}
	if n == 0 {
		return nil
	}
	dpo := sum / float64(n)
	return &dpo
}

// summarize computes partition aggregates; means skip undefined metrics.
func summarize(partition string, ms []domain.BrandMetrics) domain.PartitionSummary {
	s := domain.PartitionSummary{
		Partition:  partition,
		BrandCount: len(ms),
	}

	s.MeanTurnover = meanOf(ms, func(m domain.BrandMetrics) *float64 { return m.Turnover })
	s.MeanGMROI = meanOf(ms, func(m domain.BrandMetrics) *float64 { return m.GMROI })
	s.MeanDIO = meanOf(ms, func(m domain.BrandMetrics) *float64 { return m.DIO })
	s.MeanCCC = meanOf(ms, func(m domain.BrandMetrics) *float64 { return m.CCC })

	return s
}

func meanOf(ms []domain.BrandMetrics, pick func(domain.BrandMetrics) *float64) *float64 {
	var sum float64
	var n int
	for _, m := range ms {
		if v := pick(m); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
