package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestCalculateWeightedAverageCost(t *testing.T) {
	// Two purchase lines: 10 units at 2.00 and 30 units at 3.00.
	calc := NewCalculator()
	m := calc.Calculate("B1", BrandInput{
		PurchasedQty:  40,
		PurchaseValue: 10*2.0 + 30*3.0,
		UnitsSold:     20,
		Revenue:       100,
		BeginQty:      40,
		EndQty:        20,
	})

	require.NotNil(t, m.WeightedAvgCost)
	assert.InDelta(t, 2.75, *m.WeightedAvgCost, 1e-9)

	require.NotNil(t, m.COGS)
	assert.InDelta(t, 20*2.75, *m.COGS, 1e-9)

	require.NotNil(t, m.AvgInventoryValue)
	assert.InDelta(t, (40*2.75+20*2.75)/2, *m.AvgInventoryValue, 1e-9)
}

func TestCalculateTurnoverAndDIO(t *testing.T) {
	calc := NewCalculator()
	m := calc.Calculate("B1", BrandInput{
		PurchasedQty:  100,
		PurchaseValue: 500,
		UnitsSold:     50,
		Revenue:       400,
		BeginQty:      60,
		EndQty:        40,
	})

	require.NotNil(t, m.Turnover)
	require.NotNil(t, m.DIO)

	// Turnover and DIO are two views of the same ratio
	assert.InDelta(t, 365.0, *m.Turnover**m.DIO, 1e-9)

	require.NotNil(t, m.GMROI)
	assert.InDelta(t, (m.Revenue-*m.COGS)/(*m.AvgInventoryValue), *m.GMROI, 1e-9)
}

func TestCalculateNoPurchases(t *testing.T) {
	// A brand with zero purchased quantity has no cost basis; every derived
	// metric is undefined rather than NaN.
	calc := NewCalculator()
	m := calc.Calculate("B1", BrandInput{
		UnitsSold: 10,
		Revenue:   50,
	})

	assert.Nil(t, m.WeightedAvgCost)
	assert.Nil(t, m.COGS)
	assert.Nil(t, m.AvgInventoryValue)
	assert.Nil(t, m.Turnover)
	assert.Nil(t, m.DIO)
	assert.Nil(t, m.GMROI)
	assert.Nil(t, m.CCC)
	assert.Equal(t, 50.0, m.Revenue)
	assert.Equal(t, 10.0, m.UnitsSold)
}

func TestCalculateZeroAverageInventory(t *testing.T) {
	calc := NewCalculator()
	m := calc.Calculate("B1", BrandInput{
		PurchasedQty:  10,
		PurchaseValue: 30,
		UnitsSold:     10,
		Revenue:       60,
		BeginQty:      0,
		EndQty:        0,
	})

	require.NotNil(t, m.WeightedAvgCost)
	require.NotNil(t, m.COGS)
	require.NotNil(t, m.AvgInventoryValue)
	assert.Equal(t, 0.0, *m.AvgInventoryValue)

	// Division by zero inventory must not produce Inf
	assert.Nil(t, m.Turnover)
	assert.Nil(t, m.DIO)
	assert.Nil(t, m.GMROI)
}

func TestCalculateZeroSales(t *testing.T) {
	calc := NewCalculator()
	m := calc.Calculate("B1", BrandInput{
		PurchasedQty:  10,
		PurchaseValue: 30,
		BeginQty:      10,
		EndQty:        10,
	})

	// COGS is zero, so turnover is zero and DIO is undefined
	require.NotNil(t, m.Turnover)
	assert.Equal(t, 0.0, *m.Turnover)
	assert.Nil(t, m.DIO)
	assert.Nil(t, m.CCC)
}

func TestCalculateCCC(t *testing.T) {
	tests := []struct {
		name string
		dpo  *float64
		want *float64
	}{
		{
			name: "defined when DIO and DPO are defined",
			dpo:  floatPtr(30),
		},
		{
			name: "undefined without DPO",
			dpo:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator()
			m := calc.Calculate("B1", BrandInput{
				PurchasedQty:  100,
				PurchaseValue: 500,
				UnitsSold:     50,
				Revenue:       400,
				BeginQty:      60,
				EndQty:        40,
				DPO:           tt.dpo,
			})

			require.NotNil(t, m.DIO)
			if tt.dpo == nil {
				assert.Nil(t, m.CCC)
				return
			}
			require.NotNil(t, m.CCC)
			assert.InDelta(t, *m.DIO-*tt.dpo, *m.CCC, 1e-9)
		})
	}
}
