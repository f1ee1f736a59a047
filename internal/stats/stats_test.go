package stats

import (
	"math"
	"testing"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRatiosHandleZeroDenominator(t *testing.T) {
	values := map[string]float64{
		"ratio":    Ratio(10, 0),
		"percent":  Percent(10, 0),
		"lossRate": LossRate(5, 0),
		"roi":      ROI(5, 0),
		"turnover": TurnoverRate(3, 0),
		"coverage": StockCoverageDays(10, 0, 30),
		"noDays":   StockCoverageDays(10, 5, 0),
		"stockout": StockoutRate(0, 0),
		"gmroi":    GMROI(12, 0),
		"accuracy": InventoryAccuracy(nil),
	}
	for name, v := range values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
		assert.Zero(t, v, name)
	}
}

func TestRatios(t *testing.T) {
	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Equal(t, 2.5, Ratio(5, 2))
	assert.Equal(t, 25.0, LossRate(25, 100))
	assert.Equal(t, 50.0, ROI(50, 100))
	assert.Equal(t, 10.0, StockCoverageDays(100, 300, 30))
	assert.Equal(t, 25.0, StockoutRate(1, 4))
	assert.Equal(t, 250.0, CarryingCost(1000))
}

func TestInventoryAccuracy(t *testing.T) {
	levels := []StockLevel{
		{Initial: 10, Current: 12},
		{Initial: 10, Current: 8},
		{Initial: 10, Current: 13},
		{Initial: 10, Current: 0},
	}
	assert.Equal(t, 50.0, InventoryAccuracy(levels))
}

func TestCategorizeLoss(t *testing.T) {
	cases := []struct {
		reason   string
		category string
		want     LossCategory
	}{
		{"gâté", "", LossDamaged},
		{"Produit GÂTÉ au frigo", "", LossDamaged},
		{"bouteille cassée", "", LossBreakage},
		{"date de péremption dépassée", "", LossExpired},
		{"expired milk", "", LossExpired},
		{"abîmé pendant le transport", "", LossTransport},
		{"volé en salle", "", LossTheft},
		{"volume incorrect", "", LossOther},
		{"colis manquant", "", LossMissing},
		{"", "", LossOther},
		{"gâté", "theft", LossTheft},
		{"whatever", "Endommagé", LossDamaged},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CategorizeLoss(c.reason, c.category), "%q/%q", c.reason, c.category)
	}
}

func TestAnalyzeLosses(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	entries := []model.InventoryEntry{
		{ProductID: p1, Type: model.EntryLoss, Quantity: 5, TotalCost: 25, Reason: "gâté", Product: &model.Product{Name: "Tomate"}},
		{ProductID: p2, Type: model.EntryLoss, Quantity: 1, TotalCost: 8, Reason: "verre cassé"},
		{ProductID: p1, Type: model.EntryIn, Quantity: 20, TotalCost: 100},
	}

	got := AnalyzeLosses(entries, 330, 1)
	assert.Equal(t, 2, got.TotalEntries)
	assert.Equal(t, 6, got.TotalQuantity)
	assert.Equal(t, 33.0, got.TotalCost)
	assert.Equal(t, 10.0, got.LossRate)
	assert.Len(t, got.ByCategory, len(LossCategories))
	for _, c := range got.ByCategory {
		switch c.Category {
		case LossDamaged:
			assert.Equal(t, 5, c.Quantity)
			assert.Equal(t, 25.0, c.Cost)
		case LossBreakage:
			assert.Equal(t, 1, c.Count)
		default:
			assert.Zero(t, c.Count)
		}
	}
	if assert.Len(t, got.TopProducts, 1) {
		assert.Equal(t, "Tomate", got.TopProducts[0].ProductName)
	}
}

func TestSummarize(t *testing.T) {
	in := Input{
		Products: []model.Product{
			{Stock: 20, InitialStock: 10, PurchaseCost: 5, LowStockThreshold: 2},
			{Stock: 0, InitialStock: 1, PurchaseCost: 3, LowStockThreshold: 2},
		},
		Totals: model.EntryTotals{QuantityByType: map[model.EntryType]int{
			model.EntryIn: 20, model.EntryLoss: 5,
		}, TotalCost: 125},
		Profits: []model.ProductProfit{
			{QuantitySold: 4, TotalRevenue: 48, TotalCost: 20, Profit: 28},
		},
		LossCost: 25,
		Days:     30,
	}
	s := Summarize(in)
	assert.Equal(t, 2, s.TotalProducts)
	assert.Equal(t, 100.0, s.StockValue)
	assert.Equal(t, 1, s.OutOfStockCount)
	assert.Equal(t, 1, s.LowStockCount)
	assert.Equal(t, 50.0, s.StockoutRate)
	assert.Equal(t, 28.0, s.Profit)
	assert.Equal(t, 140.0, s.ROI)
	assert.Equal(t, 58.33, s.Margin)
	assert.Equal(t, 25.0, s.CarryingCost)
	assert.Equal(t, 52.08, s.LossRate)
	assert.Equal(t, 50.0, s.InventoryAccuracy)
}
