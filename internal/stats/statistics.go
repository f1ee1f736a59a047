package stats

import (
	"go-resto-inventory/internal/model"

	"github.com/shopspring/decimal"
)

// Input is everything Summarize needs for one establishment and date range.
type Input struct {
	Products []model.Product
	Totals   model.EntryTotals
	// Profits are the daily product profit buckets of the range.
	Profits []model.ProductProfit
	// LossCost is the summed cost of "perte" entries of the range.
	LossCost float64
	Days     int
}

type Statistics struct {
	TotalProducts     int     `json:"total_products"`
	TotalStock        int     `json:"total_stock"`
	StockValue        float64 `json:"stock_value"`
	LowStockCount     int     `json:"low_stock_count"`
	OutOfStockCount   int     `json:"out_of_stock_count"`
	TotalEntries      int     `json:"total_entries"`
	TotalExits        int     `json:"total_exits"`
	TotalLosses       int     `json:"total_losses"`
	TotalAdjustments  int     `json:"total_adjustments"`
	EntryCost         float64 `json:"entry_cost"`
	UnitsSold         int     `json:"units_sold"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalCost         float64 `json:"total_cost"`
	Profit            float64 `json:"profit"`
	Margin            float64 `json:"margin"`
	ROI               float64 `json:"roi"`
	TurnoverRate      float64 `json:"turnover_rate"`
	StockCoverageDays float64 `json:"stock_coverage_days"`
	StockoutRate      float64 `json:"stockout_rate"`
	GMROI             float64 `json:"gmroi"`
	CarryingCostRate  float64 `json:"carrying_cost_rate"`
	CarryingCost      float64 `json:"carrying_cost"`
	InventoryAccuracy float64 `json:"inventory_accuracy"`
	LossCost          float64 `json:"loss_cost"`
	LossRate          float64 `json:"loss_rate"`
}

// Summarize derives the statistics object of an establishment.
func Summarize(in Input) Statistics {
	out := Statistics{
		TotalProducts:    len(in.Products),
		CarryingCostRate: CarryingCostRate,
		TotalEntries:     in.Totals.QuantityByType[model.EntryIn],
		TotalExits:       in.Totals.QuantityByType[model.EntryOut],
		TotalLosses:      in.Totals.QuantityByType[model.EntryLoss],
		TotalAdjustments: in.Totals.QuantityByType[model.EntryAdjustment],
		EntryCost:        Round2(in.Totals.TotalCost),
		LossCost:         Round2(in.LossCost),
	}

	stockValue := decimal.Zero
	avgValue := decimal.Zero
	avgUnits := decimal.Zero
	levels := make([]StockLevel, 0, len(in.Products))
	for _, p := range in.Products {
		cost := decimal.NewFromFloat(p.PurchaseCost)
		avg := decimal.NewFromInt(int64(p.InitialStock + p.Stock)).Div(decimal.NewFromInt(2))

		out.TotalStock += p.Stock
		stockValue = stockValue.Add(cost.Mul(decimal.NewFromInt(int64(p.Stock))))
		avgUnits = avgUnits.Add(avg)
		avgValue = avgValue.Add(avg.Mul(cost))
		if p.Stock == 0 {
			out.OutOfStockCount++
		}
		if p.IsLowStock() {
			out.LowStockCount++
		}
		levels = append(levels, StockLevel{Initial: p.InitialStock, Current: p.Stock})
	}
	out.StockValue = stockValue.Round(2).InexactFloat64()

	revenue, cost, profit := decimal.Zero, decimal.Zero, decimal.Zero
	for _, pp := range in.Profits {
		out.UnitsSold += pp.QuantitySold
		revenue = revenue.Add(decimal.NewFromFloat(pp.TotalRevenue))
		cost = cost.Add(decimal.NewFromFloat(pp.TotalCost))
		profit = profit.Add(decimal.NewFromFloat(pp.Profit))
	}
	out.TotalRevenue = revenue.Round(2).InexactFloat64()
	out.TotalCost = cost.Round(2).InexactFloat64()
	out.Profit = profit.Round(2).InexactFloat64()

	out.Margin = Percent(out.Profit, out.TotalRevenue)
	out.ROI = ROI(out.Profit, out.TotalCost)
	out.TurnoverRate = TurnoverRate(float64(out.UnitsSold), avgUnits.InexactFloat64())
	out.StockCoverageDays = StockCoverageDays(float64(out.TotalStock), float64(out.UnitsSold+out.TotalExits+out.TotalLosses), in.Days)
	out.StockoutRate = StockoutRate(out.OutOfStockCount, out.TotalProducts)
	out.GMROI = GMROI(out.Profit, avgValue.InexactFloat64())
	out.CarryingCost = CarryingCost(out.StockValue)
	out.InventoryAccuracy = InventoryAccuracy(levels)
	out.LossRate = LossRate(out.LossCost, out.TotalRevenue)
	return out
}
