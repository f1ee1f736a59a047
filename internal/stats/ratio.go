// Package stats holds the pure derivation functions behind the statistics
// and loss-analysis endpoints. Every ratio returns 0 for an empty or zero
// denominator and is rounded to two decimals.
package stats

import "github.com/shopspring/decimal"

// CarryingCostRate is the flat yearly holding cost applied to stock value, in percent.
const CarryingCostRate = 25.0

// AccuracyTolerance is the drift in units between initial and current stock
// still counted as accurate.
const AccuracyTolerance = 2

func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Ratio returns num/den rounded to two decimals, 0 when den is 0.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromFloat(num).
		DivRound(decimal.NewFromFloat(den), 8).
		Round(2).
		InexactFloat64()
}

// Percent returns num/den*100 rounded to two decimals, 0 when den is 0.
func Percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromFloat(num).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromFloat(den), 8).
		Round(2).
		InexactFloat64()
}

// LossRate is total losses over total revenue, in percent.
func LossRate(totalLosses, totalRevenue float64) float64 {
	return Percent(totalLosses, totalRevenue)
}

// ROI is profit over invested cost, in percent.
func ROI(profit, investment float64) float64 {
	return Percent(profit, investment)
}

// TurnoverRate is units sold over average units held.
func TurnoverRate(unitsSold, averageStock float64) float64 {
	return Ratio(unitsSold, averageStock)
}

// StockCoverageDays is how many days current stock lasts at the average
// daily consumption observed over days.
func StockCoverageDays(currentStock, unitsConsumed float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	return Ratio(currentStock, unitsConsumed/float64(days))
}

// StockoutRate is the share of products with no stock left, in percent.
func StockoutRate(outOfStock, totalProducts int) float64 {
	return Percent(float64(outOfStock), float64(totalProducts))
}

// GMROI is gross margin over average inventory value.
func GMROI(grossMargin, averageInventoryValue float64) float64 {
	return Ratio(grossMargin, averageInventoryValue)
}

// CarryingCost applies CarryingCostRate to the inventory value.
func CarryingCost(inventoryValue float64) float64 {
	return Round2(decimal.NewFromFloat(inventoryValue).
		Mul(decimal.NewFromFloat(CarryingCostRate)).
		Div(decimal.NewFromInt(100)).
		InexactFloat64())
}

// StockLevel is the initial and current stock of one product.
type StockLevel struct {
	Initial int
	Current int
}

// InventoryAccuracy is the share of products whose current stock stays within
// AccuracyTolerance units of their initial stock, in percent.
func InventoryAccuracy(levels []StockLevel) float64 {
	if len(levels) == 0 {
		return 0
	}
	accurate := 0
	for _, l := range levels {
		drift := l.Current - l.Initial
		if drift < 0 {
			drift = -drift
		}
		if drift <= AccuracyTolerance {
			accurate++
		}
	}
	return Percent(float64(accurate), float64(len(levels)))
}
