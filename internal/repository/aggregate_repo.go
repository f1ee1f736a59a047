package repository

import (
	"context"
	"errors"
	"fmt"

	"go-resto-inventory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateRepository is the keyed bucket store behind the aggregation engine.
// Each Increment is a single get-or-create-then-increment statement, so one
// bucket key never maps to more than one row.
type AggregateRepository interface {
	IncrementInventory(ctx context.Context, key model.BucketKey, delta model.InventoryDelta) error
	IncrementProfit(ctx context.Context, key model.BucketKey, delta model.ProfitDelta) error
	FindInventory(ctx context.Context, key model.BucketKey) (*model.Inventory, error)
	FindProfit(ctx context.Context, key model.BucketKey) (*model.ProductProfit, error)
	ListInventory(ctx context.Context, filter model.AggregateFilter) ([]model.Inventory, error)
	ListProfit(ctx context.Context, filter model.AggregateFilter) ([]model.ProductProfit, error)
}

type aggregateRepo struct {
	db *gorm.DB
}

func NewAggregateRepo(db *gorm.DB) AggregateRepository {
	return &aggregateRepo{db}
}

var bucketColumns = []clause.Column{
	{Name: "product_id"},
	{Name: "establishment_id"},
	{Name: "period"},
	{Name: "period_date"},
}

func accumulate(table, column string) clause.Expr {
	return gorm.Expr(fmt.Sprintf("%s.%s + excluded.%s", table, column, column))
}

func marginExpr(table string) clause.Expr {
	return gorm.Expr(fmt.Sprintf(
		"CASE WHEN %[1]s.total_revenue + excluded.total_revenue > 0 "+
			"THEN (%[1]s.profit + excluded.profit) * 100.0 / (%[1]s.total_revenue + excluded.total_revenue) "+
			"ELSE 0 END", table))
}

func (r *aggregateRepo) IncrementInventory(ctx context.Context, key model.BucketKey, d model.InventoryDelta) error {
	const table = "inventory_aggregates"
	row := model.Inventory{
		ProductID:       key.ProductID,
		EstablishmentID: key.EstablishmentID,
		Period:          key.Period,
		PeriodDate:      key.PeriodDate,
		Entries:         d.Entries,
		Exits:           d.Exits,
		Sales:           d.Sales,
		Losses:          d.Losses,
		CurrentStock:    d.CurrentStock,
		PurchaseCost:    d.PurchaseCost,
		SellingPrice:    d.SellingPrice,
		TotalRevenue:    d.TotalRevenue,
		TotalCost:       d.TotalCost,
		Profit:          d.Profit,
		Margin:          marginOf(d.Profit, d.TotalRevenue),
	}
	return r.db.WithContext(ctx).Omit("Product").Clauses(clause.OnConflict{
		Columns: bucketColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"entries":       accumulate(table, "entries"),
			"exits":         accumulate(table, "exits"),
			"sales":         accumulate(table, "sales"),
			"losses":        accumulate(table, "losses"),
			"total_revenue": accumulate(table, "total_revenue"),
			"total_cost":    accumulate(table, "total_cost"),
			"profit":        accumulate(table, "profit"),
			"margin":        marginExpr(table),
			"current_stock": gorm.Expr("excluded.current_stock"),
			"purchase_cost": gorm.Expr("excluded.purchase_cost"),
			"selling_price": gorm.Expr("excluded.selling_price"),
			"updated_at":    gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
}

func (r *aggregateRepo) IncrementProfit(ctx context.Context, key model.BucketKey, d model.ProfitDelta) error {
	const table = "product_profits"
	row := model.ProductProfit{
		ProductID:       key.ProductID,
		EstablishmentID: key.EstablishmentID,
		Period:          key.Period,
		PeriodDate:      key.PeriodDate,
		QuantitySold:    d.QuantitySold,
		TotalRevenue:    d.TotalRevenue,
		TotalCost:       d.TotalCost,
		Profit:          d.Profit,
		Margin:          marginOf(d.Profit, d.TotalRevenue),
	}
	return r.db.WithContext(ctx).Omit("Product").Clauses(clause.OnConflict{
		Columns: bucketColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity_sold": accumulate(table, "quantity_sold"),
			"total_revenue": accumulate(table, "total_revenue"),
			"total_cost":    accumulate(table, "total_cost"),
			"profit":        accumulate(table, "profit"),
			"margin":        marginExpr(table),
			"updated_at":    gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
}

func (r *aggregateRepo) FindInventory(ctx context.Context, key model.BucketKey) (*model.Inventory, error) {
	var row model.Inventory
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND establishment_id = ? AND period = ? AND period_date = ?",
			key.ProductID, key.EstablishmentID, key.Period, key.PeriodDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: inventory bucket", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *aggregateRepo) FindProfit(ctx context.Context, key model.BucketKey) (*model.ProductProfit, error) {
	var row model.ProductProfit
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND establishment_id = ? AND period = ? AND period_date = ?",
			key.ProductID, key.EstablishmentID, key.Period, key.PeriodDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: profit bucket", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *aggregateRepo) ListInventory(ctx context.Context, filter model.AggregateFilter) ([]model.Inventory, error) {
	var rows []model.Inventory
	err := applyAggregateFilter(r.db.WithContext(ctx), filter).
		Preload("Product").
		Order("period_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *aggregateRepo) ListProfit(ctx context.Context, filter model.AggregateFilter) ([]model.ProductProfit, error) {
	var rows []model.ProductProfit
	err := applyAggregateFilter(r.db.WithContext(ctx), filter).
		Preload("Product").
		Order("period_date ASC").
		Find(&rows).Error
	return rows, err
}

func applyAggregateFilter(q *gorm.DB, f model.AggregateFilter) *gorm.DB {
	q = q.Where("establishment_id = ? AND period = ?", f.EstablishmentID, f.Period)
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.From != nil {
		q = q.Where("period_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("period_date <= ?", *f.To)
	}
	return q
}

func marginOf(profit, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return profit / revenue * 100
}
