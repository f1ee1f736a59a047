package model

import (
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// BucketKey identifies exactly one aggregate row.
type BucketKey struct {
	ProductID       uuid.UUID
	EstablishmentID uuid.UUID
	Period          Period
	PeriodDate      time.Time
}

// Inventory is the weekly/monthly rollup of one product.
// Quantity, revenue, cost and profit counters accumulate for the bucket's lifetime;
// CurrentStock, PurchaseCost, SellingPrice and Margin are point-in-time snapshots.
type Inventory struct {
	BaseModel
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_bucket,priority:1" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_bucket,priority:2" json:"establishment_id"`
	Period          Period    `gorm:"type:varchar(10);not null;uniqueIndex:idx_inventory_bucket,priority:3" json:"period"`
	PeriodDate      time.Time `gorm:"not null;uniqueIndex:idx_inventory_bucket,priority:4" json:"period_date"`

	Entries int `gorm:"not null;default:0" json:"entries"`
	Exits   int `gorm:"not null;default:0" json:"exits"`
	Sales   int `gorm:"not null;default:0" json:"sales"`
	Losses  int `gorm:"not null;default:0" json:"losses"`

	CurrentStock int     `gorm:"not null;default:0" json:"current_stock"`
	PurchaseCost float64 `gorm:"type:numeric(12,2);not null;default:0" json:"purchase_cost"`
	SellingPrice float64 `gorm:"type:numeric(12,2);not null;default:0" json:"selling_price"`
	TotalRevenue float64 `gorm:"type:numeric(14,2);not null;default:0" json:"total_revenue"`
	TotalCost    float64 `gorm:"type:numeric(14,2);not null;default:0" json:"total_cost"`
	Profit       float64 `gorm:"type:numeric(14,2);not null;default:0" json:"profit"`
	Margin       float64 `gorm:"type:numeric(8,2);not null;default:0" json:"margin"`
}

func (Inventory) TableName() string {
	return "inventory_aggregates"
}

// Key returns the bucket key of the row.
func (i *Inventory) Key() BucketKey {
	return BucketKey{ProductID: i.ProductID, EstablishmentID: i.EstablishmentID, Period: i.Period, PeriodDate: i.PeriodDate}
}

// InventoryDelta is an increment applied to one Inventory bucket.
type InventoryDelta struct {
	Entries      int
	Exits        int
	Sales        int
	Losses       int
	TotalRevenue float64
	TotalCost    float64
	Profit       float64

	// snapshot values, overwritten on every update
	CurrentStock int
	PurchaseCost float64
	SellingPrice float64
}

// ProductProfit is the daily/weekly/monthly profit record of one product.
type ProductProfit struct {
	BaseModel
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_profit_bucket,priority:1" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_profit_bucket,priority:2" json:"establishment_id"`
	Period          Period    `gorm:"type:varchar(10);not null;uniqueIndex:idx_product_profit_bucket,priority:3" json:"period"`
	PeriodDate      time.Time `gorm:"not null;uniqueIndex:idx_product_profit_bucket,priority:4" json:"period_date"`

	QuantitySold int     `gorm:"not null;default:0" json:"quantity_sold"`
	TotalRevenue float64 `gorm:"type:numeric(14,2);not null;default:0" json:"total_revenue"`
	TotalCost    float64 `gorm:"type:numeric(14,2);not null;default:0" json:"total_cost"`
	Profit       float64 `gorm:"type:numeric(14,2);not null;default:0" json:"profit"`
	Margin       float64 `gorm:"type:numeric(8,2);not null;default:0" json:"margin"`
}

func (ProductProfit) TableName() string {
	return "product_profits"
}

// ProfitDelta is an increment applied to one ProductProfit bucket.
type ProfitDelta struct {
	QuantitySold int
	TotalRevenue float64
	TotalCost    float64
	Profit       float64
}

// AggregateFilter narrows aggregate listings.
type AggregateFilter struct {
	EstablishmentID uuid.UUID
	ProductID       *uuid.UUID
	Period          Period
	From            *time.Time
	To              *time.Time
}
