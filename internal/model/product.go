package model

import "github.com/google/uuid"

// Product is the ledger row for one sellable item of an establishment.
// Stock is only mutated through the ledger (repository.ProductRepository.ApplyDelta).
type Product struct {
	BaseModel
	EstablishmentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"establishment_id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category          string    `gorm:"type:varchar(100)" json:"category"`
	Unit              string    `gorm:"type:varchar(20)" json:"unit"`
	Stock             int       `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock" validate:"gte=0"`
	InitialStock      int       `gorm:"not null;default:0" json:"initial_stock"`
	PurchaseCost      float64   `gorm:"type:numeric(12,2);not null;default:0" json:"purchase_cost" validate:"gte=0"`
	UnitPrice         float64   `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price" validate:"gte=0"`
	PreparationCost   float64   `gorm:"type:numeric(12,2);not null;default:0" json:"preparation_cost" validate:"gte=0"`
	LowStockThreshold int       `gorm:"not null;default:0" json:"low_stock_threshold" validate:"gte=0"`
}

// IsLowStock reports whether the current stock reached the alert threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}
