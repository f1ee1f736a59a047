package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryIn         EntryType = "entrée"
	EntryOut        EntryType = "sortie"
	EntryLoss       EntryType = "perte"
	EntryAdjustment EntryType = "ajustement"
	EntryCount      EntryType = "inventaire"
)

// EntryTypes lists the closed set of inventory entry types.
var EntryTypes = []EntryType{EntryIn, EntryOut, EntryLoss, EntryAdjustment, EntryCount}

func (t EntryType) Valid() bool {
	for _, v := range EntryTypes {
		if v == t {
			return true
		}
	}
	return false
}

// StockDelta returns the signed ledger delta an entry of this type applies.
// A full recount (inventaire) never moves stock automatically.
func (t EntryType) StockDelta(quantity int) int {
	switch t {
	case EntryIn:
		return quantity
	case EntryOut, EntryLoss, EntryAdjustment:
		return -quantity
	default:
		return 0
	}
}

// Entry sources.
const (
	SourceManual    = "manual"
	SourceOrderSync = "order_sync"
)

// InventoryEntry is one journal line of the inventory log.
type InventoryEntry struct {
	BaseModel
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"establishment_id"`
	Type            EntryType `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	UnitCost        float64   `gorm:"type:numeric(12,2);not null;default:0" json:"unit_cost"`
	TotalCost       float64   `gorm:"type:numeric(14,2);not null;default:0" json:"total_cost"`
	Reason          string    `gorm:"type:text" json:"reason"`
	LossCategory    string    `gorm:"type:varchar(50)" json:"loss_category,omitempty"`
	LossDetails     string    `gorm:"type:text" json:"loss_details,omitempty"`
	Source          string    `gorm:"type:varchar(20);not null;default:manual;index" json:"source"`
	// Reference is set for generated entries (order sync) and is unique.
	Reference  *string   `gorm:"type:varchar(120);uniqueIndex" json:"reference,omitempty"`
	RecordedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"recorded_by"`
	Date       time.Time `gorm:"not null;index" json:"date"`
}

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	EstablishmentID uuid.UUID
	ProductID       *uuid.UUID
	Type            *EntryType
	Source          string
	From            *time.Time
	To              *time.Time
}

// EntryTotals are the derived totals of a filtered entry set.
type EntryTotals struct {
	QuantityByType map[EntryType]int `json:"quantity_by_type"`
	TotalCost      float64           `json:"total_cost"`
	Count          int               `json:"count"`
}
