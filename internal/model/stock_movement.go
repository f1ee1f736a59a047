package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementSupply       MovementType = "approvisionnement"
	MovementCancellation MovementType = "retrait_annulation"
)

// StockMovement is the append-only audit row written by procurement reconciliation.
type StockMovement struct {
	ID              uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	ProductID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	EstablishmentID uuid.UUID    `gorm:"type:uuid;not null;index" json:"establishment_id"`
	Quantity        int          `gorm:"not null" json:"quantity"`
	Type            MovementType `gorm:"type:varchar(30);not null" json:"type"`
	Reference       string       `gorm:"type:varchar(40);not null;index" json:"reference"`
	StockBefore     int          `gorm:"not null" json:"stock_before"`
	StockAfter      int          `gorm:"not null" json:"stock_after"`
	RecordedBy      uuid.UUID    `gorm:"type:uuid;not null" json:"recorded_by"`
	CreatedAt       time.Time    `json:"created_at"`
}

// MovementFilter narrows stock movement listings.
type MovementFilter struct {
	EstablishmentID uuid.UUID
	ProductID       *uuid.UUID
	Reference       string
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
