package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "en_attente"
	OrderPreparing OrderStatus = "en_preparation"
	OrderServed    OrderStatus = "servie"
	OrderCompleted OrderStatus = "terminée"
	OrderCancelled OrderStatus = "annulée"
)

// Order is a sales order. Stock for its lines is reserved when it is created.
type Order struct {
	BaseModel
	EstablishmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"establishment_id"`
	OrderNumber     string      `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TableNumber     string      `gorm:"type:varchar(20)" json:"table_number,omitempty"`
	TotalAmount     float64     `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	CompletedAt     *time.Time  `gorm:"index" json:"completed_at,omitempty"`
	RecordedBy      uuid.UUID   `gorm:"type:uuid;not null" json:"recorded_by"`
}

// IsOpen reports whether the order still holds reserved stock that may be released.
func (o *Order) IsOpen() bool {
	return o.Status != OrderCompleted && o.Status != OrderCancelled
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	Subtotal  float64   `gorm:"type:numeric(14,2);not null;default:0" json:"subtotal"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
