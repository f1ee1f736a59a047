package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProcurementStatus string

const (
	ProcurementPending   ProcurementStatus = "en_attente"
	ProcurementConfirmed ProcurementStatus = "validée"
	ProcurementDelivered ProcurementStatus = "livrée"
	ProcurementCancelled ProcurementStatus = "annulée"
	// ProcurementDeleted is an internal transition target used when a
	// procurement is removed. It is never persisted.
	ProcurementDeleted ProcurementStatus = "supprimée"
)

// ProcurementStatuses are the states a stored procurement may be in.
var ProcurementStatuses = []ProcurementStatus{ProcurementPending, ProcurementConfirmed, ProcurementDelivered, ProcurementCancelled}

func (s ProcurementStatus) Valid() bool {
	for _, v := range ProcurementStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentType string

const (
	PaymentCash     PaymentType = "especes"
	PaymentTransfer PaymentType = "virement"
	PaymentCheque   PaymentType = "cheque"
	PaymentCredit   PaymentType = "credit"
)

// Procurement is a purchase order placed with a supplier.
type Procurement struct {
	BaseModel
	EstablishmentID uuid.UUID         `gorm:"type:uuid;not null;index" json:"establishment_id"`
	SupplierID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"supplier_id"`
	OrderNumber     string            `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_number"`
	Products        []ProcurementLine `gorm:"foreignKey:ProcurementID;constraint:OnDelete:CASCADE" json:"products"`
	Status          ProcurementStatus `gorm:"type:varchar(20);not null;default:en_attente;index" json:"status"`
	TotalAmount     float64           `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	PaymentType     PaymentType       `gorm:"type:varchar(20)" json:"payment_type"`
	AmountPaid      float64           `gorm:"type:numeric(14,2);not null;default:0" json:"amount_paid"`
	AmountDue       float64           `gorm:"type:numeric(14,2);not null;default:0" json:"amount_due"`
	Notes           string            `gorm:"type:text" json:"notes"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	RecordedBy      uuid.UUID         `gorm:"type:uuid;not null" json:"recorded_by"`
}

// ProcurementLine is one ordered product of a procurement.
type ProcurementLine struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProcurementID uuid.UUID `gorm:"type:uuid;not null;index" json:"procurement_id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	UnitPrice     float64   `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	Subtotal      float64   `gorm:"type:numeric(14,2);not null;default:0" json:"subtotal"`
}

func (l *ProcurementLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Recalculate derives line subtotals, the total and the amount due.
func (p *Procurement) Recalculate() {
	total := decimal.Zero
	for i := range p.Products {
		sub := decimal.NewFromFloat(p.Products[i].UnitPrice).Mul(decimal.NewFromInt(int64(p.Products[i].Quantity))).Round(2)
		p.Products[i].Subtotal = sub.InexactFloat64()
		total = total.Add(sub)
	}
	p.TotalAmount = total.InexactFloat64()
	due := total.Sub(decimal.NewFromFloat(p.AmountPaid))
	if due.IsNegative() {
		due = decimal.Zero
	}
	p.AmountDue = due.InexactFloat64()
}

// BeforeSave keeps the derived totals in line with the lines on every save.
func (p *Procurement) BeforeSave(tx *gorm.DB) error {
	p.Recalculate()
	return nil
}

// ProcurementFilter narrows procurement listings.
type ProcurementFilter struct {
	EstablishmentID uuid.UUID
	Status          *ProcurementStatus
	SupplierID      *uuid.UUID
}
