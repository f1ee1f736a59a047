package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository reads and writes sales orders. The order service owns
// their lifecycle; the inventory core only reads completed ones.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, order *model.Order, from model.OrderStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindCompletedInRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]model.Order, error)
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepo{tx}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// UpdateStatus moves the order to order.Status only if it is still in from.
// A concurrent change is reported as model.ErrConflict.
func (r *orderRepo) UpdateStatus(ctx context.Context, order *model.Order, from model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]interface{}{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
			"updated_by":   order.UpdatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", model.ErrConflict, order.ID, from)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindCompletedInRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("establishment_id = ? AND status = ? AND completed_at BETWEEN ? AND ?",
			establishmentID, model.OrderCompleted, from, to).
		Order("completed_at ASC").
		Find(&orders).Error
	return orders, err
}
