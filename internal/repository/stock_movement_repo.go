package repository

import (
	"context"

	"go-resto-inventory/internal/model"

	"gorm.io/gorm"
)

// StockMovementRepository is append-only.
type StockMovementRepository interface {
	WithTx(tx *gorm.DB) StockMovementRepository
	Create(ctx context.Context, m *model.StockMovement) error
	FindAll(ctx context.Context, filter model.MovementFilter) ([]model.StockMovement, error)
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) WithTx(tx *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{tx}
}

func (r *stockMovementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *stockMovementRepo) FindAll(ctx context.Context, filter model.MovementFilter) ([]model.StockMovement, error) {
	var out []model.StockMovement
	q := r.db.WithContext(ctx).Where("establishment_id = ?", filter.EstablishmentID)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Reference != "" {
		q = q.Where("reference = ?", filter.Reference)
	}
	err := q.Order("created_at ASC").Find(&out).Error
	return out, err
}
