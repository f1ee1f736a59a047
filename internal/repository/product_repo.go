package repository

import (
	"context"
	"errors"
	"fmt"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is the Product Ledger storage. ApplyDelta and
// ApplyDeltaClamped take the transaction they run in; the row stays locked
// by that transaction until it commits.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, establishmentID uuid.UUID) ([]model.Product, error)
	FindLowStock(ctx context.Context, establishmentID uuid.UUID) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	GetStock(ctx context.Context, id uuid.UUID) (int, error)
	ApplyDelta(tx *gorm.DB, id uuid.UUID, delta int) (int, error)
	ApplyDeltaClamped(tx *gorm.DB, id uuid.UUID, delta int) (newStock int, clamped bool, err error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, establishmentID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindLowStock(ctx context.Context, establishmentID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND stock <= low_stock_threshold", establishmentID).
		Order("stock ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return findProduct(r.db.WithContext(ctx), id)
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Update saves the descriptive and cost fields. Stock is left untouched.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":                product.Name,
			"category":            product.Category,
			"unit":                product.Unit,
			"purchase_cost":       product.PurchaseCost,
			"unit_price":          product.UnitPrice,
			"preparation_cost":    product.PreparationCost,
			"low_stock_threshold": product.LowStockThreshold,
			"updated_by":          product.UpdatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", model.ErrNotFound, product.ID)
	}
	return nil
}

func (r *productRepo) GetStock(ctx context.Context, id uuid.UUID) (int, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// ApplyDelta adds delta to the stock in one conditional statement and
// returns the new stock. It never lets stock go below zero.
func (r *productRepo) ApplyDelta(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		p, err := findProduct(tx, id)
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: product %s has %d, needs %d", model.ErrInsufficientStock, id, p.Stock, -delta)
	}
	var stock int
	if err := tx.Model(&model.Product{}).Where("id = ?", id).Select("stock").Scan(&stock).Error; err != nil {
		return 0, err
	}
	return stock, nil
}

// ApplyDeltaClamped is ApplyDelta for reversals that may already have been
// consumed: a result below zero is stored as zero and reported as clamped.
func (r *productRepo) ApplyDeltaClamped(tx *gorm.DB, id uuid.UUID, delta int) (int, bool, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, fmt.Errorf("%w: product %s", model.ErrNotFound, id)
	}
	if err != nil {
		return 0, false, err
	}
	newStock := p.Stock + delta
	clamped := newStock < 0
	if clamped {
		newStock = 0
	}
	if err := tx.Model(&model.Product{}).Where("id = ?", id).Update("stock", newStock).Error; err != nil {
		return 0, false, err
	}
	return newStock, clamped, nil
}

func findProduct(db *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := db.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
