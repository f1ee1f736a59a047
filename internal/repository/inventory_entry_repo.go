package repository

import (
	"context"
	"errors"
	"fmt"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryEntryRepository interface {
	WithTx(tx *gorm.DB) InventoryEntryRepository
	Create(ctx context.Context, entry *model.InventoryEntry) error
	Update(ctx context.Context, entry *model.InventoryEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryEntry, error)
	FindAll(ctx context.Context, filter model.EntryFilter) ([]model.InventoryEntry, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	Totals(ctx context.Context, filter model.EntryFilter) (*model.EntryTotals, error)
}

type inventoryEntryRepo struct {
	db *gorm.DB
}

func NewInventoryEntryRepo(db *gorm.DB) InventoryEntryRepository {
	return &inventoryEntryRepo{db}
}

func (r *inventoryEntryRepo) WithTx(tx *gorm.DB) InventoryEntryRepository {
	return &inventoryEntryRepo{tx}
}

func (r *inventoryEntryRepo) Create(ctx context.Context, entry *model.InventoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *inventoryEntryRepo) Update(ctx context.Context, entry *model.InventoryEntry) error {
	return r.db.WithContext(ctx).Omit("Product").Save(entry).Error
}

// Delete removes the row for good so a later sync may recreate its reference.
func (r *inventoryEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&model.InventoryEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", model.ErrNotFound, id)
	}
	return nil
}

func (r *inventoryEntryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryEntry, error) {
	var entry model.InventoryEntry
	err := r.db.WithContext(ctx).Preload("Product").First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: entry %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *inventoryEntryRepo) FindAll(ctx context.Context, filter model.EntryFilter) ([]model.InventoryEntry, error) {
	var entries []model.InventoryEntry
	err := applyEntryFilter(r.db.WithContext(ctx).Model(&model.InventoryEntry{}), filter).
		Preload("Product").
		Order("date DESC").
		Find(&entries).Error
	return entries, err
}

func (r *inventoryEntryRepo) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.InventoryEntry{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count > 0, err
}

type entryTotalRow struct {
	Type      model.EntryType
	Quantity  int
	TotalCost float64
	Count     int
}

func (r *inventoryEntryRepo) Totals(ctx context.Context, filter model.EntryFilter) (*model.EntryTotals, error) {
	var rows []entryTotalRow
	err := applyEntryFilter(r.db.WithContext(ctx).Model(&model.InventoryEntry{}), filter).
		Select(`
			type,
			COALESCE(SUM(quantity), 0) as quantity,
			COALESCE(SUM(total_cost), 0) as total_cost,
			COUNT(*) as count
		`).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := &model.EntryTotals{QuantityByType: make(map[model.EntryType]int, len(model.EntryTypes))}
	for _, t := range model.EntryTypes {
		totals.QuantityByType[t] = 0
	}
	for _, row := range rows {
		totals.QuantityByType[row.Type] += row.Quantity
		totals.TotalCost += row.TotalCost
		totals.Count += row.Count
	}
	return totals, nil
}

func applyEntryFilter(q *gorm.DB, f model.EntryFilter) *gorm.DB {
	q = q.Where("establishment_id = ?", f.EstablishmentID)
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	return q
}
