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

type ProcurementRepository interface {
	WithTx(tx *gorm.DB) ProcurementRepository
	Create(ctx context.Context, p *model.Procurement) error
	Save(ctx context.Context, p *model.Procurement) error
	ReplaceLines(ctx context.Context, p *model.Procurement, lines []model.ProcurementLine) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Procurement, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Procurement, error)
	FindAll(ctx context.Context, filter model.ProcurementFilter) ([]model.Procurement, error)
}

type procurementRepo struct {
	db *gorm.DB
}

func NewProcurementRepo(db *gorm.DB) ProcurementRepository {
	return &procurementRepo{db}
}

func (r *procurementRepo) WithTx(tx *gorm.DB) ProcurementRepository {
	return &procurementRepo{tx}
}

func (r *procurementRepo) Create(ctx context.Context, p *model.Procurement) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Save updates the header. Lines are changed through ReplaceLines only.
func (r *procurementRepo) Save(ctx context.Context, p *model.Procurement) error {
	return r.db.WithContext(ctx).Omit("Products").Save(p).Error
}

func (r *procurementRepo) ReplaceLines(ctx context.Context, p *model.Procurement, lines []model.ProcurementLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("procurement_id = ?", p.ID).Delete(&model.ProcurementLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].ID = uuid.Nil
		lines[i].ProcurementID = p.ID
	}
	p.Products = lines
	p.Recalculate()
	if len(lines) > 0 {
		if err := db.Create(&p.Products).Error; err != nil {
			return err
		}
	}
	return r.Save(ctx, p)
}

func (r *procurementRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Procurement{}).Where("id = ?", id).Update("deleted_by", deletedBy)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: procurement %s", model.ErrNotFound, id)
	}
	return r.db.WithContext(ctx).Delete(&model.Procurement{}, "id = ?", id).Error
}

func (r *procurementRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Procurement, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the procurement row until the surrounding
// transaction ends, so two status changes cannot both reconcile.
func (r *procurementRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Procurement, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *procurementRepo) find(db *gorm.DB, id uuid.UUID) (*model.Procurement, error) {
	var p model.Procurement
	err := db.Preload("Products").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: procurement %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *procurementRepo) FindAll(ctx context.Context, filter model.ProcurementFilter) ([]model.Procurement, error) {
	var out []model.Procurement
	q := r.db.WithContext(ctx).Preload("Products").Where("establishment_id = ?", filter.EstablishmentID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filter.SupplierID)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}
