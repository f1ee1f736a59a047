package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/ws"
	"go-resto-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errAggregatesNotCorrected is the warning attached to entry updates and
// deletes: previously written buckets keep the old figures.
var errAggregatesNotCorrected = errors.New("aggregates were not corrected for this change")

type EntryRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"uuid_required"`
	Type         model.EntryType `json:"type" validate:"required,entry_type"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	UnitCost     *float64        `json:"unit_cost" validate:"omitempty,gte=0"`
	Reason       string          `json:"reason"`
	LossCategory string          `json:"loss_category"`
	LossDetails  string          `json:"loss_details"`
	Date         *time.Time      `json:"date"`
}

// EntryUpdate carries the fields to change; nil keeps the stored value.
type EntryUpdate struct {
	Type         *model.EntryType `json:"type"`
	Quantity     *int             `json:"quantity"`
	UnitCost     *float64         `json:"unit_cost"`
	Reason       *string          `json:"reason"`
	LossCategory *string          `json:"loss_category"`
	LossDetails  *string          `json:"loss_details"`
}

// EntryResult is the primary result of an entry write plus the secondary
// effects that failed without undoing it.
type EntryResult struct {
	Entry    *model.InventoryEntry `json:"entry"`
	Stock    int                   `json:"stock"`
	Warnings []model.Warning       `json:"-"`
}

type EntryList struct {
	Entries []model.InventoryEntry `json:"entries"`
	Totals  *model.EntryTotals     `json:"totals"`
}

type InventoryService interface {
	CreateEntry(ctx context.Context, actor model.Actor, req *EntryRequest) (*EntryResult, error)
	UpdateEntry(ctx context.Context, actor model.Actor, id uuid.UUID, req *EntryUpdate) (*EntryResult, error)
	DeleteEntry(ctx context.Context, actor model.Actor, id uuid.UUID) (*EntryResult, error)
	GetEntry(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.InventoryEntry, error)
	ListEntries(ctx context.Context, actor model.Actor, filter model.EntryFilter) (*EntryList, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	entryRepo   repository.InventoryEntryRepository
	aggregator  Aggregator
	db          *gorm.DB
	wsHub       *ws.Hub
	now         Clock
	log         *zap.Logger
}

func NewInventoryService(
	pRepo repository.ProductRepository,
	eRepo repository.InventoryEntryRepository,
	aggregator Aggregator,
	db *gorm.DB,
	hub *ws.Hub,
	now Clock,
	log *zap.Logger,
) InventoryService {
	if now == nil {
		now = time.Now
	}
	return &inventoryService{
		productRepo: pRepo,
		entryRepo:   eRepo,
		aggregator:  aggregator,
		db:          db,
		wsHub:       hub,
		now:         now,
		log:         log,
	}
}

func validateEntry(t model.EntryType, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0", model.ErrValidation)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: unknown entry type %q", model.ErrValidation, t)
	}
	return nil
}

func lineCost(unitCost float64, quantity int) float64 {
	return decimal.NewFromFloat(unitCost).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// canModify allows the original recorder and admins.
func canModify(actor model.Actor, entry *model.InventoryEntry) error {
	if !actor.CanAccess(entry.EstablishmentID) {
		return fmt.Errorf("%w: establishment %s", model.ErrForbidden, entry.EstablishmentID)
	}
	if entry.RecordedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the recorder or an admin may change entry %s", model.ErrForbidden, entry.ID)
	}
	return nil
}

func (s *inventoryService) CreateEntry(ctx context.Context, actor model.Actor, req *EntryRequest) (*EntryResult, error) {
	log := logger.FromContext(ctx, s.log)

	// 1. Validate before touching anything
	if err := validateEntry(req.Type, req.Quantity); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, product.EstablishmentID); err != nil {
		return nil, err
	}

	// 2. Build the entry
	unitCost := product.PurchaseCost
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}
	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}
	entry := &model.InventoryEntry{
		ProductID:       product.ID,
		EstablishmentID: product.EstablishmentID,
		Type:            req.Type,
		Quantity:        req.Quantity,
		UnitCost:        unitCost,
		TotalCost:       lineCost(unitCost, req.Quantity),
		Reason:          req.Reason,
		LossCategory:    req.LossCategory,
		LossDetails:     req.LossDetails,
		Source:          model.SourceManual,
		RecordedBy:      actor.ID,
		Date:            date,
	}
	entry.CreatedBy = actor.ID.String()
	entry.UpdatedBy = actor.ID.String()

	// 3. Ledger + entry in one transaction
	delta := req.Type.StockDelta(req.Quantity)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock, err := s.productRepo.ApplyDelta(tx, product.ID, delta)
		if err != nil {
			return err
		}
		product.Stock = stock
		return s.entryRepo.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	// 4. Best-effort aggregation
	result := &EntryResult{Entry: entry, Stock: product.Stock}
	if err := s.aggregator.UpdateAggregatedStats(ctx, product, entry); err != nil {
		log.Warn("aggregation failed",
			zap.String("entry_id", entry.ID.String()),
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
		result.Warnings = append(result.Warnings, warn(model.StageAggregation, err))
	}

	entry.Product = product
	s.wsHub.NotifyStockChange(ws.StockEvent{
		Action:          ws.ActionEntryCreated,
		ProductID:       product.ID,
		EstablishmentID: product.EstablishmentID,
		Delta:           delta,
		NewStock:        product.Stock,
		Reference:       entry.ID.String(),
		ActorID:         actor.ID,
	})
	log.Info("inventory entry recorded",
		zap.String("entry_id", entry.ID.String()),
		zap.String("type", string(entry.Type)),
		zap.Int("quantity", entry.Quantity),
		zap.Int("stock", product.Stock))
	return result, nil
}

func (s *inventoryService) UpdateEntry(ctx context.Context, actor model.Actor, id uuid.UUID, req *EntryUpdate) (*EntryResult, error) {
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(actor, entry); err != nil {
		return nil, err
	}
	if entry.Source == model.SourceOrderSync {
		return nil, fmt.Errorf("%w: entry %s was generated by the order sync", model.ErrValidation, id)
	}

	newType, newQty := entry.Type, entry.Quantity
	if req.Type != nil {
		newType = *req.Type
	}
	if req.Quantity != nil {
		newQty = *req.Quantity
	}
	if err := validateEntry(newType, newQty); err != nil {
		return nil, err
	}
	if req.UnitCost != nil {
		if *req.UnitCost < 0 {
			return nil, fmt.Errorf("%w: unit cost must not be negative", model.ErrValidation)
		}
		entry.UnitCost = *req.UnitCost
	}
	if req.Reason != nil {
		entry.Reason = *req.Reason
	}
	if req.LossCategory != nil {
		entry.LossCategory = *req.LossCategory
	}
	if req.LossDetails != nil {
		entry.LossDetails = *req.LossDetails
	}

	net := newType.StockDelta(newQty) - entry.Type.StockDelta(entry.Quantity)
	entry.Type = newType
	entry.Quantity = newQty
	entry.TotalCost = lineCost(entry.UnitCost, newQty)
	entry.UpdatedBy = actor.ID.String()

	var stock int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if stock, err = s.productRepo.ApplyDelta(tx, entry.ProductID, net); err != nil {
			return err
		}
		return s.entryRepo.WithTx(tx).Update(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	if entry.Product != nil {
		entry.Product.Stock = stock
	}

	s.wsHub.NotifyStockChange(ws.StockEvent{
		Action:          ws.ActionEntryUpdated,
		ProductID:       entry.ProductID,
		EstablishmentID: entry.EstablishmentID,
		Delta:           net,
		NewStock:        stock,
		Reference:       entry.ID.String(),
		ActorID:         actor.ID,
	})
	logger.FromContext(ctx, s.log).Info("inventory entry updated",
		zap.String("entry_id", entry.ID.String()),
		zap.Int("net_delta", net),
		zap.Int("stock", stock))
	return &EntryResult{
		Entry:    entry,
		Stock:    stock,
		Warnings: []model.Warning{warn(model.StageAggregation, errAggregatesNotCorrected)},
	}, nil
}

func (s *inventoryService) DeleteEntry(ctx context.Context, actor model.Actor, id uuid.UUID) (*EntryResult, error) {
	log := logger.FromContext(ctx, s.log)
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(actor, entry); err != nil {
		return nil, err
	}

	// Synced entries never moved the ledger, so there is nothing to reverse.
	reverse := 0
	if entry.Source != model.SourceOrderSync {
		reverse = -entry.Type.StockDelta(entry.Quantity)
	}

	var (
		stock    int
		clamped  bool
		warnings []model.Warning
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if stock, clamped, err = s.productRepo.ApplyDeltaClamped(tx, entry.ProductID, reverse); err != nil {
			return err
		}
		return s.entryRepo.WithTx(tx).Delete(ctx, entry.ID)
	})
	if err != nil {
		return nil, err
	}
	if clamped {
		log.Warn("entry reversal clamped at zero",
			zap.String("entry_id", entry.ID.String()),
			zap.String("product_id", entry.ProductID.String()),
			zap.Int("reverse_delta", reverse))
		warnings = append(warnings, model.Warning{
			Stage:   model.StageStockReversal,
			Message: fmt.Sprintf("stock of product %s was clamped to 0, part of the quantity was already consumed", entry.ProductID),
		})
	}
	warnings = append(warnings, warn(model.StageAggregation, errAggregatesNotCorrected))
	if entry.Product != nil {
		entry.Product.Stock = stock
	}

	s.wsHub.NotifyStockChange(ws.StockEvent{
		Action:          ws.ActionEntryDeleted,
		ProductID:       entry.ProductID,
		EstablishmentID: entry.EstablishmentID,
		Delta:           reverse,
		NewStock:        stock,
		Reference:       entry.ID.String(),
		ActorID:         actor.ID,
	})
	log.Info("inventory entry deleted", zap.String("entry_id", entry.ID.String()), zap.Int("stock", stock))
	return &EntryResult{Entry: entry, Stock: stock, Warnings: warnings}, nil
}

func (s *inventoryService) GetEntry(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.InventoryEntry, error) {
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(entry.EstablishmentID) {
		return nil, fmt.Errorf("%w: entry %s", model.ErrForbidden, id)
	}
	return entry, nil
}

func (s *inventoryService) ListEntries(ctx context.Context, actor model.Actor, filter model.EntryFilter) (*EntryList, error) {
	if err := authorize(actor, filter.EstablishmentID); err != nil {
		return nil, err
	}
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown entry type %q", model.ErrValidation, *filter.Type)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: end date before start date", model.ErrValidation)
	}
	entries, err := s.entryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	totals, err := s.entryRepo.Totals(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &EntryList{Entries: entries, Totals: totals}, nil
}
