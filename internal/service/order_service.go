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
	"go-resto-inventory/pkg/lock"
	"go-resto-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
	// UnitPrice defaults to the product's selling price.
	UnitPrice *float64 `json:"unit_price" validate:"omitempty,gte=0"`
}

type OrderRequest struct {
	EstablishmentID uuid.UUID          `json:"establishment_id"`
	TableNumber     string             `json:"table_number"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type OrderResult struct {
	Order    *model.Order    `json:"order"`
	Warnings []model.Warning `json:"-"`
}

// SyncResult is the outcome of one bulk order-to-inventory sync.
type SyncResult struct {
	SyncedCount int      `json:"synced_count"`
	TotalOrders int      `json:"total_orders"`
	Errors      []string `json:"errors"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor model.Actor, req *OrderRequest) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, status model.OrderStatus) (*OrderResult, error)
	CompleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*OrderResult, error)
	CancelOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*OrderResult, error)
	GetOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error)
	// UpdateInventoryFromOrder folds a completed order into the current
	// aggregate buckets. It writes no inventory entry.
	UpdateInventoryFromOrder(ctx context.Context, order *model.Order) []model.Warning
	// SyncSalesWithInventory writes one "sortie" entry per product of every
	// completed order in range that has none yet.
	SyncSalesWithInventory(ctx context.Context, actor model.Actor, establishmentID uuid.UUID, from, to time.Time) (*SyncResult, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	entryRepo   repository.InventoryEntryRepository
	aggregator  Aggregator
	locker      lock.Locker
	lockTTL     time.Duration
	db          *gorm.DB
	wsHub       *ws.Hub
	now         Clock
	log         *zap.Logger
}

type OrderServiceDeps struct {
	Orders     repository.OrderRepository
	Products   repository.ProductRepository
	Entries    repository.InventoryEntryRepository
	Aggregator Aggregator
	Locker     lock.Locker
	LockTTL    time.Duration
	DB         *gorm.DB
	Hub        *ws.Hub
	Now        Clock
	Log        *zap.Logger
}

func NewOrderService(d OrderServiceDeps) OrderService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Locker == nil {
		d.Locker = lock.Noop{}
	}
	if d.LockTTL <= 0 {
		d.LockTTL = 2 * time.Minute
	}
	return &orderService{
		orderRepo:   d.Orders,
		productRepo: d.Products,
		entryRepo:   d.Entries,
		aggregator:  d.Aggregator,
		locker:      d.Locker,
		lockTTL:     d.LockTTL,
		db:          d.DB,
		wsHub:       d.Hub,
		now:         d.Now,
		log:         d.Log,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor model.Actor, req *OrderRequest) (*model.Order, error) {
	if req.EstablishmentID == uuid.Nil {
		req.EstablishmentID = actor.EstablishmentID
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if err := authorize(actor, req.EstablishmentID); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		EstablishmentID: req.EstablishmentID,
		OrderNumber:     documentNumber("CMD", s.now()),
		Status:          model.OrderPending,
		TableNumber:     req.TableNumber,
		RecordedBy:      actor.ID,
	}
	order.CreatedBy = actor.ID.String()
	order.UpdatedBy = actor.ID.String()
	total := decimal.Zero
	for _, it := range req.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", model.ErrNotFound, it.ProductID)
		}
		if p.EstablishmentID != req.EstablishmentID {
			return nil, fmt.Errorf("%w: product %s belongs to another establishment", model.ErrValidation, it.ProductID)
		}
		price := p.UnitPrice
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		sub := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(sub)
		order.Items = append(order.Items, model.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: price,
			Subtotal:  sub.InexactFloat64(),
		})
	}
	order.TotalAmount = total.InexactFloat64()

	// Every line is reserved or none is.
	newStock := make(map[uuid.UUID]int, len(order.Items))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			stock, err := s.productRepo.ApplyDelta(tx, item.ProductID, -item.Quantity)
			if err != nil {
				return err
			}
			newStock[item.ProductID] = stock
		}
		return s.orderRepo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		s.wsHub.NotifyStockChange(ws.StockEvent{
			Action:          ws.ActionOrderReserved,
			ProductID:       item.ProductID,
			EstablishmentID: order.EstablishmentID,
			Delta:           -item.Quantity,
			NewStock:        newStock[item.ProductID],
			Reference:       order.OrderNumber,
			ActorID:         actor.ID,
		})
	}
	logger.FromContext(ctx, s.log).Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)))
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, status model.OrderStatus) (*OrderResult, error) {
	switch status {
	case model.OrderCompleted:
		return s.CompleteOrder(ctx, actor, id)
	case model.OrderCancelled:
		return s.CancelOrder(ctx, actor, id)
	case model.OrderPending, model.OrderPreparing, model.OrderServed:
	default:
		return nil, fmt.Errorf("%w: unknown order status %q", model.ErrValidation, status)
	}

	order, err := s.openOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	order.Status = status
	order.UpdatedBy = actor.ID.String()
	if err := s.orderRepo.UpdateStatus(ctx, order, from); err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *orderService) openOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !order.IsOpen() {
		return nil, fmt.Errorf("%w: order %s is already %s", model.ErrConflict, id, order.Status)
	}
	return order, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*OrderResult, error) {
	order, err := s.openOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	now := s.now()
	order.Status = model.OrderCompleted
	order.CompletedAt = &now
	order.UpdatedBy = actor.ID.String()
	if err := s.orderRepo.UpdateStatus(ctx, order, from); err != nil {
		return nil, err
	}

	warnings := s.UpdateInventoryFromOrder(ctx, order)
	logger.FromContext(ctx, s.log).Info("order completed",
		zap.String("order_id", order.ID.String()),
		zap.Int("warnings", len(warnings)))
	return &OrderResult{Order: order, Warnings: warnings}, nil
}

func (s *orderService) CancelOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*OrderResult, error) {
	log := logger.FromContext(ctx, s.log)
	order, err := s.openOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	order.Status = model.OrderCancelled
	order.UpdatedBy = actor.ID.String()

	var warnings []model.Warning
	newStock := map[uuid.UUID]int{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).UpdateStatus(ctx, order, from); err != nil {
			return err
		}
		for _, item := range order.Items {
			stock, err := s.productRepo.ApplyDelta(tx, item.ProductID, item.Quantity)
			if errors.Is(err, model.ErrNotFound) {
				warnings = append(warnings, warn(model.StageStockReversal, err))
				continue
			}
			if err != nil {
				return err
			}
			newStock[item.ProductID] = stock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for productID, stock := range newStock {
		s.wsHub.NotifyStockChange(ws.StockEvent{
			Action:          ws.ActionOrderReleased,
			ProductID:       productID,
			EstablishmentID: order.EstablishmentID,
			NewStock:        stock,
			Reference:       order.OrderNumber,
			ActorID:         actor.ID,
		})
	}
	log.Info("order cancelled", zap.String("order_id", order.ID.String()), zap.Int("released", len(newStock)))
	return &OrderResult{Order: order, Warnings: warnings}, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.EstablishmentID) {
		return nil, fmt.Errorf("%w: order %s", model.ErrForbidden, id)
	}
	return order, nil
}

func (s *orderService) UpdateInventoryFromOrder(ctx context.Context, order *model.Order) []model.Warning {
	log := logger.FromContext(ctx, s.log).With(zap.String("order_id", order.ID.String()))
	var warnings []model.Warning

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.Warn("aggregation skipped, products not loaded", zap.Error(err))
		return []model.Warning{warn(model.StageAggregation, err)}
	}

	date := s.now()
	if order.CompletedAt != nil {
		date = *order.CompletedAt
	}
	for _, item := range order.Items {
		p, ok := products[item.ProductID]
		if !ok {
			warnings = append(warnings, warn(model.StageAggregation, fmt.Errorf("%w: product %s", model.ErrNotFound, item.ProductID)))
			continue
		}
		if err := s.aggregator.RecordSale(ctx, &p, item); err != nil {
			log.Warn("aggregation failed", zap.String("product_id", p.ID.String()), zap.Error(err))
			warnings = append(warnings, warn(model.StageAggregation, err))
		}
		if err := s.aggregator.UpdateProductProfit(ctx, &p, item, date); err != nil {
			log.Warn("product profit failed", zap.String("product_id", p.ID.String()), zap.Error(err))
			warnings = append(warnings, warn(model.StageProductProfit, err))
		}
	}
	return warnings
}

// syncLine is the quantity of one product sold by one order.
type syncLine struct {
	productID uuid.UUID
	quantity  int
}

// mergeLines sums the lines of an order per product, keeping first-seen order.
func mergeLines(items []model.OrderItem) []syncLine {
	index := map[uuid.UUID]int{}
	var out []syncLine
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, syncLine{productID: it.ProductID, quantity: it.Quantity})
	}
	return out
}

func syncReference(orderID, productID uuid.UUID) string {
	return fmt.Sprintf("order:%s:%s", orderID, productID)
}

func (s *orderService) SyncSalesWithInventory(ctx context.Context, actor model.Actor, establishmentID uuid.UUID, from, to time.Time) (*SyncResult, error) {
	log := logger.FromContext(ctx, s.log).With(zap.String("establishment_id", establishmentID.String()))
	if err := authorize(actor, establishmentID); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", model.ErrValidation)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date before start date", model.ErrValidation)
	}

	release, err := s.locker.Obtain(ctx, "lock:inventory-sync:"+establishmentID.String(), s.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: a sync is already running for establishment %s", model.ErrConflict, establishmentID)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	orders, err := s.orderRepo.FindCompletedInRange(ctx, establishmentID, from, to)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, o := range orders {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{TotalOrders: len(orders), Errors: []string{}}
	for _, o := range orders {
		for _, line := range mergeLines(o.Items) {
			ref := syncReference(o.ID, line.productID)
			exists, err := s.entryRepo.ExistsByReference(ctx, ref)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", o.OrderNumber, err))
				continue
			}
			if exists {
				continue
			}
			p, ok := products[line.productID]
			if !ok {
				result.Errors = append(result.Errors, fmt.Sprintf("order %s: product %s not found", o.OrderNumber, line.productID))
				continue
			}

			entry := &model.InventoryEntry{
				ProductID:       p.ID,
				EstablishmentID: o.EstablishmentID,
				Type:            model.EntryOut,
				Quantity:        line.quantity,
				UnitCost:        p.PurchaseCost,
				TotalCost:       lineCost(p.PurchaseCost, line.quantity),
				Reason:          fmt.Sprintf("Vente commande %s", o.OrderNumber),
				Source:          model.SourceOrderSync,
				Reference:       &ref,
				RecordedBy:      actor.ID,
				Date:            *o.CompletedAt,
			}
			entry.CreatedBy = actor.ID.String()
			entry.UpdatedBy = actor.ID.String()
			if err := s.entryRepo.Create(ctx, entry); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("order %s, product %s: %v", o.OrderNumber, p.ID, err))
				continue
			}
			result.SyncedCount++
		}
	}

	log.Info("sales synced with inventory",
		zap.Int("synced", result.SyncedCount),
		zap.Int("orders", result.TotalOrders),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}
