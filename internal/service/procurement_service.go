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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stockEffect int

const (
	effectNone stockEffect = iota
	effectSupply
	effectWithdraw
)

// procurementTransitions maps from-status x to-status to the stock effect of
// the change. Entering livrée supplies stock, leaving it withdraws stock.
var procurementTransitions = map[model.ProcurementStatus]map[model.ProcurementStatus]stockEffect{
	model.ProcurementPending: {
		model.ProcurementPending:   effectNone,
		model.ProcurementConfirmed: effectNone,
		model.ProcurementDelivered: effectSupply,
		model.ProcurementCancelled: effectNone,
		model.ProcurementDeleted:   effectNone,
	},
	model.ProcurementConfirmed: {
		model.ProcurementPending:   effectNone,
		model.ProcurementConfirmed: effectNone,
		model.ProcurementDelivered: effectSupply,
		model.ProcurementCancelled: effectNone,
		model.ProcurementDeleted:   effectNone,
	},
	model.ProcurementDelivered: {
		model.ProcurementPending:   effectWithdraw,
		model.ProcurementConfirmed: effectWithdraw,
		model.ProcurementDelivered: effectNone,
		model.ProcurementCancelled: effectWithdraw,
		model.ProcurementDeleted:   effectWithdraw,
	},
	model.ProcurementCancelled: {
		model.ProcurementPending:   effectNone,
		model.ProcurementConfirmed: effectNone,
		model.ProcurementDelivered: effectSupply,
		model.ProcurementCancelled: effectNone,
		model.ProcurementDeleted:   effectNone,
	},
}

func transitionEffect(from, to model.ProcurementStatus) (stockEffect, error) {
	targets, ok := procurementTransitions[from]
	if !ok {
		return effectNone, fmt.Errorf("%w: unknown procurement status %q", model.ErrValidation, from)
	}
	effect, ok := targets[to]
	if !ok {
		return effectNone, fmt.Errorf("%w: unknown procurement status %q", model.ErrValidation, to)
	}
	return effect, nil
}

// StockModification is one product stock change applied by a reconciliation.
type StockModification struct {
	ProductID   uuid.UUID          `json:"product_id"`
	Type        model.MovementType `json:"type"`
	Quantity    int                `json:"quantity"`
	StockBefore int                `json:"stock_before"`
	StockAfter  int                `json:"stock_after"`
}

// ReconcileResult is the outcome of one status change. Errors lists the
// products that were skipped; the others were applied.
type ReconcileResult struct {
	From          model.ProcurementStatus `json:"from"`
	To            model.ProcurementStatus `json:"to"`
	Modifications []StockModification     `json:"modifications"`
	Errors        []string                `json:"erreurs"`
}

type ProcurementLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
	UnitPrice float64   `json:"unit_price" validate:"gte=0"`
}

type ProcurementRequest struct {
	EstablishmentID uuid.UUID                `json:"establishment_id"`
	SupplierID      uuid.UUID                `json:"supplier_id" validate:"uuid_required"`
	Products        []ProcurementLineRequest `json:"products" validate:"required,min=1,dive"`
	Status          model.ProcurementStatus  `json:"status" validate:"omitempty,procurement_status"`
	PaymentType     model.PaymentType        `json:"payment_type" validate:"omitempty,oneof=especes virement cheque credit"`
	AmountPaid      float64                  `json:"amount_paid" validate:"gte=0"`
	Notes           string                   `json:"notes"`
}

// ProcurementUpdate carries the fields to change; nil keeps the stored value.
type ProcurementUpdate struct {
	SupplierID  *uuid.UUID               `json:"supplier_id"`
	Products    []ProcurementLineRequest `json:"products" validate:"omitempty,min=1,dive"`
	PaymentType *model.PaymentType       `json:"payment_type" validate:"omitempty,oneof=especes virement cheque credit"`
	AmountPaid  *float64                 `json:"amount_paid" validate:"omitempty,gte=0"`
	Notes       *string                  `json:"notes"`
}

type ProcurementResult struct {
	Procurement    *model.Procurement `json:"procurement"`
	Reconciliation *ReconcileResult   `json:"reconciliation,omitempty"`
	Warnings       []model.Warning    `json:"-"`
}

type ProcurementService interface {
	CreateProcurement(ctx context.Context, actor model.Actor, req *ProcurementRequest) (*ProcurementResult, error)
	UpdateProcurement(ctx context.Context, actor model.Actor, id uuid.UUID, req *ProcurementUpdate) (*ProcurementResult, error)
	UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, status model.ProcurementStatus) (*ProcurementResult, error)
	DeleteProcurement(ctx context.Context, actor model.Actor, id uuid.UUID) (*ProcurementResult, error)
	GetProcurement(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Procurement, error)
	GetProcurements(ctx context.Context, actor model.Actor, filter model.ProcurementFilter) ([]model.Procurement, error)
	GetMovements(ctx context.Context, actor model.Actor, filter model.MovementFilter) ([]model.StockMovement, error)
}

type procurementService struct {
	procurementRepo repository.ProcurementRepository
	productRepo     repository.ProductRepository
	movementRepo    repository.StockMovementRepository
	db              *gorm.DB
	wsHub           *ws.Hub
	now             Clock
	log             *zap.Logger
}

func NewProcurementService(
	procRepo repository.ProcurementRepository,
	pRepo repository.ProductRepository,
	mRepo repository.StockMovementRepository,
	db *gorm.DB,
	hub *ws.Hub,
	now Clock,
	log *zap.Logger,
) ProcurementService {
	if now == nil {
		now = time.Now
	}
	return &procurementService{
		procurementRepo: procRepo,
		productRepo:     pRepo,
		movementRepo:    mRepo,
		db:              db,
		wsHub:           hub,
		now:             now,
		log:             log,
	}
}

// checkLines rejects products owned by another establishment. Unknown
// products are accepted here and reported by the reconciliation.
func (s *procurementService) checkLines(ctx context.Context, establishmentID uuid.UUID, lines []ProcurementLineRequest) ([]model.ProcurementLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProcurementLine, 0, len(lines))
	for _, l := range lines {
		if p, ok := products[l.ProductID]; ok && p.EstablishmentID != establishmentID {
			return nil, fmt.Errorf("%w: product %s belongs to another establishment", model.ErrValidation, l.ProductID)
		}
		out = append(out, model.ProcurementLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return out, nil
}

// reconcile applies the stock effect of from -> to for every line of p inside
// tx. Per-product failures are collected; only database errors are returned.
func (s *procurementService) reconcile(ctx context.Context, tx *gorm.DB, actor model.Actor, p *model.Procurement, from, to model.ProcurementStatus) (*ReconcileResult, error) {
	result := &ReconcileResult{From: from, To: to, Modifications: []StockModification{}, Errors: []string{}}
	effect, err := transitionEffect(from, to)
	if err != nil {
		return nil, err
	}
	if effect == effectNone {
		return result, nil
	}

	movements := s.movementRepo.WithTx(tx)
	for _, line := range p.Products {
		delta, mtype := line.Quantity, model.MovementSupply
		if effect == effectWithdraw {
			delta, mtype = -line.Quantity, model.MovementCancellation
		}

		stock, err := s.productRepo.ApplyDelta(tx, line.ProductID, delta)
		switch {
		case errors.Is(err, model.ErrNotFound):
			result.Errors = append(result.Errors, fmt.Sprintf("product %s not found", line.ProductID))
			continue
		case errors.Is(err, model.ErrInsufficientStock):
			result.Errors = append(result.Errors, fmt.Sprintf("product %s: stock too low to withdraw %d, reversal skipped", line.ProductID, line.Quantity))
			continue
		case err != nil:
			return nil, err
		}

		movement := &model.StockMovement{
			ProductID:       line.ProductID,
			EstablishmentID: p.EstablishmentID,
			Quantity:        delta,
			Type:            mtype,
			Reference:       p.OrderNumber,
			StockBefore:     stock - delta,
			StockAfter:      stock,
			RecordedBy:      actor.ID,
		}
		if err := movements.Create(ctx, movement); err != nil {
			return nil, err
		}
		result.Modifications = append(result.Modifications, StockModification{
			ProductID:   line.ProductID,
			Type:        mtype,
			Quantity:    delta,
			StockBefore: movement.StockBefore,
			StockAfter:  movement.StockAfter,
		})
	}
	return result, nil
}

// afterReconcile logs the result and broadcasts the applied changes once the
// transaction committed.
func (s *procurementService) afterReconcile(ctx context.Context, actor model.Actor, p *model.Procurement, result *ReconcileResult) []model.Warning {
	if result == nil || (len(result.Modifications) == 0 && len(result.Errors) == 0) {
		return nil
	}
	log := logger.FromContext(ctx, s.log).With(
		zap.String("procurement_id", p.ID.String()),
		zap.String("order_number", p.OrderNumber),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
		zap.Int("modifications", len(result.Modifications)),
		zap.Strings("erreurs", result.Errors))
	if len(result.Errors) > 0 {
		log.Warn("procurement reconciled with errors")
	} else {
		log.Info("procurement reconciled")
	}

	for _, m := range result.Modifications {
		s.wsHub.NotifyStockChange(ws.StockEvent{
			Action:          ws.ActionProcurementReconciled,
			ProductID:       m.ProductID,
			EstablishmentID: p.EstablishmentID,
			Delta:           m.Quantity,
			NewStock:        m.StockAfter,
			Reference:       p.OrderNumber,
			ActorID:         actor.ID,
		})
	}
	warnings := make([]model.Warning, 0, len(result.Errors))
	for _, e := range result.Errors {
		warnings = append(warnings, model.Warning{Stage: model.StageReconciliation, Message: e})
	}
	return warnings
}

func (s *procurementService) stamp(p *model.Procurement, to model.ProcurementStatus) {
	now := s.now()
	switch to {
	case model.ProcurementDelivered:
		p.DeliveredAt = &now
	case model.ProcurementCancelled:
		p.CancelledAt = &now
	}
}

func (s *procurementService) CreateProcurement(ctx context.Context, actor model.Actor, req *ProcurementRequest) (*ProcurementResult, error) {
	if req.EstablishmentID == uuid.Nil {
		req.EstablishmentID = actor.EstablishmentID
	}
	if req.Status == "" {
		req.Status = model.ProcurementPending
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if err := authorize(actor, req.EstablishmentID); err != nil {
		return nil, err
	}
	lines, err := s.checkLines(ctx, req.EstablishmentID, req.Products)
	if err != nil {
		return nil, err
	}

	p := &model.Procurement{
		EstablishmentID: req.EstablishmentID,
		SupplierID:      req.SupplierID,
		OrderNumber:     documentNumber("PROC", s.now()),
		Products:        lines,
		Status:          req.Status,
		PaymentType:     req.PaymentType,
		AmountPaid:      req.AmountPaid,
		Notes:           req.Notes,
		RecordedBy:      actor.ID,
	}
	p.CreatedBy = actor.ID.String()
	p.UpdatedBy = actor.ID.String()
	s.stamp(p, p.Status)

	var result *ReconcileResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.procurementRepo.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		var err error
		result, err = s.reconcile(ctx, tx, actor, p, model.ProcurementPending, p.Status)
		return err
	})
	if err != nil {
		return nil, err
	}
	warnings := s.afterReconcile(ctx, actor, p, result)
	return &ProcurementResult{Procurement: p, Reconciliation: result, Warnings: warnings}, nil
}

func (s *procurementService) UpdateProcurement(ctx context.Context, actor model.Actor, id uuid.UUID, req *ProcurementUpdate) (*ProcurementResult, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	p, err := s.GetProcurement(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var lines []model.ProcurementLine
	if req.Products != nil {
		if p.Status == model.ProcurementDelivered {
			return nil, fmt.Errorf("%w: lines of a delivered procurement cannot change", model.ErrValidation)
		}
		if lines, err = s.checkLines(ctx, p.EstablishmentID, req.Products); err != nil {
			return nil, err
		}
	}
	if req.SupplierID != nil {
		p.SupplierID = *req.SupplierID
	}
	if req.PaymentType != nil {
		p.PaymentType = *req.PaymentType
	}
	if req.AmountPaid != nil {
		p.AmountPaid = *req.AmountPaid
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	p.UpdatedBy = actor.ID.String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.procurementRepo.WithTx(tx)
		if lines != nil {
			return repo.ReplaceLines(ctx, p, lines)
		}
		return repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return &ProcurementResult{Procurement: p}, nil
}

func (s *procurementService) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, status model.ProcurementStatus) (*ProcurementResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown procurement status %q", model.ErrValidation, status)
	}
	if _, err := s.GetProcurement(ctx, actor, id); err != nil {
		return nil, err
	}

	var (
		p      *model.Procurement
		result *ReconcileResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.procurementRepo.WithTx(tx)
		var err error
		if p, err = repo.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		from := p.Status
		if result, err = s.reconcile(ctx, tx, actor, p, from, status); err != nil {
			return err
		}
		if from == status {
			return nil
		}
		p.Status = status
		p.UpdatedBy = actor.ID.String()
		s.stamp(p, status)
		return repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	warnings := s.afterReconcile(ctx, actor, p, result)
	return &ProcurementResult{Procurement: p, Reconciliation: result, Warnings: warnings}, nil
}

func (s *procurementService) DeleteProcurement(ctx context.Context, actor model.Actor, id uuid.UUID) (*ProcurementResult, error) {
	if _, err := s.GetProcurement(ctx, actor, id); err != nil {
		return nil, err
	}

	var (
		p      *model.Procurement
		result *ReconcileResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.procurementRepo.WithTx(tx)
		var err error
		if p, err = repo.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if result, err = s.reconcile(ctx, tx, actor, p, p.Status, model.ProcurementDeleted); err != nil {
			return err
		}
		return repo.Delete(ctx, id, actor.ID.String())
	})
	if err != nil {
		return nil, err
	}
	warnings := s.afterReconcile(ctx, actor, p, result)
	return &ProcurementResult{Procurement: p, Reconciliation: result, Warnings: warnings}, nil
}

func (s *procurementService) GetProcurement(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Procurement, error) {
	p, err := s.procurementRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(p.EstablishmentID) {
		return nil, fmt.Errorf("%w: procurement %s", model.ErrForbidden, id)
	}
	return p, nil
}

func (s *procurementService) GetProcurements(ctx context.Context, actor model.Actor, filter model.ProcurementFilter) ([]model.Procurement, error) {
	if err := authorize(actor, filter.EstablishmentID); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown procurement status %q", model.ErrValidation, *filter.Status)
	}
	return s.procurementRepo.FindAll(ctx, filter)
}

func (s *procurementService) GetMovements(ctx context.Context, actor model.Actor, filter model.MovementFilter) ([]model.StockMovement, error) {
	if err := authorize(actor, filter.EstablishmentID); err != nil {
		return nil, err
	}
	return s.movementRepo.FindAll(ctx, filter)
}
