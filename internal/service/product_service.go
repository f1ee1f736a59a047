package service

import (
	"context"
	"fmt"

	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService is the Product Ledger surface. Stock itself only moves
// through entries, orders and procurements.
type ProductService interface {
	CreateProduct(ctx context.Context, actor model.Actor, req *model.Product) error
	UpdateProduct(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.Product) (*model.Product, error)
	GetProducts(ctx context.Context, actor model.Actor, establishmentID uuid.UUID) ([]model.Product, error)
	GetLowStock(ctx context.Context, actor model.Actor, establishmentID uuid.UUID) ([]model.Product, error)
	GetProduct(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Product, error)
	GetStock(ctx context.Context, actor model.Actor, id uuid.UUID) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
	log         *zap.Logger
}

func NewProductService(pRepo repository.ProductRepository, log *zap.Logger) ProductService {
	return &productService{productRepo: pRepo, log: log}
}

func (s *productService) CreateProduct(ctx context.Context, actor model.Actor, req *model.Product) error {
	if req.EstablishmentID == uuid.Nil {
		req.EstablishmentID = actor.EstablishmentID
	}
	if err := validator.Check(req); err != nil {
		return err
	}
	if err := authorize(actor, req.EstablishmentID); err != nil {
		return err
	}

	req.ID = uuid.Nil
	req.InitialStock = req.Stock
	req.CreatedBy = actor.ID.String()
	req.UpdatedBy = actor.ID.String()
	if err := s.productRepo.Create(ctx, req); err != nil {
		return err
	}

	logger.FromContext(ctx, s.log).Info("product created",
		zap.String("product_id", req.ID.String()),
		zap.String("establishment_id", req.EstablishmentID.String()),
		zap.Int("stock", req.Stock))
	return nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.Product) (*model.Product, error) {
	existing, err := s.GetProduct(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.Category = req.Category
	existing.Unit = req.Unit
	existing.PurchaseCost = req.PurchaseCost
	existing.UnitPrice = req.UnitPrice
	existing.PreparationCost = req.PreparationCost
	existing.LowStockThreshold = req.LowStockThreshold
	existing.UpdatedBy = actor.ID.String()
	if err := s.productRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *productService) GetProducts(ctx context.Context, actor model.Actor, establishmentID uuid.UUID) ([]model.Product, error) {
	if err := authorize(actor, establishmentID); err != nil {
		return nil, err
	}
	return s.productRepo.FindAll(ctx, establishmentID)
}

func (s *productService) GetLowStock(ctx context.Context, actor model.Actor, establishmentID uuid.UUID) ([]model.Product, error) {
	if err := authorize(actor, establishmentID); err != nil {
		return nil, err
	}
	return s.productRepo.FindLowStock(ctx, establishmentID)
}

func (s *productService) GetProduct(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(product.EstablishmentID) {
		return nil, fmt.Errorf("%w: product %s", model.ErrForbidden, id)
	}
	return product, nil
}

func (s *productService) GetStock(ctx context.Context, actor model.Actor, id uuid.UUID) (int, error) {
	product, err := s.GetProduct(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}
