package service

import (
	"context"
	"fmt"
	"time"

	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator is the write side of the aggregation engine. Callers treat its
// errors as non-fatal warnings.
type Aggregator interface {
	// UpdateAggregatedStats folds an inventory entry into the current weekly
	// and monthly buckets of its product.
	UpdateAggregatedStats(ctx context.Context, product *model.Product, entry *model.InventoryEntry) error
	// UpdateProductProfit adds one sold line to the daily profit bucket of date.
	UpdateProductProfit(ctx context.Context, product *model.Product, item model.OrderItem, date time.Time) error
	// RecordSale adds one sold line to the current weekly and monthly buckets.
	RecordSale(ctx context.Context, product *model.Product, item model.OrderItem) error
}

type AggregationService interface {
	Aggregator
	ListInventory(ctx context.Context, actor model.Actor, filter model.AggregateFilter) ([]model.Inventory, error)
	ListProfit(ctx context.Context, actor model.Actor, filter model.AggregateFilter) ([]model.ProductProfit, error)
}

type aggregationService struct {
	repo repository.AggregateRepository
	now  Clock
	loc  *time.Location
	log  *zap.Logger
}

func NewAggregationService(repo repository.AggregateRepository, now Clock, loc *time.Location, log *zap.Logger) AggregationService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &aggregationService{repo: repo, now: now, loc: loc, log: log}
}

// currentKeys returns the weekly and monthly bucket keys of now.
func (s *aggregationService) currentKeys(product *model.Product) []model.BucketKey {
	now := s.now()
	keys := make([]model.BucketKey, 0, 2)
	for _, period := range []model.Period{model.PeriodWeekly, model.PeriodMonthly} {
		keys = append(keys, model.BucketKey{
			ProductID:       product.ID,
			EstablishmentID: product.EstablishmentID,
			Period:          period,
			PeriodDate:      BucketDate(period, now, s.loc),
		})
	}
	return keys
}

func snapshot(product *model.Product) model.InventoryDelta {
	return model.InventoryDelta{
		CurrentStock: product.Stock,
		PurchaseCost: product.PurchaseCost,
		SellingPrice: product.UnitPrice,
	}
}

func (s *aggregationService) UpdateAggregatedStats(ctx context.Context, product *model.Product, entry *model.InventoryEntry) error {
	delta := snapshot(product)
	switch entry.Type {
	case model.EntryIn:
		delta.Entries = entry.Quantity
		delta.TotalCost = entry.TotalCost
	case model.EntryOut, model.EntryAdjustment:
		delta.Exits = entry.Quantity
	case model.EntryLoss:
		delta.Losses = entry.Quantity
	}
	for _, key := range s.currentKeys(product) {
		if err := s.repo.IncrementInventory(ctx, key, delta); err != nil {
			return fmt.Errorf("%s bucket %s: %w", key.Period, key.PeriodDate.Format("2006-01-02"), err)
		}
	}
	logger.FromContext(ctx, s.log).Debug("aggregates updated",
		zap.String("product_id", product.ID.String()),
		zap.String("entry_type", string(entry.Type)),
		zap.Int("quantity", entry.Quantity))
	return nil
}

// saleFigures computes revenue, cost and profit of one sold line.
// Cost is purchase plus preparation cost per unit.
func saleFigures(product *model.Product, item model.OrderItem) (revenue, cost, profit float64) {
	qty := decimal.NewFromInt(int64(item.Quantity))
	rev := decimal.NewFromFloat(item.UnitPrice).Mul(qty)
	cst := decimal.NewFromFloat(product.PurchaseCost).Add(decimal.NewFromFloat(product.PreparationCost)).Mul(qty)
	return rev.Round(2).InexactFloat64(), cst.Round(2).InexactFloat64(), rev.Sub(cst).Round(2).InexactFloat64()
}

func (s *aggregationService) UpdateProductProfit(ctx context.Context, product *model.Product, item model.OrderItem, date time.Time) error {
	revenue, cost, profit := saleFigures(product, item)
	key := model.BucketKey{
		ProductID:       product.ID,
		EstablishmentID: product.EstablishmentID,
		Period:          model.PeriodDaily,
		PeriodDate:      DayStart(date, s.loc),
	}
	return s.repo.IncrementProfit(ctx, key, model.ProfitDelta{
		QuantitySold: item.Quantity,
		TotalRevenue: revenue,
		TotalCost:    cost,
		Profit:       profit,
	})
}

func (s *aggregationService) RecordSale(ctx context.Context, product *model.Product, item model.OrderItem) error {
	revenue, cost, profit := saleFigures(product, item)
	delta := snapshot(product)
	delta.Sales = item.Quantity
	delta.Exits = item.Quantity
	delta.TotalRevenue = revenue
	delta.TotalCost = cost
	delta.Profit = profit
	for _, key := range s.currentKeys(product) {
		if err := s.repo.IncrementInventory(ctx, key, delta); err != nil {
			return fmt.Errorf("%s bucket %s: %w", key.Period, key.PeriodDate.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (s *aggregationService) ListInventory(ctx context.Context, actor model.Actor, filter model.AggregateFilter) ([]model.Inventory, error) {
	if err := s.checkFilter(actor, &filter, model.PeriodWeekly); err != nil {
		return nil, err
	}
	return s.repo.ListInventory(ctx, filter)
}

func (s *aggregationService) ListProfit(ctx context.Context, actor model.Actor, filter model.AggregateFilter) ([]model.ProductProfit, error) {
	if err := s.checkFilter(actor, &filter, model.PeriodDaily); err != nil {
		return nil, err
	}
	return s.repo.ListProfit(ctx, filter)
}

// checkFilter defaults the period and widens From to the start of its bucket,
// so a range starting mid-bucket keeps the bucket it falls in.
func (s *aggregationService) checkFilter(actor model.Actor, filter *model.AggregateFilter, defaultPeriod model.Period) error {
	if filter.Period == "" {
		filter.Period = defaultPeriod
	}
	if !filter.Period.Valid() {
		return fmt.Errorf("%w: unknown period %q", model.ErrValidation, filter.Period)
	}
	if filter.From != nil {
		from := BucketDate(filter.Period, *filter.From, s.loc)
		filter.From = &from
	}
	return authorize(actor, filter.EstablishmentID)
}
