package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/testutil"
	"go-resto-inventory/pkg/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Friday; the weekly bucket starts on Sunday 2026-10-11.
var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

var (
	testWeek  = time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)
	testMonth = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	testDay   = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

type testEnv struct {
	db           *gorm.DB
	products     repository.ProductRepository
	entries      repository.InventoryEntryRepository
	aggregates   repository.AggregateRepository
	procurements repository.ProcurementRepository
	movements    repository.StockMovementRepository
	orders       repository.OrderRepository

	aggregation AggregationService
	product     ProductService
	inventory   InventoryService
	procurement ProcurementService
	order       OrderService

	est     uuid.UUID
	manager model.Actor
	admin   model.Actor
}

type envOption func(*testEnv, *OrderServiceDeps, *Aggregator)

func withAggregator(a Aggregator) envOption {
	return func(_ *testEnv, d *OrderServiceDeps, agg *Aggregator) {
		*agg = a
		d.Aggregator = a
	}
}

func withLocker(l lock.Locker) envOption {
	return func(_ *testEnv, d *OrderServiceDeps, _ *Aggregator) {
		d.Locker = l
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	e := &testEnv{
		db:           db,
		products:     repository.NewProductRepo(db),
		entries:      repository.NewInventoryEntryRepo(db),
		aggregates:   repository.NewAggregateRepo(db),
		procurements: repository.NewProcurementRepo(db),
		movements:    repository.NewStockMovementRepo(db),
		orders:       repository.NewOrderRepo(db),
		est:          uuid.New(),
	}
	e.manager = model.Actor{ID: uuid.New(), EstablishmentID: e.est, Role: model.RoleManager}
	e.admin = model.Actor{ID: uuid.New(), EstablishmentID: uuid.New(), Role: model.RoleAdmin}
	e.aggregation = NewAggregationService(e.aggregates, fixedClock, time.UTC, nil)

	var agg Aggregator = e.aggregation
	deps := OrderServiceDeps{
		Orders:     e.orders,
		Products:   e.products,
		Entries:    e.entries,
		Aggregator: agg,
		DB:         db,
		Now:        fixedClock,
	}
	for _, o := range opts {
		o(e, &deps, &agg)
	}

	e.product = NewProductService(e.products, nil)
	e.inventory = NewInventoryService(e.products, e.entries, agg, db, nil, fixedClock, nil)
	e.procurement = NewProcurementService(e.procurements, e.products, e.movements, db, nil, fixedClock, nil)
	e.order = NewOrderService(deps)
	return e
}

func (e *testEnv) newProduct(t *testing.T, name string, stock int, cost, price float64) *model.Product {
	t.Helper()
	p := &model.Product{
		EstablishmentID: e.est,
		Name:            name,
		Stock:           stock,
		PurchaseCost:    cost,
		UnitPrice:       price,
	}
	require.NoError(t, e.product.CreateProduct(context.Background(), e.manager, p))
	return p
}

func (e *testEnv) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	stock, err := e.products.GetStock(context.Background(), id)
	require.NoError(t, err)
	return stock
}

func (e *testEnv) bucket(t *testing.T, productID uuid.UUID, period model.Period, date time.Time) *model.Inventory {
	t.Helper()
	row, err := e.aggregates.FindInventory(context.Background(), model.BucketKey{
		ProductID:       productID,
		EstablishmentID: e.est,
		Period:          period,
		PeriodDate:      date,
	})
	require.NoError(t, err)
	return row
}

func (e *testEnv) countEntries(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.InventoryEntry{}).Count(&n).Error)
	return n
}

var errAggregationDown = errors.New("aggregate store unavailable")

type failingAggregator struct{}

func (failingAggregator) UpdateAggregatedStats(context.Context, *model.Product, *model.InventoryEntry) error {
	return errAggregationDown
}

func (failingAggregator) UpdateProductProfit(context.Context, *model.Product, model.OrderItem, time.Time) error {
	return errAggregationDown
}

func (failingAggregator) RecordSale(context.Context, *model.Product, model.OrderItem) error {
	return errAggregationDown
}

func ptr[T any](v T) *T { return &v }
