package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/service"
	"go-resto-inventory/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type downAggregator struct{}

func (downAggregator) UpdateAggregatedStats(context.Context, *model.Product, *model.InventoryEntry) error {
	return errors.New("aggregate store unavailable")
}

func (downAggregator) UpdateProductProfit(context.Context, *model.Product, model.OrderItem, time.Time) error {
	return errors.New("aggregate store unavailable")
}

func (downAggregator) RecordSale(context.Context, *model.Product, model.OrderItem) error {
	return errors.New("aggregate store unavailable")
}

type response struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Warnings []model.Warning `json:"warnings"`
	Message  string          `json:"message"`
	Code     string          `json:"code"`
}

type fixture struct {
	app   *fiber.App
	est   uuid.UUID
	actor model.Actor
}

func newFixture(t *testing.T, aggregator service.Aggregator) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	products := repository.NewProductRepo(db)
	entries := repository.NewInventoryEntryRepo(db)
	aggregates := repository.NewAggregateRepo(db)

	aggregation := service.NewAggregationService(aggregates, fixedClock, time.UTC, nil)
	if aggregator == nil {
		aggregator = aggregation
	}
	statsSvc := service.NewStatsService(products, entries, aggregates, nil, fixedClock, time.UTC, nil)
	orders := service.NewOrderService(service.OrderServiceDeps{
		Orders:     repository.NewOrderRepo(db),
		Products:   products,
		Entries:    entries,
		Aggregator: aggregator,
		DB:         db,
		Now:        fixedClock,
	})

	productH := NewProductHandler(service.NewProductService(products, nil))
	invH := NewInventoryHandler(service.NewInventoryService(products, entries, aggregator, db, nil, fixedClock, nil), statsSvc, time.UTC)
	orderH := NewOrderHandler(orders, statsSvc, time.UTC)
	statsH := NewStatsHandler(statsSvc, aggregation, service.NewReportService(aggregation), time.UTC)

	f := &fixture{est: uuid.New()}
	f.actor = model.Actor{ID: uuid.New(), EstablishmentID: f.est, Role: model.RoleManager}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(ActorKey, f.actor)
		return c.Next()
	})
	app.Post("/products", productH.CreateProduct)
	app.Get("/products/:id", productH.GetProduct)
	app.Get("/products", productH.GetProducts)
	app.Post("/inventory/entries", invH.CreateEntry)
	app.Post("/inventory/sync/sales", orderH.SyncSales)
	app.Get("/inventory/statistics", statsH.GetStatistics)
	app.Get("/inventory/export", statsH.ExportInventory)
	f.app = app
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *fixture) createProduct(t *testing.T, stock int) uuid.UUID {
	t.Helper()
	status, res := f.do(t, fiber.MethodPost, "/products", fiber.Map{
		"name": "Farine", "stock": stock, "purchase_cost": 1.5, "unit_price": 3,
	})
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	var p model.Product
	require.NoError(t, json.Unmarshal(res.Data, &p))
	return p.ID
}

func TestEntryEnvelope(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createProduct(t, 10)

	status, res := f.do(t, fiber.MethodPost, "/inventory/entries", fiber.Map{
		"product_id": id, "type": "perte", "quantity": 4, "reason": "cassé",
	})
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	assert.True(t, res.Success)
	assert.Empty(t, res.Warnings)
	var entry service.EntryResult
	require.NoError(t, json.Unmarshal(res.Data, &entry))
	assert.Equal(t, 6, entry.Stock)

	status, res = f.do(t, fiber.MethodPost, "/inventory/entries", fiber.Map{
		"product_id": id, "type": "sortie", "quantity": 7,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, res.Success)
	assert.Equal(t, "INSUFFICIENT_STOCK", res.Code)

	status, res = f.do(t, fiber.MethodPost, "/inventory/entries", fiber.Map{
		"product_id": id, "type": "vente", "quantity": 1,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
}

func TestEntryWarningsTravelInEnvelope(t *testing.T) {
	f := newFixture(t, downAggregator{})
	id := f.createProduct(t, 0)

	status, res := f.do(t, fiber.MethodPost, "/inventory/entries", fiber.Map{
		"product_id": id, "type": "entrée", "quantity": 3,
	})
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.StageAggregation, res.Warnings[0].Stage)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, nil)

	status, res := f.do(t, fiber.MethodGet, "/products/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)

	status, res = f.do(t, fiber.MethodGet, "/products/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", res.Code)

	status, res = f.do(t, fiber.MethodGet, "/products?establishment_id="+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", res.Code)

	status, res = f.do(t, fiber.MethodGet, "/inventory/statistics?from=2026-10-10&to=2026-10-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
}

func TestSyncSales(t *testing.T) {
	f := newFixture(t, nil)

	status, res := f.do(t, fiber.MethodPost, "/inventory/sync/sales", fiber.Map{"establishmentId": f.est})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)

	status, res = f.do(t, fiber.MethodPost, "/inventory/sync/sales", fiber.Map{
		"establishmentId": f.est, "startDate": "2026-10-01", "endDate": "2026-10-16",
	})
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var out service.SyncResult
	require.NoError(t, json.Unmarshal(res.Data, &out))
	assert.Zero(t, out.SyncedCount)
	assert.Zero(t, out.TotalOrders)
}

func TestExportInventory(t *testing.T) {
	f := newFixture(t, nil)
	f.createProduct(t, 2)

	req := httptest.NewRequest(fiber.MethodGet, "/inventory/export", nil)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(body[:2]))
}
