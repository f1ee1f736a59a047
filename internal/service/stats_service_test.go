package service

import (
	"context"
	"testing"
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/stats"
	"go-resto-inventory/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatsService(t *testing.T, e *testEnv, c *cache.JSONCache) StatsService {
	t.Helper()
	return NewStatsService(e.products, e.entries, e.aggregates, c, fixedClock, time.UTC, nil)
}

func TestLossAnalysisCategorizesLosses(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newStatsService(t, e, nil)
	p := e.newProduct(t, "Tomates", 30, 5, 9)

	_, err := e.inventory.CreateEntry(ctx, e.manager, &EntryRequest{ProductID: p.ID, Type: model.EntryLoss, Quantity: 5, Reason: "gâté"})
	require.NoError(t, err)
	_, err = e.inventory.CreateEntry(ctx, e.manager, &EntryRequest{ProductID: p.ID, Type: model.EntryLoss, Quantity: 1, Reason: "volé"})
	require.NoError(t, err)

	got, err := svc.GetLossAnalysis(ctx, e.manager, StatsQuery{EstablishmentID: e.est})
	require.NoError(t, err)
	assert.Equal(t, 6, got.TotalQuantity)
	assert.InDelta(t, 30.0, got.TotalCost, 0.001)
	// no sales recorded: the loss rate stays finite
	assert.Zero(t, got.LossRate)
	for _, c := range got.ByCategory {
		switch c.Category {
		case stats.LossDamaged:
			assert.Equal(t, 5, c.Quantity)
			assert.InDelta(t, 25.0, c.Cost, 0.001)
		case stats.LossTheft:
			assert.Equal(t, 1, c.Quantity)
		default:
			assert.Zero(t, c.Quantity, c.Category)
		}
	}

	_, err = svc.GetLossAnalysis(ctx, e.manager, StatsQuery{EstablishmentID: e.est, From: testNow, To: testNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.GetLossAnalysis(ctx, model.Actor{ID: uuid.New(), EstablishmentID: uuid.New()}, StatsQuery{EstablishmentID: e.est})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestStatisticsAreCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newTestEnv(t)
	ctx := context.Background()
	svc := newStatsService(t, e, cache.NewJSONCache(rdb, "stats", time.Minute))
	p := e.newProduct(t, "Pâtes", 10, 2, 6)

	order, err := e.order.CreateOrder(ctx, e.manager, &OrderRequest{Items: []OrderItemRequest{item(p.ID, 4)}})
	require.NoError(t, err)
	_, err = e.order.CompleteOrder(ctx, e.manager, order.ID)
	require.NoError(t, err)

	q := StatsQuery{EstablishmentID: e.est, From: testNow.Add(-24 * time.Hour), To: testNow.Add(time.Hour)}
	first, err := svc.GetStatistics(ctx, e.manager, q)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalProducts)
	assert.Equal(t, 6, first.TotalStock)
	assert.Equal(t, 4, first.UnitsSold)
	assert.InDelta(t, 24.0, first.TotalRevenue, 0.001)
	assert.InDelta(t, 16.0, first.Profit, 0.001)
	assert.InDelta(t, 200.0, first.ROI, 0.001)
	assert.Equal(t, stats.CarryingCostRate, first.CarryingCostRate)

	_, err = e.inventory.CreateEntry(ctx, e.manager, &EntryRequest{ProductID: p.ID, Type: model.EntryIn, Quantity: 10})
	require.NoError(t, err)

	cached, err := svc.GetStatistics(ctx, e.manager, q)
	require.NoError(t, err)
	assert.Equal(t, 6, cached.TotalStock)

	svc.Invalidate(ctx, e.est)
	fresh, err := svc.GetStatistics(ctx, e.manager, q)
	require.NoError(t, err)
	assert.Equal(t, 16, fresh.TotalStock)
	assert.Equal(t, 10, fresh.TotalEntries)
}

func TestStatisticsIgnoreSyncedSales(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newStatsService(t, e, nil)
	p := e.newProduct(t, "Riz", 20, 2, 6)

	order, err := e.order.CreateOrder(ctx, e.manager, &OrderRequest{Items: []OrderItemRequest{item(p.ID, 10)}})
	require.NoError(t, err)
	_, err = e.order.CompleteOrder(ctx, e.manager, order.ID)
	require.NoError(t, err)

	q := StatsQuery{EstablishmentID: e.est, From: testNow.Add(-24 * time.Hour), To: testNow.Add(time.Hour)}
	before, err := svc.GetStatistics(ctx, e.manager, q)
	require.NoError(t, err)
	assert.Equal(t, 10, before.UnitsSold)

	res, err := e.order.SyncSalesWithInventory(ctx, e.manager, e.est, q.From, q.To)
	require.NoError(t, err)
	require.Equal(t, 1, res.SyncedCount)

	after, err := svc.GetStatistics(ctx, e.manager, q)
	require.NoError(t, err)
	assert.Equal(t, 10, after.UnitsSold)
	assert.Zero(t, after.TotalExits)
	assert.Equal(t, before.StockCoverageDays, after.StockCoverageDays)
}

func TestStatisticsWindowStartingMidDay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newStatsService(t, e, nil)
	p := e.newProduct(t, "Pâtes", 10, 2, 6)

	order, err := e.order.CreateOrder(ctx, e.manager, &OrderRequest{Items: []OrderItemRequest{item(p.ID, 4)}})
	require.NoError(t, err)
	_, err = e.order.CompleteOrder(ctx, e.manager, order.ID)
	require.NoError(t, err)

	got, err := svc.GetStatistics(ctx, e.manager, StatsQuery{
		EstablishmentID: e.est,
		From:            testNow.Add(-time.Hour),
		To:              testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, got.UnitsSold)
	assert.InDelta(t, 24.0, got.TotalRevenue, 0.001)
}
