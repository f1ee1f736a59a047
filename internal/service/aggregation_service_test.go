package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"go-resto-inventory/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketDates(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	sunday := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), WeekStart(sunday, time.UTC))

	saturday := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), WeekStart(saturday, time.UTC))

	// 23:30 UTC on Saturday is already Sunday in Paris
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, paris), WeekStart(time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC), paris))

	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), MonthStart(testNow, time.UTC))
	assert.Equal(t, testDay, DayStart(testNow, time.UTC))
	assert.Equal(t, testWeek, BucketDate(model.PeriodWeekly, testNow, time.UTC))
	assert.Equal(t, testMonth, BucketDate(model.PeriodMonthly, testNow, time.UTC))
	assert.Equal(t, testDay, BucketDate(model.PeriodDaily, testNow, time.UTC))
}

func TestUpdateAggregatedStatsKeepsOneRowPerBucket(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.newProduct(t, "Vinaigre", 50, 2, 4)

	for _, entry := range []model.InventoryEntry{
		{Type: model.EntryIn, Quantity: 10, TotalCost: 20},
		{Type: model.EntryOut, Quantity: 3},
		{Type: model.EntryAdjustment, Quantity: 1},
		{Type: model.EntryLoss, Quantity: 2},
		{Type: model.EntryCount, Quantity: 50},
	} {
		entry := entry
		require.NoError(t, e.aggregation.UpdateAggregatedStats(ctx, p, &entry))
	}

	rows, err := e.aggregation.ListInventory(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.PeriodWeekly, rows[0].Period)
	assert.Equal(t, 10, rows[0].Entries)
	assert.Equal(t, 4, rows[0].Exits)
	assert.Equal(t, 2, rows[0].Losses)
	assert.InDelta(t, 20.0, rows[0].TotalCost, 0.001)

	monthly, err := e.aggregation.ListInventory(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est, Period: model.PeriodMonthly})
	require.NoError(t, err)
	require.Len(t, monthly, 1)

	var count int64
	require.NoError(t, e.db.Model(&model.Inventory{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	_, err = e.aggregation.ListInventory(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est, Period: "yearly"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUpdateProductProfitMargin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.newProduct(t, "Gratuit", 5, 2, 0)

	// zero revenue must not produce NaN
	require.NoError(t, e.aggregation.UpdateProductProfit(ctx, p, model.OrderItem{ProductID: p.ID, Quantity: 1, UnitPrice: 0}, testNow))
	rows, err := e.aggregation.ListProfit(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].Margin)
	assert.InDelta(t, -2.0, rows[0].Profit, 0.001)

	require.NoError(t, e.aggregation.UpdateProductProfit(ctx, p, model.OrderItem{ProductID: p.ID, Quantity: 1, UnitPrice: 10}, testNow))
	rows, err = e.aggregation.ListProfit(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].QuantitySold)
	assert.InDelta(t, 6.0, rows[0].Profit, 0.001)
	assert.InDelta(t, 60.0, rows[0].Margin, 0.01)
}

func TestListAggregatesKeepsBucketOfRangeStart(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.newProduct(t, "Lait", 0, 1, 2)
	_, err := e.inventory.CreateEntry(ctx, e.manager, &EntryRequest{ProductID: p.ID, Type: model.EntryIn, Quantity: 5})
	require.NoError(t, err)

	from := testNow.Add(-time.Hour)
	rows, err := e.aggregation.ListInventory(ctx, e.manager, model.AggregateFilter{EstablishmentID: e.est, From: &from})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PeriodDate.Equal(testWeek))

	rows, err = e.aggregation.ListInventory(ctx, e.manager, model.AggregateFilter{
		EstablishmentID: e.est, Period: model.PeriodMonthly, From: &from,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PeriodDate.Equal(testMonth))
}
