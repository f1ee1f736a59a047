package repository

import (
	"context"
	"sync"
	"testing"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedProduct(t *testing.T, db *gorm.DB, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		EstablishmentID: uuid.New(),
		Name:            "Croissant",
		Stock:           stock,
		InitialStock:    stock,
		PurchaseCost:    5,
		UnitPrice:       12,
	}
	require.NoError(t, NewProductRepo(db).Create(context.Background(), p))
	return p
}

func TestApplyDeltaBoundary(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	p := seedProduct(t, db, 10)

	_, err := repo.ApplyDelta(db, p.ID, -11)
	require.ErrorIs(t, err, model.ErrInsufficientStock)
	stock, err := repo.GetStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stock)

	stock, err = repo.ApplyDelta(db, p.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	stock, err = repo.ApplyDelta(db, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)
}

func TestApplyDeltaUnknownProduct(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewProductRepo(db).ApplyDelta(db, uuid.New(), 1)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestApplyDeltaClamped(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	p := seedProduct(t, db, 3)

	stock, clamped, err := repo.ApplyDeltaClamped(db, p.ID, -5)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 0, stock)

	stock, clamped, err = repo.ApplyDeltaClamped(db, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Equal(t, 4, stock)
}

// The sqlite pool holds a single connection, so these transactions run one
// after another and only the conditional UPDATE's bookkeeping is checked.
// product_repo_postgres_test.go runs the same body with real overlap.
func TestApplyDeltaConcurrentDecrements(t *testing.T) {
	assertConcurrentDecrements(t, testutil.NewDB(t))
}

func assertConcurrentDecrements(t *testing.T, db *gorm.DB) {
	t.Helper()
	repo := NewProductRepo(db)
	const initial = 30
	p := seedProduct(t, db, initial)

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				_, err := repo.ApplyDelta(tx, p.ID, -1)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, model.ErrInsufficientStock)
				rejected++
			}
		}()
	}
	wg.Wait()

	stock, err := repo.GetStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, initial, succeeded)
	assert.Equal(t, workers-initial, rejected)
	assert.Equal(t, initial-succeeded, stock)
	assert.GreaterOrEqual(t, stock, 0)
}

func TestUpdateLeavesStockAlone(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	p := seedProduct(t, db, 8)
	ctx := context.Background()

	p.Stock = 999
	p.UnitPrice = 15
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Stock)
	assert.InDelta(t, 15.0, got.UnitPrice, 0.001)

	low, err := repo.FindLowStock(ctx, p.EstablishmentID)
	require.NoError(t, err)
	assert.Empty(t, low)
}
