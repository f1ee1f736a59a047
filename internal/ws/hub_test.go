package ws

import (
	"encoding/json"
	"testing"
	"time"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyStockChangeNilHub(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() {
		h.NotifyStockChange(StockEvent{ProductID: uuid.New()})
	})
}

func TestNotifyStockChangeQueuesEvent(t *testing.T) {
	h := NewHub(nil)
	est, product := uuid.New(), uuid.New()

	h.NotifyStockChange(StockEvent{
		Action:          ActionEntryCreated,
		ProductID:       product,
		EstablishmentID: est,
		Delta:           -3,
		NewStock:        7,
	})

	require.Len(t, h.broadcast, 1)
	msg := <-h.broadcast
	assert.Equal(t, est, msg.establishmentID)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "stock_update", got["type"])
	assert.Equal(t, ActionEntryCreated, got["action"])
	assert.Equal(t, product.String(), got["product_id"])
	assert.EqualValues(t, 7, got["new_stock"])
}

func TestNotifyStockChangeDropsWhenFull(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.NotifyStockChange(StockEvent{ProductID: uuid.New()})
	}
	assert.Len(t, h.broadcast, cap(h.broadcast))
	assert.Zero(t, h.ClientCount())
}

func TestSubscription(t *testing.T) {
	own, other := uuid.New(), uuid.New()
	manager := model.Actor{ID: uuid.New(), EstablishmentID: own, Role: model.RoleManager}
	admin := model.Actor{ID: uuid.New(), EstablishmentID: own, Role: model.RoleAdmin}

	got, err := Subscription(manager, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, own, got)

	got, err = Subscription(manager, own)
	require.NoError(t, err)
	assert.Equal(t, own, got)

	_, err = Subscription(manager, other)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = Subscription(model.Actor{ID: uuid.New(), Role: model.RoleCashier}, uuid.Nil)
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err = Subscription(admin, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got)

	got, err = Subscription(admin, other)
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestJoinLeaveAfterStop(t *testing.T) {
	h := NewHub(nil)
	finished := make(chan struct{})
	go func() {
		h.Run()
		close(finished)
	}()
	h.Stop()
	<-finished

	returned := make(chan bool, 1)
	go func() {
		h.Leave(nil)
		returned <- h.Join(&Client{})
	}()
	select {
	case joined := <-returned:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("Join/Leave blocked on a stopped hub")
	}
}
