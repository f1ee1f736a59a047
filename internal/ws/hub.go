package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-resto-inventory/internal/model"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is a websocket connection subscribed to one establishment.
// A Nil EstablishmentID receives every establishment's events; only
// Subscription hands that out, and only to admins.
type Client struct {
	Conn            *websocket.Conn
	EstablishmentID uuid.UUID
}

// Subscription returns the establishment stream actor may follow when asking
// for requested. Non-admins are bound to their own establishment.
func Subscription(actor model.Actor, requested uuid.UUID) (uuid.UUID, error) {
	if requested == uuid.Nil {
		if actor.IsAdmin() {
			return uuid.Nil, nil
		}
		requested = actor.EstablishmentID
	}
	if requested == uuid.Nil || !actor.CanAccess(requested) {
		return uuid.Nil, fmt.Errorf("%w: establishment %s", model.ErrForbidden, requested)
	}
	return requested, nil
}

type message struct {
	establishmentID uuid.UUID
	payload         []byte
}

// StockEvent is broadcast on every ledger change.
type StockEvent struct {
	Type            string    `json:"type"`
	Action          string    `json:"action"`
	ProductID       uuid.UUID `json:"product_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	Delta           int       `json:"delta"`
	NewStock        int       `json:"new_stock"`
	Reference       string    `json:"reference,omitempty"`
	ActorID         uuid.UUID `json:"actor_id"`
	At              time.Time `json:"at"`
}

// Actions carried by StockEvent.
const (
	ActionEntryCreated          = "entry_created"
	ActionEntryUpdated          = "entry_updated"
	ActionEntryDeleted          = "entry_deleted"
	ActionOrderReserved         = "order_reserved"
	ActionOrderReleased         = "order_released"
	ActionProcurementReconciled = "procurement_reconciled"
)

type Hub struct {
	clients    map[*websocket.Conn]uuid.UUID
	Register   chan *Client
	Unregister chan *websocket.Conn
	broadcast  chan message
	done       chan struct{}
	log        *zap.Logger
	mutex      sync.Mutex
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]uuid.UUID),
		Register:   make(chan *Client),
		Unregister: make(chan *websocket.Conn),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client.Conn] = client.EstablishmentID
			h.mutex.Unlock()
			h.log.Debug("ws client connected", zap.String("establishment_id", client.EstablishmentID.String()))

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for conn, est := range h.clients {
				if est != uuid.Nil && est != msg.establishmentID {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	close(h.done)
}

// Join registers c. It reports false when the hub is stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters conn. It does not block once the hub is stopped.
func (h *Hub) Leave(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// NotifyStockChange queues a stock_update event. It never blocks: when the
// queue is full the event is dropped. A nil hub ignores the call.
func (h *Hub) NotifyStockChange(e StockEvent) {
	if h == nil {
		return
	}
	e.Type = "stock_update"
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		h.log.Warn("ws marshal stock event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{establishmentID: e.EstablishmentID, payload: payload}:
	default:
		h.log.Warn("ws broadcast queue full, dropping stock event",
			zap.String("product_id", e.ProductID.String()))
	}
}
