package handler

import (
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	service service.OrderService
	stats   service.StatsService
	loc     *time.Location
}

func NewOrderHandler(s service.OrderService, stats service.StatsService, loc *time.Location) *OrderHandler {
	return &OrderHandler{service: s, stats: stats, loc: loc}
}

// syncRequest is the body of the bulk sales sync.
type syncRequest struct {
	EstablishmentID uuid.UUID `json:"establishmentId"`
	StartDate       string    `json:"startDate"`
	EndDate         string    `json:"endDate"`
}

func (h *OrderHandler) invalidate(c *fiber.Ctx, establishmentID uuid.UUID) {
	if h.stats != nil {
		h.stats.Invalidate(c.UserContext(), establishmentID)
	}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	order, err := h.service.CreateOrder(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	h.invalidate(c, order.EstablishmentID)
	return respond(c, fiber.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	order, err := h.service.GetOrder(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, order)
}

// UpdateStatus moves an order forward. "terminée" folds the sale into the
// aggregates and "annulée" releases the reserved stock.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.UpdateStatus(c.UserContext(), actorFrom(c), id, model.OrderStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	h.invalidate(c, res.Order.EstablishmentID)
	return respond(c, fiber.StatusOK, res, res.Warnings...)
}

func (h *OrderHandler) SyncSales(c *fiber.Ctx) error {
	var req syncRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	if req.StartDate == "" || req.EndDate == "" {
		return fail(c, badRequest("startDate and endDate are required"))
	}
	from, err := parseTime(req.StartDate, false, h.loc)
	if err != nil {
		return fail(c, err)
	}
	to, err := parseTime(req.EndDate, true, h.loc)
	if err != nil {
		return fail(c, err)
	}
	est := req.EstablishmentID
	if est == uuid.Nil {
		est = actorFrom(c).EstablishmentID
	}

	res, err := h.service.SyncSalesWithInventory(c.UserContext(), actorFrom(c), est, from, to)
	if err != nil {
		return fail(c, err)
	}
	if res.SyncedCount > 0 {
		h.invalidate(c, est)
	}
	return respond(c, fiber.StatusOK, res)
}
