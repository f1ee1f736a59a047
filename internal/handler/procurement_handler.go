package handler

import (
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProcurementHandler struct {
	service service.ProcurementService
	stats   service.StatsService
}

func NewProcurementHandler(s service.ProcurementService, stats service.StatsService) *ProcurementHandler {
	return &ProcurementHandler{service: s, stats: stats}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ProcurementHandler) written(c *fiber.Ctx, status int, res *service.ProcurementResult) error {
	if h.stats != nil && res.Reconciliation != nil {
		h.stats.Invalidate(c.UserContext(), res.Procurement.EstablishmentID)
	}
	return respond(c, status, res, res.Warnings...)
}

func (h *ProcurementHandler) CreateProcurement(c *fiber.Ctx) error {
	var req service.ProcurementRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.CreateProcurement(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return h.written(c, fiber.StatusCreated, res)
}

func (h *ProcurementHandler) UpdateProcurement(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.ProcurementUpdate
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.UpdateProcurement(c.UserContext(), actorFrom(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return h.written(c, fiber.StatusOK, res)
}

func (h *ProcurementHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.UpdateStatus(c.UserContext(), actorFrom(c), id, model.ProcurementStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return h.written(c, fiber.StatusOK, res)
}

func (h *ProcurementHandler) DeleteProcurement(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	res, err := h.service.DeleteProcurement(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return h.written(c, fiber.StatusOK, res)
}

func (h *ProcurementHandler) GetProcurement(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.service.GetProcurement(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, p)
}

func (h *ProcurementHandler) GetProcurements(c *fiber.Ctx) error {
	var filter model.ProcurementFilter
	var err error
	if filter.EstablishmentID, err = establishment(c); err != nil {
		return fail(c, err)
	}
	if filter.SupplierID, err = queryUUID(c, "supplier_id"); err != nil {
		return fail(c, err)
	}
	if raw := c.Query("status"); raw != "" {
		s := model.ProcurementStatus(raw)
		if !s.Valid() {
			return fail(c, badRequest("invalid status %q", raw))
		}
		filter.Status = &s
	}
	list, err := h.service.GetProcurements(c.UserContext(), actorFrom(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, list)
}

func (h *ProcurementHandler) GetMovements(c *fiber.Ctx) error {
	var filter model.MovementFilter
	var err error
	if filter.EstablishmentID, err = establishment(c); err != nil {
		return fail(c, err)
	}
	if filter.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return fail(c, err)
	}
	filter.Reference = c.Query("reference")
	list, err := h.service.GetMovements(c.UserContext(), actorFrom(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, list)
}
