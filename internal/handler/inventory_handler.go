package handler

import (
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// InventoryHandler serves the inventory entry log. Every write drops the
// cached statistics of the establishment it touched.
type InventoryHandler struct {
	service service.InventoryService
	stats   service.StatsService
	loc     *time.Location
}

func NewInventoryHandler(s service.InventoryService, stats service.StatsService, loc *time.Location) *InventoryHandler {
	return &InventoryHandler{service: s, stats: stats, loc: loc}
}

func (h *InventoryHandler) invalidate(c *fiber.Ctx, establishmentID uuid.UUID) {
	if h.stats != nil {
		h.stats.Invalidate(c.UserContext(), establishmentID)
	}
}

func (h *InventoryHandler) CreateEntry(c *fiber.Ctx) error {
	var req service.EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.CreateEntry(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	h.invalidate(c, res.Entry.EstablishmentID)
	return respond(c, fiber.StatusCreated, res, res.Warnings...)
}

func (h *InventoryHandler) UpdateEntry(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.EntryUpdate
	if err := c.BodyParser(&req); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	res, err := h.service.UpdateEntry(c.UserContext(), actorFrom(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	h.invalidate(c, res.Entry.EstablishmentID)
	return respond(c, fiber.StatusOK, res, res.Warnings...)
}

func (h *InventoryHandler) DeleteEntry(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	res, err := h.service.DeleteEntry(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	h.invalidate(c, res.Entry.EstablishmentID)
	return respond(c, fiber.StatusOK, res, res.Warnings...)
}

func (h *InventoryHandler) GetEntry(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	entry, err := h.service.GetEntry(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, entry)
}

// ListEntries accepts establishment_id, product_id, type, source, from and to.
func (h *InventoryHandler) ListEntries(c *fiber.Ctx) error {
	filter, err := entryFilter(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.service.ListEntries(c.UserContext(), actorFrom(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, list)
}

func entryFilter(c *fiber.Ctx, loc *time.Location) (model.EntryFilter, error) {
	var f model.EntryFilter
	var err error
	if f.EstablishmentID, err = establishment(c); err != nil {
		return f, err
	}
	if f.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return f, err
	}
	if raw := c.Query("type"); raw != "" {
		t := model.EntryType(raw)
		if !t.Valid() {
			return f, badRequest("invalid entry type %q", raw)
		}
		f.Type = &t
	}
	f.Source = c.Query("source")
	if f.From, f.To, err = dateRange(c, loc); err != nil {
		return f, err
	}
	return f, nil
}
