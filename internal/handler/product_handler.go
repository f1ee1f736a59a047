package handler

import (
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	if err := h.service.CreateProduct(c.UserContext(), actorFrom(c), &product); err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return fail(c, badRequest("invalid JSON"))
	}
	updated, err := h.service.UpdateProduct(c.UserContext(), actorFrom(c), id, &product)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, updated)
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	est, err := establishment(c)
	if err != nil {
		return fail(c, err)
	}
	list := h.service.GetProducts
	if c.QueryBool("low_stock") {
		list = h.service.GetLowStock
	}
	products, err := list(c.UserContext(), actorFrom(c), est)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	product, err := h.service.GetProduct(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, product)
}

func (h *ProductHandler) GetStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	stock, err := h.service.GetStock(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"product_id": id, "stock": stock})
}
