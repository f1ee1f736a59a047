package handler

import (
	"fmt"
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatsHandler struct {
	stats      service.StatsService
	aggregates service.AggregationService
	reports    service.ReportService
	loc        *time.Location
}

func NewStatsHandler(stats service.StatsService, aggregates service.AggregationService, reports service.ReportService, loc *time.Location) *StatsHandler {
	return &StatsHandler{stats: stats, aggregates: aggregates, reports: reports, loc: loc}
}

func statsQuery(c *fiber.Ctx, loc *time.Location) (service.StatsQuery, error) {
	var q service.StatsQuery
	est, err := establishment(c)
	if err != nil {
		return q, err
	}
	from, to, err := dateRange(c, loc)
	if err != nil {
		return q, err
	}
	q.EstablishmentID = est
	if from != nil {
		q.From = *from
	}
	if to != nil {
		q.To = *to
	}
	return q, nil
}

func aggregateFilter(c *fiber.Ctx, loc *time.Location) (model.AggregateFilter, error) {
	var f model.AggregateFilter
	var err error
	if f.EstablishmentID, err = establishment(c); err != nil {
		return f, err
	}
	if f.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return f, err
	}
	if raw := c.Query("period"); raw != "" {
		f.Period = model.Period(raw)
		if !f.Period.Valid() {
			return f, badRequest("invalid period %q", raw)
		}
	}
	if f.From, f.To, err = dateRange(c, loc); err != nil {
		return f, err
	}
	return f, nil
}

func (h *StatsHandler) GetStatistics(c *fiber.Ctx) error {
	q, err := statsQuery(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	out, err := h.stats.GetStatistics(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

func (h *StatsHandler) GetLosses(c *fiber.Ctx) error {
	q, err := statsQuery(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	out, err := h.stats.GetLossAnalysis(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

func (h *StatsHandler) GetInventoryAggregates(c *fiber.Ctx) error {
	f, err := aggregateFilter(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.aggregates.ListInventory(c.UserContext(), actorFrom(c), f)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, rows)
}

func (h *StatsHandler) GetProfitAggregates(c *fiber.Ctx) error {
	f, err := aggregateFilter(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.aggregates.ListProfit(c.UserContext(), actorFrom(c), f)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, rows)
}

func (h *StatsHandler) ExportInventory(c *fiber.Ctx) error {
	f, err := aggregateFilter(c, h.loc)
	if err != nil {
		return fail(c, err)
	}
	buf, err := h.reports.ExportInventory(c.UserContext(), actorFrom(c), f)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="inventaire-%s.xlsx"`, f.EstablishmentID))
	return c.Send(buf.Bytes())
}
