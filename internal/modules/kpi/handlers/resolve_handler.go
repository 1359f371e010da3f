package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/services"
)

// ResolveHandler exposes the resolution engine: whole dashboards, single
// widgets and raw metrics. Resolution is a POST because the context payload
// carries filters and window overrides.
type ResolveHandler struct {
	resolve *services.ResolveService
}

func NewResolveHandler(resolve *services.ResolveService) *ResolveHandler {
	return &ResolveHandler{resolve: resolve}
}

type resolveDashboardRequest struct {
	Dashboard services.DashboardQuery `json:"dashboard"`
	Context   *models.ResolveContext  `json:"context,omitempty"`
}

// ResolveDashboard handles POST /resolve/dashboard.
func (h *ResolveHandler) ResolveDashboard(c *fiber.Ctx) error {
	var req resolveDashboardRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}
	result, err := h.resolve.ResolveDashboard(req.Dashboard, req.Context)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

// ResolveWidget handles POST /resolve/widgets/:id.
func (h *ResolveHandler) ResolveWidget(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var ctx *models.ResolveContext
	if len(c.Body()) > 0 {
		ctx = &models.ResolveContext{}
		if err := c.BodyParser(ctx); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}
	result, err := h.resolve.ResolveWidget(id, ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

type resolveMetricRequest struct {
	Context         *models.ResolveContext   `json:"context,omitempty"`
	LocalFilters    []models.FilterRule      `json:"local_filters,omitempty"`
	LocalDimensions []models.MetricDimension `json:"local_dimensions,omitempty"`
}

// ResolveMetric handles POST /resolve/metrics/:id.
func (h *ResolveHandler) ResolveMetric(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var req resolveMetricRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}
	opts := &models.ResolveOptions{
		Context:         req.Context,
		LocalFilters:    req.LocalFilters,
		LocalDimensions: req.LocalDimensions,
	}
	result, err := h.resolve.ResolveMetric(id, opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}
