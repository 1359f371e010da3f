package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/services"
)

// DashboardHandler covers the editor's composed operations: fetching a
// dashboard with widget models, bundle saves, widget saves and layout
// updates.
type DashboardHandler struct {
	catalog *services.CatalogService
}

func NewDashboardHandler(catalog *services.CatalogService) *DashboardHandler {
	return &DashboardHandler{catalog: catalog}
}

// FetchDashboard handles GET /dashboard. Selection falls back id > slug >
// default > any empresa dashboard > shared template.
func (h *DashboardHandler) FetchDashboard(c *fiber.Ctx) error {
	q := services.DashboardQuery{
		ID:        queryInt64(c, "id"),
		Slug:      c.Query("slug"),
		EmpresaID: queryInt64(c, "empresa_id"),
	}
	view, err := h.catalog.FetchDashboard(q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

// SaveMetricBundle handles POST /definitions/bundle.
func (h *DashboardHandler) SaveMetricBundle(c *fiber.Ctx) error {
	var input services.MetricBundleInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	bundle, err := h.catalog.SaveMetricBundle(input)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Metric bundle saved successfully",
		"bundle":  bundle,
	})
}

// GetMetricBundle handles GET /definitions/:id/bundle.
func (h *DashboardHandler) GetMetricBundle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	bundle, err := h.catalog.MetricBundle(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(bundle)
}

// SaveWidget handles POST /widgets/save.
func (h *DashboardHandler) SaveWidget(c *fiber.Ctx) error {
	var input services.WidgetInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	model, err := h.catalog.SaveWidget(input)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Widget saved successfully",
		"widget":  model,
	})
}

// SaveLayout handles PUT /dashboards/:id/layout.
func (h *DashboardHandler) SaveLayout(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var layout []services.WidgetLayout
	if err := c.BodyParser(&layout); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := h.catalog.SaveDashboardLayout(id, layout); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Layout saved successfully"})
}
