package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/services"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

// CatalogHandler exposes CRUD plus clone over every catalog collection under
// one generic route family. Multi-record saves go through CatalogService.
type CatalogHandler struct {
	store   *store.Store
	catalog *services.CatalogService
}

func NewCatalogHandler(st *store.Store, catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{store: st, catalog: catalog}
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func queryInt64(c *fiber.Ctx, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func listParams(c *fiber.Ctx) models.ListParams {
	return models.ListParams{
		EmpresaID:        queryInt64(c, "empresa_id"),
		IncludeTemplates: c.QueryBool("include_templates"),
		SourceID:         queryInt64(c, "source_id"),
		MetricID:         queryInt64(c, "metric_id"),
		DefinitionID:     queryInt64(c, "definition_id"),
		DashboardID:      queryInt64(c, "dashboard_id"),
		WidgetID:         queryInt64(c, "widget_id"),
	}
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case store.IsValidation(err):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case store.IsNotFound(err):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}

// List handles GET /catalog/:collection.
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	p := listParams(c)
	switch c.Params("collection") {
	case models.CollectionSources:
		return c.JSON(h.store.ListSources(p))
	case models.CollectionSourceFields:
		return c.JSON(h.store.ListSourceFields(p))
	case models.CollectionMetrics:
		return c.JSON(h.store.ListMetrics(p))
	case models.CollectionMetricFilters:
		return c.JSON(h.store.ListMetricFilters(p))
	case models.CollectionMetricDimensions:
		return c.JSON(h.store.ListMetricDimensions(p))
	case models.CollectionDefinitions:
		return c.JSON(h.store.ListDefinitions(p))
	case models.CollectionDefinitionMetrics:
		return c.JSON(h.store.ListDefinitionMetrics(p))
	case models.CollectionDashboards:
		return c.JSON(h.store.ListDashboards(p))
	case models.CollectionWidgets:
		return c.JSON(h.store.ListWidgets(p))
	case models.CollectionWidgetFilters:
		return c.JSON(h.store.ListWidgetFilters(p))
	}
	return c.Status(404).JSON(fiber.Map{"error": "unknown collection"})
}

// Get handles GET /catalog/:collection/:id.
func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var record any
	switch c.Params("collection") {
	case models.CollectionSources:
		record, err = h.store.GetSource(id)
	case models.CollectionSourceFields:
		record, err = h.store.GetSourceField(id)
	case models.CollectionMetrics:
		record, err = h.store.GetMetric(id)
	case models.CollectionMetricFilters:
		record, err = h.store.GetMetricFilter(id)
	case models.CollectionMetricDimensions:
		record, err = h.store.GetMetricDimension(id)
	case models.CollectionDefinitions:
		record, err = h.store.GetDefinition(id)
	case models.CollectionDefinitionMetrics:
		record, err = h.store.GetDefinitionMetric(id)
	case models.CollectionDashboards:
		record, err = h.store.GetDashboard(id)
	case models.CollectionWidgets:
		record, err = h.store.GetWidget(id)
	case models.CollectionWidgetFilters:
		record, err = h.store.GetWidgetFilter(id)
	default:
		return c.Status(404).JSON(fiber.Map{"error": "unknown collection"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(record)
}

// Create handles POST /catalog/:collection. The new record's id is assigned
// by the store; any id in the payload is ignored.
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	collection := c.Params("collection")
	var record any
	err := h.store.WithHistory("create "+collection, func() error {
		var err error
		record, err = h.createRecord(c, collection)
		return err
	})
	if err != nil {
		if err == store.ErrUnknownCollection {
			return c.Status(404).JSON(fiber.Map{"error": "unknown collection"})
		}
		return writeError(c, err)
	}
	return c.Status(201).JSON(record)
}

func (h *CatalogHandler) createRecord(c *fiber.Ctx, collection string) (any, error) {
	switch collection {
	case models.CollectionSources:
		var in models.Source
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateSource(in)
	case models.CollectionSourceFields:
		var in models.SourceField
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateSourceField(in)
	case models.CollectionMetrics:
		var in models.Metric
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateMetric(in)
	case models.CollectionMetricFilters:
		var in models.MetricFilter
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateMetricFilter(in)
	case models.CollectionMetricDimensions:
		var in models.MetricDimension
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateMetricDimension(in)
	case models.CollectionDefinitions:
		var in models.Definition
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateDefinition(in)
	case models.CollectionDefinitionMetrics:
		var in models.DefinitionMetric
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateDefinitionMetric(in)
	case models.CollectionDashboards:
		var in models.Dashboard
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateDashboard(in)
	case models.CollectionWidgets:
		var in models.Widget
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateWidget(in)
	case models.CollectionWidgetFilters:
		var in models.WidgetFilter
		if err := c.BodyParser(&in); err != nil {
			return nil, validationBody(err)
		}
		return h.store.CreateWidgetFilter(in)
	}
	return nil, store.ErrUnknownCollection
}

// Update handles PUT /catalog/:collection/:id with merge semantics: the
// stored record is loaded first and the payload's fields overlay it, so a
// partial body never blanks omitted fields.
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	collection := c.Params("collection")
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var record any
	err = h.store.WithHistory("update "+collection, func() error {
		var err error
		record, err = h.updateRecord(c, collection, id)
		return err
	})
	if err != nil {
		if err == store.ErrUnknownCollection {
			return c.Status(404).JSON(fiber.Map{"error": "unknown collection"})
		}
		return writeError(c, err)
	}
	return c.JSON(record)
}

func (h *CatalogHandler) updateRecord(c *fiber.Ctx, collection string, id int64) (any, error) {
	switch collection {
	case models.CollectionSources:
		current, err := h.store.GetSource(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateSource(id, *current)
	case models.CollectionSourceFields:
		current, err := h.store.GetSourceField(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateSourceField(id, *current)
	case models.CollectionMetrics:
		current, err := h.store.GetMetric(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateMetric(id, *current)
	case models.CollectionMetricFilters:
		current, err := h.store.GetMetricFilter(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateMetricFilter(id, *current)
	case models.CollectionMetricDimensions:
		current, err := h.store.GetMetricDimension(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateMetricDimension(id, *current)
	case models.CollectionDefinitions:
		current, err := h.store.GetDefinition(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateDefinition(id, *current)
	case models.CollectionDefinitionMetrics:
		current, err := h.store.GetDefinitionMetric(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateDefinitionMetric(id, *current)
	case models.CollectionDashboards:
		current, err := h.store.GetDashboard(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateDashboard(id, *current)
	case models.CollectionWidgets:
		current, err := h.store.GetWidget(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateWidget(id, *current)
	case models.CollectionWidgetFilters:
		current, err := h.store.GetWidgetFilter(id)
		if err != nil {
			return nil, err
		}
		if err := c.BodyParser(current); err != nil {
			return nil, validationBody(err)
		}
		return h.store.UpdateWidgetFilter(id, *current)
	}
	return nil, store.ErrUnknownCollection
}

// Delete handles DELETE /catalog/:collection/:id. Cascades run inside the
// store; deleting a missing id still answers 200.
func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	collection := c.Params("collection")
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	err = h.store.WithHistory("delete "+collection, func() error {
		switch collection {
		case models.CollectionSources:
			return h.store.DeleteSource(id)
		case models.CollectionSourceFields:
			return h.store.DeleteSourceField(id)
		case models.CollectionMetrics:
			return h.store.DeleteMetric(id)
		case models.CollectionMetricFilters:
			return h.store.DeleteMetricFilter(id)
		case models.CollectionMetricDimensions:
			return h.store.DeleteMetricDimension(id)
		case models.CollectionDefinitions:
			return h.store.DeleteDefinition(id)
		case models.CollectionDefinitionMetrics:
			return h.store.DeleteDefinitionMetric(id)
		case models.CollectionDashboards:
			return h.store.DeleteDashboard(id)
		case models.CollectionWidgets:
			return h.store.DeleteWidget(id)
		case models.CollectionWidgetFilters:
			return h.store.DeleteWidgetFilter(id)
		}
		return store.ErrUnknownCollection
	})
	if err != nil {
		if err == store.ErrUnknownCollection {
			return c.Status(404).JSON(fiber.Map{"error": "unknown collection"})
		}
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Record deleted successfully"})
}

// Clone handles POST /catalog/:collection/:id/clone for the collections that
// support deep copies.
func (h *CatalogHandler) Clone(c *fiber.Ctx) error {
	collection := c.Params("collection")
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
	}
	var ov store.CloneOverrides
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&ov); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}
	var record any
	err = h.store.WithHistory("clone "+collection, func() error {
		var err error
		switch collection {
		case models.CollectionSources:
			record, err = h.store.CloneSource(id, ov)
		case models.CollectionMetrics:
			record, err = h.store.CloneMetric(id, ov)
		case models.CollectionDefinitions:
			record, err = h.store.CloneDefinition(id, ov)
		case models.CollectionDashboards:
			record, err = h.store.CloneDashboard(id, ov)
		default:
			err = store.ErrUnknownCollection
		}
		return err
	})
	if err != nil {
		if err == store.ErrUnknownCollection {
			return c.Status(404).JSON(fiber.Map{"error": "collection does not support clone"})
		}
		return writeError(c, err)
	}
	return c.Status(201).JSON(record)
}

func validationBody(err error) error {
	return &store.ValidationError{Message: "invalid request body: " + err.Error()}
}
