package services

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

// CatalogService groups the multi-record catalog operations: bundle saves,
// widget saves, layout updates and dashboard composition. Single-record CRUD
// goes straight to the store from the handlers.
type CatalogService struct {
	store *store.Store
	log   zerolog.Logger
}

func NewCatalogService(st *store.Store, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: st, log: log.With().Str("service", "catalog").Logger()}
}

// MetricBundleInput is the editor's save payload: a definition plus the
// metric, filters, dimensions and formula components it owns. Zero ids mean
// create; stored children absent from the payload are removed.
type MetricBundleInput struct {
	Definition models.Definition         `json:"definition"`
	Metric     *models.Metric            `json:"metric,omitempty"`
	Filters    []models.MetricFilter     `json:"filters"`
	Dimensions []models.MetricDimension  `json:"dimensions"`
	Components []models.DefinitionMetric `json:"components"`
}

// WidgetInput is a widget save payload with its scoped filters.
type WidgetInput struct {
	Widget  models.Widget         `json:"widget"`
	Filters []models.WidgetFilter `json:"filters"`
}

// WidgetLayout is one entry of a dashboard layout update.
type WidgetLayout struct {
	WidgetID int64 `json:"widget_id"`
	Span     int   `json:"span"`
	Order    int   `json:"order"`
}

// DashboardQuery selects a dashboard by id, then slug, then the empresa's
// default, then any empresa dashboard, then a shared template.
type DashboardQuery struct {
	ID        *int64 `json:"id,omitempty"`
	Slug      string `json:"slug,omitempty"`
	EmpresaID *int64 `json:"empresa_id,omitempty"`
}

// SaveMetricBundle upserts a definition together with its metric, filters,
// dimensions and components as one undoable step.
func (s *CatalogService) SaveMetricBundle(input MetricBundleInput) (*models.MetricBundle, error) {
	var defID int64
	err := s.store.WithHistory("save metric bundle", func() error {
		var metricID *int64
		if input.Metric != nil {
			metric := *input.Metric
			var saved *models.Metric
			var err error
			if metric.ID == 0 {
				saved, err = s.store.CreateMetric(metric)
			} else {
				saved, err = s.store.UpdateMetric(metric.ID, metric)
			}
			if err != nil {
				return err
			}
			metricID = &saved.ID

			if err := s.reconcileFilters(saved.ID, input.Filters); err != nil {
				return err
			}
			if err := s.reconcileDimensions(saved.ID, input.Dimensions); err != nil {
				return err
			}
		}

		def := input.Definition
		if def.CalculationType == models.CalculationMetric && metricID != nil {
			def.MetricID = metricID
		}
		var saved *models.Definition
		var err error
		if def.ID == 0 {
			saved, err = s.store.CreateDefinition(def)
		} else {
			saved, err = s.store.UpdateDefinition(def.ID, def)
		}
		if err != nil {
			return err
		}
		defID = saved.ID

		if def.CalculationType == models.CalculationFormula {
			if err := s.reconcileComponents(saved.ID, input.Components); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.MetricBundle(defID)
}

func (s *CatalogService) reconcileFilters(metricID int64, desired []models.MetricFilter) error {
	existing := s.store.ListMetricFilters(models.ListParams{MetricID: &metricID})
	keep := map[int64]struct{}{}
	for _, filter := range desired {
		filter.MetricID = metricID
		if filter.ID == 0 {
			created, err := s.store.CreateMetricFilter(filter)
			if err != nil {
				return err
			}
			keep[created.ID] = struct{}{}
			continue
		}
		if _, err := s.store.UpdateMetricFilter(filter.ID, filter); err != nil {
			return err
		}
		keep[filter.ID] = struct{}{}
	}
	for _, filter := range existing {
		if _, ok := keep[filter.ID]; !ok {
			if err := s.store.DeleteMetricFilter(filter.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *CatalogService) reconcileDimensions(metricID int64, desired []models.MetricDimension) error {
	existing := s.store.ListMetricDimensions(models.ListParams{MetricID: &metricID})
	keep := map[int64]struct{}{}
	for _, dim := range desired {
		dim.MetricID = metricID
		if dim.ID == 0 {
			created, err := s.store.CreateMetricDimension(dim)
			if err != nil {
				return err
			}
			keep[created.ID] = struct{}{}
			continue
		}
		if _, err := s.store.UpdateMetricDimension(dim.ID, dim); err != nil {
			return err
		}
		keep[dim.ID] = struct{}{}
	}
	for _, dim := range existing {
		if _, ok := keep[dim.ID]; !ok {
			if err := s.store.DeleteMetricDimension(dim.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *CatalogService) reconcileComponents(definitionID int64, desired []models.DefinitionMetric) error {
	existing := s.store.ListDefinitionMetrics(models.ListParams{DefinitionID: &definitionID})
	keep := map[int64]struct{}{}
	for _, component := range desired {
		component.DefinitionID = definitionID
		if component.ID == 0 {
			created, err := s.store.CreateDefinitionMetric(component)
			if err != nil {
				return err
			}
			keep[created.ID] = struct{}{}
			continue
		}
		if _, err := s.store.UpdateDefinitionMetric(component.ID, component); err != nil {
			return err
		}
		keep[component.ID] = struct{}{}
	}
	for _, component := range existing {
		if _, ok := keep[component.ID]; !ok {
			if err := s.store.DeleteDefinitionMetric(component.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// MetricBundle loads a definition with everything it owns.
func (s *CatalogService) MetricBundle(definitionID int64) (*models.MetricBundle, error) {
	def, err := s.store.GetDefinition(definitionID)
	if err != nil {
		return nil, err
	}
	bundle := &models.MetricBundle{
		Definition: def,
		Filters:    []models.MetricFilter{},
		Dimensions: []models.MetricDimension{},
		Components: s.store.ListDefinitionMetrics(models.ListParams{DefinitionID: &definitionID}),
	}
	if def.MetricID != nil {
		metric, err := s.store.GetMetric(*def.MetricID)
		if err != nil {
			return nil, err
		}
		bundle.Metric = metric
		bundle.Filters = s.store.ListMetricFilters(models.ListParams{MetricID: &metric.ID})
		bundle.Dimensions = s.store.ListMetricDimensions(models.ListParams{MetricID: &metric.ID})
	}
	return bundle, nil
}

// SaveWidget upserts a widget and reconciles its filters as one undoable step.
func (s *CatalogService) SaveWidget(input WidgetInput) (*models.WidgetModel, error) {
	var widgetID int64
	err := s.store.WithHistory("save widget", func() error {
		widget := input.Widget
		var saved *models.Widget
		var err error
		if widget.ID == 0 {
			saved, err = s.store.CreateWidget(widget)
		} else {
			saved, err = s.store.UpdateWidget(widget.ID, widget)
		}
		if err != nil {
			return err
		}
		widgetID = saved.ID

		existing := s.store.ListWidgetFilters(models.ListParams{WidgetID: &saved.ID})
		keep := map[int64]struct{}{}
		for _, filter := range input.Filters {
			filter.WidgetID = saved.ID
			if filter.ID == 0 {
				created, err := s.store.CreateWidgetFilter(filter)
				if err != nil {
					return err
				}
				keep[created.ID] = struct{}{}
				continue
			}
			if _, err := s.store.UpdateWidgetFilter(filter.ID, filter); err != nil {
				return err
			}
			keep[filter.ID] = struct{}{}
		}
		for _, filter := range existing {
			if _, ok := keep[filter.ID]; !ok {
				if err := s.store.DeleteWidgetFilter(filter.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ComposeWidgetModel(widgetID)
}

// DeleteWidget removes a widget (and its filters) as one undoable step.
func (s *CatalogService) DeleteWidget(widgetID int64) error {
	return s.store.WithHistory("delete widget", func() error {
		return s.store.DeleteWidget(widgetID)
	})
}

// SaveDashboardLayout applies span/order updates to a dashboard's widgets
// as one undoable step. Entries for widgets of other dashboards are rejected.
func (s *CatalogService) SaveDashboardLayout(dashboardID int64, layout []WidgetLayout) error {
	return s.store.WithHistory("save dashboard layout", func() error {
		for _, entry := range layout {
			widget, err := s.store.GetWidget(entry.WidgetID)
			if err != nil {
				return err
			}
			if widget.DashboardID != dashboardID {
				return fmt.Errorf("widget %d does not belong to dashboard %d", entry.WidgetID, dashboardID)
			}
			widget.Span = entry.Span
			widget.Order = entry.Order
			if _, err := s.store.UpdateWidget(widget.ID, *widget); err != nil {
				return err
			}
		}
		return nil
	})
}

// FetchDashboard resolves the query's fallback chain and composes the widget
// models of the winning dashboard.
func (s *CatalogService) FetchDashboard(q DashboardQuery) (*models.DashboardView, error) {
	dashboard, err := s.pickDashboard(q)
	if err != nil {
		return nil, err
	}
	view := &models.DashboardView{
		Dashboard: dashboard,
		Widgets:   []models.WidgetModel{},
		EmpresaID: dashboard.EmpresaID,
	}
	widgets := s.store.ListWidgets(models.ListParams{DashboardID: &dashboard.ID})
	sort.SliceStable(widgets, func(i, j int) bool { return widgets[i].Order < widgets[j].Order })
	for _, widget := range widgets {
		model, err := s.ComposeWidgetModel(widget.ID)
		if err != nil {
			s.log.Warn().Err(err).Int64("widget_id", widget.ID).Msg("skipping widget with broken references")
			continue
		}
		view.Widgets = append(view.Widgets, *model)
	}
	return view, nil
}

func (s *CatalogService) pickDashboard(q DashboardQuery) (*models.Dashboard, error) {
	if q.ID != nil {
		if dashboard, err := s.store.GetDashboard(*q.ID); err == nil {
			return dashboard, nil
		}
	}
	scoped := s.store.ListDashboards(models.ListParams{EmpresaID: q.EmpresaID})
	if q.Slug != "" {
		for i := range scoped {
			if scoped[i].Slug == q.Slug {
				return &scoped[i], nil
			}
		}
	}
	for i := range scoped {
		if scoped[i].IsDefault {
			return &scoped[i], nil
		}
	}
	if len(scoped) > 0 {
		return &scoped[0], nil
	}
	templates := s.store.ListDashboards(models.ListParams{IncludeTemplates: true})
	for i := range templates {
		if templates[i].EmpresaID == nil {
			return &templates[i], nil
		}
	}
	return nil, &store.NotFoundError{Collection: models.CollectionDashboards}
}

// ComposeWidgetModel assembles a widget with its definition, direct metric,
// formula components and filters.
func (s *CatalogService) ComposeWidgetModel(widgetID int64) (*models.WidgetModel, error) {
	widget, err := s.store.GetWidget(widgetID)
	if err != nil {
		return nil, err
	}
	def, err := s.store.GetDefinition(widget.DefinitionID)
	if err != nil {
		return nil, err
	}
	model := &models.WidgetModel{
		Widget:     widget,
		Definition: def,
		Filters:    s.store.ListWidgetFilters(models.ListParams{WidgetID: &widget.ID}),
	}
	if def.MetricID != nil {
		metric, err := s.store.GetMetric(*def.MetricID)
		if err != nil {
			return nil, err
		}
		model.Metric = metric
	}
	if def.CalculationType == models.CalculationFormula {
		model.Components = s.store.ListDefinitionMetrics(models.ListParams{DefinitionID: &def.ID})
	}
	return model, nil
}
