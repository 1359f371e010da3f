package services

import (
	"github.com/rs/zerolog"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/engine"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

// ResolveService runs the resolution engine against a catalog snapshot.
// Every request resolves over its own snapshot, so long computations never
// block catalog writers and never observe a half-applied edit.
type ResolveService struct {
	store   *store.Store
	catalog *CatalogService
	log     zerolog.Logger
}

func NewResolveService(st *store.Store, catalog *CatalogService, log zerolog.Logger) *ResolveService {
	return &ResolveService{store: st, catalog: catalog, log: log.With().Str("service", "resolve").Logger()}
}

// ResolvedDashboard is a dashboard with every widget resolved.
type ResolvedDashboard struct {
	Dashboard *models.Dashboard     `json:"dashboard"`
	Widgets   []models.WidgetResult `json:"widgets"`
}

// ResolveDashboard fetches a dashboard via the fallback chain and resolves
// all its widgets against one snapshot.
func (s *ResolveService) ResolveDashboard(q DashboardQuery, ctx *models.ResolveContext) (*ResolvedDashboard, error) {
	view, err := s.catalog.FetchDashboard(q)
	if err != nil {
		return nil, err
	}
	resolver := engine.NewResolver(s.store.Snapshot())
	out := &ResolvedDashboard{Dashboard: view.Dashboard, Widgets: []models.WidgetResult{}}
	for i := range view.Widgets {
		result := resolver.ResolveWidget(&view.Widgets[i], ctx)
		out.Widgets = append(out.Widgets, *result)
	}
	return out, nil
}

// ResolveWidget resolves a single widget by id.
func (s *ResolveService) ResolveWidget(widgetID int64, ctx *models.ResolveContext) (*models.WidgetResult, error) {
	model, err := s.catalog.ComposeWidgetModel(widgetID)
	if err != nil {
		return nil, err
	}
	resolver := engine.NewResolver(s.store.Snapshot())
	return resolver.ResolveWidget(model, ctx), nil
}

// ResolveMetric resolves a single metric by id with optional per-call
// filter and dimension overrides.
func (s *ResolveService) ResolveMetric(metricID int64, opts *models.ResolveOptions) (*models.MetricResult, error) {
	if _, err := s.store.GetMetric(metricID); err != nil {
		return nil, err
	}
	resolver := engine.NewResolver(s.store.Snapshot())
	return resolver.ResolveMetric(resolver.Metric(metricID), opts), nil
}
