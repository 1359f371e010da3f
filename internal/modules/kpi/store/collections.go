package store

import (
	"encoding/json"
	"fmt"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// CloneOverrides lets a caller rename a cloned record. Empty fields fall
// back to the original value plus a "-copy-<id>" / "(copia)" suffix.
type CloneOverrides struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

func deepCopyOf[T any](v T) T {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func indexByID[T any](items []T, idOf func(T) int64, id int64) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

// --- sources ---

func (s *Store) ListSources(p models.ListParams) []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Source{}
	for _, src := range s.data.Sources {
		if matchesScope(src.EmpresaID, p) {
			out = append(out, deepCopyOf(src))
		}
	}
	return out
}

func (s *Store) GetSource(id int64) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.Sources, func(v models.Source) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionSources, ID: id}
	}
	src := deepCopyOf(s.data.Sources[idx])
	return &src, nil
}

func (s *Store) CreateSource(src models.Source) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src.ID = s.nextID(models.CollectionSources)
	if err := validateSource(s.data, src, 0); err != nil {
		return nil, err
	}
	s.data.Sources = append(s.data.Sources, deepCopyOf(src))
	s.persistLocked()
	return &src, nil
}

func (s *Store) UpdateSource(id int64, src models.Source) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Sources, func(v models.Source) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionSources, ID: id}
	}
	src.ID = id
	if err := validateSource(s.data, src, id); err != nil {
		return nil, err
	}
	s.data.Sources[idx] = deepCopyOf(src)
	s.persistLocked()
	return &src, nil
}

func (s *Store) DeleteSource(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Sources, func(v models.Source) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.Sources = append(s.data.Sources[:idx], s.data.Sources[idx+1:]...)
	s.persistLocked()
	return nil
}

func (s *Store) CloneSource(id int64, ov CloneOverrides) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Sources, func(v models.Source) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionSources, ID: id}
	}
	cp := deepCopyOf(s.data.Sources[idx])
	cp.ID = s.nextID(models.CollectionSources)
	cp.Code = orSuffix(ov.Code, cp.Code, cp.ID)
	cp.Name = orCopia(ov.Name, cp.Name)
	if err := validateSource(s.data, cp, 0); err != nil {
		return nil, err
	}
	s.data.Sources = append(s.data.Sources, cp)
	s.persistLocked()
	out := deepCopyOf(cp)
	return &out, nil
}

// --- source fields ---

func (s *Store) ListSourceFields(p models.ListParams) []models.SourceField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.SourceField{}
	for _, field := range s.data.SourceFields {
		if p.SourceID != nil && field.SourceID != *p.SourceID {
			continue
		}
		out = append(out, field)
	}
	return out
}

func (s *Store) GetSourceField(id int64) (*models.SourceField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.SourceFields, func(v models.SourceField) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionSourceFields, ID: id}
	}
	field := s.data.SourceFields[idx]
	return &field, nil
}

func (s *Store) CreateSourceField(field models.SourceField) (*models.SourceField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field.ID = s.nextID(models.CollectionSourceFields)
	if err := validateSourceField(s.data, field, 0); err != nil {
		return nil, err
	}
	s.data.SourceFields = append(s.data.SourceFields, field)
	s.persistLocked()
	return &field, nil
}

func (s *Store) UpdateSourceField(id int64, field models.SourceField) (*models.SourceField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.SourceFields, func(v models.SourceField) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionSourceFields, ID: id}
	}
	field.ID = id
	if err := validateSourceField(s.data, field, id); err != nil {
		return nil, err
	}
	s.data.SourceFields[idx] = field
	s.persistLocked()
	return &field, nil
}

func (s *Store) DeleteSourceField(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.SourceFields, func(v models.SourceField) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.SourceFields = append(s.data.SourceFields[:idx], s.data.SourceFields[idx+1:]...)
	s.persistLocked()
	return nil
}

// --- metrics ---

func (s *Store) ListMetrics(p models.ListParams) []models.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Metric{}
	for _, metric := range s.data.Metrics {
		if !matchesScope(metric.EmpresaID, p) {
			continue
		}
		if p.SourceID != nil && metric.SourceID != *p.SourceID {
			continue
		}
		out = append(out, deepCopyOf(metric))
	}
	return out
}

func (s *Store) GetMetric(id int64) (*models.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.Metrics, func(v models.Metric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetrics, ID: id}
	}
	metric := deepCopyOf(s.data.Metrics[idx])
	return &metric, nil
}

func (s *Store) CreateMetric(metric models.Metric) (*models.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metric.ID = s.nextID(models.CollectionMetrics)
	if err := validateMetric(s.data, metric, 0); err != nil {
		return nil, err
	}
	s.data.Metrics = append(s.data.Metrics, deepCopyOf(metric))
	s.persistLocked()
	return &metric, nil
}

func (s *Store) UpdateMetric(id int64, metric models.Metric) (*models.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Metrics, func(v models.Metric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetrics, ID: id}
	}
	metric.ID = id
	if err := validateMetric(s.data, metric, id); err != nil {
		return nil, err
	}
	s.data.Metrics[idx] = deepCopyOf(metric)
	s.persistLocked()
	return &metric, nil
}

// DeleteMetric removes a metric and cascades to its filters, dimensions and
// every definition depending on it, directly or as a formula component.
// Deleting a missing id is a no-op.
func (s *Store) DeleteMetric(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteMetricLocked(id)
	s.persistLocked()
	return nil
}

func (s *Store) deleteMetricLocked(id int64) {
	idx := indexByID(s.data.Metrics, func(v models.Metric) int64 { return v.ID }, id)
	if idx == -1 {
		return
	}

	filters := s.data.MetricFilters[:0]
	for _, filter := range s.data.MetricFilters {
		if filter.MetricID != id {
			filters = append(filters, filter)
		}
	}
	s.data.MetricFilters = filters

	dims := s.data.MetricDimensions[:0]
	for _, dim := range s.data.MetricDimensions {
		if dim.MetricID != id {
			dims = append(dims, dim)
		}
	}
	s.data.MetricDimensions = dims

	linked := map[int64]struct{}{}
	for _, def := range s.data.Definitions {
		if def.MetricID != nil && *def.MetricID == id {
			linked[def.ID] = struct{}{}
		}
	}
	for _, component := range s.data.DefinitionMetrics {
		if component.MetricID == id {
			linked[component.DefinitionID] = struct{}{}
		}
	}
	for defID := range linked {
		s.deleteDefinitionLocked(defID)
	}

	idx = indexByID(s.data.Metrics, func(v models.Metric) int64 { return v.ID }, id)
	s.data.Metrics = append(s.data.Metrics[:idx], s.data.Metrics[idx+1:]...)
}

// CloneMetric copies a metric together with its filters and dimensions.
func (s *Store) CloneMetric(id int64, ov CloneOverrides) (*models.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Metrics, func(v models.Metric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetrics, ID: id}
	}
	cp := deepCopyOf(s.data.Metrics[idx])
	cp.ID = s.nextID(models.CollectionMetrics)
	cp.Code = orSuffix(ov.Code, cp.Code, cp.ID)
	cp.Name = orCopia(ov.Name, cp.Name)
	if err := validateMetric(s.data, cp, 0); err != nil {
		return nil, err
	}
	s.data.Metrics = append(s.data.Metrics, deepCopyOf(cp))

	for _, filter := range s.data.MetricFilters {
		if filter.MetricID == id {
			fc := deepCopyOf(filter)
			fc.ID = s.nextID(models.CollectionMetricFilters)
			fc.MetricID = cp.ID
			s.data.MetricFilters = append(s.data.MetricFilters, fc)
		}
	}
	for _, dim := range s.data.MetricDimensions {
		if dim.MetricID == id {
			dc := dim
			dc.ID = s.nextID(models.CollectionMetricDimensions)
			dc.MetricID = cp.ID
			s.data.MetricDimensions = append(s.data.MetricDimensions, dc)
		}
	}
	s.persistLocked()
	return &cp, nil
}

// --- metric filters ---

func (s *Store) ListMetricFilters(p models.ListParams) []models.MetricFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MetricFilter{}
	for _, filter := range s.data.MetricFilters {
		if p.MetricID != nil && filter.MetricID != *p.MetricID {
			continue
		}
		out = append(out, deepCopyOf(filter))
	}
	return out
}

func (s *Store) GetMetricFilter(id int64) (*models.MetricFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.MetricFilters, func(v models.MetricFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetricFilters, ID: id}
	}
	filter := deepCopyOf(s.data.MetricFilters[idx])
	return &filter, nil
}

func (s *Store) CreateMetricFilter(filter models.MetricFilter) (*models.MetricFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filter.ID = s.nextID(models.CollectionMetricFilters)
	if err := validateMetricFilter(s.data, filter); err != nil {
		return nil, err
	}
	s.data.MetricFilters = append(s.data.MetricFilters, deepCopyOf(filter))
	s.persistLocked()
	return &filter, nil
}

func (s *Store) UpdateMetricFilter(id int64, filter models.MetricFilter) (*models.MetricFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.MetricFilters, func(v models.MetricFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetricFilters, ID: id}
	}
	filter.ID = id
	if err := validateMetricFilter(s.data, filter); err != nil {
		return nil, err
	}
	s.data.MetricFilters[idx] = deepCopyOf(filter)
	s.persistLocked()
	return &filter, nil
}

func (s *Store) DeleteMetricFilter(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.MetricFilters, func(v models.MetricFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.MetricFilters = append(s.data.MetricFilters[:idx], s.data.MetricFilters[idx+1:]...)
	s.persistLocked()
	return nil
}

// --- metric dimensions ---

func (s *Store) ListMetricDimensions(p models.ListParams) []models.MetricDimension {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MetricDimension{}
	for _, dim := range s.data.MetricDimensions {
		if p.MetricID != nil && dim.MetricID != *p.MetricID {
			continue
		}
		out = append(out, dim)
	}
	return out
}

func (s *Store) GetMetricDimension(id int64) (*models.MetricDimension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.MetricDimensions, func(v models.MetricDimension) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetricDimensions, ID: id}
	}
	dim := s.data.MetricDimensions[idx]
	return &dim, nil
}

func (s *Store) CreateMetricDimension(dim models.MetricDimension) (*models.MetricDimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dim.ID = s.nextID(models.CollectionMetricDimensions)
	if err := validateMetricDimension(s.data, dim); err != nil {
		return nil, err
	}
	s.data.MetricDimensions = append(s.data.MetricDimensions, dim)
	s.persistLocked()
	return &dim, nil
}

func (s *Store) UpdateMetricDimension(id int64, dim models.MetricDimension) (*models.MetricDimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.MetricDimensions, func(v models.MetricDimension) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionMetricDimensions, ID: id}
	}
	dim.ID = id
	if err := validateMetricDimension(s.data, dim); err != nil {
		return nil, err
	}
	s.data.MetricDimensions[idx] = dim
	s.persistLocked()
	return &dim, nil
}

func (s *Store) DeleteMetricDimension(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.MetricDimensions, func(v models.MetricDimension) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.MetricDimensions = append(s.data.MetricDimensions[:idx], s.data.MetricDimensions[idx+1:]...)
	s.persistLocked()
	return nil
}

// --- definitions ---

func (s *Store) ListDefinitions(p models.ListParams) []models.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Definition{}
	for _, def := range s.data.Definitions {
		if matchesScope(def.EmpresaID, p) {
			out = append(out, deepCopyOf(def))
		}
	}
	return out
}

func (s *Store) GetDefinition(id int64) (*models.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.Definitions, func(v models.Definition) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDefinitions, ID: id}
	}
	def := deepCopyOf(s.data.Definitions[idx])
	return &def, nil
}

func (s *Store) CreateDefinition(def models.Definition) (*models.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def.ID = s.nextID(models.CollectionDefinitions)
	if err := validateDefinition(s.data, def, 0); err != nil {
		return nil, err
	}
	s.data.Definitions = append(s.data.Definitions, deepCopyOf(def))
	s.persistLocked()
	return &def, nil
}

func (s *Store) UpdateDefinition(id int64, def models.Definition) (*models.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Definitions, func(v models.Definition) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDefinitions, ID: id}
	}
	def.ID = id
	if err := validateDefinition(s.data, def, id); err != nil {
		return nil, err
	}
	s.data.Definitions[idx] = deepCopyOf(def)
	s.persistLocked()
	return &def, nil
}

// DeleteDefinition removes a definition, its formula components and every
// widget presenting it. Deleting a missing id is a no-op.
func (s *Store) DeleteDefinition(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteDefinitionLocked(id)
	s.persistLocked()
	return nil
}

func (s *Store) deleteDefinitionLocked(id int64) {
	idx := indexByID(s.data.Definitions, func(v models.Definition) int64 { return v.ID }, id)
	if idx == -1 {
		return
	}

	components := s.data.DefinitionMetrics[:0]
	for _, component := range s.data.DefinitionMetrics {
		if component.DefinitionID != id {
			components = append(components, component)
		}
	}
	s.data.DefinitionMetrics = components

	var widgetIDs []int64
	for _, widget := range s.data.Widgets {
		if widget.DefinitionID == id {
			widgetIDs = append(widgetIDs, widget.ID)
		}
	}
	for _, widgetID := range widgetIDs {
		s.deleteWidgetLocked(widgetID)
	}

	idx = indexByID(s.data.Definitions, func(v models.Definition) int64 { return v.ID }, id)
	s.data.Definitions = append(s.data.Definitions[:idx], s.data.Definitions[idx+1:]...)
}

// CloneDefinition copies a definition together with its components.
func (s *Store) CloneDefinition(id int64, ov CloneOverrides) (*models.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Definitions, func(v models.Definition) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDefinitions, ID: id}
	}
	cp := deepCopyOf(s.data.Definitions[idx])
	cp.ID = s.nextID(models.CollectionDefinitions)
	cp.Code = orSuffix(ov.Code, cp.Code, cp.ID)
	cp.Name = orCopia(ov.Name, cp.Name)
	if err := validateDefinition(s.data, cp, 0); err != nil {
		return nil, err
	}
	s.data.Definitions = append(s.data.Definitions, deepCopyOf(cp))

	for _, component := range s.data.DefinitionMetrics {
		if component.DefinitionID == id {
			cc := component
			cc.ID = s.nextID(models.CollectionDefinitionMetrics)
			cc.DefinitionID = cp.ID
			s.data.DefinitionMetrics = append(s.data.DefinitionMetrics, cc)
		}
	}
	s.persistLocked()
	return &cp, nil
}

// --- definition metrics (formula components) ---

func (s *Store) ListDefinitionMetrics(p models.ListParams) []models.DefinitionMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.DefinitionMetric{}
	for _, component := range s.data.DefinitionMetrics {
		if p.DefinitionID != nil && component.DefinitionID != *p.DefinitionID {
			continue
		}
		out = append(out, component)
	}
	return out
}

func (s *Store) GetDefinitionMetric(id int64) (*models.DefinitionMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.DefinitionMetrics, func(v models.DefinitionMetric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDefinitionMetrics, ID: id}
	}
	component := s.data.DefinitionMetrics[idx]
	return &component, nil
}

func (s *Store) CreateDefinitionMetric(component models.DefinitionMetric) (*models.DefinitionMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	component.ID = s.nextID(models.CollectionDefinitionMetrics)
	if err := validateDefinitionMetric(s.data, component); err != nil {
		return nil, err
	}
	s.data.DefinitionMetrics = append(s.data.DefinitionMetrics, component)
	s.persistLocked()
	return &component, nil
}

func (s *Store) UpdateDefinitionMetric(id int64, component models.DefinitionMetric) (*models.DefinitionMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.DefinitionMetrics, func(v models.DefinitionMetric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDefinitionMetrics, ID: id}
	}
	component.ID = id
	if err := validateDefinitionMetric(s.data, component); err != nil {
		return nil, err
	}
	s.data.DefinitionMetrics[idx] = component
	s.persistLocked()
	return &component, nil
}

func (s *Store) DeleteDefinitionMetric(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.DefinitionMetrics, func(v models.DefinitionMetric) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.DefinitionMetrics = append(s.data.DefinitionMetrics[:idx], s.data.DefinitionMetrics[idx+1:]...)
	s.persistLocked()
	return nil
}

// --- dashboards ---

func (s *Store) ListDashboards(p models.ListParams) []models.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Dashboard{}
	for _, dashboard := range s.data.Dashboards {
		if matchesScope(dashboard.EmpresaID, p) {
			out = append(out, dashboard)
		}
	}
	return out
}

func (s *Store) GetDashboard(id int64) (*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.Dashboards, func(v models.Dashboard) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDashboards, ID: id}
	}
	dashboard := s.data.Dashboards[idx]
	return &dashboard, nil
}

func (s *Store) CreateDashboard(dashboard models.Dashboard) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dashboard.ID = s.nextID(models.CollectionDashboards)
	if err := validateDashboard(s.data, dashboard, 0); err != nil {
		return nil, err
	}
	s.data.Dashboards = append(s.data.Dashboards, dashboard)
	s.persistLocked()
	return &dashboard, nil
}

func (s *Store) UpdateDashboard(id int64, dashboard models.Dashboard) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Dashboards, func(v models.Dashboard) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDashboards, ID: id}
	}
	dashboard.ID = id
	if err := validateDashboard(s.data, dashboard, id); err != nil {
		return nil, err
	}
	s.data.Dashboards[idx] = dashboard
	s.persistLocked()
	return &dashboard, nil
}

// DeleteDashboard removes a dashboard and its widgets.
func (s *Store) DeleteDashboard(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Dashboards, func(v models.Dashboard) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	var widgetIDs []int64
	for _, widget := range s.data.Widgets {
		if widget.DashboardID == id {
			widgetIDs = append(widgetIDs, widget.ID)
		}
	}
	for _, widgetID := range widgetIDs {
		s.deleteWidgetLocked(widgetID)
	}
	idx = indexByID(s.data.Dashboards, func(v models.Dashboard) int64 { return v.ID }, id)
	s.data.Dashboards = append(s.data.Dashboards[:idx], s.data.Dashboards[idx+1:]...)
	s.persistLocked()
	return nil
}

// CloneDashboard copies a dashboard with all widgets and widget filters.
func (s *Store) CloneDashboard(id int64, ov CloneOverrides) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Dashboards, func(v models.Dashboard) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionDashboards, ID: id}
	}
	cp := s.data.Dashboards[idx]
	cp.ID = s.nextID(models.CollectionDashboards)
	cp.Slug = orSuffix(ov.Slug, cp.Slug, cp.ID)
	cp.Name = orCopia(ov.Name, cp.Name)
	if err := validateDashboard(s.data, cp, 0); err != nil {
		return nil, err
	}
	s.data.Dashboards = append(s.data.Dashboards, cp)

	for _, widget := range s.data.Widgets {
		if widget.DashboardID != id {
			continue
		}
		wc := widget
		wc.ID = s.nextID(models.CollectionWidgets)
		wc.DashboardID = cp.ID
		s.data.Widgets = append(s.data.Widgets, wc)
		for _, filter := range s.data.WidgetFilters {
			if filter.WidgetID == widget.ID {
				fc := deepCopyOf(filter)
				fc.ID = s.nextID(models.CollectionWidgetFilters)
				fc.WidgetID = wc.ID
				s.data.WidgetFilters = append(s.data.WidgetFilters, fc)
			}
		}
	}
	s.persistLocked()
	return &cp, nil
}

// --- widgets ---

func (s *Store) ListWidgets(p models.ListParams) []models.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Widget{}
	for _, widget := range s.data.Widgets {
		if p.DashboardID != nil && widget.DashboardID != *p.DashboardID {
			continue
		}
		out = append(out, widget)
	}
	return out
}

func (s *Store) GetWidget(id int64) (*models.Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.Widgets, func(v models.Widget) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionWidgets, ID: id}
	}
	widget := s.data.Widgets[idx]
	return &widget, nil
}

func (s *Store) CreateWidget(widget models.Widget) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	widget.ID = s.nextID(models.CollectionWidgets)
	if err := validateWidget(s.data, widget); err != nil {
		return nil, err
	}
	s.data.Widgets = append(s.data.Widgets, widget)
	s.persistLocked()
	return &widget, nil
}

func (s *Store) UpdateWidget(id int64, widget models.Widget) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.Widgets, func(v models.Widget) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionWidgets, ID: id}
	}
	widget.ID = id
	if err := validateWidget(s.data, widget); err != nil {
		return nil, err
	}
	s.data.Widgets[idx] = widget
	s.persistLocked()
	return &widget, nil
}

// DeleteWidget removes a widget and its filters.
func (s *Store) DeleteWidget(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteWidgetLocked(id)
	s.persistLocked()
	return nil
}

func (s *Store) deleteWidgetLocked(id int64) {
	idx := indexByID(s.data.Widgets, func(v models.Widget) int64 { return v.ID }, id)
	if idx == -1 {
		return
	}
	filters := s.data.WidgetFilters[:0]
	for _, filter := range s.data.WidgetFilters {
		if filter.WidgetID != id {
			filters = append(filters, filter)
		}
	}
	s.data.WidgetFilters = filters
	s.data.Widgets = append(s.data.Widgets[:idx], s.data.Widgets[idx+1:]...)
}

// --- widget filters ---

func (s *Store) ListWidgetFilters(p models.ListParams) []models.WidgetFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.WidgetFilter{}
	for _, filter := range s.data.WidgetFilters {
		if p.WidgetID != nil && filter.WidgetID != *p.WidgetID {
			continue
		}
		out = append(out, deepCopyOf(filter))
	}
	return out
}

func (s *Store) GetWidgetFilter(id int64) (*models.WidgetFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexByID(s.data.WidgetFilters, func(v models.WidgetFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionWidgetFilters, ID: id}
	}
	filter := deepCopyOf(s.data.WidgetFilters[idx])
	return &filter, nil
}

func (s *Store) CreateWidgetFilter(filter models.WidgetFilter) (*models.WidgetFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filter.ID = s.nextID(models.CollectionWidgetFilters)
	if err := validateWidgetFilter(s.data, filter); err != nil {
		return nil, err
	}
	s.data.WidgetFilters = append(s.data.WidgetFilters, deepCopyOf(filter))
	s.persistLocked()
	return &filter, nil
}

func (s *Store) UpdateWidgetFilter(id int64, filter models.WidgetFilter) (*models.WidgetFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.WidgetFilters, func(v models.WidgetFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil, &NotFoundError{Collection: models.CollectionWidgetFilters, ID: id}
	}
	filter.ID = id
	if err := validateWidgetFilter(s.data, filter); err != nil {
		return nil, err
	}
	s.data.WidgetFilters[idx] = deepCopyOf(filter)
	s.persistLocked()
	return &filter, nil
}

func (s *Store) DeleteWidgetFilter(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexByID(s.data.WidgetFilters, func(v models.WidgetFilter) int64 { return v.ID }, id)
	if idx == -1 {
		return nil
	}
	s.data.WidgetFilters = append(s.data.WidgetFilters[:idx], s.data.WidgetFilters[idx+1:]...)
	s.persistLocked()
	return nil
}

func orSuffix(override, original string, id int64) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf("%s-copy-%d", original, id)
}

func orCopia(override, original string) string {
	if override != "" {
		return override
	}
	return original + " (copia)"
}
