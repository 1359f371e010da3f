package models

import "time"

// Record is one loosely structured sample row. Nested objects decode to
// map[string]any, so field paths can walk into them.
type Record = map[string]any

// Collection names recognized by the catalog store.
const (
	CollectionSources           = "sources"
	CollectionSourceFields      = "sourceFields"
	CollectionMetrics           = "metrics"
	CollectionMetricFilters     = "metricFilters"
	CollectionMetricDimensions  = "metricDimensions"
	CollectionDefinitions       = "definitions"
	CollectionDefinitionMetrics = "definitionMetrics"
	CollectionDashboards        = "dashboards"
	CollectionWidgets           = "widgets"
	CollectionWidgetFilters     = "widgetFilters"
)

// Collections lists every catalog collection in a stable order.
var Collections = []string{
	CollectionSources,
	CollectionSourceFields,
	CollectionMetrics,
	CollectionMetricFilters,
	CollectionMetricDimensions,
	CollectionDefinitions,
	CollectionDefinitionMetrics,
	CollectionDashboards,
	CollectionWidgets,
	CollectionWidgetFilters,
}

// Dataset is the full catalog: every collection plus the sample records the
// resolution engine reads. One Dataset is also the unit of snapshot,
// persistence and undo history.
type Dataset struct {
	Sources           []Source            `json:"sources"`
	SourceFields      []SourceField       `json:"sourceFields"`
	Metrics           []Metric            `json:"metrics"`
	MetricFilters     []MetricFilter      `json:"metricFilters"`
	MetricDimensions  []MetricDimension   `json:"metricDimensions"`
	Definitions       []Definition        `json:"definitions"`
	DefinitionMetrics []DefinitionMetric  `json:"definitionMetrics"`
	Dashboards        []Dashboard         `json:"dashboards"`
	Widgets           []Widget            `json:"widgets"`
	WidgetFilters     []WidgetFilter      `json:"widgetFilters"`
	SourceSamples     map[string][]Record `json:"sourceSamples"`
	GeneratedAt       *time.Time          `json:"generated_at,omitempty"`
	SnapshotID        string              `json:"snapshot_id,omitempty"`
}

// NewDataset returns an empty dataset with all collections allocated.
func NewDataset() *Dataset {
	return &Dataset{
		Sources:           []Source{},
		SourceFields:      []SourceField{},
		Metrics:           []Metric{},
		MetricFilters:     []MetricFilter{},
		MetricDimensions:  []MetricDimension{},
		Definitions:       []Definition{},
		DefinitionMetrics: []DefinitionMetric{},
		Dashboards:        []Dashboard{},
		Widgets:           []Widget{},
		WidgetFilters:     []WidgetFilter{},
		SourceSamples:     map[string][]Record{},
	}
}

// ListParams narrows a collection listing. Zero values mean "no constraint".
// EmpresaID keeps records of that empresa; IncludeTemplates additionally
// keeps records with no empresa (shared templates).
type ListParams struct {
	EmpresaID        *int64
	IncludeTemplates bool
	SourceID         *int64
	MetricID         *int64
	DefinitionID     *int64
	DashboardID      *int64
	WidgetID         *int64
}
