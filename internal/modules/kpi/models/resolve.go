package models

import "time"

// CustomRange carries explicit start/end dates (YYYY-MM-DD) for a custom
// time window supplied through the resolve context.
type CustomRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ResolveContext is the ambient context a caller supplies for one resolution
// pass: window overrides, a pinned reference instant, the active branch
// (sucursal) scope and ad-hoc filters.
type ResolveContext struct {
	TimeWindow  string       `json:"time_window,omitempty"`
	CustomRange *CustomRange `json:"custom_range,omitempty"`
	Now         *time.Time   `json:"now,omitempty"`
	Sucursal    any          `json:"sucursal,omitempty"`
	Filters     []FilterRule `json:"filters,omitempty"`
}

// ResolveOptions tunes a single ResolveMetric call. LocalFilters and
// LocalDimensions, when non-nil, replace the metric's stored filters and
// dimensions for this call only (nil keeps the catalog's; an empty slice
// means "none").
type ResolveOptions struct {
	Widget          *Widget
	WidgetFilters   []FilterRule
	Context         *ResolveContext
	LocalFilters    []FilterRule
	LocalDimensions []MetricDimension
}

// Point is one labeled bucket of a breakdown or series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RangeResult is the resolved time interval echoed back to the caller.
// Nil start/end means no date filtering was applied.
type RangeResult struct {
	Start     *time.Time `json:"start"`
	End       *time.Time `json:"end"`
	WindowKey string     `json:"window_key,omitempty"`
}

// MetricResult is the outcome of resolving one metric.
type MetricResult struct {
	Metric        *Metric     `json:"metric"`
	Records       []Record    `json:"records"`
	Total         float64     `json:"total"`
	PreviousTotal *float64    `json:"previous_total"`
	Delta         *float64    `json:"delta"`
	DeltaPct      *float64    `json:"delta_pct"`
	Breakdown     []Point     `json:"breakdown"`
	Series        []Point     `json:"series"`
	Range         RangeResult `json:"range"`
}

// WidgetModel bundles a widget with the catalog rows it needs to resolve:
// its definition, the definition's direct metric (when calculation_type is
// metric), formula components and the widget's own filters.
type WidgetModel struct {
	Widget     *Widget            `json:"widget"`
	Definition *Definition        `json:"definition"`
	Metric     *Metric            `json:"metric,omitempty"`
	Components []DefinitionMetric `json:"components,omitempty"`
	Filters    []WidgetFilter     `json:"filters,omitempty"`
}

// ComponentResult is one resolved formula component.
type ComponentResult struct {
	Alias  string        `json:"alias"`
	Metric *Metric       `json:"metric"`
	Result *MetricResult `json:"result"`
}

// WidgetSummary is the headline block of a resolved widget.
type WidgetSummary struct {
	Value             float64  `json:"value"`
	FormattedValue    string   `json:"formatted_value"`
	PreviousValue     *float64 `json:"previous_value"`
	PreviousFormatted *string  `json:"previous_formatted"`
	Delta             *float64 `json:"delta"`
	DeltaPct          *float64 `json:"delta_pct"`
	BaselineValue     *float64 `json:"baseline_value"`
	BaselineFormatted *string  `json:"baseline_formatted"`
}

// WidgetResult is the presentation payload for one resolved widget.
type WidgetResult struct {
	Widget     *Widget           `json:"widget"`
	Definition *Definition       `json:"definition"`
	Metric     *Metric           `json:"metric"`
	Components []ComponentResult `json:"components,omitempty"`
	Result     *MetricResult     `json:"result,omitempty"`
	Summary    *WidgetSummary    `json:"summary,omitempty"`
	Breakdown  []Point           `json:"breakdown"`
	Series     []Point           `json:"series"`
	Error      string            `json:"error,omitempty"`
}

// DashboardView is a dashboard plus its composed widget models, ready for
// resolution or editing.
type DashboardView struct {
	Dashboard *Dashboard    `json:"dashboard"`
	Widgets   []WidgetModel `json:"widgets"`
	EmpresaID *int64        `json:"empresa_id"`
}

// MetricBundle groups a metric with everything owned by or presenting it.
type MetricBundle struct {
	Definition *Definition        `json:"definition"`
	Metric     *Metric            `json:"metric,omitempty"`
	Filters    []MetricFilter     `json:"filters"`
	Dimensions []MetricDimension  `json:"dimensions"`
	Components []DefinitionMetric `json:"components"`
}
