package models

// Field types a SourceField may declare. The type governs value coercion and
// which filter operators are meaningful.
const (
	FieldTypeNumeric = "numeric"
	FieldTypeDate    = "date"
	FieldTypeBoolean = "boolean"
	FieldTypeText    = "text"
)

// Aggregation kinds supported by the engine.
const (
	AggSum           = "sum"
	AggAvg           = "avg"
	AggCount         = "count"
	AggDistinctCount = "distinct_count"
	AggMax           = "max"
	AggMin           = "min"
)

// Calculation types for a Definition.
const (
	CalculationMetric  = "metric"
	CalculationFormula = "formula"
)

// Source is a named record collection available for metric computation.
// BaseFilters is a static predicate map applied before any metric filter.
type Source struct {
	ID                   int64          `json:"id"`
	EmpresaID            *int64         `json:"empresa_id"`
	Code                 string         `json:"code"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	DefaultDateFieldName string         `json:"default_date_field_name,omitempty"`
	BaseFilters          map[string]any `json:"base_filters,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	IsTemplate           bool           `json:"is_template,omitempty"`
}

// SampleKey returns the key under which the source's sample records live in
// the dataset. Falls back to the source code when metadata does not override it.
func (s *Source) SampleKey() string {
	if s.Metadata != nil {
		if key, ok := s.Metadata["sample_records"].(string); ok && key != "" {
			return key
		}
	}
	return s.Code
}

// SourceField is a typed attribute path within a source's records. Name is a
// dot or double-underscore path into the record.
type SourceField struct {
	ID                  int64    `json:"id"`
	SourceID            int64    `json:"source_id"`
	Name                string   `json:"name"`
	Label               string   `json:"label"`
	FieldType           string   `json:"field_type"`
	AllowedAggregations []string `json:"allowed_aggregations,omitempty"`
	Order               int      `json:"order,omitempty"`
	IsDefault           bool     `json:"is_default,omitempty"`
}

// Metric is a reusable aggregation recipe over one source.
type Metric struct {
	ID                     int64          `json:"id"`
	EmpresaID              *int64         `json:"empresa_id"`
	Code                   string         `json:"code"`
	Name                   string         `json:"name"`
	Description            string         `json:"description,omitempty"`
	SourceID               int64          `json:"source_id"`
	Aggregation            string         `json:"aggregation"`
	ValueFieldID           *int64         `json:"value_field_id"`
	DateFieldID            *int64         `json:"date_field_id"`
	TimeWindow             string         `json:"time_window,omitempty"`
	CustomStart            string         `json:"custom_start,omitempty"`
	CustomEnd              string         `json:"custom_end,omitempty"`
	CompareAgainstPrevious bool           `json:"compare_against_previous,omitempty"`
	ExtraConfig            map[string]any `json:"extra_config,omitempty"`
	Order                  int            `json:"order,omitempty"`
	IsTemplate             bool           `json:"is_template,omitempty"`
}

// MetricFilter is a predicate owned by one metric.
type MetricFilter struct {
	ID        int64  `json:"id"`
	MetricID  int64  `json:"metric_id"`
	FieldID   *int64 `json:"field_id"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
	Connector string `json:"connector,omitempty"`
	Order     int    `json:"order,omitempty"`
}

// Rule converts the filter into the engine's predicate shape.
func (f MetricFilter) Rule() FilterRule {
	return FilterRule{FieldID: f.FieldID, Operator: f.Operator, Value: f.Value, Connector: f.Connector}
}

// MetricDimension configures a grouping axis for a metric's breakdown.
// Limit > 0 switches bucketing to ranking mode (top-N by value).
type MetricDimension struct {
	ID          int64  `json:"id"`
	MetricID    int64  `json:"metric_id"`
	FieldID     int64  `json:"field_id"`
	Granularity string `json:"granularity,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// FormatOptions carries presentation extras for a definition.
type FormatOptions struct {
	Currency string `json:"currency,omitempty"`
	Decimals *int   `json:"decimals,omitempty"`
}

// Definition is a presentable KPI: either a direct metric or a formula over
// aliased metric components.
type Definition struct {
	ID               int64          `json:"id"`
	EmpresaID        *int64         `json:"empresa_id"`
	Code             string         `json:"code"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	CalculationType  string         `json:"calculation_type"`
	MetricID         *int64         `json:"metric_id"`
	Expression       string         `json:"expression,omitempty"`
	BaselineMetricID *int64         `json:"baseline_metric_id,omitempty"`
	FormatType       string         `json:"format_type,omitempty"`
	ExtraConfig      *FormatOptions `json:"extra_config,omitempty"`
	IsTemplate       bool           `json:"is_template,omitempty"`
}

// DefinitionMetric pairs an alias to a metric inside a formula definition.
type DefinitionMetric struct {
	ID           int64  `json:"id"`
	DefinitionID int64  `json:"definition_id"`
	MetricID     int64  `json:"metric_id"`
	Alias        string `json:"alias"`
	Order        int    `json:"order,omitempty"`
}

// Dashboard owns an ordered set of widgets.
type Dashboard struct {
	ID        int64  `json:"id"`
	EmpresaID *int64 `json:"empresa_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// Widget places one definition on a dashboard with layout and optional
// time-window overrides.
type Widget struct {
	ID                  int64  `json:"id"`
	DashboardID         int64  `json:"dashboard_id"`
	DefinitionID        int64  `json:"definition_id"`
	Title               string `json:"title,omitempty"`
	Span                int    `json:"span,omitempty"`
	Order               int    `json:"order,omitempty"`
	TimeWindowOverride  string `json:"time_window_override,omitempty"`
	CustomStartOverride string `json:"custom_start_override,omitempty"`
	CustomEndOverride   string `json:"custom_end_override,omitempty"`
}

// WidgetFilter layers an extra predicate on top of the metric's own filters.
// TargetAlias scopes the filter to one formula component; empty targets the
// definition's direct metric and unaliased components.
type WidgetFilter struct {
	ID          int64  `json:"id"`
	WidgetID    int64  `json:"widget_id"`
	FieldID     *int64 `json:"field_id"`
	FieldName   string `json:"field_name,omitempty"`
	Operator    string `json:"operator"`
	Value       any    `json:"value"`
	Connector   string `json:"connector,omitempty"`
	TargetAlias string `json:"target_alias,omitempty"`
}

// Rule converts the filter into the engine's predicate shape.
func (f WidgetFilter) Rule() FilterRule {
	return FilterRule{FieldID: f.FieldID, FieldName: f.FieldName, Operator: f.Operator, Value: f.Value, Connector: f.Connector}
}

// FilterRule is the engine-facing predicate shape shared by metric filters,
// widget filters and ad-hoc context filters. Field resolution prefers FieldID
// and falls back to FieldName.
type FilterRule struct {
	FieldID   *int64 `json:"field_id,omitempty"`
	FieldName string `json:"field_name,omitempty"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
	Connector string `json:"connector,omitempty"`
}
