package store

import (
	"strings"
	"time"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

func findSource(d *models.Dataset, id int64) *models.Source {
	for i := range d.Sources {
		if d.Sources[i].ID == id {
			return &d.Sources[i]
		}
	}
	return nil
}

func findSourceField(d *models.Dataset, id int64) *models.SourceField {
	for i := range d.SourceFields {
		if d.SourceFields[i].ID == id {
			return &d.SourceFields[i]
		}
	}
	return nil
}

func findMetric(d *models.Dataset, id int64) *models.Metric {
	for i := range d.Metrics {
		if d.Metrics[i].ID == id {
			return &d.Metrics[i]
		}
	}
	return nil
}

func findDefinition(d *models.Dataset, id int64) *models.Definition {
	for i := range d.Definitions {
		if d.Definitions[i].ID == id {
			return &d.Definitions[i]
		}
	}
	return nil
}

func findDashboard(d *models.Dataset, id int64) *models.Dashboard {
	for i := range d.Dashboards {
		if d.Dashboards[i].ID == id {
			return &d.Dashboards[i]
		}
	}
	return nil
}

func findWidget(d *models.Dataset, id int64) *models.Widget {
	for i := range d.Widgets {
		if d.Widgets[i].ID == id {
			return &d.Widgets[i]
		}
	}
	return nil
}

func validateSource(d *models.Dataset, src models.Source, selfID int64) error {
	if strings.TrimSpace(src.Code) == "" {
		return validationErrorf("source code is required")
	}
	for _, other := range d.Sources {
		if other.ID == selfID {
			continue
		}
		if other.Code == src.Code && int64PtrEqual(other.EmpresaID, src.EmpresaID) {
			return validationErrorf("source code %q already exists for this empresa", src.Code)
		}
	}
	return nil
}

func validateSourceField(d *models.Dataset, field models.SourceField, selfID int64) error {
	if findSource(d, field.SourceID) == nil {
		return validationErrorf("source %d does not exist", field.SourceID)
	}
	if strings.TrimSpace(field.Name) == "" {
		return validationErrorf("field name is required")
	}
	switch field.FieldType {
	case models.FieldTypeNumeric, models.FieldTypeDate, models.FieldTypeBoolean, models.FieldTypeText:
	default:
		return validationErrorf("unknown field type %q", field.FieldType)
	}
	for _, other := range d.SourceFields {
		if other.ID == selfID {
			continue
		}
		if other.SourceID == field.SourceID && other.Name == field.Name {
			return validationErrorf("field %q already exists on source %d", field.Name, field.SourceID)
		}
	}
	return nil
}

func validateMetric(d *models.Dataset, metric models.Metric, selfID int64) error {
	if strings.TrimSpace(metric.Code) == "" {
		return validationErrorf("metric code is required")
	}
	src := findSource(d, metric.SourceID)
	if src == nil {
		return validationErrorf("source %d does not exist", metric.SourceID)
	}
	if !int64PtrEqual(src.EmpresaID, metric.EmpresaID) && src.EmpresaID != nil {
		return validationErrorf("metric and source belong to different empresas")
	}
	for _, other := range d.Metrics {
		if other.ID == selfID {
			continue
		}
		if other.Code == metric.Code && int64PtrEqual(other.EmpresaID, metric.EmpresaID) {
			return validationErrorf("metric code %q already exists for this empresa", metric.Code)
		}
	}

	switch metric.Aggregation {
	case models.AggCount:
		if metric.ValueFieldID != nil {
			return validationErrorf("count aggregation does not take a value field")
		}
	case models.AggSum, models.AggAvg, models.AggMax, models.AggMin, models.AggDistinctCount:
		if metric.ValueFieldID == nil {
			return validationErrorf("%s aggregation requires a value field", metric.Aggregation)
		}
	default:
		return validationErrorf("unknown aggregation %q", metric.Aggregation)
	}

	if metric.ValueFieldID != nil {
		field := findSourceField(d, *metric.ValueFieldID)
		if field == nil || field.SourceID != metric.SourceID {
			return validationErrorf("value field does not belong to source %d", metric.SourceID)
		}
		if metric.Aggregation != models.AggDistinctCount && field.FieldType != models.FieldTypeNumeric {
			return validationErrorf("%s aggregation requires a numeric value field", metric.Aggregation)
		}
	}
	if metric.DateFieldID != nil {
		field := findSourceField(d, *metric.DateFieldID)
		if field == nil || field.SourceID != metric.SourceID {
			return validationErrorf("date field does not belong to source %d", metric.SourceID)
		}
		if field.FieldType != models.FieldTypeDate {
			return validationErrorf("date field must be of type date")
		}
	}

	if metric.TimeWindow == "custom" {
		start, err1 := time.Parse("2006-01-02", metric.CustomStart)
		end, err2 := time.Parse("2006-01-02", metric.CustomEnd)
		if err1 != nil || err2 != nil {
			return validationErrorf("custom window requires custom_start and custom_end as YYYY-MM-DD")
		}
		if end.Before(start) {
			return validationErrorf("custom window end precedes start")
		}
	} else if metric.CustomStart != "" || metric.CustomEnd != "" {
		return validationErrorf("custom bounds only apply to the custom time window")
	}
	return nil
}

func validateMetricFilter(d *models.Dataset, filter models.MetricFilter) error {
	metric := findMetric(d, filter.MetricID)
	if metric == nil {
		return validationErrorf("metric %d does not exist", filter.MetricID)
	}
	if strings.TrimSpace(filter.Operator) == "" {
		return validationErrorf("filter operator is required")
	}
	if filter.FieldID == nil {
		return validationErrorf("metric filter requires a field")
	}
	field := findSourceField(d, *filter.FieldID)
	if field == nil || field.SourceID != metric.SourceID {
		return validationErrorf("filter field does not belong to the metric's source")
	}
	switch filter.Connector {
	case "", "and", "or":
	default:
		return validationErrorf("unknown connector %q", filter.Connector)
	}
	return nil
}

func validateMetricDimension(d *models.Dataset, dim models.MetricDimension) error {
	metric := findMetric(d, dim.MetricID)
	if metric == nil {
		return validationErrorf("metric %d does not exist", dim.MetricID)
	}
	field := findSourceField(d, dim.FieldID)
	if field == nil || field.SourceID != metric.SourceID {
		return validationErrorf("dimension field does not belong to the metric's source")
	}
	if dim.Limit < 0 {
		return validationErrorf("dimension limit cannot be negative")
	}
	return nil
}

func validateDefinition(d *models.Dataset, def models.Definition, selfID int64) error {
	if strings.TrimSpace(def.Code) == "" {
		return validationErrorf("definition code is required")
	}
	for _, other := range d.Definitions {
		if other.ID == selfID {
			continue
		}
		if other.Code == def.Code && int64PtrEqual(other.EmpresaID, def.EmpresaID) {
			return validationErrorf("definition code %q already exists for this empresa", def.Code)
		}
	}

	switch def.CalculationType {
	case models.CalculationMetric:
		if def.MetricID == nil {
			return validationErrorf("metric definition requires a metric")
		}
		if strings.TrimSpace(def.Expression) != "" {
			return validationErrorf("metric definition cannot carry an expression")
		}
	case models.CalculationFormula:
		if strings.TrimSpace(def.Expression) == "" {
			return validationErrorf("formula definition requires an expression")
		}
		if def.MetricID != nil {
			return validationErrorf("formula definition cannot reference a direct metric")
		}
	default:
		return validationErrorf("unknown calculation type %q", def.CalculationType)
	}

	if def.MetricID != nil {
		metric := findMetric(d, *def.MetricID)
		if metric == nil {
			return validationErrorf("metric %d does not exist", *def.MetricID)
		}
		if metric.EmpresaID != nil && !int64PtrEqual(metric.EmpresaID, def.EmpresaID) {
			return validationErrorf("definition and metric belong to different empresas")
		}
	}
	if def.BaselineMetricID != nil {
		baseline := findMetric(d, *def.BaselineMetricID)
		if baseline == nil {
			return validationErrorf("baseline metric %d does not exist", *def.BaselineMetricID)
		}
		if baseline.EmpresaID != nil && !int64PtrEqual(baseline.EmpresaID, def.EmpresaID) {
			return validationErrorf("definition and baseline metric belong to different empresas")
		}
	}
	return nil
}

func validateDefinitionMetric(d *models.Dataset, component models.DefinitionMetric) error {
	def := findDefinition(d, component.DefinitionID)
	if def == nil {
		return validationErrorf("definition %d does not exist", component.DefinitionID)
	}
	if def.CalculationType != models.CalculationFormula {
		return validationErrorf("components only apply to formula definitions")
	}
	if findMetric(d, component.MetricID) == nil {
		return validationErrorf("metric %d does not exist", component.MetricID)
	}
	if strings.TrimSpace(component.Alias) == "" {
		return validationErrorf("component alias is required")
	}
	for _, other := range d.DefinitionMetrics {
		if other.ID == component.ID {
			continue
		}
		if other.DefinitionID == component.DefinitionID && other.Alias == component.Alias {
			return validationErrorf("alias %q already used in definition %d", component.Alias, component.DefinitionID)
		}
	}
	return nil
}

func validateDashboard(d *models.Dataset, dashboard models.Dashboard, selfID int64) error {
	if strings.TrimSpace(dashboard.Slug) == "" {
		return validationErrorf("dashboard slug is required")
	}
	for _, other := range d.Dashboards {
		if other.ID == selfID {
			continue
		}
		if other.Slug == dashboard.Slug && int64PtrEqual(other.EmpresaID, dashboard.EmpresaID) {
			return validationErrorf("dashboard slug %q already exists for this empresa", dashboard.Slug)
		}
	}
	return nil
}

func validateWidget(d *models.Dataset, widget models.Widget) error {
	dashboard := findDashboard(d, widget.DashboardID)
	if dashboard == nil {
		return validationErrorf("dashboard %d does not exist", widget.DashboardID)
	}
	def := findDefinition(d, widget.DefinitionID)
	if def == nil {
		return validationErrorf("definition %d does not exist", widget.DefinitionID)
	}
	if dashboard.EmpresaID != nil && def.EmpresaID != nil && !int64PtrEqual(dashboard.EmpresaID, def.EmpresaID) {
		return validationErrorf("widget's dashboard and definition belong to different empresas")
	}
	return nil
}

func validateWidgetFilter(d *models.Dataset, filter models.WidgetFilter) error {
	if findWidget(d, filter.WidgetID) == nil {
		return validationErrorf("widget %d does not exist", filter.WidgetID)
	}
	if strings.TrimSpace(filter.Operator) == "" {
		return validationErrorf("filter operator is required")
	}
	if filter.FieldID == nil && strings.TrimSpace(filter.FieldName) == "" {
		return validationErrorf("widget filter requires a field id or field name")
	}
	if filter.FieldID != nil && findSourceField(d, *filter.FieldID) == nil {
		return validationErrorf("field %d does not exist", *filter.FieldID)
	}
	switch filter.Connector {
	case "", "and", "or":
	default:
		return validationErrorf("unknown connector %q", filter.Connector)
	}
	return nil
}
