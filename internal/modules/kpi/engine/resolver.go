package engine

import (
	"sort"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Resolver computes metric and widget results against one read-only catalog
// snapshot. All lookups are pre-indexed at construction; resolution itself
// is pure and safe to run concurrently over the same snapshot.
type Resolver struct {
	snap *models.Dataset

	sourcesByID     map[int64]*models.Source
	fieldsBySource  map[int64][]*models.SourceField
	metricsByID     map[int64]*models.Metric
	filtersByMetric map[int64][]models.MetricFilter
	dimsByMetric    map[int64][]models.MetricDimension
}

// NewResolver indexes a catalog snapshot for resolution.
func NewResolver(snap *models.Dataset) *Resolver {
	if snap == nil {
		snap = models.NewDataset()
	}
	r := &Resolver{
		snap:            snap,
		sourcesByID:     map[int64]*models.Source{},
		fieldsBySource:  map[int64][]*models.SourceField{},
		metricsByID:     map[int64]*models.Metric{},
		filtersByMetric: map[int64][]models.MetricFilter{},
		dimsByMetric:    map[int64][]models.MetricDimension{},
	}
	for i := range snap.Sources {
		src := &snap.Sources[i]
		r.sourcesByID[src.ID] = src
	}
	for i := range snap.SourceFields {
		field := &snap.SourceFields[i]
		r.fieldsBySource[field.SourceID] = append(r.fieldsBySource[field.SourceID], field)
	}
	for i := range snap.Metrics {
		metric := &snap.Metrics[i]
		r.metricsByID[metric.ID] = metric
	}
	for _, filter := range snap.MetricFilters {
		r.filtersByMetric[filter.MetricID] = append(r.filtersByMetric[filter.MetricID], filter)
	}
	for _, dim := range snap.MetricDimensions {
		r.dimsByMetric[dim.MetricID] = append(r.dimsByMetric[dim.MetricID], dim)
	}
	return r
}

// Metric returns the snapshot metric with the given id, or nil.
func (r *Resolver) Metric(id int64) *models.Metric {
	return r.metricsByID[id]
}

func emptyMetricResult(metric *models.Metric) *models.MetricResult {
	return &models.MetricResult{
		Metric:    metric,
		Records:   []models.Record{},
		Breakdown: []models.Point{},
		Series:    []models.Point{},
	}
}

// ResolveMetric runs the full resolution pipeline for one metric: sample
// load, base filters, merged predicate filters, time window scoping,
// aggregation, period-over-period comparison and dimension bucketing.
// A nil metric resolves to the empty result shape, never an error.
func (r *Resolver) ResolveMetric(metric *models.Metric, opts *models.ResolveOptions) *models.MetricResult {
	if metric == nil {
		return emptyMetricResult(nil)
	}
	if opts == nil {
		opts = &models.ResolveOptions{}
	}

	source := r.sourcesByID[metric.SourceID]
	fields := r.fieldsBySource[metric.SourceID]
	fieldsByID := make(map[int64]*models.SourceField, len(fields))
	fieldsByName := make(map[string]*models.SourceField, len(fields))
	for _, field := range fields {
		fieldsByID[field.ID] = field
		fieldsByName[field.Name] = field
	}

	var records []models.Record
	if source != nil {
		records = r.snap.SourceSamples[source.SampleKey()]
		records = applyBaseFilters(records, source.BaseFilters)
	}

	metricFilters := opts.LocalFilters
	if metricFilters == nil {
		stored := r.filtersByMetric[metric.ID]
		metricFilters = make([]models.FilterRule, 0, len(stored))
		for _, filter := range stored {
			metricFilters = append(metricFilters, filter.Rule())
		}
	}
	allFilters := make([]models.FilterRule, 0, len(metricFilters)+len(opts.WidgetFilters)+2)
	allFilters = append(allFilters, metricFilters...)
	allFilters = append(allFilters, opts.WidgetFilters...)
	allFilters = append(allFilters, buildContextFilters(opts.Context, fields)...)

	recordsWithoutTime := ApplyFilters(records, allFilters, fieldsByID, fieldsByName)

	var dateField *models.SourceField
	if metric.DateFieldID != nil {
		dateField = fieldsByID[*metric.DateFieldID]
	}
	resolvedRange, windowKey := ResolveTimeSettings(metric, opts.Widget, opts.Context)

	filteredRecords := recordsWithoutTime
	if dateField != nil && resolvedRange.Valid() {
		filteredRecords = filterByRange(recordsWithoutTime, dateField, resolvedRange)
	}

	var valueField *models.SourceField
	if metric.ValueFieldID != nil {
		valueField = fieldsByID[*metric.ValueFieldID]
	}
	total := Aggregate(filteredRecords, metric.Aggregation, valueField)

	var previousTotal *float64
	if metric.CompareAgainstPrevious && resolvedRange.Valid() && dateField != nil {
		previousRange := ShiftBack(resolvedRange)
		previousRecords := filterByRange(recordsWithoutTime, dateField, previousRange)
		prev := Aggregate(previousRecords, metric.Aggregation, valueField)
		previousTotal = &prev
	}

	dimensions := opts.LocalDimensions
	if dimensions == nil {
		dimensions = r.dimsByMetric[metric.ID]
	}
	primary := primaryDimension(dimensions)

	breakdown := []models.Point{}
	series := []models.Point{}
	if primary != nil {
		groups := Bucket(filteredRecords, fieldsByID[primary.FieldID], primary.Granularity, valueField, metric.Aggregation, primary.Limit)
		breakdown = groups
		series = groups
	} else if dateField != nil {
		series = Bucket(filteredRecords, dateField, GranularityDay, valueField, metric.Aggregation, 0)
	}

	var delta, deltaPct *float64
	if previousTotal != nil {
		d := total - *previousTotal
		delta = &d
		if *previousTotal != 0 {
			pct := d / *previousTotal
			deltaPct = &pct
		}
	}

	if filteredRecords == nil {
		filteredRecords = []models.Record{}
	}
	return &models.MetricResult{
		Metric:        metric,
		Records:       filteredRecords,
		Total:         total,
		PreviousTotal: previousTotal,
		Delta:         delta,
		DeltaPct:      deltaPct,
		Breakdown:     breakdown,
		Series:        series,
		Range:         models.RangeResult{Start: resolvedRange.Start, End: resolvedRange.End, WindowKey: windowKey},
	}
}

// ResolveWidget resolves a composed widget model: a direct metric definition
// formats one metric result; a formula definition resolves every component,
// evaluates the expression over the alias scope and surfaces the first
// component's chartable data.
func (r *Resolver) ResolveWidget(model *models.WidgetModel, ctx *models.ResolveContext) *models.WidgetResult {
	if model == nil || model.Definition == nil {
		var widget *models.Widget
		if model != nil {
			widget = model.Widget
		}
		return &models.WidgetResult{
			Widget:    widget,
			Breakdown: []models.Point{},
			Series:    []models.Point{},
			Error:     "definition not found",
		}
	}
	definition := model.Definition

	if definition.CalculationType == models.CalculationMetric {
		return r.resolveMetricWidget(model, ctx)
	}
	return r.resolveFormulaWidget(model, ctx)
}

func (r *Resolver) resolveMetricWidget(model *models.WidgetModel, ctx *models.ResolveContext) *models.WidgetResult {
	definition := model.Definition

	// widget filters with a target alias apply to formula components only
	metricFilters := make([]models.FilterRule, 0, len(model.Filters))
	for _, filter := range model.Filters {
		if filter.TargetAlias == "" {
			metricFilters = append(metricFilters, filter.Rule())
		}
	}

	result := r.ResolveMetric(model.Metric, &models.ResolveOptions{
		Widget:        model.Widget,
		WidgetFilters: metricFilters,
		Context:       ctx,
	})

	var baseline *models.MetricResult
	if definition.BaselineMetricID != nil {
		baseline = r.ResolveMetric(r.metricsByID[*definition.BaselineMetricID], &models.ResolveOptions{
			WidgetFilters: metricFilters,
			Context:       ctx,
		})
	}

	summary := &models.WidgetSummary{
		Value:          result.Total,
		FormattedValue: FormatValue(&result.Total, definition.FormatType, definition.ExtraConfig),
		PreviousValue:  result.PreviousTotal,
		Delta:          result.Delta,
		DeltaPct:       result.DeltaPct,
	}
	if result.PreviousTotal != nil {
		formatted := FormatValue(result.PreviousTotal, definition.FormatType, definition.ExtraConfig)
		summary.PreviousFormatted = &formatted
	}
	if baseline != nil {
		summary.BaselineValue = &baseline.Total
		formatted := FormatValue(&baseline.Total, definition.FormatType, definition.ExtraConfig)
		summary.BaselineFormatted = &formatted
	}

	return &models.WidgetResult{
		Widget:     model.Widget,
		Definition: definition,
		Metric:     model.Metric,
		Result:     result,
		Summary:    summary,
		Breakdown:  result.Breakdown,
		Series:     result.Series,
	}
}

func (r *Resolver) resolveFormulaWidget(model *models.WidgetModel, ctx *models.ResolveContext) *models.WidgetResult {
	definition := model.Definition

	components := make([]models.ComponentResult, 0, len(model.Components))
	scope := make(map[string]float64, len(model.Components))
	for _, component := range model.Components {
		target := r.metricsByID[component.MetricID]
		componentFilters := make([]models.FilterRule, 0)
		for _, filter := range model.Filters {
			if filter.TargetAlias == component.Alias {
				componentFilters = append(componentFilters, filter.Rule())
			}
		}
		result := r.ResolveMetric(target, &models.ResolveOptions{
			Widget:        model.Widget,
			WidgetFilters: componentFilters,
			Context:       ctx,
		})
		components = append(components, models.ComponentResult{Alias: component.Alias, Metric: target, Result: result})
		scope[component.Alias] = result.Total
	}

	formulaValue := EvaluateOrZero(definition.Expression, scope)

	var baseline *models.MetricResult
	if definition.BaselineMetricID != nil {
		baseline = r.ResolveMetric(r.metricsByID[*definition.BaselineMetricID], &models.ResolveOptions{
			Widget:  model.Widget,
			Context: ctx,
		})
	}

	summary := &models.WidgetSummary{
		Value:          formulaValue,
		FormattedValue: FormatValue(&formulaValue, definition.FormatType, definition.ExtraConfig),
	}
	if baseline != nil {
		summary.BaselineValue = &baseline.Total
		formatted := FormatValue(&baseline.Total, definition.FormatType, definition.ExtraConfig)
		summary.BaselineFormatted = &formatted
	}

	breakdown := []models.Point{}
	series := []models.Point{}
	if len(components) > 0 {
		breakdown = components[0].Result.Breakdown
		series = components[0].Result.Series
	}

	return &models.WidgetResult{
		Widget:     model.Widget,
		Definition: definition,
		Components: components,
		Summary:    summary,
		Breakdown:  breakdown,
		Series:     series,
	}
}

// applyBaseFilters keeps records matching a source's static predicate map.
// A slice value means set membership, anything else exact match.
func applyBaseFilters(records []models.Record, baseFilters map[string]any) []models.Record {
	if len(baseFilters) == 0 {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		keep := true
		for key, expected := range baseFilters {
			value := GetValue(record, key)
			if members, ok := asSlice(expected); ok {
				if !containsValue(members, value) {
					keep = false
					break
				}
			} else if !equalValues(value, expected) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, record)
		}
	}
	return out
}

// buildContextFilters derives extra predicates from the resolve context: the
// active branch scope plus any ad-hoc filters resolvable against the
// source's fields.
func buildContextFilters(ctx *models.ResolveContext, fields []*models.SourceField) []models.FilterRule {
	if ctx == nil {
		return nil
	}
	filters := make([]models.FilterRule, 0)
	if ctx.Sucursal != nil {
		for _, field := range fields {
			if field.Name == "sucursal" {
				id := field.ID
				filters = append(filters, models.FilterRule{FieldID: &id, Operator: "eq", Value: ctx.Sucursal, Connector: "and"})
				break
			}
		}
	}
	for _, filter := range ctx.Filters {
		if filter.FieldID == nil && filter.FieldName == "" {
			continue
		}
		if filter.Operator == "" {
			filter.Operator = "eq"
		}
		if filter.Connector == "" {
			filter.Connector = "and"
		}
		filters = append(filters, filter)
	}
	return filters
}

func filterByRange(records []models.Record, dateField *models.SourceField, r Range) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		raw := GetValue(record, dateField.Name)
		if raw == nil {
			continue
		}
		t, ok := toTime(raw)
		if !ok {
			continue
		}
		if r.Contains(t) {
			out = append(out, record)
		}
	}
	return out
}

// primaryDimension picks the configured dimension with the lowest order.
func primaryDimension(dimensions []models.MetricDimension) *models.MetricDimension {
	if len(dimensions) == 0 {
		return nil
	}
	sorted := make([]models.MetricDimension, len(dimensions))
	copy(sorted, dimensions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return &sorted[0]
}
