package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

func i64(v int64) *int64 { return &v }

func resolverSnapshot() *models.Dataset {
	d := models.NewDataset()
	d.Sources = []models.Source{
		{ID: 1, EmpresaID: i64(1), Code: "ventas", Name: "Ventas"},
	}
	d.SourceFields = []models.SourceField{
		{ID: 1, SourceID: 1, Name: "fecha", FieldType: models.FieldTypeDate},
		{ID: 2, SourceID: 1, Name: "total", FieldType: models.FieldTypeNumeric},
		{ID: 3, SourceID: 1, Name: "sucursal", FieldType: models.FieldTypeText},
	}
	d.Metrics = []models.Metric{
		{ID: 1, EmpresaID: i64(1), Code: "ventas-totales", SourceID: 1, Aggregation: models.AggSum,
			ValueFieldID: i64(2), DateFieldID: i64(1), TimeWindow: WindowThisMonth, CompareAgainstPrevious: true},
		{ID: 2, EmpresaID: i64(1), Code: "tickets", SourceID: 1, Aggregation: models.AggCount,
			DateFieldID: i64(1), TimeWindow: WindowThisMonth},
	}
	d.SourceSamples["ventas"] = []models.Record{
		{"fecha": "2026-03-05", "total": 100.0, "sucursal": "Centro"},
		{"fecha": "2026-03-10", "total": 200.0, "sucursal": "Norte"},
		{"fecha": "2026-03-15", "total": 300.0, "sucursal": "Centro"},
		{"fecha": "2026-02-10", "total": 50.0, "sucursal": "Centro"},
		{"fecha": "2026-02-20", "total": 150.0, "sucursal": "Norte"},
	}
	return d
}

func pinnedCtx() *models.ResolveContext {
	now := testNow
	return &models.ResolveContext{Now: &now}
}

func TestResolveMetricSumWithComparison(t *testing.T) {
	r := NewResolver(resolverSnapshot())

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 600.0, result.Total)
	require.NotNil(t, result.PreviousTotal)
	assert.Equal(t, 200.0, *result.PreviousTotal)
	require.NotNil(t, result.Delta)
	assert.Equal(t, 400.0, *result.Delta)
	require.NotNil(t, result.DeltaPct)
	assert.InDelta(t, 2.0, *result.DeltaPct, 1e-9)
	assert.Len(t, result.Records, 3)
	assert.Equal(t, WindowThisMonth, result.Range.WindowKey)
	require.NotNil(t, result.Range.Start)
	assert.Equal(t, 1, result.Range.Start.Day())
}

func TestResolveMetricWithoutComparison(t *testing.T) {
	r := NewResolver(resolverSnapshot())

	result := r.ResolveMetric(r.Metric(2), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 3.0, result.Total)
	assert.Nil(t, result.PreviousTotal)
	assert.Nil(t, result.Delta)
	assert.Nil(t, result.DeltaPct)
}

func TestResolveMetricDeltaPctNilOnZeroPrevious(t *testing.T) {
	snap := resolverSnapshot()
	// drop the february records so the previous interval aggregates to 0
	snap.SourceSamples["ventas"] = snap.SourceSamples["ventas"][:3]
	r := NewResolver(snap)

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 600.0, result.Total)
	require.NotNil(t, result.PreviousTotal)
	assert.Equal(t, 0.0, *result.PreviousTotal)
	require.NotNil(t, result.Delta)
	assert.Nil(t, result.DeltaPct)
}

func TestResolveMetricWidgetWindowOverrideWins(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	widget := &models.Widget{TimeWindowOverride: WindowLast7Days}
	ctx := pinnedCtx()
	ctx.TimeWindow = WindowToday

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Widget: widget, Context: ctx})
	// last_7_days from Mar 18 only reaches the Mar 15 ticket
	assert.Equal(t, 300.0, result.Total)
	assert.Equal(t, WindowLast7Days, result.Range.WindowKey)
}

func TestResolveMetricSucursalScope(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	ctx := pinnedCtx()
	ctx.Sucursal = "Centro"

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: ctx})
	assert.Equal(t, 400.0, result.Total)
}

func TestResolveMetricContextFilters(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	ctx := pinnedCtx()
	ctx.Filters = []models.FilterRule{
		{FieldName: "total", Operator: "gte", Value: 200},
	}

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: ctx})
	assert.Equal(t, 500.0, result.Total)
}

func TestResolveMetricLocalFiltersReplaceStored(t *testing.T) {
	snap := resolverSnapshot()
	snap.MetricFilters = []models.MetricFilter{
		{ID: 1, MetricID: 1, FieldID: i64(3), Operator: "eq", Value: "Centro", Connector: "and"},
	}
	r := NewResolver(snap)

	stored := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 400.0, stored.Total)

	// an empty non-nil slice suppresses the stored filters
	unfiltered := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx(), LocalFilters: []models.FilterRule{}})
	assert.Equal(t, 600.0, unfiltered.Total)
}

func TestResolveMetricDimensionBreakdown(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	dims := []models.MetricDimension{{MetricID: 1, FieldID: 3, Granularity: GranularityExact}}

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx(), LocalDimensions: dims})
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, models.Point{Label: "Centro", Value: 400}, result.Breakdown[0])
	assert.Equal(t, models.Point{Label: "Norte", Value: 200}, result.Breakdown[1])
	// with a dimension configured, series mirrors the breakdown
	assert.Equal(t, result.Breakdown, result.Series)
}

func TestResolveMetricDefaultDailySeries(t *testing.T) {
	r := NewResolver(resolverSnapshot())

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	require.Len(t, result.Series, 3)
	assert.Equal(t, "2026-03-05", result.Series[0].Label)
	assert.Equal(t, "2026-03-15", result.Series[2].Label)
}

func TestResolveMetricNilMetric(t *testing.T) {
	r := NewResolver(resolverSnapshot())

	result := r.ResolveMetric(r.Metric(99), nil)
	assert.Nil(t, result.Metric)
	assert.Equal(t, 0.0, result.Total)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Breakdown)
}

func TestResolveMetricBaseFilters(t *testing.T) {
	snap := resolverSnapshot()
	snap.Sources[0].BaseFilters = map[string]any{"sucursal": []any{"Centro"}}
	r := NewResolver(snap)

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 400.0, result.Total)
}

func TestResolveMetricSampleKeyOverride(t *testing.T) {
	snap := resolverSnapshot()
	snap.Sources[0].Metadata = map[string]any{"sample_records": "ventas_v2"}
	snap.SourceSamples["ventas_v2"] = []models.Record{
		{"fecha": "2026-03-01", "total": 42.0, "sucursal": "Centro"},
	}
	r := NewResolver(snap)

	result := r.ResolveMetric(r.Metric(1), &models.ResolveOptions{Context: pinnedCtx()})
	assert.Equal(t, 42.0, result.Total)
}

func TestResolveWidgetMetricDefinition(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	model := &models.WidgetModel{
		Widget: &models.Widget{ID: 1, DefinitionID: 1},
		Definition: &models.Definition{
			ID: 1, CalculationType: models.CalculationMetric, MetricID: i64(1),
			FormatType: FormatTypeCurrency,
		},
		Metric: &models.Metric{ID: 1, SourceID: 1, Aggregation: models.AggSum,
			ValueFieldID: i64(2), DateFieldID: i64(1), TimeWindow: WindowThisMonth, CompareAgainstPrevious: true},
	}

	result := r.ResolveWidget(model, pinnedCtx())
	require.NotNil(t, result.Summary)
	assert.Equal(t, 600.0, result.Summary.Value)
	assert.Equal(t, "$600.00", result.Summary.FormattedValue)
	require.NotNil(t, result.Summary.PreviousValue)
	assert.Equal(t, 200.0, *result.Summary.PreviousValue)
	require.NotNil(t, result.Summary.PreviousFormatted)
	assert.Equal(t, "$200.00", *result.Summary.PreviousFormatted)
	assert.Empty(t, result.Error)
}

func TestResolveWidgetTargetAliasScoping(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	model := &models.WidgetModel{
		Widget: &models.Widget{ID: 2},
		Definition: &models.Definition{
			ID: 2, CalculationType: models.CalculationFormula,
			Expression: "ventas / tickets", FormatType: FormatTypeValue,
		},
		Components: []models.DefinitionMetric{
			{ID: 1, DefinitionID: 2, MetricID: 1, Alias: "ventas"},
			{ID: 2, DefinitionID: 2, MetricID: 2, Alias: "tickets"},
		},
		Filters: []models.WidgetFilter{
			{ID: 1, WidgetID: 2, FieldID: i64(3), Operator: "eq", Value: "Centro", Connector: "and", TargetAlias: "ventas"},
		},
	}

	result := r.ResolveWidget(model, pinnedCtx())
	require.NotNil(t, result.Summary)
	require.Len(t, result.Components, 2)
	// the Centro filter narrows only the ventas component; tickets still
	// counts all three march records
	assert.Equal(t, 400.0, result.Components[0].Result.Total)
	assert.Equal(t, 3.0, result.Components[1].Result.Total)
	assert.InDelta(t, 400.0/3, result.Summary.Value, 1e-9)
}

func TestResolveWidgetFormulaSurfacesFirstComponentSeries(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	model := &models.WidgetModel{
		Definition: &models.Definition{ID: 2, CalculationType: models.CalculationFormula, Expression: "ventas * 1"},
		Components: []models.DefinitionMetric{
			{ID: 1, DefinitionID: 2, MetricID: 1, Alias: "ventas"},
		},
	}

	result := r.ResolveWidget(model, pinnedCtx())
	assert.Len(t, result.Series, 3)
	assert.Equal(t, result.Components[0].Result.Series, result.Series)
}

func TestResolveWidgetBrokenFormulaDegradesToZero(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	model := &models.WidgetModel{
		Definition: &models.Definition{ID: 2, CalculationType: models.CalculationFormula, Expression: "ventas / desconocido"},
		Components: []models.DefinitionMetric{
			{ID: 1, DefinitionID: 2, MetricID: 1, Alias: "ventas"},
		},
	}

	result := r.ResolveWidget(model, pinnedCtx())
	require.NotNil(t, result.Summary)
	assert.Equal(t, 0.0, result.Summary.Value)
}

func TestResolveWidgetBaseline(t *testing.T) {
	r := NewResolver(resolverSnapshot())
	model := &models.WidgetModel{
		Definition: &models.Definition{
			ID: 1, CalculationType: models.CalculationMetric, MetricID: i64(1),
			BaselineMetricID: i64(2), FormatType: FormatTypeValue,
		},
		Metric: &models.Metric{ID: 1, SourceID: 1, Aggregation: models.AggSum,
			ValueFieldID: i64(2), DateFieldID: i64(1), TimeWindow: WindowThisMonth},
	}

	result := r.ResolveWidget(model, pinnedCtx())
	require.NotNil(t, result.Summary)
	require.NotNil(t, result.Summary.BaselineValue)
	assert.Equal(t, 3.0, *result.Summary.BaselineValue)
	require.NotNil(t, result.Summary.BaselineFormatted)
	assert.Equal(t, "3", *result.Summary.BaselineFormatted)
}

func TestResolveWidgetMissingDefinition(t *testing.T) {
	r := NewResolver(resolverSnapshot())

	result := r.ResolveWidget(&models.WidgetModel{Widget: &models.Widget{ID: 9}}, nil)
	assert.Equal(t, "definition not found", result.Error)
	assert.NotNil(t, result.Widget)

	nilResult := r.ResolveWidget(nil, nil)
	assert.Equal(t, "definition not found", nilResult.Error)
}
