package store

import (
	"fmt"
	"time"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// SeedDataset builds the demo catalog plus sample records. The output is
// deterministic for a given now: record dates are laid out backwards from
// now's day so symbolic windows always land on data.
func SeedDataset(now time.Time) *models.Dataset {
	d := models.NewDataset()
	empresa := int64Ptr(1)

	d.Sources = []models.Source{
		{ID: 1, EmpresaID: empresa, Code: "ventas", Name: "Ventas", Description: "Tickets de venta por sucursal", DefaultDateFieldName: "fecha"},
		{ID: 2, EmpresaID: empresa, Code: "egresos", Name: "Egresos", Description: "Gastos operativos", DefaultDateFieldName: "fecha"},
		{ID: 3, EmpresaID: empresa, Code: "membresias", Name: "Membresías", DefaultDateFieldName: "fecha_inicio"},
	}

	d.SourceFields = []models.SourceField{
		{ID: 1, SourceID: 1, Name: "fecha", Label: "Fecha", FieldType: models.FieldTypeDate, IsDefault: true},
		{ID: 2, SourceID: 1, Name: "total", Label: "Total", FieldType: models.FieldTypeNumeric, AllowedAggregations: []string{models.AggSum, models.AggAvg, models.AggMax, models.AggMin}},
		{ID: 3, SourceID: 1, Name: "sucursal", Label: "Sucursal", FieldType: models.FieldTypeText},
		{ID: 4, SourceID: 1, Name: "metodo_pago", Label: "Método de pago", FieldType: models.FieldTypeText},
		{ID: 5, SourceID: 1, Name: "cliente__id", Label: "Cliente", FieldType: models.FieldTypeNumeric, AllowedAggregations: []string{models.AggDistinctCount}},
		{ID: 6, SourceID: 1, Name: "cliente__segmento", Label: "Segmento", FieldType: models.FieldTypeText},
		{ID: 7, SourceID: 1, Name: "cancelada", Label: "Cancelada", FieldType: models.FieldTypeBoolean},
		{ID: 8, SourceID: 2, Name: "fecha", Label: "Fecha", FieldType: models.FieldTypeDate, IsDefault: true},
		{ID: 9, SourceID: 2, Name: "monto", Label: "Monto", FieldType: models.FieldTypeNumeric, AllowedAggregations: []string{models.AggSum, models.AggAvg}},
		{ID: 10, SourceID: 2, Name: "categoria", Label: "Categoría", FieldType: models.FieldTypeText},
		{ID: 11, SourceID: 2, Name: "sucursal", Label: "Sucursal", FieldType: models.FieldTypeText},
		{ID: 12, SourceID: 3, Name: "fecha_inicio", Label: "Fecha de inicio", FieldType: models.FieldTypeDate, IsDefault: true},
		{ID: 13, SourceID: 3, Name: "activa", Label: "Activa", FieldType: models.FieldTypeBoolean},
		{ID: 14, SourceID: 3, Name: "plan", Label: "Plan", FieldType: models.FieldTypeText},
		{ID: 15, SourceID: 3, Name: "socio_id", Label: "Socio", FieldType: models.FieldTypeNumeric, AllowedAggregations: []string{models.AggDistinctCount}},
	}

	d.Metrics = []models.Metric{
		{ID: 1, EmpresaID: empresa, Code: "ventas-totales", Name: "Ventas totales", SourceID: 1, Aggregation: models.AggSum, ValueFieldID: int64Ptr(2), DateFieldID: int64Ptr(1), TimeWindow: "this_month", CompareAgainstPrevious: true},
		{ID: 2, EmpresaID: empresa, Code: "num-tickets", Name: "Número de tickets", SourceID: 1, Aggregation: models.AggCount, DateFieldID: int64Ptr(1), TimeWindow: "this_month", CompareAgainstPrevious: true},
		{ID: 3, EmpresaID: empresa, Code: "ticket-promedio", Name: "Ticket promedio", SourceID: 1, Aggregation: models.AggAvg, ValueFieldID: int64Ptr(2), DateFieldID: int64Ptr(1), TimeWindow: "last_30_days"},
		{ID: 4, EmpresaID: empresa, Code: "clientes-unicos", Name: "Clientes únicos", SourceID: 1, Aggregation: models.AggDistinctCount, ValueFieldID: int64Ptr(5), DateFieldID: int64Ptr(1), TimeWindow: "this_month"},
		{ID: 5, EmpresaID: empresa, Code: "egresos-totales", Name: "Egresos totales", SourceID: 2, Aggregation: models.AggSum, ValueFieldID: int64Ptr(9), DateFieldID: int64Ptr(8), TimeWindow: "this_month"},
		{ID: 6, EmpresaID: empresa, Code: "membresias-activas", Name: "Membresías activas", SourceID: 3, Aggregation: models.AggCount, DateFieldID: int64Ptr(12), TimeWindow: "this_year"},
	}

	d.MetricFilters = []models.MetricFilter{
		{ID: 1, MetricID: 1, FieldID: int64Ptr(7), Operator: "eq", Value: false, Connector: "and"},
		{ID: 2, MetricID: 2, FieldID: int64Ptr(7), Operator: "eq", Value: false, Connector: "and"},
		{ID: 3, MetricID: 6, FieldID: int64Ptr(13), Operator: "eq", Value: true, Connector: "and"},
	}

	d.MetricDimensions = []models.MetricDimension{
		{ID: 1, MetricID: 1, FieldID: 3, Granularity: "exact", Limit: 5},
	}

	d.Definitions = []models.Definition{
		{ID: 1, EmpresaID: empresa, Code: "ingresos", Name: "Ingresos", CalculationType: models.CalculationMetric, MetricID: int64Ptr(1), FormatType: "currency", ExtraConfig: &models.FormatOptions{Currency: "MXN", Decimals: intPtr(0)}},
		{ID: 2, EmpresaID: empresa, Code: "tickets", Name: "Tickets", CalculationType: models.CalculationMetric, MetricID: int64Ptr(2), FormatType: "number"},
		{ID: 3, EmpresaID: empresa, Code: "ticket-promedio", Name: "Ticket promedio", CalculationType: models.CalculationMetric, MetricID: int64Ptr(3), FormatType: "currency"},
		{ID: 4, EmpresaID: empresa, Code: "margen", Name: "Margen operativo", CalculationType: models.CalculationFormula, Expression: "(ingresos - egresos) / ingresos", FormatType: "percentage", ExtraConfig: &models.FormatOptions{Decimals: intPtr(1)}},
		{ID: 5, EmpresaID: empresa, Code: "clientes-unicos", Name: "Clientes únicos", CalculationType: models.CalculationMetric, MetricID: int64Ptr(4), FormatType: "number", BaselineMetricID: int64Ptr(2)},
		{ID: 6, EmpresaID: empresa, Code: "membresias-activas", Name: "Membresías activas", CalculationType: models.CalculationMetric, MetricID: int64Ptr(6), FormatType: "number"},
	}

	d.DefinitionMetrics = []models.DefinitionMetric{
		{ID: 1, DefinitionID: 4, MetricID: 1, Alias: "ingresos", Order: 1},
		{ID: 2, DefinitionID: 4, MetricID: 5, Alias: "egresos", Order: 2},
	}

	d.Dashboards = []models.Dashboard{
		{ID: 1, EmpresaID: empresa, Slug: "principal", Name: "Tablero principal", IsDefault: true},
		{ID: 2, EmpresaID: nil, Slug: "plantilla-basica", Name: "Plantilla básica"},
	}

	d.Widgets = []models.Widget{
		{ID: 1, DashboardID: 1, DefinitionID: 1, Title: "Ingresos del mes", Span: 6, Order: 1},
		{ID: 2, DashboardID: 1, DefinitionID: 2, Title: "Tickets", Span: 3, Order: 2},
		{ID: 3, DashboardID: 1, DefinitionID: 3, Title: "Ticket promedio", Span: 3, Order: 3, TimeWindowOverride: "last_7_days"},
		{ID: 4, DashboardID: 1, DefinitionID: 4, Title: "Margen operativo", Span: 6, Order: 4},
		{ID: 5, DashboardID: 1, DefinitionID: 5, Title: "Clientes únicos", Span: 6, Order: 5},
		{ID: 6, DashboardID: 2, DefinitionID: 6, Title: "Membresías activas", Span: 12, Order: 1},
	}

	d.WidgetFilters = []models.WidgetFilter{
		{ID: 1, WidgetID: 4, FieldID: int64Ptr(3), Operator: "eq", Value: "Centro", Connector: "and", TargetAlias: "ingresos"},
	}

	d.SourceSamples = map[string][]models.Record{
		"ventas":     seedVentas(now),
		"egresos":    seedEgresos(now),
		"membresias": seedMembresias(now),
	}
	return d
}

var seedSucursales = []string{"Centro", "Norte", "Sur"}
var seedSegmentos = []string{"nuevo", "recurrente", "vip"}
var seedMetodos = []string{"efectivo", "tarjeta", "transferencia"}
var seedCategorias = []string{"nomina", "renta", "insumos", "marketing"}
var seedPlanes = []string{"mensual", "anual"}

func seedStamp(day time.Time, hour int) string {
	return fmt.Sprintf("%s %02d:00:00", day.Format("2006-01-02"), hour)
}

// seedVentas lays out three tickets per day over the last 120 days. Amounts
// cycle deterministically so monthly totals differ between periods.
func seedVentas(now time.Time) []models.Record {
	var out []models.Record
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	i := 0
	for back := 119; back >= 0; back-- {
		day := base.AddDate(0, 0, -back)
		for slot := 0; slot < 3; slot++ {
			total := 320.0 + float64((i%11))*47.5
			record := models.Record{
				"fecha":       seedStamp(day, 9+slot*4),
				"total":       total,
				"sucursal":    seedSucursales[i%len(seedSucursales)],
				"metodo_pago": seedMetodos[i%len(seedMetodos)],
				"cancelada":   i%17 == 0,
				"cliente": map[string]any{
					"id":       float64(100 + i%40),
					"segmento": seedSegmentos[i%len(seedSegmentos)],
				},
			}
			out = append(out, record)
			i++
		}
	}
	return out
}

func seedEgresos(now time.Time) []models.Record {
	var out []models.Record
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	i := 0
	for back := 119; back >= 0; back -= 3 {
		day := base.AddDate(0, 0, -back)
		out = append(out, models.Record{
			"fecha":     seedStamp(day, 12),
			"monto":     850.0 + float64(i%7)*120,
			"categoria": seedCategorias[i%len(seedCategorias)],
			"sucursal":  seedSucursales[i%len(seedSucursales)],
		})
		i++
	}
	return out
}

func seedMembresias(now time.Time) []models.Record {
	var out []models.Record
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		day := base.AddDate(0, 0, -(i * 5))
		out = append(out, models.Record{
			"fecha_inicio": day.Format("2006-01-02"),
			"activa":       i%4 != 3,
			"plan":         seedPlanes[i%len(seedPlanes)],
			"socio_id":     float64(500 + i),
		})
	}
	return out
}
