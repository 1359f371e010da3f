package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

var (
	sucursalField = &models.SourceField{ID: 3, Name: "sucursal", FieldType: models.FieldTypeText}
	fechaField    = &models.SourceField{ID: 1, Name: "fecha", FieldType: models.FieldTypeDate}
	valueField    = &models.SourceField{ID: 2, Name: "total", FieldType: models.FieldTypeNumeric}
)

func TestBucketExactOrdersByValueDesc(t *testing.T) {
	records := []models.Record{
		{"sucursal": "Centro", "total": 10.0},
		{"sucursal": "Norte", "total": 100.0},
		{"sucursal": "Centro", "total": 15.0},
		{"sucursal": "Sur", "total": 40.0},
	}

	points := Bucket(records, sucursalField, GranularityExact, valueField, models.AggSum, 0)
	require.Len(t, points, 3)
	assert.Equal(t, models.Point{Label: "Norte", Value: 100}, points[0])
	assert.Equal(t, models.Point{Label: "Sur", Value: 40}, points[1])
	assert.Equal(t, models.Point{Label: "Centro", Value: 25}, points[2])
}

func TestBucketRankingModeTruncates(t *testing.T) {
	records := []models.Record{
		{"sucursal": "A", "total": 1.0},
		{"sucursal": "B", "total": 5.0},
		{"sucursal": "C", "total": 3.0},
		{"sucursal": "D", "total": 4.0},
	}

	points := Bucket(records, sucursalField, GranularityExact, valueField, models.AggSum, 2)
	require.Len(t, points, 2)
	assert.Equal(t, "B", points[0].Label)
	assert.Equal(t, "D", points[1].Label)
}

func TestBucketMonthChronological(t *testing.T) {
	// insertion order deliberately scrambled; totals make value ordering
	// disagree with calendar ordering
	records := []models.Record{
		{"fecha": "2026-03-10", "total": 999.0},
		{"fecha": "2026-01-05", "total": 1.0},
		{"fecha": "2026-02-14", "total": 50.0},
		{"fecha": "2026-01-20", "total": 2.0},
	}

	points := Bucket(records, fechaField, GranularityMonth, valueField, models.AggSum, 0)
	require.Len(t, points, 3)
	assert.Equal(t, "2026-01", points[0].Label)
	assert.Equal(t, "2026-02", points[1].Label)
	assert.Equal(t, "2026-03", points[2].Label)
	assert.Equal(t, 3.0, points[0].Value)
}

func TestBucketPartitionsCompletely(t *testing.T) {
	records := []models.Record{
		{"fecha": "2026-03-01", "total": 10.0},
		{"fecha": "2026-03-02", "total": 20.0},
		{"fecha": "2026-04-01", "total": 30.0},
	}

	points := Bucket(records, fechaField, GranularityMonth, valueField, models.AggSum, 0)
	total := 0.0
	for _, p := range points {
		total += p.Value
	}
	assert.Equal(t, 60.0, total)
}

func TestBucketSkipsNullDimensionValues(t *testing.T) {
	records := []models.Record{
		{"sucursal": "Centro", "total": 10.0},
		{"total": 99.0},
	}

	points := Bucket(records, sucursalField, GranularityExact, valueField, models.AggSum, 0)
	require.Len(t, points, 1)
	assert.Equal(t, 10.0, points[0].Value)
}

func TestBucketSkipsUnparseableDates(t *testing.T) {
	records := []models.Record{
		{"fecha": "2026-03-01", "total": 10.0},
		{"fecha": "not a date", "total": 20.0},
	}

	points := Bucket(records, fechaField, GranularityDay, valueField, models.AggSum, 0)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-03-01", points[0].Label)
}

func TestBucketWeekLabels(t *testing.T) {
	// 2026-03-10 is a Tuesday; its week starts Monday 2026-03-09 and the
	// label counts weeks as ceil((day+6)/7)
	records := []models.Record{{"fecha": "2026-03-10", "total": 5.0}}

	points := Bucket(records, fechaField, GranularityWeek, valueField, models.AggSum, 0)
	require.Len(t, points, 1)
	assert.Equal(t, "Sem 3 2026", points[0].Label)

	first := Bucket([]models.Record{{"fecha": "2026-06-01", "total": 1.0}}, fechaField, GranularityWeek, valueField, models.AggSum, 0)
	require.Len(t, first, 1)
	assert.Equal(t, "Sem 1 2026", first[0].Label)
}

func TestBucketQuarterAndHour(t *testing.T) {
	records := []models.Record{
		{"fecha": "2026-05-20 09:15:00", "total": 1.0},
		{"fecha": "2026-05-20 09:45:00", "total": 2.0},
		{"fecha": "2026-05-20 14:00:00", "total": 4.0},
	}

	quarters := Bucket(records, fechaField, GranularityQuarter, valueField, models.AggSum, 0)
	require.Len(t, quarters, 1)
	assert.Equal(t, "2026-Q2", quarters[0].Label)

	hours := Bucket(records, fechaField, GranularityHour, valueField, models.AggSum, 0)
	require.Len(t, hours, 2)
	assert.Equal(t, "09:00", hours[0].Label)
	assert.Equal(t, 3.0, hours[0].Value)
}

func TestBucketCountAggregation(t *testing.T) {
	records := []models.Record{
		{"sucursal": "Centro"},
		{"sucursal": "Centro"},
		{"sucursal": "Norte"},
	}

	points := Bucket(records, sucursalField, GranularityExact, nil, models.AggCount, 0)
	require.Len(t, points, 2)
	assert.Equal(t, models.Point{Label: "Centro", Value: 2}, points[0])
}

func TestBucketNilDimensionField(t *testing.T) {
	assert.Empty(t, Bucket([]models.Record{{"total": 1.0}}, nil, GranularityExact, valueField, models.AggSum, 0))
}
