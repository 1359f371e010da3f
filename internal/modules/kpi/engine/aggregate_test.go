package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

var totalField = &models.SourceField{ID: 2, Name: "total", FieldType: models.FieldTypeNumeric}

func aggRecords(values ...any) []models.Record {
	out := make([]models.Record, len(values))
	for i, v := range values {
		out[i] = models.Record{"total": v}
	}
	return out
}

func TestAggregateSum(t *testing.T) {
	assert.Equal(t, 60.0, Aggregate(aggRecords(10.0, 20.0, 30.0), models.AggSum, totalField))
}

func TestAggregateAvg(t *testing.T) {
	assert.Equal(t, 20.0, Aggregate(aggRecords(10.0, 20.0, 30.0), models.AggAvg, totalField))
}

func TestAggregateMaxMin(t *testing.T) {
	records := aggRecords(7.0, -3.0, 12.0)
	assert.Equal(t, 12.0, Aggregate(records, models.AggMax, totalField))
	assert.Equal(t, -3.0, Aggregate(records, models.AggMin, totalField))
}

func TestAggregateCountIgnoresField(t *testing.T) {
	records := aggRecords(1.0, nil, "garbage")
	assert.Equal(t, 3.0, Aggregate(records, models.AggCount, nil))
	assert.Equal(t, 3.0, Aggregate(records, models.AggCount, totalField))
}

func TestAggregateDistinctCount(t *testing.T) {
	records := aggRecords("a", "b", "a", nil, nil, 3.0, 3.0)
	// "a", "b", null and 3 make four distinct values
	assert.Equal(t, 4.0, Aggregate(records, models.AggDistinctCount, totalField))
}

func TestAggregateEmptySetFloorsToZero(t *testing.T) {
	for _, kind := range []string{models.AggSum, models.AggAvg, models.AggMax, models.AggMin, models.AggDistinctCount} {
		assert.Equal(t, 0.0, Aggregate(nil, kind, totalField), kind)
	}
	assert.Equal(t, 0.0, Aggregate(nil, models.AggCount, nil))
}

func TestAggregateNonFiniteValuesBecomeZero(t *testing.T) {
	records := aggRecords(10.0, math.NaN(), math.Inf(1))
	assert.Equal(t, 10.0, Aggregate(records, models.AggSum, totalField))
}

func TestAggregateUnparseableValuesBecomeZero(t *testing.T) {
	records := aggRecords(10.0, "hola", nil)
	assert.Equal(t, 10.0, Aggregate(records, models.AggSum, totalField))
	assert.InDelta(t, 10.0/3, Aggregate(records, models.AggAvg, totalField), 1e-9)
}

func TestAggregateNilFieldWithoutCount(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(aggRecords(1.0), models.AggSum, nil))
}
