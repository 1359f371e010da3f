package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Aggregate reduces a record set to a single number.
//
// count ignores the field. distinct_count counts distinct serialized field
// values, so a present-but-null value is one distinct bucket. The numeric
// kinds coerce each field value to float64, treat non-finite values as 0 and
// return 0 over an empty record set. The zero floor keeps empty widgets
// rendering a number instead of NaN.
func Aggregate(records []models.Record, kind string, field *models.SourceField) float64 {
	if kind == models.AggCount {
		return float64(len(records))
	}
	if field == nil {
		return 0
	}

	if kind == models.AggDistinctCount {
		distinct := map[string]struct{}{}
		for _, record := range records {
			distinct[serializeValue(GetValue(record, field.Name))] = struct{}{}
		}
		return float64(len(distinct))
	}

	values := make([]float64, 0, len(records))
	for _, record := range records {
		raw := GetValue(record, field.Name)
		f, ok := toFloat(raw)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return 0
	}

	switch kind {
	case models.AggSum:
		return sum(values)
	case models.AggAvg:
		return sum(values) / float64(len(values))
	case models.AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case models.AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	default:
		return 0
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func serializeValue(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}
