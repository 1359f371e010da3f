package engine

import (
	"reflect"
	"strings"
	"time"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Matches evaluates a single operator against an already-coerced record
// value. It is total: malformed input degrades to false (or to the
// documented fail-safe for the set operators), never to a panic.
//
// Unknown operators match. A filter with a typo'd operator then behaves as a
// pass-through instead of silently hiding every record.
func Matches(recordValue any, operator string, expected any, field *models.SourceField) bool {
	switch operator {
	case "is_null":
		return recordValue == nil
	case "is_not_null":
		return recordValue != nil
	}

	if field != nil && field.FieldType == models.FieldTypeDate {
		recordValue = coerceDate(recordValue)
		expected = coerceExpectedDates(expected)
	}

	switch operator {
	case "eq":
		return equalValues(recordValue, expected)
	case "ne":
		return !equalValues(recordValue, expected)
	case "gt":
		cmp, ok := compareValues(recordValue, expected)
		return ok && cmp > 0
	case "gte":
		cmp, ok := compareValues(recordValue, expected)
		return ok && cmp >= 0
	case "lt":
		cmp, ok := compareValues(recordValue, expected)
		return ok && cmp < 0
	case "lte":
		cmp, ok := compareValues(recordValue, expected)
		return ok && cmp <= 0
	case "in":
		members, ok := asSlice(expected)
		if !ok {
			return false
		}
		return containsValue(members, recordValue)
	case "not_in":
		members, ok := asSlice(expected)
		if !ok {
			// fail-safe exclusion: a malformed list never becomes inclusion
			return true
		}
		return !containsValue(members, recordValue)
	case "between":
		bounds, ok := asSlice(expected)
		if !ok || len(bounds) != 2 {
			return false
		}
		lo, okLo := compareValues(recordValue, bounds[0])
		hi, okHi := compareValues(recordValue, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	case "contains":
		return strings.Contains(stringify(recordValue), stringify(expected))
	case "icontains":
		return strings.Contains(strings.ToLower(stringify(recordValue)), strings.ToLower(stringify(expected)))
	case "startswith":
		return strings.HasPrefix(stringify(recordValue), stringify(expected))
	case "endswith":
		return strings.HasSuffix(stringify(recordValue), stringify(expected))
	default:
		return true
	}
}

// ApplyFilters keeps the records that pass the filter list. Filters combine
// left to right: a failing filter rejects the record unless its connector is
// "or", in which case the next filter still gets a chance and its success
// rescues the record. Filters whose field cannot be resolved are skipped.
func ApplyFilters(records []models.Record, filters []models.FilterRule, fieldsByID map[int64]*models.SourceField, fieldsByName map[string]*models.SourceField) []models.Record {
	if len(filters) == 0 {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		if recordPasses(record, filters, fieldsByID, fieldsByName) {
			out = append(out, record)
		}
	}
	return out
}

func recordPasses(record models.Record, filters []models.FilterRule, fieldsByID map[int64]*models.SourceField, fieldsByName map[string]*models.SourceField) bool {
	valid := true
	for _, filter := range filters {
		field := resolveField(filter, fieldsByID, fieldsByName)
		if field == nil {
			continue
		}
		raw := GetValue(record, field.Name)
		normalized := Coerce(raw, field)
		if Matches(normalized, filter.Operator, filter.Value, field) {
			valid = true
			continue
		}
		valid = false
		if filter.Connector != "or" {
			break
		}
	}
	return valid
}

func resolveField(filter models.FilterRule, fieldsByID map[int64]*models.SourceField, fieldsByName map[string]*models.SourceField) *models.SourceField {
	if filter.FieldID != nil {
		return fieldsByID[*filter.FieldID]
	}
	if filter.FieldName != "" {
		return fieldsByName[filter.FieldName]
	}
	return nil
}

func coerceDate(value any) any {
	if value == nil {
		return nil
	}
	t, ok := toTime(value)
	if !ok {
		return nil
	}
	return t
}

func coerceExpectedDates(expected any) any {
	if members, ok := asSlice(expected); ok {
		coerced := make([]any, len(members))
		for i, member := range members {
			coerced[i] = coerceDate(member)
		}
		return coerced
	}
	return coerceDate(expected)
}

// equalValues compares across the value kinds JSON decoding produces:
// numbers of any width compare numerically, times by instant, the rest by
// deep equality.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if aok && bok {
		return af == bf
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values: times chronologically, numbers
// numerically, strings lexicographically. Mixed or unordered kinds report
// !ok and the caller treats the comparison as failed.
func compareValues(a, b any) (int, bool) {
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if aok && bok {
		if af != af || bf != bf { // NaN never orders
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

// numericValue reports a value already of a numeric kind as float64. Unlike
// toFloat it does not parse strings, so "10" stays a string for eq/ordering.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func containsValue(members []any, value any) bool {
	for _, member := range members {
		if equalValues(member, value) {
			return true
		}
	}
	return false
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
