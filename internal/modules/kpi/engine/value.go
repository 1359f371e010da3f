package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// dateLayouts are tried in order when coercing a value to a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// GetValue walks a dot or double-underscore separated path into a record.
// Missing segments resolve to nil, never panic.
func GetValue(record models.Record, path string) any {
	if record == nil || path == "" {
		return nil
	}
	parts := splitPath(path)
	var current any = record
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func splitPath(path string) []string {
	replaced := strings.ReplaceAll(path, "__", ".")
	return strings.Split(replaced, ".")
}

// Coerce normalizes a raw record value according to the field's declared
// type. Nil input and nil field pass through untouched.
func Coerce(value any, field *models.SourceField) any {
	if value == nil || field == nil {
		return value
	}
	switch field.FieldType {
	case models.FieldTypeNumeric:
		f, ok := toFloat(value)
		if !ok {
			// non-numeric input fails every ordered comparison downstream
			return math.NaN()
		}
		return f
	case models.FieldTypeDate:
		t, ok := toTime(value)
		if !ok {
			return nil
		}
		return t
	case models.FieldTypeBoolean:
		return toBool(value)
	default:
		return value
	}
}

// toFloat converts numeric kinds and numeric strings to float64.
func toFloat(value any) (float64, bool) {
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
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toTime converts time.Time or a recognized date/time string to a time value.
func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// toBool accepts booleans and the "true"/"1"/"false"/"0" string forms; any
// other value falls back to a truthiness cast.
func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
		return v != ""
	default:
		f, ok := toFloat(value)
		if ok {
			return f != 0
		}
		return value != nil
	}
}

// stringify renders a value for string operators. Nil renders as empty.
func stringify(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
