package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

func TestMatchesOperators(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		operator string
		expected any
		want     bool
	}{
		{"eq number", 10.0, "eq", 10, true},
		{"eq mismatch", 10.0, "eq", 11, false},
		{"eq string stays string", "10", "eq", 10, false},
		{"ne", "Centro", "ne", "Norte", true},
		{"gt", 5.0, "gt", 3, true},
		{"gte equal", 5.0, "gte", 5, true},
		{"lt", 2.0, "lt", 3, true},
		{"lte fail", 4.0, "lte", 3, false},
		{"in", "tarjeta", "in", []any{"efectivo", "tarjeta"}, true},
		{"in miss", "cheque", "in", []any{"efectivo", "tarjeta"}, false},
		{"in malformed", "x", "in", "not a list", false},
		{"not_in", "cheque", "not_in", []any{"efectivo"}, true},
		{"not_in malformed stays exclusion", "x", "not_in", 3, true},
		{"between", 5.0, "between", []any{1, 10}, true},
		{"between outside", 12.0, "between", []any{1, 10}, false},
		{"between wrong arity", 5.0, "between", []any{1}, false},
		{"contains", "Sucursal Centro", "contains", "Centro", true},
		{"icontains", "Sucursal Centro", "icontains", "centro", true},
		{"startswith", "MX-001", "startswith", "MX", true},
		{"endswith", "MX-001", "endswith", "001", true},
		{"unknown operator passes through", "x", "aproximadamente", "y", true},
		{"gt incomparable kinds", "abc", "gt", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.value, tt.operator, tt.expected, nil))
		})
	}
}

func TestMatchesNullOperatorsAreComplements(t *testing.T) {
	values := []any{nil, 0.0, "", "algo", false}
	for _, v := range values {
		isNull := Matches(v, "is_null", nil, nil)
		isNotNull := Matches(v, "is_not_null", nil, nil)
		assert.NotEqual(t, isNull, isNotNull)
		assert.Equal(t, v == nil, isNull)
	}
}

func TestMatchesBetweenOnDates(t *testing.T) {
	field := &models.SourceField{FieldType: models.FieldTypeDate}

	assert.True(t, Matches(Coerce("2026-02-10", field), "between", []any{"2026-02-01", "2026-02-28"}, field))
	assert.False(t, Matches(Coerce("2026-03-05", field), "between", []any{"2026-02-01", "2026-02-28"}, field))
	assert.True(t, Matches(Coerce("2026-02-01", field), "between", []any{"2026-02-01", "2026-02-28"}, field))
}

func TestMatchesDateEquality(t *testing.T) {
	field := &models.SourceField{FieldType: models.FieldTypeDate}

	assert.True(t, Matches(Coerce("2026-05-01T00:00:00Z", field), "eq", "2026-05-01T00:00:00Z", field))
	assert.True(t, Matches(Coerce("2026-05-02", field), "gt", "2026-05-01", field))
}

func filterFields() (map[int64]*models.SourceField, map[string]*models.SourceField) {
	fields := []*models.SourceField{
		{ID: 1, Name: "sucursal", FieldType: models.FieldTypeText},
		{ID: 2, Name: "total", FieldType: models.FieldTypeNumeric},
		{ID: 3, Name: "metodo_pago", FieldType: models.FieldTypeText},
	}
	byID := map[int64]*models.SourceField{}
	byName := map[string]*models.SourceField{}
	for _, f := range fields {
		byID[f.ID] = f
		byName[f.Name] = f
	}
	return byID, byName
}

func fid(v int64) *int64 { return &v }

func TestApplyFiltersAndChain(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{
		{"sucursal": "Centro", "total": 100.0},
		{"sucursal": "Centro", "total": 10.0},
		{"sucursal": "Norte", "total": 500.0},
	}
	filters := []models.FilterRule{
		{FieldID: fid(1), Operator: "eq", Value: "Centro", Connector: "and"},
		{FieldID: fid(2), Operator: "gte", Value: 50, Connector: "and"},
	}

	out := ApplyFilters(records, filters, byID, byName)
	assert.Len(t, out, 1)
	assert.Equal(t, 100.0, out[0]["total"])
}

func TestApplyFiltersOrRescue(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{
		{"sucursal": "Sur", "metodo_pago": "tarjeta"},
		{"sucursal": "Sur", "metodo_pago": "cheque"},
		{"sucursal": "Centro", "metodo_pago": "tarjeta"},
	}
	// a record failing the first filter survives through the or connector
	// when the following filter accepts it
	filters := []models.FilterRule{
		{FieldID: fid(1), Operator: "eq", Value: "Centro", Connector: "or"},
		{FieldID: fid(3), Operator: "eq", Value: "tarjeta", Connector: "and"},
	}

	out := ApplyFilters(records, filters, byID, byName)
	assert.Len(t, out, 2)
	assert.Equal(t, "Sur", out[0]["sucursal"])
	assert.Equal(t, "Centro", out[1]["sucursal"])
}

func TestApplyFiltersAndShortCircuits(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{
		{"sucursal": "Sur", "metodo_pago": "tarjeta"},
	}
	// and connector on a failing filter rejects without evaluating further
	filters := []models.FilterRule{
		{FieldID: fid(1), Operator: "eq", Value: "Centro", Connector: "and"},
		{FieldID: fid(3), Operator: "eq", Value: "tarjeta", Connector: "and"},
	}

	out := ApplyFilters(records, filters, byID, byName)
	assert.Empty(t, out)
}

func TestApplyFiltersSkipsUnresolvableFields(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{
		{"sucursal": "Centro"},
		{"sucursal": "Norte"},
	}
	filters := []models.FilterRule{
		{FieldID: fid(99), Operator: "eq", Value: "x", Connector: "and"},
		{FieldName: "no_such_field", Operator: "eq", Value: "x", Connector: "and"},
	}

	out := ApplyFilters(records, filters, byID, byName)
	assert.Len(t, out, 2)
}

func TestApplyFiltersByFieldName(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{
		{"sucursal": "Centro"},
		{"sucursal": "Norte"},
	}
	filters := []models.FilterRule{
		{FieldName: "sucursal", Operator: "eq", Value: "Norte", Connector: "and"},
	}

	out := ApplyFilters(records, filters, byID, byName)
	assert.Len(t, out, 1)
	assert.Equal(t, "Norte", out[0]["sucursal"])
}

func TestApplyFiltersEmptyListKeepsAll(t *testing.T) {
	byID, byName := filterFields()
	records := []models.Record{{"sucursal": "Centro"}}
	assert.Len(t, ApplyFilters(records, nil, byID, byName), 1)
}
