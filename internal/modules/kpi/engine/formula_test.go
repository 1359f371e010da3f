package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateArithmetic(t *testing.T) {
	scope := map[string]float64{"ingresos": 1000, "egresos": 250}

	tests := []struct {
		expression string
		want       float64
	}{
		{"ingresos - egresos", 750},
		{"(ingresos - egresos) / ingresos", 0.75},
		{"ingresos * 2", 2000},
		{"ingresos + egresos * 2", 1500},
		{"(ingresos + egresos) * 2", 2500},
		{"-egresos", -250},
		{"ingresos / -2", -500},
		{"  ingresos  /  4  ", 250},
		{"3.5 * 2", 7},
	}
	for _, tt := range tests {
		got, err := Evaluate(tt.expression, scope)
		require.NoError(t, err, tt.expression)
		assert.InDelta(t, tt.want, got, 1e-9, tt.expression)
	}
}

func TestEvaluateRejectsUnknownIdentifiers(t *testing.T) {
	_, err := Evaluate("ingresos - costos", map[string]float64{"ingresos": 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costos")
}

func TestEvaluateRejectsMalformedInput(t *testing.T) {
	scope := map[string]float64{"a": 1}
	for _, expression := range []string{"", "a +", "(a", "a b", "a ** 2", "1..2", "a; drop()", "a = 2"} {
		_, err := Evaluate(expression, scope)
		assert.Error(t, err, expression)
	}
}

func TestEvaluateDivisionByZeroIsNonFinite(t *testing.T) {
	_, err := Evaluate("a / b", map[string]float64{"a": 1, "b": 0})
	assert.Error(t, err)
}

func TestEvaluateOrZeroDegrades(t *testing.T) {
	scope := map[string]float64{"ingresos": 0, "egresos": 10}

	// division by zero inside the formula degrades to 0 instead of failing
	assert.Equal(t, 0.0, EvaluateOrZero("(ingresos - egresos) / ingresos", scope))
	assert.Equal(t, 0.0, EvaluateOrZero("desconocido + 1", scope))
	assert.Equal(t, -10.0, EvaluateOrZero("ingresos - egresos", scope))
}

func TestEvaluateIdentifiersWithUnderscoresAndDigits(t *testing.T) {
	got, err := Evaluate("ventas_2026 / total_1", map[string]float64{"ventas_2026": 50, "total_1": 2})
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)
}
