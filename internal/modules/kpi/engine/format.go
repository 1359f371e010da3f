package engine

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Format types a definition may declare.
const (
	FormatTypeValue      = "value"
	FormatTypeCurrency   = "currency"
	FormatTypePercentage = "percentage"
	FormatTypeDuration   = "duration"

	defaultCurrency = "MXN"
	placeholder     = "—"
)

var localePrinter = message.NewPrinter(language.MustParse("es-MX"))

var currencySymbols = map[string]string{
	"MXN": "$",
	"USD": "US$",
	"EUR": "€",
}

// FormatValue renders a numeric result for presentation. Nil and non-finite
// values render as the placeholder dash.
func FormatValue(value *float64, formatType string, extra *models.FormatOptions) string {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return placeholder
	}
	decimals := defaultDecimals(formatType)
	if extra != nil && extra.Decimals != nil {
		decimals = *extra.Decimals
	}

	switch formatType {
	case FormatTypeCurrency:
		code := defaultCurrency
		if extra != nil && extra.Currency != "" {
			code = extra.Currency
		}
		symbol, ok := currencySymbols[code]
		if !ok {
			symbol = code + " "
		}
		return symbol + groupedNumber(*value, decimals)
	case FormatTypePercentage:
		return strconv.FormatFloat(*value*100, 'f', decimals, 64) + "%"
	case FormatTypeDuration:
		totalMinutes := int(math.Round(*value))
		return fmt.Sprintf("%dh %02dm", totalMinutes/60, totalMinutes%60)
	default:
		return groupedNumber(*value, decimals)
	}
}

func defaultDecimals(formatType string) int {
	switch formatType {
	case FormatTypeCurrency:
		return 2
	case FormatTypePercentage:
		return 1
	default:
		return 0
	}
}

func groupedNumber(value float64, decimals int) string {
	return localePrinter.Sprint(number.Decimal(value,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals)))
}
