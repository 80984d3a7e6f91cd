package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/yangxb919/prspares-website/internal/domain"
)

// NoPrice is shown when a product has no price.
const NoPrice = "—"

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders the product's price for display. String prices are
// shown verbatim; numbers are formatted in the product's currency.
func FormatPrice(specs domain.Specs) string {
	raw, ok := specs.Price()
	if !ok {
		return NoPrice
	}
	if s, ok := raw.(string); ok {
		return s
	}
	amount, ok := toFloat(raw)
	if !ok {
		return NoPrice
	}
	return formatAmount(amount, specs.Currency())
}

func formatAmount(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}

	scale, _ := currency.Standard.Rounding(unit)
	symbol := printer.Sprint(currency.Symbol(unit))
	digits := printer.Sprint(number.Decimal(math.Abs(amount), number.Scale(scale)))

	sep := ""
	if r := []rune(symbol); len(r) > 0 && unicode.IsLetter(r[len(r)-1]) {
		sep = " "
	}
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	return sign + symbol + sep + digits
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
