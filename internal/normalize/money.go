package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney accepts plain numbers and pt-BR formatted strings
// ("R$ 1.234,56"). When a comma is present it is the decimal separator and
// dots are thousands separators. Unparseable input yields zero and false.
func ParseMoney(v any) (decimal.Decimal, bool) {
	if d, ok, handled := parseNumeric(v); handled {
		return d, ok
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantity parses a fractional quantity, accepting "," as the decimal
// separator.
func ParseQuantity(v any) (decimal.Decimal, bool) {
	if d, ok, handled := parseNumeric(v); handled {
		return d, ok
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, false
	}
	s = strings.TrimSpace(s)
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func parseNumeric(v any) (d decimal.Decimal, ok, handled bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false, true
	case float64:
		return decimal.NewFromFloat(x), true, true
	case float32:
		return decimal.NewFromFloat32(x), true, true
	case int:
		return decimal.NewFromInt(int64(x)), true, true
	case int64:
		return decimal.NewFromInt(x), true, true
	case json.Number:
		return fromText(x.String())
	case fmt.Stringer:
		return fromText(x.String())
	}
	return decimal.Zero, false, false
}

func fromText(s string) (decimal.Decimal, bool, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, true
	}
	return d, true, true
}

// FormatBRL renders a value as "R$ 1.234,56"
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
