package statement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmountCents parses an amount cell into signed cents. Both decimal
// conventions are handled: "1.234,56" and "1,234.56" both yield 123456.
// Currency symbols and spaces are ignored; parentheses mean negative.
func parseAmountCents(s string) (int64, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '€', '$', '£':
			return -1
		}

		return r
	}, s)

	negative := false

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}

	clean = normalizeSeparators(clean)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if negative {
		cents = -cents
	}

	return cents, nil
}

// normalizeSeparators rewrites the amount to use '.' as the decimal
// separator. When both separators appear, the rightmost one is decimal. A
// lone comma is decimal unless it reads as a thousands group ("1,234").
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	return s
}
