package money

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Matches Swiss (1'234.56), plain (1234.56) and anglo (1,234.56) amounts.
var amountPattern = regexp.MustCompile(`^-?\d{1,3}(?:[',]\d{3})*(?:\.\d+)?$|^-?\d+(?:\.\d+)?$`)

// ParseAmount normalizes a printed amount to a float64. Accepted shapes:
// "1'234.56" (Swiss), "1234.56", "1,234.56". Anything else is
// ErrInvalidInput; no silent zeroing.
func ParseAmount(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || !amountPattern.MatchString(trimmed) {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	cleaned := strings.NewReplacer("'", "", ",", "").Replace(trimmed)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	return v, nil
}

// FormatAmount renders an amount in the Swiss convention: apostrophe
// thousands separator, two decimals. 1234.5 -> "1'234.50".
func FormatAmount(amount float64) string {
	neg := math.Signbit(amount)
	s := strconv.FormatFloat(math.Abs(amount), 'f', 2, 64)

	intPart, decPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('\'')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(decPart)
	return b.String()
}
