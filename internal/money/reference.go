package money

import (
	"fmt"
	"math/big"
	"strings"
)

// Carry transition row of the recursive modulo-10 algorithm (ISO 7064
// MOD 10, as published for the Swiss QR/ESR reference). The next carry for
// digit d is mod10Row[(carry+d) % 10]; the check digit is (10-carry) % 10.
// These constants are normative: one wrong entry silently corrupts every
// generated reference.
var mod10Row = [10]int{0, 9, 4, 6, 8, 2, 7, 1, 3, 5}

// ComputeReferenceChecksum returns the check digit for a digit string.
func ComputeReferenceChecksum(digits string) (int, error) {
	carry := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: non-numeric reference %q", ErrInvalidInput, digits)
		}
		carry = mod10Row[(carry+int(r-'0'))%10]
	}
	return (10 - carry) % 10, nil
}

// ValidateReference recomputes the check digit over all but the last digit
// of a payment reference and compares. Spaces are ignored; any other
// non-digit makes the reference invalid.
func ValidateReference(full string) bool {
	cleaned := strings.ReplaceAll(full, " ", "")
	if len(cleaned) < 2 {
		return false
	}
	check, err := ComputeReferenceChecksum(cleaned[:len(cleaned)-1])
	if err != nil {
		return false
	}
	return cleaned[len(cleaned)-1] == byte('0'+check)
}

// GenerateReference appends the check digit to a 26-digit base, yielding
// the 27-digit QR reference.
func GenerateReference(base string) (string, error) {
	cleaned := strings.ReplaceAll(base, " ", "")
	if len(cleaned) != 26 {
		return "", fmt.Errorf("%w: QR reference base must be 26 digits, got %d", ErrInvalidInput, len(cleaned))
	}
	check, err := ComputeReferenceChecksum(cleaned)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", cleaned, check), nil
}

// FormatReference groups a 27-digit reference for display:
// "XX XXXXX XXXXX XXXXX XXXXX XXXXX".
func FormatReference(ref string) string {
	cleaned := strings.ReplaceAll(ref, " ", "")
	if len(cleaned) != 27 {
		return ref
	}
	parts := []string{cleaned[:2]}
	for i := 2; i < 27; i += 5 {
		parts = append(parts, cleaned[i:i+5])
	}
	return strings.Join(parts, " ")
}

var mod97 = big.NewInt(97)

// ValidateIBAN checks an IBAN's structure and ISO 13616 mod-97 checksum.
// Spaces are ignored, case is not significant.
func ValidateIBAN(iban string) bool {
	cleaned := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(cleaned) < 15 || len(cleaned) > 34 {
		return false
	}
	for _, r := range cleaned {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	if cleaned[0] < 'A' || cleaned[0] > 'Z' || cleaned[1] < 'A' || cleaned[1] > 'Z' {
		return false
	}

	// Move the country code and check digits to the end, expand letters
	// to two-digit numbers, then the whole number must be ≡ 1 mod 97.
	rearranged := cleaned[4:] + cleaned[:4]
	var b strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			b.WriteString(fmt.Sprintf("%d", r-'A'+10))
		} else {
			b.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(b.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, mod97).Int64() == 1
}
