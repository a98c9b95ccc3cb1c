package utils

import (
	"fmt"
	"regexp"
)

var uidRegex = regexp.MustCompile(`^CHE-\d{3}\.\d{3}\.\d{3}$`)

// ValidateTaxID validates a Swiss UID (CHE-xxx.xxx.xxx)
func ValidateTaxID(taxID string) error {
	if !uidRegex.MatchString(taxID) {
		return fmt.Errorf("invalid Swiss UID format: %s", taxID)
	}
	return nil
}

// ValidateCurrency validates an ISO 4217 currency code
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("currency code must be 3 letters: %s", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("currency code must be upper-case letters: %s", code)
		}
	}
	return nil
}

// ValidateAmount validates a monetary amount
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}
	return nil
}

// SanitizeString removes control characters from OCR or user input
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`).ReplaceAllString(s, "")
}
