package domain

import (
	"fmt"
	"strings"
)

// Validation constants
const (
	MaxDescriptionLength = 500
	MaxMetadataSize      = 10240 // 10KB
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrency validates a currency code.
func ValidateCurrency(currency string) error {
	if !validCurrencies[normalizeCurrency(currency)] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateRequired checks that a named field is non-empty after trimming.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}

	return nil
}

// ValidateDescription checks description presence and length.
func ValidateDescription(description string) error {
	if err := ValidateRequired("description", description); err != nil {
		return err
	}

	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}

	return nil
}

// ValidateMetadata validates metadata size.
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("metadata size %d bytes exceeds limit of %d bytes", size, MaxMetadataSize)
	}

	return nil
}
