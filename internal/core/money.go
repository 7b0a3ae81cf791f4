// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal end to end. Stores persist them
// as integer cents so that SQL sums stay exact.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a user supplied decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "cannot be empty"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount requires a strictly positive amount with at most two decimals.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !d.Equal(d.Round(2)) {
		return &ValidationError{Field: "amount", Reason: "at most two decimals"}
	}
	return nil
}

// ToCents converts an amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
