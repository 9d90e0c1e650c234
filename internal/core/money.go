// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between minor units and cedi representations.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// CurrencySymbol prefixes amounts in the default currency.
const CurrencySymbol = "₵"

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseCurrency is the lenient parser used for user-typed amounts such as
// "₵1,250.50". The cedi symbol, thousands separators and whitespace are
// stripped; anything unparsable yields zero.
func ParseCurrency(s string) Money {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ',' || unicode.IsSpace(r):
			return -1
		case strings.ContainsRune(CurrencySymbol, r):
			return -1
		}
		return r
	}, s)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Money{}
	}
	return FromFloat(f)
}

// FromFloat converts a major-unit amount to Money, rounding half away from zero.
func FromFloat(f float64) Money {
	if f >= 0 {
		return Money{Cents: int64(f*100 + 0.5)}
	}
	return Money{Cents: int64(f*100 - 0.5)}
}

// Float returns the major-unit value for display and ratio maths.
// Use Cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String formats the amount in cedis.
func (m Money) String() string {
	return FormatCedis(m.Cents)
}

// FormatCedis formats minor units as "₵12.34" ("-₵12.34" when negative).
func FormatCedis(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	major := cents / 100
	rem := cents % 100
	s := CurrencySymbol + strconv.FormatInt(major, 10) + "." + twoDigits(rem)
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
