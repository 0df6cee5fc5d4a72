// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer centavos. Anything that divides (installment
// splits, percentages) goes through shopspring/decimal so rounding is
// half-up and never drifts through float64.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a positive decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseBRL parses a signed amount as printed on Brazilian statements:
// "1.234,56", "-45,90", "R$ 12,00". A plain "12.50" is read with a decimal dot.
func ParseBRL(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if strings.Contains(s, ",") {
		// thousands use dots, decimals use a comma
		s = strings.ReplaceAll(s, ".", "")
	}
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// FromReais builds a Money from a whole-real value.
func FromReais(reais int64) Money {
	return Money{Cents: reais * 100}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Reais returns the value in reais for display and JSON output.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return decimal.New(m.Cents, -2).InexactFloat64()
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Split divides m into n parts rounded half-up to the cent.
func (m Money) Split(n int) Money {
	if n <= 0 {
		return Money{}
	}
	return Money{Cents: decimal.NewFromInt(m.Cents).DivRound(decimal.NewFromInt(int64(n)), 0).IntPart()}
}

// Fixed2 formats the absolute value with exactly two decimals ("50.00").
func (m Money) Fixed2() string {
	return decimal.New(m.Abs().Cents, -2).StringFixed(2)
}

// String renders the amount in Brazilian notation, e.g. "R$ 1.234,56".
func (m Money) String() string {
	sign := ""
	if m.Cents < 0 {
		sign = "-"
	}
	abs := m.Abs().Cents
	whole := strconv.FormatInt(abs/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), abs%100)
}

// Percent returns part/whole*100 rounded to one decimal, or 0 when whole is 0.
func Percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(1).
		InexactFloat64()
}
