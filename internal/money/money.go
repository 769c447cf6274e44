// Package money provides the fixed-point currency type used across the ledger.
//
// All internal arithmetic is done on kobo (the minor unit of the naira) as
// int64 values. Decimal naira amounts only ever appear at the service
// boundary, where they are converted exactly once in each direction.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// koboPerNaira is the minor-unit factor for NGN.
const koboPerNaira = 100

// Money is an amount of naira held as an integer count of kobo.
// It may be negative: ledger rows use sign to distinguish credits
// from debits.
type Money int64

// FromNaira converts a decimal naira amount to Money, rounding half
// away from zero to the nearest kobo.
func FromNaira(major decimal.Decimal) Money {
	return Money(major.Mul(decimal.NewFromInt(koboPerNaira)).Round(0).IntPart())
}

// Parse converts a decimal string such as "5000.50" to Money.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromNaira(d), nil
}

// FromKobo wraps a raw minor-unit amount.
func FromKobo(minor int64) Money { return Money(minor) }

// Kobo returns the raw minor-unit amount.
func (m Money) Kobo() int64 { return int64(m) }

// Naira returns the amount in major units as an exact decimal.
func (m Money) Naira() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(koboPerNaira))
}

func (m Money) Add(o Money) Money { return m + o }

func (m Money) Sub(o Money) Money { return m - o }

func (m Money) Neg() Money { return -m }

func (m Money) IsPositive() bool { return m > 0 }

func (m Money) IsNegative() bool { return m < 0 }

func (m Money) IsZero() bool { return m == 0 }

// LessThan reports whether m < o, comparing minor units.
func (m Money) LessThan(o Money) bool { return m < o }

// String formats the amount as naira with two decimal places.
func (m Money) String() string {
	return m.Naira().StringFixed(2)
}
