// Package core provides the ledger domain: transactions, categories,
// money and the balance fold.
//
// Money is a scaled integer (cents). Textual amounts are parsed with exact
// decimal arithmetic and rounded half-up to two decimal places.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxMoney is the largest single amount accepted, 10 trillion units. Sums of
// up to ~9000 such amounts still fit in int64; sums beyond that are reported
// by the checked arithmetic below.
var MaxMoney = Money{Cents: 1_000_000_000_000_000}

// maxAmountLen bounds the textual form so parsing cost stays constant.
const maxAmountLen = 64

var maxCents = decimal.NewFromInt(MaxMoney.Cents)

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Zero is allowed, negative values are not.
// Exponent notation is refused and the result may not exceed MaxMoney.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,34")  -> 1234 cents
//	ParseMoney("12.345") -> 1235 cents
//	ParseMoney("-1")     -> ErrNegativeValue
//	ParseMoney("1e3")    -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if len(s) > maxAmountLen {
		return Money{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLen)
	}
	// decimal accepts exponents up to int32; rescaling those is unbounded work.
	if strings.ContainsAny(s, "eE") {
		return Money{}, fmt.Errorf("%w: %q uses exponent notation", ErrInvalidAmount, s)
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeValue
	}

	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: %q exceeds %s", ErrAmountTooLarge, s, MaxMoney)
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeValue
	}
	if m.Cents > MaxMoney.Cents {
		return ErrAmountTooLarge
	}
	return nil
}

// Decimal returns the amount as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m+o, or ErrBalanceOverflow when the sum does not fit in int64.
func (m Money) Add(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrBalanceOverflow, m, o)
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// Sub returns m-o, or ErrBalanceOverflow when the difference does not fit in int64.
func (m Money) Sub(o Money) (Money, error) {
	if o.Cents == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrBalanceOverflow, m, o)
	}
	return m.Add(Money{Cents: -o.Cents})
}

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return ErrInvalidAmount
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
