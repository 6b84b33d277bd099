package entities

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of decimal places of the minor unit.
// Every currency the storefront sells in (LKR, USD, EUR) uses two.
const minorUnitExponent = 2

var ErrCurrencyMismatch = fmt.Errorf("currency mismatch")

// Money is an amount in minor units (cents) of a currency.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

func Zero(currency string) Money {
	return NewMoney(0, currency)
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, fmt.Errorf("amount overflow: %d + %d", m.Amount, other.Amount)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Mul multiplies by a positive quantity.
func (m Money) Mul(qty int64) (Money, error) {
	if qty <= 0 {
		return Money{}, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if m.Amount != 0 && (m.Amount > math.MaxInt64/qty || m.Amount < math.MinInt64/qty) {
		return Money{}, fmt.Errorf("amount overflow: %d x %d", m.Amount, qty)
	}
	return Money{Amount: m.Amount * qty, Currency: m.Currency}, nil
}

// MulRate applies a decimal rate (0.10 for 10%) and rounds half up to the minor unit.
func (m Money) MulRate(rate decimal.Decimal) Money {
	// Round is half away from zero, which is half up for the non-negative
	// amounts orders carry.
	v := decimal.NewFromInt(m.Amount).Mul(rate).Round(0)
	return Money{Amount: v.IntPart(), Currency: m.Currency}
}

func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

func (m Money) GreaterOrEqual(other Money) bool {
	return m.Currency == other.Currency && m.Amount >= other.Amount
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Decimal returns the amount in major units, e.g. 2700 -> 27.00.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -minorUnitExponent)
}

func (m Money) String() string {
	return m.Currency + " " + m.Decimal().StringFixed(minorUnitExponent)
}

// ParseMoney converts a major-unit decimal string ("27.00") into Money.
// Amounts with more precision than the minor unit are rejected, not rounded.
func ParseMoney(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	minor := d.Shift(minorUnitExponent)
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("invalid amount %q: more than %d decimal places", value, minorUnitExponent)
	}
	return NewMoney(minor.IntPart(), currency), nil
}
