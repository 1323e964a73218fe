package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a currency-tagged amount. Amounts are always rounded to two
// decimal places and are never negative; subtraction that would go below
// zero fails instead of producing negative money.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney creates Money from a decimal amount and an ISO 4217 currency code.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	if err := ValidateCurrency(currency); err != nil {
		return Money{}, err
	}

	return Money{Amount: amount.Round(2), Currency: normalizeCurrency(currency)}, nil
}

// NewMoneyFromFloat creates Money from a float64 amount.
func NewMoneyFromFloat(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("%w: amount is not finite", ErrInvalidAmount)
	}

	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// NewMoneyFromString creates Money from a decimal string amount.
func NewMoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	return NewMoney(d, currency)
}

// Add returns the sum of m and other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}

	return Money{Amount: m.Amount.Add(other.Amount).Round(2), Currency: m.Currency}, nil
}

// Subtract returns m minus other. Fails on currency mismatch or if the
// result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}

	result := m.Amount.Sub(other.Amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m.Amount, other.Amount)
	}

	return Money{Amount: result.Round(2), Currency: m.Currency}, nil
}

// Multiply scales m by a non-negative factor.
func (m Money) Multiply(factor float64) (Money, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return Money{}, fmt.Errorf("%w: factor is not finite", ErrInvalidAmount)
	}

	if factor < 0 {
		return Money{}, fmt.Errorf("%w: factor %v is negative", ErrInvalidAmount, factor)
	}

	return Money{Amount: m.Amount.Mul(decimal.NewFromFloat(factor)).Round(2), Currency: m.Currency}, nil
}

// Divide splits m by a strictly positive divisor.
func (m Money) Divide(divisor float64) (Money, error) {
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) || divisor <= 0 {
		return Money{}, fmt.Errorf("%w: divisor must be positive and finite", ErrInvalidAmount)
	}

	return Money{Amount: m.Amount.Div(decimal.NewFromFloat(divisor)).Round(2), Currency: m.Currency}, nil
}

// Equals reports whether amount and currency both match.
func (m Money) Equals(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// GreaterThan compares amounts; currencies must match or it returns false.
func (m Money) GreaterThan(other Money) bool {
	return m.Currency == other.Currency && m.Amount.GreaterThan(other.Amount)
}

// LessThan compares amounts; currencies must match or it returns false.
func (m Money) LessThan(other Money) bool {
	return m.Currency == other.Currency && m.Amount.LessThan(other.Amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
