package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a money value in minor units (cents).
type Amount int64

const amountScale = 2

// MaxAmount bounds every stored or computed amount (10 trillion in major
// units), far below the int64 range.
const MaxAmount Amount = 1_000_000_000_000_000

var ErrAmountOutOfRange = errors.New("amount out of range")

var maxAmountDecimal = decimal.NewFromInt(int64(MaxAmount))

// ParseAmount converts a decimal string like "12.50" to an Amount.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amountFromDecimal(d)
}

func amountFromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(amountScale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), amountScale)
	}
	if shifted.Abs().GreaterThan(maxAmountDecimal) {
		return 0, fmt.Errorf("amount %s: %w", d.String(), ErrAmountOutOfRange)
	}
	return Amount(shifted.IntPart()), nil
}

func (a Amount) inRange() bool {
	return a >= -MaxAmount && a <= MaxAmount
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -amountScale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(amountScale)
}

// Add returns a+b, or ErrAmountOutOfRange when the sum leaves the
// allowed range.
func (a Amount) Add(b Amount) (Amount, error) {
	if !a.inRange() || !b.inRange() {
		return 0, ErrAmountOutOfRange
	}
	sum := a + b
	if !sum.inRange() {
		return 0, ErrAmountOutOfRange
	}
	return sum, nil
}

// Mul multiplies the amount by a quantity, e.g. ticket price times tickets.
func (a Amount) Mul(n int) (Amount, error) {
	if !a.inRange() {
		return 0, ErrAmountOutOfRange
	}
	return amountFromDecimal(a.Decimal().Mul(decimal.NewFromInt(int64(n))))
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := amountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// UnmarshalParam lets gin bind form and query values into an Amount.
func (a *Amount) UnmarshalParam(param string) error {
	v, err := ParseAmount(param)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
