// Package money provides exact minor-unit currency arithmetic.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is a monetary amount in minor currency units.
type Cents int64

// ErrPrecision indicates an amount with sub-cent precision.
var ErrPrecision = errors.New("money: amount has more than two decimal places")

var hundred = decimal.NewFromInt(100)

// Parse converts a decimal amount string ("1250.50") into Cents.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts an exact decimal amount into Cents.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, ErrPrecision
	}
	return Cents(scaled.IntPart()), nil
}

// Round converts a decimal amount into Cents, rounding half away from
// zero at the cent. Discount math lands on fractional cents, so receipts
// use this instead of FromDecimal.
func Round(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// Decimal returns the amount as an exact decimal in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount in major units, e.g. "1250.50".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string in major units.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var printer = message.NewPrinter(language.English)

// Display formats the amount with grouped thousands for human-facing
// messages, e.g. "12,500.50".
func (c Cents) Display() string {
	whole := int64(c) / 100
	frac := int64(c) % 100
	if frac < 0 {
		frac = -frac
	}
	if c < 0 && whole == 0 {
		return printer.Sprintf("-%d.%02d", whole, frac)
	}
	return printer.Sprintf("%d.%02d", whole, frac)
}
