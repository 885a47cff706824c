/*
Package money provides the integer minor-unit amount used across the engine.

PURPOSE:
  Every monetary value (salaries, line items, totals, asset costs) is an
  Amount: a whole number of the currency's minor units (cents, kobo, ...).
  Integer storage means repeated additions never drift. Anything that
  needs fractional math (percentages, hourly overtime, depreciation)
  goes through decimal.Decimal and is rounded back to an Amount once.

ROUNDING:
  Round-half-up to the nearest minor unit. decimal.Round rounds half away
  from zero, which is half-up for the non-negative values payroll deals
  in. Negative intermediate results are rejected by callers before they
  reach an Amount.

EXAMPLE:
  basic := money.Amount(1_200_000)
  housing := money.Percent(basic, decimal.NewFromInt(15)) // 180000
  fmt.Println(housing.Format(2))                          // "1800.00"

SEE ALSO:
  - payroll/calculator.go: Percentage and formula lines
  - depreciation/engine.go: Straight-line accumulation
*/
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a quantity of minor currency units.
type Amount int64

// Zero is the additive identity.
const Zero Amount = 0

var (
	hundred = decimal.NewFromInt(100)
	minUnit = decimal.NewFromInt(math.MinInt64)
	maxUnit = decimal.NewFromInt(math.MaxInt64)
)

// FromDecimal rounds d half-up to a whole minor unit. d must fit in an
// int64 after rounding; use FromDecimalChecked for untrusted values.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Round(0).IntPart())
}

// FromDecimalChecked is FromDecimal that reports false instead of
// wrapping when the rounded value is outside the int64 range.
func FromDecimalChecked(d decimal.Decimal) (Amount, bool) {
	r := d.Round(0)
	if r.LessThan(minUnit) || r.GreaterThan(maxUnit) {
		return 0, false
	}
	return Amount(r.IntPart()), true
}

// Percent returns base * pct / 100 rounded half-up.
func Percent(base Amount, pct decimal.Decimal) Amount {
	return FromDecimal(base.Decimal().Mul(pct).Div(hundred))
}

// MulDecimal returns a * factor rounded half-up.
func (a Amount) MulDecimal(factor decimal.Decimal) Amount {
	return FromDecimal(a.Decimal().Mul(factor))
}

func (a Amount) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(a)) }
func (a Amount) Add(b Amount) Amount      { return a + b }
func (a Amount) Sub(b Amount) Amount      { return a - b }
func (a Amount) IsNegative() bool         { return a < 0 }
func (a Amount) IsZero() bool             { return a == 0 }
func (a Amount) IsPositive() bool         { return a > 0 }
func (a Amount) Int64() int64             { return int64(a) }

func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// Format renders the amount in major units with scale fractional digits,
// e.g. Amount(123456).Format(2) == "1234.56". No grouping or symbol.
func (a Amount) Format(scale int32) string {
	return a.Decimal().Shift(-scale).StringFixed(scale)
}

// Parse reads a major-unit string ("1234.56") into minor units at scale.
// Extra precision is rounded half-up.
func Parse(s string, scale int32) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d.Shift(scale)), nil
}

func (a Amount) String() string {
	return fmt.Sprintf("%d", int64(a))
}
