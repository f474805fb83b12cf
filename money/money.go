/*
Package money provides the exact decimal arithmetic primitives for the
deal calculation engine.

PURPOSE:
  Every monetary quantity and tax rate in the engine flows through this
  package. It wraps decimal.Decimal so that no binary float ever touches
  a value that affects a stored or returned total.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: An exact decimal monetary quantity
  - Rate: An exact decimal fraction in [0, 1]

DESIGN PRINCIPLES:
  1. Exactness: Comparisons are exact, never epsilon-based
  2. Late rounding: Intermediate chains keep full precision; rounding to
     cents happens once, at the presentation boundary (StringFixed/Round2)
  3. String boundaries: Values enter and leave as canonical decimal
     strings, never as float64
  4. Fail fast: Guards reject bad input with typed errors instead of
     silently clamping

ROUNDING POLICY:
  Round half-up to 2 decimal places for currency output, 4 places for
  rates. Division carries 28 digits so chained operations keep well over
  20 significant digits.

USAGE:
  price := money.MustParse("35000")
  rate, _ := money.NewRate("0.0725")
  tax := price.MulRate(rate)
  fmt.Println(tax.StringFixed()) // "2537.50"

SEE ALSO:
  - errors.go: Typed errors and validation guards
  - tax/: The consumers of these primitives
*/
package money

import (
	"github.com/shopspring/decimal"
)

// divPrecision is the number of digits carried through division so that
// chained intermediate results keep at least 20 significant digits.
const divPrecision = 28

// =============================================================================
// MONEY - Exact decimal monetary quantity
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

// NewFromString parses a canonical decimal string into Money.
// Rejects anything decimal.NewFromString rejects: empty strings,
// scientific garbage, thousands separators, currency symbols.
func NewFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &MalformedDecimalError{Input: s}
	}
	return Money{Value: d}, nil
}

// MustParse parses a decimal string or panics. For rule tables and tests
// where the literal is known good.
func MustParse(s string) Money {
	m, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(o Money) Money { return Money{Value: m.Value.Mul(o.Value)} }
func (m Money) Neg() Money        { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money        { return Money{Value: m.Value.Abs()} }

// Div divides m by o, carrying divPrecision digits.
// Returns ErrDivisionByZero when o is zero; callers that can see a zero
// divisor (zero term, zero base) must special-case it instead of
// catching the error.
func (m Money) Div(o Money) (Money, error) {
	if o.Value.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return Money{Value: m.Value.DivRound(o.Value, divPrecision)}, nil
}

// MulRate applies a tax/interest rate to a monetary amount.
func (m Money) MulRate(r Rate) Money { return Money{Value: m.Value.Mul(r.Value)} }

func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Sum adds any number of amounts exactly.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Value)
	}
	return Money{Value: total}
}

// PercentageOf returns part/whole as a fraction. Returns zero (not an
// error, not NaN) when whole is zero: "0% of nothing" is the answer the
// effective-rate display needs.
func PercentageOf(part, whole Money) Rate {
	if whole.Value.IsZero() {
		return Rate{Value: decimal.Zero}
	}
	return Rate{Value: part.Value.DivRound(whole.Value, divPrecision)}
}

// Round2 rounds to 2 decimal places, half-up. This is the single
// presentation-rounding step of a computation chain; do not round
// intermediates.
func (m Money) Round2() Money {
	return Money{Value: m.Value.Round(2)}
}

// StringFixed renders the amount with exactly 2 decimal places,
// rounding half-up. This is the only form that crosses an API boundary.
func (m Money) StringFixed() string {
	return m.Value.StringFixed(2)
}

// String renders the full-precision internal value. Diagnostic only.
func (m Money) String() string { return m.Value.String() }

// MarshalJSON emits the canonical 2-place string form.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed() + `"`), nil
}

// UnmarshalJSON accepts only string-encoded decimals. A bare JSON number
// would have passed through float64 in most producers, so it is rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &MalformedDecimalError{Input: string(data)}
	}
	parsed, err := NewFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// RATE - Exact decimal fraction in [0, 1]
// =============================================================================

type Rate struct {
	Value decimal.Decimal
}

var one = decimal.NewFromInt(1)

// NewRate parses a canonical decimal string and enforces [0, 1].
func NewRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, &MalformedDecimalError{Input: s}
	}
	r := Rate{Value: d}
	if err := ValidateRate(r); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// MustRate parses a rate string or panics. For rule tables and tests.
func MustRate(s string) Rate {
	r, err := NewRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

func ZeroRate() Rate { return Rate{Value: decimal.Zero} }

func (r Rate) Add(o Rate) Rate { return Rate{Value: r.Value.Add(o.Value)} }
func (r Rate) IsZero() bool    { return r.Value.IsZero() }

func (r Rate) Equal(o Rate) bool       { return r.Value.Equal(o.Value) }
func (r Rate) GreaterThan(o Rate) bool { return r.Value.GreaterThan(o.Value) }

// StringFixed renders the rate with at least 4 decimal places. Rates
// with more precision keep it: "0.07375" stays "0.07375".
func (r Rate) StringFixed() string {
	if r.Value.Exponent() < -4 {
		return r.Value.String()
	}
	return r.Value.StringFixed(4)
}

func (r Rate) String() string { return r.Value.String() }

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.StringFixed() + `"`), nil
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &MalformedDecimalError{Input: string(data)}
	}
	parsed, err := NewRate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
