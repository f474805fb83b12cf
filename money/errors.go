/*
errors.go - Typed errors and validation guards for the money package

PURPOSE:
  All arithmetic and input errors in one place. Higher layers wrap these
  with domain context and use errors.Is/errors.As to classify them.

ERROR CATEGORIES:
  1. Arithmetic errors - division by zero
  2. Input errors - malformed decimal strings, out-of-range values

GUARDS:
  ValidateMoney, ValidateNonNegative and ValidateRate are used
  pervasively by the tax and finance layers. They fail fast with a
  specific error kind; they never clamp.

SEE ALSO:
  - money.go: The operations these guard
  - tax/calculator.go: Re-validates defensively at entry
*/
package money

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDivisionByZero is returned by Div when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrMalformedDecimal is returned when a string cannot be parsed as
	// a canonical decimal.
	ErrMalformedDecimal = errors.New("malformed decimal string")

	// ErrNegativeAmount is returned when a value that must be >= 0 is not.
	ErrNegativeAmount = errors.New("amount must be non-negative")

	// ErrRateOutOfRange is returned when a rate falls outside [0, 1].
	ErrRateOutOfRange = errors.New("rate outside [0, 1]")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedDecimalError reports the offending input.
type MalformedDecimalError struct {
	Input string
}

func (e *MalformedDecimalError) Error() string {
	return fmt.Sprintf("malformed decimal string: %q", e.Input)
}

func (e *MalformedDecimalError) Unwrap() error { return ErrMalformedDecimal }

// NegativeAmountError reports which field carried the negative value.
type NegativeAmountError struct {
	Field string
	Value Money
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("%s must be non-negative, got %s", e.Field, e.Value.String())
}

func (e *NegativeAmountError) Unwrap() error { return ErrNegativeAmount }

// RateOutOfRangeError reports which rate violated [0, 1].
type RateOutOfRangeError struct {
	Field string
	Value Rate
}

func (e *RateOutOfRangeError) Error() string {
	return fmt.Sprintf("%s outside [0, 1]: %s", e.Field, e.Value.String())
}

func (e *RateOutOfRangeError) Unwrap() error { return ErrRateOutOfRange }

// =============================================================================
// GUARDS
// =============================================================================

// ValidateMoney checks that s parses as a canonical decimal.
func ValidateMoney(s string) error {
	_, err := NewFromString(s)
	return err
}

// ValidateNonNegative rejects negative amounts. field names the input
// for the error message.
func ValidateNonNegative(field string, m Money) error {
	if m.IsNegative() {
		return &NegativeAmountError{Field: field, Value: m}
	}
	return nil
}

// ValidateRate rejects rates outside [0, 1].
func ValidateRate(r Rate) error {
	if r.Value.IsNegative() || r.Value.GreaterThan(one) {
		return &RateOutOfRangeError{Field: "rate", Value: r}
	}
	return nil
}

// ValidateRateField is ValidateRate with a named field for layered
// rate sets.
func ValidateRateField(field string, r Rate) error {
	if r.Value.IsNegative() || r.Value.GreaterThan(one) {
		return &RateOutOfRangeError{Field: field, Value: r}
	}
	return nil
}

// IsInputError returns true if the error is due to invalid caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMalformedDecimal) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrRateOutOfRange)
}
