/*
errors.go - Error types for the tax engine

PURPOSE:
  Sentinel errors for the calculator's failure modes. Input and rate
  errors from the money package pass through unwrapped so callers can
  classify with errors.Is against either package.

PROPAGATION POLICY:
  Arithmetic and input errors are raised immediately and never retried
  here; retry, if any, belongs to the calling workflow. A binding tax
  cap is informational (note + flag on the Result), never an error.

SEE ALSO:
  - money/errors.go: ErrMalformedDecimal, ErrRateOutOfRange, guards
  - calculator.go: Where these are raised
*/
package tax

import "errors"

var (
	// ErrNegativeBase is returned when a taxable amount is negative at
	// calculator entry. The assembler clamps at zero, so this fires only
	// when a caller bypasses it.
	ErrNegativeBase = errors.New("taxable amount is negative")

	// ErrIncompleteLuxuryConfig is returned when only one of luxury
	// threshold and luxury rate is supplied.
	ErrIncompleteLuxuryConfig = errors.New("luxury threshold and rate must be configured together")
)
