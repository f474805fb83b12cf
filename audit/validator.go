/*
validator.go - Independent invariant re-derivation

PURPOSE:
  Re-checks a finished calculation from first principles. Every check
  re-derives its answer from the result and rules - it never trusts a
  stored boolean or total. A failing error-severity check means an
  engine defect or corrupted rules table; the caller must not persist
  that result as final.

CHECKS:
  breakdown_sum_matches_total  exact equality, not tolerance-based
  rate_within_bounds           every component rate in [0, 1]
  taxable_amount_valid         taxable amount >= 0
  jurisdiction_current         rules version active at calculation time

SEVERITY:
  Error-severity failures block the calculation from being final.
  Warning-severity findings (unusually high effective rate) are
  informational and never block.

SEE ALSO:
  - tax/calculator.go: Where the invariants are first established
  - record.go: What a passing calculation gets snapshotted into
*/
package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
	"github.com/warp/deal-engine/tax"
)

// ErrValidationCheckFailed indicates a recomputed invariant did not
// hold. Fatal to that calculation: the result must not be persisted as
// a final record.
var ErrValidationCheckFailed = errors.New("validation check failed")

// Severity classifies a check outcome.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check names. Stable identifiers for audit display and assertions.
const (
	CheckBreakdownSum        = "breakdown_sum_matches_total"
	CheckRateWithinBounds    = "rate_within_bounds"
	CheckTaxableAmountValid  = "taxable_amount_valid"
	CheckJurisdictionCurrent = "jurisdiction_current"
	CheckEffectiveRate       = "effective_rate_reasonable"
)

// Check is one re-derived invariant outcome.
type Check struct {
	Name     string
	Passed   bool
	Severity Severity
	Detail   string
}

// Report is the full validation outcome for one calculation.
type Report struct {
	Checks []Check

	BreakdownSumMatchesTotal bool
	RateWithinBounds         bool
	TaxableAmountValid       bool
	JurisdictionCurrent      bool

	// AllChecksPass is true only when every error-severity check
	// passed. Warnings do not affect it.
	AllChecksPass bool
}

// FailedErrors returns the error-severity checks that failed.
func (r Report) FailedErrors() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed && c.Severity == SeverityError {
			failed = append(failed, c)
		}
	}
	return failed
}

// Warnings returns the warning-severity findings.
func (r Report) Warnings() []Check {
	var warns []Check
	for _, c := range r.Checks {
		if !c.Passed && c.Severity == SeverityWarning {
			warns = append(warns, c)
		}
	}
	return warns
}

// Err returns a ValidationFailedError when any error-severity check
// failed, nil otherwise.
func (r Report) Err() error {
	failed := r.FailedErrors()
	if len(failed) == 0 {
		return nil
	}
	return &ValidationFailedError{Failed: failed}
}

// ValidationFailedError lists the checks that did not hold.
type ValidationFailedError struct {
	Failed []Check
}

func (e *ValidationFailedError) Error() string {
	names := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		names[i] = c.Name
	}
	return fmt.Sprintf("validation checks failed: %s", strings.Join(names, ", "))
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationCheckFailed }

// highEffectiveRate mirrors the calculator's warning threshold; the
// validator re-derives the judgment rather than trusting the result's
// warning list.
var highEffectiveRate = money.MustRate("0.15")

// ValidateTaxCalculation re-derives every invariant for a finished
// calculation. at is the calculation time the rules version is checked
// against.
func ValidateTaxCalculation(result *tax.Result, lookup jurisdiction.Lookup, at time.Time) Report {
	var report Report

	add := func(name string, passed bool, sev Severity, detail string) {
		report.Checks = append(report.Checks, Check{Name: name, Passed: passed, Severity: sev, Detail: detail})
	}

	// Breakdown reconciliation: exact, not "close enough".
	sum := result.BreakdownSum()
	report.BreakdownSumMatchesTotal = sum.Equal(result.TotalTax)
	add(CheckBreakdownSum, report.BreakdownSumMatchesTotal, SeverityError,
		fmt.Sprintf("breakdown sum %s vs total %s", sum.StringFixed(), result.TotalTax.StringFixed()))

	report.RateWithinBounds = lookup.Rates.Validate() == nil
	add(CheckRateWithinBounds, report.RateWithinBounds, SeverityError,
		fmt.Sprintf("total rate %s", lookup.Rates.TotalRate().StringFixed()))

	report.TaxableAmountValid = !result.TaxableAmount.IsNegative()
	add(CheckTaxableAmountValid, report.TaxableAmountValid, SeverityError,
		fmt.Sprintf("taxable amount %s", result.TaxableAmount.StringFixed()))

	report.JurisdictionCurrent = lookup.Rules.ActiveAt(at)
	add(CheckJurisdictionCurrent, report.JurisdictionCurrent, SeverityError,
		fmt.Sprintf("rules version %s at %s", lookup.Rules.RulesVersion, at.Format(time.RFC3339)))

	// Informational: recomputed effective rate sanity.
	effective := money.PercentageOf(result.TotalTax, result.TaxableAmount)
	reasonable := !effective.GreaterThan(highEffectiveRate)
	add(CheckEffectiveRate, reasonable, SeverityWarning,
		fmt.Sprintf("effective rate %s", effective.StringFixed()))

	report.AllChecksPass = report.BreakdownSumMatchesTotal &&
		report.RateWithinBounds &&
		report.TaxableAmountValid &&
		report.JurisdictionCurrent

	return report
}
