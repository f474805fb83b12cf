/*
amortization.go - Per-period schedule expansion

PURPOSE:
  Expands a financed amount into ordered principal/interest/balance
  rows. Per-period interest is rounded to cents (each row is a
  presented figure), which accumulates a few cents of drift over a long
  term - the final period absorbs it so the ending balance is exactly
  zero. That reconciliation is mandatory: without it, a 60-month
  schedule typically strands a residual balance.

SCHEDULE SHAPE:
  Entries are numbered 1..term. Payment dates advance one calendar
  month per row from the start date. The sequence is finite and
  non-restartable; callers wanting a different term recompute.

SEE ALSO:
  - finance.go: The level payment the schedule is built around
*/
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/deal-engine/money"
)

// Entry is one period of an amortization schedule.
type Entry struct {
	PaymentNumber    int
	PaymentDate      time.Time
	PaymentAmount    money.Money
	Principal        money.Money
	Interest         money.Money
	RemainingBalance money.Money
}

// Schedule generates the full amortization schedule for a financed
// amount. A non-positive principal or zero term yields an empty
// schedule (terminal case). The final entry's RemainingBalance is
// exactly zero.
func Schedule(principal money.Money, apr decimal.Decimal, termMonths int, startDate time.Time) ([]Entry, error) {
	if apr.IsNegative() {
		return nil, fmt.Errorf("APR must be non-negative, got %s", apr.String())
	}
	if termMonths < 0 {
		return nil, fmt.Errorf("term must be non-negative, got %d", termMonths)
	}
	if !principal.IsPositive() || termMonths == 0 {
		return nil, nil
	}

	monthlyRate := MonthlyRate(apr)
	payment := levelPayment(principal, monthlyRate, termMonths).Round2()

	schedule := make([]Entry, 0, termMonths)
	remaining := principal.Round2()

	for period := 1; period <= termMonths; period++ {
		interest := money.Money{Value: remaining.Value.Mul(monthlyRate)}.Round2()
		principalPaid := payment.Sub(interest)
		paymentAmount := payment

		if period == termMonths {
			// Absorb the accumulated rounding drift: the last payment
			// retires whatever balance remains.
			principalPaid = remaining
			paymentAmount = principalPaid.Add(interest)
		}

		remaining = remaining.Sub(principalPaid)

		schedule = append(schedule, Entry{
			PaymentNumber:    period,
			PaymentDate:      startDate.AddDate(0, period, 0),
			PaymentAmount:    paymentAmount,
			Principal:        principalPaid,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}

	return schedule, nil
}
