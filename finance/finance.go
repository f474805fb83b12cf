/*
Package finance computes deal-financing figures: level finance
payments, lease payments, and amortization schedules.

PURPOSE:
  Takes the tax engine's output plus financing terms and produces the
  payment figures on the deal sheet. Pure decimal arithmetic end to
  end; rounding to cents happens once, at the presentation step.

KEY CONCEPTS IN THIS FILE (finance.go):
  - Trade equity: allowance minus payoff; negative equity rolls into
    the amount financed
  - Amount financed: price - down - tradeEquity + tax + fees
  - Level payment: P * r(1+r)^n / ((1+r)^n - 1)

TERMINAL CASES (not errors):
  Amount financed <= 0 (deal fully covered by trade equity) or a zero
  term yields a zero payment. Zero APR yields an exact even split -
  special-cased so the formula never divides zero by zero.

USAGE:
  result, err := finance.CalculatePayment(finance.PaymentInput{
      VehiclePrice: money.MustParse("35000"),
      DownPayment:  money.MustParse("5000"),
      APR:          decimal.NewFromFloat(5.9),
      TermMonths:   60,
      TotalTax:     money.MustParse("2015.43"),
      TotalFees:    money.MustParse("364.00"),
  })

SEE ALSO:
  - lease.go: Capitalized cost and money factor math
  - amortization.go: Per-period schedule expansion
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/deal-engine/money"
)

// divPrecision matches the money package: chains keep well over 20
// significant digits before the final rounding.
const divPrecision = 28

var (
	twelveHundred = decimal.NewFromInt(1200)
	oneDec        = decimal.NewFromInt(1)
)

// =============================================================================
// FINANCE PAYMENT
// =============================================================================

// PaymentInput describes a finance deal. APR is the annual percentage
// rate as a percent figure (5.9 means 5.9%), parsed from a canonical
// decimal string at the boundary.
type PaymentInput struct {
	VehiclePrice   money.Money
	DownPayment    money.Money
	TradeAllowance money.Money
	TradePayoff    money.Money
	APR            decimal.Decimal
	TermMonths     int
	TotalTax       money.Money
	TotalFees      money.Money
}

// PaymentResult is the computed financing outcome, all values rounded
// to cents at presentation.
type PaymentResult struct {
	MonthlyPayment money.Money
	AmountFinanced money.Money
	TradeEquity    money.Money
	TotalCost      money.Money
	TotalInterest  money.Money
}

// CalculatePayment computes amount financed and the level monthly
// payment for a finance deal.
func CalculatePayment(in PaymentInput) (*PaymentResult, error) {
	if in.APR.IsNegative() {
		return nil, fmt.Errorf("APR must be non-negative, got %s", in.APR.String())
	}
	if in.TermMonths < 0 {
		return nil, fmt.Errorf("term must be non-negative, got %d", in.TermMonths)
	}
	if err := money.ValidateNonNegative("vehicle price", in.VehiclePrice); err != nil {
		return nil, err
	}

	// Negative equity (payoff above allowance) increases the amount financed.
	tradeEquity := in.TradeAllowance.Sub(in.TradePayoff)

	amountFinanced := in.VehiclePrice.
		Sub(in.DownPayment).
		Sub(tradeEquity).
		Add(in.TotalTax).
		Add(in.TotalFees)

	result := &PaymentResult{
		AmountFinanced: amountFinanced.Round2(),
		TradeEquity:    tradeEquity.Round2(),
	}

	// Fully covered by down payment / trade equity, or nothing to
	// amortize over: valid terminal case, zero payment.
	if !amountFinanced.IsPositive() || in.TermMonths == 0 {
		result.MonthlyPayment = money.Zero()
		result.AmountFinanced = amountFinanced.Round2()
		result.TotalCost = money.Zero()
		result.TotalInterest = money.Zero()
		if !amountFinanced.IsPositive() {
			result.AmountFinanced = money.Zero()
		}
		return result, nil
	}

	monthlyRate := MonthlyRate(in.APR)
	payment := levelPayment(amountFinanced, monthlyRate, in.TermMonths).Round2()
	result.MonthlyPayment = payment

	// Zero APR: the borrower repays exactly the amount financed, no
	// interest. Deriving the cost from the rounded payment would
	// fabricate a stray cent on principals the term does not divide.
	if monthlyRate.IsZero() {
		result.TotalCost = result.AmountFinanced
		result.TotalInterest = money.Zero()
		return result, nil
	}

	term := decimal.NewFromInt(int64(in.TermMonths))
	totalCost := money.Money{Value: payment.Value.Mul(term)}
	result.TotalCost = totalCost.Round2()
	result.TotalInterest = totalCost.Sub(result.AmountFinanced).Round2()
	return result, nil
}

// MonthlyRate converts a percent APR to the periodic monthly rate:
// APR / 12 / 100.
func MonthlyRate(apr decimal.Decimal) decimal.Decimal {
	if apr.IsZero() {
		return decimal.Zero
	}
	return apr.DivRound(twelveHundred, divPrecision)
}

// levelPayment computes the unrounded level payment. Zero rate is an
// exact even split; the caller guarantees term > 0 and principal > 0.
func levelPayment(principal money.Money, monthlyRate decimal.Decimal, term int) money.Money {
	n := decimal.NewFromInt(int64(term))
	if monthlyRate.IsZero() {
		return money.Money{Value: principal.Value.DivRound(n, divPrecision)}
	}

	// P * r(1+r)^n / ((1+r)^n - 1)
	factor := oneDec.Add(monthlyRate).Pow(n)
	numerator := principal.Value.Mul(monthlyRate).Mul(factor)
	denominator := factor.Sub(oneDec)
	return money.Money{Value: numerator.DivRound(denominator, divPrecision)}
}
