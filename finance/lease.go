/*
lease.go - Lease payment calculation

PURPOSE:
  Computes capitalized cost, depreciation charge, rent charge, and the
  level lease payment. The money factor stays a money factor inside the
  formula; the APR conversions exist for display and rate comparison
  only.

ALGORITHM:
  capCost      = price + fees + tax - down - tradeEquity
  depreciation = (capCost - residual) / term
  rentCharge   = (capCost + residual) * moneyFactor
  payment      = depreciation + rentCharge

TERMINAL CASES:
  capCost <= 0 or term 0 yields a zero payment, not an error.

SEE ALSO:
  - finance.go: The finance-deal counterpart
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/deal-engine/money"
)

var twentyFourHundred = decimal.NewFromInt(2400)

// LeaseInput describes a lease deal. MoneyFactor is the lease rate as a
// small decimal (0.00125 ~ 3.0% APR).
type LeaseInput struct {
	VehiclePrice  money.Money
	DownPayment   money.Money
	TradeEquity   money.Money
	MoneyFactor   decimal.Decimal
	TermMonths    int
	ResidualValue money.Money
	TotalTax      money.Money
	TotalFees     money.Money
}

// LeaseResult is the computed lease outcome, rounded to cents at
// presentation.
type LeaseResult struct {
	CapitalizedCost money.Money
	Depreciation    money.Money
	RentCharge      money.Money
	MonthlyPayment  money.Money
}

// CalculateLease computes the level lease payment.
func CalculateLease(in LeaseInput) (*LeaseResult, error) {
	if in.MoneyFactor.IsNegative() {
		return nil, fmt.Errorf("money factor must be non-negative, got %s", in.MoneyFactor.String())
	}
	if in.TermMonths < 0 {
		return nil, fmt.Errorf("term must be non-negative, got %d", in.TermMonths)
	}
	if err := money.ValidateNonNegative("residual value", in.ResidualValue); err != nil {
		return nil, err
	}

	capCost := in.VehiclePrice.
		Add(in.TotalFees).
		Add(in.TotalTax).
		Sub(in.DownPayment).
		Sub(in.TradeEquity)

	result := &LeaseResult{CapitalizedCost: capCost.Round2()}

	if !capCost.IsPositive() || in.TermMonths == 0 {
		result.CapitalizedCost = capCost.Max(money.Zero()).Round2()
		result.Depreciation = money.Zero()
		result.RentCharge = money.Zero()
		result.MonthlyPayment = money.Zero()
		return result, nil
	}

	term := decimal.NewFromInt(int64(in.TermMonths))
	depreciation := capCost.Sub(in.ResidualValue).Value.DivRound(term, divPrecision)
	rentCharge := capCost.Add(in.ResidualValue).Value.Mul(in.MoneyFactor)

	result.Depreciation = money.Money{Value: depreciation}.Round2()
	result.RentCharge = money.Money{Value: rentCharge}.Round2()
	result.MonthlyPayment = money.Money{Value: depreciation.Add(rentCharge)}.Round2()
	return result, nil
}

// MoneyFactorToAPR converts a money factor to its APR equivalent
// (mf * 2400). Display and comparison only - never used inside the
// payment formula.
func MoneyFactorToAPR(mf decimal.Decimal) decimal.Decimal {
	return mf.Mul(twentyFourHundred)
}

// APRToMoneyFactor is the inverse conversion (apr / 2400).
func APRToMoneyFactor(apr decimal.Decimal) decimal.Decimal {
	return apr.DivRound(twentyFourHundred, divPrecision)
}
