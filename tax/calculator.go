/*
calculator.go - Layered rate application, caps, luxury tax

PURPOSE:
  Applies the jurisdiction's layered rate set to the assembled taxable
  base and produces the itemized breakdown. Owns the two reconciliation
  guarantees:
    1. Every breakdown line is rounded to cents exactly once, and the
       total is the exact sum of the rounded lines
    2. When a tax cap binds, the lines are scaled proportionally with a
       final-line residue adjustment so the sum still equals the capped
       total to the cent

CAP SEMANTICS:
  A binding cap is informational, not an error: the total is set to the
  cap, TaxCapApplied is flagged, and a note explains the adjustment.
  The cap governs the rate-derived tax (state, local, luxury); EV
  surcharges and incentives are flat statutory line items appended
  after capping.

FAILURE:
  InvalidRate (via money.ErrRateOutOfRange) when any component rate is
  outside [0, 1]. ErrNegativeBase when the taxable amount is negative
  at entry - unreachable through AssembleTaxableBase, re-checked here
  against future callers that bypass it.

SEE ALSO:
  - base.go: The taxable base this operates on
  - audit/validator.go: Independently re-derives these invariants
*/
package tax

import (
	"fmt"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// highEffectiveRateThreshold triggers an informational warning, never a
// failure. A quarter of jurisdictions plus luxury tax can legitimately
// land above 10%; 15% almost always means a data problem upstream.
var highEffectiveRateThreshold = money.MustRate("0.15")

// Calculate applies the jurisdiction's rates and rules to the input and
// returns the fully itemized result.
func Calculate(in Input, lookup jurisdiction.Lookup) (*Result, error) {
	if err := lookup.Rates.Validate(); err != nil {
		return nil, err
	}
	if err := lookup.Rules.Validate(); err != nil {
		return nil, err
	}

	base, notes, err := AssembleTaxableBase(in, lookup.Rules)
	if err != nil {
		return nil, err
	}
	if base.IsNegative() {
		return nil, ErrNegativeBase
	}

	result := &Result{
		Jurisdiction:  lookup.Jurisdiction,
		RulesVersion:  lookup.Rules.RulesVersion,
		TaxableAmount: base.Round2(),
		Notes:         notes,
	}

	lines, err := rateLines(base, lookup.Rates, in)
	if err != nil {
		return nil, err
	}

	if lookup.Rates.LocalRate().IsZero() {
		result.Warnings = append(result.Warnings,
			"no local tax data for this jurisdiction; local tax defaulted to zero")
	}

	// Cap the rate-derived tax before appending flat EV lines.
	rateTotal := money.Zero()
	for _, l := range lines {
		rateTotal = rateTotal.Add(l.Amount)
	}
	if lookup.Rules.TaxCap != nil && rateTotal.GreaterThan(*lookup.Rules.TaxCap) {
		lines = scaleToCap(lines, rateTotal, *lookup.Rules.TaxCap)
		result.TaxCapApplied = true
		result.Notes = append(result.Notes, fmt.Sprintf(
			"jurisdiction tax cap of %s applied; computed tax %s reduced and itemized lines scaled proportionally",
			lookup.Rules.TaxCap.StringFixed(), rateTotal.StringFixed()))
	}

	lines = append(lines, evLines(in)...)
	result.Breakdown = lines

	for _, l := range lines {
		switch l.Code {
		case LineStateTax:
			result.StateTax = result.StateTax.Add(l.Amount)
		case LineCountyTax, LineCityTax, LineDistrictTax:
			result.LocalTax = result.LocalTax.Add(l.Amount)
		case LineLuxuryTax:
			result.LuxuryTax = result.LuxuryTax.Add(l.Amount)
		}
		result.TotalTax = result.TotalTax.Add(l.Amount)
	}

	result.TotalFees = money.Sum(feeAmounts(in.feeItems())...).Round2()
	result.TotalTaxAndFees = result.TotalTax.Add(result.TotalFees)

	// An EV incentive above the rate-derived tax drives the total below
	// zero; a negative rate is meaningless, so the display rate floors
	// at zero like the zero-base case.
	if result.TotalTax.IsNegative() {
		result.EffectiveTaxRate = money.ZeroRate()
	} else {
		result.EffectiveTaxRate = money.PercentageOf(result.TotalTax, result.TaxableAmount)
	}

	if result.EffectiveTaxRate.GreaterThan(highEffectiveRateThreshold) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"unusually high effective tax rate %s; verify jurisdiction data", result.EffectiveTaxRate.StringFixed()))
	}

	return result, nil
}

// rateLines builds the percentage-derived breakdown lines, each rounded
// to cents at this single presentation step.
func rateLines(base money.Money, rates jurisdiction.TaxRateSet, in Input) ([]BreakdownLine, error) {
	var lines []BreakdownLine

	appendRateLine := func(code, label string, rate money.Rate) {
		if rate.IsZero() {
			return
		}
		r := rate
		lines = append(lines, BreakdownLine{
			Code:   code,
			Label:  label,
			Amount: base.MulRate(rate).Round2(),
			Rate:   &r,
		})
	}

	appendRateLine(LineStateTax, "State sales tax", rates.StateRate)
	appendRateLine(LineCountyTax, "County sales tax", rates.CountyRate)
	appendRateLine(LineCityTax, "City sales tax", rates.CityRate)
	appendRateLine(LineDistrictTax, "Special district tax", rates.SpecialDistrictRate)

	luxury, err := luxuryLine(base, in)
	if err != nil {
		return nil, err
	}
	if luxury != nil {
		lines = append(lines, *luxury)
	}

	return lines, nil
}

// luxuryLine computes tax on the portion of the base above the luxury
// threshold. Both threshold and rate must be configured together.
func luxuryLine(base money.Money, in Input) (*BreakdownLine, error) {
	if in.LuxuryThreshold == nil && in.LuxuryRate == nil {
		return nil, nil
	}
	if in.LuxuryThreshold == nil || in.LuxuryRate == nil {
		return nil, ErrIncompleteLuxuryConfig
	}
	if err := money.ValidateRateField("luxury rate", *in.LuxuryRate); err != nil {
		return nil, err
	}
	if err := money.ValidateNonNegative("luxury threshold", *in.LuxuryThreshold); err != nil {
		return nil, err
	}

	excess := base.Sub(*in.LuxuryThreshold)
	if !excess.IsPositive() {
		return nil, nil
	}

	r := *in.LuxuryRate
	return &BreakdownLine{
		Code:   LineLuxuryTax,
		Label:  "Luxury vehicle tax",
		Amount: excess.MulRate(r).Round2(),
		Rate:   &r,
	}, nil
}

// evLines appends the flat EV surcharge and incentive lines. These are
// statutory flat amounts, never blended into a percentage rate.
func evLines(in Input) []BreakdownLine {
	var lines []BreakdownLine
	if in.EVFee != nil && !in.EVFee.IsZero() {
		lines = append(lines, BreakdownLine{
			Code:   LineEVFee,
			Label:  "Electric vehicle fee",
			Amount: in.EVFee.Round2(),
		})
	}
	if in.EVIncentive != nil && !in.EVIncentive.IsZero() {
		lines = append(lines, BreakdownLine{
			Code:   LineEVIncentive,
			Label:  "Electric vehicle incentive",
			Amount: in.EVIncentive.Round2().Neg(),
		})
	}
	return lines
}

// scaleToCap scales every line by cap/total, rounding each to cents,
// and pushes the rounding residue into the final line so the scaled
// lines sum exactly to the cap. The same reconciliation move the
// amortization generator makes on its last period.
func scaleToCap(lines []BreakdownLine, total, cap money.Money) []BreakdownLine {
	scaled := make([]BreakdownLine, len(lines))
	running := money.Zero()

	for i, l := range lines {
		out := l
		if i == len(lines)-1 {
			out.Amount = cap.Sub(running)
		} else {
			// total > cap >= 0 here, so total is never zero.
			portion, _ := l.Amount.Mul(cap).Div(total)
			out.Amount = portion.Round2()
			running = running.Add(out.Amount)
		}
		scaled[i] = out
	}
	return scaled
}

// ApplyCap returns the lesser of total and cap. Exposed for callers
// that need the cap decision without a full calculation.
func ApplyCap(total, cap money.Money) money.Money {
	return total.Min(cap)
}

func feeAmounts(items []LineItem) []money.Money {
	amounts := make([]money.Money, len(items))
	for i, it := range items {
		amounts[i] = it.Amount
	}
	return amounts
}
