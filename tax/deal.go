/*
deal.go - Full-deal tax calculation

PURPOSE:
  The full-deal variant of the calculator: same pipeline, plus the
  whole-deal aggregates the deal workflow consumes - taxable and
  non-taxable totals across every line item, an informational split of
  the tax between the vehicle and its add-ons, and the grand total.

VEHICLE/FEES TAX SPLIT:
  VehicleTax and FeesTax split the rate-derived tax between the vehicle
  portion of the base and the taxable add-ons, each rounded separately.
  They are display figures for the deal sheet; TotalTax remains the sum
  of the breakdown lines.

SEE ALSO:
  - calculator.go: The underlying pipeline
  - api/handlers.go: POST /api/tax/calculate-deal-taxes
*/
package tax

import (
	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// FullDealResult extends DealResult with the vehicle/fees tax split.
type FullDealResult struct {
	DealResult

	VehicleTax money.Money
	FeesTax    money.Money
}

// CalculateDeal runs the full-deal calculation: the standard pipeline
// plus whole-deal aggregates.
func CalculateDeal(in Input, lookup jurisdiction.Lookup) (*FullDealResult, error) {
	result, err := Calculate(in, lookup)
	if err != nil {
		return nil, err
	}

	items := in.lineItems()
	taxableItems := sumWhere(items, true)
	nonTaxable := sumWhere(items, false)

	// Vehicle portion of the base: everything the assembler produced
	// before the taxable add-ons were folded in, floored at zero.
	vehicleBase := result.TaxableAmount.Sub(taxableItems).Max(money.Zero())
	totalRate := lookup.Rates.TotalRate()

	full := &FullDealResult{
		DealResult: DealResult{
			Result:            *result,
			TotalTaxable:      result.TaxableAmount,
			TotalNonTaxable:   nonTaxable.Round2(),
			TotalTaxesAndFees: result.TotalTaxAndFees,
		},
		VehicleTax: vehicleBase.MulRate(totalRate).Round2(),
		FeesTax:    taxableItems.MulRate(totalRate).Round2(),
	}

	return full, nil
}
