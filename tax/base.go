/*
base.go - Taxable base assembly

PURPOSE:
  Produces the taxable amount that the rate layers apply to. This is
  where jurisdiction rule variation lives: trade-in credit policy,
  rebate taxability, and the taxable/non-taxable classification of
  fee, product, and accessory line items.

ALGORITHM:
  1. Start from vehicle price
  2. Apply the jurisdiction's trade-in credit policy
  3. Subtract manufacturer rebates where the jurisdiction treats them
     as non-taxable (dealer rebates never reduce the base)
  4. Add all line items flagged taxable
  5. Clamp at zero - a large trade-in or rebate never produces a
     negative base

  Each step that changes the base appends a note so the audit display
  can narrate the derivation.

EDGE CASES:
  Zero vehicle price: base 0, no error. Trade-in exceeding price:
  clamps to 0.

SEE ALSO:
  - jurisdiction/types.go: TradeInCreditPolicy variants
  - calculator.go: Applies the rates to the assembled base
*/
package tax

import (
	"fmt"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// AssembleTaxableBase computes the taxable amount for the given input
// under the jurisdiction's rules. Returns the base and the notes that
// narrate each adjustment.
func AssembleTaxableBase(in Input, rules jurisdiction.RuleSet) (money.Money, []string, error) {
	if err := money.ValidateNonNegative("vehicle price", in.VehiclePrice); err != nil {
		return money.Zero(), nil, err
	}
	if err := money.ValidateNonNegative("trade-in value", in.TradeInValue); err != nil {
		return money.Zero(), nil, err
	}
	if err := money.ValidateNonNegative("manufacturer rebate", in.RebateManufacturer); err != nil {
		return money.Zero(), nil, err
	}
	if err := money.ValidateNonNegative("dealer rebate", in.RebateDealer); err != nil {
		return money.Zero(), nil, err
	}

	var notes []string
	base := in.VehiclePrice

	credit, creditNote, err := tradeInCredit(in.TradeInValue, rules.TradeInCredit)
	if err != nil {
		return money.Zero(), nil, err
	}
	if !credit.IsZero() {
		base = base.Sub(credit)
		notes = append(notes, creditNote)
	}

	if !in.RebateManufacturer.IsZero() {
		if rules.ManufacturerRebateTaxable {
			notes = append(notes, fmt.Sprintf("manufacturer rebate %s is taxable in this jurisdiction; no base reduction",
				in.RebateManufacturer.StringFixed()))
		} else {
			base = base.Sub(in.RebateManufacturer)
			notes = append(notes, fmt.Sprintf("manufacturer rebate reduces taxable base by %s",
				in.RebateManufacturer.StringFixed()))
		}
	}
	if !in.RebateDealer.IsZero() {
		// Dealer rebates reduce what the buyer pays, not what is taxed.
		notes = append(notes, fmt.Sprintf("dealer rebate %s does not reduce the taxable base",
			in.RebateDealer.StringFixed()))
	}

	taxableItems := sumWhere(in.lineItems(), true)
	if !taxableItems.IsZero() {
		base = base.Add(taxableItems)
		notes = append(notes, fmt.Sprintf("taxable fees, products and accessories add %s to the base",
			taxableItems.StringFixed()))
	}

	if base.IsNegative() {
		notes = append(notes, "adjustments exceeded vehicle price; taxable base clamped to 0.00")
		base = money.Zero()
	}

	return base, notes, nil
}

// tradeInCredit resolves the credited amount for a trade-in under the
// policy variant. The switch is exhaustive: an unknown kind is an
// error, never a silent no-op.
func tradeInCredit(tradeIn money.Money, policy jurisdiction.TradeInCreditPolicy) (money.Money, string, error) {
	if tradeIn.IsZero() {
		return money.Zero(), "", nil
	}

	switch policy.Kind {
	case jurisdiction.TradeInCreditNone:
		return money.Zero(), "", nil

	case jurisdiction.TradeInCreditFull:
		return tradeIn, fmt.Sprintf("full trade-in credit of %s applied", tradeIn.StringFixed()), nil

	case jurisdiction.TradeInCreditCapped:
		credited := tradeIn.Min(policy.CapAmount)
		if tradeIn.GreaterThan(policy.CapAmount) {
			return credited, fmt.Sprintf("trade-in credit capped at %s (trade-in value %s)",
				policy.CapAmount.StringFixed(), tradeIn.StringFixed()), nil
		}
		return credited, fmt.Sprintf("trade-in credit of %s applied (cap %s not reached)",
			credited.StringFixed(), policy.CapAmount.StringFixed()), nil

	case jurisdiction.TradeInCreditTaxOnDifference:
		// Same arithmetic as full credit; the statute phrases it as
		// taxing the difference, and the audit text must say so.
		return tradeIn, fmt.Sprintf("tax applies to price less trade-in (difference basis); %s excluded",
			tradeIn.StringFixed()), nil

	default:
		return money.Zero(), "", fmt.Errorf("unknown trade-in credit kind: %q", policy.Kind)
	}
}
