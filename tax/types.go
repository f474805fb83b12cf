/*
Package tax computes jurisdiction-specific sales tax for vehicle deals.

PURPOSE:
  This is the heart of the engine: the deterministic, side-effect-free
  pipeline that turns a deal's raw inputs (price, trade-in, rebates,
  fees, products, jurisdiction rules) into an itemized tax figure that
  reconciles to the cent and replays bit-for-bit given the same inputs
  and rules version.

KEY CONCEPTS IN THIS FILE (types.go):
  - LineItem: A fee/product/accessory with a taxable flag
  - Input: One calculation's raw inputs; never mutated after construction
  - BreakdownLine: One itemized component of the total tax
  - Result: The fully itemized outcome, with the invariant that the
    breakdown sums exactly to the total

DESIGN PRINCIPLES:
  1. Purity: Same Input + same rules version => byte-identical Result.
     No clock, no randomness, no hidden state in this package.
  2. Exact reconciliation: sum(breakdown) == TotalTax, bit-for-bit,
     including when a tax cap has been applied
  3. Determinism: Line items are normalized (duplicates summed, sorted
     by code) so collection order never changes the output

SEE ALSO:
  - base.go: Taxable base assembly (trade-in/rebate/fee policy)
  - calculator.go: Rate application, caps, luxury tax
  - jurisdiction/: The rule variants this package dispatches on
*/
package tax

import (
	"sort"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// =============================================================================
// LINE ITEMS - Fees, products, accessories
// =============================================================================

// LineItem is a fee, product, or accessory attached to a deal.
// Uniqueness by code is not required: duplicates are summed during
// normalization.
type LineItem struct {
	Code    string
	Name    string
	Amount  money.Money
	Taxable bool
}

// normalizeLineItems merges duplicate codes (amounts summed) and sorts
// by code. Sorting makes every downstream total and note deterministic
// regardless of input order.
func normalizeLineItems(items []LineItem) []LineItem {
	byCode := make(map[string]LineItem)
	for _, it := range items {
		if existing, ok := byCode[it.Code]; ok {
			existing.Amount = existing.Amount.Add(it.Amount)
			byCode[it.Code] = existing
			continue
		}
		byCode[it.Code] = it
	}

	merged := make([]LineItem, 0, len(byCode))
	for _, it := range byCode {
		merged = append(merged, it)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Code < merged[j].Code })
	return merged
}

func sumWhere(items []LineItem, taxable bool) money.Money {
	total := money.Zero()
	for _, it := range items {
		if it.Taxable == taxable {
			total = total.Add(it.Amount)
		}
	}
	return total
}

// =============================================================================
// INPUT - One calculation's raw inputs
// =============================================================================

// Input is created fresh per request and never mutated; every derived
// value is a new object.
type Input struct {
	VehiclePrice       money.Money
	TradeInValue       money.Money
	RebateManufacturer money.Money
	RebateDealer       money.Money

	// DocFee is folded in as a taxable fee line item.
	DocFee money.Money

	OtherFees   []LineItem
	Products    []LineItem
	Accessories []LineItem

	// Luxury tax applies to the portion of the taxable base above the
	// threshold. Both must be set together.
	LuxuryThreshold *money.Money
	LuxuryRate      *money.Rate

	// EV surcharge / incentive: flat line items, never blended into a rate.
	EVFee       *money.Money
	EVIncentive *money.Money
}

const docFeeCode = "DOC_FEE"

// lineItems returns the normalized union of doc fee, other fees,
// products and accessories.
func (in Input) lineItems() []LineItem {
	items := make([]LineItem, 0, 1+len(in.OtherFees)+len(in.Products)+len(in.Accessories))
	if !in.DocFee.IsZero() {
		items = append(items, LineItem{Code: docFeeCode, Name: "Documentation fee", Amount: in.DocFee, Taxable: true})
	}
	items = append(items, in.OtherFees...)
	items = append(items, in.Products...)
	items = append(items, in.Accessories...)
	return normalizeLineItems(items)
}

// feeItems returns just the fee lines (doc fee + other fees) for the
// fee totals; products and accessories are priced separately on a deal.
func (in Input) feeItems() []LineItem {
	items := make([]LineItem, 0, 1+len(in.OtherFees))
	if !in.DocFee.IsZero() {
		items = append(items, LineItem{Code: docFeeCode, Name: "Documentation fee", Amount: in.DocFee, Taxable: true})
	}
	items = append(items, in.OtherFees...)
	return normalizeLineItems(items)
}

// =============================================================================
// BREAKDOWN - Itemized tax components
// =============================================================================

// Breakdown line codes. Stable identifiers for audit display.
const (
	LineStateTax    = "STATE_TAX"
	LineCountyTax   = "COUNTY_TAX"
	LineCityTax     = "CITY_TAX"
	LineDistrictTax = "DISTRICT_TAX"
	LineLuxuryTax   = "LUXURY_TAX"
	LineEVFee       = "EV_FEE"
	LineEVIncentive = "EV_INCENTIVE"
)

// BreakdownLine is one itemized component of the total tax. Rate is nil
// for flat lines (EV fee/incentive).
type BreakdownLine struct {
	Code   string
	Label  string
	Amount money.Money
	Rate   *money.Rate
}

// =============================================================================
// RESULT - Fully itemized outcome
// =============================================================================

// Result is the outcome of one sales tax calculation.
// Invariant: Sum(Breakdown amounts) equals TotalTax exactly, including
// when TaxCapApplied is true.
type Result struct {
	Jurisdiction jurisdiction.Jurisdiction
	RulesVersion string

	TaxableAmount money.Money
	Breakdown     []BreakdownLine

	StateTax  money.Money
	LocalTax  money.Money
	LuxuryTax money.Money
	TotalTax  money.Money

	TotalFees        money.Money
	TotalTaxAndFees  money.Money
	EffectiveTaxRate money.Rate

	TaxCapApplied bool

	Warnings []string
	Notes    []string
}

// BreakdownSum re-adds the breakdown lines. The validator uses this to
// prove the reconciliation invariant instead of trusting TotalTax.
func (r *Result) BreakdownSum() money.Money {
	total := money.Zero()
	for _, line := range r.Breakdown {
		total = total.Add(line.Amount)
	}
	return total
}

// =============================================================================
// DEAL RESULT - Full-deal variant
// =============================================================================

// DealResult extends Result with the whole-deal totals the deal
// workflow needs: taxable/non-taxable splits across every line item and
// the grand total.
type DealResult struct {
	Result

	TotalTaxable      money.Money // taxable base the rates were applied to
	TotalNonTaxable   money.Money // non-taxable fees/products/accessories
	TotalTaxesAndFees money.Money
}
