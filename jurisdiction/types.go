/*
Package jurisdiction defines tax jurisdictions and the rule variants
that govern how a deal is taxed within them.

PURPOSE:
  A vehicle sale is taxed by the combination of state, county, city and
  special district the buyer registers in. This package carries the
  resolved jurisdiction, its layered rate set, and the closed set of
  rule variants (trade-in credit, rebate taxability, tax caps) that the
  tax engine dispatches on.

KEY CONCEPTS IN THIS FILE (types.go):
  - Jurisdiction: Resolved once per calculation, immutable afterwards
  - TaxRateSet: Layered state/county/city/district rates; the total is
    recomputed from the components on every call, never stored
  - TradeInCreditPolicy: Closed tagged variant - adding a policy kind is
    a compile-time-checked change, not a silently-ignored string
  - RuleSet: Versioned jurisdiction rules with an active window

DESIGN PRINCIPLES:
  1. Closed variants: Exhaustive switches over TradeInCreditKind; an
     unknown kind is an error, never a no-op
  2. No drift: TotalRate() is derived, so the sum invariant cannot rot
  3. Versioning: Every RuleSet carries the rules version that audit
     records pin, so a historical calculation can be replayed

SEE ALSO:
  - resolver.go: Postal code -> jurisdiction lookup
  - cache.go: TTL read-through cache over a resolver
  - tax/: Consumes these rules
*/
package jurisdiction

import (
	"fmt"
	"time"

	"github.com/warp/deal-engine/money"
)

// =============================================================================
// JURISDICTION - Where the transaction is taxed
// =============================================================================

type Jurisdiction struct {
	PostalCode      string
	State           string
	County          string
	City            string
	SpecialDistrict string // empty when none applies
}

// =============================================================================
// TAX RATE SET - Layered rates; total always derived
// =============================================================================

type TaxRateSet struct {
	StateRate           money.Rate
	CountyRate          money.Rate
	CityRate            money.Rate
	SpecialDistrictRate money.Rate
}

// TotalRate is recomputed from the components on every call. It is
// deliberately not a stored field: a stored total could drift from the
// components it claims to summarize.
func (rs TaxRateSet) TotalRate() money.Rate {
	return rs.StateRate.Add(rs.CountyRate).Add(rs.CityRate).Add(rs.SpecialDistrictRate)
}

// LocalRate is the combined county + city + district rate.
func (rs TaxRateSet) LocalRate() money.Rate {
	return rs.CountyRate.Add(rs.CityRate).Add(rs.SpecialDistrictRate)
}

// Validate enforces [0, 1] on every component rate.
func (rs TaxRateSet) Validate() error {
	if err := money.ValidateRateField("state rate", rs.StateRate); err != nil {
		return err
	}
	if err := money.ValidateRateField("county rate", rs.CountyRate); err != nil {
		return err
	}
	if err := money.ValidateRateField("city rate", rs.CityRate); err != nil {
		return err
	}
	if err := money.ValidateRateField("special district rate", rs.SpecialDistrictRate); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// TRADE-IN CREDIT POLICY - Closed tagged variant
// =============================================================================

// TradeInCreditKind enumerates how a jurisdiction credits trade-in value
// against the taxable base. The set is closed: the tax engine switches
// exhaustively and returns an error for anything else.
type TradeInCreditKind string

const (
	// TradeInCreditNone: trade-in value does not reduce the taxable base.
	TradeInCreditNone TradeInCreditKind = "none"

	// TradeInCreditFull: full trade-in value reduces the taxable base.
	TradeInCreditFull TradeInCreditKind = "full"

	// TradeInCreditCapped: trade-in credit limited to CapAmount
	// (e.g. Michigan's statutory cap).
	TradeInCreditCapped TradeInCreditKind = "capped"

	// TradeInCreditTaxOnDifference: tax applies to price minus trade-in.
	// Numerically identical to full credit; kept distinct because the
	// audit narrative must cite the statute's wording.
	TradeInCreditTaxOnDifference TradeInCreditKind = "tax_on_difference"
)

type TradeInCreditPolicy struct {
	Kind TradeInCreditKind

	// CapAmount is required when Kind is TradeInCreditCapped, ignored
	// otherwise.
	CapAmount money.Money
}

// Validate rejects unknown kinds and a capped policy without a positive cap.
func (p TradeInCreditPolicy) Validate() error {
	switch p.Kind {
	case TradeInCreditNone, TradeInCreditFull, TradeInCreditTaxOnDifference:
		return nil
	case TradeInCreditCapped:
		if !p.CapAmount.IsPositive() {
			return fmt.Errorf("capped trade-in credit requires a positive cap, got %s", p.CapAmount.String())
		}
		return nil
	default:
		return fmt.Errorf("unknown trade-in credit kind: %q", p.Kind)
	}
}

// =============================================================================
// RULE SET - Versioned jurisdiction rules
// =============================================================================

// RuleSet bundles the jurisdiction-specific rules the tax engine
// dispatches on. Supplied already validated by the rules collaborator;
// the engine re-validates defensively but never authors rules.
type RuleSet struct {
	RulesVersion string

	TradeInCredit TradeInCreditPolicy

	// ManufacturerRebateTaxable: when false, manufacturer rebates reduce
	// the taxable base. Dealer rebates are always taxable regardless.
	ManufacturerRebateTaxable bool

	// TaxCap, when set, is the ceiling on total tax owed.
	TaxCap *money.Money

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = still active
}

// ActiveAt reports whether this rule set governs calculations at t.
func (rs RuleSet) ActiveAt(t time.Time) bool {
	if t.Before(rs.EffectiveFrom) {
		return false
	}
	if rs.EffectiveTo != nil && t.After(*rs.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the parts of a rule set the engine depends on.
func (rs RuleSet) Validate() error {
	if rs.RulesVersion == "" {
		return fmt.Errorf("rule set missing rules version")
	}
	if err := rs.TradeInCredit.Validate(); err != nil {
		return err
	}
	if rs.TaxCap != nil && rs.TaxCap.IsNegative() {
		return fmt.Errorf("tax cap must be non-negative, got %s", rs.TaxCap.String())
	}
	return nil
}
