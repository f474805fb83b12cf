/*
Package factory provides JSON to Go jurisdiction-rule conversion.

PURPOSE:
  Converts JSON rule-table definitions into jurisdiction.Lookup entries
  for the resolver. This enables rate and rule updates without code
  changes - the tax operations team ships a new table, and the factory
  builds the proper Go structs. The engine never authors rules; it only
  consumes tables that have already been validated upstream.

WHY JSON?
  - Rule tables live in version control next to their effective dates
  - Easy integration with the jurisdiction-rules collaborator
  - Database storage of table snapshots for replay

JSON SCHEMA:
  {
    "rules_version": "2026-Q1",
    "jurisdictions": [
      {
        "postal_code": "90210",
        "state": "CA",
        "county": "Los Angeles",
        "city": "Beverly Hills",
        "rates": {
          "state": "0.0600",
          "county": "0.0025",
          "city": "0.0075",
          "special_district": "0.0025"
        },
        "rules": {
          "trade_in_credit": {"kind": "full"},
          "manufacturer_rebate_taxable": true,
          "tax_cap": null,
          "effective_from": "2026-01-01"
        }
      }
    ]
  }

  All decimals are canonical strings. A bare JSON number for a rate or
  cap is rejected - it would have been a float64 somewhere upstream.

KEY FEATURES:
  - Validates rates and rule variants at load time
  - Closed variant mapping for trade-in credit kinds
  - Seeded default table for development and tests

USAGE:
  resolver, err := factory.BuildResolver(factory.DefaultRuleTableJSON())

SEE ALSO:
  - jurisdiction/types.go: The rule variants built here
  - jurisdiction/resolver.go: Where the entries land
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleTableJSON is the JSON representation of a full rule table.
type RuleTableJSON struct {
	RulesVersion  string             `json:"rules_version"`
	Jurisdictions []JurisdictionJSON `json:"jurisdictions"`
}

// JurisdictionJSON is one postal code's rates and rules.
type JurisdictionJSON struct {
	PostalCode      string      `json:"postal_code"`
	State           string      `json:"state"`
	County          string      `json:"county"`
	City            string      `json:"city"`
	SpecialDistrict string      `json:"special_district,omitempty"`
	Rates           RateSetJSON `json:"rates"`
	Rules           RuleSetJSON `json:"rules"`
}

// RateSetJSON carries the layered rates as canonical decimal strings.
type RateSetJSON struct {
	State           string `json:"state"`
	County          string `json:"county,omitempty"`
	City            string `json:"city,omitempty"`
	SpecialDistrict string `json:"special_district,omitempty"`
}

// RuleSetJSON carries the jurisdiction rule variants.
type RuleSetJSON struct {
	TradeInCredit             TradeInCreditJSON `json:"trade_in_credit"`
	ManufacturerRebateTaxable bool              `json:"manufacturer_rebate_taxable"`
	TaxCap                    *string           `json:"tax_cap,omitempty"`
	EffectiveFrom             string            `json:"effective_from"`
	EffectiveTo               *string           `json:"effective_to,omitempty"`
}

// TradeInCreditJSON selects the credit variant. Cap is required for
// kind "capped", ignored otherwise.
type TradeInCreditJSON struct {
	Kind string  `json:"kind"` // none, full, capped, tax_on_difference
	Cap  *string `json:"cap,omitempty"`
}

// =============================================================================
// RULES FACTORY
// =============================================================================

// RulesFactory converts JSON rule tables to resolver entries.
type RulesFactory struct{}

func NewRulesFactory() *RulesFactory {
	return &RulesFactory{}
}

// ParseRuleTable parses a JSON string into resolver entries.
func (f *RulesFactory) ParseRuleTable(jsonStr string) ([]jurisdiction.Lookup, error) {
	var table RuleTableJSON
	if err := json.Unmarshal([]byte(jsonStr), &table); err != nil {
		return nil, fmt.Errorf("failed to parse rule table JSON: %w", err)
	}
	return f.FromJSON(table)
}

// FromJSON converts a parsed table into validated resolver entries.
func (f *RulesFactory) FromJSON(table RuleTableJSON) ([]jurisdiction.Lookup, error) {
	if table.RulesVersion == "" {
		return nil, fmt.Errorf("rule table missing rules_version")
	}

	lookups := make([]jurisdiction.Lookup, 0, len(table.Jurisdictions))
	for _, jj := range table.Jurisdictions {
		lookup, err := f.buildLookup(table.RulesVersion, jj)
		if err != nil {
			return nil, fmt.Errorf("jurisdiction %s: %w", jj.PostalCode, err)
		}
		lookups = append(lookups, lookup)
	}
	return lookups, nil
}

func (f *RulesFactory) buildLookup(version string, jj JurisdictionJSON) (jurisdiction.Lookup, error) {
	rates, err := parseRates(jj.Rates)
	if err != nil {
		return jurisdiction.Lookup{}, err
	}

	rules, err := parseRules(version, jj.Rules)
	if err != nil {
		return jurisdiction.Lookup{}, err
	}

	lookup := jurisdiction.Lookup{
		Jurisdiction: jurisdiction.Jurisdiction{
			PostalCode:      jj.PostalCode,
			State:           jj.State,
			County:          jj.County,
			City:            jj.City,
			SpecialDistrict: jj.SpecialDistrict,
		},
		Rates: rates,
		Rules: rules,
	}

	if err := rates.Validate(); err != nil {
		return jurisdiction.Lookup{}, err
	}
	if err := rules.Validate(); err != nil {
		return jurisdiction.Lookup{}, err
	}
	return lookup, nil
}

func parseRates(rj RateSetJSON) (jurisdiction.TaxRateSet, error) {
	parse := func(field, s string) (money.Rate, error) {
		if s == "" {
			return money.ZeroRate(), nil
		}
		r, err := money.NewRate(s)
		if err != nil {
			return money.Rate{}, fmt.Errorf("%s rate: %w", field, err)
		}
		return r, nil
	}

	var (
		rates jurisdiction.TaxRateSet
		err   error
	)
	if rates.StateRate, err = parse("state", rj.State); err != nil {
		return rates, err
	}
	if rates.CountyRate, err = parse("county", rj.County); err != nil {
		return rates, err
	}
	if rates.CityRate, err = parse("city", rj.City); err != nil {
		return rates, err
	}
	if rates.SpecialDistrictRate, err = parse("special_district", rj.SpecialDistrict); err != nil {
		return rates, err
	}
	return rates, nil
}

func parseRules(version string, rj RuleSetJSON) (jurisdiction.RuleSet, error) {
	credit, err := parseTradeInCredit(rj.TradeInCredit)
	if err != nil {
		return jurisdiction.RuleSet{}, err
	}

	effectiveFrom, err := time.Parse("2006-01-02", rj.EffectiveFrom)
	if err != nil {
		return jurisdiction.RuleSet{}, fmt.Errorf("effective_from: %w", err)
	}

	rules := jurisdiction.RuleSet{
		RulesVersion:              version,
		TradeInCredit:             credit,
		ManufacturerRebateTaxable: rj.ManufacturerRebateTaxable,
		EffectiveFrom:             effectiveFrom,
	}

	if rj.EffectiveTo != nil {
		to, err := time.Parse("2006-01-02", *rj.EffectiveTo)
		if err != nil {
			return jurisdiction.RuleSet{}, fmt.Errorf("effective_to: %w", err)
		}
		rules.EffectiveTo = &to
	}

	if rj.TaxCap != nil {
		cap, err := money.NewFromString(*rj.TaxCap)
		if err != nil {
			return jurisdiction.RuleSet{}, fmt.Errorf("tax_cap: %w", err)
		}
		rules.TaxCap = &cap
	}

	return rules, nil
}

func parseTradeInCredit(tj TradeInCreditJSON) (jurisdiction.TradeInCreditPolicy, error) {
	switch tj.Kind {
	case "none":
		return jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditNone}, nil
	case "full":
		return jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull}, nil
	case "tax_on_difference":
		return jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditTaxOnDifference}, nil
	case "capped":
		if tj.Cap == nil {
			return jurisdiction.TradeInCreditPolicy{}, fmt.Errorf("capped trade-in credit requires a cap")
		}
		cap, err := money.NewFromString(*tj.Cap)
		if err != nil {
			return jurisdiction.TradeInCreditPolicy{}, fmt.Errorf("trade-in cap: %w", err)
		}
		return jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditCapped, CapAmount: cap}, nil
	default:
		return jurisdiction.TradeInCreditPolicy{}, fmt.Errorf("unknown trade-in credit kind: %q", tj.Kind)
	}
}

// BuildResolver parses a rule table and loads it into a TableResolver.
func BuildResolver(jsonStr string) (*jurisdiction.TableResolver, error) {
	factory := NewRulesFactory()
	lookups, err := factory.ParseRuleTable(jsonStr)
	if err != nil {
		return nil, err
	}

	resolver := jurisdiction.NewTableResolver()
	for _, l := range lookups {
		if err := resolver.Put(l); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}

// =============================================================================
// DEFAULT TABLE - Development/test seed
// =============================================================================

// DefaultRuleTableJSON returns a representative multi-state table:
// full credit (CA), capped credit (MI), no credit (no-credit states
// modeled on VA's historic rule), tax-on-difference (IL wording), a
// tax-capped jurisdiction, and an EV-heavy jurisdiction.
func DefaultRuleTableJSON() string {
	return `{
  "rules_version": "2026-Q1",
  "jurisdictions": [
    {
      "postal_code": "90210",
      "state": "CA",
      "county": "Los Angeles",
      "city": "Beverly Hills",
      "rates": {"state": "0.0600", "county": "0.0025", "city": "0.0075", "special_district": "0.0025"},
      "rules": {
        "trade_in_credit": {"kind": "none"},
        "manufacturer_rebate_taxable": true,
        "effective_from": "2026-01-01"
      }
    },
    {
      "postal_code": "95814",
      "state": "CA",
      "county": "Sacramento",
      "city": "Sacramento",
      "rates": {"state": "0.0725"},
      "rules": {
        "trade_in_credit": {"kind": "full"},
        "manufacturer_rebate_taxable": true,
        "effective_from": "2026-01-01"
      }
    },
    {
      "postal_code": "48201",
      "state": "MI",
      "county": "Wayne",
      "city": "Detroit",
      "rates": {"state": "0.0600"},
      "rules": {
        "trade_in_credit": {"kind": "capped", "cap": "2000.00"},
        "manufacturer_rebate_taxable": false,
        "effective_from": "2026-01-01"
      }
    },
    {
      "postal_code": "60601",
      "state": "IL",
      "county": "Cook",
      "city": "Chicago",
      "rates": {"state": "0.0625", "county": "0.0175", "city": "0.0125", "special_district": "0.0100"},
      "rules": {
        "trade_in_credit": {"kind": "tax_on_difference"},
        "manufacturer_rebate_taxable": true,
        "effective_from": "2026-01-01"
      }
    },
    {
      "postal_code": "37201",
      "state": "TN",
      "county": "Davidson",
      "city": "Nashville",
      "rates": {"state": "0.0700", "county": "0.0225"},
      "rules": {
        "trade_in_credit": {"kind": "full"},
        "manufacturer_rebate_taxable": true,
        "tax_cap": "1600.00",
        "effective_from": "2026-01-01"
      }
    },
    {
      "postal_code": "80202",
      "state": "CO",
      "county": "Denver",
      "city": "Denver",
      "rates": {"state": "0.0290", "county": "0.0000", "city": "0.0481", "special_district": "0.0110"},
      "rules": {
        "trade_in_credit": {"kind": "full"},
        "manufacturer_rebate_taxable": false,
        "effective_from": "2026-01-01"
      }
    }
  ]
}`
}
