package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deal-engine/factory"
	"github.com/warp/deal-engine/jurisdiction"
)

// =============================================================================
// DEFAULT TABLE TESTS
// =============================================================================

func TestDefaultRuleTable_Loads(t *testing.T) {
	// GIVEN/WHEN: Building a resolver from the seeded table
	resolver, err := factory.BuildResolver(factory.DefaultRuleTableJSON())

	// THEN: Every seeded jurisdiction resolves
	require.NoError(t, err)
	assert.Equal(t, 6, resolver.Len())

	ctx := context.Background()

	lookup, err := resolver.Resolve(ctx, "95814")
	require.NoError(t, err)
	assert.Equal(t, "CA", lookup.Jurisdiction.State)
	assert.Equal(t, jurisdiction.TradeInCreditFull, lookup.Rules.TradeInCredit.Kind)
	assert.Equal(t, "0.0725", lookup.Rates.TotalRate().StringFixed())

	lookup, err = resolver.Resolve(ctx, "48201")
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.TradeInCreditCapped, lookup.Rules.TradeInCredit.Kind)
	assert.Equal(t, "2000.00", lookup.Rules.TradeInCredit.CapAmount.StringFixed())
	assert.False(t, lookup.Rules.ManufacturerRebateTaxable)

	lookup, err = resolver.Resolve(ctx, "37201")
	require.NoError(t, err)
	require.NotNil(t, lookup.Rules.TaxCap)
	assert.Equal(t, "1600.00", lookup.Rules.TaxCap.StringFixed())

	lookup, err = resolver.Resolve(ctx, "60601")
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.TradeInCreditTaxOnDifference, lookup.Rules.TradeInCredit.Kind)
	assert.Equal(t, "0.1025", lookup.Rates.TotalRate().StringFixed())
}

func TestDefaultRuleTable_VersionPropagates(t *testing.T) {
	resolver, err := factory.BuildResolver(factory.DefaultRuleTableJSON())
	require.NoError(t, err)

	lookup, err := resolver.Resolve(context.Background(), "90210")
	require.NoError(t, err)
	assert.Equal(t, "2026-Q1", lookup.Rules.RulesVersion)
}

// =============================================================================
// PARSE ERROR TESTS
// =============================================================================

func TestParseRuleTable_RejectsBadInput(t *testing.T) {
	f := factory.NewRulesFactory()

	cases := []struct {
		name string
		json string
	}{
		{
			name: "missing rules_version",
			json: `{"jurisdictions": []}`,
		},
		{
			name: "rate out of range",
			json: `{
				"rules_version": "t",
				"jurisdictions": [{
					"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
					"rates": {"state": "1.5"},
					"rules": {"trade_in_credit": {"kind": "full"}, "manufacturer_rebate_taxable": true, "effective_from": "2026-01-01"}
				}]
			}`,
		},
		{
			name: "rate as bare number",
			json: `{
				"rules_version": "t",
				"jurisdictions": [{
					"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
					"rates": {"state": 0.06},
					"rules": {"trade_in_credit": {"kind": "full"}, "manufacturer_rebate_taxable": true, "effective_from": "2026-01-01"}
				}]
			}`,
		},
		{
			name: "unknown trade-in kind",
			json: `{
				"rules_version": "t",
				"jurisdictions": [{
					"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
					"rates": {"state": "0.06"},
					"rules": {"trade_in_credit": {"kind": "partial"}, "manufacturer_rebate_taxable": true, "effective_from": "2026-01-01"}
				}]
			}`,
		},
		{
			name: "capped without cap",
			json: `{
				"rules_version": "t",
				"jurisdictions": [{
					"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
					"rates": {"state": "0.06"},
					"rules": {"trade_in_credit": {"kind": "capped"}, "manufacturer_rebate_taxable": true, "effective_from": "2026-01-01"}
				}]
			}`,
		},
		{
			name: "malformed effective_from",
			json: `{
				"rules_version": "t",
				"jurisdictions": [{
					"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
					"rates": {"state": "0.06"},
					"rules": {"trade_in_credit": {"kind": "full"}, "manufacturer_rebate_taxable": true, "effective_from": "Jan 1 2026"}
				}]
			}`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.ParseRuleTable(c.json)
			require.Error(t, err)
		})
	}
}

func TestParseRuleTable_OmittedLocalRatesDefaultToZero(t *testing.T) {
	// GIVEN: A jurisdiction with only a state rate
	f := factory.NewRulesFactory()
	lookups, err := f.ParseRuleTable(`{
		"rules_version": "t",
		"jurisdictions": [{
			"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
			"rates": {"state": "0.06"},
			"rules": {"trade_in_credit": {"kind": "full"}, "manufacturer_rebate_taxable": true, "effective_from": "2026-01-01"}
		}]
	}`)

	// THEN: The omitted layers parse as zero, not as errors
	require.NoError(t, err)
	require.Len(t, lookups, 1)
	assert.True(t, lookups[0].Rates.CountyRate.IsZero())
	assert.True(t, lookups[0].Rates.LocalRate().IsZero())
	assert.Equal(t, "0.0600", lookups[0].Rates.TotalRate().StringFixed())
}

func TestParseRuleTable_EffectiveWindow(t *testing.T) {
	f := factory.NewRulesFactory()
	lookups, err := f.ParseRuleTable(`{
		"rules_version": "t",
		"jurisdictions": [{
			"postal_code": "00001", "state": "XX", "county": "X", "city": "X",
			"rates": {"state": "0.06"},
			"rules": {
				"trade_in_credit": {"kind": "full"},
				"manufacturer_rebate_taxable": true,
				"effective_from": "2026-01-01",
				"effective_to": "2026-06-30"
			}
		}]
	}`)

	require.NoError(t, err)
	require.NotNil(t, lookups[0].Rules.EffectiveTo)
	assert.Equal(t, "2026-06-30", lookups[0].Rules.EffectiveTo.Format("2006-01-02"))
}
