package tax_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
	"github.com/warp/deal-engine/tax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func rulesWith(credit jurisdiction.TradeInCreditPolicy, rebateTaxable bool) jurisdiction.RuleSet {
	return jurisdiction.RuleSet{
		RulesVersion:              "test-1",
		TradeInCredit:             credit,
		ManufacturerRebateTaxable: rebateTaxable,
		EffectiveFrom:             time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func fullCreditRules() jurisdiction.RuleSet {
	return rulesWith(jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull}, true)
}

// =============================================================================
// TRADE-IN CREDIT VARIANT TESTS
// =============================================================================

func TestTaxableBase_FullCredit(t *testing.T) {
	// GIVEN: 35000 vehicle with a 10000 trade-in, full-credit state
	in := tax.Input{
		VehiclePrice: money.MustParse("35000"),
		TradeInValue: money.MustParse("10000"),
	}

	// WHEN: Assembling the taxable base
	base, notes, err := tax.AssembleTaxableBase(in, fullCreditRules())

	// THEN: Full trade-in value reduces the base
	require.NoError(t, err)
	assert.Equal(t, "25000.00", base.StringFixed())
	assert.NotEmpty(t, notes)
}

func TestTaxableBase_NoCredit(t *testing.T) {
	// GIVEN: A no-credit jurisdiction
	in := tax.Input{
		VehiclePrice: money.MustParse("35000"),
		TradeInValue: money.MustParse("10000"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditNone}, true)

	// WHEN: Assembling the taxable base
	base, _, err := tax.AssembleTaxableBase(in, rules)

	// THEN: Trade-in does not reduce the base
	require.NoError(t, err)
	assert.Equal(t, "35000.00", base.StringFixed())
}

func TestTaxableBase_CappedCredit(t *testing.T) {
	// GIVEN: 30000 vehicle with a 5000 trade-in in a 2000-cap state
	in := tax.Input{
		VehiclePrice: money.MustParse("30000"),
		TradeInValue: money.MustParse("5000"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{
		Kind:      jurisdiction.TradeInCreditCapped,
		CapAmount: money.MustParse("2000"),
	}, false)

	// WHEN: Assembling the taxable base
	base, notes, err := tax.AssembleTaxableBase(in, rules)

	// THEN: Only the capped 2000 is credited
	require.NoError(t, err)
	assert.Equal(t, "28000.00", base.StringFixed())
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "capped at 2000.00")
}

func TestTaxableBase_CappedCredit_UnderCap(t *testing.T) {
	// GIVEN: Trade-in below the cap
	in := tax.Input{
		VehiclePrice: money.MustParse("30000"),
		TradeInValue: money.MustParse("1500"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{
		Kind:      jurisdiction.TradeInCreditCapped,
		CapAmount: money.MustParse("2000"),
	}, false)

	// WHEN/THEN: The full trade-in is credited
	base, _, err := tax.AssembleTaxableBase(in, rules)
	require.NoError(t, err)
	assert.Equal(t, "28500.00", base.StringFixed())
}

func TestTaxableBase_TaxOnDifference(t *testing.T) {
	// GIVEN: A tax-on-difference jurisdiction
	in := tax.Input{
		VehiclePrice: money.MustParse("20000"),
		TradeInValue: money.MustParse("5000"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditTaxOnDifference}, true)

	// WHEN: Assembling the taxable base
	base, notes, err := tax.AssembleTaxableBase(in, rules)

	// THEN: Arithmetic matches full credit but the note cites the
	// difference basis
	require.NoError(t, err)
	assert.Equal(t, "15000.00", base.StringFixed())
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "difference basis")
}

func TestTaxableBase_UnknownKindRejected(t *testing.T) {
	// GIVEN: A rule set carrying an unrecognized credit kind
	in := tax.Input{
		VehiclePrice: money.MustParse("20000"),
		TradeInValue: money.MustParse("5000"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{Kind: "partial"}, true)

	// WHEN/THEN: The calculation errors instead of silently ignoring it
	_, _, err := tax.AssembleTaxableBase(in, rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trade-in credit kind")
}

// =============================================================================
// REBATE TESTS
// =============================================================================

func TestTaxableBase_ManufacturerRebate(t *testing.T) {
	in := tax.Input{
		VehiclePrice:       money.MustParse("30000"),
		RebateManufacturer: money.MustParse("2500"),
	}

	// Taxable-rebate jurisdiction: no base reduction.
	base, _, err := tax.AssembleTaxableBase(in, rulesWith(
		jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull}, true))
	require.NoError(t, err)
	assert.Equal(t, "30000.00", base.StringFixed())

	// Non-taxable-rebate jurisdiction: rebate reduces the base.
	base, _, err = tax.AssembleTaxableBase(in, rulesWith(
		jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull}, false))
	require.NoError(t, err)
	assert.Equal(t, "27500.00", base.StringFixed())
}

func TestTaxableBase_DealerRebateNeverReducesBase(t *testing.T) {
	// GIVEN: A dealer rebate in a jurisdiction that exempts
	// manufacturer rebates
	in := tax.Input{
		VehiclePrice: money.MustParse("30000"),
		RebateDealer: money.MustParse("1000"),
	}
	rules := rulesWith(jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull}, false)

	// WHEN: Assembling the taxable base
	base, notes, err := tax.AssembleTaxableBase(in, rules)

	// THEN: The base is untouched and the note explains why
	require.NoError(t, err)
	assert.Equal(t, "30000.00", base.StringFixed())
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "does not reduce")
}

// =============================================================================
// NON-NEGATIVITY TESTS
// =============================================================================

func TestTaxableBase_ClampsAtZero(t *testing.T) {
	// GIVEN: A trade-in worth more than the vehicle
	in := tax.Input{
		VehiclePrice: money.MustParse("10000"),
		TradeInValue: money.MustParse("15000"),
	}

	// WHEN: Assembling the taxable base
	base, notes, err := tax.AssembleTaxableBase(in, fullCreditRules())

	// THEN: The base clamps to zero, never negative
	require.NoError(t, err)
	assert.Equal(t, "0.00", base.StringFixed())
	assert.Contains(t, notes[len(notes)-1], "clamped")
}

func TestTaxableBase_NegativeInputsRejected(t *testing.T) {
	in := tax.Input{
		VehiclePrice: money.MustParse("20000"),
		TradeInValue: money.MustParse("-1"),
	}
	_, _, err := tax.AssembleTaxableBase(in, fullCreditRules())
	require.Error(t, err)
	assert.True(t, money.IsInputError(err))
}

// =============================================================================
// LINE ITEM TESTS
// =============================================================================

func TestTaxableBase_TaxableItemsAdded(t *testing.T) {
	// GIVEN: Taxable doc fee and service contract, non-taxable title fee
	in := tax.Input{
		VehiclePrice: money.MustParse("35000"),
		TradeInValue: money.MustParse("10000"),
		DocFee:       money.MustParse("299"),
		OtherFees: []tax.LineItem{
			{Code: "TITLE", Name: "Title fee", Amount: money.MustParse("65"), Taxable: false},
		},
		Products: []tax.LineItem{
			{Code: "SVC", Name: "Service contract", Amount: money.MustParse("2500"), Taxable: true},
		},
	}

	// WHEN: Assembling the taxable base
	base, _, err := tax.AssembleTaxableBase(in, fullCreditRules())

	// THEN: Only the taxable items join the base
	require.NoError(t, err)
	assert.Equal(t, "27799.00", base.StringFixed())
}

func TestTaxableBase_DuplicateCodesMerged(t *testing.T) {
	// GIVEN: The same accessory code submitted twice
	in := tax.Input{
		VehiclePrice: money.MustParse("20000"),
		Accessories: []tax.LineItem{
			{Code: "MATS", Name: "Floor mats", Amount: money.MustParse("100"), Taxable: true},
			{Code: "MATS", Name: "Floor mats", Amount: money.MustParse("50"), Taxable: true},
		},
	}

	// WHEN/THEN: Amounts are summed, not dropped
	base, _, err := tax.AssembleTaxableBase(in, fullCreditRules())
	require.NoError(t, err)
	assert.Equal(t, "20150.00", base.StringFixed())
}
