package jurisdiction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func caLookup() jurisdiction.Lookup {
	return jurisdiction.Lookup{
		Jurisdiction: jurisdiction.Jurisdiction{
			PostalCode: "95814",
			State:      "CA",
			County:     "Sacramento",
			City:       "Sacramento",
		},
		Rates: jurisdiction.TaxRateSet{StateRate: money.MustRate("0.0725")},
		Rules: jurisdiction.RuleSet{
			RulesVersion:              "test-1",
			TradeInCredit:             jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull},
			ManufacturerRebateTaxable: true,
			EffectiveFrom:             time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// =============================================================================
// RATE SET TESTS
// =============================================================================

func TestTotalRate_Derived(t *testing.T) {
	rates := jurisdiction.TaxRateSet{
		StateRate:           money.MustRate("0.0625"),
		CountyRate:          money.MustRate("0.0175"),
		CityRate:            money.MustRate("0.0125"),
		SpecialDistrictRate: money.MustRate("0.0100"),
	}

	if got := rates.TotalRate().StringFixed(); got != "0.1025" {
		t.Errorf("TotalRate = %s, want 0.1025", got)
	}
	if got := rates.LocalRate().StringFixed(); got != "0.0400" {
		t.Errorf("LocalRate = %s, want 0.0400", got)
	}
}

func TestRateSet_Validate(t *testing.T) {
	bad := jurisdiction.TaxRateSet{StateRate: money.Rate{Value: money.MustParse("1.5").Value}}
	if err := bad.Validate(); !errors.Is(err, money.ErrRateOutOfRange) {
		t.Errorf("expected ErrRateOutOfRange, got %v", err)
	}
}

// =============================================================================
// TRADE-IN POLICY TESTS
// =============================================================================

func TestTradeInCreditPolicy_Validate(t *testing.T) {
	valid := []jurisdiction.TradeInCreditPolicy{
		{Kind: jurisdiction.TradeInCreditNone},
		{Kind: jurisdiction.TradeInCreditFull},
		{Kind: jurisdiction.TradeInCreditTaxOnDifference},
		{Kind: jurisdiction.TradeInCreditCapped, CapAmount: money.MustParse("2000")},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("policy %q should be valid, got %v", p.Kind, err)
		}
	}

	if err := (jurisdiction.TradeInCreditPolicy{Kind: "partial"}).Validate(); err == nil {
		t.Error("unknown kind must be rejected, not ignored")
	}
	if err := (jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditCapped}).Validate(); err == nil {
		t.Error("capped policy without a positive cap must be rejected")
	}
}

// =============================================================================
// RULE SET TESTS
// =============================================================================

func TestRuleSet_ActiveAt(t *testing.T) {
	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)

	rules := jurisdiction.RuleSet{
		RulesVersion:  "test-1",
		TradeInCredit: jurisdiction.TradeInCreditPolicy{Kind: jurisdiction.TradeInCreditFull},
		EffectiveFrom: from,
		EffectiveTo:   &to,
	}

	if rules.ActiveAt(from.Add(-time.Hour)) {
		t.Error("rules must not be active before EffectiveFrom")
	}
	if !rules.ActiveAt(from) {
		t.Error("rules must be active at EffectiveFrom")
	}
	if !rules.ActiveAt(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("rules must be active inside the window")
	}
	if rules.ActiveAt(to.Add(time.Hour)) {
		t.Error("rules must not be active after EffectiveTo")
	}

	open := rules
	open.EffectiveTo = nil
	if !open.ActiveAt(time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("open-ended rules must stay active")
	}
}

// =============================================================================
// TABLE RESOLVER TESTS
// =============================================================================

func TestTableResolver_ResolveAndNotFound(t *testing.T) {
	tr := jurisdiction.NewTableResolver()
	if err := tr.Put(caLookup()); err != nil {
		t.Fatalf("put: %v", err)
	}

	lookup, err := tr.Resolve(context.Background(), "95814")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lookup.Jurisdiction.State != "CA" {
		t.Errorf("state = %s, want CA", lookup.Jurisdiction.State)
	}

	_, err = tr.Resolve(context.Background(), "00000")
	if !errors.Is(err, jurisdiction.ErrJurisdictionNotFound) {
		t.Errorf("expected ErrJurisdictionNotFound, got %v", err)
	}
	var nf *jurisdiction.NotFoundError
	if !errors.As(err, &nf) || nf.PostalCode != "00000" {
		t.Errorf("NotFoundError should carry the postal code, got %v", err)
	}
}

func TestTableResolver_PutRejectsCorruptEntries(t *testing.T) {
	tr := jurisdiction.NewTableResolver()

	bad := caLookup()
	bad.Jurisdiction.PostalCode = ""
	if err := tr.Put(bad); err == nil {
		t.Error("entry without a postal code must be rejected at load time")
	}

	bad = caLookup()
	bad.Rules.RulesVersion = ""
	if err := tr.Put(bad); err == nil {
		t.Error("entry without a rules version must be rejected at load time")
	}
}

// =============================================================================
// RATE CACHE TESTS
// =============================================================================

// countingResolver counts how many lookups reach the source.
type countingResolver struct {
	inner *jurisdiction.TableResolver
	calls int
}

func (c *countingResolver) Resolve(ctx context.Context, postalCode string) (jurisdiction.Lookup, error) {
	c.calls++
	return c.inner.Resolve(ctx, postalCode)
}

func TestRateCache_TTL(t *testing.T) {
	tr := jurisdiction.NewTableResolver()
	if err := tr.Put(caLookup()); err != nil {
		t.Fatalf("put: %v", err)
	}
	source := &countingResolver{inner: tr}

	cache := jurisdiction.NewRateCache(source, time.Hour)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	ctx := context.Background()

	// First lookup goes through; the second is served from cache.
	if _, err := cache.Resolve(ctx, "95814"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := cache.Resolve(ctx, "95814"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source.calls != 1 {
		t.Errorf("source calls = %d, want 1", source.calls)
	}

	// Step past the TTL: the entry is stale and refetched.
	now = now.Add(time.Hour + time.Minute)
	if _, err := cache.Resolve(ctx, "95814"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if source.calls != 2 {
		t.Errorf("source calls after TTL = %d, want 2", source.calls)
	}
}

func TestRateCache_NotFoundNotCached(t *testing.T) {
	tr := jurisdiction.NewTableResolver()
	source := &countingResolver{inner: tr}
	cache := jurisdiction.NewRateCache(source, time.Hour)

	ctx := context.Background()
	if _, err := cache.Resolve(ctx, "95814"); !errors.Is(err, jurisdiction.ErrJurisdictionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// The postal code is added to the table; the next call must see it.
	if err := tr.Put(caLookup()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := cache.Resolve(ctx, "95814"); err != nil {
		t.Errorf("newly added entry should resolve, got %v", err)
	}
}

func TestRateCache_Invalidate(t *testing.T) {
	tr := jurisdiction.NewTableResolver()
	if err := tr.Put(caLookup()); err != nil {
		t.Fatalf("put: %v", err)
	}
	source := &countingResolver{inner: tr}
	cache := jurisdiction.NewRateCache(source, time.Hour)

	ctx := context.Background()
	cache.Resolve(ctx, "95814")
	cache.Invalidate("95814")
	cache.Resolve(ctx, "95814")

	if source.calls != 2 {
		t.Errorf("source calls after invalidate = %d, want 2", source.calls)
	}
}
