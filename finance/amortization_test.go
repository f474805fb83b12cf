package finance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deal-engine/finance"
	"github.com/warp/deal-engine/money"
)

func start2026() time.Time {
	return time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
}

func TestSchedule_TerminatesAtExactlyZero(t *testing.T) {
	// GIVEN: A 60-month loan where per-period rounding drifts
	schedule, err := finance.Schedule(
		money.MustParse("25000"), decimal.RequireFromString("6.0"), 60, start2026())

	// THEN: Exactly term entries and a final balance of exactly zero
	require.NoError(t, err)
	require.Len(t, schedule, 60)
	last := schedule[len(schedule)-1]
	assert.Equal(t, "0.00", last.RemainingBalance.StringFixed())
	assert.True(t, last.RemainingBalance.IsZero(), "final balance must be exactly zero, not just displayed as 0.00")
}

func TestSchedule_PrincipalSumsToLoan(t *testing.T) {
	// GIVEN: Any schedule
	principal := money.MustParse("10000")
	schedule, err := finance.Schedule(principal, decimal.RequireFromString("4.5"), 36, start2026())
	require.NoError(t, err)

	// THEN: The principal portions retire exactly the loan
	total := money.Zero()
	for _, e := range schedule {
		total = total.Add(e.Principal)
	}
	assert.True(t, total.Equal(principal),
		"principal sum %s, want %s", total.StringFixed(), principal.StringFixed())
}

func TestSchedule_BalanceDecreasesMonotonically(t *testing.T) {
	schedule, err := finance.Schedule(
		money.MustParse("15000"), decimal.RequireFromString("7.9"), 48, start2026())
	require.NoError(t, err)

	prev := money.MustParse("15000")
	for _, e := range schedule {
		assert.True(t, e.RemainingBalance.LessThan(prev),
			"period %d: balance %s did not decrease from %s",
			e.PaymentNumber, e.RemainingBalance.StringFixed(), prev.StringFixed())
		prev = e.RemainingBalance
	}
}

func TestSchedule_ZeroAPR(t *testing.T) {
	// GIVEN: A 0% loan of 12000 over 12 months
	schedule, err := finance.Schedule(
		money.MustParse("12000"), decimal.Zero, 12, start2026())

	// THEN: Even 1000 principal per period, zero interest throughout
	require.NoError(t, err)
	require.Len(t, schedule, 12)
	for _, e := range schedule {
		assert.Equal(t, "0.00", e.Interest.StringFixed())
		assert.Equal(t, "1000.00", e.Principal.StringFixed())
	}
	assert.True(t, schedule[11].RemainingBalance.IsZero())
}

func TestSchedule_DatesAdvanceMonthly(t *testing.T) {
	schedule, err := finance.Schedule(
		money.MustParse("6000"), decimal.Zero, 3, start2026())
	require.NoError(t, err)

	require.Len(t, schedule, 3)
	assert.Equal(t, "2026-02-15", schedule[0].PaymentDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-15", schedule[1].PaymentDate.Format("2006-01-02"))
	assert.Equal(t, "2026-04-15", schedule[2].PaymentDate.Format("2006-01-02"))
	assert.Equal(t, 1, schedule[0].PaymentNumber)
	assert.Equal(t, 3, schedule[2].PaymentNumber)
}

func TestSchedule_TerminalCases(t *testing.T) {
	// Non-positive principal: empty schedule, not an error.
	schedule, err := finance.Schedule(money.Zero(), decimal.RequireFromString("5"), 12, start2026())
	require.NoError(t, err)
	assert.Empty(t, schedule)

	// Zero term: empty schedule.
	schedule, err = finance.Schedule(money.MustParse("1000"), decimal.RequireFromString("5"), 0, start2026())
	require.NoError(t, err)
	assert.Empty(t, schedule)

	// Negative inputs are rejected.
	_, err = finance.Schedule(money.MustParse("1000"), decimal.RequireFromString("-1"), 12, start2026())
	require.Error(t, err)
	_, err = finance.Schedule(money.MustParse("1000"), decimal.Zero, -1, start2026())
	require.Error(t, err)
}
