package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func carryoverFixture(t *testing.T, carryoverLimit string) (*fixture, leave.LeaveType) {
	t.Helper()
	f := newFixture(t)
	lt := f.addLeaveType(t, "Annual Leave")
	p := f.addPolicy(t, lt.ID, "Standard", policyOpts{carryover: carryoverLimit})
	f.addEmployee(t, "emp-1", leave.RoleEmployee, date(2023, time.January, 1), "")
	f.assign(t, "emp-1", p.ID, date(2024, time.January, 1))
	return f, lt
}

func TestCarryover_CappedAtPolicyLimit(t *testing.T) {
	// GIVEN: 21 allocated and 5 used in 2024 (16 available), cap 5
	// WHEN: Carryover runs into 2025
	// THEN: 5 days carry, 11 expire, and only the carried days reach the ledger

	f, lt := carryoverFixture(t, "5")
	ctx := context.Background()

	f.grant(t, "emp-1", lt.ID, "21", date(2024, time.January, 31))
	_, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeUsage,
		Amount:        dec(t, "5"),
		EffectiveDate: date(2024, time.August, 4),
	})
	require.NoError(t, err)

	result, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, "5", result.TotalCarried.String())
	assert.Equal(t, "11", result.TotalExpired.String())

	target := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}
	b := f.balance(t, target)
	assert.Equal(t, "5", b.CarriedOver.String())
	assert.True(t, b.CarryoverApplied)

	history, err := f.ledger.History(ctx, target)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, leave.ChangeCarryover, history[0].Type)
	assert.Equal(t, "5", history[0].Amount.String())
	assert.True(t, history[0].Date.Equal(date(2025, time.January, 1)), "carryover is dated January 1 of the target year")
}

func TestCarryover_Rerun_IsNoOp(t *testing.T) {
	// GIVEN: A year whose carryover already ran
	// WHEN: The processor runs again for the same year
	// THEN: Nothing doubles; the rerun processes zero rows

	f, lt := carryoverFixture(t, "5")
	ctx := context.Background()
	f.grant(t, "emp-1", lt.ID, "10", date(2024, time.January, 31))

	_, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)

	result, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount)
	assert.True(t, result.TotalCarried.IsZero())

	b := f.balance(t, leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025})
	assert.Equal(t, "5", b.CarriedOver.String())
}

func TestCarryover_ZeroCarry_StillMarksTheRow(t *testing.T) {
	// GIVEN: A 2024 balance fully consumed (nothing to carry)
	// WHEN: Carryover runs, the cap is later raised, and it runs again
	// THEN: The second run cannot retroactively grant anything

	f, lt := carryoverFixture(t, "5")
	ctx := context.Background()

	f.grant(t, "emp-1", lt.ID, "8", date(2024, time.January, 31))
	_, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeUsage,
		Amount:        dec(t, "8"),
		EffectiveDate: date(2024, time.September, 1),
	})
	require.NoError(t, err)

	result, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.True(t, result.TotalCarried.IsZero())

	target := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}
	b := f.balance(t, target)
	assert.True(t, b.CarryoverApplied)
	assert.True(t, b.CarriedOver.IsZero())

	// Rerun after the fact: still a no-op.
	result, err = f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount)

	history, err := f.ledger.History(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, history, "a zero carry writes no ledger entry")
}

func TestCarryover_NegativeAvailable_FlooredAtZero(t *testing.T) {
	// GIVEN: An over-drawn 2024 balance (admin adjustment pushed it negative)
	// WHEN: Carryover runs
	// THEN: Nothing carries and nothing "expires" negatively

	f, lt := carryoverFixture(t, "5")
	ctx := context.Background()

	f.grant(t, "emp-1", lt.ID, "3", date(2024, time.January, 31))
	_, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeAdjustment,
		Amount:        dec(t, "-6"),
		EffectiveDate: date(2024, time.December, 1),
	})
	require.NoError(t, err)

	result, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.True(t, result.TotalCarried.IsZero())
	assert.True(t, result.TotalExpired.IsZero())
}

func TestCarryover_MissingAssignment_ReportedNotRaised(t *testing.T) {
	// GIVEN: A 2024 balance whose employee has no active assignment left
	// WHEN: Carryover runs
	// THEN: The failure lands in the result; the run itself succeeds

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.addEmployee(t, "emp-1", leave.RoleEmployee, date(2023, time.January, 1), "")
	f.grant(t, "emp-1", lt.ID, "10", date(2024, time.January, 31))

	result, err := f.carryovers.ProcessCarryovers(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "emp-1")
}
