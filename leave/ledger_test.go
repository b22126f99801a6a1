package leave_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MUTATION TESTS
// =============================================================================

func TestLedger_Accrual_CreditsAllocatedAndStampsDate(t *testing.T) {
	// GIVEN: An untouched balance key
	// WHEN: An accrual of 1.75 days lands on June 1
	// THEN: Allocated = 1.75, LastAccrualDate = June 1, one positive history entry

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")

	b, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeAccrual,
		Amount:        dec(t, "1.75"),
		Reason:        "monthly accrual",
		EffectiveDate: date(2025, time.June, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "1.75", b.Allocated.String())
	assert.Equal(t, "1.75", b.Available().String())
	assert.True(t, b.LastAccrualDate.Equal(date(2025, time.June, 1)))

	history, err := f.ledger.History(ctx, b.Key())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, leave.ChangeAccrual, history[0].Type)
	assert.Equal(t, "1.75", history[0].Amount.String())
	assert.Equal(t, "0", history[0].BalanceBefore.String())
	assert.Equal(t, "1.75", history[0].BalanceAfter.String())
}

func TestLedger_Usage_HistorizedNegative(t *testing.T) {
	// GIVEN: A balance with 10 allocated days
	// WHEN: 3 days of usage are recorded
	// THEN: Used = 3, and the history entry carries -3 (signed from the
	//       balance's point of view)

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "10", date(2025, time.January, 15))

	b, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeUsage,
		Amount:        dec(t, "3"),
		Reason:        "vacation",
		EffectiveDate: date(2025, time.July, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "3", b.Used.String())
	assert.Equal(t, "7", b.Available().String())

	history, err := f.ledger.History(ctx, b.Key())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "-3", history[1].Amount.String())
	assert.Equal(t, "10", history[1].BalanceBefore.String())
	assert.Equal(t, "7", history[1].BalanceAfter.String())
}

func TestLedger_Adjustment_MayBeNegative(t *testing.T) {
	// GIVEN: A balance with 10 allocated days
	// WHEN: An admin adjustment of -4 days is applied
	// THEN: Allocated drops to 6 and the entry records -4 as-is

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "10", date(2025, time.January, 15))

	b, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, leave.BalanceChange{
		Type:          leave.ChangeAdjustment,
		Amount:        dec(t, "-4"),
		Reason:        "correction",
		EffectiveDate: date(2025, time.July, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "6", b.Allocated.String())

	history, err := f.ledger.History(ctx, b.Key())
	require.NoError(t, err)
	assert.Equal(t, "-4", history[len(history)-1].Amount.String())
}

func TestLedger_Mutate_UnknownLeaveType_NotFound(t *testing.T) {
	// GIVEN: No such leave type exists
	// WHEN: A mutation targets it
	// THEN: NotFoundError, and no balance row is created

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Mutate(ctx, "emp-1", "missing-type", leave.BalanceChange{
		Type:          leave.ChangeAccrual,
		Amount:        dec(t, "1"),
		EffectiveDate: date(2025, time.June, 1),
	})
	assert.True(t, leave.IsNotFound(err))

	_, err = f.ledger.Balance(ctx, leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "missing-type", Year: 2025})
	assert.True(t, leave.IsNotFound(err))
}

func TestLedger_Mutate_RejectsInvalidChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")

	cases := []struct {
		name   string
		change leave.BalanceChange
	}{
		{"zero accrual", leave.BalanceChange{Type: leave.ChangeAccrual, Amount: decimal.Zero, EffectiveDate: date(2025, time.June, 1)}},
		{"negative usage", leave.BalanceChange{Type: leave.ChangeUsage, Amount: dec(t, "-2"), EffectiveDate: date(2025, time.June, 1)}},
		{"negative carryover", leave.BalanceChange{Type: leave.ChangeCarryover, Amount: dec(t, "-1"), EffectiveDate: date(2025, time.June, 1)}},
		{"zero adjustment", leave.BalanceChange{Type: leave.ChangeAdjustment, Amount: decimal.Zero, EffectiveDate: date(2025, time.June, 1)}},
		{"missing effective date", leave.BalanceChange{Type: leave.ChangeAccrual, Amount: dec(t, "1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, tc.change)
			assert.ErrorIs(t, err, leave.ErrValidation)
		})
	}
}

// =============================================================================
// PENDING RESERVATION TESTS
// =============================================================================

func TestLedger_ReserveAndRelease_NotHistorized(t *testing.T) {
	// GIVEN: A funded balance
	// WHEN: 5 days are reserved and then released
	// THEN: Pending returns to zero and the history shows only the grant

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "21", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	b, err := f.ledger.ReservePending(ctx, key, dec(t, "5"))
	require.NoError(t, err)
	assert.Equal(t, "5", b.Pending.String())
	assert.Equal(t, "16", b.Available().String())

	b, err = f.ledger.ReleasePending(ctx, key, dec(t, "5"))
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero())
	assert.Equal(t, "21", b.Available().String())

	history, err := f.ledger.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, history, 1, "reservations must not pollute the audit trail")
}

func TestLedger_ReleasePending_FlooredAtZero(t *testing.T) {
	// GIVEN: 2 days pending
	// WHEN: 5 days are released
	// THEN: Pending is floored at zero, never negative

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "10", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	_, err := f.ledger.ReservePending(ctx, key, dec(t, "2"))
	require.NoError(t, err)

	b, err := f.ledger.ReleasePending(ctx, key, dec(t, "5"))
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero())
}

func TestLedger_ReservePending_RejectsOverdraw(t *testing.T) {
	// GIVEN: 3 days available
	// WHEN: 5 days are reserved
	// THEN: The reservation is rejected and nothing is held

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "3", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	_, err := f.ledger.ReservePending(ctx, key, dec(t, "5"))
	assert.ErrorIs(t, err, leave.ErrValidation)

	b := f.balance(t, key)
	assert.True(t, b.Pending.IsZero())
	assert.Equal(t, "3", b.Available().String())
}

func TestLedger_CommitPending_MovesPendingToUsed(t *testing.T) {
	// GIVEN: 21 allocated, 5 pending
	// WHEN: The reservation is committed
	// THEN: Pending = 0, Used = 5, available unchanged at 16, one usage entry

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "21", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	_, err := f.ledger.ReservePending(ctx, key, dec(t, "5"))
	require.NoError(t, err)

	b, err := f.ledger.CommitPending(ctx, key, dec(t, "5"), "request approved")
	require.NoError(t, err)
	assert.True(t, b.Pending.IsZero())
	assert.Equal(t, "5", b.Used.String())
	assert.Equal(t, "16", b.Available().String())

	history, err := f.ledger.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, leave.ChangeUsage, history[1].Type)
	assert.Equal(t, "-5", history[1].Amount.String())
}

func TestLedger_RestoreUsed_FlooredAtZero(t *testing.T) {
	// GIVEN: 3 days used
	// WHEN: 5 days are restored
	// THEN: Used floors at zero and the adjustment entry records +5

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "10", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	_, err := f.ledger.ReservePending(ctx, key, dec(t, "3"))
	require.NoError(t, err)
	_, err = f.ledger.CommitPending(ctx, key, dec(t, "3"), "")
	require.NoError(t, err)

	b, err := f.ledger.RestoreUsed(ctx, key, dec(t, "5"), "over-restore")
	require.NoError(t, err)
	assert.True(t, b.Used.IsZero())

	history, err := f.ledger.History(ctx, key)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, leave.ChangeAdjustment, last.Type)
	assert.Equal(t, "5", last.Amount.String())
}

func TestLedger_PendingOperations_RejectNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	_, err := f.ledger.ReservePending(ctx, key, decimal.Zero)
	assert.ErrorIs(t, err, leave.ErrValidation)
	_, err = f.ledger.ReleasePending(ctx, key, dec(t, "-1"))
	assert.ErrorIs(t, err, leave.ErrValidation)
	_, err = f.ledger.CommitPending(ctx, key, decimal.Zero, "")
	assert.ErrorIs(t, err, leave.ErrValidation)
	_, err = f.ledger.RestoreUsed(ctx, key, decimal.Zero, "")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// RECONCILIATION + CONCURRENCY
// =============================================================================

func TestLedger_History_ReconcilesToBalance(t *testing.T) {
	// GIVEN: A mix of accruals, usage, adjustments and a carryover
	// THEN: The running sum of history amounts equals
	//       Allocated + CarriedOver - Used

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")

	changes := []leave.BalanceChange{
		{Type: leave.ChangeAccrual, Amount: dec(t, "1.75"), EffectiveDate: date(2025, time.January, 31)},
		{Type: leave.ChangeAccrual, Amount: dec(t, "1.75"), EffectiveDate: date(2025, time.February, 28)},
		{Type: leave.ChangeCarryover, Amount: dec(t, "5"), EffectiveDate: date(2025, time.January, 1)},
		{Type: leave.ChangeUsage, Amount: dec(t, "2"), EffectiveDate: date(2025, time.March, 3)},
		{Type: leave.ChangeAdjustment, Amount: dec(t, "-0.5"), EffectiveDate: date(2025, time.April, 1)},
	}
	for _, c := range changes {
		_, err := f.ledger.Mutate(ctx, "emp-1", lt.ID, c)
		require.NoError(t, err)
	}

	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}
	b := f.balance(t, key)
	history, err := f.ledger.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, len(changes))

	sum := decimal.Zero
	for _, entry := range history {
		sum = sum.Add(entry.Amount)
	}
	want := b.Allocated.Add(b.CarriedOver).Sub(b.Used)
	assert.True(t, sum.Equal(want), "history sum %s != %s", sum, want)
	assert.Equal(t, "6", want.String())
}

func TestLedger_ConcurrentReservations_Serialize(t *testing.T) {
	// GIVEN: 50 goroutines each reserving one day against 50 funded days
	// THEN: Every reservation lands; none is lost to a stale read

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "50", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	one := decimal.NewFromInt(1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.ReservePending(ctx, key, one)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b := f.balance(t, key)
	assert.Equal(t, "50", b.Pending.String())
	assert.True(t, b.Available().IsZero())
}

func TestLedger_ConcurrentReservations_NeverOverdraw(t *testing.T) {
	// GIVEN: 30 funded days and 50 goroutines each reserving one day
	// THEN: Exactly 30 reservations land; the rest are rejected inside
	//       the atomic mutation, so available never goes negative

	f := newFixture(t)
	ctx := context.Background()
	lt := f.addLeaveType(t, "Annual Leave")
	f.grant(t, "emp-1", lt.ID, "30", date(2025, time.January, 15))
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: lt.ID, Year: 2025}

	one := decimal.NewFromInt(1)
	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.ledger.ReservePending(ctx, key, one); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(30), succeeded.Load())
	b := f.balance(t, key)
	assert.Equal(t, "30", b.Pending.String())
	assert.True(t, b.Available().IsZero())
}
