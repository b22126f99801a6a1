package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func seedLeaveType(t *testing.T, store *sqlite.Store, id, name string) {
	t.Helper()
	maxDays := 15
	require.NoError(t, store.InsertLeaveType(context.Background(), leave.LeaveType{
		ID:                 id,
		Name:               name,
		ColorCode:          "#2d7ff9",
		IsPaid:             true,
		RequiresApproval:   true,
		MaxConsecutiveDays: &maxDays,
		AdvanceNoticeDays:  7,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}))
}

// =============================================================================
// CATALOG ROUND-TRIPS
// =============================================================================

func TestStore_LeaveType_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedLeaveType(t, store, "lt-1", "Annual Leave")

	lt, err := store.GetLeaveType(ctx, "lt-1")
	require.NoError(t, err)
	assert.Equal(t, "Annual Leave", lt.Name)
	assert.True(t, lt.IsPaid)
	require.NotNil(t, lt.MaxConsecutiveDays)
	assert.Equal(t, 15, *lt.MaxConsecutiveDays)
	assert.Equal(t, 7, lt.AdvanceNoticeDays)

	byName, err := store.GetLeaveTypeByName(ctx, "Annual Leave")
	require.NoError(t, err)
	assert.Equal(t, "lt-1", byName.ID)

	_, err = store.GetLeaveType(ctx, "missing")
	assert.True(t, leave.IsNotFound(err))
}

func TestStore_LeaveType_DuplicateName_Conflict(t *testing.T) {
	store := newTestStore(t)
	seedLeaveType(t, store, "lt-1", "Annual Leave")

	err := store.InsertLeaveType(context.Background(), leave.LeaveType{
		ID: "lt-2", Name: "Annual Leave", CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, leave.ErrConflict)
}

func TestStore_LeaveTypeInUse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedLeaveType(t, store, "lt-1", "Annual Leave")

	inUse, err := store.LeaveTypeInUse(ctx, "lt-1")
	require.NoError(t, err)
	assert.False(t, inUse)

	require.NoError(t, store.InsertPolicy(ctx, leave.LeavePolicy{
		ID: "pol-1", LeaveTypeID: "lt-1", Name: "Standard",
		AnnualAllocation: d("21"), AccrualRate: d("1.75"),
		AccrualFrequency: leave.FreqMonthly, CarryoverLimit: d("5"),
		IsActive: true, CreatedAt: time.Now().UTC(),
	}))

	inUse, err = store.LeaveTypeInUse(ctx, "lt-1")
	require.NoError(t, err)
	assert.True(t, inUse)
}

func TestStore_Policy_DecimalsSurviveRoundTrip(t *testing.T) {
	// Day amounts are stored as TEXT; 1.75 must come back as exactly 1.75.

	store := newTestStore(t)
	ctx := context.Background()
	seedLeaveType(t, store, "lt-1", "Annual Leave")

	require.NoError(t, store.InsertPolicy(ctx, leave.LeavePolicy{
		ID: "pol-1", LeaveTypeID: "lt-1", Name: "Standard",
		AnnualAllocation: d("21"), AccrualRate: d("1.75"),
		AccrualFrequency: leave.FreqMonthly, ProbationPeriodMonths: 3,
		CarryoverLimit: d("5"), IsActive: true, CreatedAt: time.Now().UTC(),
	}))

	p, err := store.GetPolicy(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, "1.75", p.AccrualRate.String())
	assert.Equal(t, "21", p.AnnualAllocation.String())
	assert.Equal(t, leave.FreqMonthly, p.AccrualFrequency)
	assert.Equal(t, 3, p.ProbationPeriodMonths)
}

// =============================================================================
// BALANCES + HISTORY
// =============================================================================

func TestStore_MutateBalance_CreatesRowLazily(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025}

	_, err := store.GetBalance(ctx, key)
	assert.True(t, leave.IsNotFound(err))

	b, err := store.MutateBalance(ctx, key, func(b *leave.LeaveBalance) (*leave.AccrualHistoryEntry, error) {
		b.Allocated = b.Allocated.Add(d("1.75"))
		b.LastAccrualDate = leave.NewDate(2025, time.June, 1)
		b.UpdatedAt = time.Now().UTC()
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1.75", b.Allocated.String())

	stored, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "1.75", stored.Allocated.String())
	assert.True(t, stored.LastAccrualDate.Equal(leave.NewDate(2025, time.June, 1)))
}

func TestStore_MutateBalance_HistoryCommitsWithBalance(t *testing.T) {
	// GIVEN: A mutation whose callback errors
	// THEN: Neither the balance write nor any history entry survives

	store := newTestStore(t)
	ctx := context.Background()
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025}

	entry := func(amount string) *leave.AccrualHistoryEntry {
		return &leave.AccrualHistoryEntry{
			ID: "hist-" + amount, EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID,
			Year: key.Year, Date: leave.NewDate(2025, time.June, 1),
			Type: leave.ChangeAccrual, Amount: d(amount),
			BalanceBefore: d("0"), BalanceAfter: d(amount),
		}
	}

	_, err := store.MutateBalance(ctx, key, func(b *leave.LeaveBalance) (*leave.AccrualHistoryEntry, error) {
		b.Allocated = d("5")
		b.UpdatedAt = time.Now().UTC()
		return entry("5"), nil
	})
	require.NoError(t, err)

	_, err = store.MutateBalance(ctx, key, func(b *leave.LeaveBalance) (*leave.AccrualHistoryEntry, error) {
		b.Allocated = d("99")
		return nil, assert.AnError
	})
	require.Error(t, err)

	b, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "5", b.Allocated.String(), "the failed mutation must not be visible")

	history, err := store.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_History_OrderedBySequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025}

	for i, amount := range []string{"1", "2", "3"} {
		_, err := store.MutateBalance(ctx, key, func(b *leave.LeaveBalance) (*leave.AccrualHistoryEntry, error) {
			b.Allocated = b.Allocated.Add(d(amount))
			b.UpdatedAt = time.Now().UTC()
			return &leave.AccrualHistoryEntry{
				ID: "hist-" + amount, EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID,
				Year: key.Year, Date: leave.NewDate(2025, time.June, 1+i),
				Type: leave.ChangeAccrual, Amount: d(amount),
				BalanceBefore: d("0"), BalanceAfter: b.Allocated,
			}, nil
		})
		require.NoError(t, err)
	}

	history, err := store.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "1", history[0].Amount.String())
	assert.Equal(t, "2", history[1].Amount.String())
	assert.Equal(t, "3", history[2].Amount.String())
}

func TestStore_BalancesForYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []leave.BalanceKey{
		{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2024},
		{EmployeeID: "emp-2", LeaveTypeID: "lt-1", Year: 2024},
		{EmployeeID: "emp-1", LeaveTypeID: "lt-1", Year: 2025},
	} {
		_, err := store.MutateBalance(ctx, key, func(b *leave.LeaveBalance) (*leave.AccrualHistoryEntry, error) {
			b.Allocated = d("10")
			b.UpdatedAt = time.Now().UTC()
			return nil, nil
		})
		require.NoError(t, err)
	}

	balances, err := store.BalancesForYear(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}

// =============================================================================
// REQUESTS
// =============================================================================

func seedRequest(t *testing.T, store *sqlite.Store, id string, start, end time.Time, status leave.RequestStatus) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.InsertRequest(context.Background(), leave.LeaveRequest{
		ID:          id,
		EmployeeID:  "emp-1",
		LeaveTypeID: "lt-1",
		StartDate:   start,
		EndDate:     end,
		TotalDays:   decimal.NewFromInt(int64(leave.InclusiveDays(start, end))),
		Status:      status,
		CreatedBy:   "emp-1",
		UpdatedBy:   "emp-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func TestStore_OverlappingRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedLeaveType(t, store, "lt-1", "Annual Leave")

	seedRequest(t, store, "req-approved", leave.NewDate(2025, time.June, 12), leave.NewDate(2025, time.June, 20), leave.StatusApproved)
	seedRequest(t, store, "req-denied", leave.NewDate(2025, time.June, 12), leave.NewDate(2025, time.June, 20), leave.StatusDenied)

	statuses := []leave.RequestStatus{leave.StatusPending, leave.StatusApproved}

	// Touching interval conflicts; denied requests never do.
	overlapping, err := store.OverlappingRequests(ctx, "emp-1",
		leave.NewDate(2025, time.June, 10), leave.NewDate(2025, time.June, 15), "", statuses)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, "req-approved", overlapping[0].ID)

	// Inclusive bounds: a single shared day is an overlap.
	overlapping, err = store.OverlappingRequests(ctx, "emp-1",
		leave.NewDate(2025, time.June, 20), leave.NewDate(2025, time.June, 25), "", statuses)
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)

	// Disjoint interval is clear.
	overlapping, err = store.OverlappingRequests(ctx, "emp-1",
		leave.NewDate(2025, time.June, 1), leave.NewDate(2025, time.June, 5), "", statuses)
	require.NoError(t, err)
	assert.Empty(t, overlapping)

	// Excluding the match leaves nothing.
	overlapping, err = store.OverlappingRequests(ctx, "emp-1",
		leave.NewDate(2025, time.June, 10), leave.NewDate(2025, time.June, 15), "req-approved", statuses)
	require.NoError(t, err)
	assert.Empty(t, overlapping)
}

func TestStore_Request_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedLeaveType(t, store, "lt-1", "Annual Leave")
	seedRequest(t, store, "req-1", leave.NewDate(2025, time.June, 10), leave.NewDate(2025, time.June, 14), leave.StatusPending)

	r, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "5", r.TotalDays.String())
	assert.Nil(t, r.ApprovedAt)

	approvedAt := time.Now().UTC().Truncate(time.Second)
	r.Status = leave.StatusApproved
	r.ApprovedBy = "mgr-1"
	r.ApprovedAt = &approvedAt
	require.NoError(t, store.UpdateRequest(ctx, r))

	stored, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, stored.Status)
	assert.Equal(t, "mgr-1", stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)
	assert.True(t, stored.ApprovedAt.Equal(approvedAt))

	byStatus, err := store.RequestsByStatus(ctx, leave.StatusApproved)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}

// =============================================================================
// EMPLOYEES + ROLES
// =============================================================================

func TestStore_Employees_AndRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEmployee(ctx, leave.Employee{
		ID: "mgr-1", Name: "Sam", HireDate: leave.NewDate(2020, time.January, 1),
		EmploymentStatus: leave.EmploymentActive, Role: leave.RoleManager,
	}))
	require.NoError(t, store.UpsertEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "Dana", HireDate: leave.NewDate(2023, time.January, 1),
		EmploymentStatus: leave.EmploymentActive, ManagerID: "mgr-1",
	}))
	require.NoError(t, store.UpsertEmployee(ctx, leave.Employee{
		ID: "emp-2", Name: "Lee", HireDate: leave.NewDate(2023, time.January, 1),
		EmploymentStatus: leave.EmploymentTerminated, ManagerID: "mgr-1",
	}))

	active, err := store.ActiveEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2, "terminated employees are excluded")

	team, err := store.TeamMembers(ctx, "mgr-1")
	require.NoError(t, err)
	assert.Len(t, team, 2)

	role, err := store.ActiveRole(ctx, "mgr-1")
	require.NoError(t, err)
	assert.Equal(t, leave.RoleManager, role)

	// No explicit role stored means the base employee role.
	role, err = store.ActiveRole(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, leave.RoleEmployee, role)

	// Upsert replaces in place; a promotion is visible immediately.
	require.NoError(t, store.UpsertEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "Dana", HireDate: leave.NewDate(2023, time.January, 1),
		EmploymentStatus: leave.EmploymentActive, ManagerID: "mgr-1", Role: leave.RoleHRAdmin,
	}))
	role, err = store.ActiveRole(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, leave.RoleHRAdmin, role)

	_, err = store.ActiveRole(ctx, "ghost")
	assert.True(t, leave.IsNotFound(err))
}
