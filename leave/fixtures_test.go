package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store/memory"
)

// =============================================================================
// TEST FIXTURE - memory store + movable clock + fully wired services
// =============================================================================

// testClock is a movable Clock so accrual-due and proration logic can be
// driven deterministically.
type testClock struct{ at time.Time }

func (c *testClock) Now() time.Time  { return c.at }
func (c *testClock) Advance(d int)   { c.at = c.at.AddDate(0, 0, d) }
func (c *testClock) Set(t time.Time) { c.at = t }

type fixture struct {
	store       *memory.Store
	clock       *testClock
	catalog     *leave.Catalog
	assignments *leave.Assignments
	ledger      *leave.Ledger
	accruals    *leave.AccrualEngine
	carryovers  *leave.CarryoverProcessor
	validation  *leave.ValidationEngine
	workflow    *leave.RequestWorkflow
}

// newFixture wires every service against a shared memory store, with
// the clock parked on June 1 2025.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	clock := &testClock{at: leave.NewDate(2025, time.June, 1)}

	ledger := leave.NewLedger(store, clock)
	assignments := leave.NewAssignments(store, store, clock)
	validation := leave.NewValidationEngine(store, ledger, assignments, store, clock)

	return &fixture{
		store:       store,
		clock:       clock,
		catalog:     leave.NewCatalog(store, clock),
		assignments: assignments,
		ledger:      ledger,
		accruals:    leave.NewAccrualEngine(ledger, assignments, store, clock),
		carryovers:  leave.NewCarryoverProcessor(ledger, assignments, store, clock),
		validation:  validation,
		workflow:    leave.NewRequestWorkflow(store, ledger, validation, store, store, nil, clock),
	}
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (f *fixture) addEmployee(t *testing.T, id string, role leave.Role, hireDate time.Time, managerID string) {
	t.Helper()
	err := f.store.UpsertEmployee(context.Background(), leave.Employee{
		ID:               id,
		Name:             id,
		HireDate:         hireDate,
		EmploymentStatus: leave.EmploymentActive,
		ManagerID:        managerID,
		Role:             role,
	})
	require.NoError(t, err)
}

func (f *fixture) addLeaveType(t *testing.T, name string) leave.LeaveType {
	t.Helper()
	lt, err := f.catalog.CreateLeaveType(context.Background(), leave.CreateLeaveTypeInput{
		Name:             name,
		IsPaid:           true,
		RequiresApproval: true,
	})
	require.NoError(t, err)
	return lt
}

type policyOpts struct {
	allocation string
	rate       string
	frequency  leave.AccrualFrequency
	probation  int
	carryover  string
}

func (f *fixture) addPolicy(t *testing.T, leaveTypeID, name string, opts policyOpts) leave.LeavePolicy {
	t.Helper()
	if opts.allocation == "" {
		opts.allocation = "21"
	}
	if opts.rate == "" {
		opts.rate = "1.75"
	}
	if opts.frequency == "" {
		opts.frequency = leave.FreqMonthly
	}
	if opts.carryover == "" {
		opts.carryover = "0"
	}
	p, err := f.catalog.CreatePolicy(context.Background(), leave.CreatePolicyInput{
		LeaveTypeID:           leaveTypeID,
		Name:                  name,
		AnnualAllocation:      dec(t, opts.allocation),
		AccrualRate:           dec(t, opts.rate),
		AccrualFrequency:      opts.frequency,
		ProbationPeriodMonths: opts.probation,
		CarryoverLimit:        dec(t, opts.carryover),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) assign(t *testing.T, employeeID, policyID string, effective time.Time) leave.PolicyAssignment {
	t.Helper()
	a, err := f.assignments.Assign(context.Background(), leave.AssignInput{
		EmployeeID:    employeeID,
		PolicyID:      policyID,
		EffectiveDate: effective,
	})
	require.NoError(t, err)
	return a
}

// grant credits days onto a balance through the ledger so workflow and
// validation tests start from a funded position.
func (f *fixture) grant(t *testing.T, employeeID, leaveTypeID, days string, effective time.Time) leave.LeaveBalance {
	t.Helper()
	b, err := f.ledger.Mutate(context.Background(), employeeID, leaveTypeID, leave.BalanceChange{
		Type:          leave.ChangeAccrual,
		Amount:        dec(t, days),
		Reason:        "test grant",
		EffectiveDate: effective,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T, key leave.BalanceKey) leave.LeaveBalance {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), key)
	require.NoError(t, err)
	return b
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func date(year int, month time.Month, day int) time.Time {
	return leave.NewDate(year, month, day)
}
