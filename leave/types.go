/*
Package leave implements the leave (time-off) management core: the policy
catalog, employee policy assignments, the per-year balance ledger, the
accrual and carryover batch engines, request validation, and the request
approval workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType / LeavePolicy: the catalog (what kinds of leave exist, how
    they accrue, and what their limits are)
  - PolicyAssignment: binds an employee to a policy with an effective date
  - LeaveBalance: the materialized per-employee/leave-type/year balance
  - AccrualHistoryEntry: immutable audit row per balance mutation
  - LeaveRequest: a request with its lifecycle status

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all day amounts (accrual rates like
     1.75 days/month must not drift)
  2. Materialized balance: allocated/used/pending/carried-over are stored
     fields; Available() is always derived, never stored
  3. Auditability: every ledger mutation appends one history entry with
     the balance before and after

SEE ALSO:
  - ledger.go: the only component allowed to mutate LeaveBalance
  - workflow.go: the request state machine
  - accrual.go / carryover.go: the batch engines
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPE - Kind of leave (annual, sick, ...)
// =============================================================================

type LeaveType struct {
	ID                 string
	Name               string // unique
	ColorCode          string
	IsPaid             bool
	RequiresApproval   bool
	MaxConsecutiveDays *int // nil = no limit
	AdvanceNoticeDays  int
	IsActive           bool
	CreatedAt          time.Time
}

// DeleteOutcome reports what deleting a leave type actually did. A type
// referenced by any policy or request is deactivated instead of removed.
type DeleteOutcome string

const (
	HardDeleted DeleteOutcome = "hard_deleted"
	Deactivated DeleteOutcome = "deactivated"
)

// =============================================================================
// LEAVE POLICY - Accrual rules for a leave type
// =============================================================================

type AccrualFrequency string

const (
	FreqWeekly    AccrualFrequency = "weekly"
	FreqBiweekly  AccrualFrequency = "biweekly"
	FreqMonthly   AccrualFrequency = "monthly"
	FreqQuarterly AccrualFrequency = "quarterly"
	FreqAnnually  AccrualFrequency = "annually"
)

func (f AccrualFrequency) Valid() bool {
	switch f {
	case FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqAnnually:
		return true
	}
	return false
}

// LeavePolicy defines how one leave type accrues. A leave type may have
// several policies (tenure tiers); a policy references exactly one type.
type LeavePolicy struct {
	ID                    string
	LeaveTypeID           string
	Name                  string
	AnnualAllocation      decimal.Decimal
	AccrualRate           decimal.Decimal // days granted per accrual cycle
	AccrualFrequency      AccrualFrequency
	ProbationPeriodMonths int
	CarryoverLimit        decimal.Decimal
	IsActive              bool
	CreatedAt             time.Time
}

// =============================================================================
// POLICY ASSIGNMENT - Employee <-> policy binding
// =============================================================================

// PolicyAssignment binds an employee to a policy. Assignments are
// superseded (deactivated and replaced), never mutated in place, so the
// history of who was on which policy is preserved.
type PolicyAssignment struct {
	ID               string
	EmployeeID       string
	PolicyID         string
	EffectiveDate    time.Time
	CustomAllocation *decimal.Decimal // overrides policy.AnnualAllocation
	IsActive         bool
	CreatedAt        time.Time
}

// Allocation returns the annual allocation in force for this assignment.
func (a PolicyAssignment) Allocation(p LeavePolicy) decimal.Decimal {
	if a.CustomAllocation != nil {
		return *a.CustomAllocation
	}
	return p.AnnualAllocation
}

// =============================================================================
// LEAVE BALANCE - Materialized per (employee, leaveType, policyYear)
// =============================================================================

// BalanceKey is the natural key of a balance row.
type BalanceKey struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
}

// LeaveBalance is the materialized balance for one policy year. Rows are
// created lazily on first mutation and never deleted; each policy year
// gets its own row.
//
// Invariants:
//   - Available() == Allocated + CarriedOver - Used - Pending, always
//   - Pending >= 0 and Used >= 0, always
//   - Available() may go negative only through an admin adjustment
type LeaveBalance struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int

	Allocated   decimal.Decimal
	Used        decimal.Decimal
	Pending     decimal.Decimal
	CarriedOver decimal.Decimal

	LastAccrualDate time.Time // zero = never accrued

	// CarryoverApplied marks that this year's row already received its
	// carryover from the previous year. Guards re-runs of the processor.
	CarryoverApplied bool

	UpdatedAt time.Time
}

func (b LeaveBalance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

// Available is always derived, never stored.
func (b LeaveBalance) Available() decimal.Decimal {
	return b.Allocated.Add(b.CarriedOver).Sub(b.Used).Sub(b.Pending)
}

// =============================================================================
// BALANCE CHANGE + HISTORY
// =============================================================================

type ChangeType string

const (
	ChangeAccrual    ChangeType = "accrual"
	ChangeUsage      ChangeType = "usage"
	ChangeAdjustment ChangeType = "adjustment"
	ChangeCarryover  ChangeType = "carryover"
)

// BalanceChange describes one ledger mutation. Accrual, adjustment and
// carryover credit the balance (adjustments may be negative); usage
// increases Used.
type BalanceChange struct {
	Type          ChangeType
	Amount        decimal.Decimal
	Reason        string
	EffectiveDate time.Time
}

// AccrualHistoryEntry is an immutable audit row appended on every ledger
// mutation. Amount is signed from the balance's point of view: credits
// positive, usage negative. The running sum of entries for a key always
// reconciles to Allocated + CarriedOver - Used.
type AccrualHistoryEntry struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	Year        int
	Date        time.Time
	Type        ChangeType

	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reason        string
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDenied    RequestStatus = "denied"
	StatusWithdrawn RequestStatus = "withdrawn"
	StatusCancelled RequestStatus = "cancelled"
)

type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	TotalDays   decimal.Decimal // derived, inclusive day count
	Reason      string
	Status      RequestStatus

	ApprovedBy   string
	ApprovedAt   *time.Time
	DenialReason string

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether the request's [start, end] interval touches
// the given inclusive interval.
func (r LeaveRequest) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleHRAdmin    Role = "hr-admin"
	RoleSuperAdmin Role = "super-admin"
)

// AuthContext carries a freshly resolved actor identity into workflow
// calls. It must be built through RequestWorkflow.Resolve so the role is
// the actor's current one, never a cached token role.
type AuthContext struct {
	ActorID string
	Role    Role
}

// =============================================================================
// BATCH RESULTS
// =============================================================================

// BatchResult is the partial-failure report of a batch run. Individual
// employee or policy failures are recorded here, never raised, so one
// bad record cannot halt a run.
type BatchResult struct {
	ProcessedCount int
	TotalAccrued   decimal.Decimal
	Errors         []string
}

func (r BatchResult) Success() bool {
	return r.ProcessedCount > 0 || len(r.Errors) == 0
}

// CarryoverResult summarizes a carryover run. Expired days are reported
// here (and logged by the caller) but never written to the ledger.
type CarryoverResult struct {
	ProcessedCount int
	TotalCarried   decimal.Decimal
	TotalExpired   decimal.Decimal
	Errors         []string
}

func (r CarryoverResult) Success() bool {
	return r.ProcessedCount > 0 || len(r.Errors) == 0
}
