/*
store.go - Persistence interfaces for the leave core

PURPOSE:
  Defines the boundary between the domain logic and row storage. Two
  implementations exist: store/sqlite (production, database-backed) and
  leave/store/memory (tests and development).

ATOMICITY CONTRACT:
  MutateBalance is THE critical operation. It must execute its callback
  as a single atomic read-modify-write on the (employee, leaveType, year)
  key: two concurrent mutations on the same key serialize, and the second
  sees the first's result. A separate get-then-put loses updates under
  concurrency and is not an acceptable implementation.

LAZY BALANCE ROWS:
  MutateBalance creates a zero-valued row on first touch of a key. Rows
  are never deleted; a new policy year gets a new row.

HISTORY:
  When the MutateBalance callback returns a history entry, the store
  persists row and entry together (same transaction / same critical
  section). Pending reservations return no entry and are not historized.
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// CATALOG STORAGE
// =============================================================================

type LeaveTypeStore interface {
	InsertLeaveType(ctx context.Context, lt LeaveType) error
	GetLeaveType(ctx context.Context, id string) (LeaveType, error)
	GetLeaveTypeByName(ctx context.Context, name string) (LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)
	UpdateLeaveType(ctx context.Context, lt LeaveType) error
	DeleteLeaveType(ctx context.Context, id string) error

	// LeaveTypeInUse reports whether any policy or request references the
	// type. Decides hard delete vs deactivation.
	LeaveTypeInUse(ctx context.Context, id string) (bool, error)
}

type PolicyStore interface {
	InsertPolicy(ctx context.Context, p LeavePolicy) error
	GetPolicy(ctx context.Context, id string) (LeavePolicy, error)
	ListPolicies(ctx context.Context) ([]LeavePolicy, error)
	ListPoliciesByLeaveType(ctx context.Context, leaveTypeID string) ([]LeavePolicy, error)
	UpdatePolicy(ctx context.Context, p LeavePolicy) error
}

type AssignmentStore interface {
	InsertAssignment(ctx context.Context, a PolicyAssignment) error
	UpdateAssignment(ctx context.Context, a PolicyAssignment) error
	AssignmentsByEmployee(ctx context.Context, employeeID string) ([]PolicyAssignment, error)
}

// =============================================================================
// BALANCE STORAGE
// =============================================================================

// BalanceMutator applies a change to a balance row in place. Returning a
// non-nil entry appends it to the history atomically with the row write.
// Returning an error aborts the mutation; the row is left untouched.
type BalanceMutator func(b *LeaveBalance) (*AccrualHistoryEntry, error)

type BalanceStore interface {
	// GetBalance returns the row for the key, or a NotFoundError if the
	// key has never been touched.
	GetBalance(ctx context.Context, key BalanceKey) (LeaveBalance, error)

	// BalancesForYear returns every balance row of the given policy year.
	BalancesForYear(ctx context.Context, year int) ([]LeaveBalance, error)

	// MutateBalance atomically applies fn to the row for key, creating a
	// zero row first if none exists. See the atomicity contract above.
	MutateBalance(ctx context.Context, key BalanceKey, fn BalanceMutator) (LeaveBalance, error)

	// History returns the audit entries for a key, oldest first.
	History(ctx context.Context, key BalanceKey) ([]AccrualHistoryEntry, error)
}

// =============================================================================
// REQUEST STORAGE
// =============================================================================

type RequestStore interface {
	InsertRequest(ctx context.Context, r LeaveRequest) error
	GetRequest(ctx context.Context, id string) (LeaveRequest, error)
	UpdateRequest(ctx context.Context, r LeaveRequest) error
	RequestsByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	RequestsByStatus(ctx context.Context, status RequestStatus) ([]LeaveRequest, error)

	// OverlappingRequests returns the employee's requests in the given
	// statuses whose [start, end] interval overlaps the inclusive range.
	// excludeID skips one request when revalidating it.
	OverlappingRequests(ctx context.Context, employeeID string, start, end time.Time, excludeID string, statuses []RequestStatus) ([]LeaveRequest, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is everything the leave core needs from persistence.
type Store interface {
	LeaveTypeStore
	PolicyStore
	AssignmentStore
	BalanceStore
	RequestStore
}
