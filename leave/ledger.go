/*
ledger.go - The balance ledger

PURPOSE:
  The ledger exclusively owns LeaveBalance and AccrualHistoryEntry
  mutation. The accrual engine and the request workflow are its only
  intended callers; nothing else writes balances.

MUTATION MODEL:
  Every change goes through the store's MutateBalance, a single atomic
  read-modify-write per (employee, leaveType, year) key. Two concurrent
  mutations on the same key serialize and net out; a stale read can never
  overwrite a concurrent write.

HISTORY:
  Mutate appends exactly one history entry per change, capturing the
  available balance before and after. Pending reservations deliberately
  bypass history: a reservation is bookkeeping for an undecided request,
  not an accrual event, and historizing it would pollute the audit trail
  with noise that nets to zero.

SIGN CONVENTIONS:
  accrual / carryover:  positive credit to Allocated / CarriedOver
  adjustment:           signed credit to Allocated (may be negative)
  usage:                positive days added to Used, historized negative
  usage restore:        negative days taken off Used, historized positive
*/
package leave

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the sole mutator of leave balances.
type Ledger struct {
	store Store
	clock Clock
}

func NewLedger(store Store, clock Clock) *Ledger {
	return &Ledger{store: store, clock: clock}
}

// =============================================================================
// QUERIES
// =============================================================================

// Balance returns the balance row for the key, or a NotFoundError if the
// key has never been touched.
func (l *Ledger) Balance(ctx context.Context, key BalanceKey) (LeaveBalance, error) {
	return l.store.GetBalance(ctx, key)
}

// History returns the audit entries for the key, oldest first.
func (l *Ledger) History(ctx context.Context, key BalanceKey) ([]AccrualHistoryEntry, error) {
	return l.store.History(ctx, key)
}

// =============================================================================
// MUTATION
// =============================================================================

// Mutate applies one balance change and appends its history entry. The
// year row is created lazily on first touch. Fails with a NotFoundError
// if the leave type does not exist; it never silently no-ops.
func (l *Ledger) Mutate(ctx context.Context, employeeID, leaveTypeID string, change BalanceChange) (LeaveBalance, error) {
	if _, err := l.store.GetLeaveType(ctx, leaveTypeID); err != nil {
		return LeaveBalance{}, err
	}
	if err := validateChange(change); err != nil {
		return LeaveBalance{}, err
	}

	key := BalanceKey{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Year:        change.EffectiveDate.Year(),
	}
	return l.store.MutateBalance(ctx, key, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		before := b.Available()
		var recorded decimal.Decimal

		switch change.Type {
		case ChangeAccrual:
			b.Allocated = b.Allocated.Add(change.Amount)
			b.LastAccrualDate = Date(change.EffectiveDate)
			recorded = change.Amount
		case ChangeCarryover:
			b.CarriedOver = b.CarriedOver.Add(change.Amount)
			recorded = change.Amount
		case ChangeAdjustment:
			b.Allocated = b.Allocated.Add(change.Amount)
			recorded = change.Amount
		case ChangeUsage:
			b.Used = b.Used.Add(change.Amount)
			recorded = change.Amount.Neg()
		default:
			return nil, &ValidationError{Errors: []string{fmt.Sprintf("unknown change type %q", change.Type)}}
		}

		b.UpdatedAt = l.clock.Now()
		return &AccrualHistoryEntry{
			ID:            uuid.NewString(),
			EmployeeID:    key.EmployeeID,
			LeaveTypeID:   key.LeaveTypeID,
			Year:          key.Year,
			Date:          Date(change.EffectiveDate),
			Type:          change.Type,
			Amount:        recorded,
			BalanceBefore: before,
			BalanceAfter:  b.Available(),
			Reason:        change.Reason,
		}, nil
	})
}

func validateChange(change BalanceChange) error {
	var errs []string
	if change.EffectiveDate.IsZero() {
		errs = append(errs, "effective date is required")
	}
	switch change.Type {
	case ChangeAccrual, ChangeCarryover, ChangeUsage:
		if !change.Amount.IsPositive() {
			errs = append(errs, fmt.Sprintf("%s amount must be positive, got %s", change.Type, change.Amount))
		}
	case ChangeAdjustment:
		if change.Amount.IsZero() {
			errs = append(errs, "adjustment amount must not be zero")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// =============================================================================
// PENDING RESERVATIONS - Workflow only, not historized
// =============================================================================

// ReservePending holds days against the balance for a not-yet-decided
// request. The sufficiency check runs inside the atomic mutation: two
// concurrent reservations that each passed validation cannot both land
// and drive the available balance negative.
func (l *Ledger) ReservePending(ctx context.Context, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, &ValidationError{Errors: []string{"reservation must be positive"}}
	}
	return l.store.MutateBalance(ctx, key, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		if b.Available().LessThan(days) {
			return nil, &ValidationError{Errors: []string{
				fmt.Sprintf("insufficient balance: %s days available, %s requested", b.Available(), days),
			}}
		}
		b.Pending = b.Pending.Add(days)
		b.UpdatedAt = l.clock.Now()
		return nil, nil
	})
}

// ReleasePending returns reserved days to the balance. Pending is
// floored at zero; it can never go negative.
func (l *Ledger) ReleasePending(ctx context.Context, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, &ValidationError{Errors: []string{"release must be positive"}}
	}
	return l.store.MutateBalance(ctx, key, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		b.Pending = b.Pending.Sub(days)
		if b.Pending.IsNegative() {
			b.Pending = decimal.Zero
		}
		b.UpdatedAt = l.clock.Now()
		return nil, nil
	})
}

// CommitPending converts a reservation into usage in one atomic step:
// pending goes down, used goes up, and a single usage entry records the
// consumption. Used on request approval.
func (l *Ledger) CommitPending(ctx context.Context, key BalanceKey, days decimal.Decimal, reason string) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, &ValidationError{Errors: []string{"commit must be positive"}}
	}
	now := l.clock.Now()
	return l.store.MutateBalance(ctx, key, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		before := b.Available()
		b.Pending = b.Pending.Sub(days)
		if b.Pending.IsNegative() {
			b.Pending = decimal.Zero
		}
		b.Used = b.Used.Add(days)
		b.UpdatedAt = now
		return &AccrualHistoryEntry{
			ID:            uuid.NewString(),
			EmployeeID:    key.EmployeeID,
			LeaveTypeID:   key.LeaveTypeID,
			Year:          key.Year,
			Date:          Date(now),
			Type:          ChangeUsage,
			Amount:        days.Neg(),
			BalanceBefore: before,
			BalanceAfter:  b.Available(),
			Reason:        reason,
		}, nil
	})
}

// RestoreUsed gives consumed days back, recorded as an adjustment entry.
// Used when an approved request is cancelled.
func (l *Ledger) RestoreUsed(ctx context.Context, key BalanceKey, days decimal.Decimal, reason string) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, &ValidationError{Errors: []string{"restore must be positive"}}
	}
	now := l.clock.Now()
	return l.store.MutateBalance(ctx, key, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		before := b.Available()
		b.Used = b.Used.Sub(days)
		if b.Used.IsNegative() {
			b.Used = decimal.Zero
		}
		b.UpdatedAt = now
		return &AccrualHistoryEntry{
			ID:            uuid.NewString(),
			EmployeeID:    key.EmployeeID,
			LeaveTypeID:   key.LeaveTypeID,
			Year:          key.Year,
			Date:          Date(now),
			Type:          ChangeAdjustment,
			Amount:        days,
			BalanceBefore: before,
			BalanceAfter:  b.Available(),
			Reason:        reason,
		}, nil
	})
}
