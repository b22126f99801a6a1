/*
carryover.go - Year-end carryover settlement

For every balance row of year-1, the unused available days move into the
year row's CarriedOver, capped by the policy's carryover limit. Whatever
exceeds the cap expires: it is reported in the run summary and logged by
the caller, but never written to the ledger.

Idempotence: the target-year row carries a CarryoverApplied marker set
inside the same atomic mutation that credits it, so re-running the
processor for a year is a no-op, not a double grant.
*/
package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CarryoverProcessor settles year boundaries.
type CarryoverProcessor struct {
	ledger      *Ledger
	assignments *Assignments
	store       Store
	clock       Clock
}

func NewCarryoverProcessor(ledger *Ledger, assignments *Assignments, store Store, clock Clock) *CarryoverProcessor {
	return &CarryoverProcessor{ledger: ledger, assignments: assignments, store: store, clock: clock}
}

// errCarryoverDone aborts the mutation when the target row was already
// settled; the processor treats it as a skip, not a failure.
var errCarryoverDone = errors.New("carryover already applied")

// ProcessCarryovers initializes year rows from year-1 balances. Safe to
// re-run for the same year.
func (p *CarryoverProcessor) ProcessCarryovers(ctx context.Context, year int) (CarryoverResult, error) {
	result := CarryoverResult{TotalCarried: decimal.Zero, TotalExpired: decimal.Zero}

	previous, err := p.store.BalancesForYear(ctx, year-1)
	if err != nil {
		return result, err
	}

	for _, prev := range previous {
		carried, expired, err := p.carryOne(ctx, prev, year)
		if errors.Is(err, errCarryoverDone) {
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s leave type %s: %v", prev.EmployeeID, prev.LeaveTypeID, err))
			continue
		}
		result.ProcessedCount++
		result.TotalCarried = result.TotalCarried.Add(carried)
		result.TotalExpired = result.TotalExpired.Add(expired)
	}
	return result, nil
}

func (p *CarryoverProcessor) carryOne(ctx context.Context, prev LeaveBalance, year int) (carried, expired decimal.Decimal, err error) {
	aa, err := p.assignments.ActiveAssignmentForLeaveType(ctx, prev.EmployeeID, prev.LeaveTypeID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	available := prev.Available()
	if available.IsNegative() {
		available = decimal.Zero
	}
	carried = decimal.Min(available, aa.Policy.CarryoverLimit)
	expired = available.Sub(carried)

	target := BalanceKey{EmployeeID: prev.EmployeeID, LeaveTypeID: prev.LeaveTypeID, Year: year}
	now := p.clock.Now()
	_, err = p.store.MutateBalance(ctx, target, func(b *LeaveBalance) (*AccrualHistoryEntry, error) {
		if b.CarryoverApplied {
			return nil, errCarryoverDone
		}
		b.CarryoverApplied = true
		b.UpdatedAt = now
		if !carried.IsPositive() {
			// Still mark the row so a later re-run with a changed policy
			// cannot retroactively grant a carryover.
			return nil, nil
		}

		before := b.Available()
		b.CarriedOver = b.CarriedOver.Add(carried)
		return &AccrualHistoryEntry{
			ID:            uuid.NewString(),
			EmployeeID:    target.EmployeeID,
			LeaveTypeID:   target.LeaveTypeID,
			Year:          target.Year,
			Date:          StartOfYear(year),
			Type:          ChangeCarryover,
			Amount:        carried,
			BalanceBefore: before,
			BalanceAfter:  b.Available(),
			Reason:        fmt.Sprintf("carryover from %d (cap %s)", year-1, aa.Policy.CarryoverLimit),
		}, nil
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return carried, expired, nil
}
