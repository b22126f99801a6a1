/*
accrual.go - Scheduled accrual processing

PURPOSE:
  Advances balances according to policy frequency, idempotently. The
  engine runs from a periodic batch trigger and on demand; it is the only
  caller of the ledger besides the request workflow.

DUE THRESHOLDS:
  weekly >= 7 days since the last accrual, biweekly >= 14, monthly >= 28,
  quarterly >= 90, annually >= 365. No recorded accrual means due now.
  The 28-day monthly threshold deliberately undershoots a true calendar
  month so a cycle is never skipped when runs land a day early; see
  DESIGN.md for the trade-off.

PARTIAL FAILURE:
  Batch runs are fail-open. One policy's failure does not abort the
  employee's sibling policies; one employee's failure does not abort the
  batch. Failures are collected into the BatchResult, never raised.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccrualEngine advances balances per policy schedule.
type AccrualEngine struct {
	ledger      *Ledger
	assignments *Assignments
	directory   EmployeeDirectory
	clock       Clock
}

func NewAccrualEngine(ledger *Ledger, assignments *Assignments, directory EmployeeDirectory, clock Clock) *AccrualEngine {
	return &AccrualEngine{ledger: ledger, assignments: assignments, directory: directory, clock: clock}
}

// =============================================================================
// DUE CHECK
// =============================================================================

var accrualThresholdDays = map[AccrualFrequency]int{
	FreqWeekly:    7,
	FreqBiweekly:  14,
	FreqMonthly:   28,
	FreqQuarterly: 90,
	FreqAnnually:  365,
}

// IsAccrualDue reports whether enough time has passed since the last
// accrual for the frequency. A zero lastAccrualDate is always due.
func IsAccrualDue(frequency AccrualFrequency, lastAccrualDate, now time.Time) bool {
	if lastAccrualDate.IsZero() {
		return true
	}
	threshold, ok := accrualThresholdDays[frequency]
	if !ok {
		return false
	}
	return DaysBetween(lastAccrualDate, now) >= threshold
}

// =============================================================================
// PER-EMPLOYEE PROCESSING
// =============================================================================

// ProcessEmployeeAccruals runs every active policy assignment of the
// employee and returns the total days accrued. Policy failures are
// joined into the returned error; siblings still run.
func (e *AccrualEngine) ProcessEmployeeAccruals(ctx context.Context, employeeID string, asOf time.Time) (decimal.Decimal, error) {
	emp, err := e.directory.Employee(ctx, employeeID)
	if err != nil {
		return decimal.Zero, err
	}

	active, err := e.assignments.ActiveAssignments(ctx, employeeID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	var failures []error
	for _, aa := range active {
		accrued, err := e.processAssignment(ctx, emp, aa, asOf)
		if err != nil {
			failures = append(failures, fmt.Errorf("policy %s: %w", aa.Policy.ID, err))
			continue
		}
		total = total.Add(accrued)
	}
	return total, errors.Join(failures...)
}

func (e *AccrualEngine) processAssignment(ctx context.Context, emp Employee, aa ActiveAssignment, asOf time.Time) (decimal.Decimal, error) {
	// Probation gate: the assignment's policy is read here, at mutation
	// time, so a policy swap between validation and accrual cannot leak
	// an ineligible grant.
	if MonthsSince(emp.HireDate, asOf) < aa.Policy.ProbationPeriodMonths {
		return decimal.Zero, nil
	}

	key := BalanceKey{EmployeeID: emp.ID, LeaveTypeID: aa.Policy.LeaveTypeID, Year: asOf.Year()}
	var last time.Time
	if b, err := e.ledger.Balance(ctx, key); err == nil {
		last = b.LastAccrualDate
	} else if !IsNotFound(err) {
		return decimal.Zero, err
	}

	if !IsAccrualDue(aa.Policy.AccrualFrequency, last, asOf) {
		return decimal.Zero, nil
	}
	if !aa.Policy.AccrualRate.IsPositive() {
		return decimal.Zero, nil
	}

	_, err := e.ledger.Mutate(ctx, emp.ID, aa.Policy.LeaveTypeID, BalanceChange{
		Type:          ChangeAccrual,
		Amount:        aa.Policy.AccrualRate,
		Reason:        fmt.Sprintf("%s accrual (policy %s)", aa.Policy.AccrualFrequency, aa.Policy.Name),
		EffectiveDate: asOf,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return aa.Policy.AccrualRate, nil
}

// =============================================================================
// BATCH ENTRY POINTS
// =============================================================================

// ProcessScheduledAccruals runs accruals for every active employee.
func (e *AccrualEngine) ProcessScheduledAccruals(ctx context.Context) (BatchResult, error) {
	result := BatchResult{TotalAccrued: decimal.Zero}

	employees, err := e.directory.ActiveEmployees(ctx)
	if err != nil {
		return result, err
	}

	now := e.clock.Now()
	for _, emp := range employees {
		accrued, err := e.ProcessEmployeeAccruals(ctx, emp.ID, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s: %v", emp.ID, err))
		}
		if err == nil || accrued.IsPositive() {
			result.ProcessedCount++
			result.TotalAccrued = result.TotalAccrued.Add(accrued)
		}
	}
	return result, nil
}

// ProcessYearEndAccruals tops up annually-accruing policies to their
// (possibly custom) target allocation. Guards against an employee who
// never crossed the 365-day due boundary during the year.
func (e *AccrualEngine) ProcessYearEndAccruals(ctx context.Context, year int) (BatchResult, error) {
	result := BatchResult{TotalAccrued: decimal.Zero}

	employees, err := e.directory.ActiveEmployees(ctx)
	if err != nil {
		return result, err
	}

	for _, emp := range employees {
		active, err := e.assignments.ActiveAssignments(ctx, emp.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("employee %s: %v", emp.ID, err))
			continue
		}

		processed := false
		for _, aa := range active {
			if aa.Policy.AccrualFrequency != FreqAnnually {
				continue
			}
			topped, err := e.topUpShortfall(ctx, emp, aa, year)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("employee %s policy %s: %v", emp.ID, aa.Policy.ID, err))
				continue
			}
			if topped.IsPositive() {
				result.TotalAccrued = result.TotalAccrued.Add(topped)
				processed = true
			}
		}
		if processed {
			result.ProcessedCount++
		}
	}
	return result, nil
}

func (e *AccrualEngine) topUpShortfall(ctx context.Context, emp Employee, aa ActiveAssignment, year int) (decimal.Decimal, error) {
	target := aa.Allocation()

	key := BalanceKey{EmployeeID: emp.ID, LeaveTypeID: aa.Policy.LeaveTypeID, Year: year}
	allocated := decimal.Zero
	if b, err := e.ledger.Balance(ctx, key); err == nil {
		allocated = b.Allocated
	} else if !IsNotFound(err) {
		return decimal.Zero, err
	}

	shortfall := target.Sub(allocated)
	if !shortfall.IsPositive() {
		return decimal.Zero, nil
	}

	_, err := e.ledger.Mutate(ctx, emp.ID, aa.Policy.LeaveTypeID, BalanceChange{
		Type:          ChangeAccrual,
		Amount:        shortfall,
		Reason:        fmt.Sprintf("year-end top-up to %s (policy %s)", target, aa.Policy.Name),
		EffectiveDate: EndOfYear(year),
	})
	if err != nil {
		return decimal.Zero, err
	}
	return shortfall, nil
}

// =============================================================================
// PRORATION
// =============================================================================

// ProRatedAllocation scales an annual allocation to the fraction of the
// year remaining from the start date (inclusive) through December 31,
// rounded to 2 decimals. A Jan 1 start gets the full allocation; a
// Dec 31 start gets one day's worth.
func ProRatedAllocation(annual decimal.Decimal, startDate time.Time, year int) decimal.Decimal {
	start := Date(startDate)
	jan1 := StartOfYear(year)
	if start.Before(jan1) {
		start = jan1
	}
	dec31 := EndOfYear(year)
	if start.After(dec31) {
		return decimal.Zero
	}

	remaining := decimal.NewFromInt(int64(InclusiveDays(start, dec31)))
	total := decimal.NewFromInt(int64(DaysInYear(year)))
	return annual.Mul(remaining).Div(total).Round(2)
}

// InitializeBalance grants a new hire's first-year allocation, prorated
// from the later of the hire date and the assignment's effective date.
func (e *AccrualEngine) InitializeBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	emp, err := e.directory.Employee(ctx, employeeID)
	if err != nil {
		return LeaveBalance{}, err
	}
	aa, err := e.assignments.ActiveAssignmentForLeaveType(ctx, employeeID, leaveTypeID)
	if err != nil {
		return LeaveBalance{}, err
	}

	from := Date(emp.HireDate)
	if aa.Assignment.EffectiveDate.After(from) {
		from = aa.Assignment.EffectiveDate
	}
	prorated := ProRatedAllocation(aa.Allocation(), from, year)
	if !prorated.IsPositive() {
		key := BalanceKey{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: year}
		b, err := e.ledger.Balance(ctx, key)
		if IsNotFound(err) {
			return LeaveBalance{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: year}, nil
		}
		return b, err
	}

	return e.ledger.Mutate(ctx, employeeID, leaveTypeID, BalanceChange{
		Type:          ChangeAccrual,
		Amount:        prorated,
		Reason:        fmt.Sprintf("initial prorated allocation (policy %s)", aa.Policy.Name),
		EffectiveDate: from,
	})
}
