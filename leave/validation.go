/*
validation.go - Pre-submission and pre-approval request checks

The engine runs every check and accumulates the results instead of
short-circuiting, so a caller sees all problems at once. Errors block
the request; warnings are informational and never block.

CHECK ORDER:
   1. Date sanity (start <= end, not in the past; warn if >1 year out)
   2. Leave type active
   3. Employee active
   4. Advance notice
   5. Max consecutive days
   6. Probation
   7. Balance sufficiency (warn when fewer than 2 days would remain)
   8. Overlap conflict against pending/approved requests (inclusive)
   9. Team availability (warning only)
  10. Blackout rules (extensible; default warns on annual leave
      touching December)

REVALIDATION:
  When excludeRequestID names an existing request, the checks measure
  drift since submission rather than re-judging the submission itself:
  the submission-timing checks (past start, advance notice) are
  skipped, the named request is excluded from the overlap check, and
  its own pending reservation is credited back before the sufficiency
  check so a request is never charged against its own hold.
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationResult accumulates every problem found.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// BlackoutRule inspects a validated interval and returns a warning, or
// "" when the rule does not apply.
type BlackoutRule func(lt LeaveType, start, end time.Time) string

// DecemberBlackout is the default rule: annual-style paid leave touching
// December competes with the busiest scheduling window of the year.
func DecemberBlackout(lt LeaveType, start, end time.Time) string {
	if !lt.IsPaid || !strings.Contains(strings.ToLower(lt.Name), "annual") {
		return ""
	}
	dec1 := NewDate(start.Year(), time.December, 1)
	dec31 := NewDate(start.Year(), time.December, 31)
	if !start.After(dec31) && !end.Before(dec1) {
		return fmt.Sprintf("%s spanning December falls in a blackout-sensitive period", lt.Name)
	}
	return ""
}

// ValidationEngine runs the pre-submission / pre-approval checks.
type ValidationEngine struct {
	store       Store
	ledger      *Ledger
	assignments *Assignments
	directory   EmployeeDirectory
	calendar    BusinessCalendar
	clock       Clock
	blackouts   []BlackoutRule
}

func NewValidationEngine(store Store, ledger *Ledger, assignments *Assignments, directory EmployeeDirectory, clock Clock) *ValidationEngine {
	return &ValidationEngine{
		store:       store,
		ledger:      ledger,
		assignments: assignments,
		directory:   directory,
		calendar:    CalendarDays{},
		clock:       clock,
		blackouts:   []BlackoutRule{DecemberBlackout},
	}
}

// WithCalendar swaps the day-counting collaborator (e.g. business days
// only).
func (v *ValidationEngine) WithCalendar(c BusinessCalendar) *ValidationEngine {
	v.calendar = c
	return v
}

// WithBlackoutRules replaces the blackout rule set.
func (v *ValidationEngine) WithBlackoutRules(rules ...BlackoutRule) *ValidationEngine {
	v.blackouts = rules
	return v
}

// TotalDays returns the day count a request over [start, end] consumes.
func (v *ValidationEngine) TotalDays(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(v.calendar.CountDays(start, end)))
}

// ValidateLeaveRequest runs all checks for the interval. A non-empty
// excludeRequestID switches the engine into revalidation mode for that
// request: it is excluded from the conflict check, its own pending
// reservation does not count against sufficiency, and the
// submission-timing checks are skipped.
func (v *ValidationEngine) ValidateLeaveRequest(ctx context.Context, employeeID, leaveTypeID string, start, end time.Time, excludeRequestID string) (ValidationResult, error) {
	var result ValidationResult
	start, end = Date(start), Date(end)
	today := Date(v.clock.Now())
	revalidating := excludeRequestID != ""

	// 1. Date sanity. A reversed interval makes the remaining checks
	// meaningless, so they are skipped; everything else accumulates.
	if start.After(end) {
		result.addError("start date %s is after end date %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
		return result, nil
	}
	if !revalidating && start.Before(today) {
		result.addError("start date %s is in the past", start.Format(time.DateOnly))
	}
	if DaysBetween(today, start) > 365 {
		result.addWarning("start date %s is more than a year away", start.Format(time.DateOnly))
	}

	totalDays := v.TotalDays(start, end)

	// 2. Leave type active.
	lt, err := v.store.GetLeaveType(ctx, leaveTypeID)
	if err != nil {
		if IsNotFound(err) {
			result.addError("leave type %s does not exist", leaveTypeID)
			result.IsValid = false
			return result, nil
		}
		return ValidationResult{}, err
	}
	if !lt.IsActive {
		result.addError("leave type %q is inactive", lt.Name)
	}

	// 3. Employee active.
	emp, err := v.directory.Employee(ctx, employeeID)
	if err != nil {
		if IsNotFound(err) {
			result.addError("employee %s does not exist", employeeID)
			result.IsValid = false
			return result, nil
		}
		return ValidationResult{}, err
	}
	if !emp.IsActive() {
		result.addError("employee %s is not active (%s)", employeeID, emp.EmploymentStatus)
	}

	// 4. Advance notice. Submission-timing only: a decision taken on or
	// after the start date must not fail for lateness the request did
	// not have when it was submitted.
	if !revalidating && lt.AdvanceNoticeDays > 0 && DaysBetween(today, start) < lt.AdvanceNoticeDays {
		result.addError("%s requires %d days advance notice", lt.Name, lt.AdvanceNoticeDays)
	}

	// 5. Max consecutive days.
	if lt.MaxConsecutiveDays != nil && totalDays.GreaterThan(decimal.NewFromInt(int64(*lt.MaxConsecutiveDays))) {
		result.addError("request of %s days exceeds the %d consecutive day limit for %s", totalDays, *lt.MaxConsecutiveDays, lt.Name)
	}

	// 6. Probation.
	aa, err := v.assignments.ActiveAssignmentForLeaveType(ctx, employeeID, leaveTypeID)
	if err != nil {
		if IsNotFound(err) {
			result.addError("no active policy assignment for %s", lt.Name)
		} else {
			return ValidationResult{}, err
		}
	} else if MonthsSince(emp.HireDate, today) < aa.Policy.ProbationPeriodMonths {
		result.addError("employee is within the %d month probation period for %s", aa.Policy.ProbationPeriodMonths, lt.Name)
	}

	// 7. Balance sufficiency.
	available := decimal.Zero
	key := BalanceKey{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: start.Year()}
	if b, err := v.ledger.Balance(ctx, key); err == nil {
		available = b.Available()
	} else if !IsNotFound(err) {
		return ValidationResult{}, err
	}
	if revalidating {
		// A pending request under revalidation still holds its own
		// reservation; credit it back so the check catches drift since
		// submission instead of charging the request against itself.
		if prior, err := v.store.GetRequest(ctx, excludeRequestID); err == nil {
			if prior.Status == StatusPending {
				available = available.Add(prior.TotalDays)
			}
		} else if !IsNotFound(err) {
			return ValidationResult{}, err
		}
	}
	if available.LessThan(totalDays) {
		result.addError("insufficient balance: %s days available, %s requested", available, totalDays)
	} else if available.Sub(totalDays).LessThan(decimal.NewFromInt(2)) {
		result.addWarning("request leaves only %s days of %s", available.Sub(totalDays), lt.Name)
	}

	// 8. Overlap conflict.
	overlapping, err := v.store.OverlappingRequests(ctx, employeeID, start, end,
		excludeRequestID, []RequestStatus{StatusPending, StatusApproved})
	if err != nil {
		return ValidationResult{}, err
	}
	for _, other := range overlapping {
		result.addError("overlaps %s request %s (%s to %s)",
			other.Status, other.ID,
			other.StartDate.Format(time.DateOnly), other.EndDate.Format(time.DateOnly))
	}

	// 9. Team availability (warning only).
	if warning, err := v.teamAvailability(ctx, emp, start, end); err != nil {
		return ValidationResult{}, err
	} else if warning != "" {
		result.addWarning("%s", warning)
	}

	// 10. Blackouts.
	for _, rule := range v.blackouts {
		if w := rule(lt, start, end); w != "" {
			result.addWarning("%s", w)
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}

// teamAvailability warns when at least half of the employee's
// same-manager peers already have approved leave overlapping the
// interval.
func (v *ValidationEngine) teamAvailability(ctx context.Context, emp Employee, start, end time.Time) (string, error) {
	if emp.ManagerID == "" {
		return "", nil
	}
	team, err := v.directory.TeamMembers(ctx, emp.ManagerID)
	if err != nil {
		return "", err
	}

	peers := 0
	away := 0
	for _, member := range team {
		if member.ID == emp.ID {
			continue
		}
		peers++
		overlapping, err := v.store.OverlappingRequests(ctx, member.ID, start, end, "", []RequestStatus{StatusApproved})
		if err != nil {
			return "", err
		}
		if len(overlapping) > 0 {
			away++
		}
	}

	if peers > 0 && away*2 >= peers {
		return fmt.Sprintf("%d of %d team members already have approved leave in this period", away, peers), nil
	}
	return "", nil
}
