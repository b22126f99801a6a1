/*
assignment.go - Employee policy assignment

An employee holds at most one ACTIVE assignment per leave type at a
time. A policy change supersedes the old assignment (deactivates it and
inserts a new row) so the binding history stays intact; assignments are
never edited in place.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Assignments binds employees to policies.
type Assignments struct {
	store     Store
	directory EmployeeDirectory
	clock     Clock
}

func NewAssignments(store Store, directory EmployeeDirectory, clock Clock) *Assignments {
	return &Assignments{store: store, directory: directory, clock: clock}
}

type AssignInput struct {
	EmployeeID       string
	PolicyID         string
	EffectiveDate    time.Time
	CustomAllocation *decimal.Decimal
}

// Assign gives the employee the policy, superseding any active
// assignment for the same leave type.
func (s *Assignments) Assign(ctx context.Context, in AssignInput) (PolicyAssignment, error) {
	if _, err := s.directory.Employee(ctx, in.EmployeeID); err != nil {
		return PolicyAssignment{}, err
	}
	policy, err := s.store.GetPolicy(ctx, in.PolicyID)
	if err != nil {
		return PolicyAssignment{}, err
	}
	if !policy.IsActive {
		return PolicyAssignment{}, &ValidationError{Errors: []string{
			fmt.Sprintf("policy %q is inactive", policy.Name),
		}}
	}
	if in.CustomAllocation != nil && in.CustomAllocation.IsNegative() {
		return PolicyAssignment{}, &ValidationError{Errors: []string{
			"custom allocation must not be negative",
		}}
	}

	// Supersede: at most one active assignment per leave type.
	existing, err := s.store.AssignmentsByEmployee(ctx, in.EmployeeID)
	if err != nil {
		return PolicyAssignment{}, err
	}
	for _, a := range existing {
		if !a.IsActive {
			continue
		}
		p, err := s.store.GetPolicy(ctx, a.PolicyID)
		if err != nil {
			return PolicyAssignment{}, err
		}
		if p.LeaveTypeID != policy.LeaveTypeID {
			continue
		}
		a.IsActive = false
		if err := s.store.UpdateAssignment(ctx, a); err != nil {
			return PolicyAssignment{}, err
		}
	}

	assignment := PolicyAssignment{
		ID:               uuid.NewString(),
		EmployeeID:       in.EmployeeID,
		PolicyID:         in.PolicyID,
		EffectiveDate:    Date(in.EffectiveDate),
		CustomAllocation: in.CustomAllocation,
		IsActive:         true,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.store.InsertAssignment(ctx, assignment); err != nil {
		return PolicyAssignment{}, err
	}
	return assignment, nil
}

// ActiveAssignment is an assignment joined with its policy, the shape
// both engines consume.
type ActiveAssignment struct {
	Assignment PolicyAssignment
	Policy     LeavePolicy
}

// Allocation returns the annual allocation in force (custom override or
// policy default).
func (a ActiveAssignment) Allocation() decimal.Decimal {
	return a.Assignment.Allocation(a.Policy)
}

// ActiveAssignments returns the employee's active assignments with their
// policies resolved, one per leave type.
func (s *Assignments) ActiveAssignments(ctx context.Context, employeeID string) ([]ActiveAssignment, error) {
	all, err := s.store.AssignmentsByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	var active []ActiveAssignment
	for _, a := range all {
		if !a.IsActive {
			continue
		}
		p, err := s.store.GetPolicy(ctx, a.PolicyID)
		if err != nil {
			return nil, err
		}
		active = append(active, ActiveAssignment{Assignment: a, Policy: p})
	}
	return active, nil
}

// ActiveAssignmentForLeaveType returns the employee's single active
// assignment for the leave type, or a NotFoundError.
func (s *Assignments) ActiveAssignmentForLeaveType(ctx context.Context, employeeID, leaveTypeID string) (ActiveAssignment, error) {
	active, err := s.ActiveAssignments(ctx, employeeID)
	if err != nil {
		return ActiveAssignment{}, err
	}
	for _, a := range active {
		if a.Policy.LeaveTypeID == leaveTypeID {
			return a, nil
		}
	}
	return ActiveAssignment{}, &NotFoundError{
		Kind: "policy assignment",
		ID:   employeeID + "/" + leaveTypeID,
	}
}
