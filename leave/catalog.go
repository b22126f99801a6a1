/*
catalog.go - Leave type and policy management

The catalog is the read-mostly input consulted by both the accrual engine
and the validation engine. Leave types that are referenced anywhere are
never hard-deleted; Delete returns a tagged outcome saying which path was
taken.
*/
package leave

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog manages LeaveType and LeavePolicy definitions.
type Catalog struct {
	store Store
	clock Clock
}

func NewCatalog(store Store, clock Clock) *Catalog {
	return &Catalog{store: store, clock: clock}
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

type CreateLeaveTypeInput struct {
	Name               string
	ColorCode          string
	IsPaid             bool
	RequiresApproval   bool
	MaxConsecutiveDays *int
	AdvanceNoticeDays  int
}

func (c *Catalog) CreateLeaveType(ctx context.Context, in CreateLeaveTypeInput) (LeaveType, error) {
	var errs []string
	if in.Name == "" {
		errs = append(errs, "name is required")
	}
	if in.AdvanceNoticeDays < 0 {
		errs = append(errs, "advance notice days must not be negative")
	}
	if in.MaxConsecutiveDays != nil && *in.MaxConsecutiveDays < 1 {
		errs = append(errs, "max consecutive days must be at least 1")
	}
	if len(errs) > 0 {
		return LeaveType{}, &ValidationError{Errors: errs}
	}

	if existing, err := c.store.GetLeaveTypeByName(ctx, in.Name); err == nil {
		return LeaveType{}, &ConflictError{Message: fmt.Sprintf("leave type %q already exists (id %s)", in.Name, existing.ID)}
	} else if !IsNotFound(err) {
		return LeaveType{}, err
	}

	lt := LeaveType{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		ColorCode:          in.ColorCode,
		IsPaid:             in.IsPaid,
		RequiresApproval:   in.RequiresApproval,
		MaxConsecutiveDays: in.MaxConsecutiveDays,
		AdvanceNoticeDays:  in.AdvanceNoticeDays,
		IsActive:           true,
		CreatedAt:          c.clock.Now(),
	}
	if err := c.store.InsertLeaveType(ctx, lt); err != nil {
		return LeaveType{}, err
	}
	return lt, nil
}

func (c *Catalog) LeaveType(ctx context.Context, id string) (LeaveType, error) {
	return c.store.GetLeaveType(ctx, id)
}

func (c *Catalog) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	return c.store.ListLeaveTypes(ctx)
}

type UpdateLeaveTypeInput struct {
	ColorCode          *string
	IsPaid             *bool
	RequiresApproval   *bool
	MaxConsecutiveDays *int
	AdvanceNoticeDays  *int
	IsActive           *bool
}

func (c *Catalog) UpdateLeaveType(ctx context.Context, id string, in UpdateLeaveTypeInput) (LeaveType, error) {
	lt, err := c.store.GetLeaveType(ctx, id)
	if err != nil {
		return LeaveType{}, err
	}
	if in.ColorCode != nil {
		lt.ColorCode = *in.ColorCode
	}
	if in.IsPaid != nil {
		lt.IsPaid = *in.IsPaid
	}
	if in.RequiresApproval != nil {
		lt.RequiresApproval = *in.RequiresApproval
	}
	if in.MaxConsecutiveDays != nil {
		lt.MaxConsecutiveDays = in.MaxConsecutiveDays
	}
	if in.AdvanceNoticeDays != nil {
		lt.AdvanceNoticeDays = *in.AdvanceNoticeDays
	}
	if in.IsActive != nil {
		lt.IsActive = *in.IsActive
	}
	if err := c.store.UpdateLeaveType(ctx, lt); err != nil {
		return LeaveType{}, err
	}
	return lt, nil
}

// DeleteLeaveType hard-deletes an unreferenced leave type and
// deactivates one that any policy or request still points at.
func (c *Catalog) DeleteLeaveType(ctx context.Context, id string) (DeleteOutcome, error) {
	lt, err := c.store.GetLeaveType(ctx, id)
	if err != nil {
		return "", err
	}

	inUse, err := c.store.LeaveTypeInUse(ctx, id)
	if err != nil {
		return "", err
	}
	if inUse {
		lt.IsActive = false
		if err := c.store.UpdateLeaveType(ctx, lt); err != nil {
			return "", err
		}
		return Deactivated, nil
	}

	if err := c.store.DeleteLeaveType(ctx, id); err != nil {
		return "", err
	}
	return HardDeleted, nil
}

// =============================================================================
// POLICIES
// =============================================================================

type CreatePolicyInput struct {
	LeaveTypeID           string
	Name                  string
	AnnualAllocation      decimal.Decimal
	AccrualRate           decimal.Decimal
	AccrualFrequency      AccrualFrequency
	ProbationPeriodMonths int
	CarryoverLimit        decimal.Decimal
}

func (c *Catalog) CreatePolicy(ctx context.Context, in CreatePolicyInput) (LeavePolicy, error) {
	lt, err := c.store.GetLeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		return LeavePolicy{}, err
	}

	var errs []string
	if !lt.IsActive {
		errs = append(errs, fmt.Sprintf("leave type %q is inactive", lt.Name))
	}
	if !in.AccrualFrequency.Valid() {
		errs = append(errs, fmt.Sprintf("unknown accrual frequency %q", in.AccrualFrequency))
	}
	if in.AnnualAllocation.IsNegative() {
		errs = append(errs, "annual allocation must not be negative")
	}
	if in.AccrualRate.IsNegative() {
		errs = append(errs, "accrual rate must not be negative")
	}
	if in.ProbationPeriodMonths < 0 {
		errs = append(errs, "probation period must not be negative")
	}
	if in.CarryoverLimit.IsNegative() {
		errs = append(errs, "carryover limit must not be negative")
	}
	if len(errs) > 0 {
		return LeavePolicy{}, &ValidationError{Errors: errs}
	}

	p := LeavePolicy{
		ID:                    uuid.NewString(),
		LeaveTypeID:           in.LeaveTypeID,
		Name:                  in.Name,
		AnnualAllocation:      in.AnnualAllocation,
		AccrualRate:           in.AccrualRate,
		AccrualFrequency:      in.AccrualFrequency,
		ProbationPeriodMonths: in.ProbationPeriodMonths,
		CarryoverLimit:        in.CarryoverLimit,
		IsActive:              true,
		CreatedAt:             c.clock.Now(),
	}
	if err := c.store.InsertPolicy(ctx, p); err != nil {
		return LeavePolicy{}, err
	}
	return p, nil
}

func (c *Catalog) Policy(ctx context.Context, id string) (LeavePolicy, error) {
	return c.store.GetPolicy(ctx, id)
}

func (c *Catalog) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	return c.store.ListPolicies(ctx)
}

func (c *Catalog) PoliciesForLeaveType(ctx context.Context, leaveTypeID string) ([]LeavePolicy, error) {
	return c.store.ListPoliciesByLeaveType(ctx, leaveTypeID)
}

// DeactivatePolicy retires a policy without touching assignments that
// already reference it.
func (c *Catalog) DeactivatePolicy(ctx context.Context, id string) (LeavePolicy, error) {
	p, err := c.store.GetPolicy(ctx, id)
	if err != nil {
		return LeavePolicy{}, err
	}
	p.IsActive = false
	if err := c.store.UpdatePolicy(ctx, p); err != nil {
		return LeavePolicy{}, err
	}
	return p, nil
}
