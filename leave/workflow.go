/*
workflow.go - Leave request lifecycle state machine

PURPOSE:
  Governs every status transition of a leave request and the balance
  side-effect each transition carries:

    pending  -> approved   release pending, add used
    pending  -> denied     release pending (reason required)
    pending  -> withdrawn  release pending
    approved -> cancelled  restore used (reason required)
    denied   -> pending    re-validate, re-reserve pending (submitter only)

  The table below is DATA, not branching logic: legality, allowed roles,
  and the reason requirement are all looked up from transition records,
  so "every legal pair succeeds" and "every other pair is rejected" are
  directly testable.

AUTHORIZATION:
  Every call takes an AuthContext built by Resolve, which asks the
  RoleAuthority for the actor's CURRENT role. A role baked into a session
  token is never consulted. Employee-role actors may only act on their
  own requests.

ATOMICITY:
  A transition's balance mutation and status flip stand or fall together.
  The balance is mutated first; if the status write then fails, a
  compensating mutation puts the balance back before the error is
  returned, so no status is ever observably out of step with its balance
  effect.

NOTIFICATIONS:
  Delivery is fire-and-forget. A sink failure never rolls back a
  transition.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

type transition struct {
	From           RequestStatus
	To             RequestStatus
	Roles          []Role
	ReasonRequired bool

	// SubmitterOnly restricts the transition to the request's own
	// employee regardless of role (denied -> pending resubmission).
	SubmitterOnly bool
}

var transitions = []transition{
	{From: StatusPending, To: StatusApproved, Roles: []Role{RoleManager, RoleHRAdmin, RoleSuperAdmin}},
	{From: StatusPending, To: StatusDenied, Roles: []Role{RoleManager, RoleHRAdmin, RoleSuperAdmin}, ReasonRequired: true},
	{From: StatusPending, To: StatusWithdrawn, Roles: []Role{RoleEmployee, RoleManager, RoleHRAdmin, RoleSuperAdmin}},
	{From: StatusApproved, To: StatusCancelled, Roles: []Role{RoleEmployee, RoleManager, RoleHRAdmin, RoleSuperAdmin}, ReasonRequired: true},
	{From: StatusDenied, To: StatusPending, Roles: []Role{RoleEmployee}, SubmitterOnly: true},
}

func findTransition(from, to RequestStatus) *transition {
	for i := range transitions {
		if transitions[i].From == from && transitions[i].To == to {
			return &transitions[i]
		}
	}
	return nil
}

// =============================================================================
// WORKFLOW
// =============================================================================

// RequestWorkflow drives the request lifecycle.
type RequestWorkflow struct {
	store      Store
	ledger     *Ledger
	validation *ValidationEngine
	directory  EmployeeDirectory
	roles      RoleAuthority
	notifier   NotificationSink
	clock      Clock
}

func NewRequestWorkflow(store Store, ledger *Ledger, validation *ValidationEngine, directory EmployeeDirectory, roles RoleAuthority, notifier NotificationSink, clock Clock) *RequestWorkflow {
	if notifier == nil {
		notifier = NopSink{}
	}
	return &RequestWorkflow{
		store:      store,
		ledger:     ledger,
		validation: validation,
		directory:  directory,
		roles:      roles,
		notifier:   notifier,
		clock:      clock,
	}
}

// Resolve builds an AuthContext with the actor's current role, freshly
// looked up. This is the only way to obtain one.
func (w *RequestWorkflow) Resolve(ctx context.Context, actorID string) (AuthContext, error) {
	role, err := w.roles.ActiveRole(ctx, actorID)
	if err != nil {
		return AuthContext{}, err
	}
	return AuthContext{ActorID: actorID, Role: role}, nil
}

func (w *RequestWorkflow) authorize(auth AuthContext, req LeaveRequest, to RequestStatus) (*transition, error) {
	tr := findTransition(req.Status, to)
	if tr == nil {
		return nil, &TransitionError{From: req.Status, To: to}
	}

	if auth.ActorID == "" || auth.Role == "" {
		return nil, &AuthorizationError{ActorID: auth.ActorID, Role: auth.Role, From: req.Status, To: to}
	}
	allowed := false
	for _, r := range tr.Roles {
		if r == auth.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &AuthorizationError{ActorID: auth.ActorID, Role: auth.Role, From: req.Status, To: to}
	}
	if tr.SubmitterOnly && auth.ActorID != req.EmployeeID {
		return nil, &AuthorizationError{ActorID: auth.ActorID, Role: auth.Role, From: req.Status, To: to}
	}
	// Employee-role actors act on their own requests only.
	if auth.Role == RoleEmployee && auth.ActorID != req.EmployeeID {
		return nil, &AuthorizationError{ActorID: auth.ActorID, Role: auth.Role, From: req.Status, To: to}
	}
	return tr, nil
}

// =============================================================================
// CREATION
// =============================================================================

type CreateLeaveRequestInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

// CreateLeaveRequest validates, reserves pending days, and persists the
// request in pending. Hard validation errors block creation; warnings
// ride along on the returned result.
func (w *RequestWorkflow) CreateLeaveRequest(ctx context.Context, auth AuthContext, in CreateLeaveRequestInput) (LeaveRequest, ValidationResult, error) {
	if auth.ActorID == "" {
		return LeaveRequest{}, ValidationResult{}, &AuthorizationError{From: StatusPending, To: StatusPending}
	}
	if auth.Role == RoleEmployee && auth.ActorID != in.EmployeeID {
		return LeaveRequest{}, ValidationResult{}, &AuthorizationError{ActorID: auth.ActorID, Role: auth.Role, From: StatusPending, To: StatusPending}
	}

	result, err := w.validation.ValidateLeaveRequest(ctx, in.EmployeeID, in.LeaveTypeID, in.StartDate, in.EndDate, "")
	if err != nil {
		return LeaveRequest{}, ValidationResult{}, err
	}
	if !result.IsValid {
		return LeaveRequest{}, result, &ValidationError{Errors: result.Errors}
	}

	start, end := Date(in.StartDate), Date(in.EndDate)
	totalDays := w.validation.TotalDays(start, end)
	now := w.clock.Now()

	req := LeaveRequest{
		ID:          uuid.NewString(),
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: in.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   totalDays,
		Reason:      in.Reason,
		Status:      StatusPending,
		CreatedBy:   auth.ActorID,
		UpdatedBy:   auth.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	key := BalanceKey{EmployeeID: req.EmployeeID, LeaveTypeID: req.LeaveTypeID, Year: start.Year()}
	if _, err := w.ledger.ReservePending(ctx, key, totalDays); err != nil {
		return LeaveRequest{}, result, err
	}
	if err := w.store.InsertRequest(ctx, req); err != nil {
		if _, relErr := w.ledger.ReleasePending(ctx, key, totalDays); relErr != nil {
			return LeaveRequest{}, result, fmt.Errorf("insert failed: %w (release failed: %v)", err, relErr)
		}
		return LeaveRequest{}, result, err
	}

	w.notifyManager(ctx, req, EventRequestCreated, nil)
	return req, result, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Approve commits a pending request. Validation is re-run against the
// request's current dates immediately before committing, so balance or
// policy drift since submission rejects the approval instead of being
// silently absorbed.
func (w *RequestWorkflow) Approve(ctx context.Context, auth AuthContext, requestID string) (LeaveRequest, error) {
	req, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if _, err := w.authorize(auth, req, StatusApproved); err != nil {
		return LeaveRequest{}, err
	}

	revalidation, err := w.validation.ValidateLeaveRequest(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.ID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !revalidation.IsValid {
		return LeaveRequest{}, &ValidationError{Errors: append([]string{"approval re-validation failed"}, revalidation.Errors...)}
	}

	key := w.balanceKey(req)
	if _, err := w.ledger.CommitPending(ctx, key, req.TotalDays, fmt.Sprintf("leave request %s approved", req.ID)); err != nil {
		return LeaveRequest{}, err
	}

	now := w.clock.Now()
	req.Status = StatusApproved
	req.ApprovedBy = auth.ActorID
	req.ApprovedAt = &now
	req.UpdatedBy = auth.ActorID
	req.UpdatedAt = now
	if err := w.store.UpdateRequest(ctx, req); err != nil {
		// Compensate: undo the commit so balance and status stay in step.
		if _, undoErr := w.ledger.RestoreUsed(ctx, key, req.TotalDays, fmt.Sprintf("approval of %s rolled back", req.ID)); undoErr != nil {
			return LeaveRequest{}, fmt.Errorf("status update failed: %w (balance rollback failed: %v)", err, undoErr)
		}
		if _, undoErr := w.ledger.ReservePending(ctx, key, req.TotalDays); undoErr != nil {
			return LeaveRequest{}, fmt.Errorf("status update failed: %w (pending restore failed: %v)", err, undoErr)
		}
		return LeaveRequest{}, err
	}

	w.notifyEmployee(ctx, req, EventRequestApproved, map[string]any{"approvedBy": auth.ActorID})
	return req, nil
}

// Deny rejects a pending request and releases its reservation. A reason
// is required.
func (w *RequestWorkflow) Deny(ctx context.Context, auth AuthContext, requestID, reason string) (LeaveRequest, error) {
	req, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	tr, err := w.authorize(auth, req, StatusDenied)
	if err != nil {
		return LeaveRequest{}, err
	}
	if tr.ReasonRequired && reason == "" {
		return LeaveRequest{}, &ValidationError{Errors: []string{"a denial reason is required"}}
	}

	key := w.balanceKey(req)
	if _, err := w.ledger.ReleasePending(ctx, key, req.TotalDays); err != nil {
		return LeaveRequest{}, err
	}

	req.Status = StatusDenied
	req.DenialReason = reason
	req.UpdatedBy = auth.ActorID
	req.UpdatedAt = w.clock.Now()
	if err := w.store.UpdateRequest(ctx, req); err != nil {
		if _, undoErr := w.ledger.ReservePending(ctx, key, req.TotalDays); undoErr != nil {
			return LeaveRequest{}, fmt.Errorf("status update failed: %w (pending restore failed: %v)", err, undoErr)
		}
		return LeaveRequest{}, err
	}

	w.notifyEmployee(ctx, req, EventRequestDenied, map[string]any{"reason": reason})
	return req, nil
}

// Withdraw releases a pending request at the submitter's (or an
// admin's) initiative.
func (w *RequestWorkflow) Withdraw(ctx context.Context, auth AuthContext, requestID string) (LeaveRequest, error) {
	req, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if _, err := w.authorize(auth, req, StatusWithdrawn); err != nil {
		return LeaveRequest{}, err
	}

	key := w.balanceKey(req)
	if _, err := w.ledger.ReleasePending(ctx, key, req.TotalDays); err != nil {
		return LeaveRequest{}, err
	}

	req.Status = StatusWithdrawn
	req.UpdatedBy = auth.ActorID
	req.UpdatedAt = w.clock.Now()
	if err := w.store.UpdateRequest(ctx, req); err != nil {
		if _, undoErr := w.ledger.ReservePending(ctx, key, req.TotalDays); undoErr != nil {
			return LeaveRequest{}, fmt.Errorf("status update failed: %w (pending restore failed: %v)", err, undoErr)
		}
		return LeaveRequest{}, err
	}

	w.notifyManager(ctx, req, EventRequestWithdrawn, nil)
	return req, nil
}

// Cancel reverses an approved request, restoring the consumed days as an
// adjustment. A reason is required.
func (w *RequestWorkflow) Cancel(ctx context.Context, auth AuthContext, requestID, reason string) (LeaveRequest, error) {
	req, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	tr, err := w.authorize(auth, req, StatusCancelled)
	if err != nil {
		return LeaveRequest{}, err
	}
	if tr.ReasonRequired && reason == "" {
		return LeaveRequest{}, &ValidationError{Errors: []string{"a cancellation reason is required"}}
	}

	key := w.balanceKey(req)
	if _, err := w.ledger.RestoreUsed(ctx, key, req.TotalDays, fmt.Sprintf("leave request %s cancelled: %s", req.ID, reason)); err != nil {
		return LeaveRequest{}, err
	}

	req.Status = StatusCancelled
	req.UpdatedBy = auth.ActorID
	req.UpdatedAt = w.clock.Now()
	if err := w.store.UpdateRequest(ctx, req); err != nil {
		if _, undoErr := w.ledger.CommitPending(ctx, key, req.TotalDays, fmt.Sprintf("cancellation of %s rolled back", req.ID)); undoErr != nil {
			return LeaveRequest{}, fmt.Errorf("status update failed: %w (usage restore failed: %v)", err, undoErr)
		}
		return LeaveRequest{}, err
	}

	w.notifyManager(ctx, req, EventRequestCancelled, map[string]any{"reason": reason})
	return req, nil
}

// Resubmit puts a denied request back into pending. Only the original
// submitter may do this; validation runs afresh and the reservation is
// re-taken.
func (w *RequestWorkflow) Resubmit(ctx context.Context, auth AuthContext, requestID string) (LeaveRequest, ValidationResult, error) {
	req, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, ValidationResult{}, err
	}
	if _, err := w.authorize(auth, req, StatusPending); err != nil {
		return LeaveRequest{}, ValidationResult{}, err
	}

	result, err := w.validation.ValidateLeaveRequest(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.ID)
	if err != nil {
		return LeaveRequest{}, ValidationResult{}, err
	}
	if !result.IsValid {
		return LeaveRequest{}, result, &ValidationError{Errors: result.Errors}
	}

	key := w.balanceKey(req)
	if _, err := w.ledger.ReservePending(ctx, key, req.TotalDays); err != nil {
		return LeaveRequest{}, result, err
	}

	req.Status = StatusPending
	req.DenialReason = ""
	req.ApprovedBy = ""
	req.ApprovedAt = nil
	req.UpdatedBy = auth.ActorID
	req.UpdatedAt = w.clock.Now()
	if err := w.store.UpdateRequest(ctx, req); err != nil {
		if _, undoErr := w.ledger.ReleasePending(ctx, key, req.TotalDays); undoErr != nil {
			return LeaveRequest{}, result, fmt.Errorf("status update failed: %w (release failed: %v)", err, undoErr)
		}
		return LeaveRequest{}, result, err
	}

	w.notifyManager(ctx, req, EventRequestCreated, map[string]any{"resubmitted": true})
	return req, result, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (w *RequestWorkflow) Request(ctx context.Context, id string) (LeaveRequest, error) {
	return w.store.GetRequest(ctx, id)
}

func (w *RequestWorkflow) RequestsByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return w.store.RequestsByEmployee(ctx, employeeID)
}

func (w *RequestWorkflow) RequestsByStatus(ctx context.Context, status RequestStatus) ([]LeaveRequest, error) {
	return w.store.RequestsByStatus(ctx, status)
}

// =============================================================================
// INTERNAL
// =============================================================================

func (w *RequestWorkflow) balanceKey(req LeaveRequest) BalanceKey {
	return BalanceKey{
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		Year:        req.StartDate.Year(),
	}
}

func (w *RequestWorkflow) notifyEmployee(ctx context.Context, req LeaveRequest, event string, payload map[string]any) {
	// Fire-and-forget: delivery failure never rolls back a transition.
	_ = w.notifier.Notify(ctx, []string{req.EmployeeID}, event, w.payload(req, payload))
}

func (w *RequestWorkflow) notifyManager(ctx context.Context, req LeaveRequest, event string, payload map[string]any) {
	recipients := []string{req.EmployeeID}
	if emp, err := w.directory.Employee(ctx, req.EmployeeID); err == nil && emp.ManagerID != "" {
		recipients = append(recipients, emp.ManagerID)
	}
	_ = w.notifier.Notify(ctx, recipients, event, w.payload(req, payload))
}

func (w *RequestWorkflow) payload(req LeaveRequest, extra map[string]any) map[string]any {
	p := map[string]any{
		"requestId":   req.ID,
		"employeeId":  req.EmployeeID,
		"leaveTypeId": req.LeaveTypeID,
		"startDate":   req.StartDate.Format(time.DateOnly),
		"endDate":     req.EndDate.Format(time.DateOnly),
		"totalDays":   req.TotalDays.String(),
		"status":      string(req.Status),
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}
