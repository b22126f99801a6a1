/*
errors.go - Centralized error types for the leave core

ERROR CATEGORIES:
  1. ValidationError    - failed business rule, user-correctable
  2. ConflictError      - overlapping request, duplicate unique value
  3. NotFoundError      - missing employee/leave type/policy/request
  4. AuthorizationError - role not permitted for a workflow transition

USAGE:
  Callers classify with errors.Is against the sentinels:

    if errors.Is(err, leave.ErrNotFound) { ... 404 ... }

  or unwrap the structured types with errors.As for details.
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the base of every missing-record error.
	ErrNotFound = errors.New("not found")

	// ErrValidation is the base of every failed business rule.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is the base of overlap and duplicate errors.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is the base of role authorization failures.
	ErrUnauthorized = errors.New("not authorized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "employee", "leave type", "policy", "request", "balance"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError carries the accumulated rule failures verbatim, so the
// caller sees every problem at once rather than the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError describes an overlapping request or duplicate value.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError names a (from, to) pair absent from the transition
// table. It unwraps to ErrValidation: an illegal transition is a caller
// mistake, not an authorization failure.
type TransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}
func (e *TransitionError) Unwrap() error { return ErrValidation }

// AuthorizationError reports that the actor's current role may not
// perform the attempted transition.
type AuthorizationError struct {
	ActorID string
	Role    Role
	From    RequestStatus
	To      RequestStatus
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q may not transition request %s -> %s", e.Role, e.From, e.To)
}
func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is due to invalid client input
// rather than a server-side failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict)
}
