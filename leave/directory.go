/*
directory.go - External collaborator interfaces

The leave core does not own employees, roles, notification delivery, or
the company calendar. It consumes them through the narrow interfaces
defined here; implementations live outside the domain (the SQLite store
implements EmployeeDirectory and RoleAuthority, the API layer provides a
logging NotificationSink, tests use fakes).
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentOnLeave    EmploymentStatus = "on_leave"
	EmploymentTerminated EmploymentStatus = "terminated"
)

type Employee struct {
	ID               string
	Name             string
	HireDate         time.Time
	EmploymentStatus EmploymentStatus
	ManagerID        string
	DepartmentID     string
	Role             Role
}

func (e Employee) IsActive() bool { return e.EmploymentStatus == EmploymentActive }

// EmployeeDirectory resolves employee records.
type EmployeeDirectory interface {
	Employee(ctx context.Context, id string) (Employee, error)
	ActiveEmployees(ctx context.Context) ([]Employee, error)

	// TeamMembers returns all employees reporting to the given manager.
	// Used for team-availability warnings.
	TeamMembers(ctx context.Context, managerID string) ([]Employee, error)
}

// =============================================================================
// ROLE AUTHORITY
// =============================================================================

// RoleAuthority resolves an actor's current role. The workflow calls it
// on every transition; a role carried in a session token is never
// trusted for authorization.
type RoleAuthority interface {
	ActiveRole(ctx context.Context, userID string) (Role, error)
}

// =============================================================================
// NOTIFICATION SINK
// =============================================================================

// NotificationSink delivers workflow events. Fire-and-forget: a delivery
// failure must never roll back the transition that produced it.
type NotificationSink interface {
	Notify(ctx context.Context, recipients []string, event string, payload map[string]any) error
}

// Notification event types emitted by the workflow.
const (
	EventRequestCreated   = "leave_request_created"
	EventRequestApproved  = "leave_request_approved"
	EventRequestDenied    = "leave_request_denied"
	EventRequestWithdrawn = "leave_request_withdrawn"
	EventRequestCancelled = "leave_request_cancelled"
)

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) Notify(context.Context, []string, string, map[string]any) error { return nil }

// =============================================================================
// CLOCK
// =============================================================================

// Clock is an injectable "now" source so accrual-due and proration logic
// are deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// BUSINESS CALENDAR
// =============================================================================

// BusinessCalendar counts the days a request actually consumes. The
// default counts every calendar day inclusively; a company-specific
// implementation can exclude weekends and holidays.
type BusinessCalendar interface {
	CountDays(start, end time.Time) int
}

// CalendarDays is the default BusinessCalendar: inclusive calendar days,
// weekends and holidays included.
type CalendarDays struct{}

func (CalendarDays) CountDays(start, end time.Time) int { return InclusiveDays(start, end) }
