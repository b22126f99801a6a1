/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

REPRESENTATION:
  Day amounts are JSON strings ("1.75"), never floats, so clients see
  the exact decimal the ledger holds. Dates are "2006-01-02" strings;
  timestamps are RFC3339.

VALIDATION:
  Structural validation (parseable dates, parseable decimals) is done
  here during conversion. Domain validation lives in the leave package.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: The domain model these mirror
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveTypeDTO represents a leave type in API responses.
type LeaveTypeDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ColorCode          string `json:"color_code,omitempty"`
	IsPaid             bool   `json:"is_paid"`
	RequiresApproval   bool   `json:"requires_approval"`
	MaxConsecutiveDays *int   `json:"max_consecutive_days,omitempty"`
	AdvanceNoticeDays  int    `json:"advance_notice_days"`
	IsActive           bool   `json:"is_active"`
	CreatedAt          string `json:"created_at,omitempty"`
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                 lt.ID,
		Name:               lt.Name,
		ColorCode:          lt.ColorCode,
		IsPaid:             lt.IsPaid,
		RequiresApproval:   lt.RequiresApproval,
		MaxConsecutiveDays: lt.MaxConsecutiveDays,
		AdvanceNoticeDays:  lt.AdvanceNoticeDays,
		IsActive:           lt.IsActive,
		CreatedAt:          formatTime(lt.CreatedAt),
	}
}

// CreateLeaveTypeRequest is the request to create a leave type.
type CreateLeaveTypeRequest struct {
	Name               string `json:"name"`
	ColorCode          string `json:"color_code,omitempty"`
	IsPaid             bool   `json:"is_paid"`
	RequiresApproval   *bool  `json:"requires_approval,omitempty"` // default true
	MaxConsecutiveDays *int   `json:"max_consecutive_days,omitempty"`
	AdvanceNoticeDays  int    `json:"advance_notice_days,omitempty"`
}

// UpdateLeaveTypeRequest is the partial-update request for a leave
// type. Absent fields are left unchanged.
type UpdateLeaveTypeRequest struct {
	ColorCode          *string `json:"color_code,omitempty"`
	IsPaid             *bool   `json:"is_paid,omitempty"`
	RequiresApproval   *bool   `json:"requires_approval,omitempty"`
	MaxConsecutiveDays *int    `json:"max_consecutive_days,omitempty"`
	AdvanceNoticeDays  *int    `json:"advance_notice_days,omitempty"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

// DeleteLeaveTypeResponse reports whether the type was removed or only
// deactivated.
type DeleteLeaveTypeResponse struct {
	Outcome string `json:"outcome"` // "hard_deleted" | "deactivated"
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyDTO represents an accrual policy in API responses.
type PolicyDTO struct {
	ID                    string `json:"id"`
	LeaveTypeID           string `json:"leave_type_id"`
	Name                  string `json:"name"`
	AnnualAllocation      string `json:"annual_allocation"`
	AccrualRate           string `json:"accrual_rate"`
	AccrualFrequency      string `json:"accrual_frequency"`
	ProbationPeriodMonths int    `json:"probation_period_months"`
	CarryoverLimit        string `json:"carryover_limit"`
	IsActive              bool   `json:"is_active"`
	CreatedAt             string `json:"created_at,omitempty"`
}

func toPolicyDTO(p leave.LeavePolicy) PolicyDTO {
	return PolicyDTO{
		ID:                    p.ID,
		LeaveTypeID:           p.LeaveTypeID,
		Name:                  p.Name,
		AnnualAllocation:      p.AnnualAllocation.String(),
		AccrualRate:           p.AccrualRate.String(),
		AccrualFrequency:      string(p.AccrualFrequency),
		ProbationPeriodMonths: p.ProbationPeriodMonths,
		CarryoverLimit:        p.CarryoverLimit.String(),
		IsActive:              p.IsActive,
		CreatedAt:             formatTime(p.CreatedAt),
	}
}

// CreatePolicyRequest is the request to create a policy.
type CreatePolicyRequest struct {
	LeaveTypeID           string `json:"leave_type_id"`
	Name                  string `json:"name"`
	AnnualAllocation      string `json:"annual_allocation"`
	AccrualRate           string `json:"accrual_rate"`
	AccrualFrequency      string `json:"accrual_frequency"`
	ProbationPeriodMonths int    `json:"probation_period_months,omitempty"`
	CarryoverLimit        string `json:"carryover_limit,omitempty"`
}

func (r CreatePolicyRequest) toInput() (leave.CreatePolicyInput, error) {
	allocation, err := parseDecimalField("annual_allocation", r.AnnualAllocation)
	if err != nil {
		return leave.CreatePolicyInput{}, err
	}
	rate, err := parseDecimalField("accrual_rate", r.AccrualRate)
	if err != nil {
		return leave.CreatePolicyInput{}, err
	}
	carryover := decimal.Zero
	if r.CarryoverLimit != "" {
		if carryover, err = parseDecimalField("carryover_limit", r.CarryoverLimit); err != nil {
			return leave.CreatePolicyInput{}, err
		}
	}
	return leave.CreatePolicyInput{
		LeaveTypeID:           r.LeaveTypeID,
		Name:                  r.Name,
		AnnualAllocation:      allocation,
		AccrualRate:           rate,
		AccrualFrequency:      leave.AccrualFrequency(r.AccrualFrequency),
		ProbationPeriodMonths: r.ProbationPeriodMonths,
		CarryoverLimit:        carryover,
	}, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// AssignmentDTO represents a policy assignment.
type AssignmentDTO struct {
	ID               string `json:"id"`
	EmployeeID       string `json:"employee_id"`
	PolicyID         string `json:"policy_id"`
	EffectiveDate    string `json:"effective_date"`
	CustomAllocation string `json:"custom_allocation,omitempty"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at,omitempty"`
}

func toAssignmentDTO(a leave.PolicyAssignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:            a.ID,
		EmployeeID:    a.EmployeeID,
		PolicyID:      a.PolicyID,
		EffectiveDate: formatDate(a.EffectiveDate),
		IsActive:      a.IsActive,
		CreatedAt:     formatTime(a.CreatedAt),
	}
	if a.CustomAllocation != nil {
		dto.CustomAllocation = a.CustomAllocation.String()
	}
	return dto
}

// CreateAssignmentRequest is the request to assign a policy to an
// employee. Assigning a policy of a leave type the employee already has
// supersedes the previous assignment.
type CreateAssignmentRequest struct {
	EmployeeID       string `json:"employee_id"`
	PolicyID         string `json:"policy_id"`
	EffectiveDate    string `json:"effective_date"`
	CustomAllocation string `json:"custom_allocation,omitempty"`
}

// =============================================================================
// BALANCES + HISTORY
// =============================================================================

// BalanceDTO represents one policy-year balance. Available is derived
// server-side: allocated + carried_over - used - pending.
type BalanceDTO struct {
	EmployeeID      string `json:"employee_id"`
	LeaveTypeID     string `json:"leave_type_id"`
	Year            int    `json:"year"`
	Allocated       string `json:"allocated"`
	Used            string `json:"used"`
	Pending         string `json:"pending"`
	CarriedOver     string `json:"carried_over"`
	Available       string `json:"available"`
	LastAccrualDate string `json:"last_accrual_date,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID:  b.EmployeeID,
		LeaveTypeID: b.LeaveTypeID,
		Year:        b.Year,
		Allocated:   b.Allocated.String(),
		Used:        b.Used.String(),
		Pending:     b.Pending.String(),
		CarriedOver: b.CarriedOver.String(),
		Available:   b.Available().String(),
		UpdatedAt:   formatTime(b.UpdatedAt),
	}
	if !b.LastAccrualDate.IsZero() {
		dto.LastAccrualDate = formatDate(b.LastAccrualDate)
	}
	return dto
}

// HistoryEntryDTO represents one audit row. Amount is signed: credits
// positive, usage negative.
type HistoryEntryDTO struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	Reason        string `json:"reason,omitempty"`
}

func toHistoryEntryDTO(e leave.AccrualHistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:            e.ID,
		Date:          formatDate(e.Date),
		Type:          string(e.Type),
		Amount:        e.Amount.String(),
		BalanceBefore: e.BalanceBefore.String(),
		BalanceAfter:  e.BalanceAfter.String(),
		Reason:        e.Reason,
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO represents a leave request with its lifecycle fields.
type RequestDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	LeaveTypeID  string `json:"leave_type_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TotalDays    string `json:"total_days"`
	Reason       string `json:"reason,omitempty"`
	Status       string `json:"status"`
	ApprovedBy   string `json:"approved_by,omitempty"`
	ApprovedAt   string `json:"approved_at,omitempty"`
	DenialReason string `json:"denial_reason,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func toRequestDTO(r leave.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		LeaveTypeID:  r.LeaveTypeID,
		StartDate:    formatDate(r.StartDate),
		EndDate:      formatDate(r.EndDate),
		TotalDays:    r.TotalDays.String(),
		Reason:       r.Reason,
		Status:       string(r.Status),
		ApprovedBy:   r.ApprovedBy,
		DenialReason: r.DenialReason,
		CreatedAt:    formatTime(r.CreatedAt),
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
	if r.ApprovedAt != nil {
		dto.ApprovedAt = formatTime(*r.ApprovedAt)
	}
	return dto
}

// SubmitRequestRequest is the request body to submit a leave request.
// The acting user comes from the X-Actor-ID header, not the body.
type SubmitRequestRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason,omitempty"`
}

// ReasonRequest carries the mandatory reason for deny and cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// RequestDecisionResponse bundles a request with the validation result
// that accompanied its creation or resubmission.
type RequestDecisionResponse struct {
	Request    RequestDTO          `json:"request"`
	Validation ValidationResultDTO `json:"validation"`
}

// ValidationResultDTO mirrors leave.ValidationResult.
type ValidationResultDTO struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func toValidationResultDTO(r leave.ValidationResult) ValidationResultDTO {
	return ValidationResultDTO{IsValid: r.IsValid, Errors: r.Errors, Warnings: r.Warnings}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	HireDate         string `json:"hire_date"`
	EmploymentStatus string `json:"employment_status"`
	ManagerID        string `json:"manager_id,omitempty"`
	DepartmentID     string `json:"department_id,omitempty"`
	Role             string `json:"role"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:               e.ID,
		Name:             e.Name,
		HireDate:         formatDate(e.HireDate),
		EmploymentStatus: string(e.EmploymentStatus),
		ManagerID:        e.ManagerID,
		DepartmentID:     e.DepartmentID,
		Role:             string(e.Role),
	}
}

// UpsertEmployeeRequest creates or replaces an employee record.
type UpsertEmployeeRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	HireDate         string `json:"hire_date"`
	EmploymentStatus string `json:"employment_status,omitempty"` // default active
	ManagerID        string `json:"manager_id,omitempty"`
	DepartmentID     string `json:"department_id,omitempty"`
	Role             string `json:"role,omitempty"` // default employee
}

// =============================================================================
// ADMIN / BATCH
// =============================================================================

// AdjustmentRequest is a manual, signed balance correction.
type AdjustmentRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	Amount      string `json:"amount"` // signed
	Reason      string `json:"reason"`
	Date        string `json:"date,omitempty"` // default today
}

// InitializeBalanceRequest creates a mid-year starting balance with a
// pro-rated allocation.
type InitializeBalanceRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year"`
}

// YearRequest names the policy year for year-end batch operations.
type YearRequest struct {
	Year int `json:"year"`
}

// BatchResultDTO is the partial-failure report of a batch run.
type BatchResultDTO struct {
	ProcessedCount int      `json:"processed_count"`
	TotalAccrued   string   `json:"total_accrued"`
	Errors         []string `json:"errors,omitempty"`
	Success        bool     `json:"success"`
}

func toBatchResultDTO(r leave.BatchResult) BatchResultDTO {
	return BatchResultDTO{
		ProcessedCount: r.ProcessedCount,
		TotalAccrued:   r.TotalAccrued.String(),
		Errors:         r.Errors,
		Success:        r.Success(),
	}
}

// CarryoverResultDTO summarizes a carryover run.
type CarryoverResultDTO struct {
	ProcessedCount int      `json:"processed_count"`
	TotalCarried   string   `json:"total_carried"`
	TotalExpired   string   `json:"total_expired"`
	Errors         []string `json:"errors,omitempty"`
	Success        bool     `json:"success"`
}

func toCarryoverResultDTO(r leave.CarryoverResult) CarryoverResultDTO {
	return CarryoverResultDTO{
		ProcessedCount: r.ProcessedCount,
		TotalCarried:   r.TotalCarried.String(),
		TotalExpired:   r.TotalExpired.String(),
		Errors:         r.Errors,
		Success:        r.Success(),
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDateField(name, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (want YYYY-MM-DD)", name, value)
	}
	return t, nil
}

func parseDecimalField(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q (want a decimal string)", name, value)
	}
	return d, nil
}
