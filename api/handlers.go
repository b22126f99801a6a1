/*
handlers.go - HTTP API handlers for the leave management system

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Leave types:
    GET    /api/leave-types              List leave types
    POST   /api/leave-types              Create leave type
    GET    /api/leave-types/{id}         Get leave type
    PUT    /api/leave-types/{id}         Update leave type
    DELETE /api/leave-types/{id}         Delete or deactivate

  Policies:
    GET    /api/policies                 List policies
    POST   /api/policies                 Create policy
    GET    /api/policies/{id}            Get policy
    POST   /api/policies/{id}/deactivate Deactivate policy

  Employees:
    GET    /api/employees                List active employees
    PUT    /api/employees/{id}           Create/replace employee
    GET    /api/employees/{id}           Get employee
    GET    /api/employees/{id}/assignments
    GET    /api/employees/{id}/balances?year=
    GET    /api/employees/{id}/history?leave_type=&year=

  Requests:
    POST   /api/requests                 Submit request
    GET    /api/requests/{id}            Get request
    GET    /api/requests?employee=|status=
    POST   /api/requests/{id}/approve
    POST   /api/requests/{id}/deny      (reason required)
    POST   /api/requests/{id}/withdraw
    POST   /api/requests/{id}/cancel    (reason required)
    POST   /api/requests/{id}/resubmit

  Admin:
    POST   /api/admin/assignments        Assign policy to employee
    POST   /api/admin/accruals/run       Run scheduled accruals now
    POST   /api/admin/accruals/year-end  Year-end accrual top-up
    POST   /api/admin/carryovers         Run carryover for a year
    POST   /api/admin/balances/initialize  Pro-rated starting balance
    POST   /api/admin/adjustments        Manual signed adjustment

ACTOR IDENTITY:
  Workflow endpoints read the acting user from the X-Actor-ID header
  and resolve the actor's CURRENT role through the workflow. There is
  no session or token layer here; an authenticating reverse proxy is
  expected to set the header.

ERROR HANDLING:
  Errors map to HTTP status by category:
  - 400: validation errors, invalid input
  - 403: role not permitted for the transition
  - 404: record not found
  - 409: overlapping request, duplicate value
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-engine/leave"
)

// actorHeader carries the acting user's id into workflow endpoints.
const actorHeader = "X-Actor-ID"

// EmployeeWriter is the slice of the store the employee endpoints need
// beyond the read-only directory. Both store implementations satisfy it.
type EmployeeWriter interface {
	UpsertEmployee(ctx context.Context, e leave.Employee) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog     *leave.Catalog
	Assignments *leave.Assignments
	Ledger      *leave.Ledger
	Accruals    *leave.AccrualEngine
	Carryovers  *leave.CarryoverProcessor
	Workflow    *leave.RequestWorkflow
	Directory   leave.EmployeeDirectory
	Employees   EmployeeWriter
}

// =============================================================================
// LEAVE TYPE ENDPOINTS
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Catalog.ListLeaveTypes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]LeaveTypeDTO, 0, len(types))
	for _, lt := range types {
		dtos = append(dtos, toLeaveTypeDTO(lt))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}
	lt, err := h.Catalog.CreateLeaveType(r.Context(), leave.CreateLeaveTypeInput{
		Name:               req.Name,
		ColorCode:          req.ColorCode,
		IsPaid:             req.IsPaid,
		RequiresApproval:   requiresApproval,
		MaxConsecutiveDays: req.MaxConsecutiveDays,
		AdvanceNoticeDays:  req.AdvanceNoticeDays,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

func (h *Handler) GetLeaveType(w http.ResponseWriter, r *http.Request) {
	lt, err := h.Catalog.LeaveType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveTypeDTO(lt))
}

func (h *Handler) UpdateLeaveType(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeaveTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	lt, err := h.Catalog.UpdateLeaveType(r.Context(), chi.URLParam(r, "id"), leave.UpdateLeaveTypeInput{
		ColorCode:          req.ColorCode,
		IsPaid:             req.IsPaid,
		RequiresApproval:   req.RequiresApproval,
		MaxConsecutiveDays: req.MaxConsecutiveDays,
		AdvanceNoticeDays:  req.AdvanceNoticeDays,
		IsActive:           req.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveTypeDTO(lt))
}

// DeleteLeaveType removes an unreferenced leave type; a referenced one
// is deactivated instead, and the outcome says which happened.
func (h *Handler) DeleteLeaveType(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.Catalog.DeleteLeaveType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteLeaveTypeResponse{Outcome: string(outcome)})
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	var (
		policies []leave.LeavePolicy
		err      error
	)
	if leaveTypeID := r.URL.Query().Get("leave_type"); leaveTypeID != "" {
		policies, err = h.Catalog.PoliciesForLeaveType(r.Context(), leaveTypeID)
	} else {
		policies, err = h.Catalog.ListPolicies(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		dtos = append(dtos, toPolicyDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid policy", err)
		return
	}
	p, err := h.Catalog.CreatePolicy(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(p))
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Policy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (h *Handler) DeactivatePolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.DeactivatePolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ActiveEmployees(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.Directory.Employee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

func (h *Handler) UpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpsertEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	hireDate, err := parseDateField("hire_date", req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hire_date", err)
		return
	}

	status := leave.EmploymentStatus(req.EmploymentStatus)
	if req.EmploymentStatus == "" {
		status = leave.EmploymentActive
	}
	role := leave.Role(req.Role)
	if req.Role == "" {
		role = leave.RoleEmployee
	}

	e := leave.Employee{
		ID:               req.ID,
		Name:             req.Name,
		HireDate:         hireDate,
		EmploymentStatus: status,
		ManagerID:        req.ManagerID,
		DepartmentID:     req.DepartmentID,
		Role:             role,
	}
	if err := h.Employees.UpsertEmployee(r.Context(), e); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

func (h *Handler) GetEmployeeAssignments(w http.ResponseWriter, r *http.Request) {
	active, err := h.Assignments.ActiveAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, 0, len(active))
	for _, aa := range active {
		dtos = append(dtos, toAssignmentDTO(aa.Assignment))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployeeBalances returns one balance per active assignment for the
// requested year (default: current year). Untouched keys come back as
// zero balances, not 404s.
func (h *Handler) GetEmployeeBalances(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	year, ok := yearParam(w, r, time.Now().UTC().Year())
	if !ok {
		return
	}

	active, err := h.Assignments.ActiveAssignments(r.Context(), employeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]BalanceDTO, 0, len(active))
	for _, aa := range active {
		key := leave.BalanceKey{EmployeeID: employeeID, LeaveTypeID: aa.Policy.LeaveTypeID, Year: year}
		b, err := h.Ledger.Balance(r.Context(), key)
		if leave.IsNotFound(err) {
			b = leave.LeaveBalance{EmployeeID: employeeID, LeaveTypeID: aa.Policy.LeaveTypeID, Year: year}
		} else if err != nil {
			writeDomainError(w, err)
			return
		}
		dtos = append(dtos, toBalanceDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployeeHistory(w http.ResponseWriter, r *http.Request) {
	leaveTypeID := r.URL.Query().Get("leave_type")
	if leaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "leave_type query parameter is required", nil)
		return
	}
	year, ok := yearParam(w, r, time.Now().UTC().Year())
	if !ok {
		return
	}

	key := leave.BalanceKey{EmployeeID: chi.URLParam(r, "id"), LeaveTypeID: leaveTypeID, Year: year}
	entries, err := h.Ledger.History(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toHistoryEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST ENDPOINTS
// =============================================================================

// resolveActor turns the X-Actor-ID header into a fresh AuthContext.
func (h *Handler) resolveActor(w http.ResponseWriter, r *http.Request) (leave.AuthContext, bool) {
	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, actorHeader+" header is required", nil)
		return leave.AuthContext{}, false
	}
	auth, err := h.Workflow.Resolve(r.Context(), actorID)
	if err != nil {
		writeDomainError(w, err)
		return leave.AuthContext{}, false
	}
	return auth, true
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date", err)
		return
	}
	end, err := parseDateField("end_date", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date", err)
		return
	}

	created, result, err := h.Workflow.CreateLeaveRequest(r.Context(), auth, leave.CreateLeaveRequestInput{
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
	})
	if err != nil {
		// Surface the full validation result alongside rule failures so
		// clients can show every problem at once.
		if errors.Is(err, leave.ErrValidation) && len(result.Errors) > 0 {
			writeJSON(w, http.StatusBadRequest, RequestDecisionResponse{Validation: toValidationResultDTO(result)})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RequestDecisionResponse{
		Request:    toRequestDTO(created),
		Validation: toValidationResultDTO(result),
	})
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Workflow.Request(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		requests []leave.LeaveRequest
		err      error
	)
	switch {
	case r.URL.Query().Get("employee") != "":
		requests, err = h.Workflow.RequestsByEmployee(r.Context(), r.URL.Query().Get("employee"))
	case r.URL.Query().Get("status") != "":
		requests, err = h.Workflow.RequestsByStatus(r.Context(), leave.RequestStatus(r.URL.Query().Get("status")))
	default:
		writeError(w, http.StatusBadRequest, "employee or status query parameter is required", nil)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	req, err := h.Workflow.Approve(r.Context(), auth, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	var body ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req, err := h.Workflow.Deny(r.Context(), auth, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) WithdrawRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	req, err := h.Workflow.Withdraw(r.Context(), auth, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	var body ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req, err := h.Workflow.Cancel(r.Context(), auth, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) ResubmitRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	req, result, err := h.Workflow.Resubmit(r.Context(), auth, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, leave.ErrValidation) && len(result.Errors) > 0 {
			writeJSON(w, http.StatusBadRequest, RequestDecisionResponse{Validation: toValidationResultDTO(result)})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestDecisionResponse{
		Request:    toRequestDTO(req),
		Validation: toValidationResultDTO(result),
	})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	effective, err := parseDateField("effective_date", req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid effective_date", err)
		return
	}

	in := leave.AssignInput{
		EmployeeID:    req.EmployeeID,
		PolicyID:      req.PolicyID,
		EffectiveDate: effective,
	}
	if req.CustomAllocation != "" {
		custom, err := parseDecimalField("custom_allocation", req.CustomAllocation)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid custom_allocation", err)
			return
		}
		in.CustomAllocation = &custom
	}

	a, err := h.Assignments.Assign(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// RunAccruals processes scheduled accruals for every active employee.
// Always 200: partial failures are reported in the result body.
func (h *Handler) RunAccruals(w http.ResponseWriter, r *http.Request) {
	result, err := h.Accruals.ProcessScheduledAccruals(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

func (h *Handler) RunYearEndAccruals(w http.ResponseWriter, r *http.Request) {
	var body YearRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.Year == 0 {
		body.Year = time.Now().UTC().Year()
	}
	result, err := h.Accruals.ProcessYearEndAccruals(r.Context(), body.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// RunCarryovers moves unused days from year-1 into the given year,
// capped per policy. Safe to re-run; already-processed balances are
// skipped.
func (h *Handler) RunCarryovers(w http.ResponseWriter, r *http.Request) {
	var body YearRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.Year == 0 {
		body.Year = time.Now().UTC().Year()
	}
	result, err := h.Carryovers.ProcessCarryovers(r.Context(), body.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCarryoverResultDTO(result))
}

func (h *Handler) InitializeBalance(w http.ResponseWriter, r *http.Request) {
	var body InitializeBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.Year == 0 {
		body.Year = time.Now().UTC().Year()
	}
	b, err := h.Accruals.InitializeBalance(r.Context(), body.EmployeeID, body.LeaveTypeID, body.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var body AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, err := parseDecimalField("amount", body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}
	effective := time.Now().UTC()
	if body.Date != "" {
		if effective, err = parseDateField("date", body.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err)
			return
		}
	}

	b, err := h.Ledger.Mutate(r.Context(), body.EmployeeID, body.LeaveTypeID, leave.BalanceChange{
		Type:          leave.ChangeAdjustment,
		Amount:        amount,
		Reason:        body.Reason,
		EffectiveDate: effective,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error categories onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, leave.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not authorized", err)
	case errors.Is(err, leave.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func yearParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return 0, false
	}
	return year, true
}
