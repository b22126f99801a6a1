// Package memory provides an in-memory Store implementation (for
// testing/dev). It also backs the EmployeeDirectory and RoleAuthority
// collaborators so a complete system can run without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// Store keeps everything in maps guarded by one RWMutex. Balance
// mutation runs its callback inside the write lock, which serializes
// concurrent read-modify-writes on the same key, the same guarantee the
// SQLite store gets from database transactions.
type Store struct {
	mu sync.RWMutex

	leaveTypes  map[string]leave.LeaveType
	policies    map[string]leave.LeavePolicy
	assignments map[string]leave.PolicyAssignment
	balances    map[leave.BalanceKey]leave.LeaveBalance
	history     map[leave.BalanceKey][]leave.AccrualHistoryEntry
	requests    map[string]leave.LeaveRequest
	employees   map[string]leave.Employee
}

func New() *Store {
	return &Store{
		leaveTypes:  make(map[string]leave.LeaveType),
		policies:    make(map[string]leave.LeavePolicy),
		assignments: make(map[string]leave.PolicyAssignment),
		balances:    make(map[leave.BalanceKey]leave.LeaveBalance),
		history:     make(map[leave.BalanceKey][]leave.AccrualHistoryEntry),
		requests:    make(map[string]leave.LeaveRequest),
		employees:   make(map[string]leave.Employee),
	}
}

var _ leave.Store = (*Store)(nil)
var _ leave.EmployeeDirectory = (*Store)(nil)
var _ leave.RoleAuthority = (*Store)(nil)

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (s *Store) InsertLeaveType(_ context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[lt.ID] = lt
	return nil
}

func (s *Store) GetLeaveType(_ context.Context, id string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lt, ok := s.leaveTypes[id]
	if !ok {
		return leave.LeaveType{}, &leave.NotFoundError{Kind: "leave type", ID: id}
	}
	return lt, nil
}

func (s *Store) GetLeaveTypeByName(_ context.Context, name string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lt := range s.leaveTypes {
		if lt.Name == name {
			return lt, nil
		}
	}
	return leave.LeaveType{}, &leave.NotFoundError{Kind: "leave type", ID: name}
}

func (s *Store) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.LeaveType, 0, len(s.leaveTypes))
	for _, lt := range s.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateLeaveType(_ context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leaveTypes[lt.ID]; !ok {
		return &leave.NotFoundError{Kind: "leave type", ID: lt.ID}
	}
	s.leaveTypes[lt.ID] = lt
	return nil
}

func (s *Store) DeleteLeaveType(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leaveTypes[id]; !ok {
		return &leave.NotFoundError{Kind: "leave type", ID: id}
	}
	delete(s.leaveTypes, id)
	return nil
}

func (s *Store) LeaveTypeInUse(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.policies {
		if p.LeaveTypeID == id {
			return true, nil
		}
	}
	for _, r := range s.requests {
		if r.LeaveTypeID == id {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// POLICIES
// =============================================================================

func (s *Store) InsertPolicy(_ context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
	return nil
}

func (s *Store) GetPolicy(_ context.Context, id string) (leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return leave.LeavePolicy{}, &leave.NotFoundError{Kind: "policy", ID: id}
	}
	return p, nil
}

func (s *Store) ListPolicies(_ context.Context) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.LeavePolicy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListPoliciesByLeaveType(_ context.Context, leaveTypeID string) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeavePolicy
	for _, p := range s.policies {
		if p.LeaveTypeID == leaveTypeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdatePolicy(_ context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[p.ID]; !ok {
		return &leave.NotFoundError{Kind: "policy", ID: p.ID}
	}
	s.policies[p.ID] = p
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (s *Store) InsertAssignment(_ context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) UpdateAssignment(_ context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; !ok {
		return &leave.NotFoundError{Kind: "policy assignment", ID: a.ID}
	}
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) AssignmentsByEmployee(_ context.Context, employeeID string) ([]leave.PolicyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.PolicyAssignment
	for _, a := range s.assignments {
		if a.EmployeeID == employeeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) GetBalance(_ context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[key]
	if !ok {
		return leave.LeaveBalance{}, &leave.NotFoundError{Kind: "balance", ID: balanceID(key)}
	}
	return b, nil
}

func (s *Store) BalancesForYear(_ context.Context, year int) ([]leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeaveBalance
	for key, b := range s.balances {
		if key.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].LeaveTypeID < out[j].LeaveTypeID
	})
	return out, nil
}

func (s *Store) MutateBalance(_ context.Context, key leave.BalanceKey, fn leave.BalanceMutator) (leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[key]
	if !ok {
		b = leave.LeaveBalance{
			EmployeeID:  key.EmployeeID,
			LeaveTypeID: key.LeaveTypeID,
			Year:        key.Year,
		}
	}

	entry, err := fn(&b)
	if err != nil {
		return leave.LeaveBalance{}, err
	}

	s.balances[key] = b
	if entry != nil {
		s.history[key] = append(s.history[key], *entry)
	}
	return b, nil
}

func (s *Store) History(_ context.Context, key leave.BalanceKey) ([]leave.AccrualHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.AccrualHistoryEntry, len(s.history[key]))
	copy(out, s.history[key])
	return out, nil
}

func balanceID(key leave.BalanceKey) string {
	return key.EmployeeID + "/" + key.LeaveTypeID
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) InsertRequest(_ context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *Store) GetRequest(_ context.Context, id string) (leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return leave.LeaveRequest{}, &leave.NotFoundError{Kind: "request", ID: id}
	}
	return r, nil
}

func (s *Store) UpdateRequest(_ context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return &leave.NotFoundError{Kind: "request", ID: r.ID}
	}
	s.requests[r.ID] = r
	return nil
}

func (s *Store) RequestsByEmployee(_ context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range s.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *Store) RequestsByStatus(_ context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range s.requests {
		if r.Status == status {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *Store) OverlappingRequests(_ context.Context, employeeID string, start, end time.Time, excludeID string, statuses []leave.RequestStatus) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range s.requests {
		if r.EmployeeID != employeeID || r.ID == excludeID {
			continue
		}
		if !statusIn(r.Status, statuses) {
			continue
		}
		if r.Overlaps(start, end) {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func sortRequests(rs []leave.LeaveRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].StartDate.Before(rs[j].StartDate)
		}
		return rs[i].ID < rs[j].ID
	})
}

func statusIn(status leave.RequestStatus, statuses []leave.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// =============================================================================
// EMPLOYEES (EmployeeDirectory + RoleAuthority)
// =============================================================================

func (s *Store) UpsertEmployee(_ context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) Employee(_ context.Context, id string) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return leave.Employee{}, &leave.NotFoundError{Kind: "employee", ID: id}
	}
	return e, nil
}

func (s *Store) ActiveEmployees(_ context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Employee
	for _, e := range s.employees {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TeamMembers(_ context.Context, managerID string) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Employee
	for _, e := range s.employees {
		if e.ManagerID == managerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ActiveRole(ctx context.Context, userID string) (leave.Role, error) {
	e, err := s.Employee(ctx, userID)
	if err != nil {
		return "", err
	}
	if e.Role == "" {
		return leave.RoleEmployee, nil
	}
	return e.Role, nil
}
