/*
Package sqlite provides the SQLite-backed implementation of the leave
storage interfaces.

INTERFACES IMPLEMENTED:
  leave.Store:             catalog, assignments, balances, requests
  leave.EmployeeDirectory: employee lookups for the engines
  leave.RoleAuthority:     current-role resolution for the workflow

BALANCE ATOMICITY:
  MutateBalance is the critical path. It runs SELECT -> callback ->
  UPSERT (+ history INSERT) inside one database transaction, under the
  store mutex, so two concurrent mutations of the same
  (employee, leave_type, year) key serialize instead of losing an
  update. A separate get call followed by a put call would race.

REPRESENTATION:
  Day amounts are stored as TEXT decimal strings (never floats), dates
  as "2006-01-02", timestamps as RFC3339.

WAL MODE:
  The database is opened with WAL so readers don't block behind the
  single writer.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Store = (*Store)(nil)
var _ leave.EmployeeDirectory = (*Store)(nil)
var _ leave.RoleAuthority = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer anyway, and :memory:
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		color_code TEXT,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
		max_consecutive_days INTEGER,
		advance_notice_days INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		name TEXT NOT NULL,
		annual_allocation TEXT NOT NULL,
		accrual_rate TEXT NOT NULL,
		accrual_frequency TEXT NOT NULL,
		probation_period_months INTEGER NOT NULL DEFAULT 0,
		carryover_limit TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_leave_type
		ON leave_policies(leave_type_id);

	CREATE TABLE IF NOT EXISTS policy_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL REFERENCES leave_policies(id),
		effective_date TEXT NOT NULL,
		custom_allocation TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON policy_assignments(employee_id);

	-- Materialized per-year balances. One row per natural key; the row
	-- is created lazily on first mutation and never deleted.
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		allocated TEXT NOT NULL DEFAULT '0',
		used TEXT NOT NULL DEFAULT '0',
		pending TEXT NOT NULL DEFAULT '0',
		carried_over TEXT NOT NULL DEFAULT '0',
		last_accrual_date TEXT,
		carryover_applied BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_year
		ON leave_balances(year);

	-- Append-only audit of balance mutations. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS accrual_history (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		date TEXT NOT NULL,
		change_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reason TEXT,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_key
		ON accrual_history(employee_id, leave_type_id, year, seq);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		approved_by TEXT,
		approved_at TEXT,
		denial_reason TEXT,
		created_by TEXT,
		updated_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		employment_status TEXT NOT NULL DEFAULT 'active',
		manager_id TEXT,
		department_id TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);
	CREATE INDEX IF NOT EXISTS idx_employees_status
		ON employees(employment_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (s *Store) InsertLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types
		(id, name, color_code, is_paid, requires_approval, max_consecutive_days, advance_notice_days, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lt.ID, lt.Name, lt.ColorCode, lt.IsPaid, lt.RequiresApproval,
		nullInt(lt.MaxConsecutiveDays), lt.AdvanceNoticeDays, lt.IsActive,
		lt.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil && isUniqueConstraintError(err) {
		return &leave.ConflictError{Message: fmt.Sprintf("leave type %q already exists", lt.Name)}
	}
	return err
}

func (s *Store) GetLeaveType(ctx context.Context, id string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanLeaveTypeRow(s.db.QueryRowContext(ctx, selectLeaveType+` WHERE id = ?`, id), id)
}

func (s *Store) GetLeaveTypeByName(ctx context.Context, name string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanLeaveTypeRow(s.db.QueryRowContext(ctx, selectLeaveType+` WHERE name = ?`, name), name)
}

const selectLeaveType = `
	SELECT id, name, color_code, is_paid, requires_approval, max_consecutive_days, advance_notice_days, is_active, created_at
	FROM leave_types`

func scanLeaveTypeRow(row *sql.Row, ref string) (leave.LeaveType, error) {
	lt, err := scanLeaveType(row.Scan)
	if err == sql.ErrNoRows {
		return leave.LeaveType{}, &leave.NotFoundError{Kind: "leave type", ID: ref}
	}
	return lt, err
}

func scanLeaveType(scan func(...any) error) (leave.LeaveType, error) {
	var lt leave.LeaveType
	var colorCode sql.NullString
	var maxDays sql.NullInt64
	var createdAt string

	if err := scan(&lt.ID, &lt.Name, &colorCode, &lt.IsPaid, &lt.RequiresApproval, &maxDays, &lt.AdvanceNoticeDays, &lt.IsActive, &createdAt); err != nil {
		return leave.LeaveType{}, err
	}
	lt.ColorCode = colorCode.String
	if maxDays.Valid {
		v := int(maxDays.Int64)
		lt.MaxConsecutiveDays = &v
	}
	lt.CreatedAt = parseTime(createdAt)
	return lt, nil
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectLeaveType+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_types
		SET color_code = ?, is_paid = ?, requires_approval = ?, max_consecutive_days = ?, advance_notice_days = ?, is_active = ?
		WHERE id = ?
	`, lt.ColorCode, lt.IsPaid, lt.RequiresApproval, nullInt(lt.MaxConsecutiveDays), lt.AdvanceNoticeDays, lt.IsActive, lt.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "leave type", lt.ID)
}

func (s *Store) DeleteLeaveType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM leave_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "leave type", id)
}

func (s *Store) LeaveTypeInUse(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM leave_policies WHERE leave_type_id = ?)
		     + (SELECT COUNT(*) FROM leave_requests WHERE leave_type_id = ?)
	`, id, id).Scan(&count)
	return count > 0, err
}

// =============================================================================
// POLICIES
// =============================================================================

func (s *Store) InsertPolicy(ctx context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_policies
		(id, leave_type_id, name, annual_allocation, accrual_rate, accrual_frequency, probation_period_months, carryover_limit, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.LeaveTypeID, p.Name,
		p.AnnualAllocation.String(), p.AccrualRate.String(), string(p.AccrualFrequency),
		p.ProbationPeriodMonths, p.CarryoverLimit.String(), p.IsActive,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

const selectPolicy = `
	SELECT id, leave_type_id, name, annual_allocation, accrual_rate, accrual_frequency, probation_period_months, carryover_limit, is_active, created_at
	FROM leave_policies`

func (s *Store) GetPolicy(ctx context.Context, id string) (leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectPolicy+` WHERE id = ?`, id)
	p, err := scanPolicy(row.Scan)
	if err == sql.ErrNoRows {
		return leave.LeavePolicy{}, &leave.NotFoundError{Kind: "policy", ID: id}
	}
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	return s.queryPolicies(ctx, selectPolicy+` ORDER BY name`)
}

func (s *Store) ListPoliciesByLeaveType(ctx context.Context, leaveTypeID string) ([]leave.LeavePolicy, error) {
	return s.queryPolicies(ctx, selectPolicy+` WHERE leave_type_id = ? ORDER BY name`, leaveTypeID)
}

func (s *Store) queryPolicies(ctx context.Context, query string, args ...any) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPolicy(scan func(...any) error) (leave.LeavePolicy, error) {
	var p leave.LeavePolicy
	var allocation, rate, carryover, frequency, createdAt string

	if err := scan(&p.ID, &p.LeaveTypeID, &p.Name, &allocation, &rate, &frequency, &p.ProbationPeriodMonths, &carryover, &p.IsActive, &createdAt); err != nil {
		return leave.LeavePolicy{}, err
	}
	p.AnnualAllocation = parseDecimal(allocation)
	p.AccrualRate = parseDecimal(rate)
	p.AccrualFrequency = leave.AccrualFrequency(frequency)
	p.CarryoverLimit = parseDecimal(carryover)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (s *Store) UpdatePolicy(ctx context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_policies
		SET name = ?, annual_allocation = ?, accrual_rate = ?, accrual_frequency = ?, probation_period_months = ?, carryover_limit = ?, is_active = ?
		WHERE id = ?
	`,
		p.Name, p.AnnualAllocation.String(), p.AccrualRate.String(), string(p.AccrualFrequency),
		p.ProbationPeriodMonths, p.CarryoverLimit.String(), p.IsActive, p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "policy", p.ID)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (s *Store) InsertAssignment(ctx context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var custom any
	if a.CustomAllocation != nil {
		custom = a.CustomAllocation.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policy_assignments
		(id, employee_id, policy_id, effective_date, custom_allocation, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.EmployeeID, a.PolicyID,
		a.EffectiveDate.Format(time.DateOnly), custom, a.IsActive,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateAssignment(ctx context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var custom any
	if a.CustomAllocation != nil {
		custom = a.CustomAllocation.String()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE policy_assignments
		SET effective_date = ?, custom_allocation = ?, is_active = ?
		WHERE id = ?
	`, a.EffectiveDate.Format(time.DateOnly), custom, a.IsActive, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "policy assignment", a.ID)
}

func (s *Store) AssignmentsByEmployee(ctx context.Context, employeeID string) ([]leave.PolicyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, policy_id, effective_date, custom_allocation, is_active, created_at
		FROM policy_assignments
		WHERE employee_id = ?
		ORDER BY created_at, id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.PolicyAssignment
	for rows.Next() {
		var a leave.PolicyAssignment
		var effective, createdAt string
		var custom sql.NullString
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.PolicyID, &effective, &custom, &a.IsActive, &createdAt); err != nil {
			return nil, err
		}
		a.EffectiveDate = parseDate(effective)
		if custom.Valid {
			d := parseDecimal(custom.String)
			a.CustomAllocation = &d
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// BALANCES
// =============================================================================

const selectBalance = `
	SELECT employee_id, leave_type_id, year, allocated, used, pending, carried_over, last_accrual_date, carryover_applied, updated_at
	FROM leave_balances`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) GetBalance(ctx context.Context, key leave.BalanceKey) (leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, key)
}

func getBalance(ctx context.Context, db queryRower, key leave.BalanceKey) (leave.LeaveBalance, error) {
	row := db.QueryRowContext(ctx, selectBalance+`
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?
	`, key.EmployeeID, key.LeaveTypeID, key.Year)

	b, err := scanBalance(row.Scan)
	if err == sql.ErrNoRows {
		return leave.LeaveBalance{}, &leave.NotFoundError{
			Kind: "balance",
			ID:   fmt.Sprintf("%s/%s/%d", key.EmployeeID, key.LeaveTypeID, key.Year),
		}
	}
	return b, err
}

func scanBalance(scan func(...any) error) (leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	var allocated, used, pending, carried, updatedAt string
	var lastAccrual sql.NullString

	if err := scan(&b.EmployeeID, &b.LeaveTypeID, &b.Year, &allocated, &used, &pending, &carried, &lastAccrual, &b.CarryoverApplied, &updatedAt); err != nil {
		return leave.LeaveBalance{}, err
	}
	b.Allocated = parseDecimal(allocated)
	b.Used = parseDecimal(used)
	b.Pending = parseDecimal(pending)
	b.CarriedOver = parseDecimal(carried)
	if lastAccrual.Valid {
		b.LastAccrualDate = parseDate(lastAccrual.String)
	}
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func (s *Store) BalancesForYear(ctx context.Context, year int) ([]leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectBalance+`
		WHERE year = ?
		ORDER BY employee_id, leave_type_id
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MutateBalance runs the read-modify-write inside a single database
// transaction. The row is created zero-valued on first touch; the
// history entry (if any) commits with the row or not at all.
func (s *Store) MutateBalance(ctx context.Context, key leave.BalanceKey, fn leave.BalanceMutator) (leave.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := getBalance(ctx, tx, key)
	if leave.IsNotFound(err) {
		b = leave.LeaveBalance{EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID, Year: key.Year}
	} else if err != nil {
		return leave.LeaveBalance{}, err
	}

	entry, err := fn(&b)
	if err != nil {
		return leave.LeaveBalance{}, err
	}

	var lastAccrual any
	if !b.LastAccrualDate.IsZero() {
		lastAccrual = b.LastAccrualDate.Format(time.DateOnly)
	}
	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leave_balances
		(employee_id, leave_type_id, year, allocated, used, pending, carried_over, last_accrual_date, carryover_applied, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, leave_type_id, year) DO UPDATE SET
			allocated = excluded.allocated,
			used = excluded.used,
			pending = excluded.pending,
			carried_over = excluded.carried_over,
			last_accrual_date = excluded.last_accrual_date,
			carryover_applied = excluded.carryover_applied,
			updated_at = excluded.updated_at
	`,
		key.EmployeeID, key.LeaveTypeID, key.Year,
		b.Allocated.String(), b.Used.String(), b.Pending.String(), b.CarriedOver.String(),
		lastAccrual, b.CarryoverApplied, updatedAt.Format(time.RFC3339),
	); err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("failed to write balance: %w", err)
	}

	if entry != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accrual_history
			(id, employee_id, leave_type_id, year, date, change_type, amount, balance_before, balance_after, reason, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				COALESCE((SELECT MAX(seq) FROM accrual_history WHERE employee_id = ? AND leave_type_id = ? AND year = ?), 0) + 1)
		`,
			entry.ID, entry.EmployeeID, entry.LeaveTypeID, entry.Year,
			entry.Date.Format(time.DateOnly), string(entry.Type),
			entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(), entry.Reason,
			entry.EmployeeID, entry.LeaveTypeID, entry.Year,
		); err != nil {
			return leave.LeaveBalance{}, fmt.Errorf("failed to append history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return leave.LeaveBalance{}, err
	}
	return b, nil
}

func (s *Store) History(ctx context.Context, key leave.BalanceKey) ([]leave.AccrualHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, leave_type_id, year, date, change_type, amount, balance_before, balance_after, reason
		FROM accrual_history
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?
		ORDER BY seq
	`, key.EmployeeID, key.LeaveTypeID, key.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.AccrualHistoryEntry
	for rows.Next() {
		var e leave.AccrualHistoryEntry
		var date, changeType, amount, before, after string
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.LeaveTypeID, &e.Year, &date, &changeType, &amount, &before, &after, &reason); err != nil {
			return nil, err
		}
		e.Date = parseDate(date)
		e.Type = leave.ChangeType(changeType)
		e.Amount = parseDecimal(amount)
		e.BalanceBefore = parseDecimal(before)
		e.BalanceAfter = parseDecimal(after)
		e.Reason = reason.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, start_date, end_date, total_days, reason, status, approved_by, approved_at, denial_reason, created_by, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.EmployeeID, r.LeaveTypeID,
		r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly),
		r.TotalDays.String(), r.Reason, string(r.Status),
		nullString(r.ApprovedBy), nullTime(r.ApprovedAt), nullString(r.DenialReason),
		r.CreatedBy, r.UpdatedBy,
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

const selectRequest = `
	SELECT id, employee_id, leave_type_id, start_date, end_date, total_days, reason, status, approved_by, approved_at, denial_reason, created_by, updated_by, created_at, updated_at
	FROM leave_requests`

func (s *Store) GetRequest(ctx context.Context, id string) (leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, id)
	r, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return leave.LeaveRequest{}, &leave.NotFoundError{Kind: "request", ID: id}
	}
	return r, err
}

func scanRequest(scan func(...any) error) (leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var start, end, totalDays, status, createdAt, updatedAt string
	var reason, approvedBy, approvedAt, denialReason, createdBy, updatedBy sql.NullString

	if err := scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &start, &end, &totalDays, &reason, &status, &approvedBy, &approvedAt, &denialReason, &createdBy, &updatedBy, &createdAt, &updatedAt); err != nil {
		return leave.LeaveRequest{}, err
	}
	r.StartDate = parseDate(start)
	r.EndDate = parseDate(end)
	r.TotalDays = parseDecimal(totalDays)
	r.Reason = reason.String
	r.Status = leave.RequestStatus(status)
	r.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		t := parseTime(approvedAt.String)
		r.ApprovedAt = &t
	}
	r.DenialReason = denialReason.String
	r.CreatedBy = createdBy.String
	r.UpdatedBy = updatedBy.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

func (s *Store) UpdateRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET start_date = ?, end_date = ?, total_days = ?, reason = ?, status = ?, approved_by = ?, approved_at = ?, denial_reason = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`,
		r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly),
		r.TotalDays.String(), r.Reason, string(r.Status),
		nullString(r.ApprovedBy), nullTime(r.ApprovedAt), nullString(r.DenialReason),
		r.UpdatedBy, r.UpdatedAt.UTC().Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "request", r.ID)
}

func (s *Store) RequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	return s.queryRequests(ctx, selectRequest+` WHERE employee_id = ? ORDER BY start_date, id`, employeeID)
}

func (s *Store) RequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	return s.queryRequests(ctx, selectRequest+` WHERE status = ? ORDER BY start_date, id`, string(status))
}

func (s *Store) OverlappingRequests(ctx context.Context, employeeID string, start, end time.Time, excludeID string, statuses []leave.RequestStatus) ([]leave.LeaveRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")

	args := []any{employeeID, excludeID}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, end.Format(time.DateOnly), start.Format(time.DateOnly))

	// Inclusive interval overlap: other.start <= end AND other.end >= start.
	query := selectRequest + `
		WHERE employee_id = ? AND id != ?
		  AND status IN (` + placeholders + `)
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date, id`
	return s.queryRequests(ctx, query, args...)
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYEES (EmployeeDirectory + RoleAuthority)
// =============================================================================

func (s *Store) UpsertEmployee(ctx context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees
		(id, name, hire_date, employment_status, manager_id, department_id, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			hire_date = excluded.hire_date,
			employment_status = excluded.employment_status,
			manager_id = excluded.manager_id,
			department_id = excluded.department_id,
			role = excluded.role
	`,
		e.ID, e.Name, e.HireDate.Format(time.DateOnly), string(e.EmploymentStatus),
		nullString(e.ManagerID), nullString(e.DepartmentID), string(e.Role),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

const selectEmployee = `
	SELECT id, name, hire_date, employment_status, manager_id, department_id, role
	FROM employees`

func (s *Store) Employee(ctx context.Context, id string) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectEmployee+` WHERE id = ?`, id)
	e, err := scanEmployee(row.Scan)
	if err == sql.ErrNoRows {
		return leave.Employee{}, &leave.NotFoundError{Kind: "employee", ID: id}
	}
	return e, err
}

func scanEmployee(scan func(...any) error) (leave.Employee, error) {
	var e leave.Employee
	var hireDate, status, role string
	var managerID, departmentID sql.NullString

	if err := scan(&e.ID, &e.Name, &hireDate, &status, &managerID, &departmentID, &role); err != nil {
		return leave.Employee{}, err
	}
	e.HireDate = parseDate(hireDate)
	e.EmploymentStatus = leave.EmploymentStatus(status)
	e.ManagerID = managerID.String
	e.DepartmentID = departmentID.String
	e.Role = leave.Role(role)
	return e, nil
}

func (s *Store) ActiveEmployees(ctx context.Context) ([]leave.Employee, error) {
	return s.queryEmployees(ctx, selectEmployee+` WHERE employment_status = 'active' ORDER BY id`)
}

func (s *Store) TeamMembers(ctx context.Context, managerID string) ([]leave.Employee, error) {
	return s.queryEmployees(ctx, selectEmployee+` WHERE manager_id = ? ORDER BY id`, managerID)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
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

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
