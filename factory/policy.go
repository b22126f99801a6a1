/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON leave-type and policy definitions into catalog create
  inputs. This enables catalog configuration without code changes - HR
  can define leave types and policies in JSON, and the factory produces
  the proper inputs for the catalog service.

JSON SCHEMA:
  {
    "leave_types": [
      {
        "name": "Annual Leave",
        "color_code": "#2d7ff9",
        "is_paid": true,
        "requires_approval": true,
        "max_consecutive_days": 15,
        "advance_notice_days": 7
      }
    ],
    "policies": [
      {
        "leave_type": "Annual Leave",
        "name": "Standard Annual",
        "annual_allocation": "21",
        "accrual_rate": "1.75",
        "accrual_frequency": "monthly",
        "probation_period_months": 3,
        "carryover_limit": "5"
      }
    ]
  }

  Policies reference leave types by NAME, not by id; ids are generated
  at creation time. Day amounts are JSON strings so they parse as exact
  decimals, never floats.

KEY FEATURES:
  - Validates JSON structure and decimal fields
  - Sets sensible defaults (approval required, monthly accrual)
  - Seed() applies a whole catalog in order: types first, then policies

USAGE:
  catalog := leave.NewCatalog(store, clock)

  // From a JSON document
  def, err := factory.ParseCatalog(jsonBytes)
  err = factory.Seed(ctx, catalog, def)

  // Or from the built-in presets
  err = factory.Seed(ctx, catalog, factory.DefaultCatalog())

SEE ALSO:
  - leave/catalog.go: create input validation and persistence
  - cmd/server/main.go: -seed flag
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a full catalog definition.
type CatalogJSON struct {
	LeaveTypes []LeaveTypeJSON `json:"leave_types"`
	Policies   []PolicyJSON    `json:"policies"`
}

// LeaveTypeJSON is the JSON representation of one leave type.
type LeaveTypeJSON struct {
	Name               string `json:"name"`
	ColorCode          string `json:"color_code,omitempty"`
	IsPaid             bool   `json:"is_paid"`
	RequiresApproval   *bool  `json:"requires_approval,omitempty"` // default true
	MaxConsecutiveDays *int   `json:"max_consecutive_days,omitempty"`
	AdvanceNoticeDays  int    `json:"advance_notice_days,omitempty"`
}

// PolicyJSON is the JSON representation of one accrual policy.
type PolicyJSON struct {
	LeaveType             string `json:"leave_type"` // references LeaveTypeJSON.Name
	Name                  string `json:"name"`
	AnnualAllocation      string `json:"annual_allocation"`
	AccrualRate           string `json:"accrual_rate"`
	AccrualFrequency      string `json:"accrual_frequency,omitempty"` // default monthly
	ProbationPeriodMonths int    `json:"probation_period_months,omitempty"`
	CarryoverLimit        string `json:"carryover_limit,omitempty"` // default 0
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog decodes and validates a JSON catalog definition.
func ParseCatalog(data []byte) (CatalogJSON, error) {
	var def CatalogJSON
	if err := json.Unmarshal(data, &def); err != nil {
		return CatalogJSON{}, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	names := make(map[string]bool, len(def.LeaveTypes))
	for i, lt := range def.LeaveTypes {
		if lt.Name == "" {
			return CatalogJSON{}, fmt.Errorf("leave_types[%d]: name is required", i)
		}
		if names[lt.Name] {
			return CatalogJSON{}, fmt.Errorf("leave_types[%d]: duplicate name %q", i, lt.Name)
		}
		names[lt.Name] = true
	}

	for i, p := range def.Policies {
		if p.Name == "" {
			return CatalogJSON{}, fmt.Errorf("policies[%d]: name is required", i)
		}
		if !names[p.LeaveType] {
			return CatalogJSON{}, fmt.Errorf("policies[%d]: unknown leave type %q", i, p.LeaveType)
		}
		for _, field := range []struct{ name, value string }{
			{"annual_allocation", p.AnnualAllocation},
			{"accrual_rate", p.AccrualRate},
		} {
			if _, err := decimal.NewFromString(field.value); err != nil {
				return CatalogJSON{}, fmt.Errorf("policies[%d]: invalid %s %q", i, field.name, field.value)
			}
		}
		if p.CarryoverLimit != "" {
			if _, err := decimal.NewFromString(p.CarryoverLimit); err != nil {
				return CatalogJSON{}, fmt.Errorf("policies[%d]: invalid carryover_limit %q", i, p.CarryoverLimit)
			}
		}
		if p.AccrualFrequency != "" && !leave.AccrualFrequency(p.AccrualFrequency).Valid() {
			return CatalogJSON{}, fmt.Errorf("policies[%d]: unknown accrual_frequency %q", i, p.AccrualFrequency)
		}
	}
	return def, nil
}

// LeaveTypeInput converts the JSON form into a catalog create input,
// applying defaults.
func (j LeaveTypeJSON) LeaveTypeInput() leave.CreateLeaveTypeInput {
	requiresApproval := true
	if j.RequiresApproval != nil {
		requiresApproval = *j.RequiresApproval
	}
	return leave.CreateLeaveTypeInput{
		Name:               j.Name,
		ColorCode:          j.ColorCode,
		IsPaid:             j.IsPaid,
		RequiresApproval:   requiresApproval,
		MaxConsecutiveDays: j.MaxConsecutiveDays,
		AdvanceNoticeDays:  j.AdvanceNoticeDays,
	}
}

// PolicyInput converts the JSON form into a catalog create input for
// the given leave type id, applying defaults. ParseCatalog has already
// validated the decimal fields.
func (j PolicyJSON) PolicyInput(leaveTypeID string) leave.CreatePolicyInput {
	frequency := leave.AccrualFrequency(j.AccrualFrequency)
	if j.AccrualFrequency == "" {
		frequency = leave.FreqMonthly
	}
	carryover := decimal.Zero
	if j.CarryoverLimit != "" {
		carryover, _ = decimal.NewFromString(j.CarryoverLimit)
	}
	allocation, _ := decimal.NewFromString(j.AnnualAllocation)
	rate, _ := decimal.NewFromString(j.AccrualRate)

	return leave.CreatePolicyInput{
		LeaveTypeID:           leaveTypeID,
		Name:                  j.Name,
		AnnualAllocation:      allocation,
		AccrualRate:           rate,
		AccrualFrequency:      frequency,
		ProbationPeriodMonths: j.ProbationPeriodMonths,
		CarryoverLimit:        carryover,
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// Seed creates every leave type and policy of the definition through
// the catalog service, types first so policies can resolve their type
// by name. Not idempotent: re-seeding an existing catalog returns the
// catalog's name-conflict error.
func Seed(ctx context.Context, catalog *leave.Catalog, def CatalogJSON) error {
	typeIDs := make(map[string]string, len(def.LeaveTypes))
	for _, lt := range def.LeaveTypes {
		created, err := catalog.CreateLeaveType(ctx, lt.LeaveTypeInput())
		if err != nil {
			return fmt.Errorf("failed to create leave type %q: %w", lt.Name, err)
		}
		typeIDs[lt.Name] = created.ID
	}
	for _, p := range def.Policies {
		if _, err := catalog.CreatePolicy(ctx, p.PolicyInput(typeIDs[p.LeaveType])); err != nil {
			return fmt.Errorf("failed to create policy %q: %w", p.Name, err)
		}
	}
	return nil
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultCatalog returns a typical starting catalog: annual leave with
// monthly accrual and carryover, sick leave with no carryover, and
// unpaid personal leave granted annually.
func DefaultCatalog() CatalogJSON {
	maxConsecutive := 15
	noApproval := false
	return CatalogJSON{
		LeaveTypes: []LeaveTypeJSON{
			{
				Name:               "Annual Leave",
				ColorCode:          "#2d7ff9",
				IsPaid:             true,
				MaxConsecutiveDays: &maxConsecutive,
				AdvanceNoticeDays:  7,
			},
			{
				Name:             "Sick Leave",
				ColorCode:        "#e8590c",
				IsPaid:           true,
				RequiresApproval: &noApproval,
			},
			{
				Name:              "Personal Leave",
				ColorCode:         "#868e96",
				IsPaid:            false,
				AdvanceNoticeDays: 14,
			},
		},
		Policies: []PolicyJSON{
			{
				LeaveType:             "Annual Leave",
				Name:                  "Standard Annual",
				AnnualAllocation:      "21",
				AccrualRate:           "1.75",
				AccrualFrequency:      "monthly",
				ProbationPeriodMonths: 3,
				CarryoverLimit:        "5",
			},
			{
				LeaveType:        "Sick Leave",
				Name:             "Standard Sick",
				AnnualAllocation: "10",
				AccrualRate:      "10",
				AccrualFrequency: "annually",
			},
			{
				LeaveType:        "Personal Leave",
				Name:             "Standard Personal",
				AnnualAllocation: "5",
				AccrualRate:      "5",
				AccrualFrequency: "annually",
			},
		},
	}
}
