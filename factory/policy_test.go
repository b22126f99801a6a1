package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store/memory"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseCatalog_Valid(t *testing.T) {
	def, err := factory.ParseCatalog([]byte(`{
		"leave_types": [
			{"name": "Annual Leave", "is_paid": true, "advance_notice_days": 7}
		],
		"policies": [
			{"leave_type": "Annual Leave", "name": "Standard",
			 "annual_allocation": "21", "accrual_rate": "1.75",
			 "accrual_frequency": "monthly", "carryover_limit": "5"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, def.LeaveTypes, 1)
	require.Len(t, def.Policies, 1)
	assert.Equal(t, "Annual Leave", def.Policies[0].LeaveType)
}

func TestParseCatalog_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		json     string
		fragment string
	}{
		{
			"malformed JSON",
			`{"leave_types": [`,
			"failed to parse",
		},
		{
			"missing type name",
			`{"leave_types": [{"is_paid": true}]}`,
			"name is required",
		},
		{
			"duplicate type name",
			`{"leave_types": [{"name": "Annual Leave"}, {"name": "Annual Leave"}]}`,
			"duplicate name",
		},
		{
			"policy references unknown type",
			`{"leave_types": [{"name": "Annual Leave"}],
			  "policies": [{"leave_type": "Holiday", "name": "P", "annual_allocation": "21", "accrual_rate": "1.75"}]}`,
			"unknown leave type",
		},
		{
			"bad allocation decimal",
			`{"leave_types": [{"name": "Annual Leave"}],
			  "policies": [{"leave_type": "Annual Leave", "name": "P", "annual_allocation": "lots", "accrual_rate": "1.75"}]}`,
			"invalid annual_allocation",
		},
		{
			"bad carryover decimal",
			`{"leave_types": [{"name": "Annual Leave"}],
			  "policies": [{"leave_type": "Annual Leave", "name": "P", "annual_allocation": "21", "accrual_rate": "1.75", "carryover_limit": "x"}]}`,
			"invalid carryover_limit",
		},
		{
			"unknown frequency",
			`{"leave_types": [{"name": "Annual Leave"}],
			  "policies": [{"leave_type": "Annual Leave", "name": "P", "annual_allocation": "21", "accrual_rate": "1.75", "accrual_frequency": "hourly"}]}`,
			"unknown accrual_frequency",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParseCatalog([]byte(tc.json))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.fragment)
		})
	}
}

func TestParseCatalog_Defaults(t *testing.T) {
	// requires_approval defaults to true, accrual_frequency to monthly,
	// carryover_limit to zero.

	def, err := factory.ParseCatalog([]byte(`{
		"leave_types": [{"name": "Annual Leave"}],
		"policies": [{"leave_type": "Annual Leave", "name": "Standard",
		              "annual_allocation": "21", "accrual_rate": "1.75"}]
	}`))
	require.NoError(t, err)

	ltIn := def.LeaveTypes[0].LeaveTypeInput()
	assert.True(t, ltIn.RequiresApproval)

	pIn := def.Policies[0].PolicyInput("lt-1")
	assert.Equal(t, leave.FreqMonthly, pIn.AccrualFrequency)
	assert.True(t, pIn.CarryoverLimit.IsZero())
	assert.Equal(t, "21", pIn.AnnualAllocation.String())
}

// =============================================================================
// SEEDING
// =============================================================================

func seedTarget() *leave.Catalog {
	store := memory.New()
	return leave.NewCatalog(store, leave.FixedClock{At: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)})
}

func TestSeed_DefaultCatalog(t *testing.T) {
	catalog := seedTarget()
	ctx := context.Background()

	require.NoError(t, factory.Seed(ctx, catalog, factory.DefaultCatalog()))

	types, err := catalog.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 3)

	policies, err := catalog.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 3)

	for _, p := range policies {
		assert.True(t, p.IsActive)
		assert.True(t, p.AccrualFrequency.Valid())
	}
}

func TestSeed_NotIdempotent(t *testing.T) {
	// Re-seeding surfaces the catalog's name conflict instead of
	// silently duplicating.

	catalog := seedTarget()
	ctx := context.Background()

	require.NoError(t, factory.Seed(ctx, catalog, factory.DefaultCatalog()))
	err := factory.Seed(ctx, catalog, factory.DefaultCatalog())
	assert.ErrorIs(t, err, leave.ErrConflict)
}
