package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

func TestComponentFactory_ParseComponent(t *testing.T) {
	// GIVEN: A percentage component with the percentage as a string
	// WHEN: Parsing
	// THEN: A validated, active definition with monthly frequency

	f := factory.NewComponentFactory()

	def, err := f.ParseComponent(`{
		"code": "housing",
		"name": "Housing Allowance",
		"component_type": "allowance",
		"calculation_type": "percentage",
		"default_percentage": "12.5",
		"applies_to_all": true
	}`)

	require.NoError(t, err)
	assert.Equal(t, payroll.ComponentCode("HOUSING"), def.Code)
	assert.True(t, def.IsActive)
	assert.Equal(t, payroll.FrequencyMonthly, def.Frequency)
	assert.Equal(t, "12.5", def.DefaultPercentage.String())
}

func TestComponentFactory_ExplicitlyInactive(t *testing.T) {
	f := factory.NewComponentFactory()

	def, err := f.ParseComponent(`{"code":"OLD","name":"Old","component_type":"earning","calculation_type":"fixed","default_amount":100,"is_active":false}`)

	require.NoError(t, err)
	assert.False(t, def.IsActive)
	assert.Equal(t, money.Amount(100), def.DefaultAmount)
}

func TestComponentFactory_Rejects(t *testing.T) {
	f := factory.NewComponentFactory()

	_, err := f.ParseComponent(`{not json`)
	assert.Error(t, err)

	_, err = f.ParseComponent(`{"code":"X","name":"X","component_type":"allowance","calculation_type":"percentage","default_percentage":150}`)
	assert.ErrorIs(t, err, payroll.ErrValidation)

	_, err = f.ParseComponent(`{"code":"X","name":"X","component_type":"bonus","calculation_type":"formula","formula":"BASIC >= 1"}`)
	assert.ErrorIs(t, err, payroll.ErrFormulaEvaluation)
}

func TestComponentFactory_RoundTrip(t *testing.T) {
	f := factory.NewComponentFactory()
	original, err := f.ParseComponent(`{"code":"PAYE","name":"PAYE","component_type":"deduction","calculation_type":"percentage","default_percentage":20,"is_mandatory":true,"applies_to_all":true}`)
	require.NoError(t, err)

	b, err := json.Marshal(f.ToJSON(original))
	require.NoError(t, err)
	again, err := f.ParseComponent(string(b))
	require.NoError(t, err)

	assert.Equal(t, original.Code, again.Code)
	assert.True(t, original.DefaultPercentage.Equal(again.DefaultPercentage))
	assert.Equal(t, original.IsMandatory, again.IsMandatory)
	assert.Equal(t, original.IsActive, again.IsActive)
}

func TestStandardCatalogJSON(t *testing.T) {
	catalog, err := factory.NewComponentFactory().ParseCatalog(factory.StandardCatalogJSON())

	require.NoError(t, err)
	assert.Equal(t, 5, catalog.Len())

	housing, ok := catalog.Lookup("HOUSING")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(15).Equal(housing.DefaultPercentage))

	bonus, ok := catalog.Lookup("PERF_BONUS")
	require.True(t, ok)
	assert.Equal(t, payroll.FrequencyQuarterly, bonus.Frequency)
	assert.False(t, bonus.AppliesToAll)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func TestComponentFactory_ParseAssignment(t *testing.T) {
	f := factory.NewComponentFactory()
	f.NewID = func() string { return "generated" }

	a, err := f.ParseAssignment(`{
		"employee_id": "e1",
		"component_code": "TRANSPORT",
		"override_amount": 75000,
		"effective_from": "2024-01-01",
		"expires_at": "2024-12-31"
	}`)

	require.NoError(t, err)
	assert.Equal(t, "generated", a.ID)
	assert.True(t, a.Active)
	require.NotNil(t, a.OverrideAmount)
	assert.Equal(t, money.Amount(75_000), *a.OverrideAmount)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), a.EffectiveFrom)
	require.NotNil(t, a.ExpiresAt)
	assert.Equal(t, time.December, a.ExpiresAt.Month())

	back := f.AssignmentToJSON(a)
	assert.Equal(t, "2024-12-31", back.ExpiresAt)
	assert.Equal(t, int64(75_000), *back.OverrideAmount)
}

func TestComponentFactory_AssignmentErrors(t *testing.T) {
	f := factory.NewComponentFactory()

	_, err := f.ParseAssignment(`{"employee_id":"e1","component_code":"X","effective_from":"01/02/2024"}`)
	assert.ErrorIs(t, err, payroll.ErrValidation)

	_, err = f.ParseAssignment(`{"employee_id":"e1","component_code":"X"}`)
	assert.ErrorIs(t, err, payroll.ErrValidation, "effective_from is required")

	_, err = f.ParseAssignment(`{"employee_id":"e1","component_code":"X","effective_from":"2024-06-01","expires_at":"2024-01-01"}`)
	assert.ErrorIs(t, err, payroll.ErrInvalidAssignmentWindow)
}
