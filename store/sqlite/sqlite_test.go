package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStandardCatalog(t *testing.T, s *sqlite.Store) {
	t.Helper()
	catalog, err := factory.NewComponentFactory().ParseCatalog(factory.StandardCatalogJSON())
	require.NoError(t, err)
	for _, def := range catalog.Definitions() {
		require.NoError(t, s.SaveComponent(context.Background(), def))
	}
}

func march2024() payroll.PeriodKey { return payroll.NewPeriodKey(2024, time.March) }

// =============================================================================
// COMPONENTS
// =============================================================================

func TestStore_ComponentsRoundTrip(t *testing.T) {
	// GIVEN: The standard catalog saved component by component
	// WHEN: Reading the catalog back
	// THEN: Every definition survives with its percentage intact

	ctx := context.Background()
	s := newStore(t)
	seedStandardCatalog(t, s)

	catalog, err := s.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, catalog.Len())

	housing, err := s.GetComponent(ctx, "HOUSING")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(housing.DefaultPercentage))
	assert.True(t, housing.AppliesToAll)

	_, err = s.GetComponent(ctx, "NOPE")
	assert.ErrorIs(t, err, payroll.ErrComponentNotFound)
}

func TestStore_SaveComponentValidates(t *testing.T) {
	s := newStore(t)

	err := s.SaveComponent(context.Background(), payroll.ComponentDefinition{
		Code: "BAD", Name: "Bad", Type: payroll.ComponentAllowance, Calculation: payroll.CalcPercentage,
		DefaultPercentage: decimal.NewFromInt(101),
	})

	assert.ErrorIs(t, err, payroll.ErrValidation)
}

func TestStore_ComponentUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedStandardCatalog(t, s)

	transport, err := s.GetComponent(ctx, "TRANSPORT")
	require.NoError(t, err)
	transport.DefaultAmount = 60_000
	require.NoError(t, s.SaveComponent(ctx, transport))

	again, err := s.GetComponent(ctx, "TRANSPORT")
	require.NoError(t, err)
	assert.Equal(t, money.Amount(60_000), again.DefaultAmount)

	require.NoError(t, s.DeleteComponent(ctx, "TRANSPORT"))
	assert.ErrorIs(t, s.DeleteComponent(ctx, "TRANSPORT"), payroll.ErrComponentNotFound)

	defs, err := s.ListComponents(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 4)
}

// =============================================================================
// EMPLOYEES, ASSIGNMENTS, ATTENDANCE
// =============================================================================

func TestStore_EmployeeWithAssignments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{
		ID: "e1", Name: "Ada", Department: "Engineering", BasicSalary: 1_200_000, BankAccount: "GB00-e1",
	}))

	override := money.Amount(75_000)
	expires := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAssignment(ctx, payroll.Assignment{
		ID: "a1", EmployeeID: "e1", ComponentCode: "TRANSPORT", OverrideAmount: &override,
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), ExpiresAt: &expires, Active: true,
	}))
	pct := decimal.RequireFromString("12.5")
	require.NoError(t, s.SaveAssignment(ctx, payroll.Assignment{
		ID: "a2", EmployeeID: "e1", ComponentCode: "PENSION", OverridePercentage: &pct,
		EffectiveFrom: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Active: true,
	}))

	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, money.Amount(1_200_000), emp.BasicSalary)
	assert.Equal(t, "GB00-e1", emp.BankAccount)
	require.Len(t, emp.Assignments, 2)

	first := emp.Assignments[0]
	assert.Equal(t, "a1", first.ID)
	require.NotNil(t, first.OverrideAmount)
	assert.Equal(t, override, *first.OverrideAmount)
	require.NotNil(t, first.ExpiresAt)
	assert.True(t, expires.Equal(*first.ExpiresAt))

	second := emp.Assignments[1]
	require.NotNil(t, second.OverridePercentage)
	assert.True(t, pct.Equal(*second.OverridePercentage))
	assert.Nil(t, second.ExpiresAt)
}

func TestStore_AssignmentRequiresEmployee(t *testing.T) {
	s := newStore(t)

	err := s.SaveAssignment(context.Background(), payroll.Assignment{
		ID: "a1", EmployeeID: "ghost", ComponentCode: "TRANSPORT",
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Active: true,
	})

	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}

func TestStore_EmployeeInputs(t *testing.T) {
	// GIVEN: Two employees, one with March overtime recorded
	// WHEN: Loading inputs for both plus an unknown id
	// THEN: Unknown ids are omitted; attendance is attached per period

	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{ID: "e1", Name: "Ada", BasicSalary: 100}))
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{ID: "e2", Name: "Grace", BasicSalary: 200}))
	require.NoError(t, s.SaveAttendance(ctx, payroll.Attendance{
		EmployeeID: "e2", Period: march2024(), AttendanceDays: 20, LeaveDays: 1,
		OvertimeHours: decimal.RequireFromString("2.5"), OvertimeRate: 3_000,
	}))

	inputs, err := s.EmployeeInputs(ctx, march2024(), []payroll.EmployeeID{"e2", "ghost", "e1"})

	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, payroll.EmployeeID("e2"), inputs[0].Employee.ID)
	assert.Equal(t, 20, inputs[0].AttendanceDays)
	assert.Equal(t, "2.5", inputs[0].OvertimeHours.String())
	assert.Equal(t, money.Amount(3_000), inputs[0].OvertimeRate)
	assert.True(t, inputs[1].OvertimeHours.IsZero())

	att, err := s.GetAttendance(ctx, "e1", march2024())
	require.NoError(t, err)
	assert.Nil(t, att)
}

func TestStore_DeleteEmployeeCascades(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{ID: "e1", Name: "Ada", BasicSalary: 100}))
	require.NoError(t, s.SaveAssignment(ctx, payroll.Assignment{
		ID: "a1", EmployeeID: "e1", ComponentCode: "TRANSPORT",
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Active: true,
	}))

	require.NoError(t, s.DeleteEmployee(ctx, "e1"))

	_, err := s.GetEmployee(ctx, "e1")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	assignments, err := s.ListAssignments(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestStore_PeriodLifecycleThroughService(t *testing.T) {
	// GIVEN: The standard catalog and one employee on 1,200,000
	// WHEN: Running the full workflow against SQLite
	// THEN: The stored period is completed, net 1,190,000, and every
	//       transition is in the audit table

	ctx := context.Background()
	s := newStore(t)
	seedStandardCatalog(t, s)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{
		ID: "e1", Name: "Ada", Department: "Engineering", BasicSalary: 1_200_000, BankAccount: "GB00-e1",
	}))

	svc := payroll.NewPeriodService(s, s, s, payroll.AuthorityFunc(func(string, *payroll.Period) bool { return true }))
	p, err := svc.Open(ctx, march2024(), "hr")
	require.NoError(t, err)
	_, err = svc.SelectEmployees(ctx, p.ID, "hr", []payroll.EmployeeID{"e1"})
	require.NoError(t, err)
	_, err = svc.Calculate(ctx, p.ID, "hr")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, p.ID, "cfo")
	require.NoError(t, err)
	_, err = svc.ProcessPayment(ctx, p.ID, "treasury")
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, p.ID, "treasury")
	require.NoError(t, err)

	stored, err := s.GetPeriod(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.StateCompleted, stored.State)
	assert.Equal(t, 6, stored.Version)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, money.Amount(1_190_000), stored.Summary.TotalNet)
	require.NotNil(t, stored.Payment)
	assert.Equal(t, "treasury", stored.Payment.ProcessedBy)

	trail, err := s.Transitions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, trail, 5)
	assert.Equal(t, payroll.EventSelectEmployees, trail[0].Event)
	assert.Equal(t, payroll.StateCompleted, trail[4].To)
}

func TestStore_DuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	first, err := payroll.NewPeriod("p1", march2024(), "hr", time.Now())
	require.NoError(t, err)
	first.Version = 1
	require.NoError(t, s.CreatePeriod(ctx, first))

	second, err := payroll.NewPeriod("p2", march2024(), "hr", time.Now())
	require.NoError(t, err)
	second.Version = 1

	assert.ErrorIs(t, s.CreatePeriod(ctx, second), payroll.ErrDuplicatePeriod)

	byKey, err := s.GetPeriodByKey(ctx, march2024())
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodID("p1"), byKey.ID)
}

func TestStore_StaleUpdateRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p, err := payroll.NewPeriod("p1", march2024(), "hr", time.Now())
	require.NoError(t, err)
	p.Version = 1
	require.NoError(t, s.CreatePeriod(ctx, p))

	next := p.Clone()
	next.Version = 2
	next.State = payroll.StatePendingSelection
	require.NoError(t, s.UpdatePeriod(ctx, next))

	assert.ErrorIs(t, s.UpdatePeriod(ctx, next.Clone()), payroll.ErrConcurrentModification)

	ghost := next.Clone()
	ghost.ID = "missing"
	assert.ErrorIs(t, s.UpdatePeriod(ctx, ghost), payroll.ErrPeriodNotFound)

	_, err = s.GetPeriod(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
}

func TestStore_ListPeriodsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, month := range []time.Month{time.January, time.March, time.February} {
		p, err := payroll.NewPeriod(payroll.PeriodID(month.String()), payroll.NewPeriodKey(2024, month), "hr", time.Now())
		require.NoError(t, err)
		p.Version = 1
		require.NoError(t, s.CreatePeriod(ctx, p))
	}

	periods, err := s.ListPeriods(ctx)

	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, "2024-03", periods[0].Key.String())
	assert.Equal(t, "2024-01", periods[2].Key.String())
}

// =============================================================================
// ASSETS
// =============================================================================

func TestStore_Assets(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	asset := depreciation.Asset{
		ID: "asset-1", Name: "Laptop fleet", Category: "IT",
		PurchaseCost: 1_200_000, SalvageValue: 50_000, UsefulLifeYears: 5,
		PurchaseDate: time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveAsset(ctx, asset))

	got, err := s.GetAsset(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, depreciation.StraightLine, got.Method)
	assert.True(t, asset.PurchaseDate.Equal(got.PurchaseDate))

	res, err := depreciation.NewEngine().Compute(got, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, money.Amount(970_000), res.BookValue)

	_, err = s.GetAsset(ctx, "nope")
	assert.ErrorIs(t, err, depreciation.ErrAssetNotFound)

	bad := asset
	bad.SalvageValue = 2_000_000
	assert.ErrorIs(t, s.SaveAsset(ctx, bad), depreciation.ErrInvalidAsset)

	require.NoError(t, s.DeleteAsset(ctx, "asset-1"))
	assets, err := s.ListAssets(ctx)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedStandardCatalog(t, s)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{ID: "e1", Name: "Ada", BasicSalary: 100}))

	require.NoError(t, s.Reset(ctx))

	defs, err := s.ListComponents(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs)
	employees, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, employees)
}
