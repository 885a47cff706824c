package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

func resolve(t *testing.T, catalog *payroll.Catalog, emp payroll.Employee) []payroll.ResolvedComponent {
	t.Helper()
	rcs, err := payroll.NewResolver(catalog).Resolve(emp, march2024.End())
	require.NoError(t, err)
	return rcs
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestCalculator_HousingTransportPAYE(t *testing.T) {
	// GIVEN: Basic 1,200,000 with HOUSING 15%, TRANSPORT 50,000, PAYE 20%
	// WHEN: Calculating
	// THEN: PAYE is 20% of basic, not of gross

	emp := employee("e1", 1_200_000)
	rcs := resolve(t, scenarioCatalog(t), emp)

	b, err := payroll.NewCalculator().Calculate(emp.BasicSalary, rcs)

	require.NoError(t, err)
	assert.Equal(t, money.Amount(230_000), b.TotalAllowances)
	assert.Equal(t, money.Amount(1_430_000), b.GrossSalary)
	assert.Equal(t, money.Amount(240_000), b.TotalDeductions)
	assert.Equal(t, money.Amount(1_190_000), b.NetSalary)

	h, ok := b.Line("HOUSING")
	require.True(t, ok)
	assert.Equal(t, money.Amount(180_000), h.Amount)
	assert.Equal(t, 1, h.Sign)

	p, ok := b.Line("PAYE")
	require.True(t, ok)
	assert.Equal(t, -1, p.Sign)
	assert.Equal(t, money.Amount(-240_000), p.SignedAmount())

	// Only HOUSING is taxable among the allowances.
	assert.Equal(t, money.Amount(1_380_000), b.TaxableGross)
}

func TestCalculator_NetEqualsGrossMinusDeductions(t *testing.T) {
	catalog := scenarioCatalog(t)
	calc := payroll.NewCalculator()

	for _, basic := range []money.Amount{1, 7, 99, 12_345, 333_333, 1_200_000, 9_876_543} {
		emp := employee("e1", basic)
		b, err := calc.Calculate(basic, resolve(t, catalog, emp))
		require.NoError(t, err)

		var allowances, deductions, signed money.Amount
		for _, l := range b.Lines {
			assert.False(t, l.Amount.IsNegative(), "line %s", l.Code)
			if l.Type.IsDeduction() {
				deductions += l.Amount
			} else {
				allowances += l.Amount
			}
			signed += l.SignedAmount()
		}
		assert.Equal(t, allowances, b.TotalAllowances)
		assert.Equal(t, deductions, b.TotalDeductions)
		assert.Equal(t, b.GrossSalary-b.TotalDeductions, b.NetSalary)
		assert.Equal(t, b.BasicSalary+signed, b.NetSalary)
	}
}

func TestCalculator_ScalingHasNoDrift(t *testing.T) {
	// GIVEN: The same components at basic X and 2X
	// WHEN: Calculating both
	// THEN: Percentage lines double exactly when X's lines are whole

	catalog := scenarioCatalog(t)
	calc := payroll.NewCalculator()

	base, err := calc.Calculate(600_000, resolve(t, catalog, employee("e1", 600_000)))
	require.NoError(t, err)
	doubled, err := calc.Calculate(1_200_000, resolve(t, catalog, employee("e1", 1_200_000)))
	require.NoError(t, err)

	for _, code := range []payroll.ComponentCode{"HOUSING", "PAYE"} {
		l1, _ := base.Line(code)
		l2, _ := doubled.Line(code)
		assert.Equal(t, l1.Amount*2, l2.Amount, string(code))
	}
}

func TestCalculator_PercentageRoundsHalfUp(t *testing.T) {
	// 12.5% of 4 = 0.5 -> 1
	catalog, err := payroll.NewCatalog(payroll.ComponentDefinition{
		Code:              "TINY",
		Name:              "Tiny",
		Type:              payroll.ComponentAllowance,
		Calculation:       payroll.CalcPercentage,
		DefaultPercentage: mustDecimal(t, "12.5"),
		AppliesToAll:      true,
		IsActive:          true,
	})
	require.NoError(t, err)

	b, err := payroll.NewCalculator().Calculate(4, resolve(t, catalog, employee("e1", 4)))

	require.NoError(t, err)
	assert.Equal(t, money.Amount(1), b.TotalAllowances)
}

// =============================================================================
// FORMULAS
// =============================================================================

func TestCalculator_FormulaReadsGrossSoFar(t *testing.T) {
	// GIVEN: A bonus worth 10% of everything earned before it
	// WHEN: Calculating with HOUSING and TRANSPORT ahead of it
	// THEN: GROSS_SO_FAR is basic + HOUSING + TRANSPORT

	bonus := payroll.ComponentDefinition{
		Code:         "ZBONUS",
		Name:         "Performance Bonus",
		Type:         payroll.ComponentBonus,
		Calculation:  payroll.CalcFormula,
		Formula:      "GROSS_SO_FAR * 0.1",
		AppliesToAll: true,
		IsActive:     true,
	}
	catalog := scenarioCatalog(t, bonus)
	emp := employee("e1", 1_200_000)

	b, err := payroll.NewCalculator().Calculate(emp.BasicSalary, resolve(t, catalog, emp))

	require.NoError(t, err)
	l, ok := b.Line("ZBONUS")
	require.True(t, ok)
	assert.Equal(t, money.Amount(143_000), l.Amount)
	assert.Equal(t, money.Amount(1_573_000), b.GrossSalary)
}

func TestCalculator_OverrideReplacesFormula(t *testing.T) {
	bonus := payroll.ComponentDefinition{
		Code:        "BONUS",
		Name:        "Bonus",
		Type:        payroll.ComponentBonus,
		Calculation: payroll.CalcFormula,
		Formula:     "BASIC * 0.5",
		IsActive:    true,
	}
	catalog := scenarioCatalog(t, bonus)
	emp := employee("e1", 1_000_000)
	emp.Assignments = []payroll.Assignment{
		{ID: "a1", ComponentCode: "BONUS", OverrideAmount: amountPtr(12_345), EffectiveFrom: date(2024, time.January, 1), Active: true},
	}

	b, err := payroll.NewCalculator().Calculate(emp.BasicSalary, resolve(t, catalog, emp))

	require.NoError(t, err)
	l, _ := b.Line("BONUS")
	assert.Equal(t, money.Amount(12_345), l.Amount)
	assert.Equal(t, payroll.SourceOverride, l.Source)
}

func TestCalculator_NegativeFormulaRejected(t *testing.T) {
	clawback := payroll.ComponentDefinition{
		Code:         "CLAWBACK",
		Name:         "Clawback",
		Type:         payroll.ComponentDeduction,
		Calculation:  payroll.CalcFormula,
		Formula:      "BASIC - 2000000",
		AppliesToAll: true,
		IsActive:     true,
	}
	catalog := scenarioCatalog(t, clawback)
	emp := employee("e1", 1_200_000)

	_, err := payroll.NewCalculator().Calculate(emp.BasicSalary, resolve(t, catalog, emp))

	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrNegativeResult)
	var cerr *payroll.CalculationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, payroll.ComponentCode("CLAWBACK"), cerr.ComponentCode)
}

func TestCalculator_BasicMustBePositive(t *testing.T) {
	for _, basic := range []money.Amount{0, -1} {
		_, err := payroll.NewCalculator().Calculate(basic, nil)
		assert.ErrorIs(t, err, payroll.ErrValidation)
	}
}

func TestCalculator_OverflowingFormulaRejected(t *testing.T) {
	// GIVEN: A bonus formula whose result (1.2e26) exceeds int64 minor units
	// WHEN: Calculating
	// THEN: The line fails as a formula error instead of wrapping

	jackpot := payroll.ComponentDefinition{
		Code:         "JACKPOT",
		Name:         "Jackpot",
		Type:         payroll.ComponentBonus,
		Calculation:  payroll.CalcFormula,
		Formula:      "BASIC * 100000000000000000000",
		AppliesToAll: true,
		IsActive:     true,
	}
	catalog := scenarioCatalog(t, jackpot)
	emp := employee("e1", 1_200_000)

	_, err := payroll.NewCalculator().Calculate(emp.BasicSalary, resolve(t, catalog, emp))

	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrFormulaEvaluation)
	var ferr *payroll.FormulaError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, payroll.FormulaNonFinite, ferr.Reason)
}
