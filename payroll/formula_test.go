package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

func TestFormulaEngine_Evaluate(t *testing.T) {
	engine := payroll.NewFormulaEngine()
	in := payroll.FormulaInputs{Basic: 1_000_000, GrossSoFar: 1_200_000}

	tests := []struct {
		formula string
		want    money.Amount
	}{
		{"BASIC * 0.5", 500_000},
		{"(GROSS_SO_FAR - BASIC) / 2", 100_000},
		{"-BASIC + 1500000", 500_000},
		{"BASIC / 3", 333_333},
		{"2000 + 1000 * 2", 4_000},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := engine.Evaluate(tt.formula, in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormulaEngine_RoundsHalfUp(t *testing.T) {
	// GIVEN: A formula producing exactly .5 of a minor unit
	// WHEN: Evaluated
	// THEN: The result rounds away from zero

	engine := payroll.NewFormulaEngine()

	got, err := engine.Evaluate("BASIC / 8", payroll.FormulaInputs{Basic: 20})

	require.NoError(t, err)
	assert.Equal(t, money.Amount(3), got)
}

func TestFormulaEngine_Failures(t *testing.T) {
	engine := payroll.NewFormulaEngine()
	in := payroll.FormulaInputs{Basic: 1_000, GrossSoFar: 1_000}

	tests := []struct {
		formula string
		reason  payroll.FormulaFailure
	}{
		{"BASIC * (", payroll.FormulaMalformed},
		{"BASIC > 10", payroll.FormulaMalformed},
		{"BASIC % 7", payroll.FormulaMalformed},
		{"'text'", payroll.FormulaMalformed},
		{"NET * 2", payroll.FormulaUnknownIdentifier},
		{"BASIC / 0", payroll.FormulaDivisionByZero},
		{"(BASIC - BASIC) / (BASIC - BASIC)", payroll.FormulaNonFinite},
		{"BASIC * 100000000000000000000", payroll.FormulaNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			_, err := engine.Evaluate(tt.formula, in)

			require.Error(t, err)
			assert.ErrorIs(t, err, payroll.ErrFormulaEvaluation)
			var ferr *payroll.FormulaError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.reason, ferr.Reason)
		})
	}
}

func TestFormulaEngine_CachesCompiledExpressions(t *testing.T) {
	engine := payroll.NewFormulaEngine()

	_, err := engine.Compile("BASIC * 0.1")
	require.NoError(t, err)
	_, err = engine.Compile("BASIC * 0.1")
	require.NoError(t, err)
	_, err = engine.Compile("NOPE")
	require.Error(t, err)

	assert.Equal(t, 1, engine.Len(), "only valid formulas are cached, once each")
}
