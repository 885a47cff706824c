package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var march2024 = payroll.NewPeriodKey(2024, time.March)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amountPtr(a money.Amount) *money.Amount { return &a }

func pctPtr(p int64) *decimal.Decimal {
	d := decimal.NewFromInt(p)
	return &d
}

func housing() payroll.ComponentDefinition {
	return payroll.ComponentDefinition{
		Code:              "HOUSING",
		Name:              "Housing Allowance",
		Type:              payroll.ComponentAllowance,
		Calculation:       payroll.CalcPercentage,
		DefaultPercentage: decimal.NewFromInt(15),
		IsTaxable:         true,
		AppliesToAll:      true,
		IsActive:          true,
	}
}

func transport() payroll.ComponentDefinition {
	return payroll.ComponentDefinition{
		Code:          "TRANSPORT",
		Name:          "Transport Allowance",
		Type:          payroll.ComponentAllowance,
		Calculation:   payroll.CalcFixed,
		DefaultAmount: 50_000,
		AppliesToAll:  true,
		IsActive:      true,
	}
}

func paye() payroll.ComponentDefinition {
	return payroll.ComponentDefinition{
		Code:              "PAYE",
		Name:              "PAYE",
		Type:              payroll.ComponentDeduction,
		Calculation:       payroll.CalcPercentage,
		DefaultPercentage: decimal.NewFromInt(20),
		IsMandatory:       true,
		AppliesToAll:      true,
		IsActive:          true,
	}
}

// scenarioCatalog is HOUSING 15%, TRANSPORT 50,000 and PAYE 20%.
func scenarioCatalog(t *testing.T, extra ...payroll.ComponentDefinition) *payroll.Catalog {
	t.Helper()
	defs := append([]payroll.ComponentDefinition{housing(), transport(), paye()}, extra...)
	catalog, err := payroll.NewCatalog(defs...)
	require.NoError(t, err)
	return catalog
}

func employee(id string, basic money.Amount) payroll.Employee {
	return payroll.Employee{
		ID:          payroll.EmployeeID(id),
		Name:        "Employee " + id,
		Department:  "Engineering",
		BasicSalary: basic,
		BankAccount: "GB00-" + id,
	}
}

func input(emp payroll.Employee) payroll.EmployeeInput {
	return payroll.EmployeeInput{Employee: emp, AttendanceDays: 21, OvertimeHours: decimal.Zero}
}

var allowAll = payroll.AuthorityFunc(func(string, *payroll.Period) bool { return true })

func meta(actor string) payroll.EventMeta {
	return payroll.EventMeta{Actor: actor, At: date(2024, time.March, 28)}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
