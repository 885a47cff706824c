/*
calculator.go - Applies resolved components to a basic salary

PURPOSE:
  Turns (basic salary, resolved components) into a SalaryBreakdown:
  one line per component plus totals. Pure and safe for concurrent use.

LINE RULES:
  fixed:      override-or-default amount
  percentage: basic * pct / 100, rounded half-up to minor units
  formula:    FormulaEngine over {BASIC, GROSS_SO_FAR}; an override
              amount on the assignment replaces the formula

  GROSS_SO_FAR is basic plus the non-deduction lines already computed,
  excluding the current line.

TOTALS:
  TotalAllowances = Σ non-deduction lines (earnings, allowances, bonuses)
  GrossSalary     = BasicSalary + TotalAllowances
  TotalDeductions = Σ deduction lines
  NetSalary       = GrossSalary - TotalDeductions
  TaxableGross    = BasicSalary + Σ taxable non-deduction lines

  Every line amount is >= 0. Direction comes from the component type
  (Sign = -1 for deductions), never from a negative amount.

EXAMPLE:
  calc := payroll.NewCalculator()
  breakdown, err := calc.Calculate(1_200_000, resolved)
  // breakdown.NetSalary == breakdown.GrossSalary - breakdown.TotalDeductions

SEE ALSO:
  - resolver.go: Produces the resolved list
  - formula.go: Formula compilation and evaluation
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// LineItem is one computed component on a payslip.
type LineItem struct {
	Code        ComponentCode    `json:"code"`
	Name        string           `json:"name"`
	Type        ComponentType    `json:"type"`
	Calculation CalculationType  `json:"calculation"`
	Amount      money.Amount     `json:"amount"`
	Sign        int              `json:"sign"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	Taxable     bool             `json:"taxable"`
	Source      ValueSource      `json:"source"`
	Frequency   Frequency        `json:"frequency"`
}

// SignedAmount is the line's contribution to net pay.
func (l LineItem) SignedAmount() money.Amount {
	return money.Amount(int64(l.Amount) * int64(l.Sign))
}

type SalaryBreakdown struct {
	BasicSalary     money.Amount `json:"basic_salary"`
	Lines           []LineItem   `json:"lines"`
	TotalAllowances money.Amount `json:"total_allowances"`
	TotalDeductions money.Amount `json:"total_deductions"`
	GrossSalary     money.Amount `json:"gross_salary"`
	NetSalary       money.Amount `json:"net_salary"`
	TaxableGross    money.Amount `json:"taxable_gross"`
}

// Line returns the line for code, if present.
func (b SalaryBreakdown) Line(code ComponentCode) (LineItem, bool) {
	for _, l := range b.Lines {
		if l.Code == code {
			return l, true
		}
	}
	return LineItem{}, false
}

type Calculator struct {
	Formulas *FormulaEngine
}

// NewCalculator returns a calculator sharing the package formula cache.
func NewCalculator() *Calculator {
	return &Calculator{Formulas: defaultFormulas}
}

// Calculate computes the breakdown. Components are evaluated in the given
// order; use SortResolved (or Resolver output) for the canonical order.
func (c *Calculator) Calculate(basic money.Amount, components []ResolvedComponent) (SalaryBreakdown, error) {
	if !basic.IsPositive() {
		return SalaryBreakdown{}, &ValidationError{Field: "basic_salary", Message: "must be greater than zero"}
	}
	formulas := c.Formulas
	if formulas == nil {
		formulas = defaultFormulas
	}

	b := SalaryBreakdown{
		BasicSalary:  basic,
		Lines:        make([]LineItem, 0, len(components)),
		TaxableGross: basic,
	}
	grossSoFar := basic

	for _, rc := range components {
		def := rc.Definition
		line := LineItem{
			Code:        def.Code,
			Name:        def.Name,
			Type:        def.Type,
			Calculation: def.Calculation,
			Sign:        1,
			Taxable:     def.IsTaxable,
			Source:      rc.Source,
			Frequency:   def.Frequency,
		}
		if def.Type.IsDeduction() {
			line.Sign = -1
		}

		switch {
		case def.Calculation == CalcPercentage:
			pct := rc.Percentage
			line.Percentage = &pct
			line.Amount = money.Percent(basic, pct)
		case def.Calculation == CalcFormula && !rc.Overridden:
			amount, err := formulas.Evaluate(def.Formula, FormulaInputs{Basic: basic, GrossSoFar: grossSoFar})
			if err != nil {
				return SalaryBreakdown{}, &CalculationError{ComponentCode: def.Code, Err: err}
			}
			line.Amount = amount
		default:
			line.Amount = rc.Amount
		}

		if line.Amount.IsNegative() {
			return SalaryBreakdown{}, &CalculationError{ComponentCode: def.Code, Err: ErrNegativeResult}
		}

		if def.Type.IsDeduction() {
			b.TotalDeductions += line.Amount
		} else {
			b.TotalAllowances += line.Amount
			grossSoFar += line.Amount
			if line.Taxable {
				b.TaxableGross += line.Amount
			}
		}
		b.Lines = append(b.Lines, line)
	}

	b.GrossSalary = basic + b.TotalAllowances
	b.NetSalary = b.GrossSalary - b.TotalDeductions
	return b, nil
}
