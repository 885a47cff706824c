/*
component.go - Salary component definitions and the component catalog

PURPOSE:
  A ComponentDefinition is a declarative salary rule: what kind of line it
  produces (earning, allowance, bonus, deduction), how its amount is
  derived (fixed, percentage of basic, formula), and who it applies to.
  The Catalog is the validated set of definitions for an organisation,
  independent of any employee.

CALCULATION TYPES:
  fixed:      DefaultAmount is authoritative
  percentage: DefaultPercentage (0-100) of basic salary is authoritative
  formula:    Formula over BASIC and GROSS_SO_FAR is authoritative

VALIDATION:
  Definitions only exist in validated form: NewComponentDefinition and
  NewCatalog reject out-of-range percentages, negative amounts, missing
  formulas, unknown enum values and duplicate codes. Formulas are compiled
  (and cached) at construction so a bad expression never reaches a run.

EXAMPLE:
  housing, err := payroll.NewComponentDefinition(payroll.ComponentDefinition{
      Code:              "HOUSING",
      Name:              "Housing Allowance",
      Type:              payroll.ComponentAllowance,
      Calculation:       payroll.CalcPercentage,
      DefaultPercentage: decimal.NewFromInt(15),
      AppliesToAll:      true,
      IsActive:          true,
  })
  catalog, err := payroll.NewCatalog(housing, transport, paye)

SEE ALSO:
  - resolver.go: Picks definitions for an employee
  - factory/component.go: JSON definitions
*/
package payroll

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// =============================================================================
// ENUMS
// =============================================================================

type ComponentType string

const (
	ComponentEarning   ComponentType = "earning"
	ComponentAllowance ComponentType = "allowance"
	ComponentDeduction ComponentType = "deduction"
	ComponentBonus     ComponentType = "bonus"
)

func (t ComponentType) Valid() bool {
	switch t {
	case ComponentEarning, ComponentAllowance, ComponentDeduction, ComponentBonus:
		return true
	}
	return false
}

func (t ComponentType) IsDeduction() bool { return t == ComponentDeduction }

// rank orders lines: earnings, then allowances and bonuses, then deductions.
func (t ComponentType) rank() int {
	switch t {
	case ComponentEarning:
		return 0
	case ComponentAllowance, ComponentBonus:
		return 1
	default:
		return 2
	}
}

type CalculationType string

const (
	CalcFixed      CalculationType = "fixed"
	CalcPercentage CalculationType = "percentage"
	CalcFormula    CalculationType = "formula"
)

func (c CalculationType) Valid() bool {
	switch c {
	case CalcFixed, CalcPercentage, CalcFormula:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
	FrequencyOneTime   Frequency = "one_time"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually, FrequencyOneTime:
		return true
	}
	return false
}

// =============================================================================
// COMPONENT DEFINITION
// =============================================================================

type ComponentDefinition struct {
	Code        ComponentCode
	Name        string
	Type        ComponentType
	Calculation CalculationType

	DefaultAmount     money.Amount    // fixed
	DefaultPercentage decimal.Decimal // percentage, 0-100
	Formula           string          // formula

	IsTaxable    bool
	IsMandatory  bool
	AppliesToAll bool
	Frequency    Frequency
	IsActive     bool
}

var maxPercentage = decimal.NewFromInt(100)

// NewComponentDefinition validates d and returns it normalized: codes are
// upper-cased, frequency defaults to monthly, whitespace is trimmed from
// the formula.
func NewComponentDefinition(d ComponentDefinition) (ComponentDefinition, error) {
	d.Code = ComponentCode(strings.ToUpper(strings.TrimSpace(string(d.Code))))
	d.Name = strings.TrimSpace(d.Name)
	d.Formula = strings.TrimSpace(d.Formula)
	if d.Frequency == "" {
		d.Frequency = FrequencyMonthly
	}
	if err := d.Validate(); err != nil {
		return ComponentDefinition{}, err
	}
	return d, nil
}

// Validate checks the definition invariants.
func (d ComponentDefinition) Validate() error {
	invalid := func(field, msg string) error {
		return &ValidationError{Field: field, Message: msg, ComponentCode: d.Code}
	}

	if d.Code == "" {
		return invalid("code", "is required")
	}
	if d.Code == OvertimeCode {
		return invalid("code", "is reserved for the overtime line")
	}
	if d.Name == "" {
		return invalid("name", "is required")
	}
	if !d.Type.Valid() {
		return invalid("component_type", "must be earning, allowance, deduction or bonus")
	}
	if !d.Calculation.Valid() {
		return invalid("calculation_type", "must be fixed, percentage or formula")
	}
	if !d.Frequency.Valid() {
		return invalid("frequency", "must be monthly, quarterly, annually or one_time")
	}
	if d.DefaultAmount.IsNegative() {
		return invalid("default_amount", "must not be negative")
	}
	if d.DefaultPercentage.IsNegative() || d.DefaultPercentage.GreaterThan(maxPercentage) {
		return invalid("default_percentage", "must be between 0 and 100")
	}
	if d.Frequency == FrequencyOneTime && d.AppliesToAll {
		return invalid("frequency", "one_time components must be assigned, not applied to all")
	}

	switch d.Calculation {
	case CalcFormula:
		if d.Formula == "" {
			return invalid("formula", "is required for formula components")
		}
		if _, err := defaultFormulas.Compile(d.Formula); err != nil {
			return &CalculationError{ComponentCode: d.Code, Err: err}
		}
	case CalcFixed, CalcPercentage:
		if d.Formula != "" {
			return invalid("formula", "is only allowed for formula components")
		}
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an immutable, validated set of component definitions.
type Catalog struct {
	defs  map[ComponentCode]ComponentDefinition
	codes []ComponentCode // sorted
}

// NewCatalog validates every definition and rejects duplicate codes.
func NewCatalog(defs ...ComponentDefinition) (*Catalog, error) {
	c := &Catalog{defs: make(map[ComponentCode]ComponentDefinition, len(defs))}
	for _, d := range defs {
		nd, err := NewComponentDefinition(d)
		if err != nil {
			return nil, err
		}
		if _, exists := c.defs[nd.Code]; exists {
			return nil, &ValidationError{Field: "code", Message: "is duplicated in catalog", ComponentCode: nd.Code}
		}
		c.defs[nd.Code] = nd
		c.codes = append(c.codes, nd.Code)
	}
	sort.Slice(c.codes, func(i, j int) bool { return c.codes[i] < c.codes[j] })
	return c, nil
}

// Lookup returns the definition for code.
func (c *Catalog) Lookup(code ComponentCode) (ComponentDefinition, bool) {
	if c == nil {
		return ComponentDefinition{}, false
	}
	d, ok := c.defs[code]
	return d, ok
}

// Definitions returns all definitions ordered by code.
func (c *Catalog) Definitions() []ComponentDefinition {
	if c == nil {
		return nil
	}
	out := make([]ComponentDefinition, 0, len(c.codes))
	for _, code := range c.codes {
		out = append(out, c.defs[code])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.codes)
}
