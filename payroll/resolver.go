/*
resolver.go - Determines which components apply to an employee

PURPOSE:
  Given an employee (with their assignments), the catalog and an as-of
  date, produce the ordered list of components to calculate, each with
  its effective amount or percentage and where that value came from.

ALGORITHM:
  1. Validate every assignment: the code must exist in the catalog and
     the window must be well-formed (even for assignments not in effect).
  2. Start with catalog definitions where AppliesToAll && IsActive.
  3. Add definitions with an assignment active at asOf. An assignment
     replaces the catalog default for that code (one entry per code).
  4. Drop definitions where IsActive=false.
  5. Drop applies-to-all defaults the employee opted out of (inactive
     assignment covering asOf), unless the definition is mandatory.
  6. Drop components not due this month per their frequency.
  7. Order: earnings, then allowances/bonuses, then deductions; code
     breaks ties.

ORDER AND THE MATH:
  Percentage components always resolve against basic salary, never a
  running total, so the order only matters for display and for formulas
  that read GROSS_SO_FAR.

FREQUENCY:
  The anchor is the assignment's effective date, or January of the as-of
  year for catalog defaults.
    monthly   - every month
    quarterly - every third month from the anchor month
    annually  - the anchor month
    one_time  - the anchor's month only

SEE ALSO:
  - assignment.go: Window semantics
  - calculator.go: Consumes the resolved list
*/
package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// Employee is the snapshot of an employee needed to compute pay.
type Employee struct {
	ID          EmployeeID
	Name        string
	Department  string
	BasicSalary money.Amount
	BankAccount string
	Assignments []Assignment
}

func (e Employee) HasBankDetails() bool { return e.BankAccount != "" }

// ValueSource records where a resolved value came from.
type ValueSource string

const (
	SourceDefault    ValueSource = "default"    // catalog default, applies to all
	SourceAssignment ValueSource = "assignment" // assigned, catalog value
	SourceOverride   ValueSource = "override"   // assigned with an override value
)

// ResolvedComponent is a definition with its effective value for one employee.
type ResolvedComponent struct {
	Definition ComponentDefinition
	Amount     money.Amount    // effective amount for fixed (and formula overrides)
	Percentage decimal.Decimal // effective percentage for percentage
	Source     ValueSource

	// Overridden is true when an assignment supplied a fixed amount that
	// replaces formula evaluation.
	Overridden bool
}

// Resolver resolves components against a catalog. The zero value has no
// catalog and resolves nothing.
type Resolver struct {
	Catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{Catalog: catalog}
}

// Resolve returns the ordered components that apply to emp at asOf.
func (r *Resolver) Resolve(emp Employee, asOf time.Time) ([]ResolvedComponent, error) {
	active := make(map[ComponentCode]Assignment)
	optedOut := make(map[ComponentCode]bool)

	for _, a := range emp.Assignments {
		if a.EmployeeID == "" {
			a.EmployeeID = emp.ID
		}
		if _, ok := r.Catalog.Lookup(a.ComponentCode); !ok {
			return nil, &ResolutionError{
				EmployeeID:    emp.ID,
				ComponentCode: a.ComponentCode,
				AssignmentID:  a.ID,
				Err:           ErrUnknownComponent,
			}
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if !a.Covers(asOf) {
			continue
		}
		if !a.Active {
			optedOut[a.ComponentCode] = true
			continue
		}
		if prev, dup := active[a.ComponentCode]; dup {
			return nil, &ResolutionError{
				EmployeeID:    emp.ID,
				ComponentCode: a.ComponentCode,
				AssignmentID:  prev.ID + "," + a.ID,
				Err:           ErrOverlappingAssignment,
			}
		}
		active[a.ComponentCode] = a
	}

	var resolved []ResolvedComponent
	yearAnchor := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	for _, def := range r.Catalog.Definitions() {
		if !def.IsActive {
			continue
		}

		if a, ok := active[def.Code]; ok {
			if !dueIn(def.Frequency, a.EffectiveFrom, asOf) {
				continue
			}
			resolved = append(resolved, fromAssignment(def, a))
			continue
		}

		if !def.AppliesToAll {
			continue
		}
		if optedOut[def.Code] && !def.IsMandatory {
			continue
		}
		if !dueIn(def.Frequency, yearAnchor, asOf) {
			continue
		}
		resolved = append(resolved, ResolvedComponent{
			Definition: def,
			Amount:     def.DefaultAmount,
			Percentage: def.DefaultPercentage,
			Source:     SourceDefault,
		})
	}

	SortResolved(resolved)
	return resolved, nil
}

func fromAssignment(def ComponentDefinition, a Assignment) ResolvedComponent {
	rc := ResolvedComponent{
		Definition: def,
		Amount:     def.DefaultAmount,
		Percentage: def.DefaultPercentage,
		Source:     SourceAssignment,
	}
	if a.OverrideAmount != nil && def.Calculation != CalcPercentage {
		rc.Amount = *a.OverrideAmount
		rc.Source = SourceOverride
		rc.Overridden = def.Calculation == CalcFormula
	}
	if a.OverridePercentage != nil && def.Calculation == CalcPercentage {
		rc.Percentage = *a.OverridePercentage
		rc.Source = SourceOverride
	}
	return rc
}

// SortResolved orders components for calculation and display.
func SortResolved(rcs []ResolvedComponent) {
	sort.SliceStable(rcs, func(i, j int) bool {
		ri, rj := rcs[i].Definition.Type.rank(), rcs[j].Definition.Type.rank()
		if ri != rj {
			return ri < rj
		}
		return rcs[i].Definition.Code < rcs[j].Definition.Code
	})
}

func dueIn(f Frequency, anchor, asOf time.Time) bool {
	m := monthsBetween(dateOf(anchor), dateOf(asOf))
	if m < 0 {
		return false
	}
	switch f {
	case FrequencyQuarterly:
		return m%3 == 0
	case FrequencyAnnually:
		return m%12 == 0
	case FrequencyOneTime:
		return m == 0
	default:
		return true
	}
}
