/*
aggregator.go - Runs the calculator across a payroll batch

PURPOSE:
  For each selected employee: resolve components, add overtime, calculate
  the breakdown, and produce an EmployeePayrollRecord. Then roll the
  successful records up into a PayrollSummary with statutory sub-totals
  and per-department totals.

PARTIAL FAILURE POLICY:
  One employee's failure never aborts the batch. The record gets
  Status=error with the reason, the summary only counts successful
  records, and ErrorCount reports how many failed. BatchResult.Failure
  carries the detail as an *AggregationPartialFailure (nil when clean).

DETERMINISM:
  Same inputs, same output. Records keep input order; statutory totals
  follow rule order; departments are sorted by name. No clocks, no maps
  in output.

OVERTIME:
  overtimeAmount = round_half_up(hours * hourly rate), added as a taxable
  OVERTIME earning line so it flows through gross and net like any other
  earning.

SEE ALSO:
  - calculator.go: Per-employee computation
  - workflow.go: Calculate event invokes Run
*/
package payroll

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// OvertimeCode is the line code used for overtime pay.
const OvertimeCode ComponentCode = "OVERTIME"

// EmployeeInput is everything the batch needs about one employee.
type EmployeeInput struct {
	Employee       Employee
	AttendanceDays int
	LeaveDays      int
	OvertimeHours  decimal.Decimal
	OvertimeRate   money.Amount // per hour
}

// =============================================================================
// RECORDS
// =============================================================================

type RecordStatus string

const (
	RecordPending    RecordStatus = "pending"
	RecordCalculated RecordStatus = "calculated"
	RecordProcessed  RecordStatus = "processed"
	RecordError      RecordStatus = "error"
)

// Succeeded reports whether the record has a usable breakdown.
func (s RecordStatus) Succeeded() bool {
	return s == RecordCalculated || s == RecordProcessed
}

type EmployeePayrollRecord struct {
	EmployeeID     EmployeeID       `json:"employee_id"`
	EmployeeName   string           `json:"employee_name"`
	Department     string           `json:"department"`
	AttendanceDays int              `json:"attendance_days"`
	LeaveDays      int              `json:"leave_days"`
	OvertimeHours  decimal.Decimal  `json:"overtime_hours"`
	OvertimeAmount money.Amount     `json:"overtime_amount"`
	Breakdown      *SalaryBreakdown `json:"breakdown,omitempty"`
	HasBankDetails bool             `json:"has_bank_details"`
	Status         RecordStatus     `json:"status"`
	ErrorCode      string           `json:"error_code,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// StatutoryRule names a group of component codes to sub-total, e.g.
// {Name: "tax", Codes: ["PAYE"]}.
type StatutoryRule struct {
	Name  string
	Codes []ComponentCode
}

type StatutoryTotal struct {
	Name   string       `json:"name"`
	Amount money.Amount `json:"amount"`
}

type DepartmentTotal struct {
	Department      string       `json:"department"`
	Employees       int          `json:"employees"`
	TotalGross      money.Amount `json:"total_gross"`
	TotalDeductions money.Amount `json:"total_deductions"`
	TotalNet        money.Amount `json:"total_net"`
}

type PayrollSummary struct {
	TotalEmployees     int               `json:"total_employees"`
	ProcessedEmployees int               `json:"processed_employees"`
	ErrorCount         int               `json:"error_count"`
	TotalGross         money.Amount      `json:"total_gross"`
	TotalDeductions    money.Amount      `json:"total_deductions"`
	TotalNet           money.Amount      `json:"total_net"`
	Statutory          []StatutoryTotal  `json:"statutory"`
	Departments        []DepartmentTotal `json:"departments"`
}

// StatutoryTotal returns the named sub-total, zero if absent.
func (s PayrollSummary) StatutoryTotal(name string) money.Amount {
	for _, st := range s.Statutory {
		if st.Name == name {
			return st.Amount
		}
	}
	return 0
}

// BatchResult is the output of one aggregation run.
type BatchResult struct {
	Records []EmployeePayrollRecord
	Summary PayrollSummary
	Failure *AggregationPartialFailure // nil when every employee succeeded
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	Resolver   *Resolver
	Calculator *Calculator
	Statutory  []StatutoryRule
}

func NewAggregator(catalog *Catalog, statutory []StatutoryRule) *Aggregator {
	return &Aggregator{
		Resolver:   NewResolver(catalog),
		Calculator: NewCalculator(),
		Statutory:  statutory,
	}
}

// Run calculates every input as of the last day of the period month.
func (a *Aggregator) Run(periodID PeriodID, key PeriodKey, inputs []EmployeeInput) BatchResult {
	asOf := key.End()
	records := make([]EmployeePayrollRecord, 0, len(inputs))
	var failures []EmployeeFailure
	seen := make(map[EmployeeID]bool, len(inputs))

	for _, in := range inputs {
		var (
			rec EmployeePayrollRecord
			err error
		)
		if seen[in.Employee.ID] {
			rec = baseRecord(in)
			err = &ValidationError{Field: "employee_id", Message: "appears more than once in batch", EmployeeID: in.Employee.ID}
		} else {
			rec, err = a.CalculateEmployee(in, asOf)
		}
		seen[in.Employee.ID] = true

		if err != nil {
			rec.Status = RecordError
			rec.ErrorCode = ErrorCode(err)
			rec.Error = err.Error()
			rec.Breakdown = nil
			failures = append(failures, EmployeeFailure{EmployeeID: in.Employee.ID, Code: ErrorCode(err), Err: err})
		}
		records = append(records, rec)
	}

	result := BatchResult{
		Records: records,
		Summary: Summarize(records, a.Statutory),
	}
	if len(failures) > 0 {
		result.Failure = &AggregationPartialFailure{PeriodID: periodID, Total: len(inputs), Failures: failures}
	}
	return result
}

// RunSelection runs the batch for selection in selection order. Inputs
// for unselected employees are ignored; selected employees without an
// input get an ErrEmployeeNotFound error record.
func (a *Aggregator) RunSelection(periodID PeriodID, key PeriodKey, selection []EmployeeID, inputs []EmployeeInput) BatchResult {
	byID := make(map[EmployeeID]EmployeeInput, len(inputs))
	for _, in := range inputs {
		if _, dup := byID[in.Employee.ID]; !dup {
			byID[in.Employee.ID] = in
		}
	}

	ordered := make([]EmployeeInput, 0, len(selection))
	missing := make(map[EmployeeID]bool)
	for _, id := range selection {
		in, ok := byID[id]
		if !ok {
			missing[id] = true
			in = EmployeeInput{Employee: Employee{ID: id}}
		}
		ordered = append(ordered, in)
	}
	if len(missing) == 0 {
		return a.Run(periodID, key, ordered)
	}

	// Calculate the found employees, then splice not-found records back
	// in at their selection position.
	found := make([]EmployeeInput, 0, len(ordered)-len(missing))
	for _, in := range ordered {
		if !missing[in.Employee.ID] {
			found = append(found, in)
		}
	}
	partial := a.Run(periodID, key, found)

	records := make([]EmployeePayrollRecord, 0, len(ordered))
	var failures []EmployeeFailure
	next := 0
	for _, in := range ordered {
		if missing[in.Employee.ID] {
			err := fmt.Errorf("employee %s: %w", in.Employee.ID, ErrEmployeeNotFound)
			rec := baseRecord(in)
			rec.Status = RecordError
			rec.ErrorCode = ErrorCode(err)
			rec.Error = err.Error()
			records = append(records, rec)
			failures = append(failures, EmployeeFailure{EmployeeID: in.Employee.ID, Code: ErrorCode(err), Err: err})
			continue
		}
		rec := partial.Records[next]
		next++
		if rec.Status == RecordError && partial.Failure != nil {
			for _, f := range partial.Failure.Failures {
				if f.EmployeeID == rec.EmployeeID {
					failures = append(failures, f)
					break
				}
			}
		}
		records = append(records, rec)
	}

	return BatchResult{
		Records: records,
		Summary: Summarize(records, a.Statutory),
		Failure: &AggregationPartialFailure{PeriodID: periodID, Total: len(ordered), Failures: failures},
	}
}

// CalculateEmployee computes one record. Errors carry the employee id.
func (a *Aggregator) CalculateEmployee(in EmployeeInput, asOf time.Time) (EmployeePayrollRecord, error) {
	rec := baseRecord(in)
	emp := in.Employee

	if in.AttendanceDays < 0 || in.LeaveDays < 0 {
		return rec, &ValidationError{Field: "attendance", Message: "days must not be negative", EmployeeID: emp.ID}
	}
	if in.OvertimeHours.IsNegative() || in.OvertimeRate.IsNegative() {
		return rec, &ValidationError{Field: "overtime", Message: "must not be negative", EmployeeID: emp.ID}
	}

	components, err := a.Resolver.Resolve(emp, asOf)
	if err != nil {
		return rec, withEmployee(err, emp.ID)
	}

	if in.OvertimeHours.IsPositive() && in.OvertimeRate.IsPositive() {
		rec.OvertimeAmount = in.OvertimeRate.MulDecimal(in.OvertimeHours)
		components = append(components, overtimeComponent(rec.OvertimeAmount))
		SortResolved(components)
	}

	breakdown, err := a.Calculator.Calculate(emp.BasicSalary, components)
	if err != nil {
		return rec, withEmployee(err, emp.ID)
	}

	rec.Breakdown = &breakdown
	rec.Status = RecordCalculated
	return rec, nil
}

func baseRecord(in EmployeeInput) EmployeePayrollRecord {
	return EmployeePayrollRecord{
		EmployeeID:     in.Employee.ID,
		EmployeeName:   in.Employee.Name,
		Department:     in.Employee.Department,
		AttendanceDays: in.AttendanceDays,
		LeaveDays:      in.LeaveDays,
		OvertimeHours:  in.OvertimeHours,
		HasBankDetails: in.Employee.HasBankDetails(),
		Status:         RecordPending,
	}
}

func overtimeComponent(amount money.Amount) ResolvedComponent {
	return ResolvedComponent{
		Definition: ComponentDefinition{
			Code:        OvertimeCode,
			Name:        "Overtime",
			Type:        ComponentEarning,
			Calculation: CalcFixed,
			IsTaxable:   true,
			Frequency:   FrequencyMonthly,
			IsActive:    true,
		},
		Amount: amount,
		Source: SourceAssignment,
	}
}

func withEmployee(err error, id EmployeeID) error {
	var (
		verr *ValidationError
		cerr *CalculationError
	)
	switch {
	case errors.As(err, &verr) && verr.EmployeeID == "":
		verr.EmployeeID = id
	case errors.As(err, &cerr) && cerr.EmployeeID == "":
		cerr.EmployeeID = id
	}
	return err
}

// Summarize rolls successful records into a summary.
func Summarize(records []EmployeePayrollRecord, statutory []StatutoryRule) PayrollSummary {
	s := PayrollSummary{
		TotalEmployees: len(records),
		Statutory:      make([]StatutoryTotal, len(statutory)),
		Departments:    []DepartmentTotal{},
	}
	for i, rule := range statutory {
		s.Statutory[i].Name = rule.Name
	}
	departments := make(map[string]*DepartmentTotal)

	for _, rec := range records {
		if rec.Status == RecordError {
			s.ErrorCount++
			continue
		}
		if !rec.Status.Succeeded() || rec.Breakdown == nil {
			continue
		}
		b := rec.Breakdown
		s.ProcessedEmployees++
		s.TotalGross += b.GrossSalary
		s.TotalDeductions += b.TotalDeductions
		s.TotalNet += b.NetSalary

		for i, rule := range statutory {
			for _, code := range rule.Codes {
				if line, ok := b.Line(code); ok {
					s.Statutory[i].Amount += line.Amount
				}
			}
		}

		dt, ok := departments[rec.Department]
		if !ok {
			dt = &DepartmentTotal{Department: rec.Department}
			departments[rec.Department] = dt
		}
		dt.Employees++
		dt.TotalGross += b.GrossSalary
		dt.TotalDeductions += b.TotalDeductions
		dt.TotalNet += b.NetSalary
	}

	for _, dt := range departments {
		s.Departments = append(s.Departments, *dt)
	}
	sort.Slice(s.Departments, func(i, j int) bool {
		return s.Departments[i].Department < s.Departments[j].Department
	})
	return s
}
