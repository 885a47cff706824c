/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Component and
  assignment bodies reuse the factory JSON schema so that the admin UI,
  seed files and the components.config_json column share one format.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every amount is an integer in minor units (cents), both ways.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/component.go: ComponentJSON, AssignmentJSON
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Department  string                   `json:"department"`
	BasicSalary int64                    `json:"basic_salary"`
	BankAccount string                   `json:"bank_account,omitempty"`
	Assignments []factory.AssignmentJSON `json:"assignments,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	BasicSalary int64  `json:"basic_salary"`
	BankAccount string `json:"bank_account"`
}

// AttendanceRequest records attendance for one employee and period.
type AttendanceRequest struct {
	AttendanceDays int              `json:"attendance_days"`
	LeaveDays      int              `json:"leave_days"`
	OvertimeHours  *decimal.Decimal `json:"overtime_hours,omitempty"`
	OvertimeRate   int64            `json:"overtime_rate"`
}

// AttendanceDTO is the stored attendance.
type AttendanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Period     string `json:"period"`
	AttendanceRequest
}

// =============================================================================
// CALCULATION PREVIEW
// =============================================================================

// CalculateRequest previews one employee's pay. Either EmployeeID names a
// stored employee (with stored assignments and attendance), or the
// employee is given inline.
type CalculateRequest struct {
	Period     string `json:"period,omitempty"` // YYYY-MM, default current month
	EmployeeID string `json:"employee_id,omitempty"`

	Name        string                   `json:"name,omitempty"`
	Department  string                   `json:"department,omitempty"`
	BasicSalary int64                    `json:"basic_salary,omitempty"`
	Assignments []factory.AssignmentJSON `json:"assignments,omitempty"`
	*AttendanceRequest
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodDTO is a period plus the events its state accepts.
type PeriodDTO struct {
	*payroll.Period
	AllowedEvents []payroll.EventType `json:"allowed_events"`
}

func toPeriodDTO(p *payroll.Period) PeriodDTO {
	return PeriodDTO{Period: p, AllowedEvents: payroll.AllowedEvents(p.State)}
}

// OpenPeriodRequest opens the period for a year-month.
type OpenPeriodRequest struct {
	Period string `json:"period"` // YYYY-MM
}

// SelectEmployeesRequest picks the batch. All selects every stored employee.
type SelectEmployeesRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
	All         bool     `json:"all"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// ASSETS
// =============================================================================

// AssetRequest creates or replaces an asset.
type AssetRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	PurchaseCost    int64  `json:"purchase_cost"`
	SalvageValue    int64  `json:"salvage_value"`
	UsefulLifeYears int    `json:"useful_life_years"`
	PurchaseDate    string `json:"purchase_date"` // YYYY-MM-DD
	Method          string `json:"method,omitempty"`
}

// AssetDTO is an asset with its depreciation as of today.
type AssetDTO struct {
	depreciation.Asset
	Depreciation *depreciation.Result `json:"depreciation,omitempty"`
}

// ScheduleDTO is the year-by-year plan for an asset.
type ScheduleDTO struct {
	AssetID string                     `json:"asset_id"`
	Method  string                     `json:"method"`
	Rows    []depreciation.ScheduleRow `json:"rows"`
}

// =============================================================================
// SCENARIOS + ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
