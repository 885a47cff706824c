/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll service and stores.

ENDPOINTS:
  Components:
    GET    /api/components                 List catalog
    POST   /api/components                 Create component from JSON
    GET    /api/components/{code}          Get component
    PUT    /api/components/{code}          Replace component
    DELETE /api/components/{code}          Delete component

  Employees:
    GET    /api/employees                  List employees
    POST   /api/employees                  Create or update employee
    GET    /api/employees/{id}             Employee with assignments
    DELETE /api/employees/{id}             Delete employee
    GET    /api/employees/{id}/assignments List assignments
    POST   /api/employees/{id}/assignments Assign a component
    GET    /api/employees/{id}/attendance/{period}
    PUT    /api/employees/{id}/attendance/{period}
    DELETE /api/assignments/{id}           Remove an assignment

  Calculation:
    POST   /api/calculate                  Preview one employee, no period

  Periods (commands need the X-Actor-ID header):
    GET    /api/periods                    List periods, newest first
    POST   /api/periods                    Open a draft period
    GET    /api/periods/{id}               Period with records and summary
    GET    /api/periods/{id}/transitions   Audit trail
    POST   /api/periods/{id}/select        Select employees
    POST   /api/periods/{id}/calculate     Run the batch
    POST   /api/periods/{id}/approve       Approve
    POST   /api/periods/{id}/reject        Reject with reason
    POST   /api/periods/{id}/process       Process payment (idempotent)
    POST   /api/periods/{id}/finalize      Complete and lock
    GET    /api/periods/{id}/payslips/{employee}  Payslip PDF

  Assets:
    GET    /api/assets                     Assets with depreciation today
    POST   /api/assets                     Create asset
    GET    /api/assets/{id}                Asset with depreciation today
    DELETE /api/assets/{id}                Delete asset
    GET    /api/assets/{id}/depreciation   ?as_of=YYYY-MM-DD
    GET    /api/assets/{id}/schedule       Year-by-year schedule

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, failed guards
  - 403: Actor lacks approval authority
  - 404: Resource not found
  - 409: Illegal transition, locked period, duplicate, stale write
  - 500: Internal errors

SECURITY NOTE:
  X-Actor-ID is trusted as sent. Authentication belongs in front of
  this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
	"github.com/warp/payroll-engine/store/sqlite"
)

// ActorHeader identifies who performs a period command.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Service      *payroll.PeriodService
	Factory      *factory.ComponentFactory
	Depreciation *depreciation.Engine
	Payslip      report.PayslipOptions
	Logger       *slog.Logger
	Now          func() time.Time

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler over store and the period service.
func NewHandler(store *sqlite.Store, svc *payroll.PeriodService) *Handler {
	return &Handler{
		Store:        store,
		Service:      svc,
		Factory:      factory.NewComponentFactory(),
		Depreciation: depreciation.NewEngine(),
		Payslip:      report.PayslipOptions{Currency: "USD", Scale: 2},
		Logger:       slog.Default(),
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now()
}

// =============================================================================
// COMPONENT HANDLERS
// =============================================================================

// ListComponents returns the catalog in factory JSON form.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.ListComponents(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list components", err)
		return
	}

	dtos := make([]factory.ComponentJSON, len(defs))
	for i, def := range defs {
		dtos[i] = h.Factory.ToJSON(def)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetComponent(w http.ResponseWriter, r *http.Request) {
	def, err := h.Store.GetComponent(r.Context(), componentCode(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get component", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(def))
}

// CreateComponent validates a JSON definition and stores it.
func (h *Handler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var req factory.ComponentJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.saveComponent(w, r, req, http.StatusCreated)
}

// UpdateComponent replaces an existing definition. The path code wins.
func (h *Handler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	code := componentCode(r)
	if _, err := h.Store.GetComponent(r.Context(), code); err != nil {
		h.writeDomainError(w, "Failed to get component", err)
		return
	}

	var req factory.ComponentJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.Code = string(code)
	h.saveComponent(w, r, req, http.StatusOK)
}

func (h *Handler) saveComponent(w http.ResponseWriter, r *http.Request, req factory.ComponentJSON, status int) {
	def, err := h.Factory.FromJSON(req)
	if err != nil {
		h.writeDomainError(w, "Invalid component", err)
		return
	}
	if err := h.Store.SaveComponent(r.Context(), def); err != nil {
		h.writeDomainError(w, "Failed to save component", err)
		return
	}
	writeJSON(w, status, h.Factory.ToJSON(def))
}

func (h *Handler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteComponent(r.Context(), componentCode(r)); err != nil {
		h.writeDomainError(w, "Failed to delete component", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func componentCode(r *http.Request) payroll.ComponentCode {
	return payroll.ComponentCode(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code"))))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = h.toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee with assignments.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), employeeID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEmployeeDTO(emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp := payroll.Employee{
		ID:          payroll.EmployeeID(req.ID),
		Name:        req.Name,
		Department:  req.Department,
		BasicSalary: money.Amount(req.BasicSalary),
		BankAccount: req.BankAccount,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeDomainError(w, "Failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toEmployeeDTO(emp))
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteEmployee(r.Context(), employeeID(r)); err != nil {
		h.writeDomainError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssignments returns component assignments for an employee.
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Store.ListAssignments(r.Context(), employeeID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to list assignments", err)
		return
	}

	dtos := make([]factory.AssignmentJSON, len(assignments))
	for i, a := range assignments {
		dtos[i] = h.Factory.AssignmentToJSON(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAssignment assigns a component to the employee in the path. The
// component does not have to exist yet; an unknown code fails that
// employee's calculation, not the request.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req factory.AssignmentJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.EmployeeID = string(employeeID(r))

	a, err := h.Factory.AssignmentFromJSON(req)
	if err != nil {
		h.writeDomainError(w, "Invalid assignment", err)
		return
	}
	if err := h.Store.SaveAssignment(r.Context(), a); err != nil {
		h.writeDomainError(w, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.AssignmentToJSON(a))
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutAttendance records attendance and overtime for one period.
func (h *Handler) PutAttendance(w http.ResponseWriter, r *http.Request) {
	key, err := payroll.ParsePeriodKey(chi.URLParam(r, "period"))
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}
	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	att := payroll.Attendance{EmployeeID: employeeID(r), Period: key}
	applyAttendance(&att, req)
	if err := h.Store.SaveAttendance(r.Context(), att); err != nil {
		h.writeDomainError(w, "Failed to save attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(att))
}

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	key, err := payroll.ParsePeriodKey(chi.URLParam(r, "period"))
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}
	att, err := h.Store.GetAttendance(r.Context(), employeeID(r), key)
	if err != nil {
		h.writeDomainError(w, "Failed to get attendance", err)
		return
	}
	if att == nil {
		att = &payroll.Attendance{EmployeeID: employeeID(r), Period: key}
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*att))
}

func employeeID(r *http.Request) payroll.EmployeeID {
	return payroll.EmployeeID(chi.URLParam(r, "id"))
}

// =============================================================================
// CALCULATION PREVIEW
// =============================================================================

// Calculate previews one employee's breakdown for a period without
// creating or touching any payroll period.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	key, err := h.periodOrCurrent(req.Period)
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}

	in, err := h.previewInput(r.Context(), key, req)
	if err != nil {
		h.writeDomainError(w, "Invalid employee", err)
		return
	}

	rec, err := h.Service.Preview(r.Context(), key, in)
	if err != nil {
		h.writeDomainError(w, "Calculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) previewInput(ctx context.Context, key payroll.PeriodKey, req CalculateRequest) (payroll.EmployeeInput, error) {
	var in payroll.EmployeeInput
	if req.EmployeeID != "" {
		emp, err := h.Store.GetEmployee(ctx, payroll.EmployeeID(req.EmployeeID))
		if err != nil {
			return in, err
		}
		att, err := h.Store.GetAttendance(ctx, emp.ID, key)
		if err != nil {
			return in, err
		}
		in = att.ToInput(emp)
	} else {
		emp := payroll.Employee{
			ID:          "preview",
			Name:        req.Name,
			Department:  req.Department,
			BasicSalary: money.Amount(req.BasicSalary),
		}
		for _, aj := range req.Assignments {
			aj.EmployeeID = string(emp.ID)
			a, err := h.Factory.AssignmentFromJSON(aj)
			if err != nil {
				return in, err
			}
			emp.Assignments = append(emp.Assignments, a)
		}
		var none *payroll.Attendance
		in = none.ToInput(emp)
	}

	if req.AttendanceRequest != nil {
		att := payroll.Attendance{EmployeeID: in.Employee.ID, Period: key}
		applyAttendance(&att, *req.AttendanceRequest)
		in = att.ToInput(in.Employee)
	}
	return in, nil
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), periodID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// GetTransitions returns the stored audit trail.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	id := periodID(r)
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	trail, err := h.Store.Transitions(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list transitions", err)
		return
	}
	if trail == nil {
		trail = []payroll.Transition{}
	}
	writeJSON(w, http.StatusOK, trail)
}

// OpenPeriod creates the draft period for a year-month.
func (h *Handler) OpenPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req OpenPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	key, err := payroll.ParsePeriodKey(req.Period)
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}

	p, err := h.Service.Open(r.Context(), key, actor)
	if err != nil {
		h.writeDomainError(w, "Failed to open period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p))
}

// SelectEmployees sets the batch for a period.
func (h *Handler) SelectEmployees(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req SelectEmployeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ids := make([]payroll.EmployeeID, 0, len(req.EmployeeIDs))
	if req.All {
		employees, err := h.Store.ListEmployees(r.Context())
		if err != nil {
			h.writeDomainError(w, "Failed to list employees", err)
			return
		}
		for _, e := range employees {
			ids = append(ids, e.ID)
		}
	} else {
		for _, id := range req.EmployeeIDs {
			ids = append(ids, payroll.EmployeeID(id))
		}
	}

	h.periodCommand(w, r, "Failed to select employees", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.SelectEmployees(ctx, id, actor, ids)
	})
}

// CalculatePeriod runs the batch. Per-employee failures come back on the
// records with status "error"; the request itself still succeeds.
func (h *Handler) CalculatePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	h.periodCommand(w, r, "Failed to calculate period", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.Calculate(ctx, id, actor)
	})
}

func (h *Handler) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	h.periodCommand(w, r, "Failed to approve period", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.Approve(ctx, id, actor)
	})
}

func (h *Handler) RejectPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.periodCommand(w, r, "Failed to reject period", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.Reject(ctx, id, actor, req.Reason)
	})
}

// ProcessPayment is safe to retry: a processed period is returned as is.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	h.periodCommand(w, r, "Failed to process payment", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.ProcessPayment(ctx, id, actor)
	})
}

func (h *Handler) FinalizePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	h.periodCommand(w, r, "Failed to finalize period", func(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
		return h.Service.Finalize(ctx, id, actor)
	})
}

func (h *Handler) periodCommand(w http.ResponseWriter, r *http.Request, message string, cmd func(context.Context, payroll.PeriodID) (*payroll.Period, error)) {
	p, err := cmd(r.Context(), periodID(r))
	if err != nil {
		h.writeDomainError(w, message, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// GetPayslip renders the PDF payslip of one employee in a period.
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), periodID(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get period", err)
		return
	}
	empID := payroll.EmployeeID(chi.URLParam(r, "employee"))
	rec, ok := p.Record(empID)
	if !ok {
		writeError(w, http.StatusNotFound, "No record for employee in this period", nil)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePayslip(&buf, p, rec, h.Payslip); err != nil {
		h.writeDomainError(w, "Failed to render payslip", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`inline; filename="payslip-%s-%s.pdf"`, p.Key, empID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func periodID(r *http.Request) payroll.PeriodID {
	return payroll.PeriodID(chi.URLParam(r, "id"))
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns every asset with its depreciation as of today.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Store.ListAssets(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list assets", err)
		return
	}

	dtos := make([]AssetDTO, 0, len(assets))
	for _, a := range assets {
		dtos = append(dtos, h.toAssetDTO(a, h.now()))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	purchaseDate, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchase_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	asset, err := depreciation.NewAsset(depreciation.Asset{
		ID:              req.ID,
		Name:            req.Name,
		Category:        req.Category,
		PurchaseCost:    money.Amount(req.PurchaseCost),
		SalvageValue:    money.Amount(req.SalvageValue),
		UsefulLifeYears: req.UsefulLifeYears,
		PurchaseDate:    purchaseDate,
		Method:          req.Method,
	})
	if err != nil {
		h.writeDomainError(w, "Invalid asset", err)
		return
	}
	if err := h.Depreciation.Supports(asset); err != nil {
		h.writeDomainError(w, "Invalid asset", err)
		return
	}
	if err := h.Store.SaveAsset(r.Context(), asset); err != nil {
		h.writeDomainError(w, "Failed to save asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toAssetDTO(asset, h.now()))
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toAssetDTO(asset, h.now()))
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDepreciation computes depreciation as of ?as_of (default today).
func (h *Handler) GetDepreciation(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get asset", err)
		return
	}

	asOf := h.now()
	if s := r.URL.Query().Get("as_of"); s != "" {
		asOf, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
	}

	res, err := h.Depreciation.Compute(asset, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute depreciation", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get asset", err)
		return
	}
	rows, err := h.Depreciation.Schedule(asset)
	if err != nil {
		h.writeDomainError(w, "Failed to build schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleDTO{AssetID: asset.ID, Method: asset.Method, Rows: rows})
}

func (h *Handler) toAssetDTO(a depreciation.Asset, asOf time.Time) AssetDTO {
	dto := AssetDTO{Asset: a}
	if res, err := h.Depreciation.Compute(a, asOf); err == nil {
		dto.Depreciation = &res
	}
	return dto
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps err onto a status and a stable error code.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Details: err.Error()}
	if code := payroll.ErrorCode(err); code != "internal" {
		resp.Code = code
	}
	if status == http.StatusInternalServerError {
		h.logger().Error(message, "error", err)
		resp.Code = "internal"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case payroll.IsNotFound(err),
		errors.Is(err, depreciation.ErrAssetNotFound),
		errors.Is(err, report.ErrNoPayslip):
		return http.StatusNotFound
	case payroll.IsForbidden(err):
		return http.StatusForbidden
	case payroll.IsConflict(err):
		return http.StatusConflict
	case payroll.IsClientError(err),
		errors.Is(err, depreciation.ErrInvalidAsset),
		errors.Is(err, depreciation.ErrUnsupportedMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		writeError(w, http.StatusBadRequest, ActorHeader+" header is required", nil)
		return "", false
	}
	return actor, true
}

func (h *Handler) periodOrCurrent(s string) (payroll.PeriodKey, error) {
	if s == "" {
		return payroll.PeriodKeyFor(h.now()), nil
	}
	return payroll.ParsePeriodKey(s)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		Department:  e.Department,
		BasicSalary: e.BasicSalary.Int64(),
		BankAccount: e.BankAccount,
	}
	for _, a := range e.Assignments {
		dto.Assignments = append(dto.Assignments, h.Factory.AssignmentToJSON(a))
	}
	return dto
}

func applyAttendance(att *payroll.Attendance, req AttendanceRequest) {
	att.AttendanceDays = req.AttendanceDays
	att.LeaveDays = req.LeaveDays
	att.OvertimeRate = money.Amount(req.OvertimeRate)
	if req.OvertimeHours != nil {
		att.OvertimeHours = *req.OvertimeHours
	}
}

func toAttendanceDTO(att payroll.Attendance) AttendanceDTO {
	hours := att.OvertimeHours
	return AttendanceDTO{
		EmployeeID: string(att.EmployeeID),
		Period:     att.Period.String(),
		AttendanceRequest: AttendanceRequest{
			AttendanceDays: att.AttendanceDays,
			LeaveDays:      att.LeaveDays,
			OvertimeHours:  &hours,
			OvertimeRate:   att.OvertimeRate.Int64(),
		},
	}
}
