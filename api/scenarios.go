/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built datasets for demos and end-to-end checks. Each
	scenario resets the database, loads the standard catalog and adds the
	employees, assignments, attendance or assets that show one feature.

AVAILABLE SCENARIOS:

	single-employee:    Basic 1,200,000 with housing, transport, PAYE
	overtime:           Two employees, one with March overtime
	mixed-batch:        Three employees, one assigned an unknown component,
	                    with the March 2024 period opened and selected
	asset-depreciation: Laptop fleet bought 2023-01-15, 5 years

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed-batch"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/component.go: StandardCatalogJSON
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// ScenarioActor is recorded on periods the loaders open.
const ScenarioActor = "scenario-loader"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-employee",
		Name:        "Single Employee",
		Description: "Basic 1,200,000: housing 15%, transport 50,000, PAYE 20%, net 1,190,000",
		Category:    "payroll",
	},
	{
		ID:          "overtime",
		Name:        "Overtime",
		Description: "Two employees in March 2024, one with 10h overtime at 7,500/h",
		Category:    "payroll",
	},
	{
		ID:          "mixed-batch",
		Name:        "Mixed Batch",
		Description: "Three employees, one with an unknown component; March 2024 ready to calculate",
		Category:    "payroll",
	},
	{
		ID:          "asset-depreciation",
		Name:        "Asset Depreciation",
		Description: "Straight-line: cost 1,200,000, salvage 50,000, 5 years from 2023-01-15",
		Category:    "depreciation",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("%q", req.ScenarioID))
			return
		}
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": req.ScenarioID,
	})
}

var errUnknownScenario = errors.New("unknown scenario")

// LoadScenarioByID is LoadScenario without HTTP, for tests and seeding.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context) error{
		"single-employee":    h.loadSingleEmployeeScenario,
		"overtime":           h.loadOvertimeScenario,
		"mixed-batch":        h.loadMixedBatchScenario,
		"asset-depreciation": h.loadAssetDepreciationScenario,
	}
	load, ok := loaders[id]
	if !ok {
		return errUnknownScenario
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := load(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	h.logger().Info("scenario loaded", "scenario", id)
	return nil
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadStandardCatalog(ctx context.Context) error {
	catalog, err := h.Factory.ParseCatalog(factory.StandardCatalogJSON())
	if err != nil {
		return err
	}
	for _, def := range catalog.Definitions() {
		if err := h.Store.SaveComponent(ctx, def); err != nil {
			return fmt.Errorf("save component %s: %w", def.Code, err)
		}
	}
	return nil
}

func (h *Handler) saveEmployees(ctx context.Context, employees ...payroll.Employee) error {
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("save employee %s: %w", emp.ID, err)
		}
		for _, a := range emp.Assignments {
			if err := h.Store.SaveAssignment(ctx, a); err != nil {
				return fmt.Errorf("save assignment %s: %w", a.ID, err)
			}
		}
	}
	return nil
}

func (h *Handler) loadSingleEmployeeScenario(ctx context.Context) error {
	if err := h.loadStandardCatalog(ctx); err != nil {
		return err
	}
	return h.saveEmployees(ctx, payroll.Employee{
		ID: "emp-101", Name: "Amara Okafor", Department: "Engineering",
		BasicSalary: 1_200_000, BankAccount: "GB29NWBK60161331926819",
	})
}

func (h *Handler) loadOvertimeScenario(ctx context.Context) error {
	if err := h.loadStandardCatalog(ctx); err != nil {
		return err
	}
	if err := h.saveEmployees(ctx,
		payroll.Employee{
			ID: "emp-201", Name: "Daniel Mensah", Department: "Operations",
			BasicSalary: 800_000, BankAccount: "GB94BARC10201530093459",
		},
		payroll.Employee{
			ID: "emp-202", Name: "Lena Fischer", Department: "Operations",
			BasicSalary: 950_000, BankAccount: "GB33BUKB20201555555555",
		},
	); err != nil {
		return err
	}

	march := payroll.NewPeriodKey(2024, time.March)
	for _, att := range []payroll.Attendance{
		{EmployeeID: "emp-201", Period: march, AttendanceDays: 21,
			OvertimeHours: decimal.NewFromInt(10), OvertimeRate: 7_500},
		{EmployeeID: "emp-202", Period: march, AttendanceDays: 19, LeaveDays: 2},
	} {
		if err := h.Store.SaveAttendance(ctx, att); err != nil {
			return fmt.Errorf("save attendance %s: %w", att.EmployeeID, err)
		}
	}
	return nil
}

// loadMixedBatchScenario leaves March 2024 in pending_selection so a
// single calculate shows the partial failure.
func (h *Handler) loadMixedBatchScenario(ctx context.Context) error {
	if err := h.loadStandardCatalog(ctx); err != nil {
		return err
	}

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if err := h.saveEmployees(ctx,
		payroll.Employee{
			ID: "emp-301", Name: "Priya Raman", Department: "Engineering",
			BasicSalary: 1_200_000, BankAccount: "GB82WEST12345698765432",
		},
		payroll.Employee{
			ID: "emp-302", Name: "Tomás Herrera", Department: "Engineering",
			BasicSalary: 900_000, BankAccount: "GB15MIDL40051512345678",
			Assignments: []payroll.Assignment{{
				ID: "asg-302-legacy", EmployeeID: "emp-302", ComponentCode: "LEGACY_BONUS",
				EffectiveFrom: jan, Active: true,
			}},
		},
		payroll.Employee{
			ID: "emp-303", Name: "Chen Wei", Department: "Sales",
			BasicSalary: 600_000, BankAccount: "GB71HBUK40127612345678",
		},
	); err != nil {
		return err
	}

	p, err := h.Service.Open(ctx, payroll.NewPeriodKey(2024, time.March), ScenarioActor)
	if err != nil {
		return err
	}
	_, err = h.Service.SelectEmployees(ctx, p.ID, ScenarioActor,
		[]payroll.EmployeeID{"emp-301", "emp-302", "emp-303"})
	return err
}

func (h *Handler) loadAssetDepreciationScenario(ctx context.Context) error {
	assets := []depreciation.Asset{
		{
			ID: "asset-laptops", Name: "Laptop fleet", Category: "IT equipment",
			PurchaseCost: 1_200_000, SalvageValue: 50_000, UsefulLifeYears: 5,
			PurchaseDate: time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "asset-van", Name: "Delivery van", Category: "Vehicles",
			PurchaseCost: 3_600_000, SalvageValue: 600_000, UsefulLifeYears: 8,
			PurchaseDate: time.Date(2021, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, a := range assets {
		if err := h.Store.SaveAsset(ctx, a); err != nil {
			return fmt.Errorf("save asset %s: %w", a.ID, err)
		}
	}
	return nil
}
