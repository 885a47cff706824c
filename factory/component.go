/*
Package factory provides JSON to Go salary component conversion.

PURPOSE:
  Converts JSON component definitions and assignments into validated
  payroll.ComponentDefinition and payroll.Assignment values. HR defines
  the catalog in JSON (admin UI, database config column, seed files)
  and the factory produces the Go structs the engine computes with.

JSON SCHEMA:
  {
    "code": "HOUSING",
    "name": "Housing Allowance",
    "component_type": "allowance",
    "calculation_type": "percentage",
    "default_percentage": "15",
    "is_taxable": true,
    "applies_to_all": true,
    "frequency": "monthly"
  }

  Amounts are integer minor units. Percentages accept a JSON number or
  a decimal string. is_active defaults to true.

USAGE:
  f := factory.NewComponentFactory()
  def, err := f.ParseComponent(jsonString)
  catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())

SEE ALSO:
  - payroll/component.go: ComponentDefinition and validation
  - store/sqlite/sqlite.go: Stores ComponentJSON in components.config_json
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

const dateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ComponentJSON is the JSON representation of a component definition.
type ComponentJSON struct {
	Code              string           `json:"code"`
	Name              string           `json:"name"`
	ComponentType     string           `json:"component_type"`
	CalculationType   string           `json:"calculation_type"`
	DefaultAmount     int64            `json:"default_amount,omitempty"`
	DefaultPercentage *decimal.Decimal `json:"default_percentage,omitempty"`
	Formula           string           `json:"formula,omitempty"`
	IsTaxable         bool             `json:"is_taxable"`
	IsMandatory       bool             `json:"is_mandatory"`
	AppliesToAll      bool             `json:"applies_to_all"`
	Frequency         string           `json:"frequency,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"` // default true
}

// AssignmentJSON is the JSON representation of an employee assignment.
type AssignmentJSON struct {
	ID                 string           `json:"id,omitempty"`
	EmployeeID         string           `json:"employee_id"`
	ComponentCode      string           `json:"component_code"`
	OverrideAmount     *int64           `json:"override_amount,omitempty"`
	OverridePercentage *decimal.Decimal `json:"override_percentage,omitempty"`
	EffectiveFrom      string           `json:"effective_from"`        // YYYY-MM-DD
	ExpiresAt          string           `json:"expires_at,omitempty"` // YYYY-MM-DD
	Active             *bool            `json:"active,omitempty"`     // default true
}

// =============================================================================
// COMPONENT FACTORY
// =============================================================================

// ComponentFactory converts JSON components to Go structs.
type ComponentFactory struct {
	// NewID generates assignment ids when the JSON has none.
	NewID func() string
}

func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{NewID: uuid.NewString}
}

// ParseComponent parses a JSON string into a validated definition.
func (f *ComponentFactory) ParseComponent(jsonStr string) (payroll.ComponentDefinition, error) {
	var cj ComponentJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return payroll.ComponentDefinition{}, fmt.Errorf("failed to parse component JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// ParseCatalog parses a JSON array of components into a catalog.
func (f *ComponentFactory) ParseCatalog(jsonStr string) (*payroll.Catalog, error) {
	var cjs []ComponentJSON
	if err := json.Unmarshal([]byte(jsonStr), &cjs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	defs := make([]payroll.ComponentDefinition, 0, len(cjs))
	for _, cj := range cjs {
		def, err := f.FromJSON(cj)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return payroll.NewCatalog(defs...)
}

// FromJSON converts ComponentJSON to a validated definition.
func (f *ComponentFactory) FromJSON(cj ComponentJSON) (payroll.ComponentDefinition, error) {
	def := payroll.ComponentDefinition{
		Code:          payroll.ComponentCode(cj.Code),
		Name:          cj.Name,
		Type:          payroll.ComponentType(cj.ComponentType),
		Calculation:   payroll.CalculationType(cj.CalculationType),
		DefaultAmount: money.Amount(cj.DefaultAmount),
		Formula:       cj.Formula,
		IsTaxable:     cj.IsTaxable,
		IsMandatory:   cj.IsMandatory,
		AppliesToAll:  cj.AppliesToAll,
		Frequency:     payroll.Frequency(cj.Frequency),
		IsActive:      cj.IsActive == nil || *cj.IsActive,
	}
	if cj.DefaultPercentage != nil {
		def.DefaultPercentage = *cj.DefaultPercentage
	}
	return payroll.NewComponentDefinition(def)
}

// ToJSON converts a definition to ComponentJSON.
func (f *ComponentFactory) ToJSON(def payroll.ComponentDefinition) ComponentJSON {
	active := def.IsActive
	cj := ComponentJSON{
		Code:            string(def.Code),
		Name:            def.Name,
		ComponentType:   string(def.Type),
		CalculationType: string(def.Calculation),
		DefaultAmount:   def.DefaultAmount.Int64(),
		Formula:         def.Formula,
		IsTaxable:       def.IsTaxable,
		IsMandatory:     def.IsMandatory,
		AppliesToAll:    def.AppliesToAll,
		Frequency:       string(def.Frequency),
		IsActive:        &active,
	}
	if def.Calculation == payroll.CalcPercentage {
		pct := def.DefaultPercentage
		cj.DefaultPercentage = &pct
	}
	return cj
}

// ParseAssignment parses a JSON string into a validated assignment.
func (f *ComponentFactory) ParseAssignment(jsonStr string) (payroll.Assignment, error) {
	var aj AssignmentJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return payroll.Assignment{}, fmt.Errorf("failed to parse assignment JSON: %w", err)
	}
	return f.AssignmentFromJSON(aj)
}

// AssignmentFromJSON converts AssignmentJSON to a validated assignment.
// Catalog membership is checked at resolution, not here.
func (f *ComponentFactory) AssignmentFromJSON(aj AssignmentJSON) (payroll.Assignment, error) {
	a := payroll.Assignment{
		ID:            aj.ID,
		EmployeeID:    payroll.EmployeeID(aj.EmployeeID),
		ComponentCode: payroll.ComponentCode(aj.ComponentCode),
		Active:        aj.Active == nil || *aj.Active,
	}
	if a.ID == "" && f.NewID != nil {
		a.ID = f.NewID()
	}
	if aj.OverrideAmount != nil {
		amt := money.Amount(*aj.OverrideAmount)
		a.OverrideAmount = &amt
	}
	if aj.OverridePercentage != nil {
		pct := *aj.OverridePercentage
		a.OverridePercentage = &pct
	}

	if aj.EffectiveFrom != "" {
		from, err := time.Parse(dateLayout, aj.EffectiveFrom)
		if err != nil {
			return payroll.Assignment{}, &payroll.ValidationError{Field: "effective_from", Message: "must be YYYY-MM-DD", EmployeeID: a.EmployeeID, ComponentCode: a.ComponentCode}
		}
		a.EffectiveFrom = from
	}
	if aj.ExpiresAt != "" {
		exp, err := time.Parse(dateLayout, aj.ExpiresAt)
		if err != nil {
			return payroll.Assignment{}, &payroll.ValidationError{Field: "expires_at", Message: "must be YYYY-MM-DD", EmployeeID: a.EmployeeID, ComponentCode: a.ComponentCode}
		}
		a.ExpiresAt = &exp
	}
	return payroll.NewAssignment(a)
}

// AssignmentToJSON converts an assignment to AssignmentJSON.
func (f *ComponentFactory) AssignmentToJSON(a payroll.Assignment) AssignmentJSON {
	active := a.Active
	aj := AssignmentJSON{
		ID:                 a.ID,
		EmployeeID:         string(a.EmployeeID),
		ComponentCode:      string(a.ComponentCode),
		OverridePercentage: a.OverridePercentage,
		EffectiveFrom:      a.EffectiveFrom.Format(dateLayout),
		Active:             &active,
	}
	if a.OverrideAmount != nil {
		v := a.OverrideAmount.Int64()
		aj.OverrideAmount = &v
	}
	if a.ExpiresAt != nil {
		aj.ExpiresAt = a.ExpiresAt.Format(dateLayout)
	}
	return aj
}

// =============================================================================
// PRESET CATALOGS
// =============================================================================

// StandardCatalogJSON returns the demo catalog: housing 15% and transport
// 50,000 for everyone, PAYE 20%, plus assignable pension and bonus.
func StandardCatalogJSON() string {
	cj := []map[string]interface{}{
		{
			"code":               "HOUSING",
			"name":               "Housing Allowance",
			"component_type":     "allowance",
			"calculation_type":   "percentage",
			"default_percentage": 15,
			"is_taxable":         true,
			"applies_to_all":     true,
		},
		{
			"code":             "TRANSPORT",
			"name":             "Transport Allowance",
			"component_type":   "allowance",
			"calculation_type": "fixed",
			"default_amount":   50000,
			"applies_to_all":   true,
		},
		{
			"code":               "PAYE",
			"name":               "PAYE Income Tax",
			"component_type":     "deduction",
			"calculation_type":   "percentage",
			"default_percentage": 20,
			"is_mandatory":       true,
			"applies_to_all":     true,
		},
		{
			"code":               "PENSION",
			"name":               "Pension Contribution",
			"component_type":     "deduction",
			"calculation_type":   "percentage",
			"default_percentage": 8,
		},
		{
			"code":             "PERF_BONUS",
			"name":             "Performance Bonus",
			"component_type":   "bonus",
			"calculation_type": "formula",
			"formula":          "BASIC * 0.1",
			"is_taxable":       true,
			"frequency":        "quarterly",
		},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}
