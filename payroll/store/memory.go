// Package store provides in-memory implementations of the payroll store interfaces.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.PeriodStore, payroll.EmployeeDirectory and
// payroll.CatalogSource.
type Memory struct {
	mu          sync.RWMutex
	periods     map[payroll.PeriodID]*payroll.Period
	byKey       map[payroll.PeriodKey]payroll.PeriodID
	components  map[payroll.ComponentCode]payroll.ComponentDefinition
	employees   map[payroll.EmployeeID]payroll.Employee
	assignments map[payroll.EmployeeID][]payroll.Assignment
	attendance  map[attendanceKey]payroll.Attendance
}

type attendanceKey struct {
	EmployeeID payroll.EmployeeID
	Period     payroll.PeriodKey
}

func NewMemory() *Memory {
	return &Memory{
		periods:     make(map[payroll.PeriodID]*payroll.Period),
		byKey:       make(map[payroll.PeriodKey]payroll.PeriodID),
		components:  make(map[payroll.ComponentCode]payroll.ComponentDefinition),
		employees:   make(map[payroll.EmployeeID]payroll.Employee),
		assignments: make(map[payroll.EmployeeID][]payroll.Assignment),
		attendance:  make(map[attendanceKey]payroll.Attendance),
	}
}

// =============================================================================
// PERIODS (payroll.PeriodStore)
// =============================================================================

func (m *Memory) CreatePeriod(_ context.Context, p *payroll.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byKey[p.Key]; exists {
		return fmt.Errorf("period %s: %w", p.Key, payroll.ErrDuplicatePeriod)
	}
	if _, exists := m.periods[p.ID]; exists {
		return fmt.Errorf("period id %s: %w", p.ID, payroll.ErrDuplicatePeriod)
	}
	m.periods[p.ID] = p.Clone()
	m.byKey[p.Key] = p.ID
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, id payroll.PeriodID) (*payroll.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.periods[id]
	if !ok {
		return nil, fmt.Errorf("period %s: %w", id, payroll.ErrPeriodNotFound)
	}
	return p.Clone(), nil
}

func (m *Memory) GetPeriodByKey(ctx context.Context, key payroll.PeriodKey) (*payroll.Period, error) {
	m.mu.RLock()
	id, ok := m.byKey[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("period %s: %w", key, payroll.ErrPeriodNotFound)
	}
	return m.GetPeriod(ctx, id)
}

func (m *Memory) ListPeriods(_ context.Context) ([]*payroll.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*payroll.Period, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() > out[j].Key.String()
	})
	return out, nil
}

func (m *Memory) UpdatePeriod(_ context.Context, p *payroll.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.periods[p.ID]
	if !ok {
		return fmt.Errorf("period %s: %w", p.ID, payroll.ErrPeriodNotFound)
	}
	if stored.Version != p.Version-1 {
		return fmt.Errorf("period %s at version %d, write based on %d: %w",
			p.ID, stored.Version, p.Version-1, payroll.ErrConcurrentModification)
	}
	m.periods[p.ID] = p.Clone()
	return nil
}

// =============================================================================
// CATALOG (payroll.CatalogSource)
// =============================================================================

// SaveComponent validates and upserts a definition.
func (m *Memory) SaveComponent(_ context.Context, d payroll.ComponentDefinition) error {
	nd, err := payroll.NewComponentDefinition(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[nd.Code] = nd
	return nil
}

func (m *Memory) Catalog(_ context.Context) (*payroll.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]payroll.ComponentDefinition, 0, len(m.components))
	for _, d := range m.components {
		defs = append(defs, d)
	}
	return payroll.NewCatalog(defs...)
}

// =============================================================================
// EMPLOYEES (payroll.EmployeeDirectory)
// =============================================================================

// SaveEmployee upserts an employee. Assignments on emp are ignored; use
// SaveAssignment.
func (m *Memory) SaveEmployee(_ context.Context, emp payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp.Assignments = nil
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) SaveAssignment(_ context.Context, a payroll.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.assignments[a.EmployeeID]
	for i, existing := range list {
		if a.ID != "" && existing.ID == a.ID {
			list[i] = a
			return nil
		}
	}
	m.assignments[a.EmployeeID] = append(list, a)
	return nil
}

func (m *Memory) SaveAttendance(_ context.Context, a payroll.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[attendanceKey{EmployeeID: a.EmployeeID, Period: a.Period}] = a
	return nil
}

// GetEmployee returns the employee with their assignments.
func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employeeLocked(id)
}

func (m *Memory) employeeLocked(id payroll.EmployeeID) (payroll.Employee, error) {
	emp, ok := m.employees[id]
	if !ok {
		return payroll.Employee{}, fmt.Errorf("employee %s: %w", id, payroll.ErrEmployeeNotFound)
	}
	emp.Assignments = append([]payroll.Assignment(nil), m.assignments[id]...)
	return emp, nil
}

func (m *Memory) EmployeeInputs(_ context.Context, key payroll.PeriodKey, ids []payroll.EmployeeID) ([]payroll.EmployeeInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inputs := make([]payroll.EmployeeInput, 0, len(ids))
	for _, id := range ids {
		emp, err := m.employeeLocked(id)
		if err != nil {
			continue
		}
		var att *payroll.Attendance
		if a, ok := m.attendance[attendanceKey{EmployeeID: id, Period: key}]; ok {
			att = &a
		}
		inputs = append(inputs, att.ToInput(emp))
	}
	return inputs, nil
}
