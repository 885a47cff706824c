package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
)

func calculatedRecord(t *testing.T) (*payroll.Period, payroll.EmployeePayrollRecord) {
	t.Helper()
	catalog, err := factory.NewComponentFactory().ParseCatalog(factory.StandardCatalogJSON())
	require.NoError(t, err)

	key := payroll.NewPeriodKey(2024, time.March)
	rec, err := payroll.NewAggregator(catalog, nil).CalculateEmployee(payroll.EmployeeInput{
		Employee:       payroll.Employee{ID: "e1", Name: "Ada", Department: "Engineering", BasicSalary: 1_200_000},
		AttendanceDays: 21,
	}, key.End())
	require.NoError(t, err)

	p, err := payroll.NewPeriod("p1", key, "hr", time.Now())
	require.NoError(t, err)
	return p, rec
}

func TestWritePayslip(t *testing.T) {
	// GIVEN: A calculated record for Scenario A
	// WHEN: Rendering the payslip
	// THEN: A non-trivial PDF document is produced

	p, rec := calculatedRecord(t)
	var buf bytes.Buffer

	err := report.WritePayslip(&buf, p, rec, report.PayslipOptions{Company: "Warp Ltd", Currency: "USD", Scale: 2})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestWritePayslip_ErrorRecord(t *testing.T) {
	p, rec := calculatedRecord(t)
	rec.Status = payroll.RecordError
	rec.Breakdown = nil

	err := report.WritePayslip(&bytes.Buffer{}, p, rec, report.PayslipOptions{})

	assert.ErrorIs(t, err, report.ErrNoPayslip)
}
