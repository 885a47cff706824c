/*
Package report renders payroll documents.

PURPOSE:
  WritePayslip turns one employee's record from a calculated (or later)
  period into a single-page A4 PDF. The PDF goes to any io.Writer; the
  API streams it straight into the response.

LAYOUT:
  Header     Company line, "Payslip", period and state
  Employee   Name, id, department, attendance
  Lines      Earnings and allowances, then deductions
  Totals     Gross, deductions, net

SEE ALSO:
  - payroll/aggregator.go: EmployeePayrollRecord
  - api/handlers.go: GET /api/periods/{id}/payslips/{employee}
*/
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

// ErrNoPayslip means the record has no breakdown to print.
var ErrNoPayslip = errors.New("no payslip for this record")

// PayslipOptions controls currency rendering.
type PayslipOptions struct {
	Company  string
	Currency string
	Scale    int32
}

// WritePayslip writes the PDF payslip for rec in period p to w.
func WritePayslip(w io.Writer, p *payroll.Period, rec payroll.EmployeePayrollRecord, opts PayslipOptions) error {
	if rec.Breakdown == nil || rec.Status == payroll.RecordError {
		return fmt.Errorf("employee %s: %w", rec.EmployeeID, ErrNoPayslip)
	}
	b := rec.Breakdown
	amt := func(a money.Amount) string {
		if opts.Currency == "" {
			return a.Format(opts.Scale)
		}
		return opts.Currency + " " + a.Format(opts.Scale)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", p.Key, rec.EmployeeID), true)
	pdf.AddPage()

	if opts.Company != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, opts.Company)
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s (%s)",
		p.Key.Start().Format("2006-01-02"), p.Key.End().Format("2006-01-02"), p.State))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", rec.EmployeeName, rec.EmployeeID))
	pdf.Ln(7)
	if rec.Department != "" {
		pdf.Cell(0, 7, "Department: "+rec.Department)
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Attendance: %d days, leave %d days, overtime %s h",
		rec.AttendanceDays, rec.LeaveDays, rec.OvertimeHours.String()))
	pdf.Ln(10)

	row := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(120, 7, label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, value, "B", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(8)
	row("Basic salary", amt(b.BasicSalary), false)
	for _, l := range b.Lines {
		if !l.Type.IsDeduction() {
			row(lineLabel(l), amt(l.Amount), false)
		}
	}
	row("Gross pay", amt(b.GrossSalary), true)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	for _, l := range b.Lines {
		if l.Type.IsDeduction() {
			row(lineLabel(l), amt(l.Amount), false)
		}
	}
	row("Total deductions", amt(b.TotalDeductions), true)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(120, 10, "Net pay", "", 0, "L", false, 0, "")
	pdf.CellFormat(60, 10, amt(b.NetSalary), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render payslip: %w", err)
	}
	return nil
}

func lineLabel(l payroll.LineItem) string {
	if l.Percentage != nil {
		return fmt.Sprintf("%s (%s%%)", l.Name, l.Percentage.String())
	}
	return l.Name
}
