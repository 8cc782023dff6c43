/*
xlsx.go - Spreadsheet rendering of a settlement report

PURPOSE:
  Accountants reconcile payouts in a spreadsheet. WriteReport renders a
  settlement.Report as an XLSX workbook with three sheets:

    Summary   aggregate figures, paid and total side by side
    Teachers  one row per teacher, ordered as in the report
    Courses   one row per course with lessons and rent

  Amounts are written as numbers so the sheet can sum them.

SEE ALSO:
  - settlement/report.go: BuildReport
  - api/handlers.go: GET /api/reports/settlement.xlsx
*/
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/course-settlement/settlement"
)

const (
	SheetSummary  = "Summary"
	SheetTeachers = "Teachers"
	SheetCourses  = "Courses"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Filename suggests an attachment name for the report's scope.
func Filename(scope settlement.Scope) string {
	if scope.HasPeriod() {
		return fmt.Sprintf("settlement_%04d_%02d.xlsx", scope.Year, int(scope.Month))
	}
	return "settlement_all.xlsx"
}

// WriteReport renders the report and writes the workbook to w.
func WriteReport(w io.Writer, report settlement.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetTeachers); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetTeachers, err)
	}
	if _, err := f.NewSheet(SheetCourses); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetCourses, err)
	}

	if err := writeRows(f, SheetSummary, summaryRows(report)); err != nil {
		return err
	}
	if err := writeRows(f, SheetTeachers, teacherRows(report)); err != nil {
		return err
	}
	if err := writeRows(f, SheetCourses, courseRows(report)); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func num(d decimal.Decimal) float64 { return d.InexactFloat64() }

func summaryRows(r settlement.Report) [][]interface{} {
	period := "all time"
	if r.Scope.HasPeriod() {
		period = fmt.Sprintf("%04d-%02d", r.Scope.Year, int(r.Scope.Month))
	}

	rows := [][]interface{}{
		{"Period", period},
		{"Invoices", r.Invoices},
		{},
		{"", "Paid", "Total"},
	}
	lines := []struct {
		label       string
		paid, total decimal.Decimal
	}{
		{"Revenue", r.Paid.Gross, r.Total.Gross},
		{"Tax (USN)", r.Paid.Tax, r.Total.Tax},
		{"Bank commission", r.Paid.Commission, r.Total.Commission},
		{"After tax", r.Paid.AfterTax, r.Total.AfterTax},
		{"Rent", r.Paid.Rent, r.Total.Rent},
		{"Net after rent", r.Paid.NetAfterRent, r.Total.NetAfterRent},
		{"Teacher payments", r.Paid.TeacherPayout, r.Total.TeacherPayout},
		{"Company profit", r.Paid.CompanyProfit, r.Total.CompanyProfit},
	}
	for _, l := range lines {
		rows = append(rows, []interface{}{l.label, num(l.paid), num(l.total)})
	}
	return rows
}

func teacherRows(r settlement.Report) [][]interface{} {
	rows := [][]interface{}{{
		"Teacher ID", "Teacher", "Courses",
		"Paid revenue", "Total revenue", "Rent",
		"Payout (paid)", "Payout (total)",
	}}
	for _, tg := range r.Teachers {
		rows = append(rows, []interface{}{
			string(tg.Teacher.DocumentID), tg.Teacher.Name, tg.CourseCount(),
			num(tg.PaidRevenue), num(tg.TotalRevenue), num(tg.Rent),
			num(tg.PaidPayout), num(tg.TotalPayout),
		})
	}
	return rows
}

func courseRows(r settlement.Report) [][]interface{} {
	rows := [][]interface{}{{
		"Course ID", "Course", "Teacher", "Online", "Invoices", "Lessons", "Rent",
		"Paid revenue", "Total revenue", "Payout (paid)", "Company (paid)",
	}}
	for _, cg := range r.Courses {
		teacher := ""
		if cg.Course.Teacher != nil {
			teacher = cg.Course.Teacher.Name
		}
		rows = append(rows, []interface{}{
			string(cg.Course.DocumentID), cg.Course.Title, teacher, cg.Course.IsOnline,
			len(cg.Invoices), cg.Lessons, num(cg.Rent),
			num(cg.PaidRevenue), num(cg.TotalRevenue),
			num(cg.Paid.TeacherPayout), num(cg.Paid.CompanyProfit),
		})
	}
	return rows
}
