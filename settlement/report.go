package settlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
)

// =============================================================================
// SCOPE - Which invoices a report covers
// =============================================================================

// Scope narrows a report. The zero value covers every invoice given.
type Scope struct {
	Year  int
	Month time.Month

	// Optional pre-filters.
	CourseID  generic.DocumentID
	TeacherID generic.DocumentID
}

// HasPeriod reports whether the scope names a month.
func (s Scope) HasPeriod() bool {
	return s.Year > 0 && s.Month >= time.January && s.Month <= time.December
}

// Window is the scoped calendar month, or nil when unscoped.
func (s Scope) Window() *generic.Period {
	if !s.HasPeriod() {
		return nil
	}
	p := generic.MonthPeriod(s.Year, s.Month)
	return &p
}

// FilterByMonth keeps invoices whose StartDate falls within the month,
// first and last day included.
func FilterByMonth(invoices []*Invoice, year int, month time.Month) []*Invoice {
	period := generic.MonthPeriod(year, month)
	var out []*Invoice
	for _, inv := range invoices {
		if period.Contains(inv.StartDate) {
			out = append(out, inv)
		}
	}
	return out
}

// Apply returns the invoices inside the scope, preserving order.
func (s Scope) Apply(invoices []*Invoice) []*Invoice {
	if s.HasPeriod() {
		invoices = FilterByMonth(invoices, s.Year, s.Month)
	}
	if s.CourseID == "" && s.TeacherID == "" {
		return invoices
	}
	var out []*Invoice
	for _, inv := range invoices {
		if s.CourseID != "" && inv.CourseID() != s.CourseID {
			continue
		}
		if s.TeacherID != "" && (inv.Course == nil || inv.Course.TeacherID() != s.TeacherID) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// =============================================================================
// REPORT
// =============================================================================

// Report is the full breakdown for one scope.
//
// Paid and Total are computed from the aggregate revenue and the aggregate
// rent in one pass. Because every step rounds, the sum of per-teacher
// payouts may differ from Paid.TeacherPayout by a unit per teacher.
type Report struct {
	Scope    Scope
	Rates    Rates
	Invoices int

	Paid  Result
	Total Result

	Courses  []*CourseGroup
	Teachers []*TeacherGroup
}

// BuildReport scopes the invoices, groups them per course then per teacher,
// and settles the aggregate on the paid and total bases.
func BuildReport(invoices []*Invoice, scope Scope, rates Rates) Report {
	scoped := scope.Apply(invoices)

	courses := GroupByCourse(scoped, scope.Window(), rates)
	teachers := GroupByTeacher(courses)

	paidRevenue, totalRevenue := decimal.Zero, decimal.Zero
	for _, inv := range scoped {
		totalRevenue = totalRevenue.Add(inv.Sum)
		if inv.StatusPayment {
			paidRevenue = paidRevenue.Add(inv.Sum)
		}
	}
	rent := decimal.Zero
	for _, cg := range courses {
		rent = rent.Add(cg.Rent)
	}

	return Report{
		Scope:    scope,
		Rates:    rates,
		Invoices: len(scoped),
		Paid:     Calculate(paidRevenue, rent, rates),
		Total:    Calculate(totalRevenue, rent, rates),
		Courses:  courses,
		Teachers: teachers,
	}
}

func (r Report) TotalRevenue() decimal.Decimal { return r.Total.Gross }
func (r Report) PaidRevenue() decimal.Decimal  { return r.Paid.Gross }
func (r Report) TotalRent() decimal.Decimal    { return r.Total.Rent }

// TaxUSN and BankCommission are reported on the paid basis.
func (r Report) TaxUSN() decimal.Decimal         { return r.Paid.Tax }
func (r Report) BankCommission() decimal.Decimal { return r.Paid.Commission }

func (r Report) TeacherPayments() decimal.Decimal { return r.Paid.TeacherPayout }
func (r Report) CompanyProfit() decimal.Decimal   { return r.Paid.CompanyProfit }
