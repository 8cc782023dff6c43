/*
Package settlement turns invoices into a financial breakdown: revenue, tax
and commission, rent, and the teacher/company split.

PURPOSE:
  Answers "how much did this course / teacher / month earn, and who gets
  what?" for reporting. Pure computation over snapshots fetched elsewhere.

DEDUCTION ORDER (fixed):
  taxAndCommission = round(gross * (tax + commission))
  afterTax         = gross - taxAndCommission
  netAfterRent     = afterTax - rent
  teacherPayout    = max(0, round(netAfterRent * teacherShare))
  companyProfit    = max(0, round(netAfterRent * (1 - teacherShare)))

  Tax is always taken from GROSS, never from gross minus rent. Each step is
  rounded to a whole unit on its own; a single final rounding would give
  different numbers and break reconciliation with issued reports.

NEGATIVE NET:
  When rent exceeds the after-tax revenue both shares are zero. The loss is
  not reported as a negative payout.

SHARE ROUNDING:
  Both shares round half away from zero on their own, so their sum can
  exceed netAfterRent by one unit: net 5 at a 0.7 share pays 4 + 2 = 6.
  This is a known exception to payout + profit <= netAfterRent. It is kept
  so figures match reports already issued with the same formula.

PAID vs TOTAL:
  Every scope is computed twice: over paid invoices only and over all
  invoices (potential). Both are shown side by side.

GROUPING:
  Rent depends on the course schedule, so it is computed per course group.
  Teacher payouts are the sum of per-course settlements, never one
  calculation over a teacher's commingled revenue.

SEE ALSO:
  - schedule/lessons.go: lesson counts that drive rent
  - group.go: CourseGroup and TeacherGroup
  - report.go: Period scoping and the full Report
*/
package settlement

import (
	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
)

// =============================================================================
// RESULT
// =============================================================================

// Result is one settlement over a revenue base and a rent total.
// Tax and Commission are the display split of TaxAndCommission.
type Result struct {
	Gross            decimal.Decimal `json:"gross"`
	TaxAndCommission decimal.Decimal `json:"taxAndCommission"`
	Tax              decimal.Decimal `json:"tax"`
	Commission       decimal.Decimal `json:"commission"`
	AfterTax         decimal.Decimal `json:"afterTax"`
	Rent             decimal.Decimal `json:"rent"`
	NetAfterRent     decimal.Decimal `json:"netAfterRent"`
	TeacherPayout    decimal.Decimal `json:"teacherPayout"`
	CompanyProfit    decimal.Decimal `json:"companyProfit"`
}

// Calculate applies the deduction chain to gross revenue and a rent total.
func Calculate(gross, rent decimal.Decimal, rates Rates) Result {
	taxAndCommission := generic.RoundUnit(gross.Mul(rates.TaxAndCommission()))
	tax := generic.RoundUnit(gross.Mul(rates.Tax))
	afterTax := gross.Sub(taxAndCommission)
	net := generic.RoundUnit(afterTax.Sub(rent))

	return Result{
		Gross:            gross,
		TaxAndCommission: taxAndCommission,
		Tax:              tax,
		Commission:       taxAndCommission.Sub(tax),
		AfterTax:         afterTax,
		Rent:             rent,
		NetAfterRent:     net,
		TeacherPayout:    generic.ClampZero(generic.RoundUnit(net.Mul(rates.TeacherShare))),
		CompanyProfit:    generic.ClampZero(generic.RoundUnit(net.Mul(rates.CompanyShare()))),
	}
}

// Add sums two results field by field. Used for per-teacher totals, where
// each part was already rounded and clamped on its own.
func (r Result) Add(o Result) Result {
	return Result{
		Gross:            r.Gross.Add(o.Gross),
		TaxAndCommission: r.TaxAndCommission.Add(o.TaxAndCommission),
		Tax:              r.Tax.Add(o.Tax),
		Commission:       r.Commission.Add(o.Commission),
		AfterTax:         r.AfterTax.Add(o.AfterTax),
		Rent:             r.Rent.Add(o.Rent),
		NetAfterRent:     r.NetAfterRent.Add(o.NetAfterRent),
		TeacherPayout:    r.TeacherPayout.Add(o.TeacherPayout),
		CompanyProfit:    r.CompanyProfit.Add(o.CompanyProfit),
	}
}

// ZeroResult has every field set to decimal zero.
func ZeroResult() Result {
	return Calculate(decimal.Zero, decimal.Zero, DefaultRates())
}
