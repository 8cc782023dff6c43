package settlement

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
)

// =============================================================================
// COURSE GROUP - Rent is a property of the course, so it is computed here
// =============================================================================

// CourseGroup holds one course's invoices and its settlement.
type CourseGroup struct {
	Course   *Course
	Invoices []*Invoice

	// Lessons held in the window; Rent = RentPerLesson * Lessons.
	Lessons int
	Rent    decimal.Decimal

	PaidRevenue  decimal.Decimal
	TotalRevenue decimal.Decimal

	Paid  Result
	Total Result
}

// GroupByCourse groups invoices by course.DocumentID in first-seen order and
// settles each group. The window bounds the lessons counted for rent; an
// empty window means "the course's own interval". Invoices without a course
// are skipped.
func GroupByCourse(invoices []*Invoice, window *generic.Period, rates Rates) []*CourseGroup {
	index := make(map[generic.DocumentID]*CourseGroup)
	var groups []*CourseGroup

	for _, inv := range invoices {
		id := inv.CourseID()
		if id == "" {
			continue
		}
		g, ok := index[id]
		if !ok {
			g = &CourseGroup{Course: inv.Course, PaidRevenue: decimal.Zero, TotalRevenue: decimal.Zero}
			index[id] = g
			groups = append(groups, g)
		}
		g.Invoices = append(g.Invoices, inv)
		g.TotalRevenue = g.TotalRevenue.Add(inv.Sum)
		if inv.StatusPayment {
			g.PaidRevenue = g.PaidRevenue.Add(inv.Sum)
		}
	}

	for _, g := range groups {
		w := g.Course.Active()
		if window != nil {
			w = *window
		}
		g.Rent, g.Lessons = g.Course.RentFor(w)
		g.Paid, g.Total = CalculateTeacherIncome(g, rates)
	}
	return groups
}

// CalculateTeacherIncome settles one course group on both bases.
func CalculateTeacherIncome(g *CourseGroup, rates Rates) (paid, total Result) {
	return Calculate(g.PaidRevenue, g.Rent, rates), Calculate(g.TotalRevenue, g.Rent, rates)
}

// =============================================================================
// TEACHER GROUP - Sum of per-course settlements
// =============================================================================

// TeacherGroup is one teacher's payout across the courses they teach.
type TeacherGroup struct {
	Teacher *User
	Courses []*CourseGroup

	TotalRevenue decimal.Decimal
	PaidRevenue  decimal.Decimal
	Rent         decimal.Decimal

	// PaidPayout is the final payout: teacher share of paid revenue.
	PaidPayout decimal.Decimal
	// TotalPayout is what the payout would be if every invoice were paid.
	TotalPayout decimal.Decimal

	Paid  Result
	Total Result
}

func (tg *TeacherGroup) CourseCount() int { return len(tg.Courses) }

// GroupByTeacher folds course groups by course.teacher.DocumentID and sorts
// by PaidPayout, highest first. Ties keep input order. Courses without a
// teacher are skipped.
func GroupByTeacher(courses []*CourseGroup) []*TeacherGroup {
	index := make(map[generic.DocumentID]*TeacherGroup)
	var groups []*TeacherGroup

	for _, cg := range courses {
		id := cg.Course.TeacherID()
		if id == "" {
			continue
		}
		tg, ok := index[id]
		if !ok {
			tg = &TeacherGroup{
				Teacher:      cg.Course.Teacher,
				TotalRevenue: decimal.Zero,
				PaidRevenue:  decimal.Zero,
				Rent:         decimal.Zero,
				Paid:         ZeroResult(),
				Total:        ZeroResult(),
			}
			index[id] = tg
			groups = append(groups, tg)
		}
		tg.Courses = append(tg.Courses, cg)
		tg.TotalRevenue = tg.TotalRevenue.Add(cg.TotalRevenue)
		tg.PaidRevenue = tg.PaidRevenue.Add(cg.PaidRevenue)
		tg.Rent = tg.Rent.Add(cg.Rent)
		tg.Paid = tg.Paid.Add(cg.Paid)
		tg.Total = tg.Total.Add(cg.Total)
	}

	for _, tg := range groups {
		tg.PaidPayout = tg.Paid.TeacherPayout
		tg.TotalPayout = tg.Total.TeacherPayout
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].PaidPayout.GreaterThan(groups[j].PaidPayout)
	})
	return groups
}
