package settlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
)

// =============================================================================
// USER
// =============================================================================

// User is a teacher or a student as known to the CMS.
type User struct {
	DocumentID generic.DocumentID `json:"documentId"`
	Name       string             `json:"name"`
	Email      string             `json:"email,omitempty"`
}

// =============================================================================
// COURSE
// =============================================================================

// Course is a snapshot of a course record.
type Course struct {
	DocumentID     generic.DocumentID `json:"documentId"`
	Title          string             `json:"title"`
	Weekdays       []string           `json:"weekdays"`
	StartDate      generic.Date       `json:"startDate"`
	EndDate        generic.Date       `json:"endDate"`
	IsOnline       bool               `json:"isOnline"`
	RentalPrice    decimal.Decimal    `json:"rentalPrice"`
	PricePerLesson decimal.Decimal    `json:"pricePerLesson"`
	Teacher        *User              `json:"teacher,omitempty"`
	Currency       generic.Currency   `json:"currency"`
}

// Active returns the course-wide interval.
func (c *Course) Active() generic.Period {
	return generic.Period{Start: c.StartDate, End: c.EndDate}
}

// RentPerLesson is zero for online courses whatever RentalPrice says.
func (c *Course) RentPerLesson() decimal.Decimal {
	if c.IsOnline {
		return decimal.Zero
	}
	return c.RentalPrice
}

// LessonDates returns the course's lesson days inside the query window.
func (c *Course) LessonDates(query generic.Period) []generic.Date {
	return schedule.LessonDates(query, c.Weekdays, c.Active())
}

// LessonCounts splits the month's lessons at from.
func (c *Course) LessonCounts(year int, month time.Month, from generic.Date) schedule.Counts {
	return schedule.CountLessonsInMonth(year, month, c.Weekdays, c.Active(), from)
}

// RentFor is RentPerLesson times the lessons held in the window.
func (c *Course) RentFor(window generic.Period) (decimal.Decimal, int) {
	lessons := len(c.LessonDates(window))
	return c.RentPerLesson().Mul(decimal.NewFromInt(int64(lessons))), lessons
}

// TeacherID returns "" when the course has no teacher attached.
func (c *Course) TeacherID() generic.DocumentID {
	if c.Teacher == nil {
		return ""
	}
	return c.Teacher.DocumentID
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice is one student's enrollment/payment record for a course.
// Discount, Bonus and ReferralCode are carried for display only and take no
// part in settlement.
type Invoice struct {
	ID            string                               `json:"id"`
	DocumentID    generic.DocumentID                   `json:"documentId"`
	Owner         *User                                `json:"owner,omitempty"`
	Course        *Course                              `json:"course,omitempty"`
	Sum           decimal.Decimal                      `json:"sum"`
	Currency      generic.Currency                     `json:"currency"`
	StatusPayment bool                                 `json:"statusPayment"`
	StartDate     generic.Date                         `json:"startDate"`
	EndDate       generic.Date                         `json:"endDate"`
	Attendance    map[string]schedule.AttendanceStatus `json:"attendance,omitempty"`
	Discount      decimal.Decimal                      `json:"discount"`
	Bonus         decimal.Decimal                      `json:"bonus"`
	ReferralCode  string                               `json:"referralCode,omitempty"`
}

// Personal returns the student's own interval within the course.
func (inv *Invoice) Personal() generic.Period {
	return generic.Period{Start: inv.StartDate, End: inv.EndDate}
}

// CourseID returns "" when the invoice has no course reference.
func (inv *Invoice) CourseID() generic.DocumentID {
	if inv.Course == nil {
		return ""
	}
	return inv.Course.DocumentID
}

// AttendanceSheet lists the student's lessons in the window with marks.
// An invoice without a course has no lessons.
func (inv *Invoice) AttendanceSheet(window generic.Period) schedule.AttendanceSheet {
	if inv.Course == nil {
		return schedule.AttendanceSheet{Entries: []schedule.AttendanceEntry{}}
	}
	return schedule.NewAttendanceSheet(window, inv.Course.Weekdays, inv.Course.Active(), inv.Personal(), inv.Attendance)
}
