/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types that are
  already plain snapshots (User, Course, Invoice, Result, Counts) are
  returned as they are; the report gets its own shape so clients see
  flat per-teacher and per-course rows instead of nested groups.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request bodies carry go-playground/validator tags and are checked in
  decodeAndValidate before any handler logic runs. Amounts travel as
  decimal strings ("1200.50") and dates as YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Uses these types
  - settlement/report.go: Report type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// =============================================================================
// REQUESTS
// =============================================================================

// CreateUserRequest creates a teacher or student. DocumentID is generated
// when omitted.
type CreateUserRequest struct {
	DocumentID string `json:"documentId" validate:"omitempty,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// CreateCourseRequest creates a course snapshot.
type CreateCourseRequest struct {
	DocumentID     string   `json:"documentId" validate:"omitempty,max=64"`
	Title          string   `json:"title" validate:"required,max=200"`
	Weekdays       []string `json:"weekdays" validate:"dive,required"`
	StartDate      string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	IsOnline       bool     `json:"isOnline"`
	RentalPrice    string   `json:"rentalPrice" validate:"omitempty,numeric"`
	PricePerLesson string   `json:"pricePerLesson" validate:"omitempty,numeric"`
	TeacherID      string   `json:"teacherId"`
	Currency       string   `json:"currency" validate:"omitempty,oneof=RUB USD EUR"`
}

// CreateInvoiceRequest creates an invoice snapshot. Attendance maps
// YYYY-MM-DD to present/absent.
type CreateInvoiceRequest struct {
	ID            string            `json:"id" validate:"omitempty,max=64"`
	DocumentID    string            `json:"documentId" validate:"omitempty,max=64"`
	OwnerID       string            `json:"ownerId"`
	CourseID      string            `json:"courseId"`
	Sum           string            `json:"sum" validate:"required,numeric"`
	Currency      string            `json:"currency" validate:"omitempty,oneof=RUB USD EUR"`
	StatusPayment bool              `json:"statusPayment"`
	StartDate     string            `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string            `json:"endDate" validate:"required,datetime=2006-01-02"`
	Attendance    map[string]string `json:"attendance" validate:"omitempty,dive,keys,datetime=2006-01-02,endkeys"`
	Discount      string            `json:"discount" validate:"omitempty,numeric"`
	Bonus         string            `json:"bonus" validate:"omitempty,numeric"`
	ReferralCode  string            `json:"referralCode" validate:"omitempty,max=64"`
}

// CalculateRequest runs the deduction chain on ad hoc figures.
type CalculateRequest struct {
	Gross string `json:"gross" validate:"required,numeric"`
	Rent  string `json:"rent" validate:"omitempty,numeric"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// LessonsResponse lists a course's lesson days in a window.
type LessonsResponse struct {
	CourseID generic.DocumentID `json:"courseId"`
	From     generic.Date       `json:"from"`
	To       generic.Date       `json:"to"`
	Dates    []generic.Date     `json:"dates"`
}

// LessonCountsResponse splits a month's lessons at From.
type LessonCountsResponse struct {
	CourseID generic.DocumentID `json:"courseId"`
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	From     generic.Date       `json:"from"`
	schedule.Counts
}

// ProrationResponse is the partial-month price for a late join.
type ProrationResponse struct {
	CourseID       generic.DocumentID `json:"courseId"`
	Year           int                `json:"year"`
	Month          int                `json:"month"`
	Join           generic.Date       `json:"join"`
	PricePerLesson decimal.Decimal    `json:"pricePerLesson"`
	settlement.Proration
}

// AttendanceResponse is a student's sheet for one invoice.
type AttendanceResponse struct {
	InvoiceID string                     `json:"invoiceId"`
	From      generic.Date               `json:"from"`
	To        generic.Date               `json:"to"`
	Entries   []schedule.AttendanceEntry `json:"entries"`
	Summary   schedule.AttendanceSummary `json:"summary"`
}

// ScopeDTO echoes the filters a report was built with.
type ScopeDTO struct {
	Year      int    `json:"year,omitempty"`
	Month     int    `json:"month,omitempty"`
	CourseID  string `json:"courseId,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
}

// SummaryDTO holds the headline figures, paid basis unless named total.
type SummaryDTO struct {
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PaidRevenue     decimal.Decimal `json:"paidRevenue"`
	TotalRent       decimal.Decimal `json:"totalRent"`
	TaxUSN          decimal.Decimal `json:"taxUSN"`
	BankCommission  decimal.Decimal `json:"bankCommission"`
	TeacherPayments decimal.Decimal `json:"teacherPayments"`
	CompanyProfit   decimal.Decimal `json:"companyProfit"`
}

// TeacherRowDTO is one teacher's line in the report.
type TeacherRowDTO struct {
	TeacherID    generic.DocumentID `json:"teacherId"`
	Name         string             `json:"name"`
	CourseCount  int                `json:"courseCount"`
	TotalRevenue decimal.Decimal    `json:"totalRevenue"`
	PaidRevenue  decimal.Decimal    `json:"paidRevenue"`
	Rent         decimal.Decimal    `json:"rent"`
	PaidPayout   decimal.Decimal    `json:"paidPayout"`
	TotalPayout  decimal.Decimal    `json:"totalPayout"`
	Courses      []string           `json:"courses"`
}

// CourseRowDTO is one course's line in the report.
type CourseRowDTO struct {
	CourseID     generic.DocumentID `json:"courseId"`
	Title        string             `json:"title"`
	TeacherID    generic.DocumentID `json:"teacherId,omitempty"`
	IsOnline     bool               `json:"isOnline"`
	Invoices     int                `json:"invoices"`
	Lessons      int                `json:"lessons"`
	Rent         decimal.Decimal    `json:"rent"`
	PaidRevenue  decimal.Decimal    `json:"paidRevenue"`
	TotalRevenue decimal.Decimal    `json:"totalRevenue"`
	Paid         settlement.Result  `json:"paid"`
	Total        settlement.Result  `json:"total"`
}

// ReportDTO is the settlement report as served to clients.
type ReportDTO struct {
	Scope       ScopeDTO          `json:"scope"`
	GeneratedAt string            `json:"generatedAt"`
	Invoices    int               `json:"invoices"`
	Summary     SummaryDTO        `json:"summary"`
	Paid        settlement.Result `json:"paid"`
	Total       settlement.Result `json:"total"`
	Teachers    []TeacherRowDTO   `json:"teachers"`
	Courses     []CourseRowDTO    `json:"courses"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toReportDTO(r settlement.Report, now time.Time) ReportDTO {
	dto := ReportDTO{
		Scope: ScopeDTO{
			CourseID:  string(r.Scope.CourseID),
			TeacherID: string(r.Scope.TeacherID),
		},
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Invoices:    r.Invoices,
		Summary: SummaryDTO{
			TotalRevenue:    r.TotalRevenue(),
			PaidRevenue:     r.PaidRevenue(),
			TotalRent:       r.TotalRent(),
			TaxUSN:          r.TaxUSN(),
			BankCommission:  r.BankCommission(),
			TeacherPayments: r.TeacherPayments(),
			CompanyProfit:   r.CompanyProfit(),
		},
		Paid:     r.Paid,
		Total:    r.Total,
		Teachers: make([]TeacherRowDTO, 0, len(r.Teachers)),
		Courses:  make([]CourseRowDTO, 0, len(r.Courses)),
	}
	if r.Scope.HasPeriod() {
		dto.Scope.Year = r.Scope.Year
		dto.Scope.Month = int(r.Scope.Month)
	}

	for _, tg := range r.Teachers {
		row := TeacherRowDTO{
			TeacherID:    tg.Teacher.DocumentID,
			Name:         tg.Teacher.Name,
			CourseCount:  tg.CourseCount(),
			TotalRevenue: tg.TotalRevenue,
			PaidRevenue:  tg.PaidRevenue,
			Rent:         tg.Rent,
			PaidPayout:   tg.PaidPayout,
			TotalPayout:  tg.TotalPayout,
			Courses:      make([]string, 0, len(tg.Courses)),
		}
		for _, cg := range tg.Courses {
			row.Courses = append(row.Courses, string(cg.Course.DocumentID))
		}
		dto.Teachers = append(dto.Teachers, row)
	}

	for _, cg := range r.Courses {
		dto.Courses = append(dto.Courses, CourseRowDTO{
			CourseID:     cg.Course.DocumentID,
			Title:        cg.Course.Title,
			TeacherID:    cg.Course.TeacherID(),
			IsOnline:     cg.Course.IsOnline,
			Invoices:     len(cg.Invoices),
			Lessons:      cg.Lessons,
			Rent:         cg.Rent,
			PaidRevenue:  cg.PaidRevenue,
			TotalRevenue: cg.TotalRevenue,
			Paid:         cg.Paid,
			Total:        cg.Total,
		})
	}
	return dto
}
