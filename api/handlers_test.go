/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Snapshot creation (users, courses, invoices) and validation
- Lesson dates, lesson counts, proration, attendance
- Settlement report (JSON and XLSX) and ad hoc calculation
- Metrics and health endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/course-settlement/export"
	"github.com/warp/course-settlement/settlement"
	"github.com/warp/course-settlement/store/sqlite"
)

// =============================================================================
// HELPERS
// =============================================================================

func setupTestRouter(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, settlement.DefaultRates(), nil, NewMetrics())
	h.now = func() time.Time { return time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC) }
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: expected %s, got %s", field, want, got)
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// seedMonWedCourse creates a teacher and a Mon/Wed course over January 2024.
func seedMonWedCourse(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/users", CreateUserRequest{DocumentID: "t-1", Name: "Anna"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/courses", CreateCourseRequest{
		DocumentID:     "c-1",
		Title:          "Pottery",
		Weekdays:       []string{"Monday", "wednesday"},
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
		RentalPrice:    "100",
		PricePerLesson: "1000",
		TeacherID:      "t-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// SNAPSHOT ENDPOINTS
// =============================================================================

func TestCreateCourse_ResolvesTeacher(t *testing.T) {
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var course settlement.Course
	decode(t, rec, &course)
	assert.Equal(t, "Pottery", course.Title)
	require.NotNil(t, course.Teacher)
	assert.Equal(t, "Anna", course.Teacher.Name)
	assertDecimal(t, "100", course.RentalPrice, "rentalPrice")
}

func TestCreateCourse_UnknownTeacherIsBadRequest(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/courses", CreateCourseRequest{
		Title:     "Pottery",
		Weekdays:  []string{"monday"},
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		TeacherID: "nobody",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCourse_EndBeforeStartRejected(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/courses", CreateCourseRequest{
		Title:     "Pottery",
		StartDate: "2024-02-01",
		EndDate:   "2024-01-01",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCourse_ValidationErrorsListFields(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/courses", map[string]any{
		"startDate":   "01/01/2024",
		"endDate":     "2024-01-31",
		"rentalPrice": "a lot",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Equal(t, "required", resp.Details["Title"])
	assert.Equal(t, "datetime", resp.Details["StartDate"])
	assert.Equal(t, "numeric", resp.Details["RentalPrice"])
}

func TestCreateUser_GeneratesIDAndRejectsDuplicate(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Olga"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var user settlement.User
	decode(t, rec, &user)
	assert.Len(t, string(user.DocumentID), 36, "uuid")

	rec = do(t, router, http.MethodPost, "/api/users", CreateUserRequest{DocumentID: string(user.DocumentID), Name: "Olga again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCourse_NotFound(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/courses/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/invoices/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInvoice_NegativeSumRejected(t *testing.T) {
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodPost, "/api/invoices", CreateInvoiceRequest{
		CourseID:  "c-1",
		Sum:       "-100",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvoices_FilterByCourse(t *testing.T) {
	_, router := setupTestRouter(t)
	loadScenario(t, router, "january-studio")

	rec := do(t, router, http.MethodGet, "/api/invoices?course=c-drawing-online", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var invoices []settlement.Invoice
	decode(t, rec, &invoices)
	require.Len(t, invoices, 2)
	for _, inv := range invoices {
		require.NotNil(t, inv.Course)
		assert.Equal(t, "c-drawing-online", string(inv.Course.DocumentID))
	}
}

// =============================================================================
// SCHEDULE ENDPOINTS
// =============================================================================

func TestGetLessons_MondayWednesdayJanuary(t *testing.T) {
	// GIVEN: A Mon/Wed course over January 2024
	// WHEN: Listing lessons for January
	// THEN: 10 dates, 1st through 31st

	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1/lessons?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dates []string `json:"dates"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, []string{
		"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10", "2024-01-15",
		"2024-01-17", "2024-01-22", "2024-01-24", "2024-01-29", "2024-01-31",
	}, resp.Dates)
}

func TestGetLessons_WindowOutsideCourseIsEmpty(t *testing.T) {
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1/lessons?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dates":[]`)
}

func TestGetLessonCounts_DefaultsFromToToday(t *testing.T) {
	// Handler clock is 2024-01-15: 4 lessons before, 6 on or after.
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1/lessons/counts?year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LessonCountsResponse
	decode(t, rec, &resp)
	assert.Equal(t, 10, resp.Total)
	assert.Equal(t, 4, resp.Completed)
	assert.Equal(t, 6, resp.Remaining)
	assert.Equal(t, "2024-01-15", resp.From.String())
}

func TestGetLessonCounts_MonthRequired(t *testing.T) {
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1/lessons/counts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/courses/c-1/lessons/counts?year=2024&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProratedSum_JoinOnFifteenth(t *testing.T) {
	_, router := setupTestRouter(t)
	seedMonWedCourse(t, router)

	rec := do(t, router, http.MethodGet, "/api/courses/c-1/prorated?year=2024&month=1&join=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProrationResponse
	decode(t, rec, &resp)
	assert.Equal(t, 6, resp.Counts.Remaining)
	assertDecimal(t, "6000", resp.Sum, "sum")
	assertDecimal(t, "10000", resp.Full, "full")
}

func TestGetAttendance_LateJoiner(t *testing.T) {
	// GIVEN: Daria joins the Tue/Sat guitar course on 2024-03-12
	// WHEN: Fetching her March attendance
	// THEN: 6 lessons from the 12th; first present, second absent

	_, router := setupTestRouter(t)
	loadScenario(t, router, "late-joiners")

	rec := do(t, router, http.MethodGet, "/api/invoices/inv-3002/attendance?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AttendanceResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Entries, 6)
	assert.Equal(t, "2024-03-12", resp.Entries[0].Date.String())
	assert.Equal(t, "present", string(resp.Entries[0].Status))
	assert.Equal(t, "absent", string(resp.Entries[1].Status))
	assert.Equal(t, 1, resp.Summary.Present)
	assert.Equal(t, 1, resp.Summary.Absent)
	assert.Equal(t, 4, resp.Summary.Unknown)

	rec = do(t, router, http.MethodGet, "/api/invoices/inv-3002", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inv settlement.Invoice
	decode(t, rec, &inv)
	assertDecimal(t, "4500", inv.Sum, "prorated sum")
}

// =============================================================================
// SETTLEMENT ENDPOINTS
// =============================================================================

func TestSettlementReport_JanuaryStudio(t *testing.T) {
	// GIVEN: The january-studio scenario
	// WHEN: Requesting the January 2024 report
	// THEN: February invoice excluded; hall rent 10 x 100; payouts per teacher

	_, router := setupTestRouter(t)
	loadScenario(t, router, "january-studio")

	rec := do(t, router, http.MethodGet, "/api/reports/settlement?year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report ReportDTO
	decode(t, rec, &report)

	assert.Equal(t, 2024, report.Scope.Year)
	assert.Equal(t, 1, report.Scope.Month)
	assert.Equal(t, 3, report.Invoices)
	assertDecimal(t, "23000", report.Summary.TotalRevenue, "totalRevenue")
	assertDecimal(t, "18000", report.Summary.PaidRevenue, "paidRevenue")
	assertDecimal(t, "1000", report.Summary.TotalRent, "totalRent")
	assertDecimal(t, "1080", report.Summary.TaxUSN, "taxUSN")
	assertDecimal(t, "720", report.Summary.BankCommission, "bankCommission")
	assertDecimal(t, "10640", report.Summary.TeacherPayments, "teacherPayments")
	assertDecimal(t, "4560", report.Summary.CompanyProfit, "companyProfit")

	require.Len(t, report.Teachers, 2)
	assert.Equal(t, "Anna Petrova", report.Teachers[0].Name)
	assertDecimal(t, "5600", report.Teachers[0].PaidPayout, "anna")
	assert.Equal(t, "Boris Ivanov", report.Teachers[1].Name)
	assertDecimal(t, "5040", report.Teachers[1].PaidPayout, "boris")

	require.Len(t, report.Courses, 2)
	assert.Equal(t, 10, report.Courses[0].Lessons)
	assertDecimal(t, "0", report.Courses[1].Rent, "online rent")
}

func TestSettlementReport_LossMakingHall(t *testing.T) {
	// GIVEN: One teacher, a hall whose rent exceeds after-tax revenue and
	//        a profitable online course
	// THEN: Teacher payout is the sum of per-course payouts (0 + 6300), not
	//       the commingled figure (5950) shown in the summary

	_, router := setupTestRouter(t)
	loadScenario(t, router, "loss-making-hall")

	rec := do(t, router, http.MethodGet, "/api/reports/settlement", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ReportDTO
	decode(t, rec, &report)

	require.Len(t, report.Teachers, 1)
	assertDecimal(t, "6300", report.Teachers[0].PaidPayout, "per-course sum")
	assertDecimal(t, "5950", report.Summary.TeacherPayments, "aggregate")
	assert.Equal(t, 2, report.Teachers[0].CourseCount)
}

func TestSettlementReport_TeacherFilter(t *testing.T) {
	_, router := setupTestRouter(t)
	loadScenario(t, router, "january-studio")

	rec := do(t, router, http.MethodGet, "/api/reports/settlement?year=2024&month=1&teacher=t-boris", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ReportDTO
	decode(t, rec, &report)
	assert.Equal(t, "t-boris", report.Scope.TeacherID)
	require.Len(t, report.Teachers, 1)
	assertDecimal(t, "8000", report.Summary.PaidRevenue, "paidRevenue")
}

func TestSettlementReport_InvalidScope(t *testing.T) {
	_, router := setupTestRouter(t)

	for _, query := range []string{"?year=2024", "?month=3", "?year=2024&month=0", "?year=abc&month=1"} {
		rec := do(t, router, http.MethodGet, "/api/reports/settlement"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestSettlementReport_EmptyStore(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/reports/settlement?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ReportDTO
	decode(t, rec, &report)
	assert.Equal(t, 0, report.Invoices)
	assert.Empty(t, report.Teachers)
	assertDecimal(t, "0", report.Summary.TeacherPayments, "teacherPayments")
}

func TestExportSettlementReport_XLSX(t *testing.T) {
	_, router := setupTestRouter(t)
	loadScenario(t, router, "january-studio")

	rec := do(t, router, http.MethodGet, "/api/reports/settlement.xlsx?year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "settlement_2024_01.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	v, err := f.GetCellValue(export.SheetSummary, "B11")
	require.NoError(t, err)
	assert.Equal(t, "10640", v)
}

func TestCalculate_StandardSplit(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/settlement/calculate", CalculateRequest{Gross: "10000", Rent: "1000"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result settlement.Result
	decode(t, rec, &result)
	assertDecimal(t, "1000", result.TaxAndCommission, "taxAndCommission")
	assertDecimal(t, "8000", result.NetAfterRent, "net")
	assertDecimal(t, "5600", result.TeacherPayout, "teacher")
	assertDecimal(t, "2400", result.CompanyProfit, "company")
}

func TestCalculate_GrossRequired(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/settlement/calculate", map[string]string{"rent": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/settlement/calculate", CalculateRequest{Gross: "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OPERATIONAL ENDPOINTS
// =============================================================================

func TestMetrics_CountsReports(t *testing.T) {
	_, router := setupTestRouter(t)

	do(t, router, http.MethodGet, "/api/reports/settlement?year=2024&month=1", nil)
	do(t, router, http.MethodGet, "/api/reports/settlement", nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `settlement_reports_total{scope="month"} 1`)
	assert.Contains(t, body, `settlement_reports_total{scope="all"} 1`)
	assert.True(t, strings.Contains(body, `path="/api/reports/settlement"`), "route pattern label")
}

func TestHealthz(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
