/*
handlers.go - HTTP API handlers for the course settlement engine

PURPOSE:
  Exposes the lesson schedule and the settlement calculator via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  schedule and settlement packages. Nothing derived is stored: every
  report is recomputed from the snapshots in the store.

ENDPOINTS:
  Users:
    GET    /api/users                          List users
    POST   /api/users                          Create user

  Courses:
    GET    /api/courses                        List courses
    POST   /api/courses                        Create course
    GET    /api/courses/{id}                   Get course
    GET    /api/courses/{id}/lessons           Lesson dates (?from=&to=)
    GET    /api/courses/{id}/lessons/counts    Completed/remaining (?year=&month=&from=)
    GET    /api/courses/{id}/prorated          Partial-month price (?year=&month=&join=)

  Invoices:
    GET    /api/invoices                       List invoices (?course=&owner=)
    POST   /api/invoices                       Create invoice
    GET    /api/invoices/{id}                  Get invoice
    GET    /api/invoices/{id}/attendance       Attendance sheet (?year=&month=)

  Settlement:
    GET    /api/reports/settlement             Report (?year=&month=&teacher=&course=)
    GET    /api/reports/settlement.xlsx        Same report as a spreadsheet
    POST   /api/settlement/calculate           Deduction chain on ad hoc figures

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Duplicate id
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/course-settlement/export"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   settlement.Store
	Rates   settlement.Rates
	Logger  *zap.Logger
	Metrics *Metrics

	validate *validator.Validate
	now      func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. logger and metrics may be nil.
func NewHandler(store settlement.Store, rates settlement.Rates, logger *zap.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Rates:    rates,
		Logger:   logger,
		Metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (h *Handler) today() generic.Date { return generic.DateOf(h.now()) }

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to list users", err)
		return
	}
	if users == nil {
		users = []settlement.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser creates a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	id := generic.DocumentID(req.DocumentID)
	if id == "" {
		id = generic.DocumentID(uuid.NewString())
	} else if _, err := h.Store.GetUser(ctx, id); err == nil {
		writeError(w, http.StatusConflict, "User already exists", fmt.Errorf("user %s: %w", id, generic.ErrDuplicateID))
		return
	}

	user := settlement.User{DocumentID: id, Name: req.Name, Email: req.Email}
	if err := h.Store.SaveUser(ctx, user); err != nil {
		writeStoreError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// =============================================================================
// COURSE HANDLERS
// =============================================================================

// ListCourses returns all courses with their teacher resolved.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Store.ListCourses(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to list courses", err)
		return
	}
	if courses == nil {
		courses = []settlement.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

// GetCourse returns a single course.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// CreateCourse creates a course snapshot.
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	course, err := h.courseFromRequest(r, req)
	if err != nil {
		writeStoreError(w, "Invalid course", err)
		return
	}

	ctx := r.Context()
	if req.DocumentID != "" {
		if _, err := h.Store.GetCourse(ctx, course.DocumentID); err == nil {
			writeError(w, http.StatusConflict, "Course already exists", fmt.Errorf("course %s: %w", course.DocumentID, generic.ErrDuplicateID))
			return
		}
	}

	if unknown := schedule.UnknownWeekdays(course.Weekdays); len(unknown) > 0 {
		h.Logger.Warn("course has unrecognized weekdays",
			zap.String("course_id", string(course.DocumentID)),
			zap.Strings("weekdays", unknown))
	}

	if err := h.Store.SaveCourse(ctx, course); err != nil {
		writeStoreError(w, "Failed to create course", err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *Handler) courseFromRequest(r *http.Request, req CreateCourseRequest) (settlement.Course, error) {
	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		return settlement.Course{}, &generic.FieldError{Field: "startDate", Err: err}
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		return settlement.Course{}, &generic.FieldError{Field: "endDate", Err: err}
	}
	if err := (generic.Period{Start: start, End: end}).Validate(); err != nil {
		return settlement.Course{}, &generic.FieldError{Field: "endDate", Err: err}
	}

	rental, err := parseAmount("rentalPrice", req.RentalPrice)
	if err != nil {
		return settlement.Course{}, err
	}
	price, err := parseAmount("pricePerLesson", req.PricePerLesson)
	if err != nil {
		return settlement.Course{}, err
	}

	course := settlement.Course{
		DocumentID:     generic.DocumentID(req.DocumentID),
		Title:          req.Title,
		Weekdays:       req.Weekdays,
		StartDate:      start,
		EndDate:        end,
		IsOnline:       req.IsOnline,
		RentalPrice:    rental,
		PricePerLesson: price,
		Currency:       currencyOrDefault(req.Currency),
	}
	if course.DocumentID == "" {
		course.DocumentID = generic.DocumentID(uuid.NewString())
	}
	if course.Weekdays == nil {
		course.Weekdays = []string{}
	}

	if req.TeacherID != "" {
		teacher, err := h.Store.GetUser(r.Context(), generic.DocumentID(req.TeacherID))
		if err != nil {
			return settlement.Course{}, &generic.FieldError{Field: "teacherId", Err: err}
		}
		course.Teacher = teacher
	}
	return course, nil
}

// GetLessons returns the course's lesson dates. The window defaults to the
// course's own interval.
func (h *Handler) GetLessons(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadCourse(w, r)
	if !ok {
		return
	}

	window := course.Active()
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		d, err := generic.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		window.Start = d
	}
	if v := q.Get("to"); v != "" {
		d, err := generic.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		window.End = d
	}

	dates := course.LessonDates(window)
	if dates == nil {
		dates = []generic.Date{}
	}
	writeJSON(w, http.StatusOK, LessonsResponse{
		CourseID: course.DocumentID,
		From:     window.Start,
		To:       window.End,
		Dates:    dates,
	})
}

// GetLessonCounts splits a month's lessons into completed and remaining.
// from defaults to today.
func (h *Handler) GetLessonCounts(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadCourse(w, r)
	if !ok {
		return
	}

	year, month, err := parseMonth(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	from := h.today()
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = generic.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, LessonCountsResponse{
		CourseID: course.DocumentID,
		Year:     year,
		Month:    int(month),
		From:     from,
		Counts:   course.LessonCounts(year, month, from),
	})
}

// GetProratedSum prices the lessons left in a month for a student joining
// on the given date.
func (h *Handler) GetProratedSum(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadCourse(w, r)
	if !ok {
		return
	}

	year, month, err := parseMonth(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	join, err := generic.ParseDate(r.URL.Query().Get("join"))
	if err != nil || join.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid join date", err)
		return
	}

	writeJSON(w, http.StatusOK, ProrationResponse{
		CourseID:       course.DocumentID,
		Year:           year,
		Month:          int(month),
		Join:           join,
		PricePerLesson: course.PricePerLesson,
		Proration:      settlement.ProratedSum(course, year, month, join),
	})
}

func (h *Handler) loadCourse(w http.ResponseWriter, r *http.Request) (*settlement.Course, bool) {
	id := generic.DocumentID(chi.URLParam(r, "id"))
	course, err := h.Store.GetCourse(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get course", err)
		return nil, false
	}
	return course, true
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices, optionally filtered by course or owner.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	invoices, err := h.Store.ListInvoices(r.Context(), settlement.InvoiceFilter{
		CourseID: generic.DocumentID(q.Get("course")),
		OwnerID:  generic.DocumentID(q.Get("owner")),
	})
	if err != nil {
		writeStoreError(w, "Failed to list invoices", err)
		return
	}
	if invoices == nil {
		invoices = []*settlement.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// CreateInvoice creates an invoice snapshot.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	inv, err := h.invoiceFromRequest(r, req)
	if err != nil {
		writeStoreError(w, "Invalid invoice", err)
		return
	}
	if req.ID != "" {
		if _, err := h.Store.GetInvoice(ctx, inv.ID); err == nil {
			writeError(w, http.StatusConflict, "Invoice already exists", fmt.Errorf("invoice %s: %w", inv.ID, generic.ErrDuplicateID))
			return
		}
	}

	if err := h.Store.SaveInvoice(ctx, inv); err != nil {
		writeStoreError(w, "Failed to create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) invoiceFromRequest(r *http.Request, req CreateInvoiceRequest) (settlement.Invoice, error) {
	ctx := r.Context()

	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		return settlement.Invoice{}, &generic.FieldError{Field: "startDate", Err: err}
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		return settlement.Invoice{}, &generic.FieldError{Field: "endDate", Err: err}
	}
	if err := (generic.Period{Start: start, End: end}).Validate(); err != nil {
		return settlement.Invoice{}, &generic.FieldError{Field: "endDate", Err: err}
	}

	sum, err := parseAmount("sum", req.Sum)
	if err != nil {
		return settlement.Invoice{}, err
	}
	discount, err := parseAmount("discount", req.Discount)
	if err != nil {
		return settlement.Invoice{}, err
	}
	bonus, err := parseAmount("bonus", req.Bonus)
	if err != nil {
		return settlement.Invoice{}, err
	}

	inv := settlement.Invoice{
		ID:            req.ID,
		DocumentID:    generic.DocumentID(req.DocumentID),
		Sum:           sum,
		Currency:      currencyOrDefault(req.Currency),
		StatusPayment: req.StatusPayment,
		StartDate:     start,
		EndDate:       end,
		Discount:      discount,
		Bonus:         bonus,
		ReferralCode:  req.ReferralCode,
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.DocumentID == "" {
		inv.DocumentID = generic.DocumentID(inv.ID)
	}
	if len(req.Attendance) > 0 {
		inv.Attendance = make(map[string]schedule.AttendanceStatus, len(req.Attendance))
		for day, status := range req.Attendance {
			inv.Attendance[day] = schedule.ParseAttendanceStatus(status)
		}
	}

	if req.CourseID != "" {
		course, err := h.Store.GetCourse(ctx, generic.DocumentID(req.CourseID))
		if err != nil {
			return settlement.Invoice{}, &generic.FieldError{Field: "courseId", Err: err}
		}
		inv.Course = course
	}
	if req.OwnerID != "" {
		owner, err := h.Store.GetUser(ctx, generic.DocumentID(req.OwnerID))
		if err != nil {
			return settlement.Invoice{}, &generic.FieldError{Field: "ownerId", Err: err}
		}
		inv.Owner = owner
	}
	return inv, nil
}

// GetAttendance returns the student's attendance sheet. With year and month
// the sheet covers that month, otherwise the whole invoice interval.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get invoice", err)
		return
	}

	year, month, err := parseMonth(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	window := inv.Personal()
	if year > 0 {
		window = generic.MonthPeriod(year, month)
	}

	sheet := inv.AttendanceSheet(window)
	writeJSON(w, http.StatusOK, AttendanceResponse{
		InvoiceID: inv.ID,
		From:      window.Start,
		To:        window.End,
		Entries:   sheet.Entries,
		Summary:   sheet.Summary(),
	})
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// GetSettlementReport builds the report for the requested scope.
func (h *Handler) GetSettlementReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report, h.now()))
}

// ExportSettlementReport streams the report as an XLSX workbook.
func (h *Handler) ExportSettlementReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(report.Scope))
	if err := export.WriteReport(w, report); err != nil {
		h.Logger.Error("failed to write settlement workbook", zap.Error(err))
	}
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (settlement.Report, bool) {
	start := time.Now()

	scope, err := parseScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report scope", err)
		return settlement.Report{}, false
	}

	invoices, err := h.Store.ListInvoices(r.Context(), settlement.InvoiceFilter{CourseID: scope.CourseID})
	if err != nil {
		writeStoreError(w, "Failed to load invoices", err)
		return settlement.Report{}, false
	}

	report := settlement.BuildReport(invoices, scope, h.Rates)

	label := "all"
	if scope.HasPeriod() {
		label = "month"
	}
	h.Metrics.ObserveReport(label, time.Since(start))
	h.Logger.Debug("settlement report built",
		zap.String("scope", label),
		zap.Int("invoices", report.Invoices),
		zap.Int("courses", len(report.Courses)),
		zap.Int("teachers", len(report.Teachers)))

	return report, true
}

// Calculate runs the deduction chain on the given gross and rent.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	gross, err := parseAmount("gross", req.Gross)
	if err != nil {
		writeStoreError(w, "Invalid gross", err)
		return
	}
	rent, err := parseAmount("rent", req.Rent)
	if err != nil {
		writeStoreError(w, "Invalid rent", err)
		return
	}

	writeJSON(w, http.StatusOK, settlement.Calculate(gross, rent, h.Rates))
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	var err error
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		err = p.Ping(r.Context())
	} else {
		_, err = h.Store.ListUsers(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseScope reads year, month, teacher and course from the query string.
// year and month must come together.
func parseScope(r *http.Request) (settlement.Scope, error) {
	year, month, err := parseMonth(r, false)
	if err != nil {
		return settlement.Scope{}, err
	}
	q := r.URL.Query()
	return settlement.Scope{
		Year:      year,
		Month:     month,
		CourseID:  generic.DocumentID(strings.TrimSpace(q.Get("course"))),
		TeacherID: generic.DocumentID(strings.TrimSpace(q.Get("teacher"))),
	}, nil
}

// parseMonth reads ?year=&month=. Both absent is allowed unless required.
func parseMonth(r *http.Request, required bool) (int, time.Month, error) {
	q := r.URL.Query()
	ys, ms := q.Get("year"), q.Get("month")
	if ys == "" && ms == "" {
		if required {
			return 0, 0, errors.New("year and month are required")
		}
		return 0, 0, nil
	}
	if ys == "" || ms == "" {
		return 0, 0, errors.New("year and month must be given together")
	}

	year, err := strconv.Atoi(ys)
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid year %q", ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", ms)
	}
	return year, time.Month(month), nil
}

// parseAmount parses a non-negative decimal. Empty means zero.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &generic.FieldError{Field: field, Err: generic.ErrInvalidAmount}
	}
	if d.IsNegative() {
		return decimal.Zero, &generic.FieldError{Field: field, Err: generic.ErrInvalidAmount}
	}
	return d, nil
}

func currencyOrDefault(s string) generic.Currency {
	if s == "" {
		return generic.DefaultCurrency
	}
	return generic.Currency(s)
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. It writes the 400 response itself and returns false on error.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_error",
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps domain errors to HTTP statuses. A missing record
// referenced from a request body is the client's fault, not a 404.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	var fe *generic.FieldError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, generic.ErrDuplicateID):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
