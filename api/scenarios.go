/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	snapshots for demos. Each scenario creates teachers, students, courses
	and invoices that exercise one part of the settlement rules.

AVAILABLE SCENARIOS:

	january-studio:   Two teachers, an offline hall and an online course
	loss-making-hall: Rent above after-tax revenue on one course
	late-joiners:     Mid-month joins priced by remaining lessons, with attendance

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Create users
 3. Create courses referencing their teacher
 4. Create invoices referencing course and student

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "january-studio"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the 'loaders' map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report endpoints to inspect the loaded data
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "january-studio",
		Name:        "January Studio",
		Description: "Offline hall with rent and an online course, paid and unpaid invoices",
	},
	{
		ID:          "loss-making-hall",
		Name:        "Loss-Making Hall",
		Description: "Rent exceeds after-tax revenue on one course; payouts floor at zero",
	},
	{
		ID:          "late-joiners",
		Name:        "Late Joiners",
		Description: "Students joining mid-month, prorated by remaining lessons, with attendance",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"january-studio":   h.loadJanuaryStudioScenario,
		"loss-making-hall": h.loadLossMakingHallScenario,
		"late-joiners":     h.loadLateJoinersScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every snapshot.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	h.Logger.Info("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func day(year int, month time.Month, d int) generic.Date { return generic.NewDate(year, month, d) }

// seed saves users, then courses, then invoices.
func (h *Handler) seed(ctx context.Context, users []settlement.User, courses []settlement.Course, invoices []settlement.Invoice) error {
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user %s: %w", u.DocumentID, err)
		}
	}
	for _, c := range courses {
		if err := h.Store.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("save course %s: %w", c.DocumentID, err)
		}
	}
	for _, inv := range invoices {
		if err := h.Store.SaveInvoice(ctx, inv); err != nil {
			return fmt.Errorf("save invoice %s: %w", inv.ID, err)
		}
	}
	return nil
}

func monthInvoice(id string, course *settlement.Course, student *settlement.User, sum int64, paid bool, start generic.Date) settlement.Invoice {
	return settlement.Invoice{
		ID:            id,
		DocumentID:    generic.DocumentID("doc-" + id),
		Owner:         student,
		Course:        course,
		Sum:           amount(sum),
		Currency:      generic.CurrencyRUB,
		StatusPayment: paid,
		StartDate:     start,
		EndDate:       generic.EndOfMonth(start.Year(), start.Month()),
		Discount:      decimal.Zero,
		Bonus:         decimal.Zero,
	}
}

// loadJanuaryStudioScenario: the hall course has 10 Mon/Wed lessons in
// January 2024 at 100 rent each; the online course pays no rent. One
// February invoice sits outside the January report.
func (h *Handler) loadJanuaryStudioScenario(ctx context.Context) error {
	anna := settlement.User{DocumentID: "t-anna", Name: "Anna Petrova", Email: "anna@example.com"}
	boris := settlement.User{DocumentID: "t-boris", Name: "Boris Ivanov", Email: "boris@example.com"}
	olga := settlement.User{DocumentID: "s-olga", Name: "Olga"}
	pavel := settlement.User{DocumentID: "s-pavel", Name: "Pavel"}
	irina := settlement.User{DocumentID: "s-irina", Name: "Irina"}

	hall := settlement.Course{
		DocumentID:     "c-pottery",
		Title:          "Pottery",
		Weekdays:       []string{"Monday", "Wednesday"},
		StartDate:      day(2024, time.January, 1),
		EndDate:        day(2024, time.June, 30),
		RentalPrice:    amount(100),
		PricePerLesson: amount(1000),
		Teacher:        &anna,
		Currency:       generic.CurrencyRUB,
	}
	web := settlement.Course{
		DocumentID:     "c-drawing-online",
		Title:          "Drawing (online)",
		Weekdays:       []string{"Tuesday", "Thursday"},
		StartDate:      day(2024, time.January, 1),
		EndDate:        day(2024, time.June, 30),
		IsOnline:       true,
		RentalPrice:    amount(500),
		PricePerLesson: amount(800),
		Teacher:        &boris,
		Currency:       generic.CurrencyRUB,
	}

	return h.seed(ctx,
		[]settlement.User{anna, boris, olga, pavel, irina},
		[]settlement.Course{hall, web},
		[]settlement.Invoice{
			monthInvoice("inv-1001", &hall, &olga, 10000, true, day(2024, time.January, 1)),
			monthInvoice("inv-1002", &hall, &pavel, 5000, false, day(2024, time.January, 15)),
			monthInvoice("inv-1003", &web, &irina, 8000, true, day(2024, time.January, 1)),
			monthInvoice("inv-1004", &web, &irina, 8000, true, day(2024, time.February, 1)),
		})
}

// loadLossMakingHallScenario: the hall's rent (10 lessons x 950) is above
// its after-tax revenue, so that course pays nothing while the teacher's
// online course still pays out.
func (h *Handler) loadLossMakingHallScenario(ctx context.Context) error {
	anna := settlement.User{DocumentID: "t-anna", Name: "Anna Petrova"}
	olga := settlement.User{DocumentID: "s-olga", Name: "Olga"}
	pavel := settlement.User{DocumentID: "s-pavel", Name: "Pavel"}

	hall := settlement.Course{
		DocumentID:     "c-hall",
		Title:          "Ballet (city hall)",
		Weekdays:       []string{"monday", "wednesday"},
		StartDate:      day(2024, time.January, 1),
		EndDate:        day(2024, time.January, 31),
		RentalPrice:    amount(950),
		PricePerLesson: amount(1000),
		Teacher:        &anna,
		Currency:       generic.CurrencyRUB,
	}
	web := settlement.Course{
		DocumentID:     "c-stretching-online",
		Title:          "Stretching (online)",
		Weekdays:       []string{"friday"},
		StartDate:      day(2024, time.January, 1),
		EndDate:        day(2024, time.January, 31),
		IsOnline:       true,
		PricePerLesson: amount(2000),
		Teacher:        &anna,
		Currency:       generic.CurrencyRUB,
	}

	return h.seed(ctx,
		[]settlement.User{anna, olga, pavel},
		[]settlement.Course{hall, web},
		[]settlement.Invoice{
			monthInvoice("inv-2001", &hall, &olga, 10000, true, day(2024, time.January, 1)),
			monthInvoice("inv-2002", &web, &pavel, 10000, true, day(2024, time.January, 1)),
		})
}

// loadLateJoinersScenario prices each late joiner with ProratedSum, so the
// invoice sum equals PricePerLesson times the lessons left in the month.
func (h *Handler) loadLateJoinersScenario(ctx context.Context) error {
	maria := settlement.User{DocumentID: "t-maria", Name: "Maria Sokolova"}
	students := []settlement.User{
		{DocumentID: "s-1", Name: "Alexei"},
		{DocumentID: "s-2", Name: "Daria"},
		{DocumentID: "s-3", Name: "Egor"},
	}

	course := settlement.Course{
		DocumentID:     "c-guitar",
		Title:          "Guitar for beginners",
		Weekdays:       []string{"tuesday", "saturday"},
		StartDate:      day(2024, time.March, 1),
		EndDate:        day(2024, time.August, 31),
		RentalPrice:    amount(300),
		PricePerLesson: amount(750),
		Teacher:        &maria,
		Currency:       generic.CurrencyRUB,
	}

	joins := []generic.Date{
		day(2024, time.March, 1),
		day(2024, time.March, 12),
		day(2024, time.March, 23),
	}

	var invoices []settlement.Invoice
	for i, join := range joins {
		proration := settlement.ProratedSum(&course, 2024, time.March, join)
		inv := monthInvoice(fmt.Sprintf("inv-30%02d", i+1), &course, &students[i], proration.Sum.IntPart(), i != 2, join)
		inv.Sum = proration.Sum

		// first lesson attended, second missed
		inv.Attendance = map[string]schedule.AttendanceStatus{}
		for j, d := range course.LessonDates(inv.Personal()) {
			if j > 1 {
				break
			}
			status := schedule.AttendancePresent
			if j == 1 {
				status = schedule.AttendanceAbsent
			}
			inv.Attendance[d.String()] = status
		}
		invoices = append(invoices, inv)
	}

	users := append([]settlement.User{maria}, students...)
	return h.seed(ctx, users, []settlement.Course{course}, invoices)
}
