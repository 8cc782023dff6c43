// Package storetest holds the behaviour every settlement.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) settlement.Store) {
	t.Run("UserRoundTrip", func(t *testing.T) { testUserRoundTrip(t, newStore(t)) })
	t.Run("CourseResolvesTeacher", func(t *testing.T) { testCourseResolvesTeacher(t, newStore(t)) })
	t.Run("InvoiceRoundTrip", func(t *testing.T) { testInvoiceRoundTrip(t, newStore(t)) })
	t.Run("ListInvoicesFilter", func(t *testing.T) { testListInvoicesFilter(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("Upsert", func(t *testing.T) { testUpsert(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func teacher() settlement.User {
	return settlement.User{DocumentID: "t-1", Name: "Anna", Email: "anna@example.com"}
}

func course() settlement.Course {
	t := teacher()
	return settlement.Course{
		DocumentID:     "c-1",
		Title:          "Ceramics",
		Weekdays:       []string{"monday", "wednesday"},
		StartDate:      generic.NewDate(2024, time.January, 1),
		EndDate:        generic.NewDate(2024, time.May, 31),
		RentalPrice:    decimal.RequireFromString("500"),
		PricePerLesson: decimal.RequireFromString("1200.50"),
		Teacher:        &t,
		Currency:       generic.CurrencyRUB,
	}
}

func invoice(id string, start generic.Date) settlement.Invoice {
	c := course()
	return settlement.Invoice{
		ID:            id,
		DocumentID:    generic.DocumentID("doc-" + id),
		Owner:         &settlement.User{DocumentID: "s-1"},
		Course:        &c,
		Sum:           decimal.RequireFromString("9600"),
		Currency:      generic.CurrencyRUB,
		StatusPayment: true,
		StartDate:     start,
		EndDate:       start.AddDays(30),
		Attendance: map[string]schedule.AttendanceStatus{
			"2024-01-01": schedule.AttendancePresent,
		},
		Discount:     decimal.RequireFromString("400"),
		Bonus:        decimal.Zero,
		ReferralCode: "FRIEND",
	}
}

func seed(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, teacher()))
	require.NoError(t, s.SaveUser(ctx, settlement.User{DocumentID: "s-1", Name: "Student"}))
	require.NoError(t, s.SaveCourse(ctx, course()))
}

func testUserRoundTrip(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, teacher()))

	got, err := s.GetUser(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, teacher(), *got)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func testCourseResolvesTeacher(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	seed(t, s)

	got, err := s.GetCourse(ctx, "c-1")
	require.NoError(t, err)

	assert.Equal(t, "Ceramics", got.Title)
	assert.Equal(t, []string{"monday", "wednesday"}, got.Weekdays)
	assert.Equal(t, "2024-01-01", got.StartDate.String())
	assert.Equal(t, "2024-05-31", got.EndDate.String())
	assert.True(t, got.PricePerLesson.Equal(decimal.RequireFromString("1200.50")))
	require.NotNil(t, got.Teacher)
	assert.Equal(t, "Anna", got.Teacher.Name)

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func testInvoiceRoundTrip(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.SaveInvoice(ctx, invoice("i-1", generic.NewDate(2024, time.January, 1))))

	got, err := s.GetInvoice(ctx, "i-1")
	require.NoError(t, err)

	assert.True(t, got.Sum.Equal(decimal.RequireFromString("9600")))
	assert.True(t, got.StatusPayment)
	assert.Equal(t, "2024-01-31", got.EndDate.String())
	assert.Equal(t, schedule.AttendancePresent, got.Attendance["2024-01-01"])
	assert.Equal(t, "FRIEND", got.ReferralCode)
	require.NotNil(t, got.Course)
	assert.Equal(t, generic.DocumentID("c-1"), got.Course.DocumentID)
	require.NotNil(t, got.Course.Teacher)
	assert.Equal(t, "Anna", got.Course.Teacher.Name)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "Student", got.Owner.Name)
}

func testListInvoicesFilter(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	seed(t, s)

	other := course()
	other.DocumentID = "c-2"
	require.NoError(t, s.SaveCourse(ctx, other))

	require.NoError(t, s.SaveInvoice(ctx, invoice("i-2", generic.NewDate(2024, time.February, 1))))
	require.NoError(t, s.SaveInvoice(ctx, invoice("i-1", generic.NewDate(2024, time.January, 1))))
	moved := invoice("i-3", generic.NewDate(2024, time.January, 10))
	moved.Course = &other
	require.NoError(t, s.SaveInvoice(ctx, moved))

	all, err := s.ListInvoices(ctx, settlement.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "i-1", all[0].ID, "ordered by start date")
	assert.Equal(t, "i-3", all[1].ID)

	byCourse, err := s.ListInvoices(ctx, settlement.InvoiceFilter{CourseID: "c-2"})
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	assert.Equal(t, "i-3", byCourse[0].ID)

	byOwner, err := s.ListInvoices(ctx, settlement.InvoiceFilter{OwnerID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, byOwner)
}

func testNotFound(t *testing.T, s settlement.Store) {
	ctx := context.Background()

	_, err := s.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrCourseNotFound)

	_, err = s.GetInvoice(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrInvoiceNotFound)

	_, err = s.GetUser(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))
}

func testUpsert(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	seed(t, s)

	inv := invoice("i-1", generic.NewDate(2024, time.January, 1))
	require.NoError(t, s.SaveInvoice(ctx, inv))
	inv.StatusPayment = false
	inv.Sum = decimal.RequireFromString("100")
	require.NoError(t, s.SaveInvoice(ctx, inv))

	got, err := s.GetInvoice(ctx, "i-1")
	require.NoError(t, err)
	assert.False(t, got.StatusPayment)
	assert.True(t, got.Sum.Equal(decimal.RequireFromString("100")))

	all, err := s.ListInvoices(ctx, settlement.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testReset(t *testing.T, s settlement.Store) {
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.SaveInvoice(ctx, invoice("i-1", generic.NewDate(2024, time.January, 1))))

	require.NoError(t, s.Reset(ctx))

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses)
	invoices, err := s.ListInvoices(ctx, settlement.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}
