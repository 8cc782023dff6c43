package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/settlement"
	"github.com/warp/course-settlement/store/sqlite"
	"github.com/warp/course-settlement/store/storetest"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) settlement.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A course saved to a file database
	// WHEN: The database is closed and reopened
	// THEN: The course is still there with exact amounts

	path := filepath.Join(t.TempDir(), "settlement.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveCourse(ctx, settlement.Course{
		DocumentID:  "c-1",
		Title:       "Pottery",
		Weekdays:    []string{"friday"},
		StartDate:   generic.NewDate(2024, time.March, 1),
		EndDate:     generic.NewDate(2024, time.March, 31),
		RentalPrice: decimal.RequireFromString("333.33"),
		Currency:    generic.CurrencyRUB,
	}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetCourse(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "333.33", got.RentalPrice.StringFixed(2))
	assert.Nil(t, got.Teacher)
	assert.Len(t, got.LessonDates(generic.MonthPeriod(2024, time.March)), 5)
}

func TestSQLiteStore_InvoiceWithUnknownCourse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, settlement.Invoice{
		ID:     "i-1",
		Sum:    decimal.NewFromInt(100),
		Course: &settlement.Course{DocumentID: "ghost"},
	}))

	got, err := store.GetInvoice(ctx, "i-1")
	require.NoError(t, err)
	assert.Nil(t, got.Course)
}

// corrupt saves a valid invoice to a file database, then rewrites one column
// behind the store's back.
func corrupt(t *testing.T, column, value string) *sqlite.Store {
	path := filepath.Join(t.TempDir(), "settlement.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveInvoice(ctx, settlement.Invoice{
		ID:        "i-1",
		Sum:       decimal.NewFromInt(100),
		StartDate: generic.NewDate(2024, time.January, 1),
		EndDate:   generic.NewDate(2024, time.January, 31),
	}))
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE invoices SET "+column+" = ? WHERE id = ?", value, "i-1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	return reopened
}

func TestSQLiteStore_CorruptSumIsAnError(t *testing.T) {
	// GIVEN: An invoice whose stored sum is not a number
	// WHEN: Reading it back
	// THEN: The read fails instead of reporting a zero sum

	store := corrupt(t, "sum", "12,5O")

	_, err := store.GetInvoice(context.Background(), "i-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad sum")

	_, err = store.ListInvoices(context.Background(), settlement.InvoiceFilter{})
	assert.Error(t, err)
}

func TestSQLiteStore_CorruptAttendanceIsAnError(t *testing.T) {
	store := corrupt(t, "attendance_json", "{not json")

	_, err := store.GetInvoice(context.Background(), "i-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad attendance")
}
