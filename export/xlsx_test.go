package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/course-settlement/export"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/settlement"
)

func januaryReport() settlement.Report {
	anna := &settlement.User{DocumentID: "t-anna", Name: "Anna"}
	boris := &settlement.User{DocumentID: "t-boris", Name: "Boris"}

	hall := &settlement.Course{
		DocumentID:  "c-hall",
		Title:       "Pottery",
		Weekdays:    []string{"monday", "wednesday"},
		StartDate:   generic.NewDate(2024, time.January, 1),
		EndDate:     generic.NewDate(2024, time.June, 30),
		RentalPrice: decimal.NewFromInt(100),
		Teacher:     anna,
	}
	web := &settlement.Course{
		DocumentID: "c-web",
		Title:      "Drawing online",
		Weekdays:   []string{"tuesday"},
		StartDate:  generic.NewDate(2024, time.January, 1),
		EndDate:    generic.NewDate(2024, time.June, 30),
		IsOnline:   true,
		Teacher:    boris,
	}

	invoices := []*settlement.Invoice{
		{ID: "i1", Course: hall, Sum: decimal.NewFromInt(10000), StatusPayment: true, StartDate: generic.NewDate(2024, time.January, 5)},
		{ID: "i2", Course: hall, Sum: decimal.NewFromInt(5000), StartDate: generic.NewDate(2024, time.January, 20)},
		{ID: "i3", Course: web, Sum: decimal.NewFromInt(8000), StatusPayment: true, StartDate: generic.NewDate(2024, time.January, 10)},
	}
	return settlement.BuildReport(invoices, settlement.Scope{Year: 2024, Month: time.January}, settlement.DefaultRates())
}

func TestWriteReport_Sheets(t *testing.T) {
	// GIVEN: A January report with two teachers
	// WHEN: Rendering it to XLSX and reading it back
	// THEN: Summary, Teachers and Courses sheets carry the report's figures

	var buf bytes.Buffer
	require.NoError(t, export.WriteReport(&buf, januaryReport()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{export.SheetSummary, export.SheetTeachers, export.SheetCourses}, f.GetSheetList())

	get := func(sheet, cell string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "2024-01", get(export.SheetSummary, "B1"))
	assert.Equal(t, "3", get(export.SheetSummary, "B2"))
	assert.Equal(t, "Revenue", get(export.SheetSummary, "A5"))
	assert.Equal(t, "18000", get(export.SheetSummary, "B5"))
	assert.Equal(t, "23000", get(export.SheetSummary, "C5"))
	assert.Equal(t, "Teacher payments", get(export.SheetSummary, "A11"))
	assert.Equal(t, "10640", get(export.SheetSummary, "B11"))
	assert.Equal(t, "4560", get(export.SheetSummary, "B12"))

	teachers, err := f.GetRows(export.SheetTeachers)
	require.NoError(t, err)
	require.Len(t, teachers, 3)
	assert.Equal(t, "Anna", teachers[1][1])
	assert.Equal(t, "5600", teachers[1][6])
	assert.Equal(t, "Boris", teachers[2][1])
	assert.Equal(t, "5040", teachers[2][6])

	courses, err := f.GetRows(export.SheetCourses)
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, "c-hall", courses[1][0])
	assert.Equal(t, "10", courses[1][5], "lessons")
	assert.Equal(t, "1000", courses[1][6], "rent")
	assert.Equal(t, "0", courses[2][6], "online course pays no rent")
}

func TestWriteReport_EmptyReport(t *testing.T) {
	report := settlement.BuildReport(nil, settlement.Scope{}, settlement.DefaultRates())

	var buf bytes.Buffer
	require.NoError(t, export.WriteReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	v, err := f.GetCellValue(export.SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "all time", v)

	rows, err := f.GetRows(export.SheetTeachers)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "settlement_2024_03.xlsx", export.Filename(settlement.Scope{Year: 2024, Month: time.March}))
	assert.Equal(t, "settlement_all.xlsx", export.Filename(settlement.Scope{}))
}
