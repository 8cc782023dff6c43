package generic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_Formats(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.February, 29), d)

	// CMS timestamps keep only the calendar day
	d, err = ParseDate("2024-03-10T23:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", d.String())

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("10.03.2024")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: NewDate(2024, time.January, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2024-01-05","b":null}`, string(raw))

	var got struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.True(t, got.A.Equal(NewDate(2024, time.January, 5)))
	assert.True(t, got.B.IsZero())
}

func TestEndOfMonth_LeapYears(t *testing.T) {
	assert.Equal(t, 29, EndOfMonth(2024, time.February).Day())
	assert.Equal(t, 28, EndOfMonth(2023, time.February).Day())
	assert.Equal(t, 29, EndOfMonth(2000, time.February).Day())
	assert.Equal(t, 28, EndOfMonth(1900, time.February).Day())
	assert.Equal(t, 31, EndOfMonth(2024, time.December).Day())
}

func TestPeriod_Intersect(t *testing.T) {
	jan := MonthPeriod(2024, time.January)
	course := Period{Start: NewDate(2024, time.January, 20), End: NewDate(2024, time.March, 1)}

	got := jan.Intersect(course)
	assert.Equal(t, "[2024-01-20, 2024-01-31]", got.String())
	assert.Len(t, got.Days(), 12)

	disjoint := jan.Intersect(MonthPeriod(2024, time.March))
	assert.True(t, disjoint.IsEmpty())
	assert.Nil(t, disjoint.Days())
	assert.ErrorIs(t, disjoint.Validate(), ErrInvalidPeriod)
}

func TestPeriod_MissingBoundIsEmpty(t *testing.T) {
	// GIVEN: A period with no dates and one with only a start
	// WHEN: Intersecting with January
	// THEN: Both are empty and contribute no days

	jan := MonthPeriod(2024, time.January)
	undated := Period{}
	openEnded := Period{Start: NewDate(2024, time.January, 1)}

	assert.True(t, undated.IsEmpty())
	assert.True(t, openEnded.IsEmpty())
	assert.True(t, jan.Intersect(undated).IsEmpty())
	assert.True(t, openEnded.Intersect(jan).IsEmpty())
	assert.Nil(t, jan.Intersect(openEnded).Days())
}

func TestPeriod_ContainsBounds(t *testing.T) {
	p := MonthPeriod(2024, time.April)

	assert.True(t, p.Contains(NewDate(2024, time.April, 1)))
	assert.True(t, p.Contains(NewDate(2024, time.April, 30)))
	assert.False(t, p.Contains(NewDate(2024, time.March, 31)))
	assert.False(t, p.Contains(NewDate(2024, time.May, 1)))
}

func TestIsNotFound(t *testing.T) {
	err := &FieldError{Field: "courseId", Err: ErrCourseNotFound}

	assert.True(t, IsNotFound(err))
	assert.False(t, IsClientError(err))
	assert.Equal(t, "courseId: course not found", err.Error())
}
