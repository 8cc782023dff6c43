package schedule

import (
	"time"

	"github.com/warp/course-settlement/generic"
)

// =============================================================================
// LESSON DATES
// =============================================================================

// LessonDates returns every day in query ∩ active whose weekday is in the
// set, strictly ascending. Empty when the intersection is empty or no
// weekday is set.
func (s WeekdaySet) LessonDates(query, active generic.Period) []generic.Date {
	effective := query.Intersect(active)
	if s.IsEmpty() || effective.IsEmpty() {
		return nil
	}

	var dates []generic.Date
	for current := effective.Start; current.BeforeOrEqual(effective.End); current = current.AddDays(1) {
		if s.Has(current.Weekday()) {
			dates = append(dates, current)
		}
	}
	return dates
}

// LessonDates parses weekday names and generates the lesson dates.
func LessonDates(query generic.Period, weekdays []string, active generic.Period) []generic.Date {
	return ParseWeekdays(weekdays).LessonDates(query, active)
}

// =============================================================================
// COUNTS - Partition at a cutoff day
// =============================================================================

// Counts splits lessons at a cutoff: Completed are strictly before it,
// Remaining are on or after it. Completed + Remaining == Total.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

// CountLessons partitions the lesson dates of query ∩ active at from.
func CountLessons(query generic.Period, weekdays []string, active generic.Period, from generic.Date) Counts {
	dates := LessonDates(query, weekdays, active)

	counts := Counts{Total: len(dates)}
	for _, d := range dates {
		if d.Before(from) {
			counts.Completed++
		} else {
			counts.Remaining++
		}
	}
	return counts
}

// CountLessonsInMonth is CountLessons over a calendar month. A student joining
// mid-month pays only for Remaining.
func CountLessonsInMonth(year int, month time.Month, weekdays []string, active generic.Period, from generic.Date) Counts {
	return CountLessons(generic.MonthPeriod(year, month), weekdays, active, from)
}
