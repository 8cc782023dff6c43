/*
Package schedule generates the concrete calendar dates on which a course's
lessons are held.

PURPOSE:
  A course is configured with a set of weekday names and an active interval.
  Every report, rent figure and attendance sheet needs the actual dates those
  rules produce inside some query window (a calendar month, a custom range,
  a student's personal interval).

KEY CONCEPTS:
  - WeekdaySet:   parsed weekday names, 0 = Sunday .. 6 = Saturday
  - LessonDates:  query window ∩ course interval, filtered by weekday
  - Counts:       total / completed / remaining split at a cutoff day
  - Attendance:   lesson dates merged with a student's marks

EMPTY, NOT ERRORS:
  An inverted or disjoint interval yields zero lessons. Unknown weekday
  names are dropped. One malformed course must not blank a whole report.

SEE ALSO:
  - generic/period.go: Period intersection
  - settlement/model.go: Rent derives from lesson counts
*/
package schedule

import (
	"strings"
	"time"
)

// =============================================================================
// WEEKDAY SET
// =============================================================================

// WeekdaySet is a bitmask of time.Weekday values.
type WeekdaySet uint8

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekdays maps names case-insensitively; unrecognized names are skipped.
func ParseWeekdays(names []string) WeekdaySet {
	var set WeekdaySet
	for _, name := range names {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		set = set.With(wd)
	}
	return set
}

// UnknownWeekdays returns the names ParseWeekdays would drop.
func UnknownWeekdays(names []string) []string {
	var unknown []string
	for _, name := range names {
		if _, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func (s WeekdaySet) With(wd time.Weekday) WeekdaySet { return s | 1<<uint(wd) }
func (s WeekdaySet) Has(wd time.Weekday) bool       { return s&(1<<uint(wd)) != 0 }
func (s WeekdaySet) IsEmpty() bool                  { return s == 0 }

// Weekdays lists the members in 0..6 order.
func (s WeekdaySet) Weekdays() []time.Weekday {
	var out []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s.Has(wd) {
			out = append(out, wd)
		}
	}
	return out
}

// Names returns lower-case weekday names in 0..6 order.
func (s WeekdaySet) Names() []string {
	var out []string
	for _, wd := range s.Weekdays() {
		out = append(out, strings.ToLower(wd.String()))
	}
	return out
}
