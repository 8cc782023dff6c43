package schedule

import (
	"strings"

	"github.com/warp/course-settlement/generic"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceUnknown AttendanceStatus = "unknown"
)

// ParseAttendanceStatus falls back to unknown for anything unrecognized.
func ParseAttendanceStatus(s string) AttendanceStatus {
	switch AttendanceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AttendancePresent:
		return AttendancePresent
	case AttendanceAbsent:
		return AttendanceAbsent
	default:
		return AttendanceUnknown
	}
}

// AttendanceEntry is one lesson day on a student's sheet.
type AttendanceEntry struct {
	Date   generic.Date     `json:"date"`
	Status AttendanceStatus `json:"status"`
}

// AttendanceSheet lists a student's lessons within a window.
type AttendanceSheet struct {
	Entries []AttendanceEntry `json:"entries"`
}

// AttendanceSummary counts statuses on a sheet.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Unknown int `json:"unknown"`
	Total   int `json:"total"`
}

// NewAttendanceSheet lists lesson dates in query ∩ course ∩ personal and
// attaches the mark stored under the date's "YYYY-MM-DD" key. Marks for days
// that are not lessons are ignored.
func NewAttendanceSheet(
	query generic.Period,
	weekdays []string,
	course generic.Period,
	personal generic.Period,
	marks map[string]AttendanceStatus,
) AttendanceSheet {
	dates := LessonDates(query.Intersect(personal), weekdays, course)

	sheet := AttendanceSheet{Entries: make([]AttendanceEntry, 0, len(dates))}
	for _, d := range dates {
		status, ok := marks[d.String()]
		if !ok {
			status = AttendanceUnknown
		}
		sheet.Entries = append(sheet.Entries, AttendanceEntry{
			Date:   d,
			Status: ParseAttendanceStatus(string(status)),
		})
	}
	return sheet
}

func (s AttendanceSheet) Summary() AttendanceSummary {
	summary := AttendanceSummary{Total: len(s.Entries)}
	for _, e := range s.Entries {
		switch e.Status {
		case AttendancePresent:
			summary.Present++
		case AttendanceAbsent:
			summary.Absent++
		default:
			summary.Unknown++
		}
	}
	return summary
}
