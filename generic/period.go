package generic

import "time"

// =============================================================================
// PERIOD - Inclusive day range
// =============================================================================

// Period is the inclusive range [Start, End].
// Query windows, course intervals and a student's personal interval are all
// Periods. A Period with End before Start is empty, never an error. So is a
// Period missing either bound.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// MonthPeriod returns the first to last calendar day of the month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// IsEmpty reports whether the period contains no day at all.
func (p Period) IsEmpty() bool {
	return p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start)
}

// Contains returns true if the day is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Intersect returns [max(starts), min(ends)]. The result may be empty, and
// is always empty when either side is.
func (p Period) Intersect(other Period) Period {
	if p.IsEmpty() || other.IsEmpty() {
		return Period{}
	}
	return Period{
		Start: MaxDate(p.Start, other.Start),
		End:   MinDate(p.End, other.End),
	}
}

// Days returns all days in the period, ascending.
func (p Period) Days() []Date {
	if p.IsEmpty() {
		return nil
	}
	days := make([]Date, 0, DaysBetween(p.Start, p.End)+1)
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Validate rejects inverted periods for callers that want a hard error
// (request parsing). Calculations accept them and yield empty results.
func (p Period) Validate() error {
	if p.IsEmpty() {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
