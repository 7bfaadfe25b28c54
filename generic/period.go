package generic

// =============================================================================
// PERIOD - Inclusive calendar date range
// =============================================================================

// Period is an inclusive range of calendar dates [Start, End].
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - A trip: first day off - last day off
//   - Carry-over validity: Jan 1 - day before expiry
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a period and rejects inverted ranges.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, &InvalidDateError{
			Value:  start.String() + ".." + end.String(),
			Reason: "end before start",
		}
	}
	return Period{Start: start, End: end}, nil
}

// ParsePeriod parses two ISO dates into a period.
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(s, e)
}

// YearPeriod returns Jan 1 - Dec 31 of year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Intersect returns the overlap of two periods. ok is false when they are disjoint.
func (p Period) Intersect(o Period) (Period, bool) {
	start := p.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := p.End
	if o.End.Before(end) {
		end = o.End
	}
	if end.Before(start) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Len is the number of calendar days in the period.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
