package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TRIP DAY WEIGHER
// =============================================================================

var (
	fullDay = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// WeighTripInYear returns the chargeable days of trip that fall in year.
func WeighTripInYear(trip Trip, year int, nonWorking generic.DateSet, workingDays generic.WeekdaySet) (decimal.Decimal, error) {
	return WeighTripInPeriod(trip, generic.YearPeriod(year), nonWorking, workingDays)
}

// WeighTripInPeriod returns the chargeable days of trip inside window.
// Non-working weekdays, holidays and excluded dates weigh nothing; each
// remaining day weighs 1 or 0.5 depending on the duration mode.
func WeighTripInPeriod(trip Trip, window generic.Period, nonWorking generic.DateSet, workingDays generic.WeekdaySet) (decimal.Decimal, error) {
	span, err := trip.Period()
	if err != nil {
		return decimal.Zero, err
	}
	excluded, err := trip.excluded()
	if err != nil {
		return decimal.Zero, err
	}
	if workingDays.IsEmpty() {
		workingDays = generic.MondayToFriday
	}

	clipped, ok := span.Intersect(window)
	if !ok {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, d := range clipped.Days() {
		if !workingDays.Contains(d.Weekday()) || nonWorking.Contains(d) || excluded.Contains(d) {
			continue
		}
		total = total.Add(trip.dayWeight(d, span))
	}
	return total, nil
}

func (t Trip) dayWeight(d generic.TimePoint, span generic.Period) decimal.Decimal {
	if t.DurationMode.IsHalfDay() {
		return halfDay
	}
	if t.DurationMode == DurationCustom {
		if d.Equal(span.Start) && t.StartPortion == PortionPM {
			return halfDay
		}
		if d.Equal(span.End) && t.EndPortion == PortionAM {
			return halfDay
		}
	}
	return fullDay
}

// =============================================================================
// WEIGHER - Binds a weigher to one user's calendar
// =============================================================================

// Weigher returns the chargeable days of a trip inside a window.
type Weigher interface {
	Weigh(trip Trip, window generic.Period) (decimal.Decimal, error)
}

// WeigherFunc adapts a function to Weigher.
type WeigherFunc func(trip Trip, window generic.Period) (decimal.Decimal, error)

func (f WeigherFunc) Weigh(trip Trip, window generic.Period) (decimal.Decimal, error) {
	return f(trip, window)
}

// CalendarWeigher weighs trips against one user's holidays and the
// workspace working days. Non-working dates are resolved once per year.
type CalendarWeigher struct {
	configs     []HolidayConfig
	user        User
	workingDays generic.WeekdaySet
	byYear      map[int]generic.DateSet
}

func NewCalendarWeigher(configs []HolidayConfig, user User, settings WorkspaceSettings) *CalendarWeigher {
	return &CalendarWeigher{
		configs:     configs,
		user:        user,
		workingDays: settings.Working(),
		byYear:      make(map[int]generic.DateSet),
	}
}

func (w *CalendarWeigher) Weigh(trip Trip, window generic.Period) (decimal.Decimal, error) {
	nonWorking := generic.NewDateSet()
	for y := window.Start.Year(); y <= window.End.Year(); y++ {
		nonWorking = nonWorking.Union(w.nonWorking(y))
	}
	return WeighTripInPeriod(trip, window, nonWorking, w.workingDays)
}

func (w *CalendarWeigher) nonWorking(year int) generic.DateSet {
	if set, ok := w.byYear[year]; ok {
		return set
	}
	set := NonWorkingDates(w.configs, w.user, year)
	w.byYear[year] = set
	return set
}
