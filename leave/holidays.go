package leave

import (
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// HOLIDAY RESOLUTION
// =============================================================================

// ObservedSuffix is appended to the name of a holiday moved off a weekend.
const ObservedSuffix = " (Observed)"

// HolidayResolution is the set of non-working holiday dates for one user
// and year. Maps are keyed by ISO date and list holiday names in calendar
// order.
type HolidayResolution struct {
	Year     int
	Actual   map[string][]string
	Observed map[string][]string
	// LieuDays counts weekend holidays credited under the lieu rule.
	LieuDays int
}

// ResolveHolidays applies the user's subscriptions and weekend rule to the
// holiday configs. Only included holidays dated in year are considered;
// observed dates may spill into year+1.
func ResolveHolidays(configs []HolidayConfig, user User, year int) HolidayResolution {
	res := HolidayResolution{
		Year:     year,
		Actual:   make(map[string][]string),
		Observed: make(map[string][]string),
	}

	for _, cfg := range configs {
		if !user.subscribes(cfg.ID) {
			continue
		}
		for _, h := range cfg.Holidays {
			if !h.IsIncluded || h.Date.IsZero() || h.Date.Year() != year {
				continue
			}
			key := h.Date.String()
			res.Actual[key] = append(res.Actual[key], h.Name)

			if !h.Date.IsWeekend() {
				continue
			}
			switch user.HolidayWeekendRule {
			case WeekendRuleMonday:
				shifted := h.Date.NextWeekday().String()
				res.Observed[shifted] = append(res.Observed[shifted], h.Name+ObservedSuffix)
			case WeekendRuleLieu:
				res.LieuDays++
			}
		}
	}
	return res
}

// Dates returns actual and observed dates as one set.
func (r HolidayResolution) Dates() generic.DateSet {
	set := generic.NewDateSet()
	for d := range r.Actual {
		set[d] = struct{}{}
	}
	for d := range r.Observed {
		set[d] = struct{}{}
	}
	return set
}

// NonWorkingDates returns every holiday date that removes a working day in
// year, including observed dates carried over from year-1.
func NonWorkingDates(configs []HolidayConfig, user User, year int) generic.DateSet {
	set := ResolveHolidays(configs, user, year).Dates()
	prev := ResolveHolidays(configs, user, year-1)
	for d := range prev.Observed {
		set[d] = struct{}{}
	}
	return set
}
