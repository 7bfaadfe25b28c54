package leave_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func date(s string) generic.TimePoint {
	return generic.MustParseDate(s)
}

func year(y int) *int {
	return &y
}

func assertDays(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %v days, got %s", want, got)
}

func assertAmount(t *testing.T, want float64, got generic.Amount) {
	t.Helper()
	assertDays(t, want, got.Value)
}

func holiday(id, name, day string) leave.PublicHoliday {
	return leave.PublicHoliday{ID: id, Name: name, Date: date(day), IsIncluded: true, ConfigID: "uk"}
}

func ukConfig(holidays ...leave.PublicHoliday) leave.HolidayConfig {
	return leave.HolidayConfig{ID: "uk", Name: "United Kingdom", Jurisdiction: "GB", Holidays: holidays}
}

func alice(rule leave.WeekendRule) leave.User {
	return leave.User{ID: "alice", Name: "Alice", HolidayConfigIDs: []string{"uk"}, HolidayWeekendRule: rule}
}

func fullTrip(id, start, end string, ent leave.EntitlementID) leave.Trip {
	return leave.Trip{
		ID: id, UserID: "alice", StartDate: start, EndDate: end,
		Status: leave.StatusApproved, DurationMode: leave.DurationAllFull, EntitlementID: ent,
	}
}

func vacation() leave.EntitlementType {
	return leave.VacationEntitlement("vacation", "Vacation", d(0), d(0))
}

func policy(ent leave.EntitlementID, y int, base float64, carry *leave.CarryOverRule) leave.UserPolicy {
	p := leave.UserPolicy{
		UserID: "alice", EntitlementID: ent, Year: y, IsActive: true,
		Accrual: leave.Accrual{Period: leave.AccrualYearly, Amount: d(base)},
	}
	if carry != nil {
		p.CarryOver = *carry
	}
	return p
}

func carryMax(max float64) *leave.CarryOverRule {
	return &leave.CarryOverRule{Enabled: true, MaxDays: d(max), ExpiryType: leave.ExpiryNone}
}

// plainWeigher weighs against Monday to Friday with no holidays.
func plainWeigher() leave.Weigher {
	return leave.WeigherFunc(func(trip leave.Trip, window generic.Period) (decimal.Decimal, error) {
		return leave.WeighTripInPeriod(trip, window, nil, generic.MondayToFriday)
	})
}
