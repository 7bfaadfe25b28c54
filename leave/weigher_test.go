package leave_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestWeighTrip_ChristmasWeek_SkipsHoliday(t *testing.T) {
	// GIVEN: Trip 2024-12-23..27, Christmas on Wednesday
	// WHEN: Weighing in 2024
	// THEN: 4 days (23, 24, 26, 27)

	trip := fullTrip("t1", "2024-12-23", "2024-12-27", "vacation")
	nonWorking := generic.NewDateSet(date("2024-12-25"))

	got, err := leave.WeighTripInYear(trip, 2024, nonWorking, generic.MondayToFriday)

	require.NoError(t, err)
	assertDays(t, 4, got)
}

func TestWeighTrip_SingleWorkingDay_FullDay(t *testing.T) {
	got, err := leave.WeighTripInYear(fullTrip("t", "2025-03-05", "2025-03-05", "v"), 2025, nil, generic.MondayToFriday)

	require.NoError(t, err)
	assertDays(t, 1, got)
}

func TestWeighTrip_HalfDayModes(t *testing.T) {
	for _, mode := range []leave.DurationMode{
		leave.DurationAllAM, leave.DurationAllPM, leave.DurationSingleAM, leave.DurationSinglePM,
	} {
		t.Run(string(mode), func(t *testing.T) {
			trip := fullTrip("t", "2025-03-03", "2025-03-07", "v")
			trip.DurationMode = mode

			got, err := leave.WeighTripInYear(trip, 2025, nil, generic.MondayToFriday)

			require.NoError(t, err)
			assertDays(t, 2.5, got)
		})
	}
}

func TestWeighTrip_CustomPortions(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		startPart  leave.Portion
		endPart    leave.Portion
		want       float64
	}{
		{"pm start", "2025-03-03", "2025-03-05", leave.PortionPM, leave.PortionPM, 2.5},
		{"am end", "2025-03-03", "2025-03-05", leave.PortionAM, leave.PortionAM, 2.5},
		{"both halves", "2025-03-03", "2025-03-05", leave.PortionPM, leave.PortionAM, 2},
		{"full both", "2025-03-03", "2025-03-05", leave.PortionAM, leave.PortionPM, 3},
		{"single day both halves", "2025-03-03", "2025-03-03", leave.PortionPM, leave.PortionAM, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := fullTrip("t", tt.start, tt.end, "v")
			trip.DurationMode = leave.DurationCustom
			trip.StartPortion = tt.startPart
			trip.EndPortion = tt.endPart

			got, err := leave.WeighTripInYear(trip, 2025, nil, generic.MondayToFriday)

			require.NoError(t, err)
			assertDays(t, tt.want, got)
		})
	}
}

func TestWeighTrip_ExcludedHoliday_CountsZeroOnce(t *testing.T) {
	// GIVEN: A date that is both excluded and a holiday
	// THEN: It contributes nothing, never negative

	trip := fullTrip("t", "2024-12-24", "2024-12-26", "v")
	trip.ExcludedDates = []string{"2024-12-25"}

	got, err := leave.WeighTripInYear(trip, 2024, generic.NewDateSet(date("2024-12-25")), generic.MondayToFriday)

	require.NoError(t, err)
	assertDays(t, 2, got)
}

func TestWeighTrip_CrossYear_SplitsByYear(t *testing.T) {
	trip := fullTrip("t", "2024-12-30", "2025-01-03", "v")

	in2024, err := leave.WeighTripInYear(trip, 2024, nil, generic.MondayToFriday)
	require.NoError(t, err)
	in2025, err := leave.WeighTripInYear(trip, 2025, nil, generic.MondayToFriday)
	require.NoError(t, err)

	assertDays(t, 2, in2024)
	assertDays(t, 3, in2025)
}

func TestWeighTrip_CustomWorkingWeek(t *testing.T) {
	// Sunday to Thursday week
	settings, err := leave.NewWorkspaceSettings(0, 1, 2, 3, 4)
	require.NoError(t, err)

	got, err := leave.WeighTripInYear(fullTrip("t", "2025-03-02", "2025-03-08", "v"), 2025, nil, settings.Working())

	require.NoError(t, err)
	assertDays(t, 5, got)
}

func TestWeighTrip_InvalidDates(t *testing.T) {
	tests := map[string]leave.Trip{
		"malformed start": fullTrip("t", "2025-13-01", "2025-12-31", "v"),
		"inverted":        fullTrip("t", "2025-03-10", "2025-03-01", "v"),
		"bad exclusion": func() leave.Trip {
			tr := fullTrip("t", "2025-03-03", "2025-03-05", "v")
			tr.ExcludedDates = []string{"tomorrow"}
			return tr
		}(),
	}
	for name, trip := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := leave.WeighTripInYear(trip, 2025, nil, generic.MondayToFriday)

			require.Error(t, err)
			assert.True(t, errors.Is(err, generic.ErrInvalidDate))
			var dateErr *generic.InvalidDateError
			assert.ErrorAs(t, err, &dateErr)
		})
	}
}

func TestCalendarWeigher_UsesUserHolidays(t *testing.T) {
	cfg := ukConfig(holiday("nye", "New Year's Eve", "2023-12-31"))
	w := leave.NewCalendarWeigher([]leave.HolidayConfig{cfg}, alice(leave.WeekendRuleMonday), leave.WorkspaceSettings{})

	got, err := w.Weigh(fullTrip("t", "2024-01-01", "2024-01-05", "v"), generic.YearPeriod(2024))

	require.NoError(t, err)
	assertDays(t, 4, got)
}
