package leave_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestAggregateUsage_SumsMatchingTrips(t *testing.T) {
	trips := []leave.Trip{
		fullTrip("a", "2025-03-03", "2025-03-07", "vacation"),
		fullTrip("b", "2025-04-01", "2025-04-01", "vacation"),
		fullTrip("c", "2025-05-05", "2025-05-06", "sick"),
	}

	got, err := leave.AggregateUsage(trips, "vacation", 2025, plainWeigher())

	require.NoError(t, err)
	assertDays(t, 6, got)
}

func TestAggregateUsage_CancelledTripsIgnored(t *testing.T) {
	cancelled := fullTrip("a", "2025-03-03", "2025-03-07", "vacation")
	cancelled.Status = "Canceled"

	got, err := leave.AggregateUsage([]leave.Trip{cancelled}, "vacation", 2025, plainWeigher())

	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAggregateUsage_YearTaggedAllocations(t *testing.T) {
	// GIVEN: Cross-year trip split explicitly between two years
	// WHEN: Aggregating each year
	// THEN: Each year sees only its own allocation

	trip := fullTrip("x", "2024-12-30", "2025-01-03", "")
	trip.Allocations = []leave.Allocation{
		{EntitlementID: "vacation", Days: d(2), TargetYear: year(2024)},
		{EntitlementID: "vacation", Days: d(3), TargetYear: year(2025)},
	}

	in2024, err := leave.AggregateUsage([]leave.Trip{trip}, "vacation", 2024, plainWeigher())
	require.NoError(t, err)
	in2025, err := leave.AggregateUsage([]leave.Trip{trip}, "vacation", 2025, plainWeigher())
	require.NoError(t, err)

	assertDays(t, 2, in2024)
	assertDays(t, 3, in2025)
}

func TestAggregateUsage_AllocationsOverrideEntitlement(t *testing.T) {
	trip := fullTrip("x", "2025-03-03", "2025-03-07", "vacation")
	trip.Allocations = []leave.Allocation{
		{EntitlementID: "lieu", Days: d(1.5), TargetYear: year(2025)},
	}

	vac, err := leave.AggregateUsage([]leave.Trip{trip}, "vacation", 2025, plainWeigher())
	require.NoError(t, err)
	lieu, err := leave.AggregateUsage([]leave.Trip{trip}, "lieu", 2025, plainWeigher())
	require.NoError(t, err)

	assert.True(t, vac.IsZero())
	assertDays(t, 1.5, lieu)
}

func TestAggregateUsage_SeveralYearTaggedAllocations_Summed(t *testing.T) {
	// GIVEN: Two 2025 allocations to vacation and one for 2026
	// WHEN: Aggregating 2025
	// THEN: Both 2025 allocations are charged

	trip := fullTrip("split", "2025-12-29", "2026-01-02", "")
	trip.Allocations = []leave.Allocation{
		{EntitlementID: "vacation", Days: d(1.5), TargetYear: year(2025)},
		{EntitlementID: "vacation", Days: d(2), TargetYear: year(2025)},
		{EntitlementID: "vacation", Days: d(1), TargetYear: year(2026)},
	}

	in2025, err := leave.AggregateUsage([]leave.Trip{trip}, "vacation", 2025, plainWeigher())
	require.NoError(t, err)
	in2026, err := leave.AggregateUsage([]leave.Trip{trip}, "vacation", 2026, plainWeigher())
	require.NoError(t, err)

	assertDays(t, 3.5, in2025)
	assertDays(t, 1, in2026)
}

func TestAggregateUsage_YearAgnosticAllocation_WarnsAndCountsEachYear(t *testing.T) {
	// GIVEN: Legacy allocation without a target year on a cross-year trip
	// WHEN: Aggregating both years
	// THEN: Full amount in each year, with a warning

	trip := fullTrip("legacy", "2024-12-30", "2025-01-03", "")
	trip.Allocations = []leave.Allocation{{EntitlementID: "vacation", Days: d(5)}}

	var buf bytes.Buffer
	log := leave.NewWarningLog(slog.New(slog.NewTextHandler(&buf, nil)))
	agg := leave.UsageAggregator{Weigher: plainWeigher(), Warnings: log}

	in2024, err := agg.Aggregate([]leave.Trip{trip}, "vacation", 2024)
	require.NoError(t, err)
	in2025, err := agg.Aggregate([]leave.Trip{trip}, "vacation", 2025)
	require.NoError(t, err)
	in2026, err := agg.Aggregate([]leave.Trip{trip}, "vacation", 2026)
	require.NoError(t, err)

	assertDays(t, 5, in2024)
	assertDays(t, 5, in2025)
	assert.True(t, in2026.IsZero())
	require.Len(t, log.List(), 2)
	assert.True(t, errors.Is(log.List()[0], leave.ErrDeprecatedAllocation))
	assert.Contains(t, buf.String(), "year-agnostic allocation")
}

func TestAggregateUsage_DanglingAllocation_Warns(t *testing.T) {
	trip := fullTrip("x", "2025-03-03", "2025-03-03", "")
	trip.Allocations = []leave.Allocation{{EntitlementID: "gone", Days: d(1), TargetYear: year(2025)}}

	log := leave.NewWarningLog(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	agg := leave.UsageAggregator{
		Weigher:  plainWeigher(),
		Warnings: log,
		Known:    func(id leave.EntitlementID) bool { return id == "vacation" },
	}

	got, err := agg.Aggregate([]leave.Trip{trip}, "vacation", 2025)

	require.NoError(t, err)
	assert.True(t, got.IsZero())
	require.Len(t, log.List(), 1)
	var dangling *leave.DanglingReferenceWarning
	assert.ErrorAs(t, log.List()[0], &dangling)
	assert.Equal(t, "gone", dangling.ID)
}

func TestAggregateUsage_WithinWindow(t *testing.T) {
	trips := []leave.Trip{
		fullTrip("a", "2025-03-24", "2025-04-04", "vacation"),
	}
	agg := leave.UsageAggregator{Weigher: plainWeigher()}
	window, err := generic.ParsePeriod("2025-01-01", "2025-03-31")
	require.NoError(t, err)

	got, err := agg.AggregateWithin(trips, "vacation", 2025, window)

	require.NoError(t, err)
	assertDays(t, 6, got)
}

func TestAggregateUsage_PropagatesInvalidDate(t *testing.T) {
	_, err := leave.AggregateUsage([]leave.Trip{fullTrip("bad", "2025-02-30", "2025-03-01", "vacation")}, "vacation", 2025, plainWeigher())

	assert.True(t, errors.Is(err, generic.ErrInvalidDate))
}
