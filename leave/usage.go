package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// USAGE AGGREGATOR
// =============================================================================

// AggregateUsage sums the days charged to entitlementID in year.
func AggregateUsage(trips []Trip, entitlementID EntitlementID, year int, weigher Weigher) (decimal.Decimal, error) {
	agg := UsageAggregator{Weigher: weigher}
	return agg.Aggregate(trips, entitlementID, year)
}

// UsageAggregator charges trips to entitlements.
//
// A trip with allocations is charged per allocation: a year-tagged one adds
// its Days to its target year only; a year-agnostic one adds its Days to any
// year in which the trip has a chargeable day. A trip without allocations is
// charged to its EntitlementID by weight.
type UsageAggregator struct {
	Weigher  Weigher
	Warnings *WarningLog
	// Known reports whether an entitlement exists. Nil skips the check.
	Known func(EntitlementID) bool
}

func (a UsageAggregator) Aggregate(trips []Trip, entitlementID EntitlementID, year int) (decimal.Decimal, error) {
	return a.AggregateWithin(trips, entitlementID, year, generic.YearPeriod(year))
}

// AggregateWithin restricts weighing to window, which must lie inside year.
// Allocation days are charged whole when the trip has a chargeable day in
// the window.
func (a UsageAggregator) AggregateWithin(trips []Trip, entitlementID EntitlementID, year int, window generic.Period) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, trip := range trips {
		if trip.Status.IsCancelled() {
			continue
		}
		days, err := a.charge(trip, entitlementID, year, window)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(days)
	}
	if total.IsNegative() {
		return decimal.Zero, nil
	}
	return total, nil
}

func (a UsageAggregator) charge(trip Trip, entitlementID EntitlementID, year int, window generic.Period) (decimal.Decimal, error) {
	if len(trip.Allocations) == 0 {
		if trip.EntitlementID != entitlementID {
			return decimal.Zero, nil
		}
		return a.Weigher.Weigh(trip, window)
	}

	for _, alloc := range trip.Allocations {
		if a.Known != nil && !a.Known(alloc.EntitlementID) {
			a.Warnings.Add(&DanglingReferenceWarning{
				Kind: "entitlement", ID: string(alloc.EntitlementID), Referrer: "trip " + trip.ID,
			})
		}
	}

	// Year-tagged allocations win over the legacy form. Several may split
	// one year's charge; they add up.
	tagged, found := decimal.Zero, false
	for _, alloc := range trip.Allocations {
		if alloc.EntitlementID == entitlementID && alloc.TargetYear != nil && *alloc.TargetYear == year {
			tagged, found = tagged.Add(alloc.Days), true
		}
	}
	if found {
		if !a.touches(trip, window) {
			return decimal.Zero, nil
		}
		return tagged, nil
	}

	for _, alloc := range trip.Allocations {
		if alloc.EntitlementID != entitlementID || alloc.TargetYear != nil {
			continue
		}
		days, err := a.Weigher.Weigh(trip, window)
		if err != nil {
			return decimal.Zero, err
		}
		if !days.IsPositive() {
			return decimal.Zero, nil
		}
		a.Warnings.Add(&DeprecatedAllocationWarning{TripID: trip.ID, EntitlementID: entitlementID, Year: year})
		return alloc.Days, nil
	}
	return decimal.Zero, nil
}

// touches reports whether the window covers the whole year or overlaps the
// trip's date range. Year-tagged allocations are charged in full for the
// year; inside a narrower window they count when the trip overlaps it.
func (a UsageAggregator) touches(trip Trip, window generic.Period) bool {
	if window.Start.Month() == 1 && window.Start.Day() == 1 && window.End.Equal(generic.EndOfYear(window.Start.Year())) {
		return true
	}
	span, err := trip.Period()
	if err != nil {
		return false
	}
	_, ok := span.Intersect(window)
	return ok
}
